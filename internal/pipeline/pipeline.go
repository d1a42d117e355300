package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/paazmaya/chinenshichanaka/internal/decode"
	"github.com/paazmaya/chinenshichanaka/internal/fit"
	"github.com/paazmaya/chinenshichanaka/internal/ico"
	"github.com/paazmaya/chinenshichanaka/internal/ir"
	"github.com/paazmaya/chinenshichanaka/internal/quant"
	"github.com/paazmaya/chinenshichanaka/internal/raster"
)

// ErrInvalidOptions is returned by Validate.
var ErrInvalidOptions = errors.New("invalid options")

// Stage names used in StageError and log fields.
const (
	StageDecode    = "decode"
	StageRasterize = "rasterize"
	StageFit       = "fit"
	StageQuantize  = "quantize"
	StageEncode    = "encode"
)

// StageError wraps the failure of one pipeline stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options controls the full image → icon pipeline.
type Options struct {
	OutputSize      int          // icon edge length, 1-256
	MaxColors       int          // palette bound, 1-256
	Method          quant.Method // palette builder
	Payload         ico.Payload  // bitmap storage inside the container
	MaxSourcePixels int          // decoded raster limit, 0 = unlimited
	Log             logrus.FieldLogger
}

// DefaultOptions returns the settings of the command line tool.
func DefaultOptions() Options {
	return Options{
		OutputSize:      32,
		MaxColors:       16,
		Method:          quant.MethodNeuQuant,
		Payload:         ico.PayloadBMP,
		MaxSourcePixels: 64 << 20,
	}
}

// Validate checks every field.
func (o Options) Validate() error {
	if o.OutputSize < 1 || o.OutputSize > ico.MaxSize {
		return fmt.Errorf("%w: output size %d outside 1..%d", ErrInvalidOptions, o.OutputSize, ico.MaxSize)
	}
	if o.MaxColors < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, quant.ErrInvalidColors)
	}
	if o.MaxColors > quant.MaxPalette {
		return fmt.Errorf("%w: %d colors exceed %d", ErrInvalidOptions, o.MaxColors, quant.MaxPalette)
	}
	if _, err := quant.ParseMethod(string(o.Method)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if _, err := ico.ParsePayload(string(o.Payload)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	if o.MaxSourcePixels < 0 {
		return fmt.Errorf("%w: negative pixel limit", ErrInvalidOptions)
	}
	return nil
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log != nil {
		return o.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Result holds the output of a pipeline run.
type Result struct {
	Data          []byte // encoded icon
	SrcFormat     decode.Format
	SrcWidth      int
	SrcHeight     int
	ContentWidth  int // source size after fitting, before padding
	ContentHeight int
	Colors        int             // distinct colors in Bitmap
	Bitmap        *ir.PixelBuffer // quantized canvas
}

// Run executes the full pipeline: sniff → decode or rasterize → fit →
// quantize → encode.
func Run(data []byte, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	// 1. Identify the input by content
	format := decode.Sniff(data)
	log.WithField("format", format).Debug("input sniffed")

	// 2. Vector input is drawn straight at the icon size, raster input is decoded
	var src *ir.PixelBuffer
	var err error
	if format == decode.FormatSVG {
		src, err = raster.Rasterize(data, opts.OutputSize)
		if err != nil {
			return nil, &StageError{Stage: StageRasterize, Err: err}
		}
	} else {
		src, err = decode.Decode(data, opts.MaxSourcePixels)
		if err != nil {
			return nil, &StageError{Stage: StageDecode, Err: err}
		}
	}
	log.WithFields(logrus.Fields{
		"stage":    StageDecode,
		"width":    src.Width,
		"height":   src.Height,
		"channels": src.Channels,
	}).Debug("source ready")

	// 3. Fit, quantize, encode
	res, err := convert(src, opts, log)
	if err != nil {
		return nil, err
	}
	res.SrcFormat = format
	return res, nil
}

// Convert runs fit → quantize → encode on an already decoded buffer.
// A nil src fails in the fit stage with fit.ErrEmptySource.
func Convert(src *ir.PixelBuffer, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return convert(src, opts, opts.logger())
}

func convert(src *ir.PixelBuffer, opts Options, log logrus.FieldLogger) (*Result, error) {
	canvas, err := fit.Fit(src, opts.OutputSize)
	if err != nil {
		return nil, &StageError{Stage: StageFit, Err: err}
	}
	contentW, contentH := fit.CalculateSize(src.Width, src.Height, opts.OutputSize)
	log.WithFields(logrus.Fields{
		"stage":  StageFit,
		"width":  contentW,
		"height": contentH,
	}).Debug("fitted to canvas")

	quantized, err := quant.Quantize(canvas, opts.MaxColors, opts.Method.Builder())
	if err != nil {
		return nil, &StageError{Stage: StageQuantize, Err: err}
	}
	colors := quantized.CountColors()
	log.WithFields(logrus.Fields{
		"stage":  StageQuantize,
		"method": opts.Method,
		"colors": colors,
	}).Debug("quantized")

	encoded, err := ico.Encode(quantized, opts.Payload)
	if err != nil {
		return nil, &StageError{Stage: StageEncode, Err: err}
	}
	log.WithFields(logrus.Fields{
		"stage":   StageEncode,
		"payload": opts.Payload,
		"bytes":   len(encoded),
	}).Debug("encoded")

	return &Result{
		Data:          encoded,
		SrcWidth:      src.Width,
		SrcHeight:     src.Height,
		ContentWidth:  contentW,
		ContentHeight: contentH,
		Colors:        colors,
		Bitmap:        quantized,
	}, nil
}
