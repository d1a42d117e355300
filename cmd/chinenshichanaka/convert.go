package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paazmaya/chinenshichanaka/internal/decode"
	"github.com/paazmaya/chinenshichanaka/internal/pipeline"
)

const defaultOutput = "favicon.ico"

var errSuffix = errors.New("the output file has to use the 'ico' suffix")

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := defaultOutput
	if len(args) > 1 {
		output = args[1]
	}

	opts, err := optionsFromConfig(conf)
	if err != nil {
		return err
	}
	return convertPaths(cmd.OutOrStdout(), input, output, opts)
}

// convertPaths reads input, runs the pipeline and writes the icon. Nothing is
// written when any step fails.
func convertPaths(out io.Writer, input, output string, opts pipeline.Options) error {
	if !strings.HasSuffix(strings.ToLower(output), ".ico") {
		return errSuffix
	}
	log.Debugf("Converting '%s' to '%s'", input, output)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	if info, err := decode.Info(data); err == nil {
		log.WithFields(log.Fields{
			"format": info.Format,
			"width":  info.Width,
			"height": info.Height,
			"color":  info.ColorModel,
		}).Debug("Original image")
	}

	result, err := pipeline.Run(data, opts)
	if err != nil {
		return fmt.Errorf("conversion: %w", err)
	}

	log.WithFields(log.Fields{
		"width":   result.ContentWidth,
		"height":  result.ContentHeight,
		"canvas":  opts.OutputSize,
		"colors":  result.Colors,
		"payload": opts.Payload,
	}).Debug("Dimensions after resizing to square")

	if err := os.WriteFile(output, result.Data, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(out, "Output saved to '%s'\n", output)
	return nil
}
