package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paazmaya/chinenshichanaka/internal/ico"
	"github.com/paazmaya/chinenshichanaka/internal/pipeline"
	"github.com/paazmaya/chinenshichanaka/internal/quant"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve icon conversion over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().Int64("max-body", 16<<20, "Maximum request body size in bytes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	maxBody, _ := cmd.Flags().GetInt64("max-body")

	opts, err := optionsFromConfig(conf)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(opts, maxBody),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Shutdown failed")
		}
	}()

	log.WithFields(log.Fields{
		"addr":   addr,
		"size":   opts.OutputSize,
		"colors": opts.MaxColors,
		"method": opts.Method,
	}).Info("Listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRouter(base pipeline.Options, maxBody int64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	r.Post("/icon", iconHandler(base, maxBody))
	return r
}

// iconHandler converts the request body. Query parameters size, colors,
// method and payload override the server defaults.
func iconHandler(base pipeline.Options, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := requestOptions(base, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := pipeline.Run(data, opts)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "image/x-icon")
		w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
		w.Write(result.Data)
	}
}

func requestOptions(base pipeline.Options, r *http.Request) (pipeline.Options, error) {
	opts := base
	q := r.URL.Query()
	if s := q.Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return opts, errors.New("size must be an integer")
		}
		opts.OutputSize = n
	}
	if s := q.Get("colors"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return opts, errors.New("colors must be an integer")
		}
		opts.MaxColors = n
	}
	if s := q.Get("method"); s != "" {
		m, err := quant.ParseMethod(s)
		if err != nil {
			return opts, err
		}
		opts.Method = m
	}
	if s := q.Get("payload"); s != "" {
		p, err := ico.ParsePayload(s)
		if err != nil {
			return opts, err
		}
		opts.Payload = p
	}
	opts.Log = log.WithField("remote", r.RemoteAddr)
	return opts, opts.Validate()
}

func statusFor(err error) int {
	var se *pipeline.StageError
	switch {
	case errors.Is(err, pipeline.ErrInvalidOptions):
		return http.StatusUnprocessableEntity
	case errors.As(err, &se) && (se.Stage == pipeline.StageDecode || se.Stage == pipeline.StageRasterize):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
