// Command daemon runs the kiosk video publishing service: an HTTP API that
// turns a city's directory of raw clips into one looping HLS stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KaTsUAfk/Admin-Panel/internal/api"
	"github.com/KaTsUAfk/Admin-Panel/internal/config"
	"github.com/KaTsUAfk/Admin-Panel/internal/ffmpeg"
	"github.com/KaTsUAfk/Admin-Panel/internal/guard"
	"github.com/KaTsUAfk/Admin-Panel/internal/log"
	"github.com/KaTsUAfk/Admin-Panel/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		logger := log.Base()
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run() error {
	// .env is optional; system environment wins either way.
	_ = godotenv.Load()

	log.Configure(log.Config{})
	logger := log.WithComponent("daemon")

	settings := config.FromEnv()
	if err := settings.Validate(); err != nil {
		return err
	}

	registry, err := config.LoadRegistry(settings.CitiesFile)
	if err != nil {
		return err
	}
	logger.Info().Strs("cities", registry.IDs()).Msg("city registry loaded")

	runner := ffmpeg.NewRunner(settings.FFmpegBin, log.WithComponent("ffmpeg"))
	executor := pipeline.New(runner, pipeline.Options{
		SegmentSeconds: settings.SegmentSeconds,
		StrictEmpty:    settings.StrictEmpty,
	}, log.WithComponent("pipeline"))

	g := guard.New(executor.Run, registry, settings.RunTimeout, settings.GraceDelay,
		log.WithComponent("guard"))

	srv := &http.Server{
		Addr:              settings.Listen,
		Handler:           api.NewServer(g, log.WithComponent("api")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", settings.Listen).Msg("http server listening")
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}

	// Cancel any in-flight run; the external engine process dies with its
	// context and scratch state gets cleaned up on the failure path.
	g.Shutdown()
	return nil
}
