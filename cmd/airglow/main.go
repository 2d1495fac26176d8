// Package main is the entry point for the Airglow status backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/airglowhq/airglow-status-backend/internal/config"
	"github.com/airglowhq/airglow-status-backend/internal/domain/airplay"
	"github.com/airglowhq/airglow-status-backend/internal/domain/discovery"
	"github.com/airglowhq/airglow-status-backend/internal/domain/status"
	"github.com/airglowhq/airglow-status-backend/internal/infra/diag"
	"github.com/airglowhq/airglow-status-backend/internal/infra/ledfx"
	"github.com/airglowhq/airglow-status-backend/internal/infra/probe"
	"github.com/airglowhq/airglow-status-backend/internal/infra/pulse"
	"github.com/airglowhq/airglow-status-backend/internal/infra/runtime"
	"github.com/airglowhq/airglow-status-backend/internal/transport/httpapi"
	"github.com/airglowhq/airglow-status-backend/internal/version"
)

func main() {
	// Command line flags
	listen := pflag.String("listen", ":8080", "HTTP listen address")
	ledfxURL := pflag.String("ledfx-url", ledfx.DefaultBaseURL, "LedFX API base URL")
	configDir := pflag.String("config-dir", config.DefaultDir, "Directory holding the fleet config files")
	scriptPath := pflag.String("diagnose-script", "/scripts/diagnose-airglow.sh", "Path to the diagnostic script")
	lanPrefix := pflag.String("lan-prefix", discovery.DefaultLANPrefix, "Preferred private-LAN IPv4 prefix for discovered devices")
	rateLimit := pflag.Int("diagnose-rate-limit", 5, "Max diagnostic runs per client per minute")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	pflag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	info := version.GetInfo()
	log.Info().Str("go", info.GoVersion).Msgf("%s starting", info.String())
	log.Info().
		Str("listen", *listen).
		Str("ledfx_url", *ledfxURL).
		Str("config_dir", *configDir).
		Str("lan_prefix", *lanPrefix).
		Msg("Configuration")

	// Wire the adapters.
	runner := probe.NewExecRunner()
	docker := runtime.NewDocker(runner)
	store := config.NewStore(*configDir)
	api := ledfx.NewClient(ledfx.WithBaseURL(*ledfxURL))
	monitor := pulse.NewMonitor(docker, status.ContainerLedFX, pulse.DefaultClientName)
	advert := airplay.NewService(runner, docker, store, status.ContainerShairport, *lanPrefix)
	checker := diag.NewChecker(runner, *scriptPath)
	aggregator := status.NewAggregator(api, docker, monitor, advert, checker)

	apiServer := httpapi.NewServer(aggregator, store, api, checker, docker,
		httpapi.NewRateLimiter(*rateLimit, time.Minute))

	server := &http.Server{
		Addr:         *listen,
		Handler:      allowCrossOrigin(apiServer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *listen).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	log.Info().Msg("Server stopped")
}
