package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/database"
	"github.com/deppfellow/nginx-log-sink/internal/handler"
	"github.com/deppfellow/nginx-log-sink/internal/logger"
	"github.com/deppfellow/nginx-log-sink/internal/repository"
	"github.com/deppfellow/nginx-log-sink/internal/router"
	"github.com/deppfellow/nginx-log-sink/internal/server"
	"github.com/deppfellow/nginx-log-sink/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP sink",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply database migrations on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	// errors are returned rather than fatal so the deferred Shutdown still
	// flushes New Relic
	if cfg.Database != nil && !skipMigrate {
		if err := database.Migrate(cmd.Context(), &log, cfg); err != nil {
			log.Error().Err(err).Msg("failed to migrate database")
			return err
		}
	}

	if !cfg.Alerting.Enabled {
		log.Warn().
			Bool("resend_key_set", cfg.Integration.ResendAPIKey != "").
			Int("recipients", len(cfg.Alerting.Recipients)).
			Msg("alert emails disabled")
	}

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		return err
	}

	repos := repository.NewRepositories(srv)

	services, err := service.NewService(srv, repos)
	if err != nil {
		log.Error().Err(err).Msg("could not create services")
		_ = srv.Shutdown(context.Background())
		return err
	}

	handlers := handler.NewHandlers(srv, services)
	r := router.NewRouter(srv, handlers)

	srv.SetupHTTPServer(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		log.Error().Err(err).Msg("failed to start server")
		_ = srv.Shutdown(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	log.Info().Msg("server exited properly")
	return nil
}
