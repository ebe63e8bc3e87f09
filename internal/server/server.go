// Package server defines the core Server struct that composes the sink's
// dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - database pool (optional)
//   - redis client (optional)
//   - background job worker server (asynq, needs redis)
//   - dependency health monitor
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/database"
	"github.com/deppfellow/nginx-log-sink/internal/lib/job"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/nginx-log-sink/internal/logger"
)

// RedisPingTimeout bounds the start-up Redis ping.
const RedisPingTimeout = 5 * time.Second

// Server is the application container that holds shared resources.
//
// DB, Redis and Job are nil when their config block is absent; every
// consumer checks before use.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	DB    *database.Database
	Redis *redis.Client
	Job   *job.JobService

	monitor    *HealthMonitor
	httpServer *http.Server
}

// New constructs a Server and initializes the configured dependencies.
//
// A database that cannot be reached stops start-up. Redis failures are
// logged and the sink keeps running; alerts then fail open.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	server := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
	}

	if cfg.Database != nil {
		db, err := database.New(cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		server.DB = db
	} else {
		logger.Warn().Msg("database not configured, records will not be stored")
	}

	if cfg.Redis != nil {
		server.Redis = newRedisClient(cfg.Redis, logger, loggerService)

		server.Job = job.NewJobService(logger, cfg)
		if err := server.Job.Start(); err != nil {
			return nil, err
		}
	} else {
		logger.Warn().Msg("redis not configured, alerts will only be logged")
	}

	if obs := cfg.Observability; obs != nil && obs.HealthChecks.Enabled {
		server.monitor = NewHealthMonitor(server, obs.HealthChecks)
		if err := server.monitor.Start(); err != nil {
			return nil, err
		}
	}

	return server, nil
}

func newRedisClient(cfg *config.RedisConfig, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	// connections are lazy; nothing is dialled here
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if loggerService != nil && loggerService.GetApplication() != nil {
		redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), RedisPingTimeout)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis, continuing without Redis")
	}

	return redisClient
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// seconds; a zero WriteTimeout leaves responses unbounded
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Int64("max_concurrency", s.Config.Server.MaxConcurrency).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its dependencies.
//
// In-flight requests finish first (bounded by ctx), then workers drain and
// connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if s.monitor != nil {
		s.monitor.Stop()
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			return fmt.Errorf("failed to close redis client: %w", err)
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
