package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/client"
	"github.com/sellerfunnel/api/internal/config"
	"github.com/sellerfunnel/api/internal/jobs"
	"github.com/sellerfunnel/api/internal/store"
	ws "github.com/sellerfunnel/api/internal/websocket"
)

const shutdownTimeout = 30 * time.Second

// Deps are the external resources the server runs on.
type Deps struct {
	Store    store.ClientStore
	Redis    redis.Cmdable
	Email    client.EmailSender
	SMS      client.SMSSender
	Archiver client.Archiver

	closers []func() error
}

// Close releases every resource opened by Connect.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Connect opens the store and builds the delivery clients. Optional
// transports that are not configured are left nil.
func Connect(ctx context.Context, cfg *config.Config) (*Deps, error) {
	deps := &Deps{}

	s, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DSN:         cfg.Store.DSN,
		MaxConns:    int32(cfg.Store.MaxConns),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	deps.Store = s
	deps.closers = append(deps.closers, s.Close)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Str("component", "app").Err(err).Msg("Redis not available, rate limiting disabled until it is")
	}
	deps.Redis = redisClient
	deps.closers = append(deps.closers, redisClient.Close)

	email, err := client.NewEmailSender(&cfg.Email)
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("email sender: %w", err)
	}
	deps.Email = email

	sms, err := client.NewSMSClient(&cfg.SMS)
	switch {
	case err == nil:
		deps.SMS = sms
	case errors.Is(err, client.ErrSMSNotConfigured):
		log.Warn().Str("component", "app").Err(err).Msg("SMS campaigns disabled")
	default:
		_ = deps.Close()
		return nil, fmt.Errorf("sms client: %w", err)
	}

	if cfg.R2.Enabled() {
		r2, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("r2 client: %w", err)
		}
		deps.Archiver = r2
	}

	return deps, nil
}

// App owns the HTTP server and the job engine.
type App struct {
	HTTP     *fiber.App
	Registry *jobs.Registry
	Janitor  *jobs.Janitor
	Hub      *ws.Hub
	Config   *config.Config
	Deps     *Deps
}

// New wires the services, handlers and job engine together.
func New(cfg *config.Config, deps *Deps) *App {
	hub := ws.NewHub()
	registry := jobs.NewRegistry(jobs.Options{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		Observer:      hub,
	})

	a := &App{
		Registry: registry,
		Janitor:  jobs.NewJanitor(registry, cfg.Jobs.JanitorInterval),
		Hub:      hub,
		Config:   cfg,
		Deps:     deps,
	}
	a.HTTP = NewRouter(cfg, deps, registry, hub, validator.New())
	return a
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.Hub.Run(hubCtx)

	if err := a.Janitor.Start(); err != nil {
		return err
	}

	addr := ":" + a.Config.Server.Port
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("component", "app").Str("addr", addr).Msg("Server starting")
		if err := a.HTTP.Listen(addr); err != nil {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Str("component", "app").Msg("Shutdown signal received")
	case runErr = <-serverErr:
		log.Error().Str("component", "app").Err(runErr).Msg("Server error")
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops intake first, then lets running jobs wind down.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.HTTP.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := a.Janitor.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("janitor: %w", err))
	}
	if err := a.Registry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("jobs: %w", err))
	}
	if a.Deps != nil {
		if err := a.Deps.Close(); err != nil {
			errs = append(errs, fmt.Errorf("deps: %w", err))
		}
	}

	log.Info().Str("component", "app").Msg("Server shutdown complete")
	return errors.Join(errs...)
}
