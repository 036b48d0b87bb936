package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RailScan/pkg/logger"
)

// Service is a long-running component with a start/stop lifecycle.
type Service interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedService struct {
	name string
	svc  Service
}

type namedCloser struct {
	name  string
	close func() error
}

// App encapsulates the application lifecycle. Services start in the order
// they were added and stop in reverse; closers run after every service has
// stopped, also in reverse.
type App struct {
	log             *logger.Logger
	shutdownTimeout time.Duration
	services        []namedService
	closers         []namedCloser
	started         int
}

// New creates an empty App.
func New(lgr *logger.Logger, shutdownTimeout time.Duration) *App {
	if lgr == nil {
		lgr = logger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{log: lgr, shutdownTimeout: shutdownTimeout}
}

// AddService registers a service. Nil services are ignored.
func (a *App) AddService(name string, svc Service) {
	if svc == nil {
		return
	}
	a.services = append(a.services, namedService{name: name, svc: svc})
}

// AddCloser registers an infrastructure client to release on shutdown.
func (a *App) AddCloser(name string, fn func() error) {
	if fn == nil {
		return
	}
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Start starts every service. On failure the services already started are
// stopped again.
func (a *App) Start() error {
	for _, s := range a.services {
		if err := s.svc.Start(); err != nil {
			a.log.Error("service start failed", logger.String("service", s.name), logger.Error(err))
			ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			_ = a.Shutdown(ctx)
			cancel()
			return fmt.Errorf("start %s: %w", s.name, err)
		}
		a.started++
		a.log.Info("service started", logger.String("service", s.name))
	}
	return nil
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	a.log.Info("shutdown signal received", logger.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown stops started services and runs closers, both in reverse order.
// It keeps going past failures and returns them joined.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for i := a.started - 1; i >= 0; i-- {
		s := a.services[i]
		if err := s.svc.Stop(ctx); err != nil {
			a.log.Warn("service stop error", logger.String("service", s.name), logger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", s.name, err))
		}
	}
	a.started = 0

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.log.Warn("close error", logger.String("client", c.name), logger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
