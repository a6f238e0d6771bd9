/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the units of the shop service and stops them gracefully on OS signals.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acronis/shop-service/log"
)

// Service starts a unit, registers its metrics and waits for a shutdown signal or a fatal error.
type Service struct {
	Unit    Unit
	Logger  log.FieldLogger
	Signals chan os.Signal

	shutdownSignals []os.Signal
}

// New creates a new Service which stops on SIGINT and SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return &Service{
		Unit:            unit,
		Logger:          logger,
		Signals:         make(chan os.Signal, 1),
		shutdownSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Run starts the unit in a separate goroutine and blocks until ctx is done,
// a shutdown signal is received or the unit fails.
func (s *Service) Run(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	fatalErr := make(chan error, 1)
	go s.Unit.Start(fatalErr)

	signal.Notify(s.Signals, s.shutdownSignals...)
	defer signal.Stop(s.Signals)

	select {
	case err := <-fatalErr:
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	case <-ctx.Done():
		s.Logger.Info("context is canceled, service will be stopped")
	case sig := <-s.Signals:
		s.Logger.Info("service got signal", log.String("signal", sig.String()))
	}

	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}
