/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"context"
	"time"

	"github.com/acronis/shop-service/internal/rateguard"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/service"
)

// NewSweepWorker returns a worker that periodically removes clients idle for longer than cfg.IdleTimeout.
// Nil is returned when sweeping is disabled or the store is not a memory one.
func NewSweepWorker(
	cfg *Config, store rateguard.Store, clock rateguard.Clock, logger log.FieldLogger,
) *service.PeriodicWorker {
	memStore, ok := store.(*rateguard.MemoryStore)
	if !ok || cfg.SweepInterval <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	idleTimeout := cfg.IdleTimeout
	sweep := service.WorkerFunc(func(_ context.Context) error {
		if removed := memStore.Sweep(clock().Add(-idleTimeout)); removed > 0 {
			logger.Debug("idle throttle records removed", log.Int("removed", removed))
		}
		return nil
	})
	return service.NewPeriodicWorkerWithOpts(sweep, cfg.SweepInterval, logger,
		service.PeriodicWorkerOpts{InitialDelay: cfg.SweepInterval})
}
