/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerUnit(t *testing.T) {
	t.Run("graceful stop waits for the worker", func(t *testing.T) {
		workerStarted := make(chan struct{})
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			close(workerStarted)
			<-ctx.Done()
			return nil
		}))

		fatalErr := make(chan error, 1)
		startDone := make(chan struct{})
		go func() {
			defer close(startDone)
			unit.Start(fatalErr)
		}()
		<-workerStarted

		require.NoError(t, unit.Stop(true))
		<-startDone
		require.Len(t, fatalErr, 0)
	})

	t.Run("worker error is fatal", func(t *testing.T) {
		runErr := errors.New("worker failed")
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			return runErr
		}))
		fatalErr := make(chan error, 1)
		unit.Start(fatalErr)
		require.ErrorIs(t, <-fatalErr, runErr)
		require.NoError(t, unit.Stop(true))
	})

	t.Run("graceful stop timeout exceeded", func(t *testing.T) {
		workerStarted := make(chan struct{})
		release := make(chan struct{})
		defer close(release)
		unit := NewWorkerUnitWithOpts(WorkerFunc(func(ctx context.Context) error {
			close(workerStarted)
			<-release
			return nil
		}), WorkerUnitOpts{GracefulStopTimeout: time.Millisecond * 50})

		go unit.Start(make(chan error, 1))
		<-workerStarted
		require.ErrorIs(t, unit.Stop(true), ErrWorkerUnitStopTimeoutExceeded)
	})

	t.Run("non-graceful stop does not wait", func(t *testing.T) {
		workerStarted := make(chan struct{})
		release := make(chan struct{})
		defer close(release)
		unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
			close(workerStarted)
			<-release
			return nil
		}))

		go unit.Start(make(chan error, 1))
		<-workerStarted
		require.NoError(t, unit.Stop(false))
	})
}
