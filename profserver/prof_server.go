/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides the debug HTTP server with pprof and in-memory state counters.
package profserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acronis/shop-service/httpserver/middleware"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/restapi"
	"github.com/acronis/shop-service/service"
)

// StatsFunc returns named counters of in-process state, e.g. the number of tracked throttle clients.
type StatsFunc func() map[string]int

// ProfServer is the debug HTTP server. It implements service.Unit.
type ProfServer struct {
	URL            string
	HTTPServer     *http.Server
	Logger         log.FieldLogger
	httpServerDone chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a debug server with pprof under /debug/pprof and counters under /stats.
func New(cfg *Config, logger log.FieldLogger, stats StatsFunc) *ProfServer {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}),
	)
	router.Mount("/debug", chimiddleware.Profiler())
	router.Get("/stats", func(rw http.ResponseWriter, r *http.Request) {
		res := map[string]int{}
		if stats != nil {
			res = stats()
		}
		restapi.RespondJSON(rw, res, middleware.GetLoggerFromContext(r.Context()))
	})

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: time.Second * 5,
	}
	return &ProfServer{
		URL:            "http://" + httpServer.Addr,
		HTTPServer:     httpServer,
		Logger:         logger,
		httpServerDone: make(chan struct{}),
	}
}

// Start serves in a blocking way. A listen error is sent to fatalError.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting debug HTTP server...")
	if err := s.HTTPServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("debug HTTP server closed")
			return
		}
		logger.Error("debug HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop closes the server immediately, there is nothing to drain gracefully.
func (s *ProfServer) Stop(_ bool) error {
	s.Logger.Info("closing debug HTTP server...")
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("debug HTTP server closing error", log.Error(err))
		return err
	}
	<-s.httpServerDone
	return nil
}
