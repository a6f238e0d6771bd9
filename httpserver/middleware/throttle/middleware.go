/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"net"
	"net/http"
	"strings"

	"github.com/acronis/shop-service/httpserver/middleware"
	"github.com/acronis/shop-service/internal/rateguard"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/restapi"
)

// ClientKeyLogFieldName is a logged field that contains the throttled client key.
const ClientKeyLogFieldName = "client_key"

// MiddlewareOpts represents an options for Middleware.
type MiddlewareOpts struct {
	// ResponseStatusCode is sent on Reject. 429 if zero.
	ResponseStatusCode int

	// ExcludedEndpoints are never throttled.
	ExcludedEndpoints []string

	// GetClientKey returns the key identifying the client. Host part of RemoteAddr is used if nil.
	GetClientKey func(r *http.Request) string
}

type handler struct {
	next      http.Handler
	guard     *rateguard.Guard
	errDomain string
	mc        MetricsCollector
	opts      MiddlewareOpts
}

// Middleware throttles requests with the guard.
// Rejected requests never reach the next handler.
func Middleware(
	guard *rateguard.Guard, errDomain string, mc MetricsCollector, opts MiddlewareOpts,
) func(next http.Handler) http.Handler {
	if mc == nil {
		mc = disabledMetrics{}
	}
	if opts.ResponseStatusCode == 0 {
		opts.ResponseStatusCode = DefaultResponseStatusCode
	}
	if opts.GetClientKey == nil {
		opts.GetClientKey = GetClientKeyFromRemoteAddr
	}
	return func(next http.Handler) http.Handler {
		return &handler{next: next, guard: guard, errDomain: errDomain, mc: mc, opts: opts}
	}
}

// MiddlewareFromConfig creates Middleware with response code and exclusions taken from the configuration.
func MiddlewareFromConfig(
	cfg *Config, guard *rateguard.Guard, errDomain string, mc MetricsCollector,
) func(next http.Handler) http.Handler {
	return Middleware(guard, errDomain, mc, MiddlewareOpts{
		ResponseStatusCode: cfg.ResponseStatusCode,
		ExcludedEndpoints:  cfg.ExcludedEndpoints,
	})
}

func (h *handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	for _, endpoint := range h.opts.ExcludedEndpoints {
		if r.URL.Path == endpoint {
			h.next.ServeHTTP(rw, r)
			return
		}
	}

	clientKey := h.opts.GetClientKey(r)
	logger := middleware.GetLoggerFromContext(r.Context())

	outcome, err := h.guard.Admit(r.Context(), rateguard.Request{Method: r.Method, ClientKey: clientKey})
	if err != nil {
		h.mc.IncStoreErrors()
		if logger != nil {
			logger.Error("throttling check failed", log.String(ClientKeyLogFieldName, clientKey), log.Error(err))
		}
		restapi.RespondInternalError(rw, h.errDomain, logger)
		return
	}
	h.mc.IncDecisions(outcome.Decision)

	if !outcome.Allowed() {
		if logger != nil {
			logger.Warn("request throttled",
				log.String(ClientKeyLogFieldName, clientKey), log.Error(outcome.Reason))
		}
		restapi.RespondError(rw, h.opts.ResponseStatusCode, restapi.NewError(h.errDomain,
			restapi.ErrCodeTooManyRequests, "Too many requests, try again later."), logger)
		return
	}

	h.next.ServeHTTP(rw, r.WithContext(middleware.NewContextWithClientKey(r.Context(), outcome.ClientKey)))
}

// GetClientKeyFromRemoteAddr returns the host part of the request's RemoteAddr or the whole value if it has no port.
func GetClientKeyFromRemoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
