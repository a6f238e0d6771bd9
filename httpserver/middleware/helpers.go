/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RoutePatternGetterFunc returns the route pattern of the request (e.g. "/users/{id}/orders/export").
type RoutePatternGetterFunc func(r *http.Request) string

// WrapResponseWriter is a response writer that remembers the status and the number of written bytes.
type WrapResponseWriter = chimw.WrapResponseWriter

// WrapResponseWriterIfNeeded wraps rw unless it is already wrapped.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

// responseStatus treats a response without an explicit status as 200, like net/http does.
func responseStatus(wrw WrapResponseWriter) int {
	if status := wrw.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

func isEndpointExcluded(urlPath string, excluded []string) bool {
	for _, endpoint := range excluded {
		if urlPath == endpoint {
			return true
		}
	}
	return false
}
