/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package api provides HTTP handlers of the shop service.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/shop-service/httpserver/middleware"
	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/restapi"
	"github.com/acronis/shop-service/shop"
)

// ErrorDomain is used in all error responses of the service.
const ErrorDomain = "ShopService"

// ServiceNameInURL is the API prefix part: /api/shop/v1.
const ServiceNameInURL = "shop"

// UserIDHeader carries the id of the authenticated caller.
const UserIDHeader = "X-User-ID"

// Error codes specific to the service.
const (
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeValidationFailed = "validationFailed"
)

// Handler serves the shop API.
type Handler struct {
	repo     shop.Repository
	exporter *shop.Exporter
	importer *shop.Importer
	feed     *shop.Feed
}

// NewHandler creates a new Handler.
func NewHandler(repo shop.Repository, exporter *shop.Exporter, importer *shop.Importer, feed *shop.Feed) *Handler {
	return &Handler{repo: repo, exporter: exporter, importer: importer, feed: feed}
}

// Routes registers the API routes. The signature matches httpserver.APIRoute.
func (h *Handler) Routes(router chi.Router) {
	router.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/latest/feed", h.latestProductsFeed)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Post("/{id}/archive", h.archiveProduct)
		r.Post("/{id}/unarchive", h.unarchiveProduct)
	})
	router.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/export", h.exportAllOrders)
		r.Post("/import", h.importOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrder)
		r.Delete("/{id}", h.deleteOrder)
	})
	router.Route("/users/{id}/orders", func(r chi.Router) {
		r.Get("/", h.listUserOrders)
		r.Get("/export", h.exportUserOrders)
		r.Delete("/export/cache", h.invalidateUserOrdersExport)
	})
}

func getLogger(r *http.Request) log.FieldLogger {
	return middleware.GetLoggerFromContext(r.Context())
}

func parseIDParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%q is not a valid id", raw)
	}
	return uint(id), nil
}

// idParamOrRespond parses the {id} path parameter and responds 400 if it is malformed.
func idParamOrRespond(rw http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeInvalidParam, err.Error()).AddContext("param", "id")
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, getLogger(r))
		return 0, false
	}
	return id, true
}

// getCaller resolves the user from the X-User-ID header. It returns nil without error if the header is absent.
func (h *Handler) getCaller(r *http.Request) (*shop.User, error) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s header", errUnauthorized, UserIDHeader)
	}
	user, err := h.repo.GetUser(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, shop.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", errUnauthorized, id)
		}
		return nil, err
	}
	return user, nil
}

// requireCaller is like getCaller but responds 401 when the caller is absent or unknown.
func (h *Handler) requireCaller(rw http.ResponseWriter, r *http.Request) (*shop.User, bool) {
	caller, err := h.getCaller(r)
	if err == nil && caller == nil {
		err = fmt.Errorf("%w: %s header is required", errUnauthorized, UserIDHeader)
	}
	if err != nil {
		respondDomainError(rw, r, err)
		return nil, false
	}
	return caller, true
}

var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// respondDomainError maps errors of the shop package to API errors.
func respondDomainError(rw http.ResponseWriter, r *http.Request, err error) {
	logger := getLogger(r)
	switch {
	case errors.Is(err, shop.ErrNotFound):
		restapi.RespondError(rw, http.StatusNotFound,
			restapi.NewError(ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound), logger)
	case errors.Is(err, shop.ErrValidation):
		restapi.RespondError(rw, http.StatusBadRequest,
			restapi.NewError(ErrorDomain, ErrCodeValidationFailed, err.Error()), logger)
	case errors.Is(err, errUnauthorized):
		restapi.RespondError(rw, http.StatusUnauthorized,
			restapi.NewError(ErrorDomain, ErrCodeUnauthorized, err.Error()), logger)
	case errors.Is(err, errForbidden):
		restapi.RespondError(rw, http.StatusForbidden,
			restapi.NewError(ErrorDomain, restapi.ErrCodeForbidden, restapi.ErrMessageForbidden), logger)
	default:
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, logger)
	}
}
