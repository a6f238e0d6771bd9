/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/restapi"
	"github.com/acronis/shop-service/shop"
)

// CSVFileFormField is the multipart field with the orders CSV file.
const CSVFileFormField = "csv_file"

const multipartMaxMemory = 1 << 20

type orderRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	Promocode       string `json:"promocode"`
	// Products is nil when the field is omitted, so updates keep the current products.
	Products []uint `json:"products"`
}

type importOrdersResponse struct {
	Imported int `json:"imported"`
}

func (h *Handler) listOrders(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := shop.OrderFilter{Promocode: query.Get("promocode"), Ordering: query.Get("ordering")}
	if raw := query.Get("user"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeInvalidParam, "user must be a user id").
				AddContext("param", "user")
			restapi.RespondError(rw, http.StatusBadRequest, apiErr, getLogger(r))
			return
		}
		filter.UserID = uint(userID)
	}
	orders, err := h.repo.ListOrders(r.Context(), filter)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, orders, getLogger(r))
}

func (h *Handler) listUserOrders(rw http.ResponseWriter, r *http.Request) {
	userID, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	if _, err := h.repo.GetUser(r.Context(), userID); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	orders, err := h.repo.ListOrders(r.Context(), shop.OrderFilter{UserID: userID})
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, orders, getLogger(r))
}

func (h *Handler) getOrder(rw http.ResponseWriter, r *http.Request) {
	id, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, order, getLogger(r))
}

func (h *Handler) createOrder(rw http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(rw, r)
	if !ok {
		return
	}
	var req orderRequest
	if err := restapi.DecodeRequestJSON(r, &req, true); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	order := shop.Order{DeliveryAddress: req.DeliveryAddress, Promocode: req.Promocode, UserID: caller.ID}
	if err := h.repo.CreateOrder(r.Context(), &order, req.Products); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, order, getLogger(r))
}

// getOwnOrder loads the order and checks that the caller owns it or is staff.
func (h *Handler) getOwnOrder(rw http.ResponseWriter, r *http.Request) (*shop.Order, bool) {
	id, ok := idParamOrRespond(rw, r)
	if !ok {
		return nil, false
	}
	caller, ok := h.requireCaller(rw, r)
	if !ok {
		return nil, false
	}
	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		respondDomainError(rw, r, err)
		return nil, false
	}
	if order.UserID != caller.ID && !caller.IsStaff {
		respondDomainError(rw, r, errForbidden)
		return nil, false
	}
	return order, true
}

func (h *Handler) updateOrder(rw http.ResponseWriter, r *http.Request) {
	order, ok := h.getOwnOrder(rw, r)
	if !ok {
		return
	}
	var req orderRequest
	if err := restapi.DecodeRequestJSON(r, &req, true); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	order.DeliveryAddress = req.DeliveryAddress
	order.Promocode = req.Promocode
	if err := h.repo.UpdateOrder(r.Context(), order, req.Products); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, order, getLogger(r))
}

func (h *Handler) deleteOrder(rw http.ResponseWriter, r *http.Request) {
	order, ok := h.getOwnOrder(rw, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteOrder(r.Context(), order.ID); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importOrders(rw http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(rw, r)
	if !ok {
		return
	}
	logger := getLogger(r)

	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			restapi.RespondMalformedRequestError(rw, ErrorDomain,
				restapi.NewTooLargeMalformedRequestError(uint64(maxBytesErr.Limit)), logger) //nolint:gosec
			return
		}
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeInvalidParam, "request must be multipart/form-data")
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}
	file, _, err := r.FormFile(CSVFileFormField)
	if err != nil {
		apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeInvalidParam, "multipart field csv_file is required").
			AddContext("param", CSVFileFormField)
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}
	defer func() { _ = file.Close() }()

	imported, err := h.importer.ImportOrdersCSV(r.Context(), file, caller.ID)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	if logger != nil {
		logger.Info("orders imported", log.Int("imported", imported), log.Uint64("owner_id", uint64(caller.ID)))
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, importOrdersResponse{Imported: imported}, logger)
}
