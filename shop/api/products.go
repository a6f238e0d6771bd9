/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"net/http"
	"strconv"

	"github.com/acronis/shop-service/log"
	"github.com/acronis/shop-service/restapi"
	"github.com/acronis/shop-service/shop"
)

const contentTypeRSS = "application/rss+xml; charset=utf-8"

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Discount    uint16  `json:"discount"`
}

func (h *Handler) listProducts(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := shop.ProductFilter{Search: query.Get("search"), Ordering: query.Get("ordering")}
	if raw := query.Get("include_archived"); raw != "" {
		includeArchived, err := strconv.ParseBool(raw)
		if err != nil {
			apiErr := restapi.NewError(ErrorDomain, restapi.ErrCodeInvalidParam, "include_archived must be a boolean").
				AddContext("param", "include_archived")
			restapi.RespondError(rw, http.StatusBadRequest, apiErr, getLogger(r))
			return
		}
		filter.IncludeArchived = includeArchived
	}
	products, err := h.repo.ListProducts(r.Context(), filter)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, products, getLogger(r))
}

func (h *Handler) getProduct(rw http.ResponseWriter, r *http.Request) {
	id, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, product, getLogger(r))
}

func (h *Handler) createProduct(rw http.ResponseWriter, r *http.Request) {
	caller, ok := h.requireCaller(rw, r)
	if !ok {
		return
	}
	var req productRequest
	if err := restapi.DecodeRequestJSON(r, &req, true); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	product := shop.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Discount:    req.Discount,
		CreatedByID: caller.ID,
	}
	if err := h.repo.CreateProduct(r.Context(), &product); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondCodeAndJSON(rw, http.StatusCreated, product, getLogger(r))
}

// updateProduct is allowed to the product creator and staff.
func (h *Handler) updateProduct(rw http.ResponseWriter, r *http.Request) {
	id, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	caller, ok := h.requireCaller(rw, r)
	if !ok {
		return
	}
	var req productRequest
	if err := restapi.DecodeRequestJSON(r, &req, true); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	product, err := h.repo.GetProduct(r.Context(), id)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	if product.CreatedByID != caller.ID && !caller.IsStaff {
		respondDomainError(rw, r, errForbidden)
		return
	}
	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Discount = req.Discount
	if err = h.repo.UpdateProduct(r.Context(), product); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, product, getLogger(r))
}

func (h *Handler) archiveProduct(rw http.ResponseWriter, r *http.Request) {
	h.setProductArchived(rw, r, true)
}

func (h *Handler) unarchiveProduct(rw http.ResponseWriter, r *http.Request) {
	h.setProductArchived(rw, r, false)
}

func (h *Handler) setProductArchived(rw http.ResponseWriter, r *http.Request, archived bool) {
	id, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	if _, ok = h.requireCaller(rw, r); !ok {
		return
	}
	if err := h.repo.SetProductsArchived(r.Context(), []uint{id}, archived); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) latestProductsFeed(rw http.ResponseWriter, r *http.Request) {
	rss, err := h.feed.LatestProducts(r.Context())
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	data, err := rss.Encode()
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.Header().Set("Content-Type", contentTypeRSS)
	rw.WriteHeader(http.StatusOK)
	if _, err = rw.Write(data); err != nil {
		if logger := getLogger(r); logger != nil {
			logger.Warn("failed to write feed", log.Error(err))
		}
	}
}
