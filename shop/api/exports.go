/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package api

import (
	"net/http"
	"time"

	"github.com/acronis/shop-service/httpserver/middleware"
	"github.com/acronis/shop-service/restapi"
)

const exportTimeSlot = "export_orders"

// addExportTimeSlot puts the export duration into the "time_slots" group of the request log entry.
func addExportTimeSlot(r *http.Request, startTime time.Time) {
	if lp := middleware.GetLoggingParamsFromContext(r.Context()); lp != nil {
		lp.AddTimeSlotDurationInMs(exportTimeSlot, time.Since(startTime))
	}
}

// exportAllOrders is denied only to a known non-staff caller, authentication itself happens upstream.
func (h *Handler) exportAllOrders(rw http.ResponseWriter, r *http.Request) {
	caller, err := h.getCaller(r)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	if caller != nil && !caller.IsStaff {
		respondDomainError(rw, r, errForbidden)
		return
	}
	startTime := time.Now()
	export, err := h.exporter.ExportAll(r.Context())
	addExportTimeSlot(r, startTime)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, export, getLogger(r))
}

func (h *Handler) exportUserOrders(rw http.ResponseWriter, r *http.Request) {
	userID, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	startTime := time.Now()
	export, err := h.exporter.ExportForUser(r.Context(), userID)
	addExportTimeSlot(r, startTime)
	if err != nil {
		respondDomainError(rw, r, err)
		return
	}
	restapi.RespondJSON(rw, export, getLogger(r))
}

func (h *Handler) invalidateUserOrdersExport(rw http.ResponseWriter, r *http.Request) {
	userID, ok := idParamOrRespond(rw, r)
	if !ok {
		return
	}
	caller, ok := h.requireCaller(rw, r)
	if !ok {
		return
	}
	if !caller.IsStaff {
		respondDomainError(rw, r, errForbidden)
		return
	}
	if err := h.exporter.InvalidateUser(r.Context(), userID); err != nil {
		respondDomainError(rw, r, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}
