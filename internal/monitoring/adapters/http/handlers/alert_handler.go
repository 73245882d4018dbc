package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// AlertHandler exposes the alert lifecycle endpoints
type AlertHandler struct {
	service *service.AlertService
	logger  logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(service *service.AlertService, logger logger.Logger) *AlertHandler {
	return &AlertHandler{service: service, logger: logger}
}

// RegisterRoutes registers the alert routes on the router
func (h *AlertHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/alerts", h.ListAlerts).Methods(http.MethodGet)
	router.HandleFunc("/alerts/active", h.GetActiveAlerts).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{id}", h.GetAlert).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{id}", h.DeleteAlert).Methods(http.MethodDelete)
	router.HandleFunc("/alerts/{id}/acknowledge", h.AcknowledgeAlert).Methods(http.MethodPost)
	router.HandleFunc("/alerts/{id}/resolve", h.ResolveAlert).Methods(http.MethodPost)
}

// ListAlerts handles GET /alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	alerts, err := h.service.ListAlerts(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list alerts", "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, alerts)
}

// GetActiveAlerts handles GET /alerts/active
func (h *AlertHandler) GetActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.GetActiveAlerts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list active alerts", "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, alerts)
}

// GetAlert handles GET /alerts/{id}
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	alert, err := h.service.GetAlert(r.Context(), vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, alert)
}

// AcknowledgeAlert handles POST /alerts/{id}/acknowledge
func (h *AlertHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	alert, err := h.service.AcknowledgeAlert(r.Context(), vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, alert)
}

// ResolveAlert handles POST /alerts/{id}/resolve
func (h *AlertHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	alert, err := h.service.ResolveAlert(r.Context(), vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, alert)
}

// DeleteAlert handles DELETE /alerts/{id}
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	deleted, err := h.service.DeleteAlert(r.Context(), vars["id"])
	if err != nil {
		h.logger.Error("Failed to delete alert", "alert_id", vars["id"], "error", err)
		respondError(w, err)
		return
	}
	if !deleted {
		response.NotFound(w, "alert not found")
		return
	}

	response.NoContent(w)
}
