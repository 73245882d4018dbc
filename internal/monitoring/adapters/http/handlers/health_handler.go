package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/adapters/http/dto"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// HealthHandler exposes the service health registry endpoints
type HealthHandler struct {
	service *service.HealthService
	logger  logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service *service.HealthService, logger logger.Logger) *HealthHandler {
	return &HealthHandler{service: service, logger: logger}
}

// RegisterRoutes registers the health routes on the router
func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.GetAllStatus).Methods(http.MethodGet)
	router.HandleFunc("/health/{serviceId}", h.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/health/{serviceId}", h.UpdateStatus).Methods(http.MethodPut)
}

// UpdateStatus handles PUT /health/{serviceId}
func (h *HealthHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req dto.UpdateHealthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	snapshot := &model.HealthSnapshot{
		ServiceID: vars["serviceId"],
		Status:    model.HealthStatus(req.Status),
		Details:   req.Details,
	}

	updated, err := h.service.UpdateHealthStatus(r.Context(), snapshot)
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, updated)
}

// GetStatus handles GET /health/{serviceId}
func (h *HealthHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	snapshot, err := h.service.GetHealthStatus(r.Context(), vars["serviceId"])
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, snapshot)
}

// GetAllStatus handles GET /health
func (h *HealthHandler) GetAllStatus(w http.ResponseWriter, r *http.Request) {
	snapshots, err := h.service.GetAllHealthStatus(r.Context())
	if err != nil {
		h.logger.Error("Failed to load health statuses", "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, snapshots)
}
