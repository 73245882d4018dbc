package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// MaintenanceHandler exposes the manual retention sweep endpoint
type MaintenanceHandler struct {
	service *service.MaintenanceService
	logger  logger.Logger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(service *service.MaintenanceService, logger logger.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{service: service, logger: logger}
}

// RegisterRoutes registers the maintenance routes on the router
func (h *MaintenanceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/maintenance", h.RunMaintenance).Methods(http.MethodPost)
}

// RunMaintenance handles POST /maintenance
func (h *MaintenanceHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PerformMaintenance(r.Context())
	if err != nil {
		h.logger.Error("Manual maintenance failed", "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, result)
}
