package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/adapters/http/dto"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/domain/model"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// MetricHandler exposes metric ingestion and query endpoints
type MetricHandler struct {
	service *service.MetricService
	logger  logger.Logger
}

// NewMetricHandler creates a new metric handler
func NewMetricHandler(service *service.MetricService, logger logger.Logger) *MetricHandler {
	return &MetricHandler{service: service, logger: logger}
}

// RegisterRoutes registers the metric routes on the router
func (h *MetricHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/metrics", h.RecordMetric).Methods(http.MethodPost)
	router.HandleFunc("/metrics/batch", h.RecordMetricBatch).Methods(http.MethodPost)
	router.HandleFunc("/metrics/latest", h.GetAllLatest).Methods(http.MethodGet)
	router.HandleFunc("/metrics/{serviceId}/latest", h.GetLatestByService).Methods(http.MethodGet)
	router.HandleFunc("/metrics/{serviceId}/{name}/latest", h.GetLatest).Methods(http.MethodGet)
	router.HandleFunc("/metrics/{serviceId}/{name}/history", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/metrics/{serviceId}/{name}/statistics", h.GetStatistics).Methods(http.MethodGet)
}

// RecordMetric handles POST /metrics
func (h *MetricHandler) RecordMetric(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	metric := req.ToModel()
	alerts, err := h.service.RecordMetric(r.Context(), metric)
	if err != nil {
		h.logger.Error("Failed to record metric", "metric", req.Name, "error", err)
		respondError(w, err)
		return
	}

	response.Created(w, dto.RecordMetricResponse{Metric: metric, Alerts: alerts})
}

// RecordMetricBatch handles POST /metrics/batch
func (h *MetricHandler) RecordMetricBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordMetricBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if len(req.Metrics) == 0 {
		response.BadRequest(w, "metrics must not be empty")
		return
	}

	points := make([]*model.Metric, 0, len(req.Metrics))
	for i := range req.Metrics {
		points = append(points, req.Metrics[i].ToModel())
	}

	stored, alerts, err := h.service.RecordMetrics(r.Context(), points)
	if err != nil {
		h.logger.Warn("Batch recorded with failures", "count", len(req.Metrics), "error", err)
	}
	if len(stored) == 0 {
		response.BadRequest(w, err.Error())
		return
	}

	resp := dto.RecordMetricBatchResponse{
		Metrics:  stored,
		Alerts:   alerts,
		Recorded: len(stored),
		Failed:   len(points) - len(stored),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	response.Created(w, resp)
}

// GetLatest handles GET /metrics/{serviceId}/{name}/latest
func (h *MetricHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	metric, err := h.service.GetLatestMetric(r.Context(), vars["name"], vars["serviceId"])
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, metric)
}

// GetLatestByService handles GET /metrics/{serviceId}/latest
func (h *MetricHandler) GetLatestByService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	points, err := h.service.GetLatestMetrics(r.Context(), vars["serviceId"])
	if err != nil {
		h.logger.Error("Failed to load latest metrics", "service_id", vars["serviceId"], "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, points)
}

// GetAllLatest handles GET /metrics/latest
func (h *MetricHandler) GetAllLatest(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.GetAllLatestMetrics(r.Context())
	if err != nil {
		h.logger.Error("Failed to load latest metrics", "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, points)
}

// GetHistory handles GET /metrics/{serviceId}/{name}/history
func (h *MetricHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	start, end, err := parseTimeRange(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.BadRequest(w, "limit must be a non-negative integer")
			return
		}
	}

	points, err := h.service.QueryMetricHistory(r.Context(), vars["name"], vars["serviceId"], start, end, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, points)
}

// GetStatistics handles GET /metrics/{serviceId}/{name}/statistics
func (h *MetricHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	start, end, err := parseTimeRange(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	stats, err := h.service.GetMetricStatistics(r.Context(), vars["name"], vars["serviceId"], start, end)
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, stats)
}

// parseTimeRange reads start/end query parameters as RFC 3339 timestamps,
// defaulting to the last hour.
func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.Add(-time.Hour)

	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &badTimeError{param: "end"}
		}
		end = parsed
		start = end.Add(-time.Hour)
	}
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, &badTimeError{param: "start"}
		}
		start = parsed
	}

	return start, end, nil
}

type badTimeError struct {
	param string
}

func (e *badTimeError) Error() string {
	return e.param + " must be an RFC 3339 timestamp"
}
