package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsewatch/pulsewatch/internal/monitoring/adapters/http/dto"
	"github.com/pulsewatch/pulsewatch/internal/monitoring/app/service"
	"github.com/pulsewatch/pulsewatch/internal/platform/logger"
	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// RuleHandler exposes the alert rule management endpoints
type RuleHandler struct {
	engine *service.RuleEngine
	logger logger.Logger
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(engine *service.RuleEngine, logger logger.Logger) *RuleHandler {
	return &RuleHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the rule routes on the router
func (h *RuleHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rules", h.CreateRule).Methods(http.MethodPost)
	router.HandleFunc("/rules", h.ListRules).Methods(http.MethodGet)
	router.HandleFunc("/rules/{id}", h.GetRule).Methods(http.MethodGet)
	router.HandleFunc("/rules/{id}", h.UpdateRule).Methods(http.MethodPut)
	router.HandleFunc("/rules/{id}", h.DeleteRule).Methods(http.MethodDelete)
	router.HandleFunc("/rules/{id}/enable", h.EnableRule).Methods(http.MethodPost)
	router.HandleFunc("/rules/{id}/disable", h.DisableRule).Methods(http.MethodPost)
}

// CreateRule handles POST /rules
func (h *RuleHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	rule, err := h.engine.CreateRule(r.Context(), req.ToModel())
	if err != nil {
		respondError(w, err)
		return
	}

	response.Created(w, rule)
}

// ListRules handles GET /rules; ?enabled=true narrows to enabled rules
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	var err error
	var rules interface{}

	if r.URL.Query().Get("enabled") == "true" {
		rules, err = h.engine.ListEnabledRules(r.Context())
	} else {
		rules, err = h.engine.ListAllRules(r.Context())
	}
	if err != nil {
		h.logger.Error("Failed to list rules", "error", err)
		respondError(w, err)
		return
	}

	response.OK(w, rules)
}

// GetRule handles GET /rules/{id}
func (h *RuleHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rule, err := h.engine.GetRule(r.Context(), vars["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, rule)
}

// UpdateRule handles PUT /rules/{id}
func (h *RuleHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req dto.SaveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	rule := req.ToModel()
	rule.ID = vars["id"]

	updated, err := h.engine.UpdateRule(r.Context(), rule)
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, updated)
}

// DeleteRule handles DELETE /rules/{id}
func (h *RuleHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.engine.DeleteRule(r.Context(), vars["id"]); err != nil {
		h.logger.Error("Failed to delete rule", "rule_id", vars["id"], "error", err)
		respondError(w, err)
		return
	}

	response.NoContent(w)
}

// EnableRule handles POST /rules/{id}/enable
func (h *RuleHandler) EnableRule(w http.ResponseWriter, r *http.Request) {
	h.toggleRule(w, r, true)
}

// DisableRule handles POST /rules/{id}/disable
func (h *RuleHandler) DisableRule(w http.ResponseWriter, r *http.Request) {
	h.toggleRule(w, r, false)
}

func (h *RuleHandler) toggleRule(w http.ResponseWriter, r *http.Request, enabled bool) {
	vars := mux.Vars(r)

	var rule interface{}
	var found bool
	var err error
	if enabled {
		rule, found, err = h.engine.EnableRule(r.Context(), vars["id"])
	} else {
		rule, found, err = h.engine.DisableRule(r.Context(), vars["id"])
	}
	if err != nil {
		h.logger.Error("Failed to toggle rule", "rule_id", vars["id"], "error", err)
		respondError(w, err)
		return
	}
	if !found {
		response.NotFound(w, "rule not found")
		return
	}

	response.OK(w, rule)
}
