package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/engine/automation"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

var validTriggerTypes = map[string]bool{
	automation.TriggerNewLead:      true,
	automation.TriggerStatusChange: true,
}

type AutomationHandler struct {
	automations *repositories.AutomationRepository
	audit       *audit.Logger
}

func NewAutomationHandler(automations *repositories.AutomationRepository, auditLog *audit.Logger) *AutomationHandler {
	return &AutomationHandler{automations: automations, audit: auditLog}
}

type automationRequest struct {
	Name          string          `json:"name"`
	TriggerType   string          `json:"trigger_type"`
	TriggerConfig json.RawMessage `json:"trigger_config"`
	Actions       json.RawMessage `json:"actions"`
	IsActive      *bool           `json:"is_active"`
}

// validate rejects malformed rules at write time so the engine only ever
// loads rule blobs it can parse.
func (req *automationRequest) validate(w http.ResponseWriter) bool {
	if req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Automation name is required", nil)
		return false
	}
	if !validTriggerTypes[req.TriggerType] {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "trigger_type must be new_lead or status_change", nil)
		return false
	}
	if _, err := automation.ParseRuleSet(req.TriggerConfig, req.Actions); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid rule definition", map[string]string{"reason": err.Error()})
		return false
	}
	return true
}

func (h *AutomationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req automationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if !req.validate(w) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	auto := &models.Automation{
		ID:            "auto_" + uuid.New().String(),
		CampaignID:    param(r, "campaign_id"),
		Name:          req.Name,
		TriggerType:   req.TriggerType,
		TriggerConfig: req.TriggerConfig,
		Actions:       req.Actions,
		IsActive:      active,
		CreatedAt:     time.Now().Unix(),
	}

	if err := h.automations.Create(auto); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create automation", nil)
		return
	}

	h.audit.Log(r.Context(), "automation.create", "automation", auto.ID, map[string]interface{}{"name": auto.Name})
	writeJSON(w, http.StatusCreated, auto)
}

func (h *AutomationHandler) List(w http.ResponseWriter, r *http.Request) {
	automations, err := h.automations.ListByCampaign(param(r, "campaign_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list automations", nil)
		return
	}
	if automations == nil {
		automations = []*models.Automation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"automations": automations})
}

func (h *AutomationHandler) Get(w http.ResponseWriter, r *http.Request) {
	auto, err := h.loadAutomation(w, r)
	if auto == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, auto)
}

func (h *AutomationHandler) Update(w http.ResponseWriter, r *http.Request) {
	auto, err := h.loadAutomation(w, r)
	if auto == nil || err != nil {
		return
	}

	var req automationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if !req.validate(w) {
		return
	}

	auto.Name = req.Name
	auto.TriggerType = req.TriggerType
	auto.TriggerConfig = req.TriggerConfig
	auto.Actions = req.Actions
	if req.IsActive != nil {
		auto.IsActive = *req.IsActive
	}

	if err := h.automations.Update(auto); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update automation", nil)
		return
	}

	h.audit.Log(r.Context(), "automation.update", "automation", auto.ID, nil)
	writeJSON(w, http.StatusOK, auto)
}

func (h *AutomationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	auto, err := h.loadAutomation(w, r)
	if auto == nil || err != nil {
		return
	}

	if err := h.automations.Delete(auto.ID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete automation", nil)
		return
	}

	h.audit.Log(r.Context(), "automation.delete", "automation", auto.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AutomationHandler) loadAutomation(w http.ResponseWriter, r *http.Request) (*models.Automation, error) {
	auto, err := h.automations.GetByID(param(r, "automation_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load automation", nil)
		return nil, err
	}
	if auto == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Automation not found", nil)
		return nil, nil
	}
	return auto, nil
}
