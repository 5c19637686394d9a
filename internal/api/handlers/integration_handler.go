package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

type IntegrationHandler struct {
	integrations *repositories.IntegrationRepository
	statuses     *repositories.StatusRepository
	audit        *audit.Logger
}

func NewIntegrationHandler(
	integrations *repositories.IntegrationRepository,
	statuses *repositories.StatusRepository,
	auditLog *audit.Logger,
) *IntegrationHandler {
	return &IntegrationHandler{integrations: integrations, statuses: statuses, audit: auditLog}
}

func (h *IntegrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CampaignID *string                `json:"campaign_id"`
		Type       string                 `json:"type"`
		Name       string                 `json:"name"`
		Config     map[string]interface{} `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" || req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Integration type and name are required", nil)
		return
	}

	integ := &models.Integration{
		ID:         "int_" + uuid.New().String(),
		CampaignID: req.CampaignID,
		Type:       req.Type,
		Name:       req.Name,
		Config:     req.Config,
		IsActive:   true,
		CreatedAt:  time.Now().Unix(),
	}

	if err := h.integrations.Create(integ); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create integration", nil)
		return
	}

	// bootstrap the status row so the first monitor cycle has somewhere to
	// write before Ensure runs
	if _, err := h.statuses.Ensure(integ.ID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to initialize integration status", nil)
		return
	}

	h.audit.Log(r.Context(), "integration.create", "integration", integ.ID, map[string]interface{}{"type": integ.Type})
	writeJSON(w, http.StatusCreated, integ)
}

func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	integrations, err := h.integrations.List()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list integrations", nil)
		return
	}
	if integrations == nil {
		integrations = []*models.Integration{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"integrations": integrations})
}

func (h *IntegrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	integ, err := h.loadIntegration(w, r)
	if integ == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, integ)
}

func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	integ, err := h.loadIntegration(w, r)
	if integ == nil || err != nil {
		return
	}

	status, err := h.statuses.Ensure(integ.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load integration status", nil)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *IntegrationHandler) loadIntegration(w http.ResponseWriter, r *http.Request) (*models.Integration, error) {
	integ, err := h.integrations.GetByID(param(r, "integration_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load integration", nil)
		return nil, err
	}
	if integ == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Integration not found", nil)
		return nil, nil
	}
	return integ, nil
}
