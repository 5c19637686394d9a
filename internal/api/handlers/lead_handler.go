package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

var validLeadStatuses = map[string]bool{
	"new": true, "contacted": true, "qualified": true, "lost": true,
}

type LeadHandler struct {
	leads *repositories.LeadRepository
	audit *audit.Logger
}

func NewLeadHandler(leads *repositories.LeadRepository, auditLog *audit.Logger) *LeadHandler {
	return &LeadHandler{leads: leads, audit: auditLog}
}

func (h *LeadHandler) ListByCampaign(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	leads, err := h.leads.ListByCampaign(param(r, "campaign_id"), limit, (page-1)*limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list leads", nil)
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leads": leads, "page": page})
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.GetByID(param(r, "lead_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load lead", nil)
		return
	}
	if lead == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Lead not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	leadID := param(r, "lead_id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validLeadStatuses[req.Status] {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Status must be one of: new, contacted, qualified, lost", nil)
		return
	}

	lead, err := h.leads.GetByID(leadID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load lead", nil)
		return
	}
	if lead == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Lead not found", nil)
		return
	}

	if err := h.leads.UpdateFields(leadID, map[string]string{"status": req.Status}); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update lead", nil)
		return
	}
	lead.Status = req.Status

	h.audit.Log(r.Context(), "lead.update_status", "lead", leadID, map[string]interface{}{"status": req.Status})
	writeJSON(w, http.StatusOK, lead)
}
