package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

type CampaignHandler struct {
	campaigns *repositories.CampaignRepository
	leads     *repositories.LeadRepository
	audit     *audit.Logger
}

func NewCampaignHandler(campaigns *repositories.CampaignRepository, leads *repositories.LeadRepository, auditLog *audit.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, leads: leads, audit: auditLog}
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Campaign name is required", nil)
		return
	}

	campaign := &models.Campaign{
		ID:          "cmp_" + uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Status:      "active",
		CreatedAt:   time.Now().Unix(),
	}

	if err := h.campaigns.Create(campaign); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create campaign", nil)
		return
	}

	h.audit.Log(r.Context(), "campaign.create", "campaign", campaign.ID, map[string]interface{}{"name": campaign.Name})
	writeJSON(w, http.StatusCreated, campaign)
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.campaigns.GetByID(param(r, "campaign_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load campaign", nil)
		return
	}
	if campaign == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Campaign not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	campaigns, err := h.campaigns.List(limit, (page-1)*limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list campaigns", nil)
		return
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaigns": campaigns, "page": page})
}

// Stats aggregates per-campaign lead counts: total, by-status breakdown and
// a trailing 7-day window.
func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	campaignID := param(r, "campaign_id")
	campaign, err := h.campaigns.GetByID(campaignID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load campaign", nil)
		return
	}
	if campaign == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Campaign not found", nil)
		return
	}

	total, err := h.leads.CountByCampaign(campaignID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
		return
	}

	byStatus := make(map[string]int)
	for _, status := range []string{"new", "contacted", "qualified", "lost"} {
		n, err := h.leads.CountByCampaignStatus(campaignID, status)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
			return
		}
		byStatus[status] = n
	}

	weekAgo := time.Now().Add(-7 * 24 * time.Hour).Unix()
	lastWeek, err := h.leads.CountByCampaignSince(campaignID, weekAgo)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id": campaignID,
		"total_leads": total,
		"by_status":   byStatus,
		"last_7_days": lastWeek,
	})
}
