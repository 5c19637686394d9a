package handlers

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

type PublicLinkHandler struct {
	links     *repositories.PublicLinkRepository
	campaigns *repositories.CampaignRepository
	leads     *repositories.LeadRepository
	audit     *audit.Logger
}

func NewPublicLinkHandler(
	links *repositories.PublicLinkRepository,
	campaigns *repositories.CampaignRepository,
	leads *repositories.LeadRepository,
	auditLog *audit.Logger,
) *PublicLinkHandler {
	return &PublicLinkHandler{links: links, campaigns: campaigns, leads: leads, audit: auditLog}
}

func (h *PublicLinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type      string `json:"type"`
		Password  string `json:"password"`
		ExpiresAt *int64 `json:"expires_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Type != "dashboard" && req.Type != "csv") {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Link type must be dashboard or csv", nil)
		return
	}

	link := &models.PublicLink{
		ID:         "pl_" + uuid.New().String(),
		CampaignID: param(r, "campaign_id"),
		Key:        randomToken(16),
		Type:       req.Type,
		ExpiresAt:  req.ExpiresAt,
		CreatedAt:  time.Now().Unix(),
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to hash password", nil)
			return
		}
		link.PasswordHash = string(hash)
	}

	if err := h.links.Create(link); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create public link", nil)
		return
	}

	h.audit.Log(r.Context(), "public_link.create", "public_link", link.ID, map[string]interface{}{"type": link.Type})
	writeJSON(w, http.StatusCreated, link)
}

func (h *PublicLinkHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	key := param(r, "link_key")
	link, err := h.links.GetByKey(key)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load public link", nil)
		return
	}
	if link == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Public link not found", nil)
		return
	}

	if err := h.links.Delete(key); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to revoke public link", nil)
		return
	}

	h.audit.Log(r.Context(), "public_link.revoke", "public_link", link.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// View serves the shared campaign snapshot. Unauthenticated by design; the
// opaque key plus the optional password are the whole access model.
func (h *PublicLinkHandler) View(w http.ResponseWriter, r *http.Request) {
	link := h.resolveLink(w, r)
	if link == nil {
		return
	}

	campaign, err := h.campaigns.GetByID(link.CampaignID)
	if err != nil || campaign == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Campaign not found", nil)
		return
	}

	if link.Type == "csv" {
		h.exportCSV(w, link)
		return
	}

	total, err := h.leads.CountByCampaign(link.CampaignID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
		return
	}
	byStatus := make(map[string]int)
	for _, status := range []string{"new", "contacted", "qualified", "lost"} {
		n, err := h.leads.CountByCampaignStatus(link.CampaignID, status)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to compute stats", nil)
			return
		}
		byStatus[status] = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign":    campaign,
		"total_leads": total,
		"by_status":   byStatus,
	})
}

func (h *PublicLinkHandler) exportCSV(w http.ResponseWriter, link *models.PublicLink) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)

	writer := csv.NewWriter(w)
	writer.Write([]string{"id", "email", "full_name", "phone", "status", "source", "created_at"})

	// page through in repository-sized chunks rather than loading the
	// whole campaign into memory
	for offset := 0; ; offset += 200 {
		leads, err := h.leads.ListByCampaign(link.CampaignID, 200, offset)
		if err != nil || len(leads) == 0 {
			break
		}
		for _, lead := range leads {
			writer.Write([]string{
				lead.ID,
				strDeref(lead.Email),
				strDeref(lead.FullName),
				strDeref(lead.Phone),
				lead.Status,
				lead.Source,
				strconv.FormatInt(lead.CreatedAt, 10),
			})
		}
		if len(leads) < 200 {
			break
		}
	}
	writer.Flush()
}

// resolveLink applies the whole public-access gate: existence, expiry, then
// password. Expired links answer 410 so callers can tell "revoked or never
// existed" from "was valid once".
func (h *PublicLinkHandler) resolveLink(w http.ResponseWriter, r *http.Request) *models.PublicLink {
	link, err := h.links.GetByKey(param(r, "link_key"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load public link", nil)
		return nil
	}
	if link == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Public link not found", nil)
		return nil
	}

	if link.ExpiresAt != nil && *link.ExpiresAt < time.Now().Unix() {
		errors.WriteError(w, http.StatusGone, errors.ErrCodeGone, "Public link has expired", nil)
		return nil
	}

	if link.PasswordHash != "" {
		password := r.URL.Query().Get("password")
		if password == "" {
			password = r.Header.Get("X-Link-Password")
		}
		if bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)) != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Password required or incorrect", nil)
			return nil
		}
	}

	return link
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
