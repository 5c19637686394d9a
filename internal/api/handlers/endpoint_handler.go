package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/engine/ingest"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

type EndpointHandler struct {
	endpoints *repositories.EndpointRepository
	events    *repositories.EventRepository
	cache     *ingest.EndpointCache
	audit     *audit.Logger
}

func NewEndpointHandler(
	endpoints *repositories.EndpointRepository,
	events *repositories.EventRepository,
	cache *ingest.EndpointCache,
	auditLog *audit.Logger,
) *EndpointHandler {
	return &EndpointHandler{endpoints: endpoints, events: events, cache: cache, audit: auditLog}
}

func randomToken(bytes int) string {
	buf := make([]byte, bytes)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string            `json:"name"`
		FieldMapping map[string]string `json:"field_mapping"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Endpoint name is required", nil)
		return
	}

	ep := &models.WebhookEndpoint{
		ID:           "whe_" + uuid.New().String(),
		CampaignID:   param(r, "campaign_id"),
		Key:          randomToken(12),
		Secret:       randomToken(24),
		Name:         req.Name,
		FieldMapping: req.FieldMapping,
		IsActive:     true,
		CreatedAt:    time.Now().Unix(),
	}

	if err := h.endpoints.Create(ep); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create endpoint", nil)
		return
	}

	h.audit.Log(r.Context(), "endpoint.create", "webhook_endpoint", ep.ID, map[string]interface{}{"name": ep.Name})
	writeJSON(w, http.StatusCreated, ep)
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.endpoints.ListByCampaign(param(r, "campaign_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list endpoints", nil)
		return
	}
	if endpoints == nil {
		endpoints = []*models.WebhookEndpoint{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"endpoints": endpoints})
}

func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	ep, err := h.loadEndpoint(w, r)
	if ep == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, ep)
}

func (h *EndpointHandler) Update(w http.ResponseWriter, r *http.Request) {
	ep, err := h.loadEndpoint(w, r)
	if ep == nil || err != nil {
		return
	}

	var req struct {
		Name         *string            `json:"name"`
		FieldMapping *map[string]string `json:"field_mapping"`
		IsActive     *bool              `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.Name != nil {
		ep.Name = *req.Name
	}
	if req.FieldMapping != nil {
		ep.FieldMapping = *req.FieldMapping
	}
	if req.IsActive != nil {
		ep.IsActive = *req.IsActive
	}

	if err := h.endpoints.Update(ep); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to update endpoint", nil)
		return
	}
	h.cache.Invalidate(ep.Key)

	h.audit.Log(r.Context(), "endpoint.update", "webhook_endpoint", ep.ID, nil)
	writeJSON(w, http.StatusOK, ep)
}

func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ep, err := h.loadEndpoint(w, r)
	if ep == nil || err != nil {
		return
	}

	if err := h.endpoints.Delete(ep.ID); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to delete endpoint", nil)
		return
	}
	h.cache.Invalidate(ep.Key)

	h.audit.Log(r.Context(), "endpoint.delete", "webhook_endpoint", ep.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateSecret rotates the bearer credential. The old secret stops
// working as soon as the cache entry is invalidated.
func (h *EndpointHandler) RegenerateSecret(w http.ResponseWriter, r *http.Request) {
	ep, err := h.loadEndpoint(w, r)
	if ep == nil || err != nil {
		return
	}

	secret := randomToken(24)
	if err := h.endpoints.UpdateSecret(ep.ID, secret); err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to rotate secret", nil)
		return
	}
	h.cache.Invalidate(ep.Key)

	h.audit.Log(r.Context(), "endpoint.regenerate_secret", "webhook_endpoint", ep.ID, nil)
	writeJSON(w, http.StatusOK, map[string]string{"id": ep.ID, "secret": secret})
}

func (h *EndpointHandler) Events(w http.ResponseWriter, r *http.Request) {
	ep, err := h.loadEndpoint(w, r)
	if ep == nil || err != nil {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.events.ListByEndpoint(ep.ID, limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list events", nil)
		return
	}
	if events == nil {
		events = []*models.WebhookEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *EndpointHandler) loadEndpoint(w http.ResponseWriter, r *http.Request) (*models.WebhookEndpoint, error) {
	ep, err := h.endpoints.GetByID(param(r, "endpoint_id"))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load endpoint", nil)
		return nil, err
	}
	if ep == nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook endpoint not found", nil)
		return nil, nil
	}
	return ep, nil
}
