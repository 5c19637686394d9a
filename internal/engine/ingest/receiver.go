package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"leadflow/internal/platform/models"
	"leadflow/internal/platform/observability"
	"leadflow/internal/platform/repositories"
)

var (
	ErrEndpointNotFound = errors.New("webhook endpoint not found")
	ErrEndpointDisabled = errors.New("webhook endpoint is disabled")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrInvalidPayload   = errors.New("invalid JSON payload")
)

// TriggerEvaluator is the automation engine as seen from ingestion. It never
// returns an error: rule and action failures are isolated inside it.
type TriggerEvaluator interface {
	Evaluate(ctx context.Context, lead *models.Lead, triggerType string)
}

type Receiver struct {
	endpoints   *repositories.EndpointRepository
	events      *repositories.EventRepository
	leads       *repositories.LeadRepository
	automations TriggerEvaluator
	cache       *EndpointCache
}

func NewReceiver(
	endpoints *repositories.EndpointRepository,
	events *repositories.EventRepository,
	leads *repositories.LeadRepository,
	automations TriggerEvaluator,
	cache *EndpointCache,
) *Receiver {
	return &Receiver{
		endpoints:   endpoints,
		events:      events,
		leads:       leads,
		automations: automations,
		cache:       cache,
	}
}

// Receive runs one inbound attempt end to end: endpoint lookup, secret
// check, audit write, normalization, lead creation, endpoint counters and
// automation triggering. Exactly one WebhookEvent is written for every
// attempt that passes the endpoint/secret existence gate, whether or not a
// lead results.
func (r *Receiver) Receive(ctx context.Context, key string, body []byte, providedSecret string) (*models.Lead, error) {
	endpoint, err := r.lookupEndpoint(key)
	if err != nil {
		return nil, err
	}
	if endpoint == nil {
		observability.IngestEvents.WithLabelValues("not_found").Inc()
		return nil, ErrEndpointNotFound
	}
	if !endpoint.IsActive {
		// deliberately off: no audit event
		observability.IngestEvents.WithLabelValues("disabled").Inc()
		return nil, ErrEndpointDisabled
	}

	if providedSecret != endpoint.Secret {
		r.writeEvent(&models.WebhookEvent{
			EndpointID:   endpoint.ID,
			Payload:      rawPayload(body),
			Status:       models.EventFailed,
			ErrorMessage: "invalid secret",
		})
		observability.IngestEvents.WithLabelValues("invalid_secret").Inc()
		return nil, ErrInvalidSecret
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		// the payload must parse before it can be logged
		observability.IngestEvents.WithLabelValues("bad_payload").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	normalized := Normalize(payload, endpoint.FieldMapping)
	normalizedJSON, _ := json.Marshal(normalized)

	lead := &models.Lead{
		ID:         "lead_" + uuid.New().String(),
		CampaignID: endpoint.CampaignID,
		Email:      normalized.Email,
		FullName:   normalized.FullName,
		Phone:      normalized.Phone,
		Status:     "new",
		Source:     "webhook",
		Data:       normalized.Data,
		CreatedAt:  time.Now().Unix(),
	}

	if err := r.ingest(endpoint, lead, body, normalizedJSON); err != nil {
		r.writeEvent(&models.WebhookEvent{
			EndpointID:     endpoint.ID,
			Payload:        rawPayload(body),
			NormalizedData: normalizedJSON,
			Status:         models.EventFailed,
			ErrorMessage:   err.Error(),
		})
		observability.IngestEvents.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}

	observability.IngestEvents.WithLabelValues("success").Inc()
	observability.LeadsCreated.Inc()

	// Synchronous by contract: a slow action delays the caller's response,
	// but failures in here never propagate and never roll the lead back.
	r.automations.Evaluate(ctx, lead, "new_lead")

	return lead, nil
}

// ingest commits the lead, its success event and the endpoint counters in
// one transaction. If any part fails, nothing persists and the caller
// records the single failed event for the attempt.
func (r *Receiver) ingest(endpoint *models.WebhookEndpoint, lead *models.Lead, body, normalizedJSON []byte) error {
	tx, err := r.leads.BeginTx()
	if err != nil {
		return fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback()

	if err := r.leads.CreateTx(tx, lead); err != nil {
		return fmt.Errorf("create lead: %w", err)
	}

	event := &models.WebhookEvent{
		ID:             "evt_" + uuid.New().String(),
		EndpointID:     endpoint.ID,
		Payload:        rawPayload(body),
		NormalizedData: normalizedJSON,
		LeadID:         &lead.ID,
		Status:         models.EventSuccess,
		CreatedAt:      time.Now().Unix(),
	}
	if err := r.events.CreateTx(tx, event); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	if err := r.endpoints.TouchReceivedTx(tx, endpoint.ID, time.Now().Unix()); err != nil {
		return fmt.Errorf("update endpoint stats: %w", err)
	}

	return tx.Commit()
}

func (r *Receiver) lookupEndpoint(key string) (*models.WebhookEndpoint, error) {
	if r.cache != nil {
		if ep, ok := r.cache.Get(key); ok {
			return ep, nil
		}
	}

	ep, err := r.endpoints.GetByKey(key)
	if err != nil {
		return nil, fmt.Errorf("endpoint lookup: %w", err)
	}
	if ep != nil && r.cache != nil {
		r.cache.Set(key, ep)
	}
	return ep, nil
}

func (r *Receiver) writeEvent(ev *models.WebhookEvent) {
	ev.ID = "evt_" + uuid.New().String()
	ev.CreatedAt = time.Now().Unix()
	if err := r.events.Create(ev); err != nil {
		log.Error().Err(err).Str("endpoint_id", ev.EndpointID).Msg("Failed to write webhook event")
	}
}

// rawPayload keeps the stored payload valid JSON even when the sender's
// body was not (possible on the invalid-secret audit path).
func rawPayload(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return json.RawMessage(quoted)
}
