package models

import "encoding/json"

// WebhookEndpoint is an inbound capture URL owned by one campaign. The key is
// issued once and never changes; the secret can be rotated by the management
// surface. FieldMapping optionally maps dotted source paths to canonical lead
// fields ("lead.email" -> "email").
type WebhookEndpoint struct {
	ID             string            `json:"id"`
	CampaignID     string            `json:"campaign_id"`
	Key            string            `json:"key"`
	Secret         string            `json:"secret"`
	Name           string            `json:"name"`
	FieldMapping   map[string]string `json:"field_mapping,omitempty"`
	IsActive       bool              `json:"is_active"`
	LastReceivedAt *int64            `json:"last_received_at,omitempty"`
	TotalReceived  int               `json:"total_received"`
	CreatedAt      int64             `json:"created_at"`
}

const (
	EventSuccess   = "success"
	EventFailed    = "failed"
	EventDuplicate = "duplicate"
)

// WebhookEvent is the append-only audit record of one inbound attempt.
// Exactly one event is written per request that reaches the audit stage,
// whether or not a lead results. Never updated after creation.
type WebhookEvent struct {
	ID             string          `json:"id"`
	EndpointID     string          `json:"endpoint_id"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	NormalizedData json.RawMessage `json:"normalized_data,omitempty"`
	LeadID         *string         `json:"lead_id,omitempty"`
	Status         string          `json:"status"` // success, failed, duplicate
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      int64           `json:"created_at"`
}
