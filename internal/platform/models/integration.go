package models

import "encoding/json"

// Integration types known to the health monitor. Anything else is reported
// as disconnected/"Unknown Type" rather than rejected at creation time.
const (
	IntegrationAdPlatform = "adplatform"
	IntegrationMailRelay  = "mailrelay"
	IntegrationWebhook    = "webhook"
)

type Integration struct {
	ID         string                 `json:"id"`
	CampaignID *string                `json:"campaign_id,omitempty"` // nil for workspace-global integrations
	Type       string                 `json:"type"`
	Name       string                 `json:"name"`
	Config     map[string]interface{} `json:"config,omitempty"`
	IsActive   bool                   `json:"is_active"`
	CreatedAt  int64                  `json:"created_at"`
}

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusWarning      = "warning"
)

// IntegrationStatus is entirely derived: every field is overwritten by the
// monitor on each poll cycle and never hand-edited.
type IntegrationStatus struct {
	ID               string `json:"id"`
	IntegrationID    string `json:"integration_id"`
	Status           string `json:"status"`
	StatusText       string `json:"status_text,omitempty"`
	LastSyncTime     *int64 `json:"last_sync_time,omitempty"`
	NextSyncTime     *int64 `json:"next_sync_time,omitempty"`
	ErrorCount       int    `json:"error_count"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
	UpdatedAt        int64  `json:"updated_at"`
}

type Automation struct {
	ID            string          `json:"id"`
	CampaignID    string          `json:"campaign_id"`
	Name          string          `json:"name"`
	TriggerType   string          `json:"trigger_type"` // new_lead, status_change
	TriggerConfig json.RawMessage `json:"trigger_config,omitempty"`
	Actions       json.RawMessage `json:"actions"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     int64           `json:"created_at"`
}
