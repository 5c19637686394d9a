package models

type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // active, paused, archived
	CreatedAt   int64  `json:"created_at"`
}

// Lead is the canonical record every inbound payload is normalized into.
// Email, FullName and Phone are all optional; a payload may supply none of
// them and the raw body is still preserved in Data.
type Lead struct {
	ID         string                 `json:"id"`
	CampaignID string                 `json:"campaign_id"`
	Email      *string                `json:"email,omitempty"`
	FullName   *string                `json:"full_name,omitempty"`
	Phone      *string                `json:"phone,omitempty"`
	Status     string                 `json:"status"` // new, contacted, qualified, lost
	Source     string                 `json:"source"` // webhook, manual, import
	Data       map[string]interface{} `json:"data,omitempty"`
	CreatedAt  int64                  `json:"created_at"`
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	IsActive     bool   `json:"is_active"`
	LastLoginAt  *int64 `json:"last_login_at,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

type PublicLink struct {
	ID           string `json:"id"`
	CampaignID   string `json:"campaign_id"`
	Key          string `json:"key"` // opaque token used in the share URL
	Type         string `json:"type"` // dashboard, csv
	PasswordHash string `json:"-"`
	ExpiresAt    *int64 `json:"expires_at,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}
