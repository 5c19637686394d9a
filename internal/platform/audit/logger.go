package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apiContext "leadflow/internal/api/context"
	"leadflow/internal/platform/auth"
)

type ActivityLog struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	CreatedAt    int64                  `json:"created_at"`
}

type Logger struct {
	db *sql.DB
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log records a management action. The insert runs off the request path;
// a lost entry is acceptable, a slow one blocking the caller is not.
func (l *Logger) Log(ctx context.Context, action, resourceType, resourceID string, details map[string]interface{}) {
	var userID string
	if claims, ok := ctx.Value(apiContext.Claims).(*auth.Claims); ok {
		userID = claims.UserID
	}

	detailsJSON, _ := json.Marshal(details)

	entry := &ActivityLog{
		ID:           "act_" + uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().Unix(),
	}

	go func() {
		query := `
			INSERT INTO activity_logs (id, user_id, action, resource_type, resource_id, details, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		l.db.Exec(query, entry.ID, entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, string(detailsJSON), entry.CreatedAt)
	}()
}

func (l *Logger) List(limit int) ([]*ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, user_id, action, resource_type, resource_id, details, created_at
		FROM activity_logs ORDER BY created_at DESC LIMIT ?
	`
	rows, err := l.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*ActivityLog
	for rows.Next() {
		var entry ActivityLog
		var detailsStr sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType, &entry.ResourceID, &detailsStr, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if detailsStr.Valid && detailsStr.String != "" {
			json.Unmarshal([]byte(detailsStr.String), &entry.Details)
		}
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
