package repositories

import (
	"database/sql"

	"leadflow/internal/platform/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends one audit record. Events are immutable; there is no
// update path by design of the schema.
func (r *EventRepository) Create(ev *models.WebhookEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO webhook_events (id, endpoint_id, payload, normalized_data, lead_id, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.EndpointID, string(ev.Payload), string(ev.NormalizedData), ev.LeadID, ev.Status, ev.ErrorMessage, ev.CreatedAt)
	return err
}

func (r *EventRepository) CreateTx(tx *sql.Tx, ev *models.WebhookEvent) error {
	_, err := tx.Exec(`
		INSERT INTO webhook_events (id, endpoint_id, payload, normalized_data, lead_id, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.EndpointID, string(ev.Payload), string(ev.NormalizedData), ev.LeadID, ev.Status, ev.ErrorMessage, ev.CreatedAt)
	return err
}

func (r *EventRepository) ListByEndpoint(endpointID string, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(`
		SELECT id, endpoint_id, payload, normalized_data, lead_id, status, error_message, created_at
		FROM webhook_events WHERE endpoint_id = ?
		ORDER BY created_at DESC LIMIT ?
	`, endpointID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		var ev models.WebhookEvent
		var payload, normalized []byte
		var leadID sql.NullString
		if err := rows.Scan(&ev.ID, &ev.EndpointID, &payload, &normalized, &leadID, &ev.Status, &ev.ErrorMessage, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Payload = payload
		ev.NormalizedData = normalized
		if leadID.Valid {
			ev.LeadID = &leadID.String
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *EventRepository) CountByEndpoint(endpointID, status string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM webhook_events WHERE endpoint_id = ? AND status = ?
	`, endpointID, status).Scan(&count)
	return count, err
}
