package repositories

import (
	"database/sql"
	"encoding/json"

	"leadflow/internal/platform/models"
)

type EndpointRepository struct {
	db *sql.DB
}

func NewEndpointRepository(db *sql.DB) *EndpointRepository {
	return &EndpointRepository{db: db}
}

func (r *EndpointRepository) Create(ep *models.WebhookEndpoint) error {
	mappingJSON, err := json.Marshal(ep.FieldMapping)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO webhook_endpoints (id, campaign_id, key, secret, name, field_mapping, is_active, total_received, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ep.ID, ep.CampaignID, ep.Key, ep.Secret, ep.Name, string(mappingJSON), ep.IsActive, ep.TotalReceived, ep.CreatedAt)
	return err
}

const endpointColumns = `id, campaign_id, key, secret, name, field_mapping, is_active, last_received_at, total_received, created_at`

func (r *EndpointRepository) GetByID(id string) (*models.WebhookEndpoint, error) {
	row := r.db.QueryRow(`SELECT `+endpointColumns+` FROM webhook_endpoints WHERE id = ?`, id)
	return scanEndpoint(row)
}

func (r *EndpointRepository) GetByKey(key string) (*models.WebhookEndpoint, error) {
	row := r.db.QueryRow(`SELECT `+endpointColumns+` FROM webhook_endpoints WHERE key = ?`, key)
	return scanEndpoint(row)
}

func (r *EndpointRepository) ListByCampaign(campaignID string) ([]*models.WebhookEndpoint, error) {
	rows, err := r.db.Query(`SELECT `+endpointColumns+` FROM webhook_endpoints WHERE campaign_id = ? ORDER BY created_at DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var endpoints []*models.WebhookEndpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, rows.Err()
}

func (r *EndpointRepository) Update(ep *models.WebhookEndpoint) error {
	mappingJSON, err := json.Marshal(ep.FieldMapping)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE webhook_endpoints SET name = ?, field_mapping = ?, is_active = ? WHERE id = ?
	`, ep.Name, string(mappingJSON), ep.IsActive, ep.ID)
	return err
}

func (r *EndpointRepository) UpdateSecret(id, secret string) error {
	_, err := r.db.Exec(`UPDATE webhook_endpoints SET secret = ? WHERE id = ?`, secret, id)
	return err
}

func (r *EndpointRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM webhook_endpoints WHERE id = ?`, id)
	return err
}

// TouchReceived stamps a successful ingestion. Last-write-wins on the
// timestamp is acceptable; the counter increment is atomic in SQL.
func (r *EndpointRepository) TouchReceived(id string, timestamp int64) error {
	_, err := r.db.Exec(`
		UPDATE webhook_endpoints
		SET last_received_at = ?, total_received = total_received + 1
		WHERE id = ?
	`, timestamp, id)
	return err
}

func (r *EndpointRepository) TouchReceivedTx(tx *sql.Tx, id string, timestamp int64) error {
	_, err := tx.Exec(`
		UPDATE webhook_endpoints
		SET last_received_at = ?, total_received = total_received + 1
		WHERE id = ?
	`, timestamp, id)
	return err
}

func scanEndpoint(s interface {
	Scan(dest ...interface{}) error
}) (*models.WebhookEndpoint, error) {
	var ep models.WebhookEndpoint
	var mappingRaw []byte
	var lastReceived sql.NullInt64

	err := s.Scan(
		&ep.ID,
		&ep.CampaignID,
		&ep.Key,
		&ep.Secret,
		&ep.Name,
		&mappingRaw,
		&ep.IsActive,
		&lastReceived,
		&ep.TotalReceived,
		&ep.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if lastReceived.Valid {
		ep.LastReceivedAt = &lastReceived.Int64
	}
	if len(mappingRaw) > 0 {
		json.Unmarshal(mappingRaw, &ep.FieldMapping)
	}

	return &ep, nil
}
