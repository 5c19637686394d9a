package repositories

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"leadflow/internal/platform/models"
)

type IntegrationRepository struct {
	db *sql.DB
}

func NewIntegrationRepository(db *sql.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

func (r *IntegrationRepository) Create(integ *models.Integration) error {
	configJSON, err := json.Marshal(integ.Config)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO integrations (id, campaign_id, type, name, config, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, integ.ID, integ.CampaignID, integ.Type, integ.Name, string(configJSON), integ.IsActive, integ.CreatedAt)
	return err
}

const integrationColumns = `id, campaign_id, type, name, config, is_active, created_at`

func (r *IntegrationRepository) GetByID(id string) (*models.Integration, error) {
	row := r.db.QueryRow(`SELECT `+integrationColumns+` FROM integrations WHERE id = ?`, id)
	integ, err := scanIntegration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return integ, err
}

func (r *IntegrationRepository) List() ([]*models.Integration, error) {
	return r.list(`SELECT ` + integrationColumns + ` FROM integrations ORDER BY created_at DESC`)
}

func (r *IntegrationRepository) ListActive() ([]*models.Integration, error) {
	return r.list(`SELECT ` + integrationColumns + ` FROM integrations WHERE is_active = 1`)
}

func (r *IntegrationRepository) list(query string) ([]*models.Integration, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		integ, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, integ)
	}
	return integrations, rows.Err()
}

func scanIntegration(s interface {
	Scan(dest ...interface{}) error
}) (*models.Integration, error) {
	var integ models.Integration
	var campaignID sql.NullString
	var configRaw []byte
	err := s.Scan(&integ.ID, &campaignID, &integ.Type, &integ.Name, &configRaw, &integ.IsActive, &integ.CreatedAt)
	if err != nil {
		return nil, err
	}
	if campaignID.Valid {
		integ.CampaignID = &campaignID.String
	}
	if len(configRaw) > 0 {
		json.Unmarshal(configRaw, &integ.Config)
	}
	return &integ, nil
}

type StatusRepository struct {
	db *sql.DB
}

func NewStatusRepository(db *sql.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

func (r *StatusRepository) GetByIntegration(integrationID string) (*models.IntegrationStatus, error) {
	st := &models.IntegrationStatus{}
	var lastSync, nextSync sql.NullInt64
	err := r.db.QueryRow(`
		SELECT id, integration_id, status, status_text, last_sync_time, next_sync_time, error_count, last_error_message, updated_at
		FROM integration_status WHERE integration_id = ?
	`, integrationID).Scan(&st.ID, &st.IntegrationID, &st.Status, &st.StatusText, &lastSync, &nextSync, &st.ErrorCount, &st.LastErrorMessage, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastSync.Valid {
		st.LastSyncTime = &lastSync.Int64
	}
	if nextSync.Valid {
		st.NextSyncTime = &nextSync.Int64
	}
	return st, nil
}

// Ensure returns the status row for an integration, creating a default
// disconnected record when none exists yet.
func (r *StatusRepository) Ensure(integrationID string) (*models.IntegrationStatus, error) {
	st, err := r.GetByIntegration(integrationID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	st = &models.IntegrationStatus{
		ID:            "ist_" + uuid.New().String(),
		IntegrationID: integrationID,
		Status:        models.StatusDisconnected,
		UpdatedAt:     time.Now().Unix(),
	}
	_, err = r.db.Exec(`
		INSERT INTO integration_status (id, integration_id, status, status_text, error_count, updated_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, st.ID, st.IntegrationID, st.Status, st.StatusText, st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *StatusRepository) Update(st *models.IntegrationStatus) error {
	_, err := r.db.Exec(`
		UPDATE integration_status
		SET status = ?, status_text = ?, last_sync_time = ?, next_sync_time = ?, error_count = ?, last_error_message = ?, updated_at = ?
		WHERE id = ?
	`, st.Status, st.StatusText, st.LastSyncTime, st.NextSyncTime, st.ErrorCount, st.LastErrorMessage, st.UpdatedAt, st.ID)
	return err
}
