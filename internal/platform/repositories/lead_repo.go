package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"leadflow/internal/platform/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) BeginTx() (*sql.Tx, error) {
	return r.db.Begin()
}

func (r *LeadRepository) Create(lead *models.Lead) error {
	dataJSON, _ := json.Marshal(lead.Data)

	_, err := r.db.Exec(`
		INSERT INTO leads (id, campaign_id, email, full_name, phone, status, source, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.ID, lead.CampaignID, lead.Email, lead.FullName, lead.Phone, lead.Status, lead.Source, string(dataJSON), lead.CreatedAt)
	return err
}

func (r *LeadRepository) CreateTx(tx *sql.Tx, lead *models.Lead) error {
	dataJSON, _ := json.Marshal(lead.Data)

	_, err := tx.Exec(`
		INSERT INTO leads (id, campaign_id, email, full_name, phone, status, source, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.ID, lead.CampaignID, lead.Email, lead.FullName, lead.Phone, lead.Status, lead.Source, string(dataJSON), lead.CreatedAt)
	return err
}

func (r *LeadRepository) GetByID(id string) (*models.Lead, error) {
	row := r.db.QueryRow(`
		SELECT id, campaign_id, email, full_name, phone, status, source, data, created_at
		FROM leads WHERE id = ?
	`, id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return lead, err
}

func (r *LeadRepository) ListByCampaign(campaignID string, limit, offset int) ([]*models.Lead, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, email, full_name, phone, status, source, data, created_at
		FROM leads WHERE campaign_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// settable columns for automation update_lead actions and the management
// surface; everything else on a lead is immutable after ingestion.
var leadUpdatableFields = map[string]bool{
	"email":     true,
	"full_name": true,
	"phone":     true,
	"status":    true,
	"source":    true,
}

func (r *LeadRepository) UpdateFields(id string, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	query := "UPDATE leads SET "
	args := make([]interface{}, 0, len(updates)+1)
	first := true
	for field, value := range updates {
		if !leadUpdatableFields[field] {
			return fmt.Errorf("field %q is not updatable", field)
		}
		if !first {
			query += ", "
		}
		query += field + " = ?"
		args = append(args, value)
		first = false
	}
	query += " WHERE id = ?"
	args = append(args, id)

	_, err := r.db.Exec(query, args...)
	return err
}

func (r *LeadRepository) CountByCampaign(campaignID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leads WHERE campaign_id = ?`, campaignID).Scan(&count)
	return count, err
}

func (r *LeadRepository) CountByCampaignStatus(campaignID, status string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leads WHERE campaign_id = ? AND status = ?`, campaignID, status).Scan(&count)
	return count, err
}

func (r *LeadRepository) CountByCampaignSince(campaignID string, since int64) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leads WHERE campaign_id = ? AND created_at >= ?`, campaignID, since).Scan(&count)
	return count, err
}

func scanLead(s interface {
	Scan(dest ...interface{}) error
}) (*models.Lead, error) {
	var lead models.Lead
	var email, fullName, phone sql.NullString
	var dataRaw []byte

	err := s.Scan(
		&lead.ID,
		&lead.CampaignID,
		&email,
		&fullName,
		&phone,
		&lead.Status,
		&lead.Source,
		&dataRaw,
		&lead.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		lead.Email = &email.String
	}
	if fullName.Valid {
		lead.FullName = &fullName.String
	}
	if phone.Valid {
		lead.Phone = &phone.String
	}
	if len(dataRaw) > 0 {
		json.Unmarshal(dataRaw, &lead.Data)
	}

	return &lead, nil
}
