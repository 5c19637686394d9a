package repositories

import (
	"database/sql"

	"leadflow/internal/platform/models"
)

type PublicLinkRepository struct {
	db *sql.DB
}

func NewPublicLinkRepository(db *sql.DB) *PublicLinkRepository {
	return &PublicLinkRepository{db: db}
}

func (r *PublicLinkRepository) Create(link *models.PublicLink) error {
	_, err := r.db.Exec(`
		INSERT INTO public_links (id, campaign_id, key, type, password_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, link.ID, link.CampaignID, link.Key, link.Type, link.PasswordHash, link.ExpiresAt, link.CreatedAt)
	return err
}

func (r *PublicLinkRepository) GetByKey(key string) (*models.PublicLink, error) {
	link := &models.PublicLink{}
	var expiresAt sql.NullInt64
	err := r.db.QueryRow(`
		SELECT id, campaign_id, key, type, password_hash, expires_at, created_at
		FROM public_links WHERE key = ?
	`, key).Scan(&link.ID, &link.CampaignID, &link.Key, &link.Type, &link.PasswordHash, &expiresAt, &link.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		link.ExpiresAt = &expiresAt.Int64
	}
	return link, nil
}

func (r *PublicLinkRepository) Delete(key string) error {
	_, err := r.db.Exec(`DELETE FROM public_links WHERE key = ?`, key)
	return err
}
