package repositories

import (
	"database/sql"

	"leadflow/internal/platform/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(c *models.Campaign) error {
	_, err := r.db.Exec(`
		INSERT INTO campaigns (id, name, description, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Description, c.Status, c.CreatedAt)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	c := &models.Campaign{}
	err := r.db.QueryRow(`
		SELECT id, name, description, status, created_at FROM campaigns WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(limit, offset int) ([]*models.Campaign, error) {
	rows, err := r.db.Query(`
		SELECT id, name, description, status, created_at
		FROM campaigns ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c := &models.Campaign{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	_, err := r.db.Exec(`
		INSERT INTO users (id, email, password_hash, full_name, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Role, user.IsActive, user.CreatedAt)
	return err
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullInt64
	err := r.db.QueryRow(`
		SELECT id, email, password_hash, full_name, role, is_active, last_login_at, created_at
		FROM users WHERE email = ?
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.Role, &user.IsActive, &lastLogin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Int64
	}
	return user, nil
}

func (r *UserRepository) UpdateLastLogin(userID string, timestamp int64) error {
	_, err := r.db.Exec(`UPDATE users SET last_login_at = ? WHERE id = ?`, timestamp, userID)
	return err
}
