package repositories

import (
	"database/sql"

	"leadflow/internal/platform/models"
)

type AutomationRepository struct {
	db *sql.DB
}

func NewAutomationRepository(db *sql.DB) *AutomationRepository {
	return &AutomationRepository{db: db}
}

func (r *AutomationRepository) Create(a *models.Automation) error {
	_, err := r.db.Exec(`
		INSERT INTO automations (id, campaign_id, name, trigger_type, trigger_config, actions, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.CampaignID, a.Name, a.TriggerType, string(a.TriggerConfig), string(a.Actions), a.IsActive, a.CreatedAt)
	return err
}

const automationColumns = `id, campaign_id, name, trigger_type, trigger_config, actions, is_active, created_at`

func (r *AutomationRepository) GetByID(id string) (*models.Automation, error) {
	row := r.db.QueryRow(`SELECT `+automationColumns+` FROM automations WHERE id = ?`, id)
	a, err := scanAutomation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AutomationRepository) ListByCampaign(campaignID string) ([]*models.Automation, error) {
	rows, err := r.db.Query(`SELECT `+automationColumns+` FROM automations WHERE campaign_id = ? ORDER BY created_at DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAutomations(rows)
}

// ListActiveByTrigger drives rule selection in the automation engine. Order
// among matches is not guaranteed.
func (r *AutomationRepository) ListActiveByTrigger(campaignID, triggerType string) ([]*models.Automation, error) {
	rows, err := r.db.Query(`
		SELECT `+automationColumns+` FROM automations
		WHERE campaign_id = ? AND trigger_type = ? AND is_active = 1
	`, campaignID, triggerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAutomations(rows)
}

func (r *AutomationRepository) Update(a *models.Automation) error {
	_, err := r.db.Exec(`
		UPDATE automations
		SET name = ?, trigger_type = ?, trigger_config = ?, actions = ?, is_active = ?
		WHERE id = ?
	`, a.Name, a.TriggerType, string(a.TriggerConfig), string(a.Actions), a.IsActive, a.ID)
	return err
}

func (r *AutomationRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM automations WHERE id = ?`, id)
	return err
}

func scanAutomation(s interface {
	Scan(dest ...interface{}) error
}) (*models.Automation, error) {
	var a models.Automation
	var triggerConfig, actions []byte
	err := s.Scan(&a.ID, &a.CampaignID, &a.Name, &a.TriggerType, &triggerConfig, &actions, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.TriggerConfig = triggerConfig
	a.Actions = actions
	return &a, nil
}

func collectAutomations(rows *sql.Rows) ([]*models.Automation, error) {
	var automations []*models.Automation
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		automations = append(automations, a)
	}
	return automations, rows.Err()
}
