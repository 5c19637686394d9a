package health

import (
	"context"

	"leadflow/internal/platform/models"
)

// Verdict is what one checker produces for one integration on one cycle.
type Verdict struct {
	Status     string
	StatusText string
	Error      string
}

func (v Verdict) Connected() bool { return v.Status == models.StatusConnected }

// Checker probes a single integration type. Implementations must not
// panic; the monitor still guards against it and records a System Error
// verdict if one slips through.
type Checker interface {
	Check(ctx context.Context, integ *models.Integration, status *models.IntegrationStatus) Verdict
}

func configString(config map[string]interface{}, key string) string {
	if config == nil {
		return ""
	}
	s, _ := config[key].(string)
	return s
}
