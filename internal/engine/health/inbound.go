package health

import (
	"context"
	"time"

	"leadflow/internal/platform/models"
)

// InboundWebhookChecker derives freshness from the status record alone;
// there is nothing to probe for traffic that arrives on its own schedule.
type InboundWebhookChecker struct {
	now func() time.Time
}

func NewInboundWebhookChecker() *InboundWebhookChecker {
	return &InboundWebhookChecker{now: time.Now}
}

func (c *InboundWebhookChecker) Check(_ context.Context, _ *models.Integration, status *models.IntegrationStatus) Verdict {
	if status == nil || status.LastSyncTime == nil {
		return Verdict{Status: models.StatusWarning, StatusText: "No Data Yet"}
	}

	age := c.now().Sub(time.Unix(*status.LastSyncTime, 0))
	switch {
	case age <= 24*time.Hour:
		return Verdict{Status: models.StatusConnected, StatusText: "Active"}
	case age <= 7*24*time.Hour:
		return Verdict{Status: models.StatusWarning, StatusText: "Idle"}
	default:
		return Verdict{Status: models.StatusDisconnected, StatusText: "Inactive"}
	}
}
