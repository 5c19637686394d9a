package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"leadflow/internal/platform/models"
)

// AdPlatformChecker issues a lightweight authenticated probe against the
// ad platform's API. Only the response class matters, not the body. A
// circuit breaker skips the probe entirely while the platform is known
// dead, reporting Connection Failed without burning the timeout.
type AdPlatformChecker struct {
	client   *http.Client
	probeURL string
	breaker  *gobreaker.CircuitBreaker
}

func NewAdPlatformChecker(client *http.Client, probeURL string) *AdPlatformChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &AdPlatformChecker{
		client:   client,
		probeURL: probeURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "adplatform-probe",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (c *AdPlatformChecker) Check(ctx context.Context, integ *models.Integration, _ *models.IntegrationStatus) Verdict {
	url := configString(integ.Config, "probe_url")
	if url == "" {
		url = c.probeURL
	}
	token := configString(integ.Config, "access_token")
	if token == "" {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Not Connected", Error: "no access token configured"}
	}
	if url == "" {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Incomplete Config", Error: "no probe URL configured"}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		resp.Body.Close()

		// non-200s are valid verdicts, not breaker failures
		return resp.StatusCode, nil
	})
	if err != nil {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Connection Failed", Error: err.Error()}
	}

	switch code := result.(int); {
	case code == http.StatusOK:
		return Verdict{Status: models.StatusConnected, StatusText: "Active"}
	case code == http.StatusUnauthorized:
		return Verdict{Status: models.StatusWarning, StatusText: "Token Expired", Error: "probe returned HTTP 401"}
	default:
		return Verdict{Status: models.StatusWarning, StatusText: "API Error", Error: fmt.Sprintf("probe returned HTTP %d", code)}
	}
}
