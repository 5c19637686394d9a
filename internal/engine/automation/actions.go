package automation

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"leadflow/internal/platform/models"
)

// Mailer sends a templated message to a single recipient.
// internal/platform/mail provides the SMTP implementation.
type Mailer interface {
	Send(to, templateID string, lead *models.Lead) error
}

// WebhookCaller delivers outbound webhook actions. Calls run behind a
// circuit breaker so a dead destination stops eating the ingest path's
// latency budget after repeated failures.
type WebhookCaller struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewWebhookCaller(timeout time.Duration) *WebhookCaller {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookCaller{
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "automation-webhook",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (c *WebhookCaller) Call(ctx context.Context, action Action, lead *models.Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, action.URL, bytes.NewBuffer(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if action.Secret != "" {
			req.Header.Set("X-Leadflow-Signature", GenerateHMAC(action.Secret, payload))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("destination returned HTTP %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

func GenerateHMAC(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
