package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadflow/internal/platform/models"
)

func adIntegration(token string) *models.Integration {
	return &models.Integration{
		ID:     "int_ad",
		Type:   models.IntegrationAdPlatform,
		Config: map[string]interface{}{"access_token": token},
	}
}

func TestAdPlatformChecker(t *testing.T) {
	tests := []struct {
		name           string
		respondStatus  int
		wantStatus     string
		wantStatusText string
	}{
		{"ok is connected", http.StatusOK, models.StatusConnected, "Active"},
		{"401 is token expired", http.StatusUnauthorized, models.StatusWarning, "Token Expired"},
		{"500 is api error", http.StatusInternalServerError, models.StatusWarning, "API Error"},
		{"403 is api error", http.StatusForbidden, models.StatusWarning, "API Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("Authorization = %q, want bearer token", r.Header.Get("Authorization"))
				}
				w.WriteHeader(tt.respondStatus)
			}))
			defer srv.Close()

			checker := NewAdPlatformChecker(srv.Client(), srv.URL)
			v := checker.Check(context.Background(), adIntegration("tok"), nil)
			if v.Status != tt.wantStatus || v.StatusText != tt.wantStatusText {
				t.Errorf("verdict = %s/%q, want %s/%q", v.Status, v.StatusText, tt.wantStatus, tt.wantStatusText)
			}
		})
	}
}

func TestAdPlatformChecker_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	checker := NewAdPlatformChecker(nil, srv.URL)
	v := checker.Check(context.Background(), adIntegration("tok"), nil)
	if v.Status != models.StatusDisconnected || v.StatusText != "Connection Failed" {
		t.Errorf("verdict = %s/%q, want disconnected/Connection Failed", v.Status, v.StatusText)
	}
	if v.Error == "" {
		t.Error("transport failure must carry the error detail")
	}
}

func TestAdPlatformChecker_MissingToken(t *testing.T) {
	checker := NewAdPlatformChecker(nil, "http://ads.example.com/me")
	v := checker.Check(context.Background(), &models.Integration{Type: models.IntegrationAdPlatform}, nil)
	if v.Status != models.StatusDisconnected || v.StatusText != "Not Connected" {
		t.Errorf("verdict = %s/%q, want disconnected/Not Connected", v.Status, v.StatusText)
	}
}

func TestAdPlatformChecker_MissingProbeURL(t *testing.T) {
	checker := NewAdPlatformChecker(nil, "")
	v := checker.Check(context.Background(), adIntegration("tok"), nil)
	if v.Status != models.StatusDisconnected || v.StatusText != "Incomplete Config" {
		t.Errorf("verdict = %s/%q, want disconnected/Incomplete Config", v.Status, v.StatusText)
	}
}

func TestMailRelayChecker_ConfigGates(t *testing.T) {
	checker := NewMailRelayChecker(5 * time.Second)
	checker.handshake = func(context.Context, string, int, string, string, bool, time.Duration) error {
		t.Fatal("handshake must not run without complete config")
		return nil
	}

	v := checker.Check(context.Background(), &models.Integration{Type: models.IntegrationMailRelay}, nil)
	if v.Status != models.StatusDisconnected || v.StatusText != "Not Configured" {
		t.Errorf("empty config verdict = %s/%q, want disconnected/Not Configured", v.Status, v.StatusText)
	}

	partial := &models.Integration{
		Type:   models.IntegrationMailRelay,
		Config: map[string]interface{}{"host": "smtp.example.com", "username": "u"},
	}
	v = checker.Check(context.Background(), partial, nil)
	if v.Status != models.StatusDisconnected || v.StatusText != "Incomplete Config" {
		t.Errorf("partial config verdict = %s/%q, want disconnected/Incomplete Config", v.Status, v.StatusText)
	}
}

func TestMailRelayChecker_HandshakeOutcomes(t *testing.T) {
	integ := &models.Integration{
		Type: models.IntegrationMailRelay,
		Config: map[string]interface{}{
			"host": "smtp.example.com", "username": "u", "password": "p", "port": float64(465),
		},
	}

	checker := NewMailRelayChecker(5 * time.Second)
	checker.handshake = func(_ context.Context, host string, port int, _, _ string, useTLS bool, _ time.Duration) error {
		if host != "smtp.example.com" || port != 465 {
			t.Errorf("handshake target = %s:%d", host, port)
		}
		if !useTLS {
			t.Error("use_tls absent from config must default to STARTTLS")
		}
		return nil
	}
	if v := checker.Check(context.Background(), integ, nil); v.Status != models.StatusConnected || v.StatusText != "Active" {
		t.Errorf("verdict = %s/%q, want connected/Active", v.Status, v.StatusText)
	}

	plaintext := &models.Integration{
		Type: models.IntegrationMailRelay,
		Config: map[string]interface{}{
			"host": "smtp.example.com", "username": "u", "password": "p", "use_tls": false,
		},
	}
	checker.handshake = func(_ context.Context, _ string, port int, _, _ string, useTLS bool, _ time.Duration) error {
		if useTLS {
			t.Error("use_tls=false must skip STARTTLS")
		}
		if port != 587 {
			t.Errorf("port = %d, want 587 default", port)
		}
		return nil
	}
	if v := checker.Check(context.Background(), plaintext, nil); v.Status != models.StatusConnected {
		t.Errorf("verdict = %s, want connected", v.Status)
	}

	checker.handshake = func(context.Context, string, int, string, string, bool, time.Duration) error {
		return errors.New("535 authentication failed")
	}
	v := checker.Check(context.Background(), integ, nil)
	if v.Status != models.StatusDisconnected || v.StatusText != "Connection Failed" {
		t.Errorf("verdict = %s/%q, want disconnected/Connection Failed", v.Status, v.StatusText)
	}
	if v.Error != "535 authentication failed" {
		t.Errorf("error detail = %q", v.Error)
	}
}

func TestInboundWebhookChecker(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	checker := NewInboundWebhookChecker()
	checker.now = func() time.Time { return base }

	syncAt := func(ago time.Duration) *models.IntegrationStatus {
		ts := base.Add(-ago).Unix()
		return &models.IntegrationStatus{LastSyncTime: &ts}
	}

	tests := []struct {
		name           string
		status         *models.IntegrationStatus
		wantStatus     string
		wantStatusText string
	}{
		{"never synced", &models.IntegrationStatus{}, models.StatusWarning, "No Data Yet"},
		{"nil status", nil, models.StatusWarning, "No Data Yet"},
		{"an hour ago", syncAt(time.Hour), models.StatusConnected, "Active"},
		{"three days ago", syncAt(72 * time.Hour), models.StatusWarning, "Idle"},
		{"two weeks ago", syncAt(14 * 24 * time.Hour), models.StatusDisconnected, "Inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := checker.Check(context.Background(), &models.Integration{Type: models.IntegrationWebhook}, tt.status)
			if v.Status != tt.wantStatus || v.StatusText != tt.wantStatusText {
				t.Errorf("verdict = %s/%q, want %s/%q", v.Status, v.StatusText, tt.wantStatus, tt.wantStatusText)
			}
		})
	}
}
