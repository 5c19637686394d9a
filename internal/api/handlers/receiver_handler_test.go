package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"

	apiContext "leadflow/internal/api/context"
	"leadflow/internal/engine/ingest"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

type noopEvaluator struct{}

func (noopEvaluator) Evaluate(context.Context, *models.Lead, string) {}

func newReceiverFixture(t *testing.T) (*ReceiverHandler, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE webhook_endpoints (
		id TEXT PRIMARY KEY, campaign_id TEXT NOT NULL, key TEXT NOT NULL UNIQUE,
		secret TEXT NOT NULL, name TEXT NOT NULL, field_mapping TEXT,
		is_active INTEGER NOT NULL DEFAULT 1, last_received_at INTEGER,
		total_received INTEGER NOT NULL DEFAULT 0, created_at INTEGER NOT NULL
	);
	CREATE TABLE webhook_events (
		id TEXT PRIMARY KEY, endpoint_id TEXT NOT NULL, payload TEXT,
		normalized_data TEXT, lead_id TEXT, status TEXT NOT NULL,
		error_message TEXT, created_at INTEGER NOT NULL
	);
	CREATE TABLE leads (
		id TEXT PRIMARY KEY, campaign_id TEXT NOT NULL, email TEXT, full_name TEXT,
		phone TEXT, status TEXT NOT NULL, source TEXT NOT NULL, data TEXT,
		created_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	endpoints := repositories.NewEndpointRepository(db)
	err = endpoints.Create(&models.WebhookEndpoint{
		ID:         "whe_1",
		CampaignID: "cmp_1",
		Key:        "hook1",
		Secret:     "sec",
		Name:       "form endpoint",
		FieldMapping: map[string]string{
			"lead.email": "email",
		},
		IsActive:  true,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("seed endpoint: %v", err)
	}

	receiver := ingest.NewReceiver(
		endpoints,
		repositories.NewEventRepository(db),
		repositories.NewLeadRepository(db),
		noopEvaluator{},
		ingest.NewEndpointCache(time.Minute),
	)
	return NewReceiverHandler(receiver), db
}

func postHook(h *ReceiverHandler, key, query, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hooks/"+key+query, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ps := httprouter.Params{{Key: "key", Value: key}}
	req = req.WithContext(context.WithValue(req.Context(), apiContext.Params, ps))

	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestReceiverHandler_SuccessWithMapping(t *testing.T) {
	h, db := newReceiverFixture(t)

	rec := postHook(h, "hook1", "?secret=sec", `{"lead":{"email":"a@b.com"}}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		LeadID string `json:"lead_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.LeadID == "" {
		t.Errorf("response = %+v, want success with lead id", resp)
	}

	var email string
	if err := db.QueryRow(`SELECT email FROM leads WHERE id = ?`, resp.LeadID).Scan(&email); err != nil {
		t.Fatalf("lead row: %v", err)
	}
	if email != "a@b.com" {
		t.Errorf("lead email = %q, want a@b.com", email)
	}

	var events int
	db.QueryRow(`SELECT COUNT(*) FROM webhook_events WHERE status = 'success' AND lead_id = ?`, resp.LeadID).Scan(&events)
	if events != 1 {
		t.Errorf("success events referencing lead = %d, want 1", events)
	}
}

func TestReceiverHandler_SecretViaHeader(t *testing.T) {
	h, _ := newReceiverFixture(t)
	rec := postHook(h, "hook1", "", `{"lead":{"email":"a@b.com"}}`, map[string]string{"X-Webhook-Secret": "sec"})
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestReceiverHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		query    string
		body     string
		wantCode int
	}{
		{"unknown endpoint", "nope", "?secret=sec", `{}`, http.StatusNotFound},
		{"wrong secret", "hook1", "?secret=bad", `{}`, http.StatusUnauthorized},
		{"missing secret", "hook1", "", `{}`, http.StatusUnauthorized},
		{"malformed body", "hook1", "?secret=sec", `not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newReceiverFixture(t)
			rec := postHook(h, tt.key, tt.query, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestReceiverHandler_DisabledEndpoint(t *testing.T) {
	h, db := newReceiverFixture(t)
	if _, err := db.Exec(`UPDATE webhook_endpoints SET is_active = 0 WHERE key = 'hook1'`); err != nil {
		t.Fatalf("disable endpoint: %v", err)
	}

	rec := postHook(h, "hook1", "?secret=sec", `{}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
