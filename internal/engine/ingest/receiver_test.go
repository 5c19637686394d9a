package ingest

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE webhook_endpoints (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		key TEXT NOT NULL UNIQUE,
		secret TEXT NOT NULL,
		name TEXT NOT NULL,
		field_mapping TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		last_received_at INTEGER,
		total_received INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE webhook_events (
		id TEXT PRIMARY KEY,
		endpoint_id TEXT NOT NULL,
		payload TEXT,
		normalized_data TEXT,
		lead_id TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE leads (
		id TEXT PRIMARY KEY,
		campaign_id TEXT NOT NULL,
		email TEXT,
		full_name TEXT,
		phone TEXT,
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		data TEXT,
		created_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

type recordingEvaluator struct {
	leads    []*models.Lead
	triggers []string
}

func (e *recordingEvaluator) Evaluate(ctx context.Context, lead *models.Lead, triggerType string) {
	e.leads = append(e.leads, lead)
	e.triggers = append(e.triggers, triggerType)
}

type fixture struct {
	db        *sql.DB
	endpoints *repositories.EndpointRepository
	events    *repositories.EventRepository
	leads     *repositories.LeadRepository
	evaluator *recordingEvaluator
	receiver  *Receiver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		endpoints: repositories.NewEndpointRepository(db),
		events:    repositories.NewEventRepository(db),
		leads:     repositories.NewLeadRepository(db),
		evaluator: &recordingEvaluator{},
	}
	f.receiver = NewReceiver(f.endpoints, f.events, f.leads, f.evaluator, NewEndpointCache(time.Minute))
	return f
}

func (f *fixture) seedEndpoint(t *testing.T, ep *models.WebhookEndpoint) {
	t.Helper()
	if ep.ID == "" {
		ep.ID = "whe_1"
	}
	if ep.CampaignID == "" {
		ep.CampaignID = "cmp_1"
	}
	if ep.Name == "" {
		ep.Name = "test endpoint"
	}
	if ep.CreatedAt == 0 {
		ep.CreatedAt = time.Now().Unix()
	}
	if err := f.endpoints.Create(ep); err != nil {
		t.Fatalf("seed endpoint: %v", err)
	}
}

func (f *fixture) eventCount(t *testing.T, status string) int {
	t.Helper()
	n, err := f.events.CountByEndpoint("whe_1", status)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func TestReceive_Success(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{Key: "hook1", Secret: "sec", IsActive: true})

	body := []byte(`{"email":"ada@example.com","name":"Ada Lovelace","custom":{"score":7}}`)
	lead, err := f.receiver.Receive(context.Background(), "hook1", body, "sec")
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	if lead.Email == nil || *lead.Email != "ada@example.com" {
		t.Errorf("lead email = %v, want ada@example.com", lead.Email)
	}
	if lead.FullName == nil || *lead.FullName != "Ada Lovelace" {
		t.Errorf("lead full_name = %v, want Ada Lovelace", lead.FullName)
	}
	if lead.Status != "new" || lead.Source != "webhook" {
		t.Errorf("lead status/source = %s/%s, want new/webhook", lead.Status, lead.Source)
	}
	custom, ok := lead.Data["custom"].(map[string]interface{})
	if !ok || custom["score"] != float64(7) {
		t.Errorf("lead data = %v, want original nested payload", lead.Data)
	}

	stored, err := f.leads.GetByID(lead.ID)
	if err != nil || stored == nil {
		t.Fatalf("lead not persisted: %v", err)
	}

	if got := f.eventCount(t, models.EventSuccess); got != 1 {
		t.Errorf("success events = %d, want 1", got)
	}

	ep, _ := f.endpoints.GetByKey("hook1")
	if ep.TotalReceived != 1 {
		t.Errorf("total_received = %d, want 1", ep.TotalReceived)
	}
	if ep.LastReceivedAt == nil {
		t.Error("last_received_at not set")
	}

	if len(f.evaluator.triggers) != 1 || f.evaluator.triggers[0] != "new_lead" {
		t.Errorf("automation triggers = %v, want [new_lead]", f.evaluator.triggers)
	}
}

func TestReceive_CustomMappingOverridesAutoDetect(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{
		Key:          "hook1",
		Secret:       "sec",
		IsActive:     true,
		FieldMapping: map[string]string{"contact.mail": "email"},
	})

	// "email" at the top level must be ignored once a mapping exists
	body := []byte(`{"email":"decoy@example.com","contact":{"mail":"real@example.com"}}`)
	lead, err := f.receiver.Receive(context.Background(), "hook1", body, "sec")
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if lead.Email == nil || *lead.Email != "real@example.com" {
		t.Errorf("lead email = %v, want real@example.com", lead.Email)
	}
}

func TestReceive_UnknownKey(t *testing.T) {
	f := newFixture(t)
	_, err := f.receiver.Receive(context.Background(), "missing", []byte(`{}`), "sec")
	if !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("error = %v, want ErrEndpointNotFound", err)
	}
}

func TestReceive_DisabledEndpointWritesNoEvent(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{Key: "hook1", Secret: "sec", IsActive: false})

	_, err := f.receiver.Receive(context.Background(), "hook1", []byte(`{}`), "sec")
	if !errors.Is(err, ErrEndpointDisabled) {
		t.Errorf("error = %v, want ErrEndpointDisabled", err)
	}
	if got := f.eventCount(t, models.EventFailed); got != 0 {
		t.Errorf("failed events = %d, want 0 for disabled endpoint", got)
	}
}

func TestReceive_InvalidSecret(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{Key: "hook1", Secret: "sec", IsActive: true})

	_, err := f.receiver.Receive(context.Background(), "hook1", []byte(`{"email":"a@b.c"}`), "wrong")
	if !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("error = %v, want ErrInvalidSecret", err)
	}

	if got := f.eventCount(t, models.EventFailed); got != 1 {
		t.Errorf("failed events = %d, want 1", got)
	}

	events, _ := f.events.ListByEndpoint("whe_1", 10)
	if len(events) != 1 || events[0].ErrorMessage != "invalid secret" {
		t.Fatalf("expected one failed event with 'invalid secret', got %+v", events)
	}

	var leadCount int
	f.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&leadCount)
	if leadCount != 0 {
		t.Errorf("lead count = %d, want 0 after rejected secret", leadCount)
	}

	if len(f.evaluator.triggers) != 0 {
		t.Errorf("automations ran %d times, want 0", len(f.evaluator.triggers))
	}
}

func TestReceive_MalformedBody(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{Key: "hook1", Secret: "sec", IsActive: true})

	_, err := f.receiver.Receive(context.Background(), "hook1", []byte(`not json`), "sec")
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("error = %v, want ErrInvalidPayload", err)
	}
	if got := f.eventCount(t, models.EventFailed); got != 0 {
		t.Errorf("failed events = %d, want 0 for unparseable body", got)
	}
}

func TestReceive_StatsFailureWritesSingleEvent(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{Key: "hook1", Secret: "sec", IsActive: true})

	// prime the cache so the lookup survives the table rename below
	if _, err := f.receiver.Receive(context.Background(), "hook1", []byte(`{"email":"a@b.c"}`), "sec"); err != nil {
		t.Fatalf("first Receive() error = %v", err)
	}

	// break only the counter update; lead and event inserts still work
	if _, err := f.db.Exec(`ALTER TABLE webhook_endpoints RENAME TO webhook_endpoints_gone`); err != nil {
		t.Fatalf("rename table: %v", err)
	}

	_, err := f.receiver.Receive(context.Background(), "hook1", []byte(`{"email":"b@c.d"}`), "sec")
	if err == nil {
		t.Fatal("expected error when endpoint stats cannot be updated")
	}

	// the failing request must contribute exactly one event, the failed one
	if got := f.eventCount(t, models.EventSuccess); got != 1 {
		t.Errorf("success events = %d, want 1 (first request only)", got)
	}
	if got := f.eventCount(t, models.EventFailed); got != 1 {
		t.Errorf("failed events = %d, want 1", got)
	}

	// the lead from the failed attempt rolled back with the rest
	var leadCount int
	f.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&leadCount)
	if leadCount != 1 {
		t.Errorf("lead count = %d, want 1 after rollback", leadCount)
	}
}

func TestReceive_EndpointCacheServesRepeatLookups(t *testing.T) {
	f := newFixture(t)
	f.seedEndpoint(t, &models.WebhookEndpoint{Key: "hook1", Secret: "sec", IsActive: true})

	if _, err := f.receiver.Receive(context.Background(), "hook1", []byte(`{"email":"a@b.c"}`), "sec"); err != nil {
		t.Fatalf("first Receive() error = %v", err)
	}

	// remove the row; the cached endpoint must still satisfy the lookup
	if _, err := f.db.Exec(`DELETE FROM webhook_endpoints WHERE key = 'hook1'`); err != nil {
		t.Fatalf("delete endpoint: %v", err)
	}

	_, err := f.receiver.Receive(context.Background(), "hook1", []byte(`{"email":"b@c.d"}`), "sec")
	if errors.Is(err, ErrEndpointNotFound) {
		t.Error("expected cache hit to serve the second lookup")
	}
}
