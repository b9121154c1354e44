package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/abhisek/supportagent/ent"
	"github.com/abhisek/supportagent/ent/enttest"
	"github.com/abhisek/supportagent/ent/llmrequestevent"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestOpen_FileDatabaseUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")
	if err := EnsureDir(path); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Client().Schema.Create(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestAppendAndGetLLMEvent(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
		RequestID:    "req-1",
		Provider:     "anthropic",
		Model:        "claude-sonnet-4-20250514",
		InputTokens:  120,
		OutputTokens: 80,
		LatencyMs:    900,
		Success:      true,
		RequestBody:  "[user]\nrefund?",
		ResponseBody: `{"category":"billing"}`,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got, err := repo.GetLLMEvent(ctx, events[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected event, got nil")
	}
	if got.RequestID != "req-1" || got.Model != "claude-sonnet-4-20250514" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if !got.Success || got.InputTokens != 120 || got.OutputTokens != 80 {
		t.Fatalf("unexpected usage fields: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}
}

func TestGetLLMEvent_NotFound(t *testing.T) {
	s := openTestStore(t)
	got, err := s.EventRepo().GetLLMEvent(context.Background(), 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestQueryLLMEvents_FiltersAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo := &eventRepo{client: s.Client(), now: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}}

	for _, id := range []string{"a", "b", "a", "c"} {
		if err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
			RequestID: id, Provider: "openai", Model: "gpt-4o", Success: true,
		}); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	if all[0].RequestID != "c" {
		t.Fatalf("expected newest first, got %q", all[0].RequestID)
	}

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("query limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 events, got %d", len(limited))
	}

	byID, err := repo.QueryLLMEvents(ctx, QueryOpts{RequestID: "a"})
	if err != nil {
		t.Fatalf("query by request id: %v", err)
	}
	if len(byID) != 2 {
		t.Fatalf("expected 2 events for request a, got %d", len(byID))
	}

	ranged, err := repo.QueryLLMEvents(ctx, QueryOpts{
		From: base.Add(2 * time.Minute),
		To:   base.Add(3 * time.Minute),
	})
	if err != nil {
		t.Fatalf("query range: %v", err)
	}
	if len(ranged) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(ranged))
	}
}

func TestLLMUsageByModel(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku-4-5", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true},
		{Provider: "anthropic", Model: "claude-haiku-4-5", InputTokens: 300, OutputTokens: 150, LatencyMs: 400, Success: true},
		{Provider: "openai", Model: "gpt-4o", InputTokens: 10, LatencyMs: 100, Success: false, ErrorMessage: "401"},
	}
	for _, e := range events {
		if err := repo.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	usage, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("expected 2 models, got %d", len(usage))
	}

	haiku := usage[0]
	if haiku.Model != "claude-haiku-4-5" || haiku.Calls != 2 {
		t.Fatalf("unexpected first row: %+v", haiku)
	}
	if haiku.InputTokens != 400 || haiku.OutputTokens != 200 || haiku.AvgLatencyMs != 300 {
		t.Fatalf("unexpected haiku totals: %+v", haiku)
	}
	if usage[1].Failures != 1 {
		t.Fatalf("expected 1 failure for gpt-4o, got %d", usage[1].Failures)
	}
}

func TestEventLogIsAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.EventRepo().AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "openai", Model: "gpt-4o", Success: true,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	n, err := s.Client().LLMRequestEvent.Delete().Exec(ctx)
	if err == nil {
		t.Fatalf("expected delete to be rejected, removed %d rows", n)
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.Client().LLMRequestEvent.Query().Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event after rejected delete, got %d", count)
	}
}

func TestSchemaDefaults(t *testing.T) {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := applyPragmas(db); err != nil {
		t.Fatalf("pragmas: %v", err)
	}

	client := enttest.NewClient(t, enttest.WithOptions(ent.Driver(entsql.OpenDB(dialect.SQLite, db))))
	defer client.Close()
	ctx := context.Background()

	e, err := client.LLMRequestEvent.Create().
		SetProvider("anthropic").
		SetModel("claude-haiku-4-5").
		SetSuccess(false).
		Save(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Timestamp.IsZero() {
		t.Fatal("expected default timestamp")
	}
	if e.RequestID != "" || e.RequestBody != "" || e.ResponseBody != "" || e.ErrorMessage != "" {
		t.Fatalf("expected empty string defaults, got %+v", e)
	}
	if e.InputTokens != 0 || e.OutputTokens != 0 || e.LatencyMs != 0 {
		t.Fatalf("expected zero usage defaults, got %+v", e)
	}

	_, err = client.LLMRequestEvent.Create().SetModel("gpt-4o").SetSuccess(true).Save(ctx)
	if !ent.IsValidationError(err) {
		t.Fatalf("expected validation error for missing provider, got %v", err)
	}

	failed, err := client.LLMRequestEvent.Query().
		Where(llmrequestevent.Success(false)).
		Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if failed != 1 {
		t.Fatalf("expected 1 failed event, got %d", failed)
	}
}
