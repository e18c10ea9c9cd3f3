package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/adam-alska/specflow/internal/db"
	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Repo{DB: conn}
}

func putSnapshot(t *testing.T, conn *sql.DB, key, value string) {
	t.Helper()
	_, err := conn.Exec(`INSERT INTO snapshots(key,value,updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value, "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	in := State{
		NextNumber: 5,
		Tickets: []domain.Ticket{{
			ID:       "id-1",
			Number:   4,
			Title:    "round trip",
			Status:   domain.StatusInReview,
			Priority: domain.PriorityHigh,
			UserScenarios: []domain.UserScenario{
				{ID: "US1", Priority: domain.ScenarioP1, Title: "as a user"},
			},
			Clarifications: []domain.Clarification{
				{ID: "CLR-1", Question: "why?", Resolved: false},
			},
			DueDate:     &due,
			ScenarioSeq: 1,
			CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
		}},
	}
	if err := r.SaveState(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := r.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.NextNumber != 5 {
		t.Fatalf("next number = %d", out.NextNumber)
	}
	if len(out.Tickets) != 1 {
		t.Fatalf("tickets = %d", len(out.Tickets))
	}
	got := out.Tickets[0]
	if got.Title != "round trip" || got.Number != 4 {
		t.Fatalf("ticket = %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date = %v", got.DueDate)
	}
	if got.QualityGate != domain.GateClarificationsNeeded {
		t.Fatalf("gate recomputed to %s", got.QualityGate)
	}
}

func TestLoadEmptyDatabase(t *testing.T) {
	r := newTestRepo(t)
	s, err := r.LoadState(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.NextNumber != 1 || len(s.Tickets) != 0 {
		t.Fatalf("empty state = %+v", s)
	}
}

func TestLoadMalformedSnapshotStartsEmpty(t *testing.T) {
	r := newTestRepo(t)
	putSnapshot(t, r.DB, "tickets", "{not json")
	s, err := r.LoadState(context.Background())
	if err != nil {
		t.Fatalf("malformed snapshot must not error: %v", err)
	}
	if len(s.Tickets) != 0 {
		t.Fatalf("tickets = %d", len(s.Tickets))
	}
}

func TestLoadMigratesLegacyRecords(t *testing.T) {
	r := newTestRepo(t)
	// An old snapshot: single assignee string, problem_statement instead of
	// description, millisecond timestamps, missing collections and counters.
	legacy := `[{
		"id": "legacy-1",
		"number": 2,
		"title": "old ticket",
		"problem_statement": "users cannot log in",
		"status": "in_review",
		"assignee": "ada",
		"created_at": 1714564800000,
		"updated_at": "2024-05-02T12:00:00Z",
		"user_scenarios": [{"id": "US3", "title": "login"}],
		"requirements": [{"id": "FR-002", "type": "functional", "description": "x"}, {"id": "NFR-001", "type": "non_functional", "description": "y"}],
		"success_criteria": [{"id": "SC-004", "description": "z"}],
		"spec_completion": 250
	}]`
	putSnapshot(t, r.DB, "tickets", legacy)

	s, err := r.LoadState(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Tickets) != 1 {
		t.Fatalf("tickets = %d", len(s.Tickets))
	}
	got := s.Tickets[0]
	if got.Description != "users cannot log in" {
		t.Fatalf("description = %q", got.Description)
	}
	if got.Priority != domain.PriorityNone {
		t.Fatalf("default priority = %s", got.Priority)
	}
	if len(got.Assignees) != 1 || got.Assignees[0].ID != "ada" {
		t.Fatalf("legacy assignee = %+v", got.Assignees)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("millisecond created_at not parsed")
	}
	if got.Tasks == nil || got.Clarifications == nil {
		t.Fatal("missing collections must default to empty")
	}
	if got.SpecCompletion != 100 {
		t.Fatalf("spec completion = %d, want clamped 100", got.SpecCompletion)
	}
	// Sequence counters recovered from the highest id in each family.
	if got.ScenarioSeq != 3 || got.FuncReqSeq != 2 || got.NonFuncSeq != 1 || got.CriterionSeq != 4 {
		t.Fatalf("recovered seqs = %d/%d/%d/%d", got.ScenarioSeq, got.FuncReqSeq, got.NonFuncSeq, got.CriterionSeq)
	}
	if got.QualityGate != domain.GateReadyForApproval {
		t.Fatalf("gate = %s", got.QualityGate)
	}
	// The number counter never falls behind the highest persisted number.
	if s.NextNumber != 3 {
		t.Fatalf("next number = %d", s.NextNumber)
	}
}

func TestSaveStateOverwrites(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if err := r.SaveState(ctx, State{NextNumber: 2, Tickets: []domain.Ticket{{ID: "a", Number: 1, Title: "one"}}}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := r.SaveState(ctx, State{NextNumber: 3, Tickets: []domain.Ticket{{ID: "b", Number: 2, Title: "two"}}}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	s, err := r.LoadState(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(s.Tickets) != 1 || s.Tickets[0].ID != "b" || s.NextNumber != 3 {
		t.Fatalf("state = %+v", s)
	}
}
