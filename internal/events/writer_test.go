package events

import (
	"context"
	"testing"

	"github.com/adam-alska/specflow/internal/db"
	"github.com/adam-alska/specflow/internal/migrate"
)

func newTestWriter(t *testing.T) Writer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Writer{DB: conn}
}

func TestAppendAndTail(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	if err := w.Append(ctx, "ticket.created", "t1", "ticket", "t1", EventPayload{"number": 1}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(ctx, "scenario.added", "t1", "scenario", "US1", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(ctx, "ticket.created", "t2", "ticket", "t2", nil); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := w.Tail(ctx, "", 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("tail returned %d", len(all))
	}
	// Newest first.
	if all[0].TicketID != "t2" || all[2].Type != "ticket.created" {
		t.Fatalf("order = %+v", all)
	}
	if all[2].Payload["number"] != float64(1) {
		t.Fatalf("payload = %+v", all[2].Payload)
	}

	scoped, err := w.Tail(ctx, "t1", 10)
	if err != nil {
		t.Fatalf("scoped tail: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("scoped tail returned %d", len(scoped))
	}
	for _, e := range scoped {
		if e.TicketID != "t1" {
			t.Fatalf("scoped tail leaked %s", e.TicketID)
		}
	}

	limited, err := w.Tail(ctx, "", 1)
	if err != nil {
		t.Fatalf("limited tail: %v", err)
	}
	if len(limited) != 1 || limited[0].Type != "ticket.created" {
		t.Fatalf("limited = %+v", limited)
	}
}
