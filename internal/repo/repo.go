package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adam-alska/specflow/internal/domain"
)

// Repo persists store state as two opaque key/value snapshots: the
// serialized ticket collection and the next-sequence-number counter.
type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var ErrNotFound = errors.New("not found")

const (
	keyTickets    = "tickets"
	keyNextNumber = "next_number"
)

// State is everything the store persists across restarts.
type State struct {
	Tickets    []domain.Ticket
	NextNumber int
}

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// SaveState writes both snapshot blobs in one transaction.
func (r Repo) SaveState(ctx context.Context, s State) error {
	data, err := json.Marshal(s.Tickets)
	if err != nil {
		return fmt.Errorf("marshal tickets: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := upsert(ctx, tx, keyTickets, string(data), r.now()); err != nil {
		return err
	}
	if err := upsert(ctx, tx, keyNextNumber, fmt.Sprintf("%d", s.NextNumber), r.now()); err != nil {
		return err
	}
	return tx.Commit()
}

func upsert(ctx context.Context, tx *sql.Tx, key, value string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO snapshots(key,value,updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, now.UTC().Format(time.RFC3339))
	return err
}

func (r Repo) getValue(ctx context.Context, key string) (string, error) {
	var v string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return v, err
}

// LoadState reads and migrates the persisted snapshots. Malformed blobs are
// logged and yield an empty state; only database errors propagate.
func (r Repo) LoadState(ctx context.Context) (State, error) {
	s := State{NextNumber: 1}

	raw, err := r.getValue(ctx, keyNextNumber)
	switch {
	case err == nil:
		var n int
		if _, perr := fmt.Sscanf(raw, "%d", &n); perr == nil && n > 0 {
			s.NextNumber = n
		}
	case errors.Is(err, ErrNotFound):
	default:
		return s, err
	}

	raw, err = r.getValue(ctx, keyTickets)
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	var records []ticketRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.Printf("repo: malformed ticket snapshot, starting empty: %v", err)
		return s, nil
	}
	s.Tickets = make([]domain.Ticket, 0, len(records))
	for _, rec := range records {
		s.Tickets = append(s.Tickets, rec.migrate())
	}
	for _, t := range s.Tickets {
		if t.Number >= s.NextNumber {
			s.NextNumber = t.Number + 1
		}
	}
	return s, nil
}
