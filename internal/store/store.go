package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/events"
	"github.com/adam-alska/specflow/internal/repo"
)

// Store owns the ticket collection, the display-number sequence, the active
// selection and the filter config. Every mutation funnels through one path
// that refreshes UpdatedAt, re-derives the quality gate, appends an event
// and writes a snapshot, so the derived gate can never go stale.
//
// Mutations addressed to a missing ticket or nested id are silent no-ops.
type Store struct {
	Repo   repo.Repo
	Events *events.Writer
	Now    func() time.Time

	mu         sync.Mutex
	tickets    []domain.Ticket
	nextNumber int
	activeID   string
	filter     domain.TicketFilter
}

// New returns an empty store. Call Load to read the persisted snapshot.
func New(r repo.Repo, ev *events.Writer) *Store {
	return &Store{
		Repo:       r,
		Events:     ev,
		Now:        time.Now,
		nextNumber: 1,
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Load replaces the in-memory state with the persisted snapshot. A
// malformed snapshot leaves the store empty; only database errors propagate.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.Repo.LoadState(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = state.Tickets
	s.nextNumber = state.NextNumber
	return nil
}

// persist writes the snapshot as the final side effect of a mutation.
// Failures are logged, never surfaced: a failed snapshot must not fail the
// mutation that already happened in memory.
func (s *Store) persist(ctx context.Context) {
	if s.Repo.DB == nil {
		return
	}
	if err := s.Repo.SaveState(ctx, repo.State{Tickets: s.tickets, NextNumber: s.nextNumber}); err != nil {
		log.Printf("store: persist snapshot: %v", err)
	}
}

func (s *Store) logEvent(ctx context.Context, evtType, ticketID, entityKind, entityID string, payload events.EventPayload) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Append(ctx, evtType, ticketID, entityKind, entityID, payload); err != nil {
		log.Printf("store: append event %s: %v", evtType, err)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

// mutate applies fn to the ticket with the given id, refreshes UpdatedAt,
// re-derives the gate, persists and logs. Returns false without side
// effects when the id does not exist.
func (s *Store) mutate(ctx context.Context, id, evtType, entityKind, entityID string, fn func(t *domain.Ticket)) (domain.Ticket, bool) {
	return s.mutateIf(ctx, id, evtType, entityKind, entityID, func(t *domain.Ticket) bool {
		fn(t)
		return true
	})
}

// mutateIf is mutate for operations addressing a nested entity: fn reports
// whether the entity was found, and a miss leaves the ticket untouched.
func (s *Store) mutateIf(ctx context.Context, id, evtType, entityKind, entityID string, fn func(t *domain.Ticket) bool) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Ticket{}, false
	}
	t := s.tickets[idx]
	if !fn(&t) {
		return domain.Ticket{}, false
	}
	t.UpdatedAt = s.now()
	t.QualityGate = domain.DeriveGate(t)

	next := make([]domain.Ticket, len(s.tickets))
	copy(next, s.tickets)
	next[idx] = t
	s.tickets = next

	s.persist(ctx)
	s.logEvent(ctx, evtType, id, entityKind, entityID, events.EventPayload{"gate": string(t.QualityGate)})
	return t, true
}

// CreateOptions are caller overrides applied on top of the defaults.
type CreateOptions struct {
	Title            string
	Description      string
	Status           domain.TicketStatus
	Priority         domain.Priority
	Spec             string
	Research         string
	DataModel        string
	APIContract      string
	DueDate          *time.Time
	Estimate         *int
	ResearchRequired bool
	AIGenerated      bool
	AIQuestion       string
	Labels           []domain.Label
	Assignees        []domain.Assignee
	SpecCompletion   int
}

// Create allocates an id and the next display number, fills defaults,
// applies overrides, appends, persists and returns the new ticket.
func (s *Store) Create(ctx context.Context, opts CreateOptions) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := domain.Ticket{
		ID:       uuid.NewString(),
		Number:   s.nextNumber,
		Title:    opts.Title,
		Status:   domain.StatusDraft,
		Priority: domain.PriorityNone,

		UserScenarios:   []domain.UserScenario{},
		Requirements:    []domain.Requirement{},
		Clarifications:  []domain.Clarification{},
		SuccessCriteria: []domain.SuccessCriterion{},
		Tasks:           []domain.Task{},
		Subtasks:        []domain.Subtask{},
		ChatHistory:     []domain.ChatMessage{},
		Labels:          []domain.Label{},
		Comments:        []domain.Comment{},
		Assignees:       []domain.Assignee{},

		Description:      opts.Description,
		Spec:             opts.Spec,
		Research:         opts.Research,
		DataModel:        opts.DataModel,
		APIContract:      opts.APIContract,
		DueDate:          opts.DueDate,
		Estimate:         opts.Estimate,
		ResearchRequired: opts.ResearchRequired,
		AIGenerated:      opts.AIGenerated,
		AIQuestion:       opts.AIQuestion,
		SpecCompletion:   clampPercent(opts.SpecCompletion),

		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextNumber++
	if t.Title == "" {
		t.Title = "Untitled"
	}
	if opts.Status != "" {
		t.Status = opts.Status
	}
	if opts.Priority != "" {
		t.Priority = opts.Priority
	}
	for _, l := range opts.Labels {
		if !hasLabel(t.Labels, l.ID) {
			t.Labels = append(t.Labels, l)
		}
	}
	for _, a := range opts.Assignees {
		if !hasAssignee(t.Assignees, a.ID) {
			t.Assignees = append(t.Assignees, a)
		}
	}
	t.QualityGate = domain.DeriveGate(t)

	s.tickets = append(append([]domain.Ticket{}, s.tickets...), t)
	s.persist(ctx)
	s.logEvent(ctx, "ticket.created", t.ID, "ticket", t.ID, events.EventPayload{
		"number": t.Number,
		"title":  t.Title,
		"gate":   string(t.QualityGate),
	})
	return t
}

// TicketUpdate is a partial update. ID, Number and CreatedAt are not
// representable here, so they cannot change.
type TicketUpdate struct {
	Title            *string
	Description      *string
	Status           *domain.TicketStatus
	Priority         *domain.Priority
	Spec             *string
	Research         *string
	DataModel        *string
	APIContract      *string
	DueDate          *time.Time
	ClearDueDate     bool
	Estimate         *int
	ClearEstimate    bool
	ResearchRequired *bool
	AIGenerated      *bool
	AIQuestion       *string
	SpecCompletion   *int
}

// Update merges the given fields into the ticket. No-op if id is unknown.
func (s *Store) Update(ctx context.Context, id string, upd TicketUpdate) (domain.Ticket, bool) {
	return s.mutate(ctx, id, "ticket.updated", "ticket", id, func(t *domain.Ticket) {
		if upd.Title != nil {
			t.Title = *upd.Title
		}
		if upd.Description != nil {
			t.Description = *upd.Description
		}
		if upd.Status != nil {
			t.Status = *upd.Status
		}
		if upd.Priority != nil {
			t.Priority = *upd.Priority
		}
		if upd.Spec != nil {
			t.Spec = *upd.Spec
		}
		if upd.Research != nil {
			t.Research = *upd.Research
		}
		if upd.DataModel != nil {
			t.DataModel = *upd.DataModel
		}
		if upd.APIContract != nil {
			t.APIContract = *upd.APIContract
		}
		if upd.ClearDueDate {
			t.DueDate = nil
		} else if upd.DueDate != nil {
			t.DueDate = upd.DueDate
		}
		if upd.ClearEstimate {
			t.Estimate = nil
		} else if upd.Estimate != nil {
			t.Estimate = upd.Estimate
		}
		if upd.ResearchRequired != nil {
			t.ResearchRequired = *upd.ResearchRequired
		}
		if upd.AIGenerated != nil {
			t.AIGenerated = *upd.AIGenerated
		}
		if upd.AIQuestion != nil {
			t.AIQuestion = *upd.AIQuestion
		}
		if upd.SpecCompletion != nil {
			t.SpecCompletion = clampPercent(*upd.SpecCompletion)
		}
	})
}

// UpdateStatus moves the ticket to a kanban column.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (domain.Ticket, bool) {
	return s.Update(ctx, id, TicketUpdate{Status: &status})
}

// Delete removes the ticket and everything it owns. Clears the active
// selection if it pointed at the deleted ticket.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	next := make([]domain.Ticket, 0, len(s.tickets)-1)
	next = append(next, s.tickets[:idx]...)
	next = append(next, s.tickets[idx+1:]...)
	s.tickets = next
	if s.activeID == id {
		s.activeID = ""
	}
	s.persist(ctx)
	s.logEvent(ctx, "ticket.deleted", id, "ticket", id, nil)
	return true
}

// SetActive selects a ticket; the empty id clears the selection. Selection
// state is not persisted with the ticket collection.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

func (s *Store) SetFilter(f domain.TicketFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

func (s *Store) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = domain.TicketFilter{}
}

func (s *Store) Filter() domain.TicketFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func hasLabel(labels []domain.Label, id string) bool {
	for _, l := range labels {
		if l.ID == id {
			return true
		}
	}
	return false
}

func hasAssignee(assignees []domain.Assignee, id string) bool {
	for _, a := range assignees {
		if a.ID == id {
			return true
		}
	}
	return false
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func padID(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}
