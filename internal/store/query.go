package store

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/adam-alska/specflow/internal/domain"
)

// dueSoonWindow is how far ahead of the due date a ticket counts as due
// soon.
const dueSoonWindow = 72 * time.Hour

// All returns every ticket in insertion order. The slice is the caller's to
// keep; element structs are copies but share nested collection storage, so
// callers must treat them as read-only.
func (s *Store) All() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

// Get returns the ticket with the given id.
func (s *Store) Get(id string) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Ticket{}, false
	}
	return s.tickets[idx], true
}

// Active returns the currently selected ticket, if any.
func (s *Store) Active() (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return domain.Ticket{}, false
	}
	idx := s.indexOf(s.activeID)
	if idx < 0 {
		return domain.Ticket{}, false
	}
	return s.tickets[idx], true
}

func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Filtered applies the store's current filter config.
func (s *Store) Filtered() []domain.Ticket {
	s.mu.Lock()
	f := s.filter
	s.mu.Unlock()
	return s.Query(f)
}

// Query returns the tickets matching the filter, in insertion order.
// Criteria are ANDed; the search term is ORed across the formatted number,
// title, description and spec text, case-insensitively.
func (s *Store) Query(f domain.TicketFilter) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range s.tickets {
		if matches(t, f) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t domain.Ticket, f domain.TicketFilter) bool {
	if len(f.Status) > 0 && !containsStatus(f.Status, t.Status) {
		return false
	}
	if len(f.Priority) > 0 && !containsPriority(f.Priority, t.Priority) {
		return false
	}
	if f.Assignee != "" && !hasAssignee(t.Assignees, f.Assignee) {
		return false
	}
	if len(f.Labels) > 0 && !anyLabel(t.Labels, f.Labels) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(domain.FormatNumber(t.Number)), q) ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(t.Spec), q)
		if !hit {
			return false
		}
	}
	return true
}

// anyLabel reports whether the ticket carries at least one of the filter
// labels. Label criteria intersect, they do not all have to be present.
func anyLabel(labels []domain.Label, ids []string) bool {
	for _, id := range ids {
		if hasLabel(labels, id) {
			return true
		}
	}
	return false
}

func containsStatus(in []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, s := range in {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(in []domain.Priority, v domain.Priority) bool {
	for _, p := range in {
		if p == v {
			return true
		}
	}
	return false
}

// ByStatus partitions the filtered tickets into kanban columns, each column
// sorted by priority (urgent first), ties keeping insertion order.
func (s *Store) ByStatus() map[domain.TicketStatus][]domain.Ticket {
	filtered := s.Filtered()
	out := make(map[domain.TicketStatus][]domain.Ticket, len(domain.StatusColumns))
	for _, status := range domain.StatusColumns {
		out[status] = []domain.Ticket{}
	}
	for _, t := range filtered {
		out[t.Status] = append(out[t.Status], t)
	}
	for status := range out {
		col := out[status]
		sort.SliceStable(col, func(i, j int) bool {
			return domain.PriorityRank(col[i].Priority) < domain.PriorityRank(col[j].Priority)
		})
	}
	return out
}

// Overdue returns unfinished tickets whose due date has passed. The current
// filter does not apply; deadline views always see the whole collection.
func (s *Store) Overdue() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := []domain.Ticket{}
	for _, t := range s.tickets {
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != domain.StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

// DueSoon returns unfinished tickets due within the next 72 hours. The
// window is closed at both ends: a due date exactly 72 hours out counts.
func (s *Store) DueSoon() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	horizon := now.Add(dueSoonWindow)
	out := []domain.Ticket{}
	for _, t := range s.tickets {
		if t.DueDate == nil || t.Status == domain.StatusCompleted {
			continue
		}
		if !t.DueDate.Before(now) && !t.DueDate.After(horizon) {
			out = append(out, t)
		}
	}
	return out
}

// TaskProgress summarizes task completion for a ticket. Returns ok=false
// for an unknown ticket and a nil progress for a ticket without tasks.
func (s *Store) TaskProgress(id string) (*domain.TaskProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	t := s.tickets[idx]
	if len(t.Tasks) == 0 {
		return nil, true
	}
	completed := 0
	for _, task := range t.Tasks {
		if task.Status == domain.TaskComplete {
			completed++
		}
	}
	return &domain.TaskProgress{
		Completed: completed,
		Total:     len(t.Tasks),
		Percent:   int(math.Round(float64(completed) / float64(len(t.Tasks)) * 100)),
	}, true
}

// NextNumber reports the display number the next created ticket will get.
func (s *Store) NextNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextNumber
}
