package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adam-alska/specflow/internal/domain"
)

// Nested entity operations. All of them address entities through the owning
// ticket; an unknown ticket id or entity id is a silent no-op, mirroring the
// top-level mutation contract.

// AddUserScenario appends a scenario under a fresh USn id. The caller's ID
// field is ignored.
func (s *Store) AddUserScenario(ctx context.Context, ticketID string, sc domain.UserScenario) (domain.UserScenario, bool) {
	var out domain.UserScenario
	_, ok := s.mutate(ctx, ticketID, "scenario.added", "user_scenario", "", func(t *domain.Ticket) {
		t.ScenarioSeq++
		sc.ID = fmt.Sprintf("US%d", t.ScenarioSeq)
		if sc.Priority == "" {
			sc.Priority = domain.ScenarioP2
		}
		t.UserScenarios = append(t.UserScenarios, sc)
		out = sc
	})
	return out, ok
}

// ScenarioUpdate is a partial user-scenario update; the id never changes.
type ScenarioUpdate struct {
	Priority *domain.ScenarioPriority
	Title    *string
	Given    *string
	When     *string
	Then     *string
}

func (s *Store) UpdateUserScenario(ctx context.Context, ticketID, scenarioID string, upd ScenarioUpdate) bool {
	_, ok := s.mutateIf(ctx, ticketID, "scenario.updated", "user_scenario", scenarioID, func(t *domain.Ticket) bool {
		for i := range t.UserScenarios {
			if t.UserScenarios[i].ID != scenarioID {
				continue
			}
			sc := &t.UserScenarios[i]
			if upd.Priority != nil {
				sc.Priority = *upd.Priority
			}
			if upd.Title != nil {
				sc.Title = *upd.Title
			}
			if upd.Given != nil {
				sc.Given = *upd.Given
			}
			if upd.When != nil {
				sc.When = *upd.When
			}
			if upd.Then != nil {
				sc.Then = *upd.Then
			}
			return true
		}
		return false
	})
	return ok
}

// DeleteUserScenario removes a scenario. The sequence counter is not
// decremented, so the freed id is never reused.
func (s *Store) DeleteUserScenario(ctx context.Context, ticketID, scenarioID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "scenario.deleted", "user_scenario", scenarioID, func(t *domain.Ticket) bool {
		var found bool
		t.UserScenarios, found = removeByID(t.UserScenarios, scenarioID, func(sc domain.UserScenario) string { return sc.ID })
		return found
	})
	return ok
}

// AddRequirement appends a requirement under the next FR-nnn or NFR-nnn id
// depending on its type. Verified always starts false.
func (s *Store) AddRequirement(ctx context.Context, ticketID string, req domain.Requirement) (domain.Requirement, bool) {
	var out domain.Requirement
	_, ok := s.mutate(ctx, ticketID, "requirement.added", "requirement", "", func(t *domain.Ticket) {
		if req.Type != domain.RequirementNonFunctional {
			req.Type = domain.RequirementFunctional
		}
		if req.Type == domain.RequirementNonFunctional {
			t.NonFuncSeq++
			req.ID = padID("NFR-", t.NonFuncSeq)
		} else {
			t.FuncReqSeq++
			req.ID = padID("FR-", t.FuncReqSeq)
		}
		req.Verified = false
		t.Requirements = append(t.Requirements, req)
		out = req
	})
	return out, ok
}

// RequirementUpdate is a partial requirement update. The type is fixed at
// creation because the id prefix encodes it.
type RequirementUpdate struct {
	Description         *string
	ClarificationNeeded *string
	Verified            *bool
}

func (s *Store) UpdateRequirement(ctx context.Context, ticketID, reqID string, upd RequirementUpdate) bool {
	_, ok := s.mutateIf(ctx, ticketID, "requirement.updated", "requirement", reqID, func(t *domain.Ticket) bool {
		for i := range t.Requirements {
			if t.Requirements[i].ID != reqID {
				continue
			}
			r := &t.Requirements[i]
			if upd.Description != nil {
				r.Description = *upd.Description
			}
			if upd.ClarificationNeeded != nil {
				r.ClarificationNeeded = *upd.ClarificationNeeded
			}
			if upd.Verified != nil {
				r.Verified = *upd.Verified
			}
			return true
		}
		return false
	})
	return ok
}

func (s *Store) DeleteRequirement(ctx context.Context, ticketID, reqID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "requirement.deleted", "requirement", reqID, func(t *domain.Ticket) bool {
		var found bool
		t.Requirements, found = removeByID(t.Requirements, reqID, func(r domain.Requirement) string { return r.ID })
		return found
	})
	return ok
}

// AddClarification opens a question under a time-based CLR id.
func (s *Store) AddClarification(ctx context.Context, ticketID, question, background string) (domain.Clarification, bool) {
	var out domain.Clarification
	_, ok := s.mutate(ctx, ticketID, "clarification.added", "clarification", "", func(t *domain.Ticket) {
		c := domain.Clarification{
			ID:       fmt.Sprintf("CLR-%d", s.now().UnixMilli()),
			Question: question,
			Context:  background,
		}
		t.Clarifications = append(t.Clarifications, c)
		out = c
	})
	return out, ok
}

// ResolveClarification records the answer and marks the question resolved.
// ResolvedAt is set on the first resolution only; re-resolving updates the
// answer but keeps the original timestamp.
func (s *Store) ResolveClarification(ctx context.Context, ticketID, clrID, answer string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "clarification.resolved", "clarification", clrID, func(t *domain.Ticket) bool {
		for i := range t.Clarifications {
			if t.Clarifications[i].ID != clrID {
				continue
			}
			c := &t.Clarifications[i]
			c.Resolved = true
			c.Answer = answer
			if c.ResolvedAt == nil {
				now := s.now()
				c.ResolvedAt = &now
			}
			return true
		}
		return false
	})
	return ok
}

func (s *Store) DeleteClarification(ctx context.Context, ticketID, clrID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "clarification.deleted", "clarification", clrID, func(t *domain.Ticket) bool {
		var found bool
		t.Clarifications, found = removeByID(t.Clarifications, clrID, func(c domain.Clarification) string { return c.ID })
		return found
	})
	return ok
}

// AddSuccessCriterion appends a criterion under the next SC-nnn id, unmet.
func (s *Store) AddSuccessCriterion(ctx context.Context, ticketID, description, metric string) (domain.SuccessCriterion, bool) {
	var out domain.SuccessCriterion
	_, ok := s.mutate(ctx, ticketID, "criterion.added", "success_criterion", "", func(t *domain.Ticket) {
		t.CriterionSeq++
		c := domain.SuccessCriterion{
			ID:          padID("SC-", t.CriterionSeq),
			Description: description,
			Metric:      metric,
		}
		t.SuccessCriteria = append(t.SuccessCriteria, c)
		out = c
	})
	return out, ok
}

// ToggleSuccessCriterion flips the met flag. Two toggles restore the
// original state.
func (s *Store) ToggleSuccessCriterion(ctx context.Context, ticketID, criterionID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "criterion.toggled", "success_criterion", criterionID, func(t *domain.Ticket) bool {
		for i := range t.SuccessCriteria {
			if t.SuccessCriteria[i].ID == criterionID {
				t.SuccessCriteria[i].Met = !t.SuccessCriteria[i].Met
				return true
			}
		}
		return false
	})
	return ok
}

func (s *Store) DeleteSuccessCriterion(ctx context.Context, ticketID, criterionID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "criterion.deleted", "success_criterion", criterionID, func(t *domain.Ticket) bool {
		var found bool
		t.SuccessCriteria, found = removeByID(t.SuccessCriteria, criterionID, func(c domain.SuccessCriterion) string { return c.ID })
		return found
	})
	return ok
}

func (s *Store) AddSubtask(ctx context.Context, ticketID, title string) (domain.Subtask, bool) {
	var out domain.Subtask
	_, ok := s.mutate(ctx, ticketID, "subtask.added", "subtask", "", func(t *domain.Ticket) {
		st := domain.Subtask{ID: uuid.NewString(), Title: title}
		t.Subtasks = append(t.Subtasks, st)
		out = st
	})
	return out, ok
}

func (s *Store) ToggleSubtask(ctx context.Context, ticketID, subtaskID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "subtask.toggled", "subtask", subtaskID, func(t *domain.Ticket) bool {
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].Completed = !t.Subtasks[i].Completed
				return true
			}
		}
		return false
	})
	return ok
}

func (s *Store) DeleteSubtask(ctx context.Context, ticketID, subtaskID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "subtask.deleted", "subtask", subtaskID, func(t *domain.Ticket) bool {
		var found bool
		t.Subtasks, found = removeByID(t.Subtasks, subtaskID, func(st domain.Subtask) string { return st.ID })
		return found
	})
	return ok
}

// AddLabel attaches a label. Attaching an already-present label id is a
// no-op: the ticket is left untouched, updatedAt included.
func (s *Store) AddLabel(ctx context.Context, ticketID string, label domain.Label) bool {
	_, ok := s.mutateIf(ctx, ticketID, "label.added", "label", label.ID, func(t *domain.Ticket) bool {
		if hasLabel(t.Labels, label.ID) {
			return false
		}
		t.Labels = append(t.Labels, label)
		return true
	})
	return ok
}

func (s *Store) RemoveLabel(ctx context.Context, ticketID, labelID string) bool {
	_, ok := s.mutate(ctx, ticketID, "label.removed", "label", labelID, func(t *domain.Ticket) {
		t.Labels, _ = removeByID(t.Labels, labelID, func(l domain.Label) string { return l.ID })
	})
	return ok
}

func (s *Store) AddComment(ctx context.Context, ticketID, author, content string) (domain.Comment, bool) {
	var out domain.Comment
	_, ok := s.mutate(ctx, ticketID, "comment.added", "comment", "", func(t *domain.Ticket) {
		c := domain.Comment{
			ID:        uuid.NewString(),
			Author:    author,
			Content:   content,
			Timestamp: s.now(),
		}
		t.Comments = append(t.Comments, c)
		out = c
	})
	return out, ok
}

// AddAssignee attaches a member. Assigning an already-assigned id is a
// no-op, same as AddLabel.
func (s *Store) AddAssignee(ctx context.Context, ticketID string, a domain.Assignee) bool {
	_, ok := s.mutateIf(ctx, ticketID, "assignee.added", "assignee", a.ID, func(t *domain.Ticket) bool {
		if hasAssignee(t.Assignees, a.ID) {
			return false
		}
		t.Assignees = append(t.Assignees, a)
		return true
	})
	return ok
}

func (s *Store) RemoveAssignee(ctx context.Context, ticketID, assigneeID string) bool {
	_, ok := s.mutate(ctx, ticketID, "assignee.removed", "assignee", assigneeID, func(t *domain.Ticket) {
		t.Assignees, _ = removeByID(t.Assignees, assigneeID, func(a domain.Assignee) string { return a.ID })
	})
	return ok
}

func (s *Store) AddChatMessage(ctx context.Context, ticketID, role, content string) (domain.ChatMessage, bool) {
	var out domain.ChatMessage
	_, ok := s.mutate(ctx, ticketID, "chat.appended", "chat_message", "", func(t *domain.Ticket) {
		m := domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      role,
			Content:   content,
			Timestamp: s.now(),
		}
		t.ChatHistory = append(t.ChatHistory, m)
		out = m
	})
	return out, ok
}

func removeByID[T any](in []T, id string, idOf func(T) string) ([]T, bool) {
	out := make([]T, 0, len(in))
	found := false
	for _, v := range in {
		if idOf(v) == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	return out, found
}
