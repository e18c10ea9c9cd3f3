package store

import (
	"context"

	"github.com/adam-alska/specflow/internal/domain"
)

// Task ids are length-derived: a generated batch is numbered T001..TNNN and
// a single add takes len+1. Deleting a task does not renumber the rest, so
// gaps appear. That quirk is load-bearing for external references (commit
// messages, chat transcripts) that cite task ids.

func draftToTask(d domain.TaskDraft, n int) domain.Task {
	phase := d.Phase
	if phase == "" {
		phase = domain.PhaseCore
	}
	return domain.Task{
		ID:             padID("T", n),
		UserScenarioID: d.UserScenarioID,
		Parallel:       d.Parallel,
		Phase:          phase,
		Name:           d.Name,
		Files:          d.Files,
		Action:         d.Action,
		Verification:   d.Verification,
		Done:           d.Done,
		Status:         domain.TaskPending,
		IsCheckpoint:   d.IsCheckpoint,
		CheckpointType: d.CheckpointType,
	}
}

// AddTask appends one task as T(len+1), pending.
func (s *Store) AddTask(ctx context.Context, ticketID string, draft domain.TaskDraft) (domain.Task, bool) {
	var out domain.Task
	_, ok := s.mutate(ctx, ticketID, "task.added", "task", "", func(t *domain.Ticket) {
		out = draftToTask(draft, len(t.Tasks)+1)
		t.Tasks = append(t.Tasks, out)
	})
	return out, ok
}

// GenerateTasks replaces the whole task list with the drafts, renumbered
// T001..TNNN in order.
func (s *Store) GenerateTasks(ctx context.Context, ticketID string, drafts []domain.TaskDraft) ([]domain.Task, bool) {
	var out []domain.Task
	_, ok := s.mutate(ctx, ticketID, "tasks.generated", "task", "", func(t *domain.Ticket) {
		tasks := make([]domain.Task, 0, len(drafts))
		for i, d := range drafts {
			tasks = append(tasks, draftToTask(d, i+1))
		}
		t.Tasks = tasks
		out = tasks
	})
	return out, ok
}

// TaskUpdate is a partial task update; the id and checkpoint kind are fixed.
type TaskUpdate struct {
	UserScenarioID     *string
	Parallel           *bool
	Phase              *domain.TaskPhase
	Name               *string
	Files              *[]string
	Action             *string
	Verification       *string
	Done               *string
	CheckpointResolved *bool
}

func (s *Store) UpdateTask(ctx context.Context, ticketID, taskID string, upd TaskUpdate) bool {
	_, ok := s.mutateIf(ctx, ticketID, "task.updated", "task", taskID, func(t *domain.Ticket) bool {
		for i := range t.Tasks {
			if t.Tasks[i].ID != taskID {
				continue
			}
			task := &t.Tasks[i]
			if upd.UserScenarioID != nil {
				task.UserScenarioID = *upd.UserScenarioID
			}
			if upd.Parallel != nil {
				task.Parallel = *upd.Parallel
			}
			if upd.Phase != nil {
				task.Phase = *upd.Phase
			}
			if upd.Name != nil {
				task.Name = *upd.Name
			}
			if upd.Files != nil {
				task.Files = *upd.Files
			}
			if upd.Action != nil {
				task.Action = *upd.Action
			}
			if upd.Verification != nil {
				task.Verification = *upd.Verification
			}
			if upd.Done != nil {
				task.Done = *upd.Done
			}
			if upd.CheckpointResolved != nil {
				task.CheckpointResolved = *upd.CheckpointResolved
			}
			return true
		}
		return false
	})
	return ok
}

// UpdateTaskStatus moves a task through its execution lifecycle. A commit
// hash, once recorded, is kept through later status changes unless a new one
// is supplied.
func (s *Store) UpdateTaskStatus(ctx context.Context, ticketID, taskID string, status domain.TaskStatus, commitHash string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "task.status", "task", taskID, func(t *domain.Ticket) bool {
		for i := range t.Tasks {
			if t.Tasks[i].ID != taskID {
				continue
			}
			t.Tasks[i].Status = status
			if commitHash != "" {
				t.Tasks[i].CommitHash = commitHash
			}
			return true
		}
		return false
	})
	return ok
}

// ResolveCheckpoint marks a checkpoint task as manually verified or decided.
func (s *Store) ResolveCheckpoint(ctx context.Context, ticketID, taskID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "task.checkpoint_resolved", "task", taskID, func(t *domain.Ticket) bool {
		for i := range t.Tasks {
			if t.Tasks[i].ID == taskID && t.Tasks[i].IsCheckpoint {
				t.Tasks[i].CheckpointResolved = true
				return true
			}
		}
		return false
	})
	return ok
}

func (s *Store) DeleteTask(ctx context.Context, ticketID, taskID string) bool {
	_, ok := s.mutateIf(ctx, ticketID, "task.deleted", "task", taskID, func(t *domain.Ticket) bool {
		var found bool
		t.Tasks, found = removeByID(t.Tasks, taskID, func(task domain.Task) string { return task.ID })
		return found
	})
	return ok
}
