package domain

import (
	"fmt"
	"time"
)

type TicketStatus string

const (
	StatusDraft         TicketStatus = "draft"
	StatusInReview      TicketStatus = "in_review"
	StatusApproved      TicketStatus = "approved"
	StatusInDevelopment TicketStatus = "in_development"
	StatusCompleted     TicketStatus = "completed"
)

// StatusColumns is the kanban column order.
var StatusColumns = []TicketStatus{
	StatusDraft,
	StatusInReview,
	StatusApproved,
	StatusInDevelopment,
	StatusCompleted,
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// PriorityRank orders priorities for column sorting; lower sorts first.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// FormatNumber renders a ticket number for display and search, zero-padded
// to three digits. Numbers past 999 keep all their digits.
func FormatNumber(n int) string {
	return fmt.Sprintf("SF-%03d", n)
}

type ScenarioPriority string

const (
	ScenarioP1 ScenarioPriority = "P1"
	ScenarioP2 ScenarioPriority = "P2"
	ScenarioP3 ScenarioPriority = "P3"
)

type RequirementType string

const (
	RequirementFunctional    RequirementType = "functional"
	RequirementNonFunctional RequirementType = "non_functional"
)

type TaskPhase string

const (
	PhaseSetup      TaskPhase = "setup"
	PhaseCore       TaskPhase = "core"
	PhasePolish     TaskPhase = "polish"
	PhaseValidation TaskPhase = "validation"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskComplete   TaskStatus = "complete"
	TaskBlocked    TaskStatus = "blocked"
)

type CheckpointType string

const (
	CheckpointVerify   CheckpointType = "verify"
	CheckpointDecision CheckpointType = "decision"
)

// UserScenario is a Given/When/Then acceptance criterion (US1, US2, ...).
type UserScenario struct {
	ID       string           `json:"id"`
	Priority ScenarioPriority `json:"priority" enum:"P1,P2,P3"`
	Title    string           `json:"title"`
	Given    string           `json:"given"`
	When     string           `json:"when"`
	Then     string           `json:"then"`
}

// Requirement is a formally numbered obligation (FR-001, NFR-001, ...).
type Requirement struct {
	ID                  string          `json:"id"`
	Type                RequirementType `json:"type" enum:"functional,non_functional"`
	Description         string          `json:"description"`
	ClarificationNeeded string          `json:"clarification_needed,omitempty"`
	Verified            bool            `json:"verified"`
}

// Clarification is an open question blocking review readiness.
type Clarification struct {
	ID         string     `json:"id"`
	Question   string     `json:"question"`
	Context    string     `json:"context,omitempty"`
	Resolved   bool       `json:"resolved"`
	Answer     string     `json:"answer,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" format:"date-time"`
}

// SuccessCriterion is a measurable outcome (SC-001, SC-002, ...).
type SuccessCriterion struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Metric      string `json:"metric,omitempty"`
	Met         bool   `json:"met"`
}

// Task is an execution unit (T001, T002, ...), meaningful once the ticket
// is approved. Checkpoint tasks mark manual verify/decision points.
type Task struct {
	ID                 string         `json:"id"`
	UserScenarioID     string         `json:"user_scenario_id,omitempty"`
	Parallel           bool           `json:"parallel"`
	Phase              TaskPhase      `json:"phase" enum:"setup,core,polish,validation"`
	Name               string         `json:"name"`
	Files              []string       `json:"files,omitempty"`
	Action             string         `json:"action,omitempty"`
	Verification       string         `json:"verification,omitempty"`
	Done               string         `json:"done,omitempty"`
	Status             TaskStatus     `json:"status" enum:"pending,in_progress,complete,blocked"`
	CommitHash         string         `json:"commit_hash,omitempty"`
	IsCheckpoint       bool           `json:"is_checkpoint"`
	CheckpointType     CheckpointType `json:"checkpoint_type,omitempty" enum:"verify,decision"`
	CheckpointResolved bool           `json:"checkpoint_resolved,omitempty"`
}

// Subtask is the legacy title+done pair kept for old snapshots.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp" format:"date-time"`
}

type Assignee struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Color  string `json:"color,omitempty"`
}

type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role" enum:"assistant,user"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp" format:"date-time"`
}

// Ticket is the aggregate root. Nested entities are exclusively owned: they
// never outlive the ticket and have no identity outside it. ID, Number and
// CreatedAt are immutable after creation.
type Ticket struct {
	ID          string       `json:"id"`
	Number      int          `json:"number"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TicketStatus `json:"status" enum:"draft,in_review,approved,in_development,completed"`
	Priority    Priority     `json:"priority" enum:"urgent,high,medium,low,none"`

	UserScenarios   []UserScenario     `json:"user_scenarios"`
	Requirements    []Requirement      `json:"requirements"`
	Clarifications  []Clarification    `json:"clarifications"`
	SuccessCriteria []SuccessCriterion `json:"success_criteria"`
	Spec            string             `json:"spec,omitempty"`
	Research        string             `json:"research,omitempty"`
	DataModel       string             `json:"data_model,omitempty"`
	APIContract     string             `json:"api_contract,omitempty"`

	Tasks    []Task    `json:"tasks"`
	Subtasks []Subtask `json:"subtasks"`

	ChatHistory []ChatMessage `json:"chat_history"`
	Labels      []Label       `json:"labels"`
	Comments    []Comment     `json:"comments"`
	Assignees   []Assignee    `json:"assignees"`
	DueDate     *time.Time    `json:"due_date,omitempty" format:"date-time"`
	Estimate    *int          `json:"estimate,omitempty"`

	ResearchRequired bool   `json:"research_required"`
	AIGenerated      bool   `json:"ai_generated"`
	AIQuestion       string `json:"ai_question,omitempty"`

	SpecCompletion int         `json:"spec_completion"`
	QualityGate    QualityGate `json:"quality_gate"`

	// Per-ticket id sequences; never decremented, so nested ids are not
	// reused after deletion.
	ScenarioSeq  int `json:"scenario_seq,omitempty"`
	FuncReqSeq   int `json:"func_req_seq,omitempty"`
	NonFuncSeq   int `json:"non_func_seq,omitempty"`
	CriterionSeq int `json:"criterion_seq,omitempty"`

	CreatedAt time.Time `json:"created_at" format:"date-time"`
	UpdatedAt time.Time `json:"updated_at" format:"date-time"`
}

// TaskDraft is the input shape for creating tasks, singly or in a generated
// batch. Ids and execution status are assigned by the store.
type TaskDraft struct {
	UserScenarioID string         `json:"user_scenario_id,omitempty"`
	Parallel       bool           `json:"parallel,omitempty"`
	Phase          TaskPhase      `json:"phase,omitempty" enum:"setup,core,polish,validation"`
	Name           string         `json:"name"`
	Files          []string       `json:"files,omitempty"`
	Action         string         `json:"action,omitempty"`
	Verification   string         `json:"verification,omitempty"`
	Done           string         `json:"done,omitempty"`
	IsCheckpoint   bool           `json:"is_checkpoint,omitempty"`
	CheckpointType CheckpointType `json:"checkpoint_type,omitempty" enum:"verify,decision"`
}

// TicketFilter selects tickets for the filtered views. All supplied
// criteria are ANDed; Search is ORed across number, title, description and
// spec text.
type TicketFilter struct {
	Status   []TicketStatus `json:"status,omitempty"`
	Priority []Priority     `json:"priority,omitempty"`
	Search   string         `json:"search,omitempty"`
	Assignee string         `json:"assignee,omitempty"`
	Labels   []string       `json:"labels,omitempty"`
}

// IsZero reports whether the filter selects everything.
func (f TicketFilter) IsZero() bool {
	return len(f.Status) == 0 && len(f.Priority) == 0 && f.Search == "" &&
		f.Assignee == "" && len(f.Labels) == 0
}

// TaskProgress summarizes task completion for a ticket.
type TaskProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}
