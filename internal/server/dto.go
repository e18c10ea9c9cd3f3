package server

import (
	"time"

	"github.com/adam-alska/specflow/internal/config"
	"github.com/adam-alska/specflow/internal/domain"
)

// Request payloads

type CreateTicketRequest struct {
	Title            string              `json:"title,omitempty"`
	Description      string              `json:"description,omitempty"`
	Status           domain.TicketStatus `json:"status,omitempty" enum:"draft,in_review,approved,in_development,completed"`
	Priority         domain.Priority     `json:"priority,omitempty" enum:"urgent,high,medium,low,none"`
	Spec             string              `json:"spec,omitempty"`
	Research         string              `json:"research,omitempty"`
	DataModel        string              `json:"data_model,omitempty"`
	APIContract      string              `json:"api_contract,omitempty"`
	DueDate          *time.Time          `json:"due_date,omitempty" format:"date-time"`
	Estimate         *int                `json:"estimate,omitempty"`
	ResearchRequired bool                `json:"research_required,omitempty"`
	SpecCompletion   int                 `json:"spec_completion,omitempty"`
}

type UpdateTicketRequest struct {
	Title            *string              `json:"title,omitempty"`
	Description      *string              `json:"description,omitempty"`
	Status           *domain.TicketStatus `json:"status,omitempty" enum:"draft,in_review,approved,in_development,completed"`
	Priority         *domain.Priority     `json:"priority,omitempty" enum:"urgent,high,medium,low,none"`
	Spec             *string              `json:"spec,omitempty"`
	Research         *string              `json:"research,omitempty"`
	DataModel        *string              `json:"data_model,omitempty"`
	APIContract      *string              `json:"api_contract,omitempty"`
	DueDate          *time.Time           `json:"due_date,omitempty" format:"date-time"`
	ClearDueDate     bool                 `json:"clear_due_date,omitempty"`
	Estimate         *int                 `json:"estimate,omitempty"`
	ClearEstimate    bool                 `json:"clear_estimate,omitempty"`
	ResearchRequired *bool                `json:"research_required,omitempty"`
	AIQuestion       *string              `json:"ai_question,omitempty"`
	SpecCompletion   *int                 `json:"spec_completion,omitempty"`
}

type MoveTicketRequest struct {
	Status domain.TicketStatus `json:"status" enum:"draft,in_review,approved,in_development,completed"`
}

type ScenarioRequest struct {
	Priority domain.ScenarioPriority `json:"priority,omitempty" enum:"P1,P2,P3"`
	Title    string                  `json:"title"`
	Given    string                  `json:"given,omitempty"`
	When     string                  `json:"when,omitempty"`
	Then     string                  `json:"then,omitempty"`
}

type ScenarioUpdateRequest struct {
	Priority *domain.ScenarioPriority `json:"priority,omitempty" enum:"P1,P2,P3"`
	Title    *string                  `json:"title,omitempty"`
	Given    *string                  `json:"given,omitempty"`
	When     *string                  `json:"when,omitempty"`
	Then     *string                  `json:"then,omitempty"`
}

type RequirementRequest struct {
	Type        domain.RequirementType `json:"type,omitempty" enum:"functional,non_functional"`
	Description string                 `json:"description"`
}

type RequirementUpdateRequest struct {
	Description         *string `json:"description,omitempty"`
	ClarificationNeeded *string `json:"clarification_needed,omitempty"`
	Verified            *bool   `json:"verified,omitempty"`
}

type ClarificationRequest struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

type ResolveClarificationRequest struct {
	Answer string `json:"answer"`
}

type CriterionRequest struct {
	Description string `json:"description"`
	Metric      string `json:"metric,omitempty"`
}

type SubtaskRequest struct {
	Title string `json:"title"`
}

type TaskStatusRequest struct {
	Status     domain.TaskStatus `json:"status" enum:"pending,in_progress,complete,blocked"`
	CommitHash string            `json:"commit_hash,omitempty"`
}

type TaskUpdateRequest struct {
	UserScenarioID     *string           `json:"user_scenario_id,omitempty"`
	Parallel           *bool             `json:"parallel,omitempty"`
	Phase              *domain.TaskPhase `json:"phase,omitempty" enum:"setup,core,polish,validation"`
	Name               *string           `json:"name,omitempty"`
	Files              *[]string         `json:"files,omitempty"`
	Action             *string           `json:"action,omitempty"`
	Verification       *string           `json:"verification,omitempty"`
	Done               *string           `json:"done,omitempty"`
	CheckpointResolved *bool             `json:"checkpoint_resolved,omitempty"`
}

type GenerateTasksRequest struct {
	Tasks []domain.TaskDraft `json:"tasks"`
}

type AttachLabelRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

type AddAssigneeRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Color  string `json:"color,omitempty"`
}

type AddCommentRequest struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type ChatMessageRequest struct {
	Role    string `json:"role" enum:"assistant,user"`
	Content string `json:"content"`
}

// Response payloads

type BoardColumn struct {
	Status  domain.TicketStatus `json:"status" enum:"draft,in_review,approved,in_development,completed"`
	Tickets []domain.Ticket     `json:"tickets"`
}

type BoardResponse struct {
	Columns []BoardColumn `json:"columns"`
}

type ActiveResponse struct {
	ID     string         `json:"id,omitempty"`
	Ticket *domain.Ticket `json:"ticket,omitempty"`
}

type ProgressResponse struct {
	Progress *domain.TaskProgress `json:"progress"`
}

type WorkspaceResponse struct {
	Project string          `json:"project"`
	Labels  []domain.Label  `json:"labels"`
	Team    []config.Member `json:"team"`
}
