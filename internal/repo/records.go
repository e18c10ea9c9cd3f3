package repo

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/adam-alska/specflow/internal/domain"
)

// ticketRecord is the loosely-typed persisted form of a ticket. Older
// snapshots may miss whole collections, carry a single assignee string, or
// store dates in odd shapes; migrate() turns any of them into a fully
// defaulted domain.Ticket.
type ticketRecord struct {
	ID          string              `json:"id"`
	Number      int                 `json:"number"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Problem     string              `json:"problem_statement"`
	Status      domain.TicketStatus `json:"status"`
	Priority    domain.Priority     `json:"priority"`

	UserScenarios   []domain.UserScenario     `json:"user_scenarios"`
	Requirements    []domain.Requirement      `json:"requirements"`
	Clarifications  []clarificationRecord     `json:"clarifications"`
	SuccessCriteria []domain.SuccessCriterion `json:"success_criteria"`
	Spec            string                    `json:"spec"`
	Research        string                    `json:"research"`
	DataModel       string                    `json:"data_model"`
	APIContract     string                    `json:"api_contract"`

	Tasks    []domain.Task    `json:"tasks"`
	Subtasks []domain.Subtask `json:"subtasks"`

	ChatHistory []chatRecord      `json:"chat_history"`
	Labels      []domain.Label    `json:"labels"`
	Comments    []commentRecord   `json:"comments"`
	Assignees   []domain.Assignee `json:"assignees"`
	Assignee    string            `json:"assignee"`
	DueDate     looseTime         `json:"due_date"`
	Estimate    *int              `json:"estimate"`

	ResearchRequired bool   `json:"research_required"`
	AIGenerated      bool   `json:"ai_generated"`
	AIQuestion       string `json:"ai_question"`

	SpecCompletion int `json:"spec_completion"`

	ScenarioSeq  int `json:"scenario_seq"`
	FuncReqSeq   int `json:"func_req_seq"`
	NonFuncSeq   int `json:"non_func_seq"`
	CriterionSeq int `json:"criterion_seq"`

	CreatedAt looseTime `json:"created_at"`
	UpdatedAt looseTime `json:"updated_at"`
}

type clarificationRecord struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Context    string    `json:"context"`
	Resolved   bool      `json:"resolved"`
	Answer     string    `json:"answer"`
	ResolvedAt looseTime `json:"resolved_at"`
}

type commentRecord struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp looseTime `json:"timestamp"`
}

type chatRecord struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp looseTime `json:"timestamp"`
}

// looseTime accepts RFC3339 strings (with or without sub-second precision)
// and unix-millisecond numbers; anything else parses to the zero time.
type looseTime struct {
	t time.Time
}

func (lt *looseTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if parsed, err := time.Parse(layout, str); err == nil {
				lt.t = parsed
				return nil
			}
		}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		lt.t = time.UnixMilli(ms).UTC()
	}
	return nil
}

func (lt looseTime) MarshalJSON() ([]byte, error) {
	if lt.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(lt.t)
}

func (lt looseTime) ptr() *time.Time {
	if lt.t.IsZero() {
		return nil
	}
	t := lt.t
	return &t
}

func (rec ticketRecord) migrate() domain.Ticket {
	t := domain.Ticket{
		ID:          rec.ID,
		Number:      rec.Number,
		Title:       rec.Title,
		Description: rec.Description,
		Status:      rec.Status,
		Priority:    rec.Priority,

		UserScenarios:   emptyIfNil(rec.UserScenarios),
		Requirements:    emptyIfNil(rec.Requirements),
		SuccessCriteria: emptyIfNil(rec.SuccessCriteria),
		Spec:            rec.Spec,
		Research:        rec.Research,
		DataModel:       rec.DataModel,
		APIContract:     rec.APIContract,

		Tasks:    emptyIfNil(rec.Tasks),
		Subtasks: emptyIfNil(rec.Subtasks),

		Labels:    emptyIfNil(rec.Labels),
		Assignees: emptyIfNil(rec.Assignees),
		DueDate:   rec.DueDate.ptr(),
		Estimate:  rec.Estimate,

		ResearchRequired: rec.ResearchRequired,
		AIGenerated:      rec.AIGenerated,
		AIQuestion:       rec.AIQuestion,
		SpecCompletion:   clampPercent(rec.SpecCompletion),

		ScenarioSeq:  rec.ScenarioSeq,
		FuncReqSeq:   rec.FuncReqSeq,
		NonFuncSeq:   rec.NonFuncSeq,
		CriterionSeq: rec.CriterionSeq,

		CreatedAt: rec.CreatedAt.t,
		UpdatedAt: rec.UpdatedAt.t,
	}
	if rec.Description == "" && rec.Problem != "" {
		t.Description = rec.Problem
	}
	if t.Status == "" {
		t.Status = domain.StatusDraft
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityNone
	}
	t.Clarifications = make([]domain.Clarification, 0, len(rec.Clarifications))
	for _, c := range rec.Clarifications {
		t.Clarifications = append(t.Clarifications, domain.Clarification{
			ID:         c.ID,
			Question:   c.Question,
			Context:    c.Context,
			Resolved:   c.Resolved,
			Answer:     c.Answer,
			ResolvedAt: c.ResolvedAt.ptr(),
		})
	}
	t.Comments = make([]domain.Comment, 0, len(rec.Comments))
	for _, c := range rec.Comments {
		t.Comments = append(t.Comments, domain.Comment{
			ID:        c.ID,
			Author:    c.Author,
			Content:   c.Content,
			Timestamp: c.Timestamp.t,
		})
	}
	t.ChatHistory = make([]domain.ChatMessage, 0, len(rec.ChatHistory))
	for _, m := range rec.ChatHistory {
		t.ChatHistory = append(t.ChatHistory, domain.ChatMessage{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.t,
		})
	}
	// Legacy single-assignee snapshots.
	if len(t.Assignees) == 0 && rec.Assignee != "" {
		t.Assignees = []domain.Assignee{{ID: rec.Assignee, Name: rec.Assignee, Color: "purple"}}
	}
	recoverSequences(&t)
	t.QualityGate = domain.DeriveGate(t)
	return t
}

// recoverSequences rebuilds per-ticket id counters from the highest numeric
// suffix present, for snapshots written before the counters existed.
func recoverSequences(t *domain.Ticket) {
	for _, s := range t.UserScenarios {
		if n, ok := idSuffix(s.ID, "US"); ok && n > t.ScenarioSeq {
			t.ScenarioSeq = n
		}
	}
	for _, r := range t.Requirements {
		if n, ok := idSuffix(r.ID, "FR-"); ok && n > t.FuncReqSeq {
			t.FuncReqSeq = n
		}
		if n, ok := idSuffix(r.ID, "NFR-"); ok && n > t.NonFuncSeq {
			t.NonFuncSeq = n
		}
	}
	for _, c := range t.SuccessCriteria {
		if n, ok := idSuffix(c.ID, "SC-"); ok && n > t.CriterionSeq {
			t.CriterionSeq = n
		}
	}
}

func idSuffix(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
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

func emptyIfNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
