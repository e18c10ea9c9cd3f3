package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/store"
)

// SpecPayload is the shape assistants produce when drafting a spec. Any ids
// inside it are ignored; the store assigns its own when the payload is
// applied.
type SpecPayload struct {
	Title           string             `json:"title"`
	Summary         string             `json:"summary,omitempty"`
	Problem         string             `json:"problem,omitempty"`
	Priority        domain.Priority    `json:"priority,omitempty" enum:"urgent,high,medium,low,none"`
	UserScenarios   []ScenarioInput    `json:"user_scenarios,omitempty"`
	Requirements    []RequirementIn    `json:"requirements,omitempty"`
	Constraints     []string           `json:"constraints,omitempty"`
	EdgeCases       []EdgeCase         `json:"edge_cases,omitempty"`
	SuccessCriteria []CriterionInput   `json:"success_criteria,omitempty"`
	Tasks           []domain.TaskDraft `json:"tasks,omitempty"`
}

// ScenarioInput carries a scenario either as a ready-made title or as the
// as-a / i-want / so-that triple assistants tend to emit.
type ScenarioInput struct {
	Priority domain.ScenarioPriority `json:"priority,omitempty" enum:"P1,P2,P3"`
	Title    string                  `json:"title,omitempty"`
	AsA      string                  `json:"as_a,omitempty"`
	IWant    string                  `json:"i_want,omitempty"`
	SoThat   string                  `json:"so_that,omitempty"`
	Given    string                  `json:"given,omitempty"`
	When     string                  `json:"when,omitempty"`
	Then     string                  `json:"then,omitempty"`
}

type RequirementIn struct {
	Type        domain.RequirementType `json:"type,omitempty" enum:"functional,non_functional"`
	Description string                 `json:"description"`
}

type EdgeCase struct {
	Scenario string `json:"scenario"`
	Handling string `json:"handling"`
}

type CriterionInput struct {
	Metric string `json:"metric"`
	Target string `json:"target,omitempty"`
}

func (sc ScenarioInput) title() string {
	if sc.Title != "" {
		return sc.Title
	}
	parts := []string{}
	if sc.AsA != "" {
		parts = append(parts, "As a "+sc.AsA)
	}
	if sc.IWant != "" {
		parts = append(parts, "I want "+sc.IWant)
	}
	if sc.SoThat != "" {
		parts = append(parts, "so that "+sc.SoThat)
	}
	return strings.Join(parts, ", ")
}

// Apply folds a payload into an existing ticket: scenarios, requirements and
// criteria go through the store so they get proper ids, constraints and edge
// cases are rendered into the free-form spec text. Returns false when the
// ticket does not exist.
func Apply(ctx context.Context, st *store.Store, ticketID string, p SpecPayload) (domain.Ticket, bool) {
	if _, ok := st.Get(ticketID); !ok {
		return domain.Ticket{}, false
	}

	upd := store.TicketUpdate{}
	if p.Title != "" {
		upd.Title = &p.Title
	}
	if p.Problem != "" {
		upd.Description = &p.Problem
	} else if p.Summary != "" {
		upd.Description = &p.Summary
	}
	if p.Priority != "" {
		upd.Priority = &p.Priority
	}
	if spec := renderSpec(p); spec != "" {
		upd.Spec = &spec
	}
	gen := true
	upd.AIGenerated = &gen
	completion := completionEstimate(p)
	upd.SpecCompletion = &completion
	if _, ok := st.Update(ctx, ticketID, upd); !ok {
		return domain.Ticket{}, false
	}

	for _, sc := range p.UserScenarios {
		st.AddUserScenario(ctx, ticketID, domain.UserScenario{
			Priority: sc.Priority,
			Title:    sc.title(),
			Given:    sc.Given,
			When:     sc.When,
			Then:     sc.Then,
		})
	}
	for _, r := range p.Requirements {
		st.AddRequirement(ctx, ticketID, domain.Requirement{Type: r.Type, Description: r.Description})
	}
	for _, c := range p.SuccessCriteria {
		st.AddSuccessCriterion(ctx, ticketID, c.Metric, c.Target)
	}
	if len(p.Tasks) > 0 {
		st.GenerateTasks(ctx, ticketID, p.Tasks)
	}
	t, _ := st.Get(ticketID)
	return t, true
}

// Create makes a fresh ticket from the payload. Same id rules as Apply.
func Create(ctx context.Context, st *store.Store, p SpecPayload) domain.Ticket {
	t := st.Create(ctx, store.CreateOptions{
		Title:       p.Title,
		AIGenerated: true,
	})
	applied, _ := Apply(ctx, st, t.ID, p)
	return applied
}

func renderSpec(p SpecPayload) string {
	var b strings.Builder
	if p.Summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n", p.Summary)
	}
	if p.Problem != "" {
		fmt.Fprintf(&b, "\n## Problem\n\n%s\n", p.Problem)
	}
	if len(p.Constraints) > 0 {
		b.WriteString("\n## Constraints\n\n")
		for _, c := range p.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if len(p.EdgeCases) > 0 {
		b.WriteString("\n## Edge cases\n\n")
		for _, e := range p.EdgeCases {
			fmt.Fprintf(&b, "- %s: %s\n", e.Scenario, e.Handling)
		}
	}
	return strings.TrimLeft(b.String(), "\n")
}

// completionEstimate scores how much of the spec template the payload fills.
func completionEstimate(p SpecPayload) int {
	score := 0
	if p.Summary != "" || p.Problem != "" {
		score += 25
	}
	if len(p.UserScenarios) > 0 {
		score += 25
	}
	if len(p.Requirements) > 0 {
		score += 25
	}
	if len(p.SuccessCriteria) > 0 {
		score += 15
	}
	if len(p.EdgeCases) > 0 {
		score += 10
	}
	return score
}
