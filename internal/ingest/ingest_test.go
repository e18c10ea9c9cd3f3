package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/adam-alska/specflow/internal/domain"
	"github.com/adam-alska/specflow/internal/repo"
	"github.com/adam-alska/specflow/internal/store"
)

func TestApplyAssignsStoreIDs(t *testing.T) {
	st := store.New(repo.Repo{}, nil)
	ctx := context.Background()
	tk := st.Create(ctx, store.CreateOptions{Title: "seed"})

	got, ok := Apply(ctx, st, tk.ID, SpecPayload{
		Title:    "Search relevance",
		Summary:  "Better ranking for short queries",
		Priority: domain.PriorityMedium,
		UserScenarios: []ScenarioInput{
			{Title: "ready-made title", Priority: domain.ScenarioP1},
			{AsA: "searcher", IWant: "typo tolerance", SoThat: "I still find things"},
		},
		Requirements: []RequirementIn{
			{Type: domain.RequirementFunctional, Description: "rank exact matches first"},
			{Type: domain.RequirementNonFunctional, Description: "results within 100ms"},
			{Description: "untyped defaults to functional"},
		},
		SuccessCriteria: []CriterionInput{
			{Metric: "click-through rate", Target: "+5%"},
		},
		Tasks: []domain.TaskDraft{{Name: "analyzer"}, {Name: "reranker"}},
	})
	if !ok {
		t.Fatal("apply reported missing ticket")
	}
	if got.Title != "Search relevance" || got.Priority != domain.PriorityMedium {
		t.Fatalf("ticket = %s/%s", got.Title, got.Priority)
	}
	if got.Description != "Better ranking for short queries" {
		t.Fatalf("description = %q", got.Description)
	}
	if !got.AIGenerated {
		t.Fatal("ai_generated not set")
	}

	if len(got.UserScenarios) != 2 || got.UserScenarios[0].ID != "US1" || got.UserScenarios[1].ID != "US2" {
		t.Fatalf("scenario ids = %+v", got.UserScenarios)
	}
	want := "As a searcher, I want typo tolerance, so that I still find things"
	if got.UserScenarios[1].Title != want {
		t.Fatalf("joined title = %q", got.UserScenarios[1].Title)
	}

	if len(got.Requirements) != 3 {
		t.Fatalf("requirements = %d", len(got.Requirements))
	}
	ids := []string{got.Requirements[0].ID, got.Requirements[1].ID, got.Requirements[2].ID}
	if ids[0] != "FR-001" || ids[1] != "NFR-001" || ids[2] != "FR-002" {
		t.Fatalf("requirement ids = %v", ids)
	}

	if len(got.SuccessCriteria) != 1 || got.SuccessCriteria[0].ID != "SC-001" {
		t.Fatalf("criteria = %+v", got.SuccessCriteria)
	}
	if got.SuccessCriteria[0].Description != "click-through rate" || got.SuccessCriteria[0].Metric != "+5%" {
		t.Fatalf("criterion = %+v", got.SuccessCriteria[0])
	}

	if len(got.Tasks) != 2 || got.Tasks[0].ID != "T001" || got.Tasks[1].ID != "T002" {
		t.Fatalf("tasks = %+v", got.Tasks)
	}
}

func TestApplyUnknownTicket(t *testing.T) {
	st := store.New(repo.Repo{}, nil)
	if _, ok := Apply(context.Background(), st, "missing", SpecPayload{Title: "x"}); ok {
		t.Fatal("apply to missing ticket succeeded")
	}
}

func TestCreateFlagsAIGenerated(t *testing.T) {
	st := store.New(repo.Repo{}, nil)
	got := Create(context.Background(), st, SpecPayload{Title: "from assistant"})
	if !got.AIGenerated {
		t.Fatal("created ticket not flagged")
	}
	if got.Number != 1 {
		t.Fatalf("number = %d", got.Number)
	}
}

func TestRenderSpecSections(t *testing.T) {
	spec := renderSpec(SpecPayload{
		Summary:     "short summary",
		Problem:     "the actual problem",
		Constraints: []string{"no schema change", "backwards compatible"},
		EdgeCases: []EdgeCase{
			{Scenario: "empty query", Handling: "return recent items"},
		},
	})
	if !strings.HasPrefix(spec, "## Summary") {
		t.Fatalf("spec starts with %q", spec[:20])
	}
	for _, section := range []string{"## Summary", "## Problem", "## Constraints", "## Edge cases"} {
		if !strings.Contains(spec, section) {
			t.Fatalf("missing section %s", section)
		}
	}
	if !strings.Contains(spec, "- no schema change") {
		t.Fatal("constraint not rendered")
	}
	if !strings.Contains(spec, "- empty query: return recent items") {
		t.Fatal("edge case not rendered")
	}

	if renderSpec(SpecPayload{}) != "" {
		t.Fatal("empty payload should render nothing")
	}
}

func TestCompletionEstimate(t *testing.T) {
	if got := completionEstimate(SpecPayload{}); got != 0 {
		t.Fatalf("empty = %d", got)
	}
	full := SpecPayload{
		Summary:         "s",
		UserScenarios:   []ScenarioInput{{Title: "t"}},
		Requirements:    []RequirementIn{{Description: "d"}},
		SuccessCriteria: []CriterionInput{{Metric: "m"}},
		EdgeCases:       []EdgeCase{{Scenario: "e", Handling: "h"}},
	}
	if got := completionEstimate(full); got != 100 {
		t.Fatalf("full = %d", got)
	}
	partial := SpecPayload{Problem: "p", Requirements: []RequirementIn{{Description: "d"}}}
	if got := completionEstimate(partial); got != 50 {
		t.Fatalf("partial = %d", got)
	}
}
