package domain

import (
	"strings"
	"testing"
)

func TestDeriveGateTable(t *testing.T) {
	verifyCheckpoint := Task{ID: "T001", IsCheckpoint: true, CheckpointType: CheckpointVerify}
	resolvedCheckpoint := Task{ID: "T001", IsCheckpoint: true, CheckpointType: CheckpointVerify, CheckpointResolved: true}
	decisionCheckpoint := Task{ID: "T002", IsCheckpoint: true, CheckpointType: CheckpointDecision}

	cases := []struct {
		name   string
		ticket Ticket
		want   QualityGate
	}{
		{
			name:   "draft empty",
			ticket: Ticket{Status: StatusDraft},
			want:   GateSpecIncomplete,
		},
		{
			name:   "draft with scenario",
			ticket: Ticket{Status: StatusDraft, UserScenarios: []UserScenario{{ID: "US1"}}},
			want:   GateSpecComplete,
		},
		{
			name:   "draft with requirement",
			ticket: Ticket{Status: StatusDraft, Requirements: []Requirement{{ID: "FR-001"}}},
			want:   GateSpecComplete,
		},
		{
			name:   "draft with long spec",
			ticket: Ticket{Status: StatusDraft, Spec: strings.Repeat("x", 51)},
			want:   GateSpecComplete,
		},
		{
			name:   "draft with spec at threshold",
			ticket: Ticket{Status: StatusDraft, Spec: strings.Repeat("x", 50)},
			want:   GateSpecIncomplete,
		},
		{
			name:   "in_review with open question",
			ticket: Ticket{Status: StatusInReview, Clarifications: []Clarification{{ID: "CLR-1"}}},
			want:   GateClarificationsNeeded,
		},
		{
			name:   "in_review all resolved",
			ticket: Ticket{Status: StatusInReview, Clarifications: []Clarification{{ID: "CLR-1", Resolved: true}}},
			want:   GateReadyForApproval,
		},
		{
			name:   "approved without tasks",
			ticket: Ticket{Status: StatusApproved},
			want:   GateApproved,
		},
		{
			name:   "approved with tasks",
			ticket: Ticket{Status: StatusApproved, Tasks: []Task{{ID: "T001"}}},
			want:   GateTasksReady,
		},
		{
			name:   "in_development plain",
			ticket: Ticket{Status: StatusInDevelopment, Tasks: []Task{{ID: "T001"}}},
			want:   GateInProgress,
		},
		{
			name:   "in_development unresolved verify checkpoint",
			ticket: Ticket{Status: StatusInDevelopment, Tasks: []Task{verifyCheckpoint}},
			want:   GateVerificationPending,
		},
		{
			name:   "in_development resolved verify checkpoint",
			ticket: Ticket{Status: StatusInDevelopment, Tasks: []Task{resolvedCheckpoint}},
			want:   GateInProgress,
		},
		{
			name:   "in_development decision checkpoint does not block",
			ticket: Ticket{Status: StatusInDevelopment, Tasks: []Task{decisionCheckpoint}},
			want:   GateInProgress,
		},
		{
			name:   "completed ignores content",
			ticket: Ticket{Status: StatusCompleted, Clarifications: []Clarification{{ID: "CLR-1"}}},
			want:   GateComplete,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveGate(tc.ticket); got != tc.want {
				t.Fatalf("DeriveGate = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[int]string{
		1:    "SF-001",
		7:    "SF-007",
		42:   "SF-042",
		999:  "SF-999",
		1000: "SF-1000",
		1234: "SF-1234",
	}
	for n, want := range cases {
		if got := FormatNumber(n); got != want {
			t.Fatalf("FormatNumber(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestPriorityRankOrder(t *testing.T) {
	order := []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}
	for i := 1; i < len(order); i++ {
		if PriorityRank(order[i-1]) >= PriorityRank(order[i]) {
			t.Fatalf("rank of %s should sort before %s", order[i-1], order[i])
		}
	}
	if PriorityRank("unknown") != PriorityRank(PriorityNone) {
		t.Fatalf("unknown priority should rank with none")
	}
}
