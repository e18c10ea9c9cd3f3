package domain

// QualityGate summarizes a ticket's workflow readiness. It is derived, never
// set directly, and never blocks a mutation.
type QualityGate string

const (
	GateSpecIncomplete       QualityGate = "spec_incomplete"
	GateSpecComplete         QualityGate = "spec_complete"
	GateClarificationsNeeded QualityGate = "clarifications_needed"
	GateReadyForApproval     QualityGate = "ready_for_approval"
	GateApproved             QualityGate = "approved"
	GateTasksReady           QualityGate = "tasks_ready"
	GateInProgress           QualityGate = "in_progress"
	GateVerificationPending  QualityGate = "verification_pending"
	GateComplete             QualityGate = "complete"
)

// specCompleteThreshold is the free-form spec length beyond which a draft
// counts as spec_complete even without scenarios or requirements.
const specCompleteThreshold = 50

// DeriveGate computes the quality gate from current ticket state. It is
// total: every status/content combination maps to exactly one gate. Status
// dominates; content conditions only matter within a status.
func DeriveGate(t Ticket) QualityGate {
	switch t.Status {
	case StatusCompleted:
		return GateComplete
	case StatusInDevelopment:
		for _, task := range t.Tasks {
			if task.IsCheckpoint && task.CheckpointType == CheckpointVerify && !task.CheckpointResolved {
				return GateVerificationPending
			}
		}
		return GateInProgress
	case StatusApproved:
		if len(t.Tasks) > 0 {
			return GateTasksReady
		}
		return GateApproved
	case StatusInReview:
		for _, c := range t.Clarifications {
			if !c.Resolved {
				return GateClarificationsNeeded
			}
		}
		return GateReadyForApproval
	}
	if len(t.UserScenarios) > 0 || len(t.Requirements) > 0 || len(t.Spec) > specCompleteThreshold {
		return GateSpecComplete
	}
	return GateSpecIncomplete
}
