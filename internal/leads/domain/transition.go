package domain

import "time"

// TaskKind classifies a scheduled work item produced by a transition.
type TaskKind string

const (
	TaskFollowUp   TaskKind = "follow_up"
	TaskMeeting    TaskKind = "meeting"
	TaskUnderOffer TaskKind = "under_offer"
	TaskClosure    TaskKind = "closure"
)

// Policy carries the tunable workflow timings. Values come from
// configuration; the planner never reads the environment itself.
type Policy struct {
	UnreachableThreshold    int
	MeetingConfirmationLead time.Duration
	RestartFollowUpDelay    time.Duration
	ClosureTaskDelay        time.Duration
}

// OutcomeParams are the agent-supplied details accompanying an outcome.
type OutcomeParams struct {
	DueAt             *time.Time
	ReasonID          *string
	ClientStillWithUs *bool
	Notes             *string
}

// RecordSpec describes one outcome record to append to the lead's timeline.
// Synthetic records are engine-generated, such as the deal_lost written on
// unreachable escalation.
type RecordSpec struct {
	Tag               OutcomeTag
	DBOutcome         DBOutcome
	ReasonID          *string
	ClientStillWithUs *bool
	Notes             *string
	DueAt             *time.Time
	Synthetic         bool
}

// TaskSpec describes one task to schedule as part of a transition.
type TaskSpec struct {
	Kind        TaskKind
	DueAt       time.Time
	Description string
}

// TransitionPlan is the complete effect of recording one outcome. The
// repository applies it atomically; it either lands in full or not at all.
type TransitionPlan struct {
	Tag      OutcomeTag
	NewStage Stage

	// AddOutcomes is unioned into outcomesSelected. Empty when
	// ClearOutcomes resets the set for a pipeline restart.
	AddOutcomes   []OutcomeTag
	ClearOutcomes bool

	UnreachableCount int
	SetFirstOutcome  bool

	SetInvalid         bool
	RestartFromLost    bool
	PreviousLostReason *string

	Records []RecordSpec
	Tasks   []TaskSpec

	// Forced marks transitions the engine imposed rather than the agent
	// chose, currently only the unreachable escalation to lost.
	Forced bool
}

// PlanTransition validates an outcome against the lead's current state and
// computes the full transition plan. It is pure: the caller supplies the
// clock and applies the plan inside a transaction. Validation order is
// catalog lookup, terminal check, gating, then per-outcome field checks,
// so callers get the most specific error first.
func PlanTransition(lead Lead, tag OutcomeTag, params OutcomeParams, now time.Time, pol Policy) (TransitionPlan, error) {
	entry, err := LookupOutcome(tag)
	if err != nil {
		return TransitionPlan{}, err
	}

	if lead.Terminal() {
		return TransitionPlan{}, ErrTerminalLead
	}

	if !selectable(lead, tag) {
		return TransitionPlan{}, ErrOutcomeNotAvailable
	}

	if entry.RequiresReason {
		if params.ReasonID == nil || *params.ReasonID == "" {
			return TransitionPlan{}, ErrReasonRequired
		}
		if !entry.ValidReason(*params.ReasonID) {
			return TransitionPlan{}, ErrInvalidReason
		}
	}

	if tag == OutcomeDealLost && params.ClientStillWithUs == nil {
		return TransitionPlan{}, ErrClientStatusRequired
	}

	if entry.RequiresDueAt && params.DueAt == nil {
		return TransitionPlan{}, ErrDueAtRequired
	}

	plan := TransitionPlan{
		Tag:              tag,
		NewStage:         lead.Stage,
		AddOutcomes:      []OutcomeTag{tag},
		UnreachableCount: lead.UnreachableCount,
		SetFirstOutcome:  lead.FirstOutcomeAt == nil,
		Records: []RecordSpec{{
			Tag:               tag,
			DBOutcome:         entry.DBOutcome,
			ReasonID:          params.ReasonID,
			ClientStillWithUs: params.ClientStillWithUs,
			Notes:             params.Notes,
			DueAt:             params.DueAt,
		}},
	}

	switch tag {
	case OutcomeCallBackRequest:
		plan.Tasks = append(plan.Tasks, TaskSpec{
			Kind:        TaskFollowUp,
			DueAt:       *params.DueAt,
			Description: "Call the lead back at the requested time",
		})

	case OutcomeNoAnswer:
		plan.UnreachableCount = lead.UnreachableCount + 1
		if plan.UnreachableCount >= pol.UnreachableThreshold {
			reason := ReasonNoAnswerMultipleAttempts
			plan.NewStage = StageLost
			plan.Forced = true
			plan.AddOutcomes = append(plan.AddOutcomes, OutcomeDealLost)
			plan.Records = append(plan.Records, RecordSpec{
				Tag:       OutcomeDealLost,
				DBOutcome: DBOutcomeLost,
				ReasonID:  &reason,
				Synthetic: true,
			})
			plan.Tasks = append(plan.Tasks, TaskSpec{
				Kind:        TaskClosure,
				DueAt:       now.Add(pol.ClosureTaskDelay),
				Description: "Wrap up lead lost after repeated failed contact attempts",
			})
		} else {
			plan.Tasks = append(plan.Tasks, TaskSpec{
				Kind:        TaskFollowUp,
				DueAt:       *params.DueAt,
				Description: "Retry contacting the lead",
			})
		}

	case OutcomeInterested:
		plan.NewStage = StageQualified
		plan.Tasks = append(plan.Tasks, TaskSpec{
			Kind:        TaskFollowUp,
			DueAt:       *params.DueAt,
			Description: "Follow up with the interested lead",
		})

	case OutcomeMeetingScheduled:
		plan.NewStage = StageQualified
		plan.Tasks = append(plan.Tasks,
			TaskSpec{
				Kind:        TaskMeeting,
				DueAt:       *params.DueAt,
				Description: "Meeting with the lead",
			},
			TaskSpec{
				Kind:        TaskFollowUp,
				DueAt:       params.DueAt.Add(-pol.MeetingConfirmationLead),
				Description: "Confirm the upcoming meeting with the lead",
			},
		)

	case OutcomeUnderOffer:
		plan.NewStage = StageNegotiating
		plan.Tasks = append(plan.Tasks, TaskSpec{
			Kind:        TaskUnderOffer,
			DueAt:       *params.DueAt,
			Description: "Check progress on the outstanding offer",
		})

	case OutcomeDealWon:
		plan.NewStage = StageWon
		plan.Tasks = append(plan.Tasks, TaskSpec{
			Kind:        TaskClosure,
			DueAt:       now.Add(pol.ClosureTaskDelay),
			Description: "Complete paperwork for the won deal",
		})

	case OutcomeDealLost:
		if *params.ClientStillWithUs {
			// Client is still reachable: restart the pipeline instead of
			// closing, keeping the lost reason for context.
			plan.NewStage = StageNew
			plan.ClearOutcomes = true
			plan.AddOutcomes = nil
			plan.UnreachableCount = 0
			plan.RestartFromLost = true
			plan.PreviousLostReason = params.ReasonID
			plan.Tasks = append(plan.Tasks, TaskSpec{
				Kind:        TaskFollowUp,
				DueAt:       now.Add(pol.RestartFollowUpDelay),
				Description: "Re-engage the lead after the lost deal",
			})
		} else {
			plan.NewStage = StageLost
			plan.Tasks = append(plan.Tasks, TaskSpec{
				Kind:        TaskClosure,
				DueAt:       now.Add(pol.ClosureTaskDelay),
				Description: "Wrap up the lost deal",
			})
		}

	case OutcomeInvalid:
		plan.SetInvalid = true
	}

	return plan, nil
}

func selectable(lead Lead, tag OutcomeTag) bool {
	for _, t := range SelectableOutcomes(lead) {
		if t == tag {
			return true
		}
	}
	return false
}
