package domain

import (
	"errors"
	"testing"
	"time"
)

var testPolicy = Policy{
	UnreachableThreshold:    3,
	MeetingConfirmationLead: 3 * time.Hour,
	RestartFollowUpDelay:    24 * time.Hour,
	ClosureTaskDelay:        2 * time.Hour,
}

func activeLead(stage Stage) Lead {
	return Lead{Stage: stage, OutcomesSelected: OutcomeSet{}}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrStr(s string) *string { return &s }

func ptrBool(b bool) *bool { return &b }

func TestPlanTransitionPreconditions(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := ptrTime(now.Add(time.Hour))

	tests := []struct {
		name    string
		lead    Lead
		tag     OutcomeTag
		params  OutcomeParams
		wantErr error
	}{
		{
			name:    "unknown outcome",
			lead:    activeLead(StageNew),
			tag:     OutcomeTag("vanished"),
			wantErr: ErrUnknownOutcome,
		},
		{
			name:    "terminal won lead",
			lead:    activeLead(StageWon),
			tag:     OutcomeCallBackRequest,
			params:  OutcomeParams{DueAt: due},
			wantErr: ErrTerminalLead,
		},
		{
			name:    "terminal invalid lead",
			lead:    Lead{Stage: StageQualified, Invalid: true, OutcomesSelected: OutcomeSet{}},
			tag:     OutcomeInterested,
			params:  OutcomeParams{DueAt: due},
			wantErr: ErrTerminalLead,
		},
		{
			name:    "deal_won gated outside negotiating",
			lead:    activeLead(StageQualified),
			tag:     OutcomeDealWon,
			wantErr: ErrOutcomeNotAvailable,
		},
		{
			name: "one-time outcome recorded twice",
			lead: Lead{
				Stage:            StageQualified,
				OutcomesSelected: NewOutcomeSet([]string{"interested"}),
			},
			tag:     OutcomeInterested,
			params:  OutcomeParams{DueAt: due},
			wantErr: ErrOutcomeNotAvailable,
		},
		{
			name:    "deal_lost without reason",
			lead:    activeLead(StageQualified),
			tag:     OutcomeDealLost,
			params:  OutcomeParams{ClientStillWithUs: ptrBool(false)},
			wantErr: ErrReasonRequired,
		},
		{
			name:    "deal_lost with reason from wrong list",
			lead:    activeLead(StageQualified),
			tag:     OutcomeDealLost,
			params:  OutcomeParams{ReasonID: ptrStr("developer"), ClientStillWithUs: ptrBool(false)},
			wantErr: ErrInvalidReason,
		},
		{
			name:    "deal_lost without client status",
			lead:    activeLead(StageQualified),
			tag:     OutcomeDealLost,
			params:  OutcomeParams{ReasonID: ptrStr("offer_rejected")},
			wantErr: ErrClientStatusRequired,
		},
		{
			name:    "invalid without reason",
			lead:    activeLead(StageNew),
			tag:     OutcomeInvalid,
			wantErr: ErrReasonRequired,
		},
		{
			name:    "call_back_request without due time",
			lead:    activeLead(StageNew),
			tag:     OutcomeCallBackRequest,
			wantErr: ErrDueAtRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanTransition(tt.lead, tt.tag, tt.params, now, testPolicy)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("PlanTransition error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlanTransitionCallBackRequest(t *testing.T) {
	// Lead L1: stage=new, assigned at T0. call_back_request with dueAt=T0+1h
	// leaves the stage alone, schedules one follow_up at T0+1h and sets the
	// ownership lock.
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lead := Lead{Stage: StageNew, AssignedAt: &t0, OutcomesSelected: OutcomeSet{}}
	due := t0.Add(time.Hour)

	plan, err := PlanTransition(lead, OutcomeCallBackRequest, OutcomeParams{DueAt: &due}, t0.Add(5*time.Minute), testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageNew {
		t.Errorf("NewStage = %s, want new", plan.NewStage)
	}
	if !plan.SetFirstOutcome {
		t.Error("first outcome should set the ownership lock")
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != TaskFollowUp || !plan.Tasks[0].DueAt.Equal(due) {
		t.Errorf("Tasks = %+v, want one follow_up at %s", plan.Tasks, due)
	}
	if len(plan.Records) != 1 || plan.Records[0].Synthetic {
		t.Errorf("Records = %+v, want one agent-chosen record", plan.Records)
	}
}

func TestPlanTransitionNoAnswerBelowThreshold(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(4 * time.Hour)
	lead := Lead{Stage: StageContacted, UnreachableCount: 1, OutcomesSelected: OutcomeSet{}}

	plan, err := PlanTransition(lead, OutcomeNoAnswer, OutcomeParams{DueAt: &due}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageContacted {
		t.Errorf("NewStage = %s, want contacted", plan.NewStage)
	}
	if plan.UnreachableCount != 2 {
		t.Errorf("UnreachableCount = %d, want 2", plan.UnreachableCount)
	}
	if plan.Forced {
		t.Error("below-threshold no_answer should not force a transition")
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != TaskFollowUp {
		t.Errorf("Tasks = %+v, want one follow_up retry", plan.Tasks)
	}
}

func TestPlanTransitionNoAnswerEscalation(t *testing.T) {
	// Third consecutive no_answer forces the lead to lost with a synthetic
	// deal_lost record explaining the escalation and a closure task instead
	// of the usual retry.
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(4 * time.Hour)
	lead := Lead{Stage: StageContacted, UnreachableCount: 2, OutcomesSelected: OutcomeSet{}}

	plan, err := PlanTransition(lead, OutcomeNoAnswer, OutcomeParams{DueAt: &due}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageLost {
		t.Errorf("NewStage = %s, want lost", plan.NewStage)
	}
	if plan.UnreachableCount != 3 {
		t.Errorf("UnreachableCount = %d, want 3", plan.UnreachableCount)
	}
	if !plan.Forced {
		t.Error("escalation should be marked forced")
	}

	if len(plan.Records) != 2 {
		t.Fatalf("Records = %d, want agent record plus synthetic escalation", len(plan.Records))
	}
	synthetic := plan.Records[1]
	if !synthetic.Synthetic || synthetic.Tag != OutcomeDealLost {
		t.Errorf("synthetic record = %+v, want synthetic deal_lost", synthetic)
	}
	if synthetic.ReasonID == nil || *synthetic.ReasonID != ReasonNoAnswerMultipleAttempts {
		t.Errorf("synthetic reason = %v, want %s", synthetic.ReasonID, ReasonNoAnswerMultipleAttempts)
	}

	if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != TaskClosure {
		t.Fatalf("Tasks = %+v, want a single closure task", plan.Tasks)
	}
	if want := now.Add(testPolicy.ClosureTaskDelay); !plan.Tasks[0].DueAt.Equal(want) {
		t.Errorf("closure due = %s, want %s", plan.Tasks[0].DueAt, want)
	}
}

func TestPlanTransitionProgressOutcomes(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	tests := []struct {
		name      string
		tag       OutcomeTag
		fromStage Stage
		wantStage Stage
		wantKind  TaskKind
	}{
		{name: "interested qualifies", tag: OutcomeInterested, fromStage: StageNew, wantStage: StageQualified, wantKind: TaskFollowUp},
		{name: "under_offer negotiates", tag: OutcomeUnderOffer, fromStage: StageQualified, wantStage: StageNegotiating, wantKind: TaskUnderOffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanTransition(activeLead(tt.fromStage), tt.tag, OutcomeParams{DueAt: &due}, now, testPolicy)
			if err != nil {
				t.Fatalf("PlanTransition: %v", err)
			}
			if plan.NewStage != tt.wantStage {
				t.Errorf("NewStage = %s, want %s", plan.NewStage, tt.wantStage)
			}
			if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != tt.wantKind {
				t.Errorf("Tasks = %+v, want one %s", plan.Tasks, tt.wantKind)
			}
		})
	}
}

func TestPlanTransitionMeetingScheduled(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	meetingAt := now.Add(24 * time.Hour)

	plan, err := PlanTransition(activeLead(StageContacted), OutcomeMeetingScheduled, OutcomeParams{DueAt: &meetingAt}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageQualified {
		t.Errorf("NewStage = %s, want qualified", plan.NewStage)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("Tasks = %d, want meeting plus confirmation", len(plan.Tasks))
	}
	if plan.Tasks[0].Kind != TaskMeeting || !plan.Tasks[0].DueAt.Equal(meetingAt) {
		t.Errorf("meeting task = %+v, want due at %s", plan.Tasks[0], meetingAt)
	}
	confirmAt := meetingAt.Add(-testPolicy.MeetingConfirmationLead)
	if plan.Tasks[1].Kind != TaskFollowUp || !plan.Tasks[1].DueAt.Equal(confirmAt) {
		t.Errorf("confirmation task = %+v, want follow_up at %s", plan.Tasks[1], confirmAt)
	}
}

func TestPlanTransitionDealWon(t *testing.T) {
	// Lead L2: stage=negotiating. deal_won closes the pipeline with a
	// closure task and nothing is selectable afterward.
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	plan, err := PlanTransition(activeLead(StageNegotiating), OutcomeDealWon, OutcomeParams{}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageWon {
		t.Errorf("NewStage = %s, want won", plan.NewStage)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != TaskClosure {
		t.Errorf("Tasks = %+v, want one closure", plan.Tasks)
	}

	after := activeLead(StageNegotiating)
	after.Stage = plan.NewStage
	if got := SelectableOutcomes(after); len(got) != 0 {
		t.Errorf("selectable after win = %v, want empty", got)
	}
}

func TestPlanTransitionDealLostRestart(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lead := Lead{
		Stage:            StageNegotiating,
		UnreachableCount: 2,
		OutcomesSelected: NewOutcomeSet([]string{"interested", "under_offer"}),
	}

	plan, err := PlanTransition(lead, OutcomeDealLost, OutcomeParams{
		ReasonID:          ptrStr("budget_too_low"),
		ClientStillWithUs: ptrBool(true),
	}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageNew {
		t.Errorf("NewStage = %s, want new", plan.NewStage)
	}
	if !plan.ClearOutcomes || len(plan.AddOutcomes) != 0 {
		t.Error("restart should clear outcomesSelected entirely")
	}
	if plan.UnreachableCount != 0 {
		t.Errorf("UnreachableCount = %d, want reset to 0", plan.UnreachableCount)
	}
	if !plan.RestartFromLost {
		t.Error("restart provenance flag should be set")
	}
	if plan.PreviousLostReason == nil || *plan.PreviousLostReason != "budget_too_low" {
		t.Errorf("PreviousLostReason = %v, want budget_too_low", plan.PreviousLostReason)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != TaskFollowUp {
		t.Fatalf("Tasks = %+v, want one re-engagement follow_up", plan.Tasks)
	}
	if want := now.Add(testPolicy.RestartFollowUpDelay); !plan.Tasks[0].DueAt.Equal(want) {
		t.Errorf("restart follow_up due = %s, want %s", plan.Tasks[0].DueAt, want)
	}
}

func TestPlanTransitionDealLostClose(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lead := activeLead(StageQualified)

	plan, err := PlanTransition(lead, OutcomeDealLost, OutcomeParams{
		ReasonID:          ptrStr("lost_to_competitor"),
		ClientStillWithUs: ptrBool(false),
	}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if plan.NewStage != StageLost {
		t.Errorf("NewStage = %s, want lost", plan.NewStage)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].Kind != TaskClosure {
		t.Errorf("Tasks = %+v, want one closure", plan.Tasks)
	}

	after := lead
	after.Stage = plan.NewStage
	if got := SelectableOutcomes(after); len(got) != 0 {
		t.Errorf("selectable after close = %v, want empty", got)
	}
}

func TestPlanTransitionInvalid(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	plan, err := PlanTransition(activeLead(StageContacted), OutcomeInvalid, OutcomeParams{
		ReasonID: ptrStr("test_junk_data"),
	}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}

	if !plan.SetInvalid {
		t.Error("invalid should set the terminal flag")
	}
	if plan.NewStage != StageContacted {
		t.Errorf("NewStage = %s, want stage untouched", plan.NewStage)
	}
	if len(plan.Tasks) != 0 {
		t.Errorf("Tasks = %+v, want none", plan.Tasks)
	}
}

func TestPlanTransitionFirstOutcomeOnlyOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first := now.Add(-time.Hour)
	due := now.Add(time.Hour)
	lead := Lead{Stage: StageContacted, FirstOutcomeAt: &first, OutcomesSelected: OutcomeSet{}}

	plan, err := PlanTransition(lead, OutcomeCallBackRequest, OutcomeParams{DueAt: &due}, now, testPolicy)
	if err != nil {
		t.Fatalf("PlanTransition: %v", err)
	}
	if plan.SetFirstOutcome {
		t.Error("ownership lock should only be set on the first outcome")
	}
}
