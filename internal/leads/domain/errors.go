package domain

import "errors"

// Sentinel errors returned by the transition planner. The service layer
// maps them to API error kinds; callers test them with errors.Is.
var (
	// ErrUnknownOutcome means the tag is not in the outcome catalog.
	ErrUnknownOutcome = errors.New("unknown outcome tag")

	// ErrTerminalLead means the lead is invalid, won or lost and accepts
	// no further outcomes.
	ErrTerminalLead = errors.New("lead is in a terminal state")

	// ErrOutcomeNotAvailable means gating excludes the outcome for the
	// lead's current state.
	ErrOutcomeNotAvailable = errors.New("outcome not available for lead")

	// ErrReasonRequired means the outcome demands a reason and none was given.
	ErrReasonRequired = errors.New("outcome requires a reason")

	// ErrInvalidReason means the given reason is not in the outcome's
	// reason list.
	ErrInvalidReason = errors.New("reason not in outcome reason list")

	// ErrClientStatusRequired means deal_lost was recorded without the
	// client-still-with-us flag that decides restart versus close.
	ErrClientStatusRequired = errors.New("deal_lost requires client status")

	// ErrDueAtRequired means the outcome schedules a caller-timed task and
	// no due time was given.
	ErrDueAtRequired = errors.New("outcome requires a due time")
)
