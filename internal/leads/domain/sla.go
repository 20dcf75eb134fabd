package domain

import (
	"time"

	"github.com/google/uuid"
)

// SLAKind classifies a lead's first-response status.
type SLAKind string

const (
	// SLAUnreachable marks leads closed out by repeated failed contact attempts.
	SLAUnreachable SLAKind = "unreachable"
	// SLAOwned means the assigned agent responded in time and owns the lead.
	SLAOwned SLAKind = "owned"
	// SLAOverdue means the response window elapsed with no recorded outcome.
	SLAOverdue SLAKind = "overdue"
	// SLAActive means the response window is still open.
	SLAActive SLAKind = "active"
	// SLANone means the lead was never assigned, so no window applies.
	SLANone SLAKind = "none"
)

// SLAStatus is the evaluated first-response state of a lead at a point
// in time. Elapsed and Remaining are only meaningful for active windows.
type SLAStatus struct {
	Kind         SLAKind
	OwnerAgentID *uuid.UUID
	Elapsed      time.Duration
	Remaining    time.Duration
}

// ComputeSLA evaluates the first-response window for a lead. The checks
// are ordered so that earlier classifications win:
//
//  1. unreachable: the lead hit the no-answer threshold and was forced lost
//  2. owned: a first outcome was recorded, regardless of timing
//  3. none: the lead was never assigned, or it is won (no badge either way)
//  4. overdue: the window elapsed
//  5. active: the window is still open
func ComputeSLA(lead Lead, now time.Time, target time.Duration, unreachableThreshold int) SLAStatus {
	if lead.UnreachableCount >= unreachableThreshold && lead.Stage == StageLost {
		return SLAStatus{Kind: SLAUnreachable}
	}

	if lead.FirstOutcomeAt != nil {
		return SLAStatus{Kind: SLAOwned, OwnerAgentID: lead.OwnerAgentID}
	}

	if lead.AssignedAt == nil {
		return SLAStatus{Kind: SLANone}
	}

	// A won lead never shows a countdown or an overdue badge.
	if lead.Stage == StageWon {
		return SLAStatus{Kind: SLANone}
	}

	elapsed := now.Sub(*lead.AssignedAt)
	if elapsed >= target {
		return SLAStatus{Kind: SLAOverdue, OwnerAgentID: lead.OwnerAgentID, Elapsed: elapsed}
	}

	return SLAStatus{
		Kind:         SLAActive,
		OwnerAgentID: lead.OwnerAgentID,
		Elapsed:      elapsed,
		Remaining:    target - elapsed,
	}
}
