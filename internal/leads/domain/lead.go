package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lead is the workflow engine's view of a pipeline record. The repository
// maps it from the leads table; the engine is the only writer of Stage,
// OutcomesSelected, UnreachableCount, FirstOutcomeAt and the terminal flags.
type Lead struct {
	ID                 uuid.UUID
	Stage              Stage
	OwnerAgentID       *uuid.UUID
	AssignedAt         *time.Time
	FirstOutcomeAt     *time.Time
	UnreachableCount   int
	OutcomesSelected   OutcomeSet
	Invalid            bool
	InvalidAt          *time.Time
	RestartedFromLost  bool
	PreviousLostReason *string
}

// Terminal reports whether the lead accepts no further outcomes.
// A terminal lead can only re-enter the pipeline through the explicit
// deal_lost restart branch.
func (l Lead) Terminal() bool {
	return l.Invalid || l.Stage.Terminal()
}

// OutcomeSet is the set of outcome tags already recorded for a lead.
// It is the idempotency guard for one-time outcomes.
type OutcomeSet map[OutcomeTag]struct{}

// NewOutcomeSet builds a set from recorded tag values.
func NewOutcomeSet(tags []string) OutcomeSet {
	set := make(OutcomeSet, len(tags))
	for _, t := range tags {
		set[OutcomeTag(t)] = struct{}{}
	}
	return set
}

// Has reports whether the tag was already recorded.
func (s OutcomeSet) Has(tag OutcomeTag) bool {
	_, ok := s[tag]
	return ok
}

// Tags returns the set in catalog order for stable storage and display.
func (s OutcomeSet) Tags() []string {
	out := make([]string, 0, len(s))
	for _, entry := range Catalog() {
		if s.Has(entry.Tag) {
			out = append(out, string(entry.Tag))
		}
	}
	return out
}
