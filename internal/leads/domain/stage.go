// Package domain provides the core business rules for the leads bounded
// context: pipeline stages, the outcome catalog, outcome gating, SLA
// computation, and the transition planner. Everything in this package is
// pure; persistence and side effects live in the repository and services.
package domain

// Stage is a lead's position in the sales pipeline.
type Stage string

const (
	StageNew         Stage = "new"
	StageContacted   Stage = "contacted"
	StageQualified   Stage = "qualified"
	StageNegotiating Stage = "negotiating"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

var knownStages = map[Stage]struct{}{
	StageNew:         {},
	StageContacted:   {},
	StageQualified:   {},
	StageNegotiating: {},
	StageWon:         {},
	StageLost:        {},
}

// IsKnownStage reports whether the stage value is part of the pipeline vocabulary.
func IsKnownStage(stage Stage) bool {
	_, ok := knownStages[stage]
	return ok
}

// Terminal reports whether the stage alone ends the pipeline.
func (s Stage) Terminal() bool {
	return s == StageWon || s == StageLost
}
