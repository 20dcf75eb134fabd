// Package transport defines the request and response shapes of the leads
// API. Requests carry validation tags; responses are flat JSON views over
// the repository models.
package transport

import (
	"time"

	"pipeline_backend/internal/leads/domain"
	"pipeline_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	Name         string     `json:"name" validate:"required,min=2,max=200"`
	Phone        string     `json:"phone" validate:"required,min=5,max=32"`
	Email        string     `json:"email" validate:"omitempty,email"`
	Source       string     `json:"source" validate:"omitempty,max=100"`
	OwnerAgentID *uuid.UUID `json:"ownerAgentId" validate:"omitempty"`
}

// ApplyOutcomeRequest records one outcome against a lead. DueAt is a
// business-local wall-clock string; see ParseBusinessTime.
type ApplyOutcomeRequest struct {
	OutcomeTag        string  `json:"outcomeTag" validate:"required"`
	DueAt             *string `json:"dueAt" validate:"omitempty"`
	ReasonID          *string `json:"reasonId" validate:"omitempty,max=100"`
	ClientStillWithUs *bool   `json:"clientStillWithUs" validate:"omitempty"`
	Notes             *string `json:"notes" validate:"omitempty,max=2000"`
}

type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Stage              string     `json:"stage"`
	OwnerAgentID       *uuid.UUID `json:"ownerAgentId,omitempty"`
	AssignedAt         *time.Time `json:"assignedAt,omitempty"`
	FirstOutcomeAt     *time.Time `json:"firstOutcomeAt,omitempty"`
	UnreachableCount   int        `json:"unreachableCount"`
	OutcomesSelected   []string   `json:"outcomesSelected"`
	Invalid            bool       `json:"invalid"`
	InvalidAt          *time.Time `json:"invalidAt,omitempty"`
	RestartedFromLost  bool       `json:"restartedFromLost"`
	PreviousLostReason *string    `json:"previousLostReason,omitempty"`
	ConsumerName       string     `json:"consumerName"`
	ConsumerPhone      string     `json:"consumerPhone"`
	ConsumerEmail      *string    `json:"consumerEmail,omitempty"`
	Source             *string    `json:"source,omitempty"`
	Terminal           bool       `json:"terminal"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

// ApplyOutcomeResponse tells the caller what the transition produced, so
// the UI can refresh without re-fetching everything.
type ApplyOutcomeResponse struct {
	Lead           LeadResponse  `json:"lead"`
	NewStage       string        `json:"newStage"`
	Forced         bool          `json:"forced"`
	CreatedTaskIDs []uuid.UUID   `json:"createdTaskIds"`
	CreatedTasks   []TaskSummary `json:"createdTasks"`
	SLA            SLAResponse   `json:"slaStatus"`
}

type TaskSummary struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	DueAt       time.Time `json:"dueAt"`
	Description string    `json:"description"`
}

type OutcomeOption struct {
	Tag            string          `json:"tag"`
	Label          string          `json:"label"`
	RequiresReason bool            `json:"requiresReason"`
	RequiresDueAt  bool            `json:"requiresDueAt"`
	Reasons        []domain.Reason `json:"reasons,omitempty"`
}

type SelectableOutcomesResponse struct {
	Outcomes []OutcomeOption `json:"outcomes"`
}

type SLAResponse struct {
	Status           string     `json:"status"`
	OwnerAgentID     *uuid.UUID `json:"ownerAgentId,omitempty"`
	ElapsedMinutes   *int       `json:"elapsedMinutes,omitempty"`
	RemainingMinutes *int       `json:"remainingMinutes,omitempty"`
}

type TimelineEntry struct {
	ID                uuid.UUID  `json:"id"`
	OutcomeTag        string     `json:"outcomeTag"`
	DBOutcome         string     `json:"dbOutcome"`
	ReasonID          *string    `json:"reasonId,omitempty"`
	ClientStillWithUs *bool      `json:"clientStillWithUs,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	DueAt             *time.Time `json:"dueAt,omitempty"`
	Synthetic         bool       `json:"synthetic"`
	CreatedBy         uuid.UUID  `json:"createdBy"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type TimelineResponse struct {
	Entries []TimelineEntry `json:"entries"`
}

// ToLeadResponse maps a repository row to the API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                 lead.ID,
		Stage:              lead.Stage,
		OwnerAgentID:       lead.OwnerAgentID,
		AssignedAt:         lead.AssignedAt,
		FirstOutcomeAt:     lead.FirstOutcomeAt,
		UnreachableCount:   lead.UnreachableCount,
		OutcomesSelected:   lead.OutcomesSelected,
		Invalid:            lead.Invalid,
		InvalidAt:          lead.InvalidAt,
		RestartedFromLost:  lead.RestartedFromLost,
		PreviousLostReason: lead.PreviousLostReason,
		ConsumerName:       lead.ConsumerName,
		ConsumerPhone:      lead.ConsumerPhone,
		ConsumerEmail:      lead.ConsumerEmail,
		Source:             lead.Source,
		Terminal:           lead.Domain().Terminal(),
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

// ToOutcomeOptions maps catalog entries to the API shape.
func ToOutcomeOptions(entries []domain.CatalogEntry) []OutcomeOption {
	out := make([]OutcomeOption, 0, len(entries))
	for _, e := range entries {
		out = append(out, OutcomeOption{
			Tag:            string(e.Tag),
			Label:          e.Label,
			RequiresReason: e.RequiresReason,
			RequiresDueAt:  e.RequiresDueAt,
			Reasons:        e.Reasons,
		})
	}
	return out
}

// ToSLAResponse maps an evaluated SLA status to the API shape. Durations
// are reported in whole minutes, matching what the badge renders.
func ToSLAResponse(status domain.SLAStatus) SLAResponse {
	resp := SLAResponse{
		Status:       string(status.Kind),
		OwnerAgentID: status.OwnerAgentID,
	}
	switch status.Kind {
	case domain.SLAActive:
		elapsed := int(status.Elapsed.Minutes())
		remaining := int(status.Remaining.Minutes())
		resp.ElapsedMinutes = &elapsed
		resp.RemainingMinutes = &remaining
	case domain.SLAOverdue:
		elapsed := int(status.Elapsed.Minutes())
		resp.ElapsedMinutes = &elapsed
	}
	return resp
}

// ToTimelineEntries maps outcome records to the API shape.
func ToTimelineEntries(records []repository.OutcomeRecord) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, TimelineEntry{
			ID:                rec.ID,
			OutcomeTag:        rec.OutcomeTag,
			DBOutcome:         rec.DBOutcome,
			ReasonID:          rec.ReasonID,
			ClientStillWithUs: rec.ClientStillWithUs,
			Notes:             rec.Notes,
			DueAt:             rec.DueAt,
			Synthetic:         rec.Synthetic,
			CreatedBy:         rec.CreatedBy,
			CreatedAt:         rec.CreatedAt,
		})
	}
	return out
}
