// Package service implements the leads use cases: intake of new pipeline
// records and the outcome workflow (gating, SLA, transitions, timeline).
package service

import (
	"context"
	"errors"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/leads/domain"
	"pipeline_backend/internal/leads/repository"
	"pipeline_backend/internal/leads/transport"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// WorkflowStore is what the workflow service needs from persistence.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ExecuteTransition(
		ctx context.Context,
		leadID uuid.UUID,
		createdBy uuid.UUID,
		now time.Time,
		tasks repository.TaskInserter,
		plan func(domain.Lead) (domain.TransitionPlan, error),
	) (repository.TransitionResult, error)
	ListTimeline(ctx context.Context, leadID uuid.UUID) ([]repository.OutcomeRecord, error)
}

// WorkflowConfig is the slice of configuration the workflow needs.
type WorkflowConfig interface {
	GetSLATarget() time.Duration
	GetUnreachableThreshold() int
	GetMeetingConfirmationLead() time.Duration
	GetRestartFollowUpDelay() time.Duration
	GetClosureTaskDelay() time.Duration
	GetBusinessLocation() *time.Location
}

type WorkflowService struct {
	store     WorkflowStore
	tasks     repository.TaskInserter
	bus       events.Bus
	log       *logger.Logger
	policy    domain.Policy
	slaTarget time.Duration
	location  *time.Location

	// Now is the injectable clock; tests pin it.
	Now func() time.Time
}

func NewWorkflow(store WorkflowStore, tasks repository.TaskInserter, bus events.Bus, cfg WorkflowConfig, log *logger.Logger) *WorkflowService {
	return &WorkflowService{
		store: store,
		tasks: tasks,
		bus:   bus,
		log:   log,
		policy: domain.Policy{
			UnreachableThreshold:    cfg.GetUnreachableThreshold(),
			MeetingConfirmationLead: cfg.GetMeetingConfirmationLead(),
			RestartFollowUpDelay:    cfg.GetRestartFollowUpDelay(),
			ClosureTaskDelay:        cfg.GetClosureTaskDelay(),
		},
		slaTarget: cfg.GetSLATarget(),
		location:  cfg.GetBusinessLocation(),
		Now:       time.Now,
	}
}

// ApplyOutcome records one outcome for a lead and returns the committed
// transition. All side effects land atomically; a precondition failure
// leaves no trace.
func (s *WorkflowService) ApplyOutcome(ctx context.Context, leadID, agentID uuid.UUID, req transport.ApplyOutcomeRequest) (transport.ApplyOutcomeResponse, error) {
	params := domain.OutcomeParams{
		ReasonID:          req.ReasonID,
		ClientStillWithUs: req.ClientStillWithUs,
		Notes:             req.Notes,
	}
	if req.DueAt != nil {
		due, err := transport.ParseBusinessTime(*req.DueAt, s.location)
		if err != nil {
			return transport.ApplyOutcomeResponse{}, apperr.Validation(err.Error())
		}
		params.DueAt = &due
	}

	now := s.Now().UTC()
	tag := domain.OutcomeTag(req.OutcomeTag)

	var fromStage domain.Stage
	result, err := s.store.ExecuteTransition(ctx, leadID, agentID, now, s.tasks,
		func(lead domain.Lead) (domain.TransitionPlan, error) {
			fromStage = lead.Stage
			return domain.PlanTransition(lead, tag, params, now, s.policy)
		})
	if err != nil {
		return transport.ApplyOutcomeResponse{}, mapWorkflowErr(err)
	}

	plan := result.Plan
	s.log.StageTransition(leadID, string(tag), string(fromStage), string(plan.NewStage), plan.Forced)

	s.bus.Publish(ctx, events.OutcomeRecorded{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		OutcomeTag: string(tag),
		FromStage:  string(fromStage),
		NewStage:   string(plan.NewStage),
		AgentID:    agentID,
		Forced:     plan.Forced,
	})
	if plan.Forced {
		s.bus.Publish(ctx, events.LeadEscalated{
			BaseEvent:        events.NewBaseEvent(),
			LeadID:           leadID,
			OwnerAgentID:     result.Lead.OwnerAgentID,
			UnreachableCount: plan.UnreachableCount,
		})
	}

	resp := transport.ApplyOutcomeResponse{
		Lead:           transport.ToLeadResponse(result.Lead),
		NewStage:       string(plan.NewStage),
		Forced:         plan.Forced,
		CreatedTaskIDs: make([]uuid.UUID, 0, len(result.Tasks)),
		CreatedTasks:   make([]transport.TaskSummary, 0, len(result.Tasks)),
		SLA: transport.ToSLAResponse(
			domain.ComputeSLA(result.Lead.Domain(), now, s.slaTarget, s.policy.UnreachableThreshold)),
	}
	for _, task := range result.Tasks {
		s.bus.Publish(ctx, events.TaskScheduled{
			BaseEvent: events.NewBaseEvent(),
			TaskID:    task.ID,
			LeadID:    task.LeadID,
			Kind:      task.Kind,
			DueAt:     task.DueAt,
		})
		resp.CreatedTaskIDs = append(resp.CreatedTaskIDs, task.ID)
		resp.CreatedTasks = append(resp.CreatedTasks, transport.TaskSummary{
			ID:          task.ID,
			Kind:        task.Kind,
			DueAt:       task.DueAt,
			Description: task.Description,
		})
	}
	return resp, nil
}

// SelectableOutcomes returns what the agent may record right now.
func (s *WorkflowService) SelectableOutcomes(ctx context.Context, leadID uuid.UUID) (transport.SelectableOutcomesResponse, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return transport.SelectableOutcomesResponse{}, mapWorkflowErr(err)
	}
	return transport.SelectableOutcomesResponse{
		Outcomes: transport.ToOutcomeOptions(domain.SelectableEntries(lead.Domain())),
	}, nil
}

// SLAStatus evaluates the lead's first-response window against the clock.
func (s *WorkflowService) SLAStatus(ctx context.Context, leadID uuid.UUID) (transport.SLAResponse, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return transport.SLAResponse{}, mapWorkflowErr(err)
	}
	status := domain.ComputeSLA(lead.Domain(), s.Now().UTC(), s.slaTarget, s.policy.UnreachableThreshold)
	return transport.ToSLAResponse(status), nil
}

// Timeline returns the lead's full outcome history.
func (s *WorkflowService) Timeline(ctx context.Context, leadID uuid.UUID) (transport.TimelineResponse, error) {
	if _, err := s.store.GetByID(ctx, leadID); err != nil {
		return transport.TimelineResponse{}, mapWorkflowErr(err)
	}
	records, err := s.store.ListTimeline(ctx, leadID)
	if err != nil {
		return transport.TimelineResponse{}, err
	}
	return transport.TimelineResponse{Entries: transport.ToTimelineEntries(records)}, nil
}

// mapWorkflowErr translates storage and planner sentinels into API errors.
func mapWorkflowErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, domain.ErrUnknownOutcome):
		return apperr.BadRequest("unknown outcome tag")
	case errors.Is(err, domain.ErrTerminalLead):
		return apperr.Conflict("lead is terminal; no further outcomes may be recorded")
	case errors.Is(err, domain.ErrOutcomeNotAvailable):
		return apperr.Conflict("outcome is not currently selectable; refresh and retry")
	case errors.Is(err, domain.ErrReasonRequired):
		return apperr.Validation("this outcome requires a reason")
	case errors.Is(err, domain.ErrInvalidReason):
		return apperr.Validation("reason is not in this outcome's reason list")
	case errors.Is(err, domain.ErrClientStatusRequired):
		return apperr.Validation("deal_lost requires clientStillWithUs")
	case errors.Is(err, domain.ErrDueAtRequired):
		return apperr.Validation("this outcome requires dueAt")
	default:
		return err
	}
}
