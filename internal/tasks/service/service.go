// Package service implements the task scheduler use cases: scheduling,
// completion with auto-chaining, and rescheduling.
package service

import (
	"context"
	"errors"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/leads/domain"
	leadsrepo "pipeline_backend/internal/leads/repository"
	leadstransport "pipeline_backend/internal/leads/transport"
	"pipeline_backend/internal/tasks/repository"
	"pipeline_backend/internal/tasks/transport"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrOutcomeRequired means a decision-point task cannot close without an
// outcome being recorded in the same operation.
var ErrOutcomeRequired = errors.New("task completion requires an outcome")

// Store is what the task service needs from task persistence.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Task, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]repository.Task, error)
	ListOpenDue(ctx context.Context, before time.Time, limit int) ([]repository.Task, error)
	Insert(ctx context.Context, params repository.InsertParams) (repository.Task, error)
	CompleteWithChain(ctx context.Context, id uuid.UUID, chain *repository.InsertParams) (repository.Task, *repository.Task, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDueAt time.Time) (repository.Task, error)
}

// LeadReader resolves the lead a task belongs to.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
}

// OutcomeApplier routes decision-point completions through the transition
// workflow.
type OutcomeApplier interface {
	ApplyOutcome(ctx context.Context, leadID, agentID uuid.UUID, req leadstransport.ApplyOutcomeRequest) (leadstransport.ApplyOutcomeResponse, error)
}

// chainCadence is the routine follow-up delay per stage, used when a
// non-decision task completes on a still-active lead.
var chainCadence = map[domain.Stage]time.Duration{
	domain.StageNew:         24 * time.Hour,
	domain.StageContacted:   24 * time.Hour,
	domain.StageQualified:   48 * time.Hour,
	domain.StageNegotiating: 24 * time.Hour,
}

type Service struct {
	store    Store
	leads    LeadReader
	workflow OutcomeApplier
	bus      events.Bus
	log      *logger.Logger
	location *time.Location

	Now func() time.Time
}

func New(store Store, leads LeadReader, workflow OutcomeApplier, bus events.Bus, location *time.Location, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		leads:    leads,
		workflow: workflow,
		bus:      bus,
		log:      log,
		location: location,
		Now:      time.Now,
	}
}

// Schedule creates one open task. Duplicates of the same kind are allowed;
// the UI surfaces the soonest.
func (s *Service) Schedule(ctx context.Context, leadID uuid.UUID, kind string, dueAt time.Time, description string) (transport.TaskResponse, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return transport.TaskResponse{}, apperr.NotFound("lead not found")
		}
		return transport.TaskResponse{}, err
	}
	if lead.Domain().Terminal() {
		return transport.TaskResponse{}, apperr.Conflict("cannot schedule tasks for a terminal lead")
	}

	task, err := s.store.Insert(ctx, repository.InsertParams{
		LeadID:      leadID,
		Kind:        kind,
		DueAt:       dueAt,
		Description: description,
	})
	if err != nil {
		return transport.TaskResponse{}, err
	}

	s.log.TaskEvent("scheduled", task.ID, task.LeadID, task.Kind)
	s.bus.Publish(ctx, events.TaskScheduled{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    task.ID,
		LeadID:    task.LeadID,
		Kind:      task.Kind,
		DueAt:     task.DueAt,
	})
	return transport.ToTaskResponse(task), nil
}

// Complete closes a task. A decision-point task (a follow-up style task on
// a lead still in active pipeline) must carry an outcome, which is applied
// to the lead first; its transition schedules whatever comes next. Other
// tasks complete unconditionally and may auto-chain a routine reminder per
// the stage cadence, atomically with the status write.
func (s *Service) Complete(ctx context.Context, taskID, agentID uuid.UUID, req transport.CompleteTaskRequest) (transport.CompleteTaskResponse, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return transport.CompleteTaskResponse{}, mapTaskErr(err)
	}
	if task.Status == repository.StatusCompleted {
		return transport.CompleteTaskResponse{}, apperr.Conflict("task already completed")
	}

	lead, err := s.leads.GetByID(ctx, task.LeadID)
	if err != nil {
		return transport.CompleteTaskResponse{}, err
	}

	var outcome *leadstransport.ApplyOutcomeResponse
	if s.isDecisionPoint(task, lead) {
		if req.Outcome == nil {
			return transport.CompleteTaskResponse{}, apperr.Wrap(apperr.KindConflict,
				"a decision-point task needs an outcome; record one with the completion", ErrOutcomeRequired)
		}
		applied, err := s.workflow.ApplyOutcome(ctx, task.LeadID, agentID, *req.Outcome)
		if err != nil {
			return transport.CompleteTaskResponse{}, err
		}
		outcome = &applied

		completed, _, err := s.store.CompleteWithChain(ctx, taskID, nil)
		if err != nil {
			return transport.CompleteTaskResponse{}, mapTaskErr(err)
		}
		return s.finishCompletion(ctx, completed, nil, outcome, agentID), nil
	}

	completed, next, err := s.store.CompleteWithChain(ctx, taskID, s.chainParams(task, lead))
	if err != nil {
		return transport.CompleteTaskResponse{}, mapTaskErr(err)
	}
	return s.finishCompletion(ctx, completed, next, nil, agentID), nil
}

// Reschedule moves an open task. Rescheduling a meeting releases the
// meeting_scheduled guard so the meeting can be rebooked via the normal
// outcome flow.
func (s *Service) Reschedule(ctx context.Context, taskID uuid.UUID, req transport.RescheduleTaskRequest) (transport.TaskResponse, error) {
	newDueAt, err := leadstransport.ParseBusinessTime(req.NewDueAt, s.location)
	if err != nil {
		return transport.TaskResponse{}, apperr.Validation(err.Error())
	}

	before, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return transport.TaskResponse{}, mapTaskErr(err)
	}

	task, err := s.store.Reschedule(ctx, taskID, newDueAt)
	if err != nil {
		return transport.TaskResponse{}, mapTaskErr(err)
	}

	s.log.TaskEvent("rescheduled", task.ID, task.LeadID, task.Kind)
	s.bus.Publish(ctx, events.TaskRescheduled{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    task.ID,
		LeadID:    task.LeadID,
		Kind:      task.Kind,
		OldDueAt:  before.DueAt,
		NewDueAt:  task.DueAt,
	})
	return transport.ToTaskResponse(task), nil
}

func (s *Service) GetByID(ctx context.Context, taskID uuid.UUID) (transport.TaskResponse, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return transport.TaskResponse{}, mapTaskErr(err)
	}
	return transport.ToTaskResponse(task), nil
}

func (s *Service) ListByLead(ctx context.Context, leadID uuid.UUID) (transport.TaskListResponse, error) {
	if _, err := s.leads.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return transport.TaskListResponse{}, apperr.NotFound("lead not found")
		}
		return transport.TaskListResponse{}, err
	}
	tasks, err := s.store.ListByLead(ctx, leadID)
	if err != nil {
		return transport.TaskListResponse{}, err
	}
	return transport.ToTaskListResponse(tasks), nil
}

// ListDue returns open tasks whose due time has already passed, the agenda
// an agent works through.
func (s *Service) ListDue(ctx context.Context, limit int) (transport.TaskListResponse, error) {
	tasks, err := s.store.ListOpenDue(ctx, s.Now().UTC(), limit)
	if err != nil {
		return transport.TaskListResponse{}, err
	}
	return transport.ToTaskListResponse(tasks), nil
}

// isDecisionPoint reports whether closing the task demands a new outcome:
// follow-up style work on a lead that is still in play.
func (s *Service) isDecisionPoint(task repository.Task, lead leadsrepo.Lead) bool {
	if task.Kind != string(domain.TaskFollowUp) && task.Kind != string(domain.TaskUnderOffer) {
		return false
	}
	return !lead.Domain().Terminal()
}

// chainParams returns the routine next task for a non-decision completion,
// or nil when the lead's stage has no cadence (terminal stages included).
func (s *Service) chainParams(task repository.Task, lead leadsrepo.Lead) *repository.InsertParams {
	if lead.Domain().Terminal() {
		return nil
	}
	delay, ok := chainCadence[domain.Stage(lead.Stage)]
	if !ok {
		return nil
	}
	if task.Kind != string(domain.TaskMeeting) {
		return nil
	}
	return &repository.InsertParams{
		LeadID:      task.LeadID,
		Kind:        string(domain.TaskFollowUp),
		DueAt:       s.Now().UTC().Add(delay),
		Description: "Follow up after the meeting",
	}
}

func (s *Service) finishCompletion(ctx context.Context, completed repository.Task, next *repository.Task, outcome *leadstransport.ApplyOutcomeResponse, agentID uuid.UUID) transport.CompleteTaskResponse {
	s.log.TaskEvent("completed", completed.ID, completed.LeadID, completed.Kind)

	resp := transport.CompleteTaskResponse{
		Task:    transport.ToTaskResponse(completed),
		Outcome: outcome,
	}
	event := events.TaskCompleted{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    completed.ID,
		LeadID:    completed.LeadID,
		Kind:      completed.Kind,
		AgentID:   agentID,
	}
	if next != nil {
		nextResp := transport.ToTaskResponse(*next)
		resp.NextTaskID = &next.ID
		resp.NextTask = &nextResp
		event.NextTaskID = &next.ID

		s.log.TaskEvent("chained", next.ID, next.LeadID, next.Kind)
		s.bus.Publish(ctx, events.TaskScheduled{
			BaseEvent: events.NewBaseEvent(),
			TaskID:    next.ID,
			LeadID:    next.LeadID,
			Kind:      next.Kind,
			DueAt:     next.DueAt,
		})
	}
	s.bus.Publish(ctx, event)
	return resp
}

func mapTaskErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("task not found")
	case errors.Is(err, repository.ErrAlreadyCompleted):
		return apperr.Conflict("task already completed")
	default:
		return err
	}
}
