package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline_backend/internal/events"
	leadsrepo "pipeline_backend/internal/leads/repository"
	leadstransport "pipeline_backend/internal/leads/transport"
	"pipeline_backend/internal/tasks/repository"
	"pipeline_backend/internal/tasks/transport"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTaskStore struct {
	tasks map[uuid.UUID]repository.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]repository.Task)}
}

func (f *fakeTaskStore) add(leadID uuid.UUID, kind string, status string) repository.Task {
	task := repository.Task{
		ID:     uuid.New(),
		LeadID: leadID,
		Kind:   kind,
		DueAt:  time.Now().Add(time.Hour).UTC(),
		Status: status,
	}
	f.tasks[task.ID] = task
	return task
}

func (f *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, repository.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) ListByLead(_ context.Context, leadID uuid.UUID) ([]repository.Task, error) {
	out := make([]repository.Task, 0)
	for _, t := range f.tasks {
		if t.LeadID == leadID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListOpenDue(_ context.Context, before time.Time, limit int) ([]repository.Task, error) {
	out := make([]repository.Task, 0)
	for _, t := range f.tasks {
		if t.Status == repository.StatusOpen && !t.DueAt.After(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) Insert(_ context.Context, params repository.InsertParams) (repository.Task, error) {
	task := repository.Task{
		ID:          uuid.New(),
		LeadID:      params.LeadID,
		Kind:        params.Kind,
		DueAt:       params.DueAt,
		Status:      repository.StatusOpen,
		Description: params.Description,
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskStore) CompleteWithChain(ctx context.Context, id uuid.UUID, chain *repository.InsertParams) (repository.Task, *repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, nil, repository.ErrNotFound
	}
	if task.Status == repository.StatusCompleted {
		return repository.Task{}, nil, repository.ErrAlreadyCompleted
	}
	now := time.Now().UTC()
	task.Status = repository.StatusCompleted
	task.CompletedAt = &now
	f.tasks[id] = task

	var next *repository.Task
	if chain != nil {
		chained, _ := f.Insert(ctx, *chain)
		next = &chained
	}
	return task, next, nil
}

func (f *fakeTaskStore) Reschedule(_ context.Context, id uuid.UUID, newDueAt time.Time) (repository.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.Task{}, repository.ErrNotFound
	}
	if task.Status == repository.StatusCompleted {
		return repository.Task{}, repository.ErrAlreadyCompleted
	}
	task.DueAt = newDueAt
	f.tasks[id] = task
	return task, nil
}

type fakeLeadReader struct {
	leads map[uuid.UUID]leadsrepo.Lead
}

func (f *fakeLeadReader) GetByID(_ context.Context, id uuid.UUID) (leadsrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadsrepo.Lead{}, leadsrepo.ErrNotFound
	}
	return lead, nil
}

type fakeApplier struct {
	calls []leadstransport.ApplyOutcomeRequest
}

func (f *fakeApplier) ApplyOutcome(_ context.Context, leadID, _ uuid.UUID, req leadstransport.ApplyOutcomeRequest) (leadstransport.ApplyOutcomeResponse, error) {
	f.calls = append(f.calls, req)
	return leadstransport.ApplyOutcomeResponse{NewStage: "qualified"}, nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}

func newTestService(leads map[uuid.UUID]leadsrepo.Lead) (*Service, *fakeTaskStore, *fakeApplier) {
	store := newFakeTaskStore()
	applier := &fakeApplier{}
	svc := New(store, &fakeLeadReader{leads: leads}, applier, nopBus{}, time.UTC, logger.New("test"))
	return svc, store, applier
}

func activeLead() leadsrepo.Lead {
	return leadsrepo.Lead{
		ID:               uuid.New(),
		Stage:            "qualified",
		OutcomesSelected: []string{},
	}
}

func TestCompleteDecisionPointRequiresOutcome(t *testing.T) {
	lead := activeLead()
	svc, store, _ := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "follow_up", repository.StatusOpen)

	_, err := svc.Complete(context.Background(), task.ID, uuid.New(), transport.CompleteTaskRequest{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
	if !errors.Is(err, ErrOutcomeRequired) {
		t.Errorf("error = %v, want ErrOutcomeRequired in chain", err)
	}
	if got := store.tasks[task.ID]; got.Status != repository.StatusOpen {
		t.Error("task should remain open when completion is refused")
	}
}

func TestCompleteDecisionPointWithOutcome(t *testing.T) {
	lead := activeLead()
	svc, store, applier := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "follow_up", repository.StatusOpen)

	due := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	resp, err := svc.Complete(context.Background(), task.ID, uuid.New(), transport.CompleteTaskRequest{
		Outcome: &leadstransport.ApplyOutcomeRequest{OutcomeTag: "meeting_scheduled", DueAt: &due},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if len(applier.calls) != 1 || applier.calls[0].OutcomeTag != "meeting_scheduled" {
		t.Errorf("applier calls = %+v, want one meeting_scheduled", applier.calls)
	}
	if resp.Task.Status != repository.StatusCompleted {
		t.Error("task should be completed")
	}
	if resp.Outcome == nil || resp.Outcome.NewStage != "qualified" {
		t.Errorf("outcome = %+v, want applied transition echoed back", resp.Outcome)
	}
	if resp.NextTaskID != nil {
		t.Error("decision-point completion should not auto-chain; the transition schedules next steps")
	}
}

func TestCompleteMeetingAutoChains(t *testing.T) {
	lead := activeLead()
	svc, store, applier := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "meeting", repository.StatusOpen)

	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return fixed }

	resp, err := svc.Complete(context.Background(), task.ID, uuid.New(), transport.CompleteTaskRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if len(applier.calls) != 0 {
		t.Error("meeting completion should not require an outcome")
	}
	if resp.NextTask == nil {
		t.Fatal("expected a chained routine follow_up")
	}
	if resp.NextTask.Kind != "follow_up" {
		t.Errorf("chained kind = %s, want follow_up", resp.NextTask.Kind)
	}
	// qualified stage chains at 48h.
	if want := fixed.Add(48 * time.Hour); !resp.NextTask.DueAt.Equal(want) {
		t.Errorf("chained due = %s, want %s", resp.NextTask.DueAt, want)
	}
}

func TestCompleteClosureOnTerminalLead(t *testing.T) {
	lead := leadsrepo.Lead{ID: uuid.New(), Stage: "lost", OutcomesSelected: []string{}}
	svc, store, applier := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "closure", repository.StatusOpen)

	resp, err := svc.Complete(context.Background(), task.ID, uuid.New(), transport.CompleteTaskRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(applier.calls) != 0 {
		t.Error("closure on a terminal lead should not route through the workflow")
	}
	if resp.NextTaskID != nil {
		t.Error("terminal leads should never auto-chain")
	}
}

func TestCompleteFollowUpOnTerminalLead(t *testing.T) {
	// A follow_up on a closed-out lead is no longer a decision point; it
	// completes without an outcome and without chaining.
	lead := leadsrepo.Lead{ID: uuid.New(), Stage: "won", OutcomesSelected: []string{}}
	svc, store, _ := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "follow_up", repository.StatusOpen)

	resp, err := svc.Complete(context.Background(), task.ID, uuid.New(), transport.CompleteTaskRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.NextTaskID != nil {
		t.Error("no chain expected on a terminal lead")
	}
}

func TestCompleteAlreadyCompleted(t *testing.T) {
	lead := activeLead()
	svc, store, _ := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "closure", repository.StatusCompleted)

	_, err := svc.Complete(context.Background(), task.ID, uuid.New(), transport.CompleteTaskRequest{})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("error = %v, want conflict", err)
	}
}

func TestRescheduleParsesBusinessTime(t *testing.T) {
	lead := activeLead()
	svc, store, _ := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})
	task := store.add(lead.ID, "follow_up", repository.StatusOpen)

	resp, err := svc.Reschedule(context.Background(), task.ID, transport.RescheduleTaskRequest{
		NewDueAt: "2026-04-01T10:30:00",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	want := time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)
	if !resp.DueAt.Equal(want) {
		t.Errorf("dueAt = %s, want %s", resp.DueAt, want)
	}

	_, err = svc.Reschedule(context.Background(), task.ID, transport.RescheduleTaskRequest{NewDueAt: "soon"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestScheduleRejectsTerminalLead(t *testing.T) {
	lead := leadsrepo.Lead{ID: uuid.New(), Stage: "qualified", Invalid: true, OutcomesSelected: []string{}}
	svc, _, _ := newTestService(map[uuid.UUID]leadsrepo.Lead{lead.ID: lead})

	_, err := svc.Schedule(context.Background(), lead.ID, "follow_up", time.Now().Add(time.Hour), "check in")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("error = %v, want conflict", err)
	}
}
