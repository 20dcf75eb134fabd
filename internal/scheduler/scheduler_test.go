package scheduler

import (
	"context"
	"testing"
	"time"

	"pipeline_backend/internal/events"
	leadsrepo "pipeline_backend/internal/leads/repository"
	taskrepo "pipeline_backend/internal/tasks/repository"
	"pipeline_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubTaskSource struct {
	task taskrepo.Task
	err  error
}

func (s *stubTaskSource) GetByID(ctx context.Context, id uuid.UUID) (taskrepo.Task, error) {
	if s.err != nil {
		return taskrepo.Task{}, s.err
	}
	return s.task, nil
}

type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(ctx context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *capturingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *capturingBus) Subscribe(eventName string, handler events.Handler) {}

func mustJob(t *testing.T, payload FollowUpDuePayload) *asynq.Task {
	t.Helper()
	job, err := NewFollowUpDueTask(payload)
	if err != nil {
		t.Fatalf("NewFollowUpDueTask: %v", err)
	}
	return job
}

func TestWorkerPublishesFollowUpDue(t *testing.T) {
	taskID := uuid.New()
	leadID := uuid.New()
	bus := &capturingBus{}
	w := &Worker{
		tasks: &stubTaskSource{task: taskrepo.Task{
			ID:     taskID,
			LeadID: leadID,
			Kind:   "follow_up",
			DueAt:  time.Now().Add(-time.Minute),
			Status: taskrepo.StatusOpen,
		}},
		bus: bus,
		log: logger.New("test"),
	}

	job := mustJob(t, FollowUpDuePayload{TaskID: taskID.String(), LeadID: leadID.String(), Kind: "follow_up"})
	if err := w.handleFollowUpDue(context.Background(), job); err != nil {
		t.Fatalf("handleFollowUpDue: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	due, ok := bus.published[0].(events.FollowUpDue)
	if !ok {
		t.Fatalf("expected FollowUpDue, got %T", bus.published[0])
	}
	if due.TaskID != taskID || due.LeadID != leadID || due.Kind != "follow_up" {
		t.Errorf("unexpected event payload: %+v", due)
	}
}

func TestWorkerDropsStaleDeliveries(t *testing.T) {
	taskID := uuid.New()

	cases := []struct {
		name string
		src  *stubTaskSource
	}{
		{
			name: "completed before delivery",
			src: &stubTaskSource{task: taskrepo.Task{
				ID: taskID, LeadID: uuid.New(), Kind: "follow_up",
				DueAt: time.Now().Add(-time.Minute), Status: taskrepo.StatusCompleted,
			}},
		},
		{
			name: "rescheduled to later slot",
			src: &stubTaskSource{task: taskrepo.Task{
				ID: taskID, LeadID: uuid.New(), Kind: "follow_up",
				DueAt: time.Now().Add(2 * time.Hour), Status: taskrepo.StatusOpen,
			}},
		},
		{
			name: "task deleted",
			src:  &stubTaskSource{err: taskrepo.ErrNotFound},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &capturingBus{}
			w := &Worker{tasks: tc.src, bus: bus, log: logger.New("test")}

			job := mustJob(t, FollowUpDuePayload{TaskID: taskID.String(), LeadID: uuid.New().String(), Kind: "follow_up"})
			if err := w.handleFollowUpDue(context.Background(), job); err != nil {
				t.Fatalf("handleFollowUpDue: %v", err)
			}
			if len(bus.published) != 0 {
				t.Errorf("expected no events, got %d", len(bus.published))
			}
		})
	}
}

type stubSLAReader struct {
	leads  []leadsrepo.Lead
	cutoff time.Time
}

func (s *stubSLAReader) ClaimSLABreached(ctx context.Context, cutoff time.Time, limit int) ([]leadsrepo.Lead, error) {
	s.cutoff = cutoff
	return s.leads, nil
}

func TestSLASweeperPublishesExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	owner := uuid.New()
	assigned := now.Add(-45 * time.Minute)

	reader := &stubSLAReader{leads: []leadsrepo.Lead{{
		ID:           uuid.New(),
		Stage:        "new",
		OwnerAgentID: &owner,
		AssignedAt:   &assigned,
	}}}
	bus := &capturingBus{}

	sweeper := NewSLASweeper(reader, bus, 30*time.Minute, 5*time.Minute, logger.New("test"))
	sweeper.Now = func() time.Time { return now }

	sweeper.Sweep(context.Background())

	wantCutoff := now.Add(-30 * time.Minute)
	if !reader.cutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", reader.cutoff, wantCutoff)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.published))
	}
	expired, ok := bus.published[0].(events.LeadSLAExpired)
	if !ok {
		t.Fatalf("expected LeadSLAExpired, got %T", bus.published[0])
	}
	if expired.OwnerAgentID == nil || *expired.OwnerAgentID != owner {
		t.Errorf("expected owner %s on event, got %v", owner, expired.OwnerAgentID)
	}
	if expired.Elapsed != (45 * time.Minute).String() {
		t.Errorf("elapsed = %q, want %q", expired.Elapsed, (45 * time.Minute).String())
	}
}

func TestEnqueueFollowUpAtDueTime(t *testing.T) {
	mr := miniredis.RunT(t)

	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := asynq.NewClient(opt)
	defer client.Close()

	job := mustJob(t, FollowUpDuePayload{TaskID: uuid.New().String(), LeadID: uuid.New().String(), Kind: "meeting"})
	dueAt := time.Now().Add(time.Hour)

	info, err := client.EnqueueContext(context.Background(), job, asynq.ProcessAt(dueAt), asynq.Queue("workflow"))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if info.Queue != "workflow" {
		t.Errorf("queue = %q, want %q", info.Queue, "workflow")
	}
	if info.State != asynq.TaskStateScheduled {
		t.Errorf("state = %v, want scheduled", info.State)
	}

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	scheduled, err := inspector.ListScheduledTasks("workflow")
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(scheduled))
	}
	if scheduled[0].Type != TaskFollowUpDue {
		t.Errorf("type = %q, want %q", scheduled[0].Type, TaskFollowUpDue)
	}
}

func TestRedisClientOptFromURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Errorf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Errorf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Errorf("db = %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Errorf("expected no TLS config")
	}

	insecure, err := redisClientOpt("redis://localhost:6379", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if insecure.TLSConfig == nil || !insecure.TLSConfig.InsecureSkipVerify {
		t.Errorf("expected insecure TLS config")
	}
}
