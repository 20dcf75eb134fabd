package scheduler

import (
	"context"
	"errors"
	"time"

	"pipeline_backend/internal/events"
	taskrepo "pipeline_backend/internal/tasks/repository"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskSource re-reads a task at delivery time so stale queue entries are
// dropped instead of notifying about work that no longer exists.
type TaskSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (taskrepo.Task, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	tasks  TaskSource
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connectionFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		tasks:  taskrepo.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskFollowUpDue, w.handleFollowUpDue)

	return w, nil
}

func (w *Worker) handleFollowUpDue(ctx context.Context, job *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseFollowUpDuePayload(job)
	if err != nil {
		return err
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return err
	}

	task, err := w.tasks.GetByID(ctx, taskID)
	if errors.Is(err, taskrepo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	// Completed between enqueue and delivery, or rescheduled to a later
	// slot. Either way this delivery is stale; a reschedule re-arms the
	// dispatcher for the new due time.
	if task.Status != taskrepo.StatusOpen || task.DueAt.After(time.Now().Add(time.Second)) {
		return nil
	}

	w.log.TaskEvent("followup_due", task.ID, task.LeadID, task.Kind)

	return w.bus.PublishSync(ctx, events.FollowUpDue{
		BaseEvent: events.NewBaseEvent(),
		TaskID:    task.ID,
		LeadID:    task.LeadID,
		Kind:      task.Kind,
		DueAt:     task.DueAt,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
