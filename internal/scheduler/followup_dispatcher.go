package scheduler

import (
	"context"
	"time"

	taskrepo "pipeline_backend/internal/tasks/repository"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dispatchLookahead is how far ahead of due time a task may be claimed. The
// queue delivers at the exact due time via ProcessAt, so claiming early only
// moves work off the poll cycle.
const dispatchLookahead = time.Minute

// FollowUpDispatcher polls for tasks entering their due window and enqueues
// a due notification for each, scheduled to fire at the task's due time.
type FollowUpDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *taskrepo.Repository
	interval time.Duration
	log      *logger.Logger
}

func NewFollowUpDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, interval time.Duration, log *logger.Logger) (*FollowUpDispatcher, error) {
	opt, queue, err := connectionFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &FollowUpDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     taskrepo.New(pool),
		interval: interval,
		log:      log,
	}, nil
}

func (d *FollowUpDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *FollowUpDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.sweep(ctx)
	}
}

func (d *FollowUpDispatcher) sweep(ctx context.Context) {
	tasks, err := d.repo.ClaimDueForDispatch(ctx, time.Now().Add(dispatchLookahead), 100)
	if err != nil {
		d.log.Warn("follow-up dispatch claim failed", "error", err)
		return
	}

	for _, t := range tasks {
		job, err := NewFollowUpDueTask(FollowUpDuePayload{
			TaskID: t.ID.String(),
			LeadID: t.LeadID.String(),
			Kind:   t.Kind,
		})
		if err != nil {
			d.log.Error("failed to build follow-up due job", "error", err, "taskId", t.ID)
			_ = d.repo.ResetDispatch(ctx, t.ID)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, job, asynq.ProcessAt(t.DueAt), asynq.Queue(d.queue))
		if err != nil {
			d.log.Error("failed to enqueue follow-up due job", "error", err, "taskId", t.ID)
			_ = d.repo.ResetDispatch(ctx, t.ID)
			continue
		}
		d.log.TaskEvent("followup_dispatched", t.ID, t.LeadID, t.Kind)
	}
}
