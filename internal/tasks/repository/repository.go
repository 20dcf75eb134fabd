// Package repository persists follow-up tasks. Tasks are created either
// inside a lead transition transaction (via InsertTx) or directly by the
// scheduler; completion and rescheduling run in their own transactions.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("task not found")
	ErrAlreadyCompleted = errors.New("task already completed")
)

const (
	StatusOpen      = "open"
	StatusCompleted = "completed"
)

type Task struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	Kind          string
	DueAt         time.Time
	Status        string
	Description   string
	LinkedEventID *uuid.UUID
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InsertParams struct {
	LeadID        uuid.UUID
	Kind          string
	DueAt         time.Time
	Description   string
	LinkedEventID *uuid.UUID
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `id, lead_id, kind, due_at, status, description, linked_event_id, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.LeadID, &t.Kind, &t.DueAt, &t.Status, &t.Description,
		&t.LinkedEventID, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// InsertTx creates a task inside the caller's transaction. Lead transitions
// use this so the task lands atomically with the stage change.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, params InsertParams) (Task, error) {
	return scanTask(tx.QueryRow(ctx, `
		INSERT INTO tasks (lead_id, kind, due_at, description, linked_event_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		params.LeadID, params.Kind, params.DueAt, params.Description, params.LinkedEventID,
	))
}

// Insert creates a standalone task outside any lead transition. Duplicates
// of the same kind are permitted; the UI surfaces the soonest.
func (r *Repository) Insert(ctx context.Context, params InsertParams) (Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (lead_id, kind, due_at, description, linked_event_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+taskColumns,
		params.LeadID, params.Kind, params.DueAt, params.Description, params.LinkedEventID,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Task, error) {
	task, err := scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return task, err
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE lead_id = $1
		ORDER BY due_at ASC, created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListOpenDue returns open tasks whose due time has passed, oldest first.
// The scheduler uses this to publish due notifications.
func (r *Repository) ListOpenDue(ctx context.Context, before time.Time, limit int) ([]Task, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1 AND due_at <= $2
		ORDER BY due_at ASC
		LIMIT $3
	`, StatusOpen, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ClaimDueForDispatch marks open tasks inside the dispatch window as notified
// and returns them. Claimed rows are skipped on subsequent sweeps, so each due
// task is enqueued exactly once even with multiple dispatcher instances.
func (r *Repository) ClaimDueForDispatch(ctx context.Context, before time.Time, limit int) ([]Task, error) {
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM tasks
		WHERE status = $1 AND notified_at IS NULL AND due_at <= $2
		ORDER BY due_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	UPDATE tasks t
	SET notified_at = now(), updated_at = now()
	FROM cte
	WHERE t.id = cte.id
	RETURNING t.id, t.lead_id, t.kind, t.due_at, t.status, t.description,
		t.linked_event_id, t.completed_at, t.created_at, t.updated_at`,
		StatusOpen, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectTasks(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

// ResetDispatch releases a dispatch claim so a failed enqueue is retried on
// the next sweep.
func (r *Repository) ResetDispatch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE tasks SET notified_at = NULL, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// CompleteWithChain marks a task completed and, when chain is non-nil,
// creates the next routine task in the same transaction. Completing an
// already-completed task fails with ErrAlreadyCompleted.
func (r *Repository) CompleteWithChain(ctx context.Context, id uuid.UUID, chain *InsertParams) (Task, *Task, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Task{}, nil, err
	}
	defer tx.Rollback(ctx)

	completed, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET status = $1, completed_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+taskColumns,
		StatusCompleted, id, StatusOpen,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing task from one that already closed.
		var status string
		probeErr := tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&status)
		if errors.Is(probeErr, pgx.ErrNoRows) {
			return Task{}, nil, ErrNotFound
		}
		if probeErr != nil {
			return Task{}, nil, probeErr
		}
		return Task{}, nil, ErrAlreadyCompleted
	}
	if err != nil {
		return Task{}, nil, err
	}

	var next *Task
	if chain != nil {
		chained, err := r.InsertTx(ctx, tx, *chain)
		if err != nil {
			return Task{}, nil, err
		}
		next = &chained
	}

	if err := tx.Commit(ctx); err != nil {
		return Task{}, nil, err
	}
	return completed, next, nil
}

// Reschedule moves an open task's due time. Rescheduling a meeting task
// also releases the meeting_scheduled idempotency guard on the lead so the
// meeting can be rebooked through the normal outcome flow.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, newDueAt time.Time) (Task, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Task{}, err
	}
	defer tx.Rollback(ctx)

	// Clearing notified_at re-arms dispatch for the new due time.
	task, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks
		SET due_at = $1, notified_at = NULL, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+taskColumns,
		newDueAt, id, StatusOpen,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var status string
		probeErr := tx.QueryRow(ctx, `SELECT status FROM tasks WHERE id = $1`, id).Scan(&status)
		if errors.Is(probeErr, pgx.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		if probeErr != nil {
			return Task{}, probeErr
		}
		return Task{}, ErrAlreadyCompleted
	}
	if err != nil {
		return Task{}, err
	}

	if task.Kind == "meeting" {
		_, err = tx.Exec(ctx, `
			UPDATE leads
			SET outcomes_selected = array_remove(outcomes_selected, 'meeting_scheduled'),
			    updated_at = now()
			WHERE id = $1
		`, task.LeadID)
		if err != nil {
			return Task{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Task{}, err
	}
	return task, nil
}

func collectTasks(rows pgx.Rows) ([]Task, error) {
	items := make([]Task, 0)
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.LeadID, &t.Kind, &t.DueAt, &t.Status, &t.Description,
			&t.LinkedEventID, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
