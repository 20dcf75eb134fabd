// Package repository persists leads and their outcome history. Transition
// writes go through ExecuteTransition, which holds a row lock for the whole
// plan-then-write cycle.
package repository

import (
	"context"
	"errors"
	"time"

	"pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// Lead is the persistence shape of a pipeline record.
type Lead struct {
	ID                 uuid.UUID
	Stage              string
	OwnerAgentID       *uuid.UUID
	AssignedAt         *time.Time
	FirstOutcomeAt     *time.Time
	UnreachableCount   int
	OutcomesSelected   []string
	Invalid            bool
	InvalidAt          *time.Time
	RestartedFromLost  bool
	PreviousLostReason *string
	ConsumerName       string
	ConsumerPhone      string
	ConsumerEmail      *string
	Source             *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Domain converts the row into the workflow engine's lead view.
func (l Lead) Domain() domain.Lead {
	return domain.Lead{
		ID:                 l.ID,
		Stage:              domain.Stage(l.Stage),
		OwnerAgentID:       l.OwnerAgentID,
		AssignedAt:         l.AssignedAt,
		FirstOutcomeAt:     l.FirstOutcomeAt,
		UnreachableCount:   l.UnreachableCount,
		OutcomesSelected:   domain.NewOutcomeSet(l.OutcomesSelected),
		Invalid:            l.Invalid,
		InvalidAt:          l.InvalidAt,
		RestartedFromLost:  l.RestartedFromLost,
		PreviousLostReason: l.PreviousLostReason,
	}
}

type CreateLeadParams struct {
	OwnerAgentID  *uuid.UUID
	AssignedAt    *time.Time
	ConsumerName  string
	ConsumerPhone string
	ConsumerEmail *string
	Source        *string
}

type ListParams struct {
	Stage        *string
	OwnerAgentID *uuid.UUID
	Limit        int
	Offset       int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, stage, owner_agent_id, assigned_at, first_outcome_at, unreachable_count,
	outcomes_selected, invalid, invalid_at, restarted_from_lost, previous_lost_reason,
	consumer_name, consumer_phone, consumer_email, source, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Stage, &l.OwnerAgentID, &l.AssignedAt, &l.FirstOutcomeAt, &l.UnreachableCount,
		&l.OutcomesSelected, &l.Invalid, &l.InvalidAt, &l.RestartedFromLost, &l.PreviousLostReason,
		&l.ConsumerName, &l.ConsumerPhone, &l.ConsumerEmail, &l.Source, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (owner_agent_id, assigned_at, consumer_name, consumer_phone, consumer_email, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+leadColumns,
		params.OwnerAgentID, params.AssignedAt, params.ConsumerName, params.ConsumerPhone,
		params.ConsumerEmail, params.Source,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM leads
		WHERE ($1::text IS NULL OR stage = $1)
		  AND ($2::uuid IS NULL OR owner_agent_id = $2)
	`, params.Stage, params.OwnerAgentID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE ($1::text IS NULL OR stage = $1)
		  AND ($2::uuid IS NULL OR owner_agent_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, params.Stage, params.OwnerAgentID, limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.Stage, &l.OwnerAgentID, &l.AssignedAt, &l.FirstOutcomeAt, &l.UnreachableCount,
			&l.OutcomesSelected, &l.Invalid, &l.InvalidAt, &l.RestartedFromLost, &l.PreviousLostReason,
			&l.ConsumerName, &l.ConsumerPhone, &l.ConsumerEmail, &l.Source, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// ClaimSLABreached marks leads whose first-response window elapsed with no
// recorded outcome as notified and returns them. Claimed rows are skipped on
// later sweeps, so each breach raises exactly one alert; the partial index on
// (assigned_at) keeps the scan cheap.
func (r *Repository) ClaimSLABreached(ctx context.Context, cutoff time.Time, limit int) ([]Lead, error) {
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
		FROM leads
		WHERE first_outcome_at IS NULL
		  AND invalid = FALSE
		  AND sla_notified_at IS NULL
		  AND assigned_at IS NOT NULL
		  AND assigned_at <= $1
		  AND stage NOT IN ('won', 'lost')
		ORDER BY assigned_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	)
	UPDATE leads l
	SET sla_notified_at = now(), updated_at = now()
	FROM cte
	WHERE l.id = cte.id
	RETURNING l.id, l.stage, l.owner_agent_id, l.assigned_at, l.first_outcome_at, l.unreachable_count,
		l.outcomes_selected, l.invalid, l.invalid_at, l.restarted_from_lost, l.previous_lost_reason,
		l.consumer_name, l.consumer_phone, l.consumer_email, l.source, l.created_at, l.updated_at`,
		cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.Stage, &l.OwnerAgentID, &l.AssignedAt, &l.FirstOutcomeAt, &l.UnreachableCount,
			&l.OutcomesSelected, &l.Invalid, &l.InvalidAt, &l.RestartedFromLost, &l.PreviousLostReason,
			&l.ConsumerName, &l.ConsumerPhone, &l.ConsumerEmail, &l.Source, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}
