package repository

import (
	"context"
	"errors"
	"time"

	"pipeline_backend/internal/leads/domain"
	taskrepo "pipeline_backend/internal/tasks/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TaskInserter creates task rows inside the transition transaction, so the
// stage change and its follow-up tasks commit or roll back together.
type TaskInserter interface {
	InsertTx(ctx context.Context, tx pgx.Tx, params taskrepo.InsertParams) (taskrepo.Task, error)
}

// TransitionResult carries everything a transition produced: the lead as
// committed, the plan that was applied, and the created tasks.
type TransitionResult struct {
	Lead  Lead
	Plan  domain.TransitionPlan
	Tasks []taskrepo.Task
}

// ExecuteTransition applies one outcome to one lead atomically. It locks
// the lead row, hands the current snapshot to the planner, and writes the
// resulting plan: outcome records, the lead update, and follow-up tasks.
// A planning error rolls back with zero side effects. Concurrent calls on
// the same lead serialize on the row lock, so the second caller always
// plans against the committed post-transition state.
func (r *Repository) ExecuteTransition(
	ctx context.Context,
	leadID uuid.UUID,
	createdBy uuid.UUID,
	now time.Time,
	tasks TaskInserter,
	plan func(domain.Lead) (domain.TransitionPlan, error),
) (TransitionResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransitionResult{}, err
	}
	defer tx.Rollback(ctx)

	current, err := scanLead(tx.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE
	`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return TransitionResult{}, ErrNotFound
	}
	if err != nil {
		return TransitionResult{}, err
	}

	p, err := plan(current.Domain())
	if err != nil {
		return TransitionResult{}, err
	}

	for _, rec := range p.Records {
		_, err := tx.Exec(ctx, `
			INSERT INTO outcome_records
				(lead_id, outcome_tag, db_outcome, reason_id, client_still_with_us, notes, due_at, synthetic, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, leadID, string(rec.Tag), string(rec.DBOutcome), rec.ReasonID, rec.ClientStillWithUs,
			rec.Notes, rec.DueAt, rec.Synthetic, createdBy)
		if err != nil {
			return TransitionResult{}, err
		}
	}

	selected := nextSelected(current.OutcomesSelected, p)

	var firstOutcomeAt *time.Time
	if current.FirstOutcomeAt != nil {
		firstOutcomeAt = current.FirstOutcomeAt
	} else if p.SetFirstOutcome {
		firstOutcomeAt = &now
	}

	invalid := current.Invalid
	invalidAt := current.InvalidAt
	if p.SetInvalid {
		invalid = true
		invalidAt = &now
	}

	restarted := current.RestartedFromLost
	prevReason := current.PreviousLostReason
	if p.RestartFromLost {
		restarted = true
		prevReason = p.PreviousLostReason
	}

	updated, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET stage = $1,
		    outcomes_selected = $2,
		    unreachable_count = $3,
		    first_outcome_at = $4,
		    invalid = $5,
		    invalid_at = $6,
		    restarted_from_lost = $7,
		    previous_lost_reason = $8,
		    updated_at = now()
		WHERE id = $9
		RETURNING `+leadColumns,
		string(p.NewStage), selected, p.UnreachableCount, firstOutcomeAt,
		invalid, invalidAt, restarted, prevReason, leadID,
	))
	if err != nil {
		return TransitionResult{}, err
	}

	created := make([]taskrepo.Task, 0, len(p.Tasks))
	for _, spec := range p.Tasks {
		task, err := tasks.InsertTx(ctx, tx, taskrepo.InsertParams{
			LeadID:      leadID,
			Kind:        string(spec.Kind),
			DueAt:       spec.DueAt,
			Description: spec.Description,
		})
		if err != nil {
			return TransitionResult{}, err
		}
		created = append(created, task)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransitionResult{}, err
	}

	return TransitionResult{Lead: updated, Plan: p, Tasks: created}, nil
}

// nextSelected computes the post-transition outcomes_selected array:
// a restart wipes it, otherwise the plan's tags are unioned in.
func nextSelected(current []string, p domain.TransitionPlan) []string {
	if p.ClearOutcomes {
		return []string{}
	}

	set := domain.NewOutcomeSet(current)
	for _, tag := range p.AddOutcomes {
		set[tag] = struct{}{}
	}
	return set.Tags()
}
