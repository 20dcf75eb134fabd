package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutcomeRecord is one append-only audit entry on a lead's timeline.
type OutcomeRecord struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	OutcomeTag        string
	DBOutcome         string
	ReasonID          *string
	ClientStillWithUs *bool
	Notes             *string
	DueAt             *time.Time
	Synthetic         bool
	CreatedBy         uuid.UUID
	CreatedAt         time.Time
}

// ListTimeline returns the lead's outcome history, oldest first, synthetic
// escalation records included.
func (r *Repository) ListTimeline(ctx context.Context, leadID uuid.UUID) ([]OutcomeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, outcome_tag, db_outcome, reason_id, client_still_with_us,
		       notes, due_at, synthetic, created_by, created_at
		FROM outcome_records
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]OutcomeRecord, 0)
	for rows.Next() {
		var rec OutcomeRecord
		if err := rows.Scan(
			&rec.ID, &rec.LeadID, &rec.OutcomeTag, &rec.DBOutcome, &rec.ReasonID,
			&rec.ClientStillWithUs, &rec.Notes, &rec.DueAt, &rec.Synthetic,
			&rec.CreatedBy, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
