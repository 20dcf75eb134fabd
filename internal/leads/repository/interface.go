package repository

import (
	"context"
	"time"

	"pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter creates pipeline records. Stage and workflow fields are never
// written here; only ExecuteTransition touches those.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
}

// TransitionExecutor applies outcome transitions under a row lock.
type TransitionExecutor interface {
	ExecuteTransition(
		ctx context.Context,
		leadID uuid.UUID,
		createdBy uuid.UUID,
		now time.Time,
		tasks TaskInserter,
		plan func(domain.Lead) (domain.TransitionPlan, error),
	) (TransitionResult, error)
}

// TimelineReader provides the append-only outcome history.
type TimelineReader interface {
	ListTimeline(ctx context.Context, leadID uuid.UUID) ([]OutcomeRecord, error)
}

// SLAReader feeds the SLA sweeper.
type SLAReader interface {
	ClaimSLABreached(ctx context.Context, cutoff time.Time, limit int) ([]Lead, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	TransitionExecutor
	TimelineReader
	SLAReader
}

// Ensure Repository implements LeadsRepository
var _ LeadsRepository = (*Repository)(nil)
