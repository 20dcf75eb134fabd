package scheduler

import (
	"context"
	"time"

	"pipeline_backend/internal/events"
	leadsrepo "pipeline_backend/internal/leads/repository"
	"pipeline_backend/platform/logger"
)

// SLASweeper periodically claims leads whose first-response window elapsed
// with no recorded outcome and raises an alert for each. Claiming happens in
// the repository, so concurrent sweepers never double-alert.
type SLASweeper struct {
	leads    leadsrepo.SLAReader
	bus      events.Bus
	target   time.Duration
	interval time.Duration
	log      *logger.Logger

	// Now is swappable in tests.
	Now func() time.Time
}

func NewSLASweeper(leads leadsrepo.SLAReader, bus events.Bus, target, interval time.Duration, log *logger.Logger) *SLASweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SLASweeper{
		leads:    leads,
		bus:      bus,
		target:   target,
		interval: interval,
		log:      log,
		Now:      time.Now,
	}
}

func (s *SLASweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.Sweep(ctx)
	}
}

// Sweep performs one pass. Exposed so the scheduler binary can run an
// immediate pass at startup before the ticker takes over.
func (s *SLASweeper) Sweep(ctx context.Context) {
	now := s.Now()

	breached, err := s.leads.ClaimSLABreached(ctx, now.Add(-s.target), 100)
	if err != nil {
		s.log.Warn("sla sweep failed", "error", err)
		return
	}

	for _, lead := range breached {
		elapsed := now.Sub(*lead.AssignedAt)
		s.log.Warn("lead breached first-response window",
			"leadId", lead.ID, "ownerAgentId", lead.OwnerAgentID, "elapsed", elapsed.String())

		s.bus.Publish(ctx, events.LeadSLAExpired{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			OwnerAgentID: lead.OwnerAgentID,
			AssignedAt:   *lead.AssignedAt,
			Elapsed:      elapsed.String(),
		})
	}
}
