// Package notification turns workflow events into in-app notifications for
// the owning agent. The module subscribes to the event bus so the leads and
// tasks modules never know notifications exist.
package notification

import (
	"context"

	"pipeline_backend/internal/events"
	apphttp "pipeline_backend/internal/http"
	leadsrepo "pipeline_backend/internal/leads/repository"
	notifhandler "pipeline_backend/internal/notification/handler"
	"pipeline_backend/internal/notification/inapp"
	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LeadOwnerResolver finds the agent who should be notified about a lead.
type LeadOwnerResolver interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
}

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *notifhandler.Handler
	svc     *inapp.Service
}

// NewModule wires the in-app notification pipeline and subscribes to the
// workflow events that agents care about.
func NewModule(pool *pgxpool.Pool, leads LeadOwnerResolver, eventBus events.Bus, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)
	svc := inapp.NewService(repo, log)

	m := &Module{
		handler: notifhandler.New(svc),
		svc:     svc,
	}
	m.subscribe(eventBus, leads, log)
	return m
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the notification routes under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

func (m *Module) subscribe(bus events.Bus, leads LeadOwnerResolver, log *logger.Logger) {
	bus.Subscribe(events.FollowUpDue{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.FollowUpDue)
		if !ok {
			return nil
		}
		owner, ok := m.resolveOwner(ctx, leads, e.LeadID, log)
		if !ok {
			return nil
		}
		m.svc.Send(ctx, inapp.SendParams{
			AgentID: owner,
			Kind:    "followup_due",
			LeadID:  &e.LeadID,
			TaskID:  &e.TaskID,
			Payload: map[string]any{"kind": e.Kind, "dueAt": e.DueAt},
		})
		return nil
	}))

	bus.Subscribe(events.LeadEscalated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadEscalated)
		if !ok {
			return nil
		}
		if e.OwnerAgentID == nil {
			return nil
		}
		m.svc.Send(ctx, inapp.SendParams{
			AgentID: *e.OwnerAgentID,
			Kind:    "lead_escalated",
			LeadID:  &e.LeadID,
			Payload: map[string]any{"unreachableCount": e.UnreachableCount},
		})
		return nil
	}))

	bus.Subscribe(events.LeadSLAExpired{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadSLAExpired)
		if !ok {
			return nil
		}
		if e.OwnerAgentID == nil {
			return nil
		}
		m.svc.Send(ctx, inapp.SendParams{
			AgentID: *e.OwnerAgentID,
			Kind:    "sla_expired",
			LeadID:  &e.LeadID,
			Payload: map[string]any{"assignedAt": e.AssignedAt, "elapsed": e.Elapsed},
		})
		return nil
	}))
}

func (m *Module) resolveOwner(ctx context.Context, leads LeadOwnerResolver, leadID uuid.UUID, log *logger.Logger) (uuid.UUID, bool) {
	lead, err := leads.GetByID(ctx, leadID)
	if err != nil {
		log.Error("failed to resolve lead owner for notification", "error", err, "leadId", leadID)
		return uuid.Nil, false
	}
	if lead.OwnerAgentID == nil {
		return uuid.Nil, false
	}
	return *lead.OwnerAgentID, true
}
