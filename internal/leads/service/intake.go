package service

import (
	"context"
	"errors"
	"time"

	"pipeline_backend/internal/events"
	"pipeline_backend/internal/leads/repository"
	"pipeline_backend/internal/leads/transport"
	"pipeline_backend/platform/apperr"
	"pipeline_backend/platform/phone"

	"github.com/google/uuid"
)

// IntakeStore is what intake needs from persistence.
type IntakeStore interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
}

// IntakeService creates pipeline records. Leads enter with stage new; the
// workflow engine owns everything after that.
type IntakeService struct {
	store IntakeStore
	bus   events.Bus

	Now func() time.Time
}

func NewIntake(store IntakeStore, bus events.Bus) *IntakeService {
	return &IntakeService{store: store, bus: bus, Now: time.Now}
}

func (s *IntakeService) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	params := repository.CreateLeadParams{
		ConsumerName:  req.Name,
		ConsumerPhone: phone.NormalizeE164(req.Phone),
	}
	if req.Email != "" {
		params.ConsumerEmail = &req.Email
	}
	if req.Source != "" {
		params.Source = &req.Source
	}
	if req.OwnerAgentID != nil {
		// Assignment starts the SLA response window.
		now := s.Now().UTC()
		params.OwnerAgentID = req.OwnerAgentID
		params.AssignedAt = &now
	}

	lead, err := s.store.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		OwnerAgentID:  lead.OwnerAgentID,
		Source:        req.Source,
		ConsumerName:  lead.ConsumerName,
		ConsumerPhone: lead.ConsumerPhone,
		ConsumerEmail: req.Email,
	})

	return transport.ToLeadResponse(lead), nil
}

func (s *IntakeService) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponse(lead), nil
}

func (s *IntakeService) List(ctx context.Context, params repository.ListParams) (transport.LeadListResponse, error) {
	leads, total, err := s.store.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}
	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, transport.ToLeadResponse(lead))
	}
	return transport.LeadListResponse{Items: items, Total: total}, nil
}
