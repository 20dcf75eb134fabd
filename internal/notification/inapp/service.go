package inapp

import (
	"context"

	"pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo *Repository
	log  *logger.Logger
}

func NewService(repo *Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type SendParams struct {
	AgentID uuid.UUID
	Kind    string
	LeadID  *uuid.UUID
	TaskID  *uuid.UUID
	Payload map[string]any
}

// Send persists the notification. Failures are logged, not propagated;
// notification delivery never blocks the workflow that triggered it.
func (s *Service) Send(ctx context.Context, p SendParams) {
	if _, err := s.repo.Create(ctx, CreateParams{
		AgentID: p.AgentID,
		Kind:    p.Kind,
		LeadID:  p.LeadID,
		TaskID:  p.TaskID,
		Payload: p.Payload,
	}); err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "agentId", p.AgentID, "kind", p.Kind)
	}
}

func (s *Service) List(ctx context.Context, agentID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error) {
	return s.repo.List(ctx, agentID, unreadOnly, limit)
}

func (s *Service) CountUnread(ctx context.Context, agentID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, agentID)
}

func (s *Service) MarkRead(ctx context.Context, id, agentID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, agentID)
}

func (s *Service) MarkAllRead(ctx context.Context, agentID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, agentID)
}
