// Package inapp persists and serves in-app notifications for agents.
package inapp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        uuid.UUID       `json:"id"`
	AgentID   uuid.UUID       `json:"agentId"`
	Kind      string          `json:"kind"`
	LeadID    *uuid.UUID      `json:"leadId,omitempty"`
	TaskID    *uuid.UUID      `json:"taskId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"createdAt"`
}

type CreateParams struct {
	AgentID uuid.UUID
	Kind    string
	LeadID  *uuid.UUID
	TaskID  *uuid.UUID
	Payload map[string]any
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return Notification{}, err
	}
	if p.Payload == nil {
		payload = []byte("{}")
	}

	var n Notification
	err = r.pool.QueryRow(ctx, `
		INSERT INTO notifications (agent_id, kind, lead_id, task_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, agent_id, kind, lead_id, task_id, payload, read, created_at
	`, p.AgentID, p.Kind, p.LeadID, p.TaskID, payload).Scan(
		&n.ID, &n.AgentID, &n.Kind, &n.LeadID, &n.TaskID, &n.Payload, &n.Read, &n.CreatedAt,
	)
	return n, err
}

func (r *Repository) List(ctx context.Context, agentID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_id, kind, lead_id, task_id, payload, read, created_at
		FROM notifications
		WHERE agent_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3
	`, agentID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AgentID, &n.Kind, &n.LeadID, &n.TaskID, &n.Payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) CountUnread(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE agent_id = $1 AND read = FALSE
	`, agentID).Scan(&count)
	return count, err
}

// MarkRead flips one notification, scoped to the owning agent.
func (r *Repository) MarkRead(ctx context.Context, id, agentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND agent_id = $2
	`, id, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, agentID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE agent_id = $1 AND read = FALSE
	`, agentID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
