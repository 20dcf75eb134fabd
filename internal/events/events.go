// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"pipeline_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	OwnerAgentID  *uuid.UUID `json:"ownerAgentId,omitempty"`
	Source        string     `json:"source,omitempty"`
	ConsumerName  string     `json:"consumerName"`
	ConsumerPhone string     `json:"consumerPhone"`
	ConsumerEmail string     `json:"consumerEmail,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// OutcomeRecorded is published after an outcome transition commits.
type OutcomeRecorded struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OutcomeTag string    `json:"outcomeTag"`
	FromStage  string    `json:"fromStage"`
	NewStage   string    `json:"newStage"`
	AgentID    uuid.UUID `json:"agentId"`
	Forced     bool      `json:"forced"`
}

func (e OutcomeRecorded) EventName() string { return "leads.outcome.recorded" }

// LeadEscalated is published when repeated failed contact attempts force a
// lead to lost. Carries the count that tripped the threshold.
type LeadEscalated struct {
	BaseEvent
	LeadID           uuid.UUID  `json:"leadId"`
	OwnerAgentID     *uuid.UUID `json:"ownerAgentId,omitempty"`
	UnreachableCount int        `json:"unreachableCount"`
}

func (e LeadEscalated) EventName() string { return "leads.lead.escalated" }

// LeadSLAExpired is published by the SLA sweeper when a lead's first-response
// window elapses with no recorded outcome.
type LeadSLAExpired struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	OwnerAgentID *uuid.UUID `json:"ownerAgentId,omitempty"`
	AssignedAt   time.Time  `json:"assignedAt"`
	Elapsed      string     `json:"elapsed"`
}

func (e LeadSLAExpired) EventName() string { return "leads.sla.expired" }

// =============================================================================
// Task Domain Events
// =============================================================================

// TaskScheduled is published when a follow-up task is created, either as a
// transition side effect or by auto-chaining.
type TaskScheduled struct {
	BaseEvent
	TaskID uuid.UUID `json:"taskId"`
	LeadID uuid.UUID `json:"leadId"`
	Kind   string    `json:"kind"`
	DueAt  time.Time `json:"dueAt"`
}

func (e TaskScheduled) EventName() string { return "tasks.task.scheduled" }

// TaskCompleted is published when a task closes.
type TaskCompleted struct {
	BaseEvent
	TaskID     uuid.UUID  `json:"taskId"`
	LeadID     uuid.UUID  `json:"leadId"`
	Kind       string     `json:"kind"`
	AgentID    uuid.UUID  `json:"agentId"`
	NextTaskID *uuid.UUID `json:"nextTaskId,omitempty"`
}

func (e TaskCompleted) EventName() string { return "tasks.task.completed" }

// TaskRescheduled is published when a task's due time moves.
type TaskRescheduled struct {
	BaseEvent
	TaskID   uuid.UUID `json:"taskId"`
	LeadID   uuid.UUID `json:"leadId"`
	Kind     string    `json:"kind"`
	OldDueAt time.Time `json:"oldDueAt"`
	NewDueAt time.Time `json:"newDueAt"`
}

func (e TaskRescheduled) EventName() string { return "tasks.task.rescheduled" }

// FollowUpDue is published by the scheduler when an open task reaches its
// due time, so agents get nudged in-app.
type FollowUpDue struct {
	BaseEvent
	TaskID uuid.UUID `json:"taskId"`
	LeadID uuid.UUID `json:"leadId"`
	Kind   string    `json:"kind"`
	DueAt  time.Time `json:"dueAt"`
}

func (e FollowUpDue) EventName() string { return "tasks.followup.due" }
