// Package transport defines the request and response shapes of the tasks API.
package transport

import (
	"time"

	leadstransport "pipeline_backend/internal/leads/transport"
	"pipeline_backend/internal/tasks/repository"

	"github.com/google/uuid"
)

// CompleteTaskRequest closes a task. For decision-point tasks the embedded
// outcome is mandatory and is applied to the lead first.
type CompleteTaskRequest struct {
	Outcome *leadstransport.ApplyOutcomeRequest `json:"outcome" validate:"omitempty"`
}

// RescheduleTaskRequest moves a task's due time. NewDueAt is a
// business-local wall-clock string.
type RescheduleTaskRequest struct {
	NewDueAt string `json:"newDueAt" validate:"required"`
}

type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	Kind        string     `json:"kind"`
	DueAt       time.Time  `json:"dueAt"`
	Status      string     `json:"status"`
	Description string     `json:"description"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
}

type CompleteTaskResponse struct {
	Task       TaskResponse                         `json:"task"`
	NextTaskID *uuid.UUID                           `json:"nextTaskId,omitempty"`
	NextTask   *TaskResponse                        `json:"nextTask,omitempty"`
	Outcome    *leadstransport.ApplyOutcomeResponse `json:"outcome,omitempty"`
}

// ToTaskResponse maps a repository row to the API shape.
func ToTaskResponse(task repository.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		LeadID:      task.LeadID,
		Kind:        task.Kind,
		DueAt:       task.DueAt,
		Status:      task.Status,
		Description: task.Description,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
	}
}

// ToTaskListResponse maps repository rows to the API shape.
func ToTaskListResponse(tasks []repository.Task) TaskListResponse {
	items := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, ToTaskResponse(t))
	}
	return TaskListResponse{Items: items}
}
