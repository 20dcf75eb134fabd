// Package scheduler runs the background side of the workflow: it dispatches
// follow-up tasks to the queue when they come due and sweeps leads whose
// first-response window has expired.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowUpDue = "tasks.followup.due"

type FollowUpDuePayload struct {
	TaskID string `json:"taskId"`
	LeadID string `json:"leadId"`
	Kind   string `json:"kind"`
}

func NewFollowUpDueTask(payload FollowUpDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpDue, data), nil
}

func ParseFollowUpDuePayload(task *asynq.Task) (FollowUpDuePayload, error) {
	var payload FollowUpDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpDuePayload{}, err
	}
	return payload, nil
}
