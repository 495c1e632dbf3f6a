package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeActivationEmail is the task type for activation link delivery.
	TaskTypeActivationEmail = "mail:activation"
	// TaskTypeSweep is the task type for the expired-row maintenance sweep.
	TaskTypeSweep = "maintenance:sweep"
)

// ActivationEmailPayload describes an activation email to deliver.
type ActivationEmailPayload struct {
	To    string `json:"to"`
	Token string `json:"token"`
}

// NewActivationEmailTask constructs an Asynq task.
func NewActivationEmailTask(payload ActivationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeActivationEmail, data), nil
}

// NewSweepTask constructs the maintenance sweep task.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSweep, nil)
}

// Enqueuer publishes tasks to the broker. It implements the account store's
// activation Notifier contract.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer on top of an asynq client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// NotifyActivation enqueues the activation email for background delivery.
func (e *Enqueuer) NotifyActivation(ctx context.Context, email, token string) error {
	task, err := NewActivationEmailTask(ActivationEmailPayload{To: email, Token: token})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5))
	return err
}
