// Package wire defines the JSON envelopes exchanged over the broker. Both
// envelopes carry the job id, which doubles as the AMQP correlation id.
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskMessage carries a job's input to a worker. Produced once per job, by
// the dispatcher only.
type TaskMessage struct {
	JobID       string    `json:"job_id"`
	UserID      string    `json:"user_id"`
	PredictorID string    `json:"predictor_id"`
	Payload     string    `json:"payload"`
	Filename    string    `json:"filename"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Validate checks the fields a worker cannot proceed without.
func (m *TaskMessage) Validate() error {
	if m.JobID == "" {
		return fmt.Errorf("missing required field: job_id")
	}
	if m.UserID == "" {
		return fmt.Errorf("missing required field: user_id")
	}
	if m.Payload == "" {
		return fmt.Errorf("missing required field: payload")
	}
	return nil
}

// ResultMessage carries a job's outcome back from a worker. Intended to be
// produced at most once per job, but broker delivery is at-least-once, so
// consumers must tolerate duplicates.
type ResultMessage struct {
	JobID          string    `json:"job_id"`
	UserID         string    `json:"user_id"`
	WorkerID       string    `json:"worker_id"`
	Success        bool      `json:"success"`
	Output         *string   `json:"output"`
	Error          *string   `json:"error"`
	Confidence     float64   `json:"confidence"`
	ProcessingTime float64   `json:"processing_time_seconds"`
	CompletedAt    time.Time `json:"completed_at"`
}

// DecodeTaskMessage parses a task envelope from a broker delivery body.
func DecodeTaskMessage(body []byte) (*TaskMessage, error) {
	var msg TaskMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode task message: %w", err)
	}
	return &msg, nil
}

// DecodeResultMessage parses a result envelope from a broker delivery body.
func DecodeResultMessage(body []byte) (*ResultMessage, error) {
	var msg ResultMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode result message: %w", err)
	}
	if msg.JobID == "" {
		return nil, fmt.Errorf("result message missing job_id")
	}
	return &msg, nil
}
