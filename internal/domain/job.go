package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusDone       = "done"
	JobStatusError      = "error"
	JobStatusCancelled  = "cancelled"
)

// TerminalStatuses lists the statuses a job can never leave.
var TerminalStatuses = []string{JobStatusDone, JobStatusError, JobStatusCancelled}

// Job represents one user-submitted recognition request. The job id is the
// sole correlation key across the store row, the task message, and the
// result message.
type Job struct {
	JobID          string          `db:"job_id"`
	UserID         string          `db:"user_id"`
	PredictorID    string          `db:"predictor_id"`
	CreditsCharged decimal.Decimal `db:"credits_charged"`
	Status         string          `db:"status"`
	Output         *string         `db:"output"`
	ErrorMessage   *string         `db:"error_message"`
	Filename       string          `db:"filename"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// IsTerminal reports whether the job has reached an immutable state.
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobStatusDone, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}
