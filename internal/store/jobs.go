package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

const jobColumns = `
	job_id, user_id, predictor_id, credits_charged, status,
	output, error_message, filename, created_at, updated_at
`

// CreateJobWithCharge applies the credit debit and the pending job insert as
// one transaction. The charge is pessimistic: it lands before any worker has
// attempted the job. A debit that would drive the balance negative rolls the
// whole unit back with ErrInsufficientCredits.
func (s *Store) CreateJobWithCharge(ctx context.Context, job *domain.Job) error {
	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.debitWallet(ctx, tx, job.UserID, job.CreditsCharged)
		if err != nil {
			return err
		}

		// The job row must land before the ledger entry: the entry's job_id
		// references it.
		query := `
			INSERT INTO jobs (
				job_id, user_id, predictor_id, credits_charged,
				status, filename, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		_, err = tx.ExecContext(ctx, query,
			job.JobID,
			job.UserID,
			job.PredictorID,
			job.CreditsCharged,
			job.Status,
			job.Filename,
			job.CreatedAt,
			job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}

		return s.appendLedgerEntry(ctx, tx, &domain.LedgerEntry{
			UserID:       job.UserID,
			JobID:        &job.JobID,
			Amount:       job.CreditsCharged.Neg(),
			BalanceAfter: balance,
			Description:  fmt.Sprintf("Charge for job %s", job.JobID),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("Job created and charged",
		slog.String("job_id", job.JobID),
		slog.String("user_id", job.UserID),
		slog.String("credits_charged", job.CreditsCharged.String()),
	)

	return nil
}

// GetJob retrieves a job by its id.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ClaimJob moves a job to in_progress when a worker accepts its task
// message. The claim is idempotent across redeliveries: a job already
// in_progress can be claimed again by another worker. It returns false when
// the job is cancelled, terminal, or missing, in which case the task must be
// dropped.
func (s *Store) ClaimJob(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status IN ($3, $1)
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusInProgress, jobID, domain.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Job not claimable - cancelled, finished, or missing",
			slog.String("job_id", jobID),
		)
		return false, nil
	}

	return true, nil
}

// FinalizeJob writes a job's terminal state. The write is an idempotent
// upsert keyed by job id: it only applies while the job is non-terminal, so
// a duplicate result message leaves the row untouched. Returns false when
// nothing was updated.
func (s *Store) FinalizeJob(ctx context.Context, jobID string, success bool, output, errorMessage *string) (bool, error) {
	status := domain.JobStatusError
	if success {
		status = domain.JobStatusDone
	}

	query := `
		UPDATE jobs
		SET status = $1,
		    output = $2,
		    error_message = $3,
		    updated_at = NOW()
		WHERE job_id = $4
		  AND status NOT IN ($5, $6, $7)
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		output,
		errorMessage,
		jobID,
		domain.JobStatusDone,
		domain.JobStatusError,
		domain.JobStatusCancelled,
	)
	if err != nil {
		return false, fmt.Errorf("failed to finalize job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return false, nil
	}

	s.logger.Info("Job finalized",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return true, nil
}

// CancelPendingJob cancels a job and refunds its charge. The status check
// and transition are a single compare-and-swap so a cancellation racing a
// worker that has already claimed the message always loses.
func (s *Store) CancelPendingJob(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	var cancelled domain.Job

	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE jobs
			SET status = $1,
			    updated_at = NOW()
			WHERE job_id = $2
			  AND user_id = $3
			  AND status = $4
			RETURNING ` + jobColumns

		err := tx.GetContext(ctx, &cancelled, query,
			domain.JobStatusCancelled, jobID, userID, domain.JobStatusPending)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Distinguish a missing job from one already claimed.
				var exists bool
				checkErr := tx.GetContext(ctx, &exists,
					`SELECT EXISTS (SELECT 1 FROM jobs WHERE job_id = $1 AND user_id = $2)`,
					jobID, userID)
				if checkErr != nil {
					return fmt.Errorf("failed to check job existence: %w", checkErr)
				}
				if !exists {
					return domain.ErrJobNotFound
				}
				return domain.ErrAlreadyInProgress
			}
			return fmt.Errorf("failed to cancel job: %w", err)
		}

		balance, err := s.creditWallet(ctx, tx, userID, cancelled.CreditsCharged)
		if err != nil {
			return err
		}

		return s.appendLedgerEntry(ctx, tx, &domain.LedgerEntry{
			UserID:       userID,
			JobID:        &cancelled.JobID,
			Amount:       cancelled.CreditsCharged,
			BalanceAfter: balance,
			Description:  fmt.Sprintf("Refund for cancelled job %s", jobID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job cancelled and refunded",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
		slog.String("refund", cancelled.CreditsCharged.String()),
	)

	return &cancelled, nil
}

// JobFilter narrows a job listing.
type JobFilter struct {
	UserID   string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is an opaque (created_at, job_id) position for keyset pagination.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs matching the filter, newest first.
// The extra row lets the caller detect another page.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}
