package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

type SubmitJobRequest struct {
	PredictorID string `json:"predictor_id" binding:"required"`
	Payload     string `json:"payload" binding:"required"`
	Filename    string `json:"filename"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID          string  `json:"job_id"`
	UserID         string  `json:"user_id"`
	PredictorID    string  `json:"predictor_id"`
	CreditsCharged string  `json:"credits_charged"`
	Status         string  `json:"status"`
	Output         *string `json:"output,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	Filename       string  `json:"filename,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type TopUpRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

type WalletDTO struct {
	UserID    string `json:"user_id"`
	Balance   string `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

type LedgerEntryDTO struct {
	EntryID      string  `json:"entry_id"`
	JobID        *string `json:"job_id,omitempty"`
	Amount       string  `json:"amount"`
	BalanceAfter string  `json:"balance_after"`
	Description  string  `json:"description"`
	CreatedAt    string  `json:"created_at"`
}

type PredictorDTO struct {
	PredictorID string `json:"predictor_id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	CreditCost  string `json:"credit_cost"`
}

// NewJobDTO converts a domain job into its API shape.
func NewJobDTO(job *domain.Job) JobDTO {
	return JobDTO{
		JobID:          job.JobID,
		UserID:         job.UserID,
		PredictorID:    job.PredictorID,
		CreditsCharged: job.CreditsCharged.String(),
		Status:         job.Status,
		Output:         job.Output,
		ErrorMessage:   job.ErrorMessage,
		Filename:       job.Filename,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}
}

// NewWalletDTO converts a domain wallet into its API shape.
func NewWalletDTO(wallet *domain.Wallet) WalletDTO {
	return WalletDTO{
		UserID:    wallet.UserID,
		Balance:   wallet.Balance.String(),
		UpdatedAt: wallet.UpdatedAt.Format(time.RFC3339),
	}
}

// NewLedgerEntryDTO converts a domain ledger entry into its API shape.
func NewLedgerEntryDTO(entry *domain.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		EntryID:      entry.EntryID,
		JobID:        entry.JobID,
		Amount:       entry.Amount.String(),
		BalanceAfter: entry.BalanceAfter.String(),
		Description:  entry.Description,
		CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
	}
}

// NewPredictorDTO converts a domain predictor into its API shape.
func NewPredictorDTO(p *domain.Predictor) PredictorDTO {
	return PredictorDTO{
		PredictorID: p.PredictorID,
		Name:        p.Name,
		Version:     p.Version,
		CreditCost:  p.CreditCost.String(),
	}
}

