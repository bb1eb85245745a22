// Package handler maps HTTP requests onto the pipeline's operations and the
// pipeline's errors onto status codes.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
	"github.com/tdnguyen-dev/recognition-be/internal/store"
)

// JobSubmitter admits and withdraws jobs.
type JobSubmitter interface {
	Submit(ctx context.Context, userID, predictorID, payload, filename string) (*domain.Job, error)
	Cancel(ctx context.Context, jobID, userID string) (*domain.Job, error)
}

// ResultFetcher blocks until a job is terminal or the timeout passes.
type ResultFetcher interface {
	Fetch(ctx context.Context, userID, jobID string, timeout time.Duration) (*domain.Job, error)
}

// JobReader reads jobs from the durable store.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter store.JobFilter) ([]domain.Job, error)
}

// WalletStore covers the credit endpoints.
type WalletStore interface {
	GetWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	TopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

// PredictorReader lists the models open for submission.
type PredictorReader interface {
	ListActivePredictors(ctx context.Context) ([]domain.Predictor, error)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// BrokerStatus reports broker connectivity.
type BrokerStatus interface {
	IsConnected() bool
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger          *slog.Logger
	Submitter       JobSubmitter
	Fetcher         ResultFetcher
	Jobs            JobReader
	Wallets         WalletStore
	Predictors      PredictorReader
	DBHealth        HealthChecker
	Broker          BrokerStatus
	FetchMaxTimeout time.Duration
}
