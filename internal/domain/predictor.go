package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Predictor describes a recognition model users can run jobs against. The
// credit cost is read at submission time and frozen onto the job.
type Predictor struct {
	PredictorID string          `db:"predictor_id"`
	Name        string          `db:"name"`
	Version     string          `db:"version"`
	CreditCost  decimal.Decimal `db:"credit_cost"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
}
