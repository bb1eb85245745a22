package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's prepaid credit balance. One wallet per user,
// created on demand with a zero balance.
type Wallet struct {
	WalletID  string          `db:"wallet_id"`
	UserID    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// LedgerEntry is an append-only record of a balance-affecting event.
// Amount is negative for charges and positive for top-ups and refunds;
// BalanceAfter is the wallet balance once the entry was applied.
type LedgerEntry struct {
	EntryID      string          `db:"entry_id"`
	UserID       string          `db:"user_id"`
	JobID        *string         `db:"job_id"`
	Amount       decimal.Decimal `db:"amount"`
	BalanceAfter decimal.Decimal `db:"balance_after"`
	Description  string          `db:"description"`
	CreatedAt    time.Time       `db:"created_at"`
}
