package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

// GetWallet returns the user's wallet, creating an empty one on first use.
func (s *Store) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `
		SELECT wallet_id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`

	err := s.db.GetContext(ctx, &wallet, query, userID)
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	insert := `
		INSERT INTO wallets (wallet_id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, insert, uuid.New().String(), userID); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	if err := s.db.GetContext(ctx, &wallet, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get wallet after create: %w", err)
	}

	return &wallet, nil
}

// TopUp credits the user's wallet and appends the matching ledger entry.
func (s *Store) TopUp(ctx context.Context, userID string, amount decimal.Decimal, description string) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	if _, err := s.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	err := s.pg.WithTx(ctx, func(tx *sqlx.Tx) error {
		balance, err := s.creditWallet(ctx, tx, userID, amount)
		if err != nil {
			return err
		}

		entry = &domain.LedgerEntry{
			UserID:       userID,
			Amount:       amount,
			BalanceAfter: balance,
			Description:  description,
		}
		return s.appendLedgerEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Wallet topped up",
		slog.String("user_id", userID),
		slog.String("amount", amount.String()),
		slog.String("balance_after", entry.BalanceAfter.String()),
	)

	return entry, nil
}

// ListLedgerEntries returns the user's most recent ledger entries.
func (s *Store) ListLedgerEntries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT entry_id, user_id, job_id, amount, balance_after, description, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, entry_id DESC
		LIMIT $2
	`

	var entries []domain.LedgerEntry
	if err := s.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

// debitWallet subtracts amount from the wallet inside tx. The balance guard
// is in the WHERE clause: zero rows means the charge would go negative and
// the caller's transaction must roll back.
func (s *Store) debitWallet(ctx context.Context, tx *sqlx.Tx, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	// Wallets are created lazily; make sure the row exists before the
	// guarded update so a fresh user gets ErrInsufficientCredits, not a
	// missing-row surprise.
	ensure := `
		INSERT INTO wallets (wallet_id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, ensure, uuid.New().String(), userID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to ensure wallet: %w", err)
	}

	query := `
		UPDATE wallets
		SET balance = balance - $1,
		    updated_at = NOW()
		WHERE user_id = $2
		  AND balance >= $1
		RETURNING balance
	`

	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, query, amount, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrInsufficientCredits
		}
		return decimal.Zero, fmt.Errorf("failed to debit wallet: %w", err)
	}

	return balance, nil
}

// creditWallet adds amount to the wallet inside tx and returns the new balance.
func (s *Store) creditWallet(ctx context.Context, tx *sqlx.Tx, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $1,
		    updated_at = NOW()
		WHERE user_id = $2
		RETURNING balance
	`

	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance, query, amount, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("wallet not found for user %s", userID)
		}
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}

	return balance, nil
}

// appendLedgerEntry inserts one append-only ledger row inside tx.
func (s *Store) appendLedgerEntry(ctx context.Context, tx *sqlx.Tx, entry *domain.LedgerEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ledger_entries (
			entry_id, user_id, job_id, amount, balance_after, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		entry.EntryID,
		entry.UserID,
		entry.JobID,
		entry.Amount,
		entry.BalanceAfter,
		entry.Description,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}
