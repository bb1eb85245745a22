package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

// GetActivePredictor returns a predictor by id, only if it is active.
func (s *Store) GetActivePredictor(ctx context.Context, predictorID string) (*domain.Predictor, error) {
	var predictor domain.Predictor
	query := `
		SELECT predictor_id, name, version, credit_cost, is_active, created_at
		FROM predictors
		WHERE predictor_id = $1
		  AND is_active = TRUE
	`

	err := s.db.GetContext(ctx, &predictor, query, predictorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPredictorNotFound
		}
		return nil, fmt.Errorf("failed to get predictor: %w", err)
	}

	return &predictor, nil
}

// ListActivePredictors returns all predictors users can submit jobs against.
func (s *Store) ListActivePredictors(ctx context.Context) ([]domain.Predictor, error) {
	query := `
		SELECT predictor_id, name, version, credit_cost, is_active, created_at
		FROM predictors
		WHERE is_active = TRUE
		ORDER BY name, version
	`

	var predictors []domain.Predictor
	if err := s.db.SelectContext(ctx, &predictors, query); err != nil {
		return nil, fmt.Errorf("failed to list predictors: %w", err)
	}

	return predictors, nil
}
