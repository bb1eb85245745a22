package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrPredictorNotFound is returned when the requested predictor does not
	// exist or is inactive
	ErrPredictorNotFound = errors.New("predictor not found or inactive")

	// ErrInsufficientCredits is returned when a charge would drive the
	// wallet balance negative
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidPayload is returned when the submitted payload fails
	// format or size validation
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrAlreadyInProgress is returned when cancelling a job that a worker
	// has already claimed or that is already terminal
	ErrAlreadyInProgress = errors.New("job already in progress or finished")

	// ErrInvalidAmount is returned when a top-up amount is not positive
	ErrInvalidAmount = errors.New("amount must be positive")
)
