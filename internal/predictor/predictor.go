// Package predictor wraps the recognition model, which the pipeline treats
// as a black box: an image in, recognized text and a confidence out.
package predictor

import "context"

// Result is a successful prediction. Failures travel as ordinary errors so
// the worker threads them explicitly into the result message instead of
// trapping them at scattered call sites.
type Result struct {
	Text       string
	Confidence float64
}

// Client invokes a recognition model.
type Client interface {
	// Predict runs the model against a base64-encoded image. A model that
	// reports failure returns a non-nil error; the caller decides how the
	// failure is surfaced.
	Predict(ctx context.Context, payload, filename string) (*Result, error)
}
