package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPClient calls a recognition model served over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the model endpoint at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type predictRequest struct {
	Payload  string `json:"payload"`
	Filename string `json:"filename"`
}

type predictResponse struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// Predict posts the image to the model service and decodes its verdict. A
// model-reported failure comes back as an error carrying the model's reason.
func (c *HTTPClient) Predict(ctx context.Context, payload, filename string) (*Result, error) {
	body, err := json.Marshal(predictRequest{
		Payload:  payload,
		Filename: filename,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict request returned status %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode predict response: %w", err)
	}

	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "prediction failed without a reason"
		}
		return nil, fmt.Errorf("prediction failed: %s", reason)
	}

	c.logger.Debug("Prediction succeeded",
		slog.Float64("confidence", out.Confidence),
	)

	return &Result{
		Text:       out.Text,
		Confidence: out.Confidence,
	}, nil
}
