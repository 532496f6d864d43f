package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"example.com/greenhouse/services/gateway/config"
)

// ErrDisabled is returned when no inference collaborator is configured
var ErrDisabled = errors.New("inference collaborator is not configured")

// Prediction is the classification result returned by the collaborator
type Prediction struct {
	ClassID    string  `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Client talks to the disease-classification collaborator. The model itself
// runs in a separate service with its own latency budget; the gateway only
// forwards image bytes and relays the result.
type Client interface {
	Predict(ctx context.Context, image []byte, filename string) (*Prediction, error)
}

// httpClient implements Client against the collaborator's HTTP API
type httpClient struct {
	baseURL string
	client  *http.Client
}

// disabledClient is used when no collaborator URL is configured
type disabledClient struct{}

// NewClient creates an inference client from configuration
func NewClient(cfg config.InferenceConfig) Client {
	if cfg.URL == "" {
		return &disabledClient{}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpClient{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Predict forwards the image as a multipart form and decodes the
// collaborator's response
func (c *httpClient) Predict(ctx context.Context, image []byte, filename string) (*Prediction, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("prediction request returned %d: %s", resp.StatusCode, string(body))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode prediction response: %w", err)
	}

	return &prediction, nil
}

// Predict implementation for the disabled client
func (d *disabledClient) Predict(ctx context.Context, image []byte, filename string) (*Prediction, error) {
	return nil, ErrDisabled
}
