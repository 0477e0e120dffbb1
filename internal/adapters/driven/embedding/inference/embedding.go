// Package inference provides an image embedder backed by a model server.
//
// The server exposes two endpoints:
//
//	POST {base}/embed   multipart form, file field "image" -> {"embedding": [...]}
//	GET  {base}/health  200 when the model is loaded
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
	"strings"
	"time"

	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.ImageEmbedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://127.0.0.1:8501"
	DefaultModel   = "efficientnet-b0"
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds the JSON body read from the server.
	maxResponseBytes = 16 << 20
)

// ErrRateLimited is returned when the model server answers 429.
var ErrRateLimited = errors.New("model server rate limited the request")

// Config holds configuration for the model server client.
type Config struct {
	// BaseURL is the model server URL (default: http://127.0.0.1:8501).
	BaseURL string

	// Model is sent as the "model" form field so one server can host several models.
	Model string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond throttles requests. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Embedder calls a model server to embed images.
type Embedder struct {
	client  *http.Client
	baseURL string
	model   string
	limiter *rateLimiter
}

// embedResponse is the model server response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// NewEmbedder creates a new model server client.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("inference: base URL must start with http:// or https://, got %q", cfg.BaseURL)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Embedder{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		limiter: newRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}, nil
}

// Embed uploads image and returns the model's feature vector.
func (e *Embedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, errors.New("inference: empty image")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("inference: waiting for rate limiter: %w", err)
	}

	body, contentType, err := e.encodeForm(image)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", body)
	if err != nil {
		return nil, fmt.Errorf("inference: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference: send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("inference: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		e.limiter.recordRetryAfter(resp.Header.Get("Retry-After"))
		return nil, ErrRateLimited
	}

	var embedResp embedResponse
	decodeErr := json.Unmarshal(data, &embedResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && embedResp.Error != "" {
			return nil, fmt.Errorf("inference error (status %d): %s", resp.StatusCode, embedResp.Error)
		}
		return nil, fmt.Errorf("inference error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("inference: decode response: %w", decodeErr)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, errors.New("inference: no embedding returned")
	}

	vec := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (e *Embedder) encodeForm(image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", "upload")
	if err != nil {
		return nil, "", fmt.Errorf("inference: create form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("inference: write form: %w", err)
	}
	if err := w.WriteField("model", e.model); err != nil {
		return nil, "", fmt.Errorf("inference: write form: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("inference: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// ModelName returns the configured model name.
func (e *Embedder) ModelName() string {
	return e.model
}

// Ping checks the model server health endpoint.
func (e *Embedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("inference: create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference: model server unreachable at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference: model server unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (e *Embedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
