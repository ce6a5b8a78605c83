package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an Ollama embeddings client implementing the Embedder interface.
type Client struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

// Config configures the Ollama embeddings client. Dimension is the expected
// vector length; the client itself does not reject mismatches (the ingestion
// pipeline does), it only reports the expectation via Dimension.
type Config struct {
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: t},
	}
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "ollama" }

// Dimension returns the expected dimensionality of the produced vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text. A response without
// an embedding is an error.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body := struct {
		Prompt string `json:"prompt"`
		Model  string `json:"model"`
	}{Prompt: text, Model: c.model}
	data, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/api/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama embeddings failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return out.Embedding, nil
}
