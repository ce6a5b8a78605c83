// Package gemini implements describe.Describer on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
	"google.golang.org/genai"
)

// Client describes images and tables using a Gemini model.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  log.Logger
}

// Config configures the Gemini describer. APIKeyEnv names the environment
// variable holding the API key; a missing key fails construction so that
// ingestion never proceeds with silently degraded output.
type Config struct {
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	Logger    log.Logger
}

// NewClient creates a Gemini describer using the provided configuration.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GEMINI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Client{client: client, model: cfg.Model, timeout: cfg.Timeout, logger: cfg.Logger}, nil
}

// Describe sends the prompt, and the image when present, to the model and
// returns its text response.
func (c *Client) Describe(ctx context.Context, prompt string, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, "image/png"))
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("describe: %w", err)
	}

	var text strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
			if text.Len() > 0 {
				break
			}
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("describe: empty response from %s", c.model)
	}
	c.logger.Debug().Int("prompt_len", len(prompt)).Int("image_bytes", len(image)).Msg("generated description")
	return text.String(), nil
}
