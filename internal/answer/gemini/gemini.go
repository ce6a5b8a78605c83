// Package gemini implements answer.Generator on the Gemini streaming API.
package gemini

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/genai"
)

// Generator streams answers from a Gemini model.
type Generator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// Config configures the Gemini generator. A missing API key fails
// construction.
type Config struct {
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewGenerator creates a streaming Gemini generator.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
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
		cfg.Timeout = 5 * time.Minute
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Generator{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Name returns the model identifier used to select this generator.
func (g *Generator) Name() string { return g.model }

// Generate streams the model response, emitting each text fragment as it
// arrives.
func (g *Generator) Generate(ctx context.Context, prompt string, emit func(delta string)) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := genai.Text(prompt)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, nil) {
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		if delta := resp.Text(); delta != "" {
			emit(delta)
		}
	}
	return nil
}
