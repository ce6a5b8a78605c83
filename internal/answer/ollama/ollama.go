// Package ollama implements answer.Generator against a local Ollama
// server's streaming generate endpoint.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Generator streams answers from a locally served model.
type Generator struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config configures the Ollama generator.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewGenerator creates a streaming Ollama generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-r1:1.5b"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 5 * time.Minute
	}
	return &Generator{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}
}

// Name returns the model identifier used to select this generator.
func (g *Generator) Name() string { return g.model }

// Generate reads the NDJSON stream from /api/generate, emitting each
// response fragment until the server reports completion.
func (g *Generator) Generate(ctx context.Context, prompt string, emit func(delta string)) error {
	body := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream"`
	}{Model: g.model, Prompt: prompt, Stream: true}
	data, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/api/generate", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ollama generate failed: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var out struct {
			Response string `json:"response"`
			Done     bool   `json:"done"`
		}
		if err := json.Unmarshal(line, &out); err != nil {
			return fmt.Errorf("ollama stream: %w", err)
		}
		if out.Response != "" {
			emit(out.Response)
		}
		if out.Done {
			return nil
		}
	}
	return scanner.Err()
}
