// Package unstructured is a client for the unstructured partitioning API
// (POST /general/v0/general).
package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/phuslu/log"

	"pdfqa/internal/domain"
)

// Client calls the unstructured API server.
type Client struct {
	baseURL  string
	strategy string
	chunking ChunkingOptions
	client   *http.Client
	logger   log.Logger
}

// ChunkingOptions are the by-title pass thresholds: target maximum segment
// size, minimum size below which fragments are merged, and the size after
// which a new segment starts.
type ChunkingOptions struct {
	MaxCharacters     int
	CombineUnderChars int
	NewAfterChars     int
}

// Config configures the partitioner client.
type Config struct {
	BaseURL  string
	Strategy string
	Chunking ChunkingOptions
	Timeout  time.Duration
	Logger   log.Logger
}

// NewClient creates a partitioner client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "fast"
	}
	if cfg.Chunking.MaxCharacters == 0 {
		cfg.Chunking.MaxCharacters = 2000
	}
	if cfg.Chunking.CombineUnderChars == 0 {
		cfg.Chunking.CombineUnderChars = 500
	}
	if cfg.Chunking.NewAfterChars == 0 {
		cfg.Chunking.NewAfterChars = 1500
	}
	t := cfg.Timeout
	if t == 0 {
		t = 2 * time.Minute
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		strategy: cfg.Strategy,
		chunking: cfg.Chunking,
		client:   &http.Client{Timeout: t},
		logger:   cfg.Logger,
	}
}

// Structural runs the structural extraction pass.
func (c *Client) Structural(ctx context.Context, path string) ([]domain.Element, error) {
	fields := map[string][]string{
		"strategy":                       {c.strategy},
		"infer_table_structure":          {"true"},
		"extract_image_block_types":      {"Image", "Figure", "Table"},
		"extract_image_block_to_payload": {"true"},
	}
	return c.partition(ctx, path, fields)
}

// Chunked runs the by-title semantic chunking pass.
func (c *Client) Chunked(ctx context.Context, path string) ([]domain.Element, error) {
	fields := map[string][]string{
		"strategy":              {c.strategy},
		"chunking_strategy":     {"by_title"},
		"max_characters":        {strconv.Itoa(c.chunking.MaxCharacters)},
		"combine_under_n_chars": {strconv.Itoa(c.chunking.CombineUnderChars)},
		"new_after_n_chars":     {strconv.Itoa(c.chunking.NewAfterChars)},
	}
	return c.partition(ctx, path, fields)
}

// rawElement mirrors the partitioner's wire shape.
type rawElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		Filename    string `json:"filename"`
		ImageBase64 string `json:"image_base64"`
		TextAsHTML  string `json:"text_as_html"`
	} `json:"metadata"`
}

func (c *Client) partition(ctx context.Context, path string, fields map[string][]string) ([]domain.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	for name, values := range fields {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				return nil, err
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/general/v0/general", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("partition %s failed: %s", filepath.Base(path), resp.Status)
	}

	var raw []rawElement
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("partition response: %w", err)
	}

	elements := make([]domain.Element, 0, len(raw))
	for _, r := range raw {
		el := domain.Element{
			Kind:     elementKind(r.Type),
			Text:     r.Text,
			Filename: r.Metadata.Filename,
		}
		switch el.Kind {
		case domain.ElementImage:
			el.ImageBase64 = r.Metadata.ImageBase64
		case domain.ElementTable:
			el.TableHTML = r.Metadata.TextAsHTML
		}
		elements = append(elements, el)
	}
	c.logger.Debug().Str("file", filepath.Base(path)).Int("elements", len(elements)).Msg("partitioned document")
	return elements, nil
}

// elementKind maps the partitioner's type names onto the closed element
// set. Unknown types are treated as plain text.
func elementKind(t string) domain.ElementKind {
	switch t {
	case "Image", "Figure":
		return domain.ElementImage
	case "FigureCaption":
		return domain.ElementCaption
	case "Table":
		return domain.ElementTable
	case "CompositeElement":
		return domain.ElementComposite
	default:
		return domain.ElementText
	}
}
