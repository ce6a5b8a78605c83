// Package opensearch implements index.Store against an OpenSearch cluster.
// Collections map to indices with a knn_vector embedding field; hybrid
// search is a single bool/should query combining knn and match conditions,
// scored by OpenSearch itself.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/phuslu/log"

	"pdfqa/internal/domain"
)

// Store is an index.Store backed by OpenSearch.
type Store struct {
	client *opensearch.Client
	logger log.Logger
}

// Config configures the OpenSearch client. Timeout bounds each round trip;
// MaxRetries bounds automatic retries on transient connection failure.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	Timeout    time.Duration
	MaxRetries int
	Logger     log.Logger
}

// NewStore creates a Store connected to the configured cluster.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		cfg.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:            cfg.Addresses,
		Username:             cfg.Username,
		Password:             cfg.Password,
		MaxRetries:           cfg.MaxRetries,
		RetryOnStatus:        []int{502, 503, 504},
		EnableRetryOnTimeout: true,
		Transport: &http.Transport{
			ResponseHeaderTimeout: cfg.Timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}
	return &Store{client: client, logger: cfg.Logger}, nil
}

// Ping checks cluster reachability.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch ping: %s", res.Status())
	}
	return nil
}

// Exists reports whether the named collection exists.
func (s *Store) Exists(ctx context.Context, collection string) (bool, error) {
	res, err := s.client.Indices.Exists(
		[]string{collection},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		// Auth failures and server errors must not read as "absent": a
		// caller would proceed to create over a collection it cannot see.
		return false, fmt.Errorf("check index %q: %s", collection, res.Status())
	}
}

// mapping is the fixed collection schema. The embedding dimension is set at
// creation and never changes.
func mapping(dimension int) map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"content":      map[string]any{"type": "text"},
				"content_type": map[string]any{"type": "keyword"},
				"filename":     map[string]any{"type": "keyword"},
				"token_count":  map[string]any{"type": "integer"},
				"embedding":    map[string]any{"type": "knn_vector", "dimension": dimension},
			},
		},
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
	}
}

// Create creates the named collection with the fixed schema.
func (s *Store) Create(ctx context.Context, collection string, dimension int) error {
	body, _ := json.Marshal(mapping(dimension))
	res, err := s.client.Indices.Create(
		collection,
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %q: %s", collection, res.Status())
	}
	s.logger.Info().Str("collection", collection).Int("dimension", dimension).Msg("created collection")
	return nil
}

// Delete removes the named collection. Deleting a missing collection is not
// an error.
func (s *Store) Delete(ctx context.Context, collection string) error {
	res, err := s.client.Indices.Delete(
		[]string{collection},
		s.client.Indices.Delete.WithContext(ctx),
		s.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete index %q: %s", collection, res.Status())
	}
	return nil
}

// indexedDoc is the stored document shape. Retained normalizer payloads
// (captions, raw image data, table HTML) are deliberately absent.
type indexedDoc struct {
	Content     string             `json:"content"`
	ContentType domain.ContentType `json:"content_type"`
	Filename    string             `json:"filename,omitempty"`
	TokenCount  int                `json:"token_count"`
	Embedding   []float32          `json:"embedding"`
}

// BulkIndex submits all chunks in one _bulk request. A failed item fails
// the whole operation.
func (s *Store) BulkIndex(ctx context.Context, collection string, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	var buf bytes.Buffer
	for _, ch := range chunks {
		meta := fmt.Sprintf(`{"index":{"_index":%q}}`, collection)
		buf.WriteString(meta)
		buf.WriteByte('\n')
		doc, err := json.Marshal(indexedDoc{
			Content:     ch.Content,
			ContentType: ch.ContentType,
			Filename:    ch.Filename,
			TokenCount:  ch.TokenCount,
			Embedding:   ch.Embedding,
		})
		if err != nil {
			return 0, err
		}
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk index into %q: %s", collection, res.Status())
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("bulk response: %w", err)
	}
	if out.Errors {
		for _, item := range out.Items {
			for _, op := range item {
				if op.Error != nil {
					return 0, fmt.Errorf("bulk index into %q: %s: %s", collection, op.Error.Type, op.Error.Reason)
				}
			}
		}
		return 0, fmt.Errorf("bulk index into %q: partial failure", collection)
	}
	return len(chunks), nil
}

// resultFields limits _source to what retrieval consumers need.
var resultFields = []string{"content", "content_type", "token_count"}

// SearchKeyword runs an analyzed text match on content.
func (s *Store) SearchKeyword(ctx context.Context, collection, query string, topK int) ([]domain.SearchHit, error) {
	body := map[string]any{
		"size":    topK,
		"query":   map[string]any{"match": map[string]any{"content": query}},
		"_source": resultFields,
	}
	return s.search(ctx, collection, body)
}

// SearchVector runs a k-nearest-neighbor query on the embedding field.
func (s *Store) SearchVector(ctx context.Context, collection string, vector []float32, topK int) ([]domain.SearchHit, error) {
	body := map[string]any{
		"size": topK,
		"query": map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{"vector": vector, "k": topK},
			},
		},
		"_source": resultFields,
	}
	return s.search(ctx, collection, body)
}

// SearchHybrid issues one combined query matching either the vector
// condition or the keyword condition; OpenSearch combines the scores.
func (s *Store) SearchHybrid(ctx context.Context, collection, query string, vector []float32, topK int) ([]domain.SearchHit, error) {
	body := map[string]any{
		"size": topK,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"knn": map[string]any{"embedding": map[string]any{"vector": vector, "k": topK}}},
					map[string]any{"match": map[string]any{"content": query}},
				},
			},
		},
		"_source": resultFields,
	}
	return s.search(ctx, collection, body)
}

func (s *Store) search(ctx context.Context, collection string, body map[string]any) ([]domain.SearchHit, error) {
	data, _ := json.Marshal(body)
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(collection),
		s.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		// Missing collection yields no hits rather than an error.
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %q: %s", collection, res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Content     string             `json:"content"`
					ContentType domain.ContentType `json:"content_type"`
					TokenCount  int                `json:"token_count"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}
	hits := make([]domain.SearchHit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		hits = append(hits, domain.SearchHit{
			Score:       h.Score,
			Content:     h.Source.Content,
			ContentType: h.Source.ContentType,
			TokenCount:  h.Source.TokenCount,
		})
	}
	return hits, nil
}
