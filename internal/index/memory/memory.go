// Package memory implements index.Store in process memory. It exists for
// tests and offline runs; scoring approximates the real store's behavior
// with cosine similarity for vectors and token-overlap (Ochiai) for
// keyword matches, summed for hybrid queries.
package memory

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"pdfqa/internal/domain"
)

// Store is a simple in-memory index store with per-collection fixed
// embedding dimensions.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	docs      []domain.Chunk
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Exists reports whether the named collection exists.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

// Create creates an empty collection with the given fixed dimension.
func (s *Store) Create(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return errors.New("collection already exists: " + name)
	}
	s.collections[name] = &collection{dimension: dimension}
	return nil
}

// Delete removes the named collection. Deleting a missing collection is not
// an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// Count returns the number of documents in a collection. Test helper.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.docs)
	}
	return 0
}

// BulkIndex appends all chunks to the collection. Any chunk whose embedding
// does not match the collection dimension fails the whole bulk operation,
// mirroring a bulk item failure in the real store.
func (s *Store) BulkIndex(ctx context.Context, name string, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, errors.New("collection not found: " + name)
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != c.dimension {
			return 0, errors.New("embedding dimension mismatch")
		}
	}
	c.docs = append(c.docs, chunks...)
	return len(chunks), nil
}

// SearchKeyword scores documents by token overlap with the query.
func (s *Store) SearchKeyword(ctx context.Context, name, query string, topK int) ([]domain.SearchHit, error) {
	return s.search(name, topK, func(doc domain.Chunk) float64 {
		return ochiai(toTokenSet(query), doc.Content)
	})
}

// SearchVector scores documents by cosine similarity to the query vector.
func (s *Store) SearchVector(ctx context.Context, name string, vector []float32, topK int) ([]domain.SearchHit, error) {
	return s.search(name, topK, func(doc domain.Chunk) float64 {
		return cosine(vector, doc.Embedding)
	})
}

// SearchHybrid sums the keyword and vector scores, mimicking the real
// store's combination of both should clauses.
func (s *Store) SearchHybrid(ctx context.Context, name, query string, vector []float32, topK int) ([]domain.SearchHit, error) {
	qset := toTokenSet(query)
	return s.search(name, topK, func(doc domain.Chunk) float64 {
		return ochiai(qset, doc.Content) + cosine(vector, doc.Embedding)
	})
}

func (s *Store) search(name string, topK int, score func(domain.Chunk) float64) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	hits := make([]domain.SearchHit, 0, len(c.docs))
	for _, doc := range c.docs {
		sc := score(doc)
		if sc <= 0 {
			continue
		}
		hits = append(hits, domain.SearchHit{
			Score:       sc,
			Content:     doc.Content,
			ContentType: doc.ContentType,
			TokenCount:  doc.TokenCount,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// ochiai is |A∩B| / sqrt(|A||B|) over unique token sets.
func ochiai(qset map[string]struct{}, text string) float64 {
	tset := toTokenSet(text)
	if len(qset) == 0 || len(tset) == 0 {
		return 0
	}
	inter := 0
	for t := range tset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / (math.Sqrt(float64(len(qset))) * math.Sqrt(float64(len(tset))))
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
