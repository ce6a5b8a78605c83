package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/domain"
	"pdfqa/internal/index"
	"pdfqa/internal/index/memory"
)

var testLogger = log.Logger{Level: log.PanicLevel}

// vecEmbedder maps known texts to fixed vectors and errors on anything else.
type vecEmbedder struct {
	vectors map[string][]float32
}

func (e vecEmbedder) Name() string   { return "vec" }
func (e vecEmbedder) Dimension() int { return 2 }

func (e vecEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("unknown text")
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	require.NoError(t, s.Create(ctx, "doc", 2))
	_, err := s.BulkIndex(ctx, "doc", []domain.Chunk{
		{Content: "neural networks and attention", ContentType: domain.ContentText, Embedding: []float32{1, 0}},
		{Content: "tables of experimental results", ContentType: domain.ContentTable, Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)
	return s
}

func TestKeyword(t *testing.T) {
	e := NewEngine(seedStore(t), vecEmbedder{}, testLogger)
	hits := e.Keyword(context.Background(), "doc", "attention networks", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "neural networks and attention", hits[0].Content)
}

func TestSemantic(t *testing.T) {
	emb := vecEmbedder{vectors: map[string][]float32{"results": {0, 1}}}
	e := NewEngine(seedStore(t), emb, testLogger)
	hits := e.Semantic(context.Background(), "doc", "results", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "tables of experimental results", hits[0].Content)
}

func TestSemanticEmbeddingFailureYieldsEmpty(t *testing.T) {
	e := NewEngine(seedStore(t), vecEmbedder{}, testLogger)
	hits := e.Semantic(context.Background(), "doc", "anything", 10)
	assert.Empty(t, hits)
}

func TestHybridFallsBackToKeywordOnEmbeddingFailure(t *testing.T) {
	store := seedStore(t)
	e := NewEngine(store, vecEmbedder{}, testLogger)

	hybrid := e.Hybrid(context.Background(), "doc", "attention networks", 10)
	keyword := e.Keyword(context.Background(), "doc", "attention networks", 10)
	assert.Equal(t, keyword, hybrid, "hybrid without a query vector degrades to keyword search")
}

// hybridFailStore fails combined queries only.
type hybridFailStore struct {
	index.Store
}

func (s hybridFailStore) SearchHybrid(ctx context.Context, name, query string, vector []float32, topK int) ([]domain.SearchHit, error) {
	return nil, errors.New("hybrid unsupported")
}

func TestHybridFallsBackToKeywordOnStoreFailure(t *testing.T) {
	emb := vecEmbedder{vectors: map[string][]float32{"attention networks": {1, 0}}}
	e := NewEngine(hybridFailStore{Store: seedStore(t)}, emb, testLogger)

	hits := e.Hybrid(context.Background(), "doc", "attention networks", 10)
	require.NotEmpty(t, hits, "keyword fallback still answers")
	assert.Equal(t, "neural networks and attention", hits[0].Content)
}

func TestSearchDispatch(t *testing.T) {
	store := seedStore(t)
	emb := vecEmbedder{vectors: map[string][]float32{"attention": {1, 0}}}
	e := NewEngine(store, emb, testLogger)
	ctx := context.Background()

	assert.Equal(t, e.Keyword(ctx, "doc", "attention", 10), e.Search(ctx, "doc", domain.StrategyKeyword, "attention", 10))
	assert.Equal(t, e.Semantic(ctx, "doc", "attention", 10), e.Search(ctx, "doc", domain.StrategySemantic, "attention", 10))
	assert.Equal(t, e.Hybrid(ctx, "doc", "attention", 10), e.Search(ctx, "doc", domain.StrategyHybrid, "attention", 10))
}

func TestMissingCollectionIsEmptyNotError(t *testing.T) {
	emb := vecEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	e := NewEngine(memory.NewStore(), emb, testLogger)
	ctx := context.Background()

	assert.Empty(t, e.Keyword(ctx, "ghost", "q", 10))
	assert.Empty(t, e.Semantic(ctx, "ghost", "q", 10))
	assert.Empty(t, e.Hybrid(ctx, "ghost", "q", 10))
}
