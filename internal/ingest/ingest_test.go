package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/domain"
	"pdfqa/internal/index"
	"pdfqa/internal/index/memory"
)

const testDim = 3

var testLogger = log.Logger{Level: log.PanicLevel}

// stubEmbedder returns a constant vector. Content prefixed "fail" errors,
// content prefixed "short" produces a wrong-dimension vector.
type stubEmbedder struct{}

func (stubEmbedder) Name() string   { return "stub" }
func (stubEmbedder) Dimension() int { return testDim }

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	switch {
	case strings.HasPrefix(text, "fail"):
		return nil, errors.New("embedder down")
	case strings.HasPrefix(text, "short"):
		return []float32{1}, nil
	default:
		return []float32{1, 0, 0}, nil
	}
}

func text(content string) domain.Chunk {
	return domain.Chunk{Content: content, ContentType: domain.ContentText}
}

func TestIngestGroupCounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := NewPipeline(store, stubEmbedder{}, testDim, testLogger)

	report, err := p.Ingest(ctx, "doc", Sources{
		Images: []domain.Chunk{{Content: "an image", ContentType: domain.ContentImage}},
		Tables: []domain.Chunk{{Content: "a table", ContentType: domain.ContentTable}},
		Texts:  []domain.Chunk{text("one"), text("two"), text("three")},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, StatusIngested, report.Status)
	assert.Equal(t, 1, report.Images)
	assert.Equal(t, 1, report.Tables)
	assert.Equal(t, 3, report.Texts)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 5, report.Total())
	assert.Equal(t, 5, store.Count("doc"))
}

func TestIngestSkipsExisting(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := NewPipeline(store, stubEmbedder{}, testDim, testLogger)

	_, err := p.Ingest(ctx, "doc", Sources{Texts: []domain.Chunk{text("original")}}, false)
	require.NoError(t, err)

	report, err := p.Ingest(ctx, "doc", Sources{Texts: []domain.Chunk{text("new"), text("content")}}, false)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, report.Status)
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, 1, store.Count("doc"), "skipped runs must not touch the collection")
}

func TestIngestForceRebuilds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := NewPipeline(store, stubEmbedder{}, testDim, testLogger)

	_, err := p.Ingest(ctx, "doc", Sources{Texts: []domain.Chunk{text("original")}}, false)
	require.NoError(t, err)

	report, err := p.Ingest(ctx, "doc", Sources{Texts: []domain.Chunk{text("new"), text("content")}}, true)
	require.NoError(t, err)
	assert.Equal(t, StatusIngested, report.Status)
	assert.Equal(t, 2, store.Count("doc"), "force drops and rebuilds, no merge")
}

func TestIngestSkipsInvalidChunks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := NewPipeline(store, stubEmbedder{}, testDim, testLogger)

	report, err := p.Ingest(ctx, "doc", Sources{
		Texts: []domain.Chunk{
			text(""),                     // empty content
			text("fail on this one"),     // embedding error
			text("short vector for you"), // dimension mismatch
			text("kept"),
		},
	}, false)
	require.NoError(t, err, "per-chunk failures never abort the run")
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 1, report.Texts)
	assert.Equal(t, 1, store.Count("doc"))
}

// groupFailStore fails any bulk containing the trigger content.
type groupFailStore struct {
	index.Store
	trigger string
}

func (s groupFailStore) BulkIndex(ctx context.Context, collection string, chunks []domain.Chunk) (int, error) {
	for _, ch := range chunks {
		if ch.Content == s.trigger {
			return 0, errors.New("bulk rejected")
		}
	}
	return s.Store.BulkIndex(ctx, collection, chunks)
}

func TestIngestBulkFailureKeepsPriorGroups(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	store := groupFailStore{Store: mem, trigger: "poison table"}
	p := NewPipeline(store, stubEmbedder{}, testDim, testLogger)

	report, err := p.Ingest(ctx, "doc", Sources{
		Images: []domain.Chunk{{Content: "an image", ContentType: domain.ContentImage}},
		Tables: []domain.Chunk{{Content: "poison table", ContentType: domain.ContentTable}},
		Texts:  []domain.Chunk{text("never reached")},
	}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tables")

	// The image group stays committed; tables and texts never land.
	assert.Equal(t, 1, report.Images)
	assert.Equal(t, 0, report.Tables)
	assert.Equal(t, 0, report.Texts)
	assert.Equal(t, 1, mem.Count("doc"))
}
