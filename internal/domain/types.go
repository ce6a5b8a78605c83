package domain

// ElementKind discriminates the element variants produced by the PDF
// partitioner. The set is closed: the normalizer switches exhaustively
// over it.
type ElementKind int

const (
	// ElementText is an atomic text fragment that was not merged into a
	// composite chunk (titles, narrative text, list items, leftovers).
	ElementText ElementKind = iota
	// ElementImage is an extracted image with its binary payload.
	ElementImage
	// ElementCaption is a figure caption. A caption belongs to the image
	// element directly preceding it in partition order.
	ElementCaption
	// ElementTable is an extracted table with an HTML rendering.
	ElementTable
	// ElementComposite is a title-anchored text segment merged from
	// smaller fragments by the partitioner's chunking pass.
	ElementComposite
)

// Element is one typed unit of partitioner output. Positional ordering of
// a partition result is significant: caption pairing is by adjacency.
type Element struct {
	Kind     ElementKind
	Text     string
	Filename string

	// ImageBase64 is set for ElementImage only.
	ImageBase64 string
	// TableHTML is set for ElementTable only.
	TableHTML string
}

// ContentType classifies a chunk's provenance.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentTable ContentType = "table"
)

// Chunk is the atomic unit of ingestible content. Content, ContentType,
// Filename, TokenCount and Embedding are indexed; the remaining fields are
// retained between normalization and description generation and never
// stored.
type Chunk struct {
	Content     string
	ContentType ContentType
	Filename    string
	TokenCount  int

	// Embedding is attached by the ingestion pipeline. Its length must
	// equal the collection's fixed dimension.
	Embedding []float32

	// Caption is the adjacent figure caption, or "No caption".
	Caption string
	// ImageText is the image's extracted (OCR/alt) text.
	ImageText string
	// ImageBase64 is the image payload for description generation.
	ImageBase64 string
	// TableHTML is the table's HTML rendering for description generation.
	TableHTML string
}

// SearchHit is a scored fragment returned by every retrieval strategy,
// ordered by the store's native relevance ranking, descending.
type SearchHit struct {
	Score       float64
	Content     string
	ContentType ContentType
	TokenCount  int
}

// Strategy selects how the retrieval engine queries the index store.
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategyKeyword  Strategy = "keyword"
	StrategyHybrid   Strategy = "hybrid"
)

// ParseStrategy maps a user-supplied name to a Strategy, defaulting to
// hybrid for unknown input.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategySemantic, StrategyKeyword, StrategyHybrid:
		return Strategy(s)
	default:
		return StrategyHybrid
	}
}
