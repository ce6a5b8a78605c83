// Package answer grounds a generative model on retrieved fragments and
// streams its response.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"pdfqa/internal/domain"
	"pdfqa/internal/retrieval"
)

// Generator streams model output for a prompt. emit is called once per
// text fragment as it arrives; cancelling ctx stops generation.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, emit func(delta string)) error
}

// Engine runs retrieval to completion, builds the grounding prompt, then
// streams the selected model's answer. Retrieval itself is never streamed.
type Engine struct {
	retriever  *retrieval.Engine
	generators map[string]Generator
	names      []string
	topK       int
	logger     log.Logger
}

// NewEngine creates an answer engine over the given generators, keyed by
// model name. Registration order is preserved; the first generator is the
// default offered to callers.
func NewEngine(retriever *retrieval.Engine, generators []Generator, topK int, logger log.Logger) *Engine {
	byName := make(map[string]Generator, len(generators))
	names := make([]string, 0, len(generators))
	for _, g := range generators {
		if _, ok := byName[g.Name()]; ok {
			continue
		}
		byName[g.Name()] = g
		names = append(names, g.Name())
	}
	if topK <= 0 {
		topK = 5
	}
	return &Engine{retriever: retriever, generators: byName, names: names, topK: topK, logger: logger}
}

// Models lists the available generator names in registration order.
func (e *Engine) Models() []string {
	names := make([]string, len(e.names))
	copy(names, e.names)
	return names
}

// Answer retrieves grounding fragments with the selected strategy and
// streams the model's answer through emit.
func (e *Engine) Answer(ctx context.Context, query, collection string, strategy domain.Strategy, model string, emit func(delta string)) error {
	gen, ok := e.generators[model]
	if !ok {
		return fmt.Errorf("unknown model %q", model)
	}
	hits := e.retriever.Search(ctx, collection, strategy, query, e.topK)
	if len(hits) == 0 {
		e.logger.Warn().Str("collection", collection).Str("strategy", string(strategy)).Msg("no grounding fragments retrieved")
	}
	prompt := BuildPrompt(query, hits)
	e.logger.Info().Str("model", model).Str("strategy", string(strategy)).Int("fragments", len(hits)).Msg("generating answer")
	return gen.Generate(ctx, prompt, emit)
}

// BuildPrompt assembles the grounding prompt: numbered context fragments
// in retrieval order followed by the question.
func BuildPrompt(query string, hits []domain.SearchHit) string {
	var b strings.Builder
	b.WriteString("You are answering questions about a document. Use only the context below; if the context does not contain the answer, say so.\n\nContext:\n")
	if len(hits) == 0 {
		b.WriteString("(no relevant fragments found)\n")
	}
	for i, h := range hits {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, h.ContentType, h.Content)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer:", query)
	return b.String()
}
