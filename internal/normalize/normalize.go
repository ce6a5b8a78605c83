// Package normalize converts heterogeneous partitioner elements into
// uniform chunks ready for embedding and indexing.
package normalize

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/phuslu/log"

	"pdfqa/internal/describe"
	"pdfqa/internal/domain"
)

// NoCaption is the placeholder for images without an adjacent caption.
const NoCaption = "No caption"

// Normalizer turns raw elements into chunks. When a describer is set, image
// and table content is replaced by model-generated descriptions; a describer
// failure is fatal for the document's ingestion run.
type Normalizer struct {
	describer describe.Describer
	logger    log.Logger
}

// New creates a Normalizer. describer may be nil, in which case image
// chunks keep their extracted text and table chunks their plain-text
// rendering.
func New(describer describe.Describer, logger log.Logger) *Normalizer {
	return &Normalizer{describer: describer, logger: logger}
}

// Images extracts image chunks from a structural partition result. A
// caption element immediately following an image belongs to it; images
// without one get the NoCaption placeholder.
func (n *Normalizer) Images(ctx context.Context, elements []domain.Element) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i, el := range elements {
		if el.Kind != domain.ElementImage {
			continue
		}
		caption := NoCaption
		if i+1 < len(elements) && elements[i+1].Kind == domain.ElementCaption {
			caption = elements[i+1].Text
		}
		chunk := domain.Chunk{
			Content:     el.Text, // kept when no description model runs
			ContentType: domain.ContentImage,
			Filename:    el.Filename,
			Caption:     caption,
			ImageText:   el.Text,
			ImageBase64: el.ImageBase64,
		}
		if n.describer != nil {
			image, err := base64.StdEncoding.DecodeString(el.ImageBase64)
			if err != nil {
				return nil, fmt.Errorf("decode image payload: %w", err)
			}
			prompt := fmt.Sprintf(
				"Describe the image in detail. The caption is: %s. The image text is: %s. "+
					"Directly analyze the image and provide a detailed description without any additional text.",
				chunk.Caption, chunk.ImageText,
			)
			desc, err := n.describer.Describe(ctx, prompt, image)
			if err != nil {
				return nil, fmt.Errorf("describe image: %w", err)
			}
			chunk.Content = desc
		}
		chunk.TokenCount = countTokens(chunk.Content)
		chunks = append(chunks, chunk)
	}
	n.logger.Info().Int("images", len(chunks)).Msg("normalized image chunks")
	return chunks, nil
}

// Tables extracts table chunks from a structural partition result, keeping
// both the HTML and plain-text renderings.
func (n *Normalizer) Tables(ctx context.Context, elements []domain.Element) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, el := range elements {
		if el.Kind != domain.ElementTable {
			continue
		}
		chunk := domain.Chunk{
			Content:     el.Text, // plain-text rendering by default
			ContentType: domain.ContentTable,
			Filename:    el.Filename,
			TableHTML:   el.TableHTML,
		}
		if n.describer != nil {
			prompt := fmt.Sprintf(
				"Analyze the following table and provide a detailed description of its contents, "+
					"including the structure, key data points, and any notable trends or insights. "+
					"Here is the table in HTML format: %s "+
					"Directly analyze the table and provide a detailed description without any additional text.",
				el.TableHTML,
			)
			desc, err := n.describer.Describe(ctx, prompt, nil)
			if err != nil {
				return nil, fmt.Errorf("describe table: %w", err)
			}
			chunk.Content = desc
		}
		chunk.TokenCount = countTokens(chunk.Content)
		chunks = append(chunks, chunk)
	}
	n.logger.Info().Int("tables", len(chunks)).Msg("normalized table chunks")
	return chunks, nil
}

// TextChunks keeps only composite segments from a chunked partition result;
// atomic leftovers that were not merged under a title are dropped.
func (n *Normalizer) TextChunks(elements []domain.Element) []domain.Chunk {
	var chunks []domain.Chunk
	for _, el := range elements {
		switch el.Kind {
		case domain.ElementComposite:
			chunks = append(chunks, domain.Chunk{
				Content:     el.Text,
				ContentType: domain.ContentText,
				Filename:    el.Filename,
				TokenCount:  countTokens(el.Text),
			})
		case domain.ElementText, domain.ElementImage, domain.ElementCaption, domain.ElementTable:
			// not part of the semantic text stream
		}
	}
	n.logger.Info().Int("texts", len(chunks)).Msg("normalized text chunks")
	return chunks
}

var tokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// countTokens is a word-level token count used as the stored length
// indicator for search results.
func countTokens(text string) int {
	return len(tokenRe.FindAllString(strings.ToLower(text), -1))
}
