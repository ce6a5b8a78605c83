package normalize

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/domain"
)

var testLogger = log.Logger{Level: log.PanicLevel}

// stubDescriber records its calls and returns a fixed description.
type stubDescriber struct {
	prompts []string
	images  [][]byte
	err     error
}

func (d *stubDescriber) Describe(ctx context.Context, prompt string, image []byte) (string, error) {
	d.prompts = append(d.prompts, prompt)
	d.images = append(d.images, image)
	if d.err != nil {
		return "", d.err
	}
	return "model description", nil
}

func img(text, payload string) domain.Element {
	return domain.Element{
		Kind:        domain.ElementImage,
		Text:        text,
		ImageBase64: base64.StdEncoding.EncodeToString([]byte(payload)),
	}
}

func TestImagesCaptionAdjacency(t *testing.T) {
	n := New(nil, testLogger)
	elements := []domain.Element{
		{Kind: domain.ElementText, Text: "intro"},
		img("ocr text", "png-1"),
		{Kind: domain.ElementCaption, Text: "Figure 1: loss curve"},
		img("more ocr", "png-2"),
		{Kind: domain.ElementText, Text: "outro"},
	}

	chunks, err := n.Images(context.Background(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Figure 1: loss curve", chunks[0].Caption)
	assert.Equal(t, NoCaption, chunks[1].Caption, "an image without a following caption gets the placeholder")
	for _, ch := range chunks {
		assert.Equal(t, domain.ContentImage, ch.ContentType)
	}
}

func TestImagesWithoutDescriberKeepExtractedText(t *testing.T) {
	n := New(nil, testLogger)
	chunks, err := n.Images(context.Background(), []domain.Element{img("two words", "png")})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "two words", chunks[0].Content)
	assert.Equal(t, 2, chunks[0].TokenCount)
}

func TestImagesWithDescriber(t *testing.T) {
	d := &stubDescriber{}
	n := New(d, testLogger)
	elements := []domain.Element{
		img("axis labels", "raw-image-bytes"),
		{Kind: domain.ElementCaption, Text: "Figure 2"},
	}

	chunks, err := n.Images(context.Background(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "model description", chunks[0].Content)
	assert.Equal(t, "axis labels", chunks[0].ImageText, "extracted text is retained alongside the description")

	require.Len(t, d.prompts, 1)
	assert.Contains(t, d.prompts[0], "Figure 2")
	assert.Contains(t, d.prompts[0], "axis labels")
	assert.Equal(t, []byte("raw-image-bytes"), d.images[0], "payload is decoded before the model call")
}

func TestImagesDescriberFailureIsFatal(t *testing.T) {
	n := New(&stubDescriber{err: errors.New("quota exceeded")}, testLogger)
	_, err := n.Images(context.Background(), []domain.Element{img("x", "png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "describe image")
}

func TestImagesBadPayloadIsFatal(t *testing.T) {
	n := New(&stubDescriber{}, testLogger)
	el := domain.Element{Kind: domain.ElementImage, ImageBase64: "not base64!!"}
	_, err := n.Images(context.Background(), []domain.Element{el})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image payload")
}

func TestTablesWithoutDescriber(t *testing.T) {
	n := New(nil, testLogger)
	el := domain.Element{
		Kind:      domain.ElementTable,
		Text:      "a 1 b 2",
		TableHTML: "<table><tr><td>a</td><td>1</td></tr></table>",
	}
	chunks, err := n.Tables(context.Background(), []domain.Element{el})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a 1 b 2", chunks[0].Content, "plain-text rendering is the default content")
	assert.Equal(t, el.TableHTML, chunks[0].TableHTML)
	assert.Equal(t, domain.ContentTable, chunks[0].ContentType)
}

func TestTablesWithDescriber(t *testing.T) {
	d := &stubDescriber{}
	n := New(d, testLogger)
	el := domain.Element{Kind: domain.ElementTable, Text: "a 1", TableHTML: "<table>t</table>"}

	chunks, err := n.Tables(context.Background(), []domain.Element{el})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "model description", chunks[0].Content)

	require.Len(t, d.prompts, 1)
	assert.Contains(t, d.prompts[0], "<table>t</table>", "the model sees the HTML rendering")
	assert.Nil(t, d.images[0], "table description is a text-only call")
}

func TestTextChunksKeepOnlyComposites(t *testing.T) {
	n := New(nil, testLogger)
	elements := []domain.Element{
		{Kind: domain.ElementComposite, Text: "merged section one"},
		{Kind: domain.ElementText, Text: "stray paragraph"},
		{Kind: domain.ElementTable, Text: "a 1"},
		{Kind: domain.ElementComposite, Text: "merged section two"},
	}
	chunks := n.TextChunks(elements)
	require.Len(t, chunks, 2)
	assert.Equal(t, "merged section one", chunks[0].Content)
	assert.Equal(t, "merged section two", chunks[1].Content)
	assert.Equal(t, 3, chunks[0].TokenCount)
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 3, countTokens("Hello, world! 42"))
	assert.Equal(t, 2, countTokens("don't stop"))
	assert.Equal(t, 0, countTokens("--- ..."))
}
