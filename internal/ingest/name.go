package ingest

import (
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// CollectionName derives the collection name for a PDF. The document's
// title metadata wins when present (lowercased, spaces to underscores);
// otherwise the filename base is used, lowercased and truncated at the
// first "20" to strip trailing date-like suffixes. The rule must stay
// stable: retrieval reuses the derived name to address the collection.
func CollectionName(path string) string {
	if title := strings.TrimSpace(pdfTitle(path)); title != "" {
		return strings.ReplaceAll(strings.ToLower(title), " ", "_")
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ToLower(base)
	base, _, _ = strings.Cut(base, "20")
	return strings.ReplaceAll(base, " ", "_")
}

// pdfTitle reads the Title entry of the document information dictionary.
// Unreadable files or missing metadata yield "".
func pdfTitle(path string) string {
	f, r, err := pdf.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	return r.Trailer().Key("Info").Key("Title").Text()
}
