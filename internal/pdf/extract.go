// Package pdf wraps the PDF primitives the indexing and query paths need:
// per-page text extraction and page-to-image rasterization.
package pdf

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Extractor reads per-page text from PDF files.
type Extractor struct{}

// NewExtractor creates a text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractPages returns the raw text of every page, index 0 = first page.
// A page whose text layer cannot be decoded yields an empty string; the
// caller's minimum-length filter drops it. Only a document-level failure
// (unreadable or corrupt file) is an error.
func (e *Extractor) ExtractPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}
	return texts, nil
}
