package domain

import (
	"fmt"
	"sort"
	"strings"
)

// MinPageChars is the minimum normalized text length for a page to be indexed.
// Shorter pages (title sheets, blank scans) add noise without retrievable content.
const MinPageChars = 20

// PageUnit is the atomic indexed item: one qualifying page of one PDF.
// Identity is (Doc, Page); re-indexing a changed document replaces all of
// its units at once.
type PageUnit struct {
	Doc         string // file name of the owning document, e.g. "calc.pdf"
	Page        int    // zero-based page number
	Text        string // whitespace-normalized page text
	Path        string // filesystem path, sufficient to re-render the page
	Fingerprint string // content hash of the document at indexing time
	Vector      []float32
}

// ID returns the storage identity of the unit.
func (u PageUnit) ID() string {
	return fmt.Sprintf("%s_p%d", u.Doc, u.Page)
}

// PageRef locates a renderable page.
type PageRef struct {
	Doc  string
	Page int
	Path string
}

// Caption describes the page for a human reader. Page numbers are 1-indexed
// in captions, matching what a PDF viewer shows.
func (r PageRef) Caption() string {
	return fmt.Sprintf("From %s, Page %d", r.Doc, r.Page+1)
}

// PageHit is a single retrieval match with its similarity score.
type PageHit struct {
	Ref   PageRef
	Score float64
}

// ContextPage is one entry of the context window handed to the answer
// synthesizer: a rendered page image plus its caption.
type ContextPage struct {
	Ref      PageRef
	ImageB64 string // PNG, base64-encoded
	Caption  string
}

// Answer is the response to one query. Images and Captions are co-indexed
// and always equal in length.
type Answer struct {
	Text     string
	Images   []string
	Captions []string
}

// NormalizeText collapses all whitespace runs to single spaces and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SortRefs orders page references ascending by (document, page), the natural
// reading order, never by relevance score.
func SortRefs(refs []PageRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Doc != refs[j].Doc {
			return refs[i].Doc < refs[j].Doc
		}
		return refs[i].Page < refs[j].Page
	})
}
