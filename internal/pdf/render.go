package pdf

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// DefaultRenderDPI is 2x the 72 DPI PDF baseline, enough for a multimodal
// model to read dense formulas without inflating the prompt.
const DefaultRenderDPI = 144

// Renderer rasterizes single PDF pages via MuPDF.
type Renderer struct {
	dpi float64
}

// NewRenderer creates a page renderer at the given resolution.
// dpi <= 0 falls back to DefaultRenderDPI.
func NewRenderer(dpi float64) *Renderer {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}
	return &Renderer{dpi: dpi}
}

// RenderPNG renders one zero-based page to a base64-encoded PNG.
// "No image" (ok=false) is an expected outcome, not an error: it covers
// out-of-range page numbers, unopenable documents, and corrupt pages, so the
// retriever can silently drop the page instead of failing the query.
func (r *Renderer) RenderPNG(path string, page int) (string, bool) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", false
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return "", false
	}

	img, err := doc.ImageDPI(page, r.dpi)
	if err != nil {
		return "", false
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", false
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), true
}
