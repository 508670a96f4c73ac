package pages

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/mkraev/mathnotes/internal/domain"
)

// buildHashFields converts a page unit into a flat map[string]string for HSET.
func buildHashFields(u domain.PageUnit) map[string]string {
	return map[string]string{
		"doc":         u.Doc,
		"page":        strconv.Itoa(u.Page),
		"text":        u.Text,
		"path":        u.Path,
		"fingerprint": u.Fingerprint,
		"vector":      vectorToBytes(u.Vector),
	}
}

// parseRef converts returned hash fields back into a page reference.
func parseRef(m map[string]string) (domain.PageRef, bool) {
	doc := m["doc"]
	if doc == "" {
		return domain.PageRef{}, false
	}
	page, err := strconv.Atoi(m["page"])
	if err != nil {
		return domain.PageRef{}, false
	}
	return domain.PageRef{Doc: doc, Page: page, Path: m["path"]}, true
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
