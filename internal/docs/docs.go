// package docs isolates document formats from the pipeline. An adapter
// extracts plain text for detection, keeps a structure handle describing
// where every piece came from, and reinjects processed text back into the
// original layout. The pipeline itself only ever sees text.
package docs

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/ljcooper54/DeID/internal/models"
)

// Extraction is an adapter's output: the text to run detection over, plus
// an opaque structure handle Reinject needs to rebuild the document. A nil
// Structure means the layout could not be preserved and output falls back
// to plain text.
type Extraction struct {
	Text      string
	Structure any
	Findings  []models.Finding
}

// Adapter converts one document format to and from pipeline text.
type Adapter interface {
	// Name identifies the format ("csv", "html", "plain").
	Name() string

	// Lossy reports whether round-tripping through this adapter can drop
	// formatting. Lossy extractions carry a LossyFormat finding.
	Lossy() bool

	// Extract pulls the text out of a raw document. Structural damage is
	// reported as a CorruptDocument finding with best-effort text and a
	// nil structure, not as an error.
	Extract(data []byte) (*Extraction, error)

	// Reinject writes processed text back into the extracted structure.
	Reinject(structure any, text string) ([]byte, error)
}

// Registry maps file extensions to adapters, falling back to plain text.
type Registry struct {
	byExt    map[string]Adapter
	fallback Adapter
}

// NewRegistry creates a registry with the built-in adapters registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Adapter), fallback: NewPlainAdapter()}
	r.Register(NewCSVAdapter(), ".csv")
	r.Register(NewHTMLAdapter(), ".html", ".htm")
	return r
}

// Register routes the given extensions to adapter.
func (r *Registry) Register(a Adapter, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = a
	}
}

// ForFile picks the adapter for a file name by extension.
func (r *Registry) ForFile(name string) Adapter {
	if a, ok := r.byExt[strings.ToLower(filepath.Ext(name))]; ok {
		return a
	}
	return r.fallback
}

// unitSep joins extracted units (table cells, text nodes) into pipeline
// text. It is the ASCII unit separator: whitespace classes in detection
// patterns never match it, so a detected span cannot straddle two units
// and throw off structural addressing at reinjection time.
const unitSep = "\x1f"

// sniffBinary reports whether data looks like a binary file. NUL bytes do
// not occur in the text formats we handle.
func sniffBinary(data []byte) bool {
	limit := len(data)
	if limit > 8000 {
		limit = 8000
	}
	return bytes.IndexByte(data[:limit], 0) >= 0
}

// ObscuredName returns the output file name for a deidentified document.
func ObscuredName(name string) string {
	return "Obscured_" + filepath.Base(name)
}

// RestoredName returns the output file name for a restored document. An
// Obscured_ prefix is swapped rather than stacked.
func RestoredName(name string) string {
	base := filepath.Base(name)
	if rest, ok := strings.CutPrefix(base, "Obscured_"); ok {
		return "Restored_" + rest
	}
	return "Restored_" + base
}
