package docs

import (
	"fmt"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// PlainAdapter treats the whole file as one text blob. It is the fallback
// for unrecognized extensions and the only lossy adapter: there is no
// structure to reinject into.
type PlainAdapter struct{}

// NewPlainAdapter creates the plain-text fallback adapter.
func NewPlainAdapter() *PlainAdapter { return &PlainAdapter{} }

func (a *PlainAdapter) Name() string { return "plain" }
func (a *PlainAdapter) Lossy() bool  { return true }

// Extract returns the file contents verbatim. Binary data is refused.
func (a *PlainAdapter) Extract(data []byte) (*Extraction, error) {
	if sniffBinary(data) {
		return nil, fmt.Errorf("%w: binary data", shared.ErrUnsupportedFormat)
	}
	return &Extraction{
		Text: string(data),
		Findings: []models.Finding{{
			Kind:    models.FindingLossyFormat,
			Message: "plain-text fallback, formatting is not preserved",
		}},
	}, nil
}

// Reinject returns the text as-is; there is no structure to restore.
func (a *PlainAdapter) Reinject(structure any, text string) ([]byte, error) {
	return []byte(text), nil
}
