package models

import "fmt"

// DocumentState tracks a document through the deidentification lifecycle.
// Transitions are one-directional; Restored may re-enter Anonymized only by
// starting a fresh detection pass on new text (a new Document).
type DocumentState int

const (
	StateExtracted DocumentState = iota
	StateDetected
	StateAnonymized
	StateReceivedResponse
	StateRestored
)

func (s DocumentState) String() string {
	switch s {
	case StateExtracted:
		return "extracted"
	case StateDetected:
		return "detected"
	case StateAnonymized:
		return "anonymized"
	case StateReceivedResponse:
		return "received_response"
	case StateRestored:
		return "restored"
	default:
		return ""
	}
}

// Document is a transient in-memory document moving through the pipeline.
// It is never persisted; text is discarded with the session unless the user
// explicitly exports it.
type Document struct {
	Format   string // source format tag ("csv", "html", "plain", ...)
	Name     string // display name, usually the source file name
	Text     string // extracted plain text (current stage's content)
	Lossy    bool   // true when the structure handle cannot reinject
	Spans    []Span // resolved spans after detection
	Rewrites []Rewrite

	state DocumentState
}

// NewDocument creates a Document in the Extracted state.
func NewDocument(format, name, text string) *Document {
	return &Document{Format: format, Name: name, Text: text, state: StateExtracted}
}

// NewResponseDocument creates a Document holding text that came back from an
// external system, entering the lifecycle at ReceivedResponse.
func NewResponseDocument(format, name, text string) *Document {
	return &Document{Format: format, Name: name, Text: text, state: StateReceivedResponse}
}

// State returns the document's current lifecycle state.
func (d *Document) State() DocumentState { return d.state }

// Advance moves the document to next. Only the single forward step is legal.
func (d *Document) Advance(next DocumentState) error {
	if next != d.state+1 {
		return fmt.Errorf("invalid document transition %s → %s", d.state, next)
	}
	d.state = next
	return nil
}
