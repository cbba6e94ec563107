package models

import "fmt"

// FindingKind enumerates the non-fatal issues a pipeline run can report.
type FindingKind string

const (
	FindingTypeMismatch    FindingKind = "type_mismatch"
	FindingUnknownToken    FindingKind = "unknown_token"
	FindingAmbiguousToken  FindingKind = "ambiguous_token"
	FindingCorruptDocument FindingKind = "corrupt_document"
	FindingLossyFormat     FindingKind = "lossy_format"
	FindingClassifierSkip  FindingKind = "classifier_skipped"
)

// Finding is a structured warning attached to a deidentify or restore result.
// Findings never abort a run; the primary output is always produced.
type Finding struct {
	Kind    FindingKind
	Message string
	Token   string // the token involved, when applicable
	Start   int    // span bounds in the relevant text, when applicable
	End     int
}

func (f Finding) String() string {
	if f.Token != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Message, f.Token)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}
