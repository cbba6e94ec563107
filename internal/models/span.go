package models

// SpanSource identifies which detection pass produced a span. Keyword spans
// always outrank classifier spans during overlap resolution.
type SpanSource int

const (
	SourceClassifier SpanSource = iota
	SourceKeyword
)

func (s SpanSource) String() string {
	if s == SourceKeyword {
		return "keyword"
	}
	return "classifier"
}

// Span is a contiguous byte range in a document's extracted text tagged with
// an entity type. Start is inclusive, End exclusive.
type Span struct {
	Start      int
	End        int
	Type       EntityType
	Source     SpanSource
	Text       string  // the exact source text covered by the span
	Confidence float64 // classifier confidence in [0,1]; 1.0 for keyword and rule matches
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Rewrite records one span-to-token substitution performed during
// deidentification, in original-text coordinates.
type Rewrite struct {
	Token string
	Start int
	End   int
	Text  string
}
