package detect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// Detector combines the keyword pass with one or more classifiers and
// resolves overlaps into a sorted, non-overlapping span list. The same text
// and rules always yield the same spans.
type Detector struct {
	classifiers []Classifier
	failOpen    bool
	logger      *log.Logger
}

// NewDetector creates a detector running the given classifiers. With
// failOpen set, an unavailable classifier downgrades from a hard error to a
// ClassifierSkip finding and the keyword and rule passes still run.
func NewDetector(failOpen bool, logger *log.Logger, classifiers ...Classifier) *Detector {
	return &Detector{classifiers: classifiers, failOpen: failOpen, logger: logger}
}

// Detect returns every sensitive span of text, keyword-rule matches first
// in precedence. The spans are sorted by start offset and never overlap.
func (d *Detector) Detect(ctx context.Context, text string, rules []*models.KeywordRule) ([]models.Span, []models.Finding, error) {
	var (
		candidates []models.Span
		findings   []models.Finding
	)

	for _, rule := range rules {
		matches, err := matchKeyword(text, rule)
		if err != nil {
			return nil, nil, fmt.Errorf("bad keyword rule %q: %w", rule.Pattern(), err)
		}
		candidates = append(candidates, matches...)
	}

	for _, c := range d.classifiers {
		spans, err := c.Classify(ctx, text)
		if err != nil {
			if errors.Is(err, shared.ErrClassifierUnavailable) && d.failOpen {
				d.logger.Warn("classifier unavailable, continuing without it", "error", err)
				findings = append(findings, models.Finding{
					Kind:    models.FindingClassifierSkip,
					Message: "classifier unavailable, detection ran without it",
				})
				continue
			}
			return nil, nil, err
		}
		candidates = append(candidates, spans...)
	}

	return resolveOverlaps(candidates), findings, nil
}

// matchKeyword finds every occurrence of a rule's literal pattern, honoring
// its case-sensitivity and whole-word settings.
func matchKeyword(text string, rule *models.KeywordRule) ([]models.Span, error) {
	pattern := regexp.QuoteMeta(rule.Pattern())
	if rule.WholeWord() {
		pattern = `\b` + pattern + `\b`
	}
	if !rule.CaseSensitive() {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	var spans []models.Span
	for _, loc := range re.FindAllStringIndex(text, -1) {
		spans = append(spans, models.Span{
			Start:      loc[0],
			End:        loc[1],
			Type:       rule.EntityType(),
			Source:     models.SourceKeyword,
			Text:       text[loc[0]:loc[1]],
			Confidence: 1.0,
		})
	}
	return spans, nil
}

// resolveOverlaps picks a winner for every contested byte range: keyword
// spans beat classifier spans, then the longer span, then the one starting
// earlier, then higher type priority as the final deterministic tiebreak.
// The winners come back sorted by start offset.
func resolveOverlaps(candidates []models.Span) []models.Span {
	ranked := make([]models.Span, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Source != b.Source {
			return a.Source == models.SourceKeyword
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Type.Priority() > b.Type.Priority()
	})

	var accepted []models.Span
	for _, cand := range ranked {
		clear := true
		for _, kept := range accepted {
			if cand.Overlaps(kept) {
				clear = false
				break
			}
		}
		if clear {
			accepted = append(accepted, cand)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}
