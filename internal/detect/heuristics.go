package detect

import (
	"context"
	"regexp"
	"strings"

	"github.com/ljcooper54/DeID/internal/models"
)

// RuleClassifier is the built-in detector: a set of compiled regex passes
// covering the identifier shapes that show up in business correspondence,
// diligence material, and engineering docs. It needs no external service
// and always runs.
type RuleClassifier struct{}

// NewRuleClassifier creates the built-in rule detector.
func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

var (
	// "U.S. Patent No. 9,876,543" and filing-style "US 10,123,456 B2".
	patentPhraseRe = regexp.MustCompile(`(?i)\b(?:U\.?S\.?\s+)?Patent\s+(?:No\.|Number|#)\s*[0-9,]{4,}\b`)
	patentFilingRe = regexp.MustCompile(`(?i)\b(?:US|U\.S\.|WO|EP)\s+[0-9][0-9,./ ]+[A-Z0-9]{1,3}\b`)

	// "Project Falcon v2.1", "Codename Athena".
	projectPhraseRe = regexp.MustCompile(`\b(?:Project|Codename)\s+[A-Z][A-Za-z0-9_-]*(?:\s+v[0-9.]+)?`)

	// SKU-style identifiers: "ACME-9000", "XR_500A".
	skuRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]+[-_][A-Z0-9]{2,}\b`)

	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// Single-token company-style names: "BainCap", "DataRobot".
	camelOrgRe = regexp.MustCompile(`\b[A-Z][a-z]+[A-Z][A-Za-z0-9]+\b`)

	// "Hi Ryan", "Thanks Athena,", "Dear [Brient]".
	greetingRe = regexp.MustCompile(`(?i)\b(?:Hi|Hey|Hello|Thanks|Thank\s+you|Dear)\s+([@\[({]?[A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?[\])}:,]?)`)

	// "@Ryan" or "@Ryan Jacobson".
	handleRe = regexp.MustCompile(`@([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?)`)

	// "Athena rollout" / "diligence for Athena" style codename triggers.
	codenameBeforeRe = regexp.MustCompile(`(?i)\b([A-Z][a-zA-Z0-9]+)\s+(?:rollout|launch|diligence|workstream|initiative|program|platform|phase|deal\s+team)\b`)
	codenameAfterRe  = regexp.MustCompile(`(?i)\b(?:rollout|launch|diligence|workstream|initiative|program|platform|phase|deal\s+team)\s+(?:for|on|of|around)\s+([A-Z][a-zA-Z0-9]+)\b`)

	// "Lorne Cooper <lorne@example.com>" — the name span only.
	nameBeforeEmailRe = regexp.MustCompile(`\b([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)?)\s*<\s*[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\s*>`)
)

// Temporal guardrail patterns.
var (
	quarterRe  = regexp.MustCompile(`(?i)\bQ[1-4]\s+(?:FY?)?\d{4}\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2}(st|nd|rd|th)?(,\s*\d{4})?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\b\d{1,2}\s+(January|February|March|April|May|June|July|August|September|October|November|December)(\s+\d{4})?\b`)
	seasonRe   = regexp.MustCompile(`(?i)\b(Spring|Summer|Fall|Autumn|Winter)\s+\d{4}\b`)
)

// LooksTemporal reports whether s is a date, quarter, or season expression.
// Spans that look temporal are never emitted, whatever pass found them.
func LooksTemporal(s string) bool {
	return quarterRe.MatchString(s) ||
		monthDayRe.MatchString(s) ||
		dayMonthRe.MatchString(s) ||
		seasonRe.MatchString(s)
}

// pass is one regex detector: which submatch carries the span (0 = whole
// match) and the type it reports.
type pass struct {
	re    *regexp.Regexp
	group int
	typ   models.EntityType
	trim  string // characters stripped from the matched text, offsets adjusted
}

var passes = []pass{
	{patentPhraseRe, 0, models.EntityCodeName, ""},
	{patentFilingRe, 0, models.EntityCodeName, ""},
	{projectPhraseRe, 0, models.EntityCodeName, ""},
	{skuRe, 0, models.EntityProduct, ""},
	{emailRe, 0, models.EntityCustom, ""},
	{camelOrgRe, 0, models.EntityOrg, ""},
	{greetingRe, 1, models.EntityPerson, "[](){}:,>@"},
	{handleRe, 0, models.EntityPerson, ""},
	{codenameBeforeRe, 1, models.EntityCodeName, ""},
	{codenameAfterRe, 1, models.EntityCodeName, ""},
	{nameBeforeEmailRe, 1, models.EntityPerson, ""},
}

// Classify runs every regex pass over text. Matches that look temporal are
// discarded. The result may contain overlaps; the detector resolves them.
func (c *RuleClassifier) Classify(ctx context.Context, text string) ([]models.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var spans []models.Span
	for _, p := range passes {
		for _, idx := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[2*p.group], idx[2*p.group+1]
			if start < 0 {
				continue
			}
			matched := text[start:end]

			if p.trim != "" {
				trimmed := strings.Trim(matched, p.trim)
				start += strings.Index(matched, trimmed)
				end = start + len(trimmed)
				matched = trimmed
			}
			if matched == "" || LooksTemporal(matched) {
				continue
			}

			spans = append(spans, models.Span{
				Start:      start,
				End:        end,
				Type:       p.typ,
				Source:     models.SourceClassifier,
				Text:       matched,
				Confidence: 1.0,
			})
		}
	}
	return spans, nil
}
