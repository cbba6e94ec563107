// package dictionary owns the reversible original ↔ token mapping: token
// grammar, minting, lookup, and keyword-rule management, all scoped to the
// session's active project.
package dictionary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ljcooper54/DeID/internal/models"
)

// Pattern matches token-shaped substrings inside larger text. The prefix
// set mirrors the entity types; counters are zero-padded to at least four
// digits and keep growing past 9999.
var Pattern = regexp.MustCompile(`\b(PERSON|ORG|LOCATION|PRODUCT|CODE|CUSTOM)-(\d{4,})\b`)

// exact anchors Pattern for whole-string validation.
var exact = regexp.MustCompile(`^(PERSON|ORG|LOCATION|PRODUCT|CODE|CUSTOM)-\d{4,}$`)

// FuzzyPattern additionally matches tokens that an external round trip
// damaged: wrong case, or a separator swapped for an underscore or space.
// A candidate still needs one exact-grammar signal — an uppercase prefix
// or a non-space separator — so natural phrases like "error code 1001"
// never count as token-shaped.
var FuzzyPattern = regexp.MustCompile(`\b(?:(?:PERSON|ORG|LOCATION|PRODUCT|CODE|CUSTOM) |(?i:PERSON|ORG|LOCATION|PRODUCT|CODE|CUSTOM)[-_])\d{4,}\b`)

// Mint builds the canonical token for an entity type and counter value.
func Mint(entityType models.EntityType, index int) string {
	return fmt.Sprintf("%s-%04d", entityType.TokenPrefix(), index)
}

// IsToken reports whether s is exactly one well-formed token.
func IsToken(s string) bool {
	return exact.MatchString(s)
}

// TypeOf returns the entity type a well-formed token encodes.
func TypeOf(token string) (models.EntityType, bool) {
	m := exact.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return models.EntityTypeFromPrefix(m[1])
}

// Scan returns every token-shaped substring of text, in order, without
// deduplication.
func Scan(text string) []string {
	return Pattern.FindAllString(text, -1)
}

// nonTokenChars is used by Canonicalize to repair separators.
var nonTokenChars = regexp.MustCompile(`[^A-Z0-9]+`)

// Canonicalize repairs a token that picked up case, punctuation, or
// whitespace damage in an external round trip: "person 0001." becomes
// "PERSON-0001". The result is not guaranteed to be well-formed; callers
// validate with IsToken.
func Canonicalize(tokenLike string) string {
	s := strings.ToUpper(strings.TrimSpace(tokenLike))
	s = nonTokenChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
