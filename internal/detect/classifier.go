// package detect finds sensitive spans in text by combining user keyword
// rules with pluggable classifiers. Temporal expressions (dates, quarters,
// fiscal periods) are never reported; redacting them destroys documents for
// no privacy gain.
package detect

import (
	"context"
	"strings"

	"github.com/ljcooper54/DeID/internal/models"
)

// Classifier detects sensitive spans in a text string. Implementations must
// be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]models.Span, error)
}

// MapLabel converts a classifier label to an entity type. Temporal labels
// and anything unrecognized report ok == false and are dropped.
func MapLabel(label string) (models.EntityType, bool) {
	switch strings.ToUpper(label) {
	case "DATE", "TIME", "EVENT":
		return "", false
	case "PERSON", "PER":
		return models.EntityPerson, true
	case "ORG", "ORGANIZATION":
		return models.EntityOrg, true
	case "GPE", "LOC", "FAC", "LOCATION":
		return models.EntityLocation, true
	case "PRODUCT":
		return models.EntityProduct, true
	case "CODE_NAME", "CODENAME":
		return models.EntityCodeName, true
	case "LAW", "EMAIL", "MISC", "OTHER", "CUSTOM":
		return models.EntityCustom, true
	}
	return "", false
}
