package models

import (
	"fmt"
	"strings"
)

// EntityType classifies the kind of sensitive value a span or dictionary
// entry represents.
type EntityType string

// Supported entity types. CUSTOM covers user-defined keyword matches and
// classifier labels with no closer mapping (emails, law references, etc.).
const (
	EntityPerson   EntityType = "PERSON"
	EntityOrg      EntityType = "ORG"
	EntityLocation EntityType = "LOCATION"
	EntityProduct  EntityType = "PRODUCT"
	EntityCodeName EntityType = "CODE_NAME"
	EntityCustom   EntityType = "CUSTOM"
)

// EntityTypes lists all valid types in priority order (highest first).
var EntityTypes = []EntityType{
	EntityCodeName,
	EntityProduct,
	EntityPerson,
	EntityOrg,
	EntityLocation,
	EntityCustom,
}

// ParseEntityType converts a string into an EntityType, accepting any case.
func ParseEntityType(s string) (EntityType, error) {
	et := EntityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EntityTypes {
		if et == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// Priority ranks entity types for overlap resolution between spans of the
// same detection source. Higher wins. Unknown types rank lowest.
func (t EntityType) Priority() int {
	switch t {
	case EntityCodeName:
		return 6
	case EntityProduct:
		return 5
	case EntityPerson:
		return 4
	case EntityOrg:
		return 3
	case EntityLocation:
		return 2
	case EntityCustom:
		return 1
	}
	return 0
}

// TokenPrefix returns the uppercase prefix used in generated tokens.
func (t EntityType) TokenPrefix() string {
	if t == EntityCodeName {
		return "CODE"
	}
	return string(t)
}

// EntityTypeFromPrefix maps a token prefix back to its EntityType.
func EntityTypeFromPrefix(prefix string) (EntityType, bool) {
	if prefix == "CODE" {
		return EntityCodeName, true
	}
	et, err := ParseEntityType(prefix)
	if err != nil {
		return "", false
	}
	return et, true
}
