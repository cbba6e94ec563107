package models

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeOriginal produces the case-insensitive dictionary key for an
// original value. Two originals that normalize identically share one entry.
func NormalizeOriginal(original string) string {
	return strings.ToLower(strings.Join(strings.Fields(original), " "))
}

// DictionaryEntry is one original ↔ token mapping within a project. Entries
// are immutable once created except for entity type correction.
type DictionaryEntry struct {
	id        string
	projectID string
	original  string
	token     string
	entryType EntityType
	firstSeen time.Time
}

// NewDictionaryEntry creates an entry for the given project.
func NewDictionaryEntry(projectID, original, token string, entryType EntityType) *DictionaryEntry {
	return &DictionaryEntry{
		projectID: projectID,
		original:  original,
		token:     token,
		entryType: entryType,
		firstSeen: time.Now(),
	}
}

func (e *DictionaryEntry) ID() string             { return e.id }
func (e *DictionaryEntry) ProjectID() string      { return e.projectID }
func (e *DictionaryEntry) Original() string       { return e.original }
func (e *DictionaryEntry) Normalized() string     { return NormalizeOriginal(e.original) }
func (e *DictionaryEntry) Token() string          { return e.token }
func (e *DictionaryEntry) EntityType() EntityType { return e.entryType }
func (e *DictionaryEntry) FirstSeen() time.Time   { return e.firstSeen }

// CreatedAt and UpdatedAt alias FirstSeen; entries never mutate beyond type
// correction so a separate update timestamp carries no information.
func (e *DictionaryEntry) CreatedAt() time.Time { return e.firstSeen }
func (e *DictionaryEntry) UpdatedAt() time.Time { return e.firstSeen }

func (e *DictionaryEntry) SetID(id string)            { e.id = id }
func (e *DictionaryEntry) SetEntityType(t EntityType) { e.entryType = t }
func (e *DictionaryEntry) SetFirstSeen(t time.Time)   { e.firstSeen = t }

// Validate checks entry integrity before persistence.
func (e *DictionaryEntry) Validate() error {
	if e.projectID == "" {
		return fmt.Errorf("project is required")
	}
	if strings.TrimSpace(e.original) == "" {
		return fmt.Errorf("original value is required")
	}
	if e.token == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := ParseEntityType(string(e.entryType)); err != nil {
		return err
	}
	return nil
}

// KeywordRule is a user-authored literal string that always counts as a
// sensitive span, overriding any overlapping classifier detection.
//
// A rule is scoped either to one project or globally to one user; exactly
// one of ProjectID / UserID is set.
type KeywordRule struct {
	id            string
	projectID     string
	userID        string
	pattern       string
	entryType     EntityType
	caseSensitive bool
	wholeWord     bool
	createdAt     time.Time
}

// NewProjectKeywordRule creates a rule scoped to a project.
func NewProjectKeywordRule(projectID, pattern string, entryType EntityType) *KeywordRule {
	return &KeywordRule{
		projectID: projectID,
		pattern:   pattern,
		entryType: entryType,
		wholeWord: true,
		createdAt: time.Now(),
	}
}

// NewUserKeywordRule creates a rule applied to every project the user owns.
func NewUserKeywordRule(userID, pattern string, entryType EntityType) *KeywordRule {
	return &KeywordRule{
		userID:    userID,
		pattern:   pattern,
		entryType: entryType,
		wholeWord: true,
		createdAt: time.Now(),
	}
}

func (r *KeywordRule) ID() string             { return r.id }
func (r *KeywordRule) ProjectID() string      { return r.projectID }
func (r *KeywordRule) UserID() string         { return r.userID }
func (r *KeywordRule) Pattern() string        { return r.pattern }
func (r *KeywordRule) EntityType() EntityType { return r.entryType }
func (r *KeywordRule) CaseSensitive() bool    { return r.caseSensitive }
func (r *KeywordRule) WholeWord() bool        { return r.wholeWord }
func (r *KeywordRule) CreatedAt() time.Time   { return r.createdAt }
func (r *KeywordRule) UpdatedAt() time.Time   { return r.createdAt }

func (r *KeywordRule) SetID(id string)          { r.id = id }
func (r *KeywordRule) SetCaseSensitive(v bool)  { r.caseSensitive = v }
func (r *KeywordRule) SetWholeWord(v bool)      { r.wholeWord = v }
func (r *KeywordRule) SetCreatedAt(t time.Time) { r.createdAt = t }

// Validate checks rule integrity before persistence.
func (r *KeywordRule) Validate() error {
	if strings.TrimSpace(r.pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	if (r.projectID == "") == (r.userID == "") {
		return fmt.Errorf("rule must be scoped to exactly one of project or user")
	}
	if _, err := ParseEntityType(string(r.entryType)); err != nil {
		return err
	}
	return nil
}
