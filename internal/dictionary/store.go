package dictionary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ljcooper54/DeID/internal/auth"
	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/repositories"
	"github.com/ljcooper54/DeID/internal/restorecache"
	"github.com/ljcooper54/DeID/internal/shared"
)

// Store is the dictionary service. Reads go straight to the repositories;
// writes to a project are serialized through a per-project mutex so two
// interleaved lookups of the same new original cannot race past each other's
// read.
type Store struct {
	entries  *repositories.EntryRepository
	keywords *repositories.KeywordRepository
	cache    restorecache.Cache
	logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a dictionary store.
func NewStore(entries *repositories.EntryRepository, keywords *repositories.KeywordRepository, cache restorecache.Cache, logger *log.Logger) *Store {
	return &Store{
		entries:  entries,
		keywords: keywords,
		cache:    cache,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// projectLock returns the mutex serializing writes for projectID.
func (s *Store) projectLock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	return l
}

// LookupOrCreate returns the token for original, minting one if the project
// has never seen it. Repeated lookups of the same original (modulo case and
// whitespace) always return the same token. When an existing entry's type
// differs from entityType the stored mapping wins and a TypeMismatch finding
// is reported.
func (s *Store) LookupOrCreate(ctx context.Context, sess *auth.Session, original string, entityType models.EntityType) (string, []models.Finding, error) {
	if err := sess.RequireProject(); err != nil {
		return "", nil, err
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	normalized := models.NormalizeOriginal(original)
	if normalized == "" {
		return "", nil, fmt.Errorf("%w: empty original", shared.ErrInvalidInput)
	}

	lock := s.projectLock(sess.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.entries.GetByNormalized(sess.ProjectID, normalized)
	if err == nil {
		return entry.Token(), s.typeMismatch(entry, entityType), nil
	}

	entry, err = s.entries.CreateWithToken(sess.ProjectID, entityType, original, s.minter(sess, entityType))
	if errors.Is(err, shared.ErrWriteConflict) {
		// Another writer slipped in between our read and our insert.
		// The mapping exists now; read it back.
		entry, err = s.entries.GetByNormalized(sess.ProjectID, normalized)
		if err != nil {
			return "", nil, fmt.Errorf("lost write race and re-read failed: %w", err)
		}
		return entry.Token(), s.typeMismatch(entry, entityType), nil
	}
	if err != nil {
		return "", nil, err
	}

	s.logger.Debug("minted token", "token", entry.Token(), "type", entityType)
	return entry.Token(), nil, nil
}

// minter builds the mint callback for CreateWithToken: a candidate token
// that already appeared verbatim in a processed document is skipped so the
// restore scanner can never confuse it with pre-existing text.
func (s *Store) minter(sess *auth.Session, entityType models.EntityType) func(index int) string {
	return func(index int) string {
		candidate := Mint(entityType, index)
		seen, err := s.cache.HasLiteral(sess.UserID, sess.ProjectID, candidate)
		if err != nil {
			s.logger.Warn("literal collision check failed", "token", candidate, "error", err)
			return candidate
		}
		if seen {
			s.logger.Debug("skipping colliding token", "token", candidate)
			return ""
		}
		return candidate
	}
}

func (s *Store) typeMismatch(entry *models.DictionaryEntry, requested models.EntityType) []models.Finding {
	if entry.EntityType() == requested {
		return nil
	}
	return []models.Finding{{
		Kind:    models.FindingTypeMismatch,
		Message: fmt.Sprintf("%q already recorded as %s, ignoring %s", entry.Original(), entry.EntityType(), requested),
		Token:   entry.Token(),
	}}
}

// Resolve returns the entry for an exact, well-formed token.
func (s *Store) Resolve(ctx context.Context, sess *auth.Session, token string) (*models.DictionaryEntry, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entries.GetByToken(sess.ProjectID, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownToken, token)
	}
	return entry, nil
}

// FuzzyResolve resolves a token that came back from an external system with
// case, punctuation, or whitespace damage. The canonical form must match
// exactly one of the project's tokens; zero matches is ErrUnknownToken and
// several is ErrAmbiguousToken.
func (s *Store) FuzzyResolve(ctx context.Context, sess *auth.Session, tokenLike string) (*models.DictionaryEntry, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}

	canonical := Canonicalize(tokenLike)
	if IsToken(canonical) {
		if entry, err := s.Resolve(ctx, sess, canonical); err == nil {
			return entry, nil
		}
	}

	entries, err := s.entries.ListByProject(sess.ProjectID)
	if err != nil {
		return nil, err
	}

	fold := foldToken(tokenLike)
	var matches []*models.DictionaryEntry
	for _, entry := range entries {
		if foldToken(entry.Token()) == fold {
			matches = append(matches, entry)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownToken, tokenLike)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d tokens", shared.ErrAmbiguousToken, tokenLike, len(matches))
	}
}

// foldToken strips everything but letters and digits for fuzzy comparison.
func foldToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Entries lists the project's dictionary ordered by token.
func (s *Store) Entries(ctx context.Context, sess *auth.Session) ([]*models.DictionaryEntry, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.entries.ListByProject(sess.ProjectID)
}

// CorrectType reclassifies an entry. The token keeps its original prefix so
// documents already processed stay resolvable.
func (s *Store) CorrectType(ctx context.Context, sess *auth.Session, token string, entityType models.EntityType) error {
	entry, err := s.Resolve(ctx, sess, token)
	if err != nil {
		return err
	}
	return s.entries.UpdateEntityType(entry.ID(), entityType)
}

// Delete removes a mapping by original value. A token that has already
// appeared in restored output is refused unless force is set, because
// deleting it silently breaks documents still in flight.
func (s *Store) Delete(ctx context.Context, sess *auth.Session, original string, force bool) error {
	if err := sess.RequireProject(); err != nil {
		return err
	}

	lock := s.projectLock(sess.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.entries.GetByNormalized(sess.ProjectID, models.NormalizeOriginal(original))
	if err != nil {
		return err
	}

	if !force {
		usage, used, err := s.cache.TokenUsage(sess.UserID, sess.ProjectID, entry.Token())
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: %s restored %d times, use force to delete", shared.ErrEntryInUse, entry.Token(), usage.Count)
		}
	}

	s.logger.Info("deleting dictionary entry", "token", entry.Token(), "forced", force)
	return s.entries.Delete(entry.ID())
}

// AddKeywordRule registers a forced-match rule, scoped to the active project
// or to the user across all their projects.
func (s *Store) AddKeywordRule(ctx context.Context, sess *auth.Session, pattern string, entityType models.EntityType, userWide, caseSensitive bool) (*models.KeywordRule, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rule *models.KeywordRule
	if userWide {
		rule = models.NewUserKeywordRule(sess.UserID, pattern, entityType)
	} else {
		rule = models.NewProjectKeywordRule(sess.ProjectID, pattern, entityType)
	}
	rule.SetCaseSensitive(caseSensitive)
	if err := s.keywords.Create(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// KeywordRules lists the rules in effect for the active project: the user's
// global rules followed by the project's own.
func (s *Store) KeywordRules(ctx context.Context, sess *auth.Session) ([]*models.KeywordRule, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.keywords.ListForProject(sess.UserID, sess.ProjectID)
}

// RemoveKeywordRule deletes a rule the session can see.
func (s *Store) RemoveKeywordRule(ctx context.Context, sess *auth.Session, id string) error {
	if err := sess.RequireProject(); err != nil {
		return err
	}

	rule, err := s.keywords.Get(id)
	if err != nil {
		return err
	}
	if rule.UserID() != sess.UserID && rule.ProjectID() != sess.ProjectID {
		return shared.ErrAccessDenied
	}
	return s.keywords.Delete(id)
}
