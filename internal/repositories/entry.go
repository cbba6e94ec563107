package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// EntryRepository persists [models.DictionaryEntry] rows. Unlike the other
// repositories it has no soft delete: an entry either exists and is the
// authoritative mapping for its original, or it is gone.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new [EntryRepository] with the given database connection
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// entryColumns is the scan order shared by every entry query.
const entryColumns = "id, project_id, entity_type, original, token, first_seen"

// maxMintDraws bounds the counter draws a single CreateWithToken may burn
// skipping colliding indexes.
const maxMintDraws = 1000

// CreateWithToken allocates the next per-type counter value, builds the
// token with mint, and inserts the entry — all in one transaction, so a
// half-written entry is never observable. mint is called with successive
// counter values until it returns a token free of collisions (mint returning
// "" means skip this index and draw the next).
func (r *EntryRepository) CreateWithToken(projectID string, entityType models.EntityType, original string, mint func(index int) string) (*models.DictionaryEntry, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var token string
	for draws := 0; token == ""; draws++ {
		if draws >= maxMintDraws {
			return nil, fmt.Errorf("%w: no usable token after %d draws", shared.ErrWriteConflict, draws)
		}
		index, err := NextTypeIndex(tx, projectID, string(entityType))
		if err != nil {
			return nil, err
		}
		token = mint(index)
	}

	entry := models.NewDictionaryEntry(projectID, original, token, entityType)
	entry.SetID(shared.GenerateID())

	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO dictionary_entries (id, project_id, entity_type, original, normalized, token, first_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query, entry.ID(), projectID, string(entityType), original, entry.Normalized(), token, entry.FirstSeen())
	if err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("%w: %v", shared.ErrWriteConflict, err)
		}
		return nil, fmt.Errorf("failed to insert dictionary entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dictionary entry: %w", err)
	}

	return entry, nil
}

// isConstraintError reports whether err is a SQLite uniqueness violation.
// Matched textually so the check works for any driver-wrapped error.
func isConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Get retrieves an entry by ID.
func (r *EntryRepository) Get(id string) (*models.DictionaryEntry, error) {
	query := "SELECT " + entryColumns + " FROM dictionary_entries WHERE id = ?"
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByNormalized retrieves a project's entry for a normalized original, if any.
func (r *EntryRepository) GetByNormalized(projectID, normalized string) (*models.DictionaryEntry, error) {
	query := "SELECT " + entryColumns + " FROM dictionary_entries WHERE project_id = ? AND normalized = ?"
	return r.scanOne(r.db.QueryRow(query, projectID, normalized), normalized)
}

// GetByToken retrieves a project's entry for an exact token, if any.
func (r *EntryRepository) GetByToken(projectID, token string) (*models.DictionaryEntry, error) {
	query := "SELECT " + entryColumns + " FROM dictionary_entries WHERE project_id = ? AND token = ?"
	return r.scanOne(r.db.QueryRow(query, projectID, token), token)
}

func (r *EntryRepository) scanOne(row *sql.Row, key string) (*models.DictionaryEntry, error) {
	var (
		entryID    string
		projectID  string
		entityType string
		original   string
		token      string
		firstSeen  time.Time
	)

	err := row.Scan(&entryID, &projectID, &entityType, &original, &token, &firstSeen)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dictionary entry not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dictionary entry: %w", err)
	}

	entry := models.NewDictionaryEntry(projectID, original, token, models.EntityType(entityType))
	entry.SetID(entryID)
	entry.SetFirstSeen(firstSeen)
	return entry, nil
}

// UpdateEntityType corrects the entity type of an entry. This is the only
// mutation a persisted entry supports.
func (r *EntryRepository) UpdateEntityType(id string, entityType models.EntityType) error {
	result, err := r.db.Exec(
		"UPDATE dictionary_entries SET entity_type = ? WHERE id = ?",
		string(entityType), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity type: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("dictionary entry not found: %s", id)
	}

	return nil
}

// Delete removes an entry permanently. Callers are responsible for the
// restore-cache usage check; the repository does not second-guess them.
func (r *EntryRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM dictionary_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dictionary entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("dictionary entry not found: %s", id)
	}

	return nil
}

// ListByProject retrieves all of a project's entries ordered by token.
func (r *EntryRepository) ListByProject(projectID string) ([]*models.DictionaryEntry, error) {
	query := "SELECT " + entryColumns + " FROM dictionary_entries WHERE project_id = ? ORDER BY token ASC"

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dictionary entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DictionaryEntry
	for rows.Next() {
		var (
			entryID    string
			pID        string
			entityType string
			original   string
			token      string
			firstSeen  time.Time
		)

		if err := rows.Scan(&entryID, &pID, &entityType, &original, &token, &firstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan dictionary entry: %w", err)
		}

		entry := models.NewDictionaryEntry(pID, original, token, models.EntityType(entityType))
		entry.SetID(entryID)
		entry.SetFirstSeen(firstSeen)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}
