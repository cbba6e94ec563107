package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// KeywordRepository persists [models.KeywordRule] rows at both user and
// project scope.
type KeywordRepository struct {
	db *sql.DB
}

// NewKeywordRepository creates a new [KeywordRepository] with the given database connection
func NewKeywordRepository(db *sql.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

const keywordColumns = "id, project_id, user_id, pattern, entity_type, case_sensitive, whole_word, created_at"

// Create inserts a new keyword rule. Duplicate patterns within the same
// scope are rejected by the schema's partial unique indexes.
func (r *KeywordRepository) Create(rule *models.KeywordRule) error {
	rule.SetID(shared.GenerateID())

	if err := rule.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO keyword_rules (id, project_id, user_id, pattern, entity_type, case_sensitive, whole_word, created_at)
		VALUES (?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, rule.ID(), rule.ProjectID(), rule.UserID(), rule.Pattern(),
		string(rule.EntityType()), rule.CaseSensitive(), rule.WholeWord(), rule.CreatedAt())
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: duplicate keyword rule %q", shared.ErrInvalidInput, rule.Pattern())
		}
		return fmt.Errorf("failed to insert keyword rule: %w", err)
	}

	return nil
}

// Get retrieves a keyword rule by ID.
func (r *KeywordRepository) Get(id string) (*models.KeywordRule, error) {
	query := "SELECT " + keywordColumns + " FROM keyword_rules WHERE id = ?"

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword rule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("keyword rule not found: %s", id)
	}
	return scanKeywordRule(rows)
}

// Delete removes a keyword rule permanently.
func (r *KeywordRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM keyword_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("keyword rule not found: %s", id)
	}

	return nil
}

// ListForProject returns the rules in effect for a project run: the owner's
// global rules first, then the project's own. Rule order matters only for
// display; detection treats all keyword rules at equal priority.
func (r *KeywordRepository) ListForProject(ownerID, projectID string) ([]*models.KeywordRule, error) {
	query := "SELECT " + keywordColumns + ` FROM keyword_rules
		WHERE user_id = ? OR project_id = ?
		ORDER BY user_id IS NULL ASC, pattern ASC`

	rows, err := r.db.Query(query, ownerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyword rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.KeywordRule
	for rows.Next() {
		rule, err := scanKeywordRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return rules, nil
}

func scanKeywordRule(rows *sql.Rows) (*models.KeywordRule, error) {
	var (
		ruleID        string
		projectID     sql.NullString
		userID        sql.NullString
		pattern       string
		entityType    string
		caseSensitive bool
		wholeWord     bool
		createdAt     time.Time
	)

	if err := rows.Scan(&ruleID, &projectID, &userID, &pattern, &entityType, &caseSensitive, &wholeWord, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan keyword rule: %w", err)
	}

	var rule *models.KeywordRule
	if projectID.Valid {
		rule = models.NewProjectKeywordRule(projectID.String, pattern, models.EntityType(entityType))
	} else {
		rule = models.NewUserKeywordRule(userID.String, pattern, models.EntityType(entityType))
	}
	rule.SetID(ruleID)
	rule.SetCaseSensitive(caseSensitive)
	rule.SetWholeWord(wholeWord)
	rule.SetCreatedAt(createdAt)
	return rule, nil
}
