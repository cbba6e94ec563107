package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// ProjectRepository implements [models.Repository] for [models.Project] persistence.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new [ProjectRepository] with the given database connection
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project into the database with generated ID and sequence
func (r *ProjectRepository) Create(project *models.Project) error {
	sequence, err := NextSequence(r.db, "projects")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	project.SetID(id)

	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO projects (id, sequence, owner_id, name, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, project.OwnerID(), project.Name(), project.Notes(), project.CreatedAt(), project.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID, excluding soft-deleted projects
func (r *ProjectRepository) Get(id string) (*models.Project, error) {
	query := `
		SELECT id, sequence, owner_id, name, notes, created_at, updated_at, deleted_at
		FROM projects
		WHERE id = ? AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByName retrieves an owner's project by name. Project names are unique
// only per owner; two users may each have a project called "default".
func (r *ProjectRepository) GetByName(ownerID, name string) (*models.Project, error) {
	query := `
		SELECT id, sequence, owner_id, name, notes, created_at, updated_at, deleted_at
		FROM projects
		WHERE owner_id = ? AND name = ? AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRow(query, ownerID, name), name)
}

func (r *ProjectRepository) scanOne(row *sql.Row, key string) (*models.Project, error) {
	var (
		projectID string
		sequence  int
		ownerID   string
		name      string
		notes     string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&projectID, &sequence, &ownerID, &name, &notes, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	project := models.NewProject(sequence, ownerID, name, notes)
	project.SetID(projectID)
	project.SetCreatedAt(createdAt)
	project.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		project.SetDeletedAt(&deletedAt.Time)
	}

	return project, nil
}

// Update modifies an existing project in the database
func (r *ProjectRepository) Update(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	project.SetUpdatedAt(now)

	query := `
		UPDATE projects
		SET name = ?, notes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, project.Name(), project.Notes(), now, project.ID())
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project not found or already deleted: %s", project.ID())
	}

	return nil
}

// Delete soft-deletes a project by ID
func (r *ProjectRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE projects
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project not found or already deleted: %s", id)
	}

	return nil
}

// DeleteByOwner soft-deletes all projects owned by a user. Used when an
// account is deleted so the cascade never leaves orphaned dictionaries.
func (r *ProjectRepository) DeleteByOwner(ownerID string) error {
	_, err := r.db.Exec(
		"UPDATE projects SET deleted_at = ? WHERE owner_id = ? AND deleted_at IS NULL",
		time.Now(), ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete projects for owner: %w", err)
	}
	return nil
}

// List retrieves all projects matching the given criteria, excluding soft-deleted projects
func (r *ProjectRepository) List(criteria map[string]any) ([]*models.Project, error) {
	query := `
		SELECT id, sequence, owner_id, name, notes, created_at, updated_at, deleted_at
		FROM projects
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if ownerID, ok := criteria["owner_id"].(string); ok && ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var (
			projectID string
			sequence  int
			ownerID   string
			name      string
			notes     string
			createdAt time.Time
			updatedAt time.Time
			deletedAt sql.NullTime
		)

		err := rows.Scan(&projectID, &sequence, &ownerID, &name, &notes, &createdAt, &updatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		project := models.NewProject(sequence, ownerID, name, notes)
		project.SetID(projectID)
		project.SetCreatedAt(createdAt)
		project.SetUpdatedAt(updatedAt)
		if deletedAt.Valid {
			project.SetDeletedAt(&deletedAt.Time)
		}

		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return projects, nil
}
