package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ljcooper54/DeID/internal/shared"
)

// AuditRecord is one logged obscure or restore run. Only content hashes are
// stored, never document text.
type AuditRecord struct {
	ID         string
	ProjectID  string
	Kind       string // "obscure" or "restore"
	InputHash  string
	OutputHash string
	RecordedAt time.Time
}

// AuditRepository appends to and reads the per-project audit log.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new [AuditRepository] with the given database connection
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends an audit row for one pipeline run.
func (r *AuditRepository) Record(projectID, kind, inputHash, outputHash string) error {
	query := `
		INSERT INTO audit_log (id, project_id, kind, input_hash, output_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, shared.GenerateID(), projectID, kind, inputHash, outputHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// ListByProject returns a project's audit log, newest first.
func (r *AuditRepository) ListByProject(projectID string) ([]AuditRecord, error) {
	query := `
		SELECT id, project_id, kind, input_hash, output_hash, recorded_at
		FROM audit_log
		WHERE project_id = ?
		ORDER BY recorded_at DESC
	`

	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var recordedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.Kind, &rec.InputHash, &rec.OutputHash, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if recordedAt.Valid {
			rec.RecordedAt = recordedAt.Time
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
