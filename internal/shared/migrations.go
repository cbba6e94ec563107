package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// migration pairs the up and down SQL for one schema version. Files under
// sql/ are named NNNN_description_up.sql with a matching _down.sql.
type migration struct {
	version int
	name    string
	up      string
	down    string
}

// loadSchema reads the embedded migration pairs and validates them: every
// up script needs a down script, version prefixes must be numeric, and
// versions must be contiguous starting at zero so the applied count alone
// identifies the schema state.
func loadSchema() ([]migration, error) {
	ups, err := fs.Glob(schemaFiles, "sql/*_up.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list schema files: %w", err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("no embedded schema files")
	}

	var migrations []migration
	for _, path := range ups {
		stem := strings.TrimSuffix(strings.TrimPrefix(path, "sql/"), "_up.sql")
		prefix, name, ok := strings.Cut(stem, "_")
		if !ok {
			return nil, fmt.Errorf("schema file %s is not named NNNN_description_up.sql", path)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("schema file %s has a non-numeric version: %w", path, err)
		}

		up, err := schemaFiles.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		downPath := "sql/" + stem + "_down.sql"
		down, err := schemaFiles.ReadFile(downPath)
		if err != nil {
			return nil, fmt.Errorf("schema version %d has no down script %s: %w", version, downPath, err)
		}

		migrations = append(migrations, migration{
			version: version,
			name:    name,
			up:      string(up),
			down:    string(down),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})
	for i, m := range migrations {
		if m.version != i {
			return nil, fmt.Errorf("schema versions must be contiguous from 0, found %d at position %d", m.version, i)
		}
	}
	return migrations, nil
}

// RunMigrations applies every schema version the database has not seen
// yet, recording each in schema_migrations. Safe to call on every start.
func RunMigrations(db *sql.DB) error {
	migrations, err := loadSchema()
	if err != nil {
		return err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := appliedVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= applied {
			continue
		}
		if err := runScript(db, m.up, m.version, false); err != nil {
			return fmt.Errorf("failed to apply %04d_%s: %w", m.version, m.name, err)
		}
	}
	return nil
}

// RollbackMigration undoes the most recently applied schema version.
func RollbackMigration(db *sql.DB) error {
	migrations, err := loadSchema()
	if err != nil {
		return err
	}

	applied, err := appliedVersion(db)
	if err != nil {
		return err
	}
	if applied < 0 {
		return fmt.Errorf("no migrations applied")
	}
	if applied >= len(migrations) {
		return fmt.Errorf("applied version %d has no embedded schema", applied)
	}

	m := migrations[applied]
	if err := runScript(db, m.down, m.version, true); err != nil {
		return fmt.Errorf("failed to roll back %04d_%s: %w", m.version, m.name, err)
	}
	return nil
}

// appliedVersion returns the highest applied schema version, -1 when the
// database is fresh.
func appliedVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), -1) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// runScript executes one migration script inside a transaction and updates
// the schema_migrations record: an insert on apply, a delete on rollback.
func runScript(db *sql.DB, script string, version int, rollback bool) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(script, ";") {
		stmt = stripComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement failed: %w\n%s", err, stmt)
		}
	}

	if rollback {
		_, err = tx.Exec("DELETE FROM schema_migrations WHERE version = ?", version)
	} else {
		_, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// stripComments removes -- comments and blank lines from a statement.
func stripComments(stmt string) string {
	var kept []string
	for _, line := range strings.Split(stmt, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
