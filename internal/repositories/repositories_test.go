package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// createTestProject creates a user and project, returning the project ID.
func createTestProject(t *testing.T, db *sql.DB, username, project string) (string, string) {
	t.Helper()

	user := models.NewUser(0, username, "x-hash-x")
	if err := NewUserRepository(db).Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	p := models.NewProject(0, user.ID(), project, "")
	if err := NewProjectRepository(db).Create(p); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	return user.ID(), p.ID()
}

func TestUserRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "alice", "hash")

		err := repo.Create(user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if user.ID() == "" {
			t.Error("user ID should be set after creation")
		}
	})

	t.Run("GetByUsername", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "alice", "hash")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		retrieved, err := repo.GetByUsername("alice")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.ID() != user.ID() {
			t.Errorf("expected ID %s, got %s", user.ID(), retrieved.ID())
		}

		if retrieved.PasswordHash() != "hash" {
			t.Errorf("expected stored hash, got %s", retrieved.PasswordHash())
		}
	})

	t.Run("Duplicate username rejected", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		if err := repo.Create(models.NewUser(0, "alice", "hash")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if err := repo.Create(models.NewUser(0, "alice", "other")); err == nil {
			t.Error("expected duplicate username to fail")
		}
	})

	t.Run("Update last project", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		userID, projectID := createTestProject(t, db, "alice", "alpha")

		repo := NewUserRepository(db)
		user, err := repo.Get(userID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		user.SetLastProjectID(projectID)
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, err := repo.Get(userID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.LastProjectID() != projectID {
			t.Errorf("expected last project %s, got %s", projectID, retrieved.LastProjectID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewUserRepository(db)
		user := models.NewUser(0, "alice", "hash")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		if _, err := repo.Get(user.ID()); err == nil {
			t.Error("expected error when getting deleted user")
		}
	})
}

func TestProjectRepository(t *testing.T) {
	t.Run("Create and GetByName", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		userID, projectID := createTestProject(t, db, "alice", "alpha")

		repo := NewProjectRepository(db)
		project, err := repo.GetByName(userID, "alpha")
		if err != nil {
			t.Fatalf("failed to get project: %v", err)
		}
		if project.ID() != projectID {
			t.Errorf("expected project %s, got %s", projectID, project.ID())
		}
	})

	t.Run("Name collisions across owners allowed", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		aliceID, _ := createTestProject(t, db, "alice", "default")
		bobID, _ := createTestProject(t, db, "bob", "default")

		repo := NewProjectRepository(db)
		alice, err := repo.GetByName(aliceID, "default")
		if err != nil {
			t.Fatalf("failed to get alice's project: %v", err)
		}
		bob, err := repo.GetByName(bobID, "default")
		if err != nil {
			t.Fatalf("failed to get bob's project: %v", err)
		}
		if alice.ID() == bob.ID() {
			t.Error("projects with the same name must be distinct per owner")
		}
	})

	t.Run("Duplicate name per owner rejected", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		userID, _ := createTestProject(t, db, "alice", "alpha")

		repo := NewProjectRepository(db)
		if err := repo.Create(models.NewProject(0, userID, "alpha", "")); err == nil {
			t.Error("expected duplicate project name for same owner to fail")
		}
	})

	t.Run("List by owner", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		userID, _ := createTestProject(t, db, "alice", "alpha")
		createTestProject(t, db, "bob", "beta")

		repo := NewProjectRepository(db)
		projects, err := repo.List(map[string]any{"owner_id": userID})
		if err != nil {
			t.Fatalf("failed to list projects: %v", err)
		}
		if len(projects) != 1 {
			t.Errorf("expected 1 project for alice, got %d", len(projects))
		}
	})

	t.Run("DeleteByOwner", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		userID, _ := createTestProject(t, db, "alice", "alpha")

		repo := NewProjectRepository(db)
		if err := repo.Create(models.NewProject(0, userID, "beta", "")); err != nil {
			t.Fatalf("failed to create second project: %v", err)
		}

		if err := repo.DeleteByOwner(userID); err != nil {
			t.Fatalf("failed to delete projects: %v", err)
		}

		projects, err := repo.List(map[string]any{"owner_id": userID})
		if err != nil {
			t.Fatalf("failed to list projects: %v", err)
		}
		if len(projects) != 0 {
			t.Errorf("expected no projects after cascade, got %d", len(projects))
		}
	})
}

func TestEntryRepository(t *testing.T) {
	mint := func(entityType models.EntityType) func(int) string {
		return func(index int) string {
			return fmt.Sprintf("%s-%04d", entityType.TokenPrefix(), index)
		}
	}

	t.Run("CreateWithToken allocates sequential tokens", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewEntryRepository(db)

		first, err := repo.CreateWithToken(projectID, models.EntityPerson, "Jane Doe", mint(models.EntityPerson))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if first.Token() != "PERSON-0001" {
			t.Errorf("expected PERSON-0001, got %s", first.Token())
		}

		second, err := repo.CreateWithToken(projectID, models.EntityPerson, "John Smith", mint(models.EntityPerson))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if second.Token() != "PERSON-0002" {
			t.Errorf("expected PERSON-0002, got %s", second.Token())
		}
	})

	t.Run("Counters are independent per type and project", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, alpha := createTestProject(t, db, "alice", "alpha")
		_, beta := createTestProject(t, db, "bob", "beta")
		repo := NewEntryRepository(db)

		entry, err := repo.CreateWithToken(alpha, models.EntityOrg, "Acme Corp", mint(models.EntityOrg))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if entry.Token() != "ORG-0001" {
			t.Errorf("expected ORG-0001, got %s", entry.Token())
		}

		entry, err = repo.CreateWithToken(alpha, models.EntityPerson, "Jane Doe", mint(models.EntityPerson))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if entry.Token() != "PERSON-0001" {
			t.Errorf("expected PERSON-0001, got %s", entry.Token())
		}

		entry, err = repo.CreateWithToken(beta, models.EntityOrg, "Acme Corp", mint(models.EntityOrg))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if entry.Token() != "ORG-0001" {
			t.Errorf("expected ORG-0001 in second project, got %s", entry.Token())
		}
	})

	t.Run("Duplicate normalized original conflicts", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewEntryRepository(db)

		if _, err := repo.CreateWithToken(projectID, models.EntityOrg, "Acme Corp", mint(models.EntityOrg)); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		_, err := repo.CreateWithToken(projectID, models.EntityOrg, "ACME corp", mint(models.EntityOrg))
		if !errors.Is(err, shared.ErrWriteConflict) {
			t.Errorf("expected ErrWriteConflict, got %v", err)
		}
	})

	t.Run("Mint skipping advances the counter", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewEntryRepository(db)

		skipped := false
		entry, err := repo.CreateWithToken(projectID, models.EntityPerson, "Jane Doe", func(index int) string {
			if !skipped {
				skipped = true
				return ""
			}
			return fmt.Sprintf("PERSON-%04d", index)
		})
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if entry.Token() != "PERSON-0002" {
			t.Errorf("expected skipped index to yield PERSON-0002, got %s", entry.Token())
		}
	})

	t.Run("GetByNormalized and GetByToken", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewEntryRepository(db)

		created, err := repo.CreateWithToken(projectID, models.EntityOrg, "Acme Corp", mint(models.EntityOrg))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		byNorm, err := repo.GetByNormalized(projectID, models.NormalizeOriginal("  ACME  Corp "))
		if err != nil {
			t.Fatalf("failed to get by normalized: %v", err)
		}
		if byNorm.Token() != created.Token() {
			t.Errorf("expected token %s, got %s", created.Token(), byNorm.Token())
		}

		byToken, err := repo.GetByToken(projectID, created.Token())
		if err != nil {
			t.Fatalf("failed to get by token: %v", err)
		}
		if byToken.Original() != "Acme Corp" {
			t.Errorf("expected original Acme Corp, got %s", byToken.Original())
		}
	})

	t.Run("UpdateEntityType", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewEntryRepository(db)

		entry, err := repo.CreateWithToken(projectID, models.EntityOrg, "Falcon", mint(models.EntityOrg))
		if err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		if err := repo.UpdateEntityType(entry.ID(), models.EntityCodeName); err != nil {
			t.Fatalf("failed to correct entity type: %v", err)
		}

		updated, err := repo.Get(entry.ID())
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if updated.EntityType() != models.EntityCodeName {
			t.Errorf("expected CODE_NAME, got %s", updated.EntityType())
		}
		if updated.Token() != entry.Token() {
			t.Error("type correction must not change the token")
		}
	})
}

func TestKeywordRepository(t *testing.T) {
	t.Run("ListForProject merges user and project scope", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		userID, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewKeywordRepository(db)

		userRule := models.NewUserKeywordRule(userID, "Jane Doe", models.EntityPerson)
		if err := repo.Create(userRule); err != nil {
			t.Fatalf("failed to create user rule: %v", err)
		}

		projectRule := models.NewProjectKeywordRule(projectID, "Rumpelstiltskin", models.EntityCodeName)
		if err := repo.Create(projectRule); err != nil {
			t.Fatalf("failed to create project rule: %v", err)
		}

		rules, err := repo.ListForProject(userID, projectID)
		if err != nil {
			t.Fatalf("failed to list rules: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("expected 2 rules, got %d", len(rules))
		}
	})

	t.Run("Rules do not leak across projects", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		aliceID, alphaID := createTestProject(t, db, "alice", "alpha")
		bobID, betaID := createTestProject(t, db, "bob", "beta")
		repo := NewKeywordRepository(db)

		if err := repo.Create(models.NewProjectKeywordRule(alphaID, "Falcon", models.EntityCodeName)); err != nil {
			t.Fatalf("failed to create rule: %v", err)
		}

		rules, err := repo.ListForProject(bobID, betaID)
		if err != nil {
			t.Fatalf("failed to list rules: %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("expected no rules for bob, got %d", len(rules))
		}

		rules, err = repo.ListForProject(aliceID, alphaID)
		if err != nil {
			t.Fatalf("failed to list rules: %v", err)
		}
		if len(rules) != 1 {
			t.Errorf("expected 1 rule for alice, got %d", len(rules))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewKeywordRepository(db)

		rule := models.NewProjectKeywordRule(projectID, "Falcon", models.EntityCodeName)
		if err := repo.Create(rule); err != nil {
			t.Fatalf("failed to create rule: %v", err)
		}

		if err := repo.Delete(rule.ID()); err != nil {
			t.Fatalf("failed to delete rule: %v", err)
		}

		if _, err := repo.Get(rule.ID()); err == nil {
			t.Error("expected error when getting deleted rule")
		}
	})
}

func TestAuditRepository(t *testing.T) {
	t.Run("Record and list", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, projectID := createTestProject(t, db, "alice", "alpha")
		repo := NewAuditRepository(db)

		if err := repo.Record(projectID, "obscure", shared.ContentHash("in"), shared.ContentHash("out")); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		records, err := repo.ListByProject(projectID)
		if err != nil {
			t.Fatalf("failed to list audit log: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Kind != "obscure" {
			t.Errorf("expected kind obscure, got %s", records[0].Kind)
		}
	})
}
