package auth

import (
	"database/sql"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/repositories"
	"github.com/ljcooper54/DeID/internal/shared"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	users := repositories.NewUserRepository(db)
	projects := repositories.NewProjectRepository(db)
	return NewService(users, projects, bcrypt.MinCost), db
}

func createProject(t *testing.T, db *sql.DB, ownerID, name string) *models.Project {
	t.Helper()

	repo := repositories.NewProjectRepository(db)
	project := models.NewProject(0, ownerID, name, "")
	if err := repo.Create(project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

func TestRegister(t *testing.T) {
	t.Run("HashesPassword", func(t *testing.T) {
		svc, _ := setupService(t)

		user, err := svc.Register("alice", "correct horse")
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if user.PasswordHash() == "correct horse" {
			t.Fatal("password stored in plaintext")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte("correct horse")); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
	})

	t.Run("RejectsShortPassword", func(t *testing.T) {
		svc, _ := setupService(t)

		if _, err := svc.Register("alice", "short"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("RejectsDuplicateUsername", func(t *testing.T) {
		svc, _ := setupService(t)

		if _, err := svc.Register("alice", "correct horse"); err != nil {
			t.Fatalf("first register failed: %v", err)
		}
		if _, err := svc.Register("alice", "battery staple"); err == nil {
			t.Fatal("expected duplicate username to be rejected")
		}
	})
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, _ := setupService(t)

		if _, err := svc.Register("alice", "correct horse"); err != nil {
			t.Fatalf("register failed: %v", err)
		}

		session, err := svc.Login("alice", "correct horse")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if session.Username != "alice" {
			t.Errorf("expected username alice, got %s", session.Username)
		}
		if session.ProjectID != "" {
			t.Errorf("expected no active project, got %s", session.ProjectID)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc, _ := setupService(t)

		if _, err := svc.Register("alice", "correct horse"); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if _, err := svc.Login("alice", "battery staple"); !errors.Is(err, shared.ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
		}
	})

	t.Run("UnknownUserSameError", func(t *testing.T) {
		svc, _ := setupService(t)

		// Unknown users and wrong passwords must be indistinguishable.
		_, err := svc.Login("nobody", "whatever")
		if !errors.Is(err, shared.ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
		}
	})

	t.Run("ResumesLastProject", func(t *testing.T) {
		svc, db := setupService(t)

		user, err := svc.Register("alice", "correct horse")
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		project := createProject(t, db, user.ID(), "alpha")

		session, err := svc.Login("alice", "correct horse")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := svc.UseProject(session, project.ID()); err != nil {
			t.Fatalf("use project failed: %v", err)
		}

		session, err = svc.Login("alice", "correct horse")
		if err != nil {
			t.Fatalf("second login failed: %v", err)
		}
		if session.ProjectID != project.ID() {
			t.Errorf("expected last project %s restored, got %q", project.ID(), session.ProjectID)
		}
	})
}

func TestUseProject(t *testing.T) {
	t.Run("DeniesForeignProject", func(t *testing.T) {
		svc, db := setupService(t)

		alice, err := svc.Register("alice", "correct horse")
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if _, err := svc.Register("bob", "battery staple"); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		project := createProject(t, db, alice.ID(), "alpha")

		session, err := svc.Login("bob", "battery staple")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := svc.UseProject(session, project.ID()); !errors.Is(err, shared.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
		if session.ProjectID != "" {
			t.Errorf("session gained a project it does not own: %s", session.ProjectID)
		}
	})

	t.Run("DeniesMissingProject", func(t *testing.T) {
		svc, _ := setupService(t)

		if _, err := svc.Register("alice", "correct horse"); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		session, err := svc.Login("alice", "correct horse")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := svc.UseProject(session, "no-such-project"); !errors.Is(err, shared.ErrAccessDenied) {
			t.Fatalf("expected ErrAccessDenied, got %v", err)
		}
	})

	t.Run("RequiresAuthentication", func(t *testing.T) {
		svc, _ := setupService(t)

		var session *Session
		if err := svc.UseProject(session, "anything"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	t.Run("OldPasswordRequired", func(t *testing.T) {
		svc, _ := setupService(t)

		if _, err := svc.Register("alice", "correct horse"); err != nil {
			t.Fatalf("register failed: %v", err)
		}
		session, err := svc.Login("alice", "correct horse")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}

		if err := svc.ChangePassword(session, "wrong", "battery staple"); !errors.Is(err, shared.ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
		}
		if err := svc.ChangePassword(session, "correct horse", "battery staple"); err != nil {
			t.Fatalf("change password failed: %v", err)
		}
		if _, err := svc.Login("alice", "battery staple"); err != nil {
			t.Fatalf("login with new password failed: %v", err)
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("RemovesUserAndProjects", func(t *testing.T) {
		svc, db := setupService(t)

		user, err := svc.Register("alice", "correct horse")
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		createProject(t, db, user.ID(), "alpha")

		session, err := svc.Login("alice", "correct horse")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := svc.DeleteAccount(session, "correct horse"); err != nil {
			t.Fatalf("delete account failed: %v", err)
		}

		if _, err := svc.Login("alice", "correct horse"); !errors.Is(err, shared.ErrAuthenticationFailed) {
			t.Fatalf("deleted account still logs in: %v", err)
		}
		projects := repositories.NewProjectRepository(db)
		if _, err := projects.GetByName(user.ID(), "alpha"); err == nil {
			t.Fatal("owned project survived account deletion")
		}
	})
}
