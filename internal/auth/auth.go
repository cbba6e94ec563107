// package auth gates every dictionary and document operation behind a
// local account. Passwords are stored as bcrypt hashes only; login failures
// are reported with a single generic error so neither the message nor its
// timing reveals whether a username exists.
package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/repositories"
	"github.com/ljcooper54/DeID/internal/shared"
)

// Session identifies the authenticated user and their active project. It is
// passed explicitly to every operation; there is no ambient current user.
type Session struct {
	UserID    string
	Username  string
	ProjectID string
}

// RequireUser returns ErrNotAuthenticated unless the session carries a user.
func (s *Session) RequireUser() error {
	if s == nil || s.UserID == "" {
		return shared.ErrNotAuthenticated
	}
	return nil
}

// RequireProject returns ErrNoActiveProject unless a project is selected.
func (s *Session) RequireProject() error {
	if err := s.RequireUser(); err != nil {
		return err
	}
	if s.ProjectID == "" {
		return shared.ErrNoActiveProject
	}
	return nil
}

// Service manages accounts, credentials and project ownership checks.
type Service struct {
	users    *repositories.UserRepository
	projects *repositories.ProjectRepository
	cost     int

	// dummyHash is a hash of a throwaway value at the configured cost.
	// Login burns a compare against it when the username is unknown, so
	// the unknown-user path costs the same as a wrong-password path.
	dummyHash []byte
}

// NewService creates an auth service. cost selects the bcrypt work factor;
// values outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewService(users *repositories.UserRepository, projects *repositories.ProjectRepository, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte(shared.GenerateID()), cost)
	return &Service{users: users, projects: projects, cost: cost, dummyHash: dummy}
}

// Register creates a new account. The password is hashed before it touches
// the repository and never stored or logged in plaintext.
func (s *Service) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(0, username, string(hash))
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and opens a session. The session resumes the
// user's last active project when it still exists. All failure modes return
// ErrAuthenticationFailed; unknown usernames still burn a bcrypt compare so
// response timing does not leak account existence.
func (s *Service) Login(username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, shared.ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		return nil, shared.ErrAuthenticationFailed
	}

	session := &Session{UserID: user.ID(), Username: user.Username()}
	if last := user.LastProjectID(); last != "" {
		if project, err := s.projects.Get(last); err == nil && project.OwnerID() == user.ID() {
			session.ProjectID = project.ID()
		}
	}
	return session, nil
}

// ChangePassword rehashes the credential after verifying the old one.
func (s *Service) ChangePassword(session *Session, oldPassword, newPassword string) error {
	if err := session.RequireUser(); err != nil {
		return err
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalidInput)
	}

	user, err := s.users.Get(session.UserID)
	if err != nil {
		return shared.ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(oldPassword)); err != nil {
		return shared.ErrAuthenticationFailed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.SetPasswordHash(string(hash))
	return s.users.Update(user)
}

// UseProject switches the session's active project after an ownership check
// and persists it as the user's last active project for the next login.
func (s *Service) UseProject(session *Session, projectID string) error {
	if err := session.RequireUser(); err != nil {
		return err
	}

	project, err := s.projects.Get(projectID)
	if err != nil {
		return shared.ErrAccessDenied
	}
	if project.OwnerID() != session.UserID {
		return shared.ErrAccessDenied
	}

	user, err := s.users.Get(session.UserID)
	if err != nil {
		return err
	}
	user.SetLastProjectID(project.ID())
	if err := s.users.Update(user); err != nil {
		return err
	}

	session.ProjectID = project.ID()
	return nil
}

// Authorize verifies that the session's user owns projectID. Missing
// projects and foreign projects are indistinguishable to the caller.
func (s *Service) Authorize(session *Session, projectID string) error {
	if err := session.RequireUser(); err != nil {
		return err
	}
	project, err := s.projects.Get(projectID)
	if err != nil {
		return shared.ErrAccessDenied
	}
	if project.OwnerID() != session.UserID {
		return shared.ErrAccessDenied
	}
	return nil
}

// DeleteAccount removes the user and every project they own after a final
// password check. Dictionary entries go with their projects via FK cascade.
func (s *Service) DeleteAccount(session *Session, password string) error {
	if err := session.RequireUser(); err != nil {
		return err
	}

	user, err := s.users.Get(session.UserID)
	if err != nil {
		return shared.ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(password)); err != nil {
		return shared.ErrAuthenticationFailed
	}

	if err := s.projects.DeleteByOwner(user.ID()); err != nil {
		return err
	}
	return s.users.Delete(user.ID())
}
