package models

import (
	"fmt"
	"strings"
	"time"
)

// User is a local account. It owns projects and a global keyword rule list.
// The password is stored only as a bcrypt hash; the plaintext never touches
// this struct.
type User struct {
	id            string
	sequence      int
	username      string
	passwordHash  string
	lastProjectID string
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time
}

// NewUser creates a User with the given sequence, username, and password hash.
func NewUser(sequence int, username, passwordHash string) *User {
	now := time.Now()
	return &User{
		sequence:     sequence,
		username:     username,
		passwordHash: passwordHash,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Username() string      { return u.username }
func (u *User) PasswordHash() string  { return u.passwordHash }
func (u *User) LastProjectID() string { return u.lastProjectID }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)            { u.id = id }
func (u *User) SetPasswordHash(h string)   { u.passwordHash = h }
func (u *User) SetLastProjectID(id string) { u.lastProjectID = id }
func (u *User) SetCreatedAt(t time.Time)   { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time)   { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time)  { u.deletedAt = t }

// Validate checks that the user has a username and a stored credential hash.
func (u *User) Validate() error {
	if strings.TrimSpace(u.username) == "" {
		return fmt.Errorf("username is required")
	}
	if u.passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}
