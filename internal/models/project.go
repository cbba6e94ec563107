package models

import (
	"fmt"
	"strings"
	"time"
)

// Project is a named container scoping one token dictionary and a set of
// keyword rules. Its dictionary persists across application sessions.
type Project struct {
	id        string
	sequence  int
	ownerID   string
	name      string
	notes     string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewProject creates a Project owned by the given user.
func NewProject(sequence int, ownerID, name, notes string) *Project {
	now := time.Now()
	return &Project{
		sequence:  sequence,
		ownerID:   ownerID,
		name:      name,
		notes:     notes,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *Project) ID() string            { return p.id }
func (p *Project) Sequence() int         { return p.sequence }
func (p *Project) OwnerID() string       { return p.ownerID }
func (p *Project) Name() string          { return p.name }
func (p *Project) Notes() string         { return p.notes }
func (p *Project) CreatedAt() time.Time  { return p.createdAt }
func (p *Project) UpdatedAt() time.Time  { return p.updatedAt }
func (p *Project) DeletedAt() *time.Time { return p.deletedAt }

func (p *Project) SetID(id string)           { p.id = id }
func (p *Project) SetName(name string)       { p.name = name }
func (p *Project) SetNotes(notes string)     { p.notes = notes }
func (p *Project) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *Project) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *Project) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate checks that the project names an owner and is itself named.
func (p *Project) Validate() error {
	if p.ownerID == "" {
		return fmt.Errorf("owner is required")
	}
	if strings.TrimSpace(p.name) == "" {
		return fmt.Errorf("project name is required")
	}
	return nil
}
