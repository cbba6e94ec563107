package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/ljcooper54/DeID/internal/models"
)

var (
	_ list.Item = projectItem{}
	_ list.Item = entryItem{}
)

// projectItem wraps [models.Project] to implement [list.Item].
type projectItem struct {
	project *models.Project
}

func (i projectItem) FilterValue() string { return i.project.Name() }
func (i projectItem) Title() string       { return i.project.Name() }
func (i projectItem) Description() string {
	desc := fmt.Sprintf("created %s", i.project.CreatedAt().Format("2006-01-02"))
	if i.project.Notes() != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.project.Notes())
	}
	return desc
}

// entryItem wraps [models.DictionaryEntry] to implement [list.Item].
type entryItem struct {
	entry *models.DictionaryEntry
}

func (i entryItem) FilterValue() string { return i.entry.Original() }
func (i entryItem) Title() string {
	return fmt.Sprintf("%s → %s", i.entry.Original(), i.entry.Token())
}
func (i entryItem) Description() string {
	return fmt.Sprintf("%s • first seen %s", i.entry.EntityType(), i.entry.FirstSeen().Format("2006-01-02"))
}
