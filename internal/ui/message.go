package ui

import (
	"github.com/ljcooper54/DeID/internal/models"
)

// projectsFetchedMsg carries the user's project list into the model.
type projectsFetchedMsg struct {
	projects []*models.Project
	err      error
}

// entriesFetchedMsg carries a project's dictionary entries into the model.
type entriesFetchedMsg struct {
	project *models.Project
	entries []*models.DictionaryEntry
	err     error
}

// entryDeletedMsg reports the outcome of a dictionary entry removal.
type entryDeletedMsg struct {
	original string
	err      error
}

// exportDoneMsg reports the outcome of a dictionary export.
type exportDoneMsg struct {
	path string
	err  error
}
