package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ljcooper54/DeID/internal/auth"
	"github.com/ljcooper54/DeID/internal/dictionary"
	"github.com/ljcooper54/DeID/internal/formatter"
	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/repositories"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProjectListView ViewState = iota
	EntryListView
	ConfirmDeleteView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	sess     *auth.Session
	accounts *auth.Service
	projects *repositories.ProjectRepository
	store    *dictionary.Store
	width    int
	height   int

	projectList list.Model
	entryList   list.Model
	project     *models.Project
	entries     []*models.DictionaryEntry
	pendingDel  *models.DictionaryEntry
	resultText  string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies. The
// session must already be authenticated.
func NewModel(ctx context.Context, sess *auth.Session, accounts *auth.Service, projects *repositories.ProjectRepository, store *dictionary.Store) *Model {
	return &Model{
		ctx:      ctx,
		view:     ProjectListView,
		sess:     sess,
		accounts: accounts,
		projects: projects,
		store:    store,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by fetching the user's projects.
func (m *Model) Init() tea.Cmd {
	return m.fetchProjects()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.projectList.Width() == 0 {
			m.projectList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.entryList.Width() == 0 {
			m.entryList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ProjectListView:
			return m.handleProjectListKeys(msg)
		case EntryListView:
			return m.handleEntryListKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case projectsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = projectItem{project: p}
		}
		m.projectList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.projectList.Title = fmt.Sprintf("Projects for %s", m.sess.Username)
		m.projectList.SetSize(m.width-4, m.height-8)
		return m, nil

	case entriesFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ProjectListView
			return m, nil
		}
		m.project = msg.project
		m.entries = msg.entries
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = entryItem{entry: e}
		}
		m.entryList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.entryList.Title = fmt.Sprintf("Dictionary for '%s' (%d entries)", msg.project.Name(), len(msg.entries))
		m.entryList.SetSize(m.width-4, m.height-8)
		m.view = EntryListView
		return m, nil

	case entryDeletedMsg:
		if msg.err != nil {
			m.resultText = styles.err.Render(fmt.Sprintf("Could not delete '%s': %v", msg.original, msg.err))
			m.view = ResultView
			return m, nil
		}
		m.resultText = styles.ok.Render(fmt.Sprintf("✓ Deleted mapping for '%s'", msg.original))
		m.view = ResultView
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.resultText = styles.err.Render(fmt.Sprintf("Export failed: %v", msg.err))
		} else {
			m.resultText = styles.ok.Render(fmt.Sprintf("✓ Dictionary exported to %s", msg.path))
		}
		m.view = ResultView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ProjectListView:
		return m.renderProjectList()
	case EntryListView:
		return m.renderEntryList()
	case ConfirmDeleteView:
		return m.renderConfirm()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleProjectListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.projectList.SelectedItem()
		if selected != nil {
			if p, ok := selected.(projectItem); ok {
				return m, m.openProject(p.project)
			}
		}
	}

	var cmd tea.Cmd
	m.projectList, cmd = m.projectList.Update(msg)
	return m, cmd
}

func (m *Model) handleEntryListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ProjectListView
		return m, nil
	case "d":
		selected := m.entryList.SelectedItem()
		if selected != nil {
			if e, ok := selected.(entryItem); ok {
				m.pendingDel = e.entry
				m.view = ConfirmDeleteView
			}
		}
		return m, nil
	case "e":
		return m, m.exportDictionary()
	}

	var cmd tea.Cmd
	m.entryList, cmd = m.entryList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.pendingDel = nil
		m.view = EntryListView
		return m, nil
	case "y":
		return m, m.deleteEntry()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		m.resultText = ""
		if m.project != nil {
			return m, m.openProject(m.project)
		}
		m.view = ProjectListView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ProjectListView:
		m.projectList, cmd = m.projectList.Update(msg)
	case EntryListView:
		m.entryList, cmd = m.entryList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchProjects() tea.Cmd {
	return func() tea.Msg {
		projects, err := m.projects.List(map[string]any{"owner_id": m.sess.UserID})
		return projectsFetchedMsg{projects: projects, err: err}
	}
}

// openProject switches the session to the project and loads its dictionary.
func (m *Model) openProject(project *models.Project) tea.Cmd {
	return func() tea.Msg {
		if err := m.accounts.UseProject(m.sess, project.ID()); err != nil {
			return entriesFetchedMsg{err: err}
		}
		entries, err := m.store.Entries(m.ctx, m.sess)
		return entriesFetchedMsg{project: project, entries: entries, err: err}
	}
}

func (m *Model) deleteEntry() tea.Cmd {
	entry := m.pendingDel
	m.pendingDel = nil
	return func() tea.Msg {
		if entry == nil {
			return entryDeletedMsg{err: fmt.Errorf("no entry selected")}
		}
		err := m.store.Delete(m.ctx, m.sess, entry.Original(), false)
		return entryDeletedMsg{original: entry.Original(), err: err}
	}
}

func (m *Model) exportDictionary() tea.Cmd {
	project := m.project
	entries := m.entries
	return func() tea.Msg {
		path := fmt.Sprintf("Dictionary_%s.csv", project.Name())
		written, err := formatter.WriteDictionaryExport(project.Name(), entries, "csv", path)
		return exportDoneMsg{path: written, err: err}
	}
}

func (m *Model) renderProjectList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.projectList.View(), helpView)
}

func (m *Model) renderEntryList() string {
	helpKeys := []key.Binding{m.keys.delete, m.keys.export, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.entryList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	if m.pendingDel == nil {
		return ""
	}
	title := styles.title.Render(fmt.Sprintf("Delete mapping '%s' → %s?", m.pendingDel.Original(), m.pendingDel.Token()))
	info := styles.warn.Render("\nDocuments already obscured with this token can no longer be restored.\n")

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.resultText, helpView)
}
