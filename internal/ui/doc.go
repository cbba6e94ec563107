// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for dictionary management:
//  1. [ProjectListView] : Browse and select the user's projects
//  2. [EntryListView] : Inspect the selected project's token dictionary
//  3. [ConfirmDeleteView] : Confirm removal of a dictionary entry
//  4. [ResultView] : Display the outcome of an action
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// All data access flows through the dictionary store and project repository, so
// the TUI sees exactly the same access control as the CLI commands.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
