// package formatter provides functions to export dictionaries and run reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// DictionaryToCSV converts dictionary entries to CSV with columns: Token, Type, Original, FirstSeen
func DictionaryToCSV(entries []*models.DictionaryEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Token", "Type", "Original", "FirstSeen"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Token(),
			string(entry.EntityType()),
			entry.Original(),
			entry.FirstSeen().Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// DictionaryToMarkdown converts dictionary entries to a Markdown table grouped under a project heading
func DictionaryToMarkdown(projectName string, entries []*models.DictionaryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Dictionary: %s\n\n", projectName))
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n\n", len(entries)))

	buf.WriteString("| Token | Type | Original |\n")
	buf.WriteString("| --- | --- | --- |\n")
	for _, entry := range entries {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s |\n", entry.Token(), entry.EntityType(), entry.Original()))
	}

	return buf.Bytes(), nil
}

// DictionaryToText converts dictionary entries to plain text, one mapping per line
func DictionaryToText(projectName string, entries []*models.DictionaryEntry) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Dictionary: %s\n", projectName))
	buf.WriteString(fmt.Sprintf("Entries: %d\n\n", len(entries)))

	for i, entry := range entries {
		buf.WriteString(fmt.Sprintf("%d. %s = %s (%s)\n", i+1, entry.Token(), entry.Original(), entry.EntityType()))
	}

	return buf.Bytes(), nil
}

// WriteDictionaryExport writes the dictionary in the requested format ("csv",
// "markdown", "txt", or "json") and returns the path written.
func WriteDictionaryExport(projectName string, entries []*models.DictionaryEntry, format, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case "csv":
		data, err = DictionaryToCSV(entries)
	case "markdown":
		data, err = DictionaryToMarkdown(projectName, entries)
	case "txt":
		data, err = DictionaryToText(projectName, entries)
	case "json", "":
		type entryRow struct {
			Token    string `json:"token"`
			Type     string `json:"type"`
			Original string `json:"original"`
		}
		rows := make([]entryRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, entryRow{Token: e.Token(), Type: string(e.EntityType()), Original: e.Original()})
		}
		data, err = shared.MarshalJSON(rows, true)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Finding styles, keyed by severity of what the finding implies.
var (
	findingWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true)
	findingInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	findingTokenSty  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)

// RenderFinding renders one finding for terminal display.
func RenderFinding(f models.Finding) string {
	style := findingInfoStyle
	switch f.Kind {
	case models.FindingUnknownToken, models.FindingAmbiguousToken, models.FindingCorruptDocument:
		style = findingWarnStyle
	}

	line := style.Render(fmt.Sprintf("[%s] %s", f.Kind, f.Message))
	if f.Token != "" {
		line += " " + findingTokenSty.Render(f.Token)
	}
	return line
}

// RenderFindings renders a finding list, one per line. Empty input renders
// nothing.
func RenderFindings(findings []models.Finding) string {
	if len(findings) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for _, f := range findings {
		buf.WriteString(RenderFinding(f))
		buf.WriteByte('\n')
	}
	return buf.String()
}
