package docs

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/shared"
)

// CSVAdapter handles tabular documents. Extraction walks the table in row
// order and joins cells with the unit separator; the structure handle
// records the column count of every row so Reinject can rebuild the exact
// layout from the processed cell list.
type CSVAdapter struct{}

// NewCSVAdapter creates the tabular adapter.
func NewCSVAdapter() *CSVAdapter { return &CSVAdapter{} }

func (a *CSVAdapter) Name() string { return "csv" }
func (a *CSVAdapter) Lossy() bool  { return false }

// csvStructure records how to reassemble extracted cells into rows.
type csvStructure struct {
	rowWidths []int
}

// Extract reads all records, joining cells with the unit separator. Cells
// containing newlines or separator bytes have them flattened to spaces;
// that flattening is reported as a LossyFormat finding. A parse error
// partway through yields the rows read so far plus a CorruptDocument
// finding and no structure.
func (a *CSVAdapter) Extract(data []byte) (*Extraction, error) {
	if sniffBinary(data) {
		return nil, fmt.Errorf("%w: binary data", shared.ErrUnsupportedFormat)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	var (
		cells     []string
		structure csvStructure
		findings  []models.Finding
		flattened bool
		corrupt   bool
	)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			corrupt = true
			findings = append(findings, models.Finding{
				Kind:    models.FindingCorruptDocument,
				Message: fmt.Sprintf("table parse failed partway, output will be plain text: %v", err),
			})
			break
		}
		for _, cell := range record {
			if strings.ContainsAny(cell, "\n"+unitSep) {
				cell = strings.ReplaceAll(cell, "\n", " ")
				cell = strings.ReplaceAll(cell, unitSep, " ")
				flattened = true
			}
			cells = append(cells, cell)
		}
		structure.rowWidths = append(structure.rowWidths, len(record))
	}

	if flattened {
		findings = append(findings, models.Finding{
			Kind:    models.FindingLossyFormat,
			Message: "multi-line cells flattened to single lines",
		})
	}

	ex := &Extraction{Text: strings.Join(cells, unitSep), Findings: findings}
	if !corrupt {
		ex.Structure = &structure
	}
	return ex, nil
}

// Reinject splits the processed text back into cells and rebuilds the rows
// recorded at extraction time.
func (a *CSVAdapter) Reinject(structure any, text string) ([]byte, error) {
	st, ok := structure.(*csvStructure)
	if !ok {
		return nil, fmt.Errorf("%w: not a table structure", shared.ErrTypeMismatch)
	}

	cells := strings.Split(text, unitSep)
	total := 0
	for _, w := range st.rowWidths {
		total += w
	}
	if len(cells) != total {
		return nil, fmt.Errorf("%w: expected %d cells, got %d", shared.ErrCorruptDocument, total, len(cells))
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	next := 0
	for _, width := range st.rowWidths {
		if err := writer.Write(cells[next : next+width]); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
		next += width
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to render table: %w", err)
	}
	return buf.Bytes(), nil
}
