package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plannerTable() Table {
	return Table{
		Title: "Study planner",
		Columns: []Column{
			{Key: "subject", Label: "Subject", Width: 80},
			{Key: "priority", Label: "Priority"},
			{Key: "progress", Label: "Progress"},
		},
		Rows: []map[string]string{
			{"subject": "Mathematics", "priority": "high", "progress": "40"},
			{"subject": "Physics, part 1", "priority": "medium", "progress": "0"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(plannerTable())
	require.NoError(t, err)

	text := strings.TrimPrefix(string(out), "\ufeff")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Subject,Priority,Progress", lines[0])
	assert.Equal(t, "Mathematics,high,40", lines[1])
	assert.Equal(t, `"Physics, part 1",medium,0`, lines[2])
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(plannerTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths(plannerTable().Columns)
	assert.InDelta(t, 80, widths[0], 0.001)
	assert.InDelta(t, (pageWidth-80)/2, widths[1], 0.001)
	assert.InDelta(t, pageWidth, widths[0]+widths[1]+widths[2], 0.001)
}
