package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleTable() Table {
	return Table{
		Title:    "Rule set v3",
		Subtitle: []string{"practice p1"},
		Columns:  []Column{{Header: "Priority", Weight: 1}, {Header: "Name", Weight: 3}, {Header: "Condition", Weight: 8}},
		Rows: [][]string{
			{"1", "no flu shots", `Slot.type = "flu-shot"`},
			{"2", "cap, overlapping", strings.Repeat("Count(Appointment overlaps) >= 3 AND ", 12)},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(ruleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Priority,Name,Condition", lines[0])
	assert.Equal(t, `1,no flu shots,"Slot.type = ""flu-shot"""`, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], `2,"cap, overlapping",`))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	table := ruleTable()
	table.Rows = append(table.Rows, []string{"only one"})

	_, err := NewCSVExporter().Render(table)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(table)
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	out, err := exporter.Render(ruleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", exporter.ContentType())
}
