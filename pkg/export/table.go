package export

import "fmt"

// Column describes one exported column. Weight controls its share of the page
// width in PDF output and is ignored by CSV.
type Column struct {
	Header string
	Weight float64
}

// Table is the tabular content shared by every exporter.
type Table struct {
	Title    string
	Subtitle []string
	Columns  []Column
	Rows     [][]string
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}
