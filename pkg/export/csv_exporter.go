package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
)

// Dataset is tabular export content. Row values are keyed by header name;
// a missing key renders as an empty cell.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// record projects one row onto the header order.
func (d Dataset) record(row map[string]string) []string {
	cells := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		cells[i] = row[header]
	}
	return cells
}

// CSVExporter renders a Dataset as CSV bytes.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset as CSV, one header line followed by the rows
// sorted by their columns left to right. Weekly schedule exports lead with
// date and time columns, so the sort yields chronological order no matter
// how the rows were assembled.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv export needs at least one column")
	}

	records := make([][]string, len(data.Rows))
	for i, row := range data.Rows {
		records[i] = data.record(row)
	}
	sort.SliceStable(records, func(i, j int) bool {
		for col := range data.Headers {
			if records[i][col] != records[j][col] {
				return records[i][col] < records[j][col]
			}
		}
		return false
	})

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
