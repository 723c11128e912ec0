package export

import "errors"

// ErrNoHeaders is returned when a dataset has no columns to render.
var ErrNoHeaders = errors.New("export: dataset has no headers")

// Dataset is a tabular sheet. Rows are keyed by header; missing keys render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Record returns row i ordered by Headers.
func (d Dataset) Record(i int) []string {
	record := make([]string, len(d.Headers))
	for col, header := range d.Headers {
		record[col] = d.Rows[i][header]
	}
	return record
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return ErrNoHeaders
	}
	return nil
}
