package models

// PreviewRowLimit is the number of rows exposed by a table preview.
const PreviewRowLimit = 5

// ParsedTable is the result of ingesting a CSV file.
// Headers keep the order of the source's header row and are unique.
type ParsedTable struct {
	Headers       []string `json:"headers"`
	Rows          []Record `json:"rows"`
	TotalRowCount int      `json:"totalRowCount"`
}

// Preview is the first few rows of a table plus its full row count.
type Preview struct {
	Headers       []string `json:"headers"`
	Rows          []Record `json:"rows"`
	TotalRowCount int      `json:"totalRowCount"`
}

// Preview returns a view over the first PreviewRowLimit rows.
func (t *ParsedTable) Preview() *Preview {
	n := len(t.Rows)
	if n > PreviewRowLimit {
		n = PreviewRowLimit
	}
	rows := make([]Record, n)
	copy(rows, t.Rows[:n])
	return &Preview{
		Headers:       t.Headers,
		Rows:          rows,
		TotalRowCount: t.TotalRowCount,
	}
}
