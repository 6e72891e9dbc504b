package models

// ColumnType is the inferred semantic category of a column.
type ColumnType string

const (
	ColumnTypeNumeric     ColumnType = "numeric"
	ColumnTypeDate        ColumnType = "date"
	ColumnTypeCategorical ColumnType = "categorical"
	ColumnTypeUnknown     ColumnType = "unknown"
)

// Column pairs a header with its inferred type.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}
