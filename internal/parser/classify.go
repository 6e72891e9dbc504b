package parser

import (
	"github.com/insightforge/backend/internal/models"
)

// SampleSize is the number of leading rows inspected per column.
const SampleSize = 20

// Classify infers a ColumnType for every header.
func Classify(headers []string, rows []models.Record) map[string]models.ColumnType {
	types := make(map[string]models.ColumnType, len(headers))
	for _, h := range headers {
		types[h] = ClassifyColumn(h, rows)
	}
	return types
}

// ClassifyColumns is Classify in header order.
func ClassifyColumns(headers []string, rows []models.Record) []models.Column {
	columns := make([]models.Column, 0, len(headers))
	for _, h := range headers {
		columns = append(columns, models.Column{Name: h, Type: ClassifyColumn(h, rows)})
	}
	return columns
}

// ClassifyColumn infers the type of one column from the values of its first
// SampleSize rows, ignoring null and empty cells. Numeric wins over date;
// anything mixed is categorical.
func ClassifyColumn(header string, rows []models.Record) models.ColumnType {
	sample := sampleColumn(header, rows)
	if len(sample) == 0 {
		return models.ColumnTypeUnknown
	}

	if all(sample, isNumericValue) {
		return models.ColumnTypeNumeric
	}
	if all(sample, isDateValue) {
		return models.ColumnTypeDate
	}
	return models.ColumnTypeCategorical
}

func sampleColumn(header string, rows []models.Record) []models.Value {
	limit := len(rows)
	if limit > SampleSize {
		limit = SampleSize
	}

	sample := make([]models.Value, 0, limit)
	for _, row := range rows[:limit] {
		v, ok := row[header]
		if !ok || v.IsBlank() {
			continue
		}
		sample = append(sample, v)
	}
	return sample
}

func all(values []models.Value, pred func(models.Value) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isNumericValue(v models.Value) bool {
	switch v.Kind {
	case models.ValueNumber:
		return true
	case models.ValueText:
		return IsNumericText(v.Str)
	default:
		return false
	}
}

func isDateValue(v models.Value) bool {
	return v.Kind == models.ValueText && IsDate(v.Str)
}
