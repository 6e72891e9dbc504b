package models

// ChartKind names a suggested chart.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartPie     ChartKind = "pie"
	ChartLine    ChartKind = "line"
	ChartScatter ChartKind = "scatter"
	ChartTable   ChartKind = "table"
)

// VisualizationSuggestion is a recommended chart. It is a label only; nothing is rendered.
type VisualizationSuggestion struct {
	Kind        ChartKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
