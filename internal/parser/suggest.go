package parser

import (
	"fmt"

	"github.com/insightforge/backend/internal/models"
)

// Suggest derives chart suggestions from column types. The bar, pie and line
// rules are checked independently; the fallback group only runs when none of
// them matched. "First" always means first in header order.
func Suggest(headers []string, types map[string]models.ColumnType) []models.VisualizationSuggestion {
	var numeric, categorical, dates []string
	for _, h := range headers {
		switch types[h] {
		case models.ColumnTypeNumeric:
			numeric = append(numeric, h)
		case models.ColumnTypeCategorical:
			categorical = append(categorical, h)
		case models.ColumnTypeDate:
			dates = append(dates, h)
		}
	}

	suggestions := make([]models.VisualizationSuggestion, 0, 3)

	if len(categorical) > 0 && len(numeric) > 0 {
		suggestions = append(suggestions, models.VisualizationSuggestion{
			Kind:        models.ChartBar,
			Title:       fmt.Sprintf("%s by %s", numeric[0], categorical[0]),
			Description: fmt.Sprintf("Compare %s values across %s categories", numeric[0], categorical[0]),
		})
	}

	if len(categorical) > 0 && len(numeric) > 0 {
		suggestions = append(suggestions, models.VisualizationSuggestion{
			Kind:        models.ChartPie,
			Title:       fmt.Sprintf("Distribution of %s across %s", numeric[0], categorical[0]),
			Description: fmt.Sprintf("See each %s's share of the total %s", categorical[0], numeric[0]),
		})
	}

	if len(dates) > 0 && len(numeric) > 0 {
		suggestions = append(suggestions, models.VisualizationSuggestion{
			Kind:        models.ChartLine,
			Title:       fmt.Sprintf("%s over time", numeric[0]),
			Description: fmt.Sprintf("Track how %s changes over %s", numeric[0], dates[0]),
		})
	}

	if len(suggestions) > 0 {
		return suggestions
	}

	switch {
	case len(numeric) >= 2:
		suggestions = append(suggestions, models.VisualizationSuggestion{
			Kind:        models.ChartScatter,
			Title:       fmt.Sprintf("%s vs %s", numeric[0], numeric[1]),
			Description: fmt.Sprintf("Explore the relationship between %s and %s", numeric[0], numeric[1]),
		})
	case len(numeric) == 1:
		suggestions = append(suggestions, models.VisualizationSuggestion{
			Kind:        models.ChartBar,
			Title:       fmt.Sprintf("%s Summary", numeric[0]),
			Description: fmt.Sprintf("Overview of the %s values", numeric[0]),
		})
	default:
		suggestions = append(suggestions, models.VisualizationSuggestion{
			Kind:        models.ChartTable,
			Title:       "Data Table",
			Description: "No chartable column combination was found; view the data as a table",
		})
	}

	return suggestions
}
