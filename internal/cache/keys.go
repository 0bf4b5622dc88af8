package cache

import (
	"fmt"
	"net/url"

	"toolbox/internal/models"
)

// FormulaPrefix namespaces formula catalogue entries.
const FormulaPrefix = "toolbox:formulas:"

// FormulaKey is the key of a single formula.
func FormulaKey(id models.ID) string {
	return "item:" + string(id)
}

// FormulaListKey is the key of one filtered page of the catalogue.
func FormulaListKey(f models.FormulaFilter) string {
	q := url.Values{}
	q.Set("category", f.Category)
	q.Set("difficulty", f.Difficulty)
	q.Set("search", f.Search)
	q.Set("page", fmt.Sprint(f.Page))
	q.Set("limit", fmt.Sprint(f.Limit))
	return "list:" + q.Encode()
}

// FormulaCategoryKey is the key of a category listing.
func FormulaCategoryKey(category string) string {
	return "category:" + category
}

// CalculationOptionsKey is the key of a formula's calculation options.
func CalculationOptionsKey(id models.ID) string {
	return "options:" + string(id)
}
