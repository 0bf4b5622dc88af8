// Package calculator validates formula inputs, interprets calculation
// responses and runs the basic four-function calculator.
package calculator

import "strings"

// Category is a formula catalogue category.
type Category struct {
	Value string
	Label string
}

// AllCategories is the filter value meaning "no category filter".
const AllCategories = "ALL"

// Categories lists the catalogue categories in display order.
var Categories = []Category{
	{AllCategories, "All Categories"},
	{"ELECTRICAL", "Electrical"},
	{"MECHANICAL", "Mechanical"},
	{"CIVIL", "Civil"},
	{"CHEMICAL", "Chemical"},
	{"PHYSICS", "Physics"},
	{"MATHEMATICS", "Mathematics"},
	{"THERMODYNAMICS", "Thermodynamics"},
	{"FLUID_MECHANICS", "Fluid Mechanics"},
	{"MATERIAL_SCIENCE", "Material Science"},
}

// CategoryLabel returns the display label for value, or value itself when it
// is not a known category.
func CategoryLabel(value string) string {
	for _, c := range Categories {
		if strings.EqualFold(c.Value, value) {
			return c.Label
		}
	}
	return value
}

// FilterValue maps a user-supplied category to the value sent to the API;
// "ALL" and "" mean no filter.
func FilterValue(category string) string {
	category = strings.ToUpper(strings.TrimSpace(category))
	if category == AllCategories {
		return ""
	}
	return category
}
