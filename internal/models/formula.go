package models

import "time"

// Formula is an engineering formula from the catalogue.
type Formula struct {
	MongoID     ID         `json:"_id,omitempty"`
	ID          ID         `json:"id,omitempty"`
	Name        string     `json:"name"`
	Category    string     `json:"category,omitempty"`
	Difficulty  string     `json:"difficulty,omitempty"`
	Description string     `json:"description,omitempty"`
	Formula     string     `json:"formula,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Variables   []Variable `json:"variables,omitempty"`
}

// Key returns the formula id.
func (f Formula) Key() ID { return FirstID(f.MongoID, f.ID) }

// Variable looks up a variable by key.
func (f *Formula) Variable(key string) (Variable, bool) {
	if f == nil {
		return Variable{}, false
	}
	for _, v := range f.Variables {
		if v.Key == key {
			return v, true
		}
	}
	return Variable{}, false
}

// Variable describes one formula symbol.
type Variable struct {
	Key         string      `json:"key"`
	Name        string      `json:"name,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Description string      `json:"description,omitempty"`
	Constraints Constraints `json:"constraints"`
}

// Constraints limit the accepted values of a variable.
type Constraints struct {
	Min            *float64 `json:"min,omitempty"`
	Max            *float64 `json:"max,omitempty"`
	MustBePositive bool     `json:"mustBePositive,omitempty"`
}

// CalculationOption names an output variable and the inputs needed to solve for it.
type CalculationOption struct {
	OutputVariable string   `json:"outputVariable"`
	RequiredInputs []string `json:"requiredInputs"`
}

// CalculationRequest is the POST /formulas/calculate payload.
type CalculationRequest struct {
	FormulaID      ID                 `json:"formulaId"`
	OutputVariable string             `json:"outputVariable"`
	Inputs         map[string]float64 `json:"inputs"`
}

// FormulaFilter narrows GET /formulas.
type FormulaFilter struct {
	Category   string
	Difficulty string
	Search     string
	Page       int
	Limit      int
}

// CalculationResult records a finished formula calculation.
type CalculationResult struct {
	FormulaID      ID                 `json:"formulaId"`
	FormulaName    string             `json:"formulaName,omitempty"`
	OutputVariable string             `json:"outputVariable"`
	Inputs         map[string]float64 `json:"inputs"`
	Result         float64            `json:"result"`
	At             time.Time          `json:"at"`
}
