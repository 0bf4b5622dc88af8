package actions

import (
	"context"
	"maps"
	"slices"
	"time"

	"toolbox/internal/calculator"
	"toolbox/internal/history"
	"toolbox/internal/models"
)

// FormulaAPI is the part of the API client the formula view uses.
type FormulaAPI interface {
	ListFormulas(ctx context.Context, f models.FormulaFilter) ([]models.Formula, error)
	GetFormula(ctx context.Context, id models.ID) (*models.Formula, error)
	CalculationOptions(ctx context.Context, id models.ID) ([]models.CalculationOption, error)
	Calculate(ctx context.Context, in models.CalculationRequest) (float64, error)
}

const (
	msgLoadFormulas = "Failed to load formulas"
	msgLoadFormula  = "Failed to load formula details"
	msgCalculate    = "Calculation failed"
)

// FormulaView browses the catalogue and runs calculations.
type FormulaView struct {
	view
	api     FormulaAPI
	history history.Repository
	now     func() time.Time

	list    []models.Formula
	formula *models.Formula
	options []models.CalculationOption
	option  models.CalculationOption
	inputs  map[string]string
	result  *models.CalculationResult
}

// FormulaOption configures a FormulaView.
type FormulaOption func(*FormulaView)

// WithHistory records every successful calculation in repo.
func WithHistory(repo history.Repository) FormulaOption {
	return func(v *FormulaView) { v.history = repo }
}

// NewFormulaView returns an empty formula view.
func NewFormulaView(f FormulaAPI, users CurrentUser, opts ...FormulaOption) *FormulaView {
	v := &FormulaView{api: f, now: time.Now, inputs: map[string]string{}}
	v.init(users, "formulas")
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// LoadList searches the catalogue. Category "ALL" means no filter.
func (v *FormulaView) LoadList(ctx context.Context, filter models.FormulaFilter) error {
	filter.Category = calculator.FilterValue(filter.Category)
	ticket := v.begin()
	list, err := v.api.ListFormulas(ctx, filter)
	if err != nil {
		return v.failLoad(ctx, ticket, "load_formulas", err, msgLoadFormulas)
	}
	v.commit(ticket, func() {
		v.list = list
		v.err = ""
	})
	return nil
}

// List returns the catalogue page last loaded.
func (v *FormulaView) List() []models.Formula {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.list)
}

// Select loads formula id with its options and picks the first option.
func (v *FormulaView) Select(ctx context.Context, id models.ID) error {
	ticket := v.begin()
	f, err := v.api.GetFormula(ctx, id)
	if err != nil {
		return v.failLoad(ctx, ticket, "select_formula", err, msgLoadFormula)
	}
	opts, err := v.api.CalculationOptions(ctx, id)
	if err != nil {
		return v.failLoad(ctx, ticket, "select_formula", err, msgLoadFormula)
	}
	v.commit(ticket, func() {
		v.formula = f
		v.options = opts
		v.option = models.CalculationOption{}
		if len(opts) > 0 {
			v.option = opts[0]
		}
		v.inputs = calculator.ResetInputs(v.option, nil)
		v.result = nil
		v.err = ""
	})
	return nil
}

// Formula returns the selected formula, or nil.
func (v *FormulaView) Formula() *models.Formula {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.formula
}

// Options returns what the selected formula can solve for.
func (v *FormulaView) Options() []models.CalculationOption {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.options)
}

// Option returns the chosen option.
func (v *FormulaView) Option() models.CalculationOption {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.option
}

// Inputs returns the entered input text by variable key.
func (v *FormulaView) Inputs() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return maps.Clone(v.inputs)
}

// Result returns the last successful calculation, or nil.
func (v *FormulaView) Result() *models.CalculationResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

// ChooseOutput switches what to solve for. Inputs the new option still needs
// keep their values.
func (v *FormulaView) ChooseOutput(output string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	opt, ok := calculator.FindOption(v.options, output)
	if !ok {
		v.err = calculator.ErrNoOption.Message
		return calculator.ErrNoOption
	}
	v.option = opt
	v.inputs = calculator.ResetInputs(opt, v.inputs)
	v.result = nil
	v.err = ""
	return nil
}

// SetInput records the text entered for key.
func (v *FormulaView) SetInput(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inputs[key] = value
	v.result = nil
}

// Calculate validates the inputs and asks the server to solve. Invalid input
// never reaches the network.
func (v *FormulaView) Calculate(ctx context.Context) (float64, error) {
	v.mu.Lock()
	f, opt, raw := v.formula, v.option, maps.Clone(v.inputs)
	v.mu.Unlock()
	if f == nil {
		return 0, v.fail(ctx, "calculate", calculator.ErrNoOption, msgCalculate)
	}

	inputs, err := calculator.ValidateInputs(f, opt, raw)
	if err != nil {
		return 0, v.fail(ctx, "calculate", err, msgCalculate)
	}
	value, err := v.api.Calculate(ctx, models.CalculationRequest{
		FormulaID:      f.Key(),
		OutputVariable: opt.OutputVariable,
		Inputs:         inputs,
	})
	if err != nil {
		return 0, v.fail(ctx, "calculate", err, msgCalculate)
	}

	res := models.CalculationResult{
		FormulaID:      f.Key(),
		FormulaName:    f.Name,
		OutputVariable: opt.OutputVariable,
		Inputs:         inputs,
		Result:         value,
		At:             v.now(),
	}
	v.update(func() { v.result = &res })
	if v.history != nil {
		if err := v.history.Create(ctx, history.FromFormula(res)); err != nil {
			v.log.LogError(ctx, "INSERT", "history", err)
		}
	}
	v.ok(ctx, "calculate")
	return value, nil
}
