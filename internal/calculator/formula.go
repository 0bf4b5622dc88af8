package calculator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"toolbox/internal/models"
)

// ErrNoOption is returned when no output variable is selected.
var ErrNoOption = models.NewValidationError("Pick what to solve for")

// FindOption returns the option solving for output.
func FindOption(options []models.CalculationOption, output string) (models.CalculationOption, bool) {
	for _, o := range options {
		if o.OutputVariable == output {
			return o, true
		}
	}
	return models.CalculationOption{}, false
}

// NameOf returns the variable's display name, falling back to its key.
func NameOf(f *models.Formula, key string) string {
	if v, ok := f.Variable(key); ok && v.Name != "" {
		return v.Name
	}
	return key
}

// ResetInputs returns the input map for opt, keeping values already entered
// for keys the option still needs.
func ResetInputs(opt models.CalculationOption, prev map[string]string) map[string]string {
	next := make(map[string]string, len(opt.RequiredInputs))
	for _, k := range opt.RequiredInputs {
		next[k] = prev[k]
	}
	return next
}

// ValidateInputs checks every required input of opt and returns the parsed
// values. The first failing input determines the error.
func ValidateInputs(f *models.Formula, opt models.CalculationOption, raw map[string]string) (map[string]float64, error) {
	if opt.OutputVariable == "" {
		return nil, ErrNoOption
	}
	out := make(map[string]float64, len(opt.RequiredInputs))
	for _, k := range opt.RequiredInputs {
		name := NameOf(f, k)
		s := strings.TrimSpace(raw[k])
		if s == "" {
			return nil, models.NewValidationError(fmt.Sprintf("Enter %s (%s)", name, k))
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, models.NewValidationError(name + " must be a number")
		}
		v, _ := f.Variable(k)
		c := v.Constraints
		if c.MustBePositive && n <= 0 {
			return nil, models.NewValidationError(name + " must be > 0")
		}
		if c.Min != nil && n < *c.Min {
			return nil, models.NewValidationError(fmt.Sprintf("%s ≥ %s", name, formatNumber(*c.Min)))
		}
		if c.Max != nil && n > *c.Max {
			return nil, models.NewValidationError(fmt.Sprintf("%s ≤ %s", name, formatNumber(*c.Max)))
		}
		out[k] = n
	}
	return out, nil
}

// ErrCalculationFailed is the fallback when a response carries no result.
var ErrCalculationFailed = errors.New("Calculation failed")

// ExtractResult reads the calculate response: either {"result": n} or a bare
// number. Anything else fails with the response's message, if any.
func ExtractResult(body []byte) (float64, error) {
	body = bytes.TrimSpace(body)
	var n float64
	if err := json.Unmarshal(body, &n); err == nil {
		return n, nil
	}
	var obj struct {
		Result  *float64 `json:"result"`
		Message string   `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return 0, ErrCalculationFailed
	}
	if obj.Result != nil {
		return *obj.Result, nil
	}
	if obj.Message != "" {
		return 0, errors.New(obj.Message)
	}
	return 0, ErrCalculationFailed
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
