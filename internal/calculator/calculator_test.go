package calculator

import (
	"testing"

	"toolbox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func ohm() *models.Formula {
	return &models.Formula{
		MongoID: "f1",
		Name:    "Ohm's Law",
		Variables: []models.Variable{
			{Key: "V", Name: "Voltage", Unit: "V"},
			{Key: "I", Name: "Current", Unit: "A", Constraints: models.Constraints{MustBePositive: true}},
			{Key: "R", Name: "Resistance", Unit: "Ω", Constraints: models.Constraints{Min: f64(1), Max: f64(1e6)}},
		},
	}
}

func TestValidateInputs(t *testing.T) {
	t.Parallel()

	opt := models.CalculationOption{OutputVariable: "V", RequiredInputs: []string{"I", "R"}}
	tests := []struct {
		name    string
		opt     models.CalculationOption
		raw     map[string]string
		wantErr string
	}{
		{"no option", models.CalculationOption{}, nil, "Pick what to solve for"},
		{"missing input", opt, map[string]string{"I": "2"}, "Enter Resistance (R)"},
		{"not numeric", opt, map[string]string{"I": "two", "R": "10"}, "Current must be a number"},
		{"nan", opt, map[string]string{"I": "NaN", "R": "NaN"}, "Current must be a number"},
		{"infinite", opt, map[string]string{"I": "Inf", "R": "5"}, "Current must be a number"},
		{"infinite resistance", opt, map[string]string{"I": "2", "R": "infinity"}, "Resistance must be a number"},
		{"must be positive", opt, map[string]string{"I": "0", "R": "10"}, "Current must be > 0"},
		{"below min", opt, map[string]string{"I": "2", "R": "0.5"}, "Resistance ≥ 1"},
		{"above max", opt, map[string]string{"I": "2", "R": "2000000"}, "Resistance ≤ 1000000"},
		{"valid", opt, map[string]string{"I": " 2 ", "R": "10"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateInputs(ohm(), tt.opt, tt.raw)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.True(t, models.HasCode(err, models.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, map[string]float64{"I": 2, "R": 10}, got)
		})
	}
}

func TestResetInputs_KeepsSharedKeys(t *testing.T) {
	t.Parallel()

	next := ResetInputs(models.CalculationOption{OutputVariable: "I", RequiredInputs: []string{"V", "R"}},
		map[string]string{"I": "2", "R": "10"})
	assert.Equal(t, map[string]string{"V": "", "R": "10"}, next)
}

func TestExtractResult(t *testing.T) {
	t.Parallel()

	v, err := ExtractResult([]byte(`{"result": 20, "unit": "V"}`))
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)

	v, err = ExtractResult([]byte(`3.5`))
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	v, err = ExtractResult([]byte(`{"result": 0}`))
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = ExtractResult([]byte(`{"message": "Resistance out of range"}`))
	assert.EqualError(t, err, "Resistance out of range")

	_, err = ExtractResult([]byte(`{}`))
	assert.ErrorIs(t, err, ErrCalculationFailed)

	_, err = ExtractResult([]byte(`<html>`))
	assert.ErrorIs(t, err, ErrCalculationFailed)
}

func TestCategories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Fluid Mechanics", CategoryLabel("fluid_mechanics"))
	assert.Equal(t, "Other", CategoryLabel("Other"))
	assert.Equal(t, "", FilterValue("all"))
	assert.Equal(t, "ELECTRICAL", FilterValue(" electrical "))
}

func TestBasic_Chain(t *testing.T) {
	t.Parallel()

	b := NewBasic()
	require.NoError(t, b.Run([]string{"12", "+", "3", "×", "2", "="}))
	assert.Equal(t, "30", b.Display())

	h := b.History()
	require.Len(t, h, 1)
	assert.Equal(t, "12 + 3 × 2 = 30", h[0].Expression)
	assert.Equal(t, 30.0, h[0].Result)
}

func TestBasic_DivisionByZeroYieldsZero(t *testing.T) {
	t.Parallel()

	b := NewBasic()
	require.NoError(t, b.Run([]string{"7", "/", "0", "="}))
	assert.Equal(t, "0", b.Display())
	assert.Equal(t, "7 ÷ 0 = 0", b.History()[0].Expression)
}

func TestBasic_EditingKeys(t *testing.T) {
	t.Parallel()

	b := NewBasic()
	require.NoError(t, b.Run([]string{"1", ".", ".", "5"}))
	assert.Equal(t, "1.5", b.Display())

	b.ToggleSign()
	assert.Equal(t, "-1.5", b.Display())
	b.Backspace()
	b.Backspace()
	b.Backspace()
	assert.Equal(t, "0", b.Display())

	b.ToggleSign()
	assert.Equal(t, "0", b.Display())

	require.NoError(t, b.Run([]string{"9", "-", "4", "CE", "5", "="}))
	assert.Equal(t, "4", b.Display())

	b.Clear()
	assert.Equal(t, "0", b.Display())
	assert.Empty(t, b.Expression())
	_, ok := b.Equals()
	assert.False(t, ok)
	assert.Len(t, b.History(), 1, "clear keeps history")
}

func TestBasic_OperatorAfterOperatorReplacesIt(t *testing.T) {
	t.Parallel()

	b := NewBasic()
	require.NoError(t, b.Run([]string{"8", "+", "-", "3", "="}))
	assert.Equal(t, "5", b.Display())
	assert.Equal(t, "8 - 3 = 5", b.History()[0].Expression)
}

func TestBasic_DecimalAfterResult(t *testing.T) {
	t.Parallel()

	b := NewBasic()
	require.NoError(t, b.Run([]string{"2", "+", "2", "=", "."}))
	assert.Equal(t, "0.", b.Display())
}

func TestBasic_Modulo(t *testing.T) {
	t.Parallel()

	b := NewBasic()
	require.NoError(t, b.Run([]string{"10", "%", "4", "="}))
	assert.Equal(t, "2", b.Display())
}

func TestBasic_UnknownKey(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewBasic().Press("sqrt"))
}
