package apitest

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"toolbox/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Solver computes one output variable from the required inputs.
type Solver func(in map[string]float64) (float64, error)

// Catalogue formula ids.
const (
	OhmsLawID         models.ID = "ohms-law"
	ElectricalPowerID models.ID = "electrical-power"
	KineticEnergyID   models.ID = "kinetic-energy"
	NormalStressID    models.ID = "normal-stress"
	ReynoldsNumberID  models.ID = "reynolds-number"
)

var errDivideByZero = errors.New("Division by zero")

func ptr(v float64) *float64 { return &v }

func product(a, b string) Solver {
	return func(in map[string]float64) (float64, error) { return in[a] * in[b], nil }
}

func quotient(a, b string) Solver {
	return func(in map[string]float64) (float64, error) {
		if in[b] == 0 {
			return 0, errDivideByZero
		}
		return in[a] / in[b], nil
	}
}

// loadCatalogue installs the built-in formulas.
func (b *Backend) loadCatalogue() {
	b.AddFormula(models.Formula{
		MongoID:     OhmsLawID,
		Name:        "Ohm's Law",
		Category:    "ELECTRICAL",
		Difficulty:  "Beginner",
		Description: "Relates voltage, current and resistance in a conductor.",
		Formula:     "V = I × R",
		Tags:        []string{"circuits", "resistance"},
		Variables: []models.Variable{
			{Key: "V", Name: "Voltage", Unit: "V"},
			{Key: "I", Name: "Current", Unit: "A", Constraints: models.Constraints{MustBePositive: true}},
			{Key: "R", Name: "Resistance", Unit: "Ω", Constraints: models.Constraints{MustBePositive: true}},
		},
	}, map[string]Solver{
		"V": product("I", "R"),
		"I": quotient("V", "R"),
		"R": quotient("V", "I"),
	})

	b.AddFormula(models.Formula{
		MongoID:     ElectricalPowerID,
		Name:        "Electrical Power",
		Category:    "ELECTRICAL",
		Difficulty:  "Beginner",
		Description: "Power dissipated by a load from voltage and current.",
		Formula:     "P = V × I",
		Tags:        []string{"circuits", "power"},
		Variables: []models.Variable{
			{Key: "P", Name: "Power", Unit: "W"},
			{Key: "V", Name: "Voltage", Unit: "V"},
			{Key: "I", Name: "Current", Unit: "A"},
		},
	}, map[string]Solver{
		"P": product("V", "I"),
		"V": quotient("P", "I"),
		"I": quotient("P", "V"),
	})

	b.AddFormula(models.Formula{
		MongoID:     KineticEnergyID,
		Name:        "Kinetic Energy",
		Category:    "PHYSICS",
		Difficulty:  "Beginner",
		Description: "Energy of a body due to its motion.",
		Formula:     "KE = ½ × m × v²",
		Tags:        []string{"energy", "motion"},
		Variables: []models.Variable{
			{Key: "KE", Name: "Kinetic Energy", Unit: "J", Constraints: models.Constraints{Min: ptr(0)}},
			{Key: "m", Name: "Mass", Unit: "kg", Constraints: models.Constraints{MustBePositive: true}},
			{Key: "v", Name: "Velocity", Unit: "m/s"},
		},
	}, map[string]Solver{
		"KE": func(in map[string]float64) (float64, error) { return 0.5 * in["m"] * in["v"] * in["v"], nil },
		"m": func(in map[string]float64) (float64, error) {
			if in["v"] == 0 {
				return 0, errDivideByZero
			}
			return 2 * in["KE"] / (in["v"] * in["v"]), nil
		},
		"v": func(in map[string]float64) (float64, error) {
			if in["m"] == 0 {
				return 0, errDivideByZero
			}
			return math.Sqrt(2 * in["KE"] / in["m"]), nil
		},
	})

	b.AddFormula(models.Formula{
		MongoID:     NormalStressID,
		Name:        "Normal Stress",
		Category:    "MATERIAL_SCIENCE",
		Difficulty:  "Intermediate",
		Description: "Axial force per unit cross-sectional area.",
		Formula:     "σ = F / A",
		Tags:        []string{"stress", "strength"},
		Variables: []models.Variable{
			{Key: "sigma", Name: "Stress", Unit: "Pa"},
			{Key: "F", Name: "Force", Unit: "N"},
			{Key: "A", Name: "Area", Unit: "m²", Constraints: models.Constraints{MustBePositive: true}},
		},
	}, map[string]Solver{
		"sigma": quotient("F", "A"),
		"F":     product("sigma", "A"),
		"A":     quotient("F", "sigma"),
	})

	b.AddFormula(models.Formula{
		MongoID:     ReynoldsNumberID,
		Name:        "Reynolds Number",
		Category:    "FLUID_MECHANICS",
		Difficulty:  "Advanced",
		Description: "Ratio of inertial to viscous forces in a flow.",
		Formula:     "Re = ρ × v × D / μ",
		Tags:        []string{"flow", "dimensionless"},
		Variables: []models.Variable{
			{Key: "Re", Name: "Reynolds Number"},
			{Key: "rho", Name: "Density", Unit: "kg/m³", Constraints: models.Constraints{MustBePositive: true}},
			{Key: "v", Name: "Velocity", Unit: "m/s", Constraints: models.Constraints{Min: ptr(0)}},
			{Key: "D", Name: "Diameter", Unit: "m", Constraints: models.Constraints{MustBePositive: true}},
			{Key: "mu", Name: "Dynamic Viscosity", Unit: "Pa·s", Constraints: models.Constraints{MustBePositive: true, Max: ptr(1000)}},
		},
	}, map[string]Solver{
		"Re": func(in map[string]float64) (float64, error) {
			if in["mu"] == 0 {
				return 0, errDivideByZero
			}
			return in["rho"] * in["v"] * in["D"] / in["mu"], nil
		},
	})
}

// AddFormula adds f to the catalogue. Each solver key becomes a calculation
// option whose required inputs are the formula's other variables.
func (b *Backend) AddFormula(f models.Formula, solvers map[string]Solver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.formulas = append(b.formulas, f)
	b.solvers[f.MongoID] = solvers
}

func (b *Backend) findFormula(id string) *models.Formula {
	for i := range b.formulas {
		if string(b.formulas[i].MongoID) == id {
			return &b.formulas[i]
		}
	}
	return nil
}

// optionsFor lists the outputs in variable order. Callers hold mu.
func (b *Backend) optionsFor(f *models.Formula) []models.CalculationOption {
	solvers := b.solvers[f.MongoID]
	out := []models.CalculationOption{}
	for _, v := range f.Variables {
		if _, ok := solvers[v.Key]; !ok {
			continue
		}
		opt := models.CalculationOption{OutputVariable: v.Key, RequiredInputs: []string{}}
		for _, in := range f.Variables {
			if in.Key != v.Key {
				opt.RequiredInputs = append(opt.RequiredInputs, in.Key)
			}
		}
		out = append(out, opt)
	}
	return out
}

func matchesSearch(f models.Formula, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(strings.ToLower(f.Description), q) {
		return true
	}
	for _, t := range f.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func (b *Backend) listFormulas(c *fiber.Ctx) error {
	category, difficulty, search := c.Query("category"), c.Query("difficulty"), strings.TrimSpace(c.Query("search"))
	page, limit := c.QueryInt("page", 1), c.QueryInt("limit", 0)

	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []models.Formula{}
	for _, f := range b.formulas {
		if category != "" && !strings.EqualFold(f.Category, category) {
			continue
		}
		if difficulty != "" && !strings.EqualFold(f.Difficulty, difficulty) {
			continue
		}
		if search != "" && !matchesSearch(f, search) {
			continue
		}
		matched = append(matched, f)
	}
	total := len(matched)
	if limit > 0 {
		start := min(max(page-1, 0)*limit, total)
		matched = matched[start:min(start+limit, total)]
	}
	return c.JSON(fiber.Map{"formulas": matched, "total": total, "page": page})
}

func (b *Backend) formulasByCategory(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.Formula{}
	for _, f := range b.formulas {
		if strings.EqualFold(f.Category, c.Params("category")) {
			out = append(out, f)
		}
	}
	return c.JSON(out)
}

func (b *Backend) getFormula(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.findFormula(c.Params("id"))
	if f == nil {
		return respondError(c, fiber.StatusNotFound, "Formula not found")
	}
	return c.JSON(f)
}

func (b *Backend) calculationOptions(c *fiber.Ctx) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.findFormula(c.Params("id"))
	if f == nil {
		return respondError(c, fiber.StatusNotFound, "Formula not found")
	}
	return c.JSON(fiber.Map{"data": b.optionsFor(f)})
}

func (b *Backend) calculate(c *fiber.Ctx) error {
	var req models.CalculationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	b.mu.Lock()
	f := b.findFormula(string(req.FormulaID))
	var solve Solver
	var opts []models.CalculationOption
	if f != nil {
		solve = b.solvers[f.MongoID][req.OutputVariable]
		opts = b.optionsFor(f)
	}
	b.mu.Unlock()

	if f == nil {
		return respondError(c, fiber.StatusNotFound, "Formula not found")
	}
	if solve == nil {
		return respondError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot solve for %s", req.OutputVariable))
	}
	for _, opt := range opts {
		if opt.OutputVariable != req.OutputVariable {
			continue
		}
		for _, k := range opt.RequiredInputs {
			if _, ok := req.Inputs[k]; !ok {
				return respondError(c, fiber.StatusBadRequest, "Missing input: "+k)
			}
		}
	}
	result, err := solve(req.Inputs)
	if err != nil {
		return respondError(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(fiber.Map{
		"result":         result,
		"formulaId":      req.FormulaID,
		"outputVariable": req.OutputVariable,
	})
}
