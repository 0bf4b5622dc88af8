package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"toolbox/internal/cache"
	"toolbox/internal/calculator"
	"toolbox/internal/featureflags"
	"toolbox/internal/models"
)

func (c *Client) formulaCache() *cache.Store {
	if c.formulas == nil || !c.flagEnabled(featureflags.FormulaCache) {
		return nil
	}
	return c.formulas
}

// ListFormulas searches the formula catalogue.
func (c *Client) ListFormulas(ctx context.Context, f models.FormulaFilter) ([]models.Formula, error) {
	var out []models.Formula
	err := c.formulaCache().Aside(ctx, cache.FormulaListKey(f), &out, c.cacheTTL, func(ctx context.Context) error {
		req := get("/formulas", "/formulas", authNone)
		q := url.Values{}
		if f.Category != "" {
			q.Set("category", f.Category)
		}
		if f.Difficulty != "" {
			q.Set("difficulty", f.Difficulty)
		}
		if f.Search != "" {
			q.Set("search", f.Search)
		}
		if f.Page > 0 {
			q.Set("page", strconv.Itoa(f.Page))
		}
		if f.Limit > 0 {
			q.Set("limit", strconv.Itoa(f.Limit))
		}
		req.query = q
		body, err := c.doRaw(ctx, req)
		if err != nil {
			return err
		}
		out, err = decodeList[models.Formula](body)
		return err
	})
	return out, err
}

// GetFormula fetches one formula with its variables.
func (c *Client) GetFormula(ctx context.Context, id models.ID) (*models.Formula, error) {
	var f models.Formula
	err := c.formulaCache().Aside(ctx, cache.FormulaKey(id), &f, c.cacheTTL, func(ctx context.Context) error {
		return c.do(ctx, get("/formulas/:id", "/formulas/"+pathID(id), authNone), &f)
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FormulasByCategory lists one category.
func (c *Client) FormulasByCategory(ctx context.Context, category string) ([]models.Formula, error) {
	var out []models.Formula
	err := c.formulaCache().Aside(ctx, cache.FormulaCategoryKey(category), &out, c.cacheTTL, func(ctx context.Context) error {
		body, err := c.doRaw(ctx, get("/formulas/category/:category", "/formulas/category/"+url.PathEscape(category), authNone))
		if err != nil {
			return err
		}
		out, err = decodeList[models.Formula](body)
		return err
	})
	return out, err
}

// CalculationOptions lists what a formula can solve for.
func (c *Client) CalculationOptions(ctx context.Context, id models.ID) ([]models.CalculationOption, error) {
	var out []models.CalculationOption
	err := c.formulaCache().Aside(ctx, cache.CalculationOptionsKey(id), &out, c.cacheTTL, func(ctx context.Context) error {
		body, err := c.doRaw(ctx, get("/formulas/:id/calculation-options", "/formulas/"+pathID(id)+"/calculation-options", authNone))
		if err != nil {
			return err
		}
		out, err = decodeList[models.CalculationOption](body)
		return err
	})
	return out, err
}

// Calculate solves a formula for one output variable.
func (c *Client) Calculate(ctx context.Context, in models.CalculationRequest) (float64, error) {
	req := request{
		method:   http.MethodPost,
		path:     "/formulas/calculate",
		endpoint: "/formulas/calculate",
		body:     in,
		auth:     authOptional,
	}
	body, err := c.doRaw(ctx, req)
	if err != nil {
		return 0, err
	}
	return calculator.ExtractResult(body)
}
