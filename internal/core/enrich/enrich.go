// Package enrich 以價格、營養與過敏原參考表補齊成本、廢棄率、營養表與過敏原
package enrich

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"recipe-extractor/internal/core/catalog"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
	"recipe-extractor/internal/pkg/common"
)

// Enricher 持有唯讀的參考表；nil 參考表代表略過該項
type Enricher struct {
	prices      *catalog.PriceCatalog
	nutrition   *catalog.NutritionCatalog
	allergenCat *catalog.AllergenCatalog
}

// Report 單次補齊的結果
type Report struct {
	Changed    recipe.FieldSet `json:"-"`
	Costs      []catalog.Cost  `json:"costs,omitempty"`
	Nutrients  []catalog.Match `json:"nutrients,omitempty"`
	NotFound   []string        `json:"not_found,omitempty"`
	Mismatches []string        `json:"unit_mismatch,omitempty"`
	Allergens  *AllergenReport `json:"allergens,omitempty"`
}

// New 建立 Enricher
func New(prices *catalog.PriceCatalog, nutrition *catalog.NutritionCatalog) *Enricher {
	return &Enricher{prices: prices, nutrition: nutrition}
}

// WithAllergens 啟用過敏原與飲食標記推斷
func (e *Enricher) WithAllergens(c *catalog.AllergenCatalog) *Enricher {
	e.allergenCat = c
	return e
}

// Enrich 就地補齊 r；已有的值不會被覆寫
func (e *Enricher) Enrich(r *recipe.Recipe) Report {
	rep := Report{Changed: recipe.NewFieldSet()}
	if r == nil {
		return rep
	}
	if r.Nutrition == nil {
		r.Nutrition = recipe.NutritionTable{}
	}

	if e != nil && e.prices.Len() > 0 && !hasCostValues(r) {
		e.costLines(r, &rep)
	}
	if estimateWaste(r.CostLines) {
		rep.Changed.Add("cost_lines")
	}
	if fillTotals(r) {
		rep.Changed.Add("costs")
	}
	if e != nil && e.nutrition.Len() > 0 && !hasNutrition(r.Nutrition) {
		e.nutritionTable(r, &rep)
	}
	if e != nil && e.allergenCat.Len() > 0 {
		e.allergens(r, &rep)
	}

	r.IngredientsText = recipe.BuildIngredientsText(r.Ingredients)
	r.StepsText = recipe.BuildStepsText(r.Steps)

	common.LogDebug("Recipe enriched",
		zap.Strings("changed", rep.Changed.Sorted()),
		zap.Int("not_found", len(rep.NotFound)),
		zap.Int("unit_mismatch", len(rep.Mismatches)),
	)
	return rep
}

// hasCostValues 已有成本列數值或總額時不再由參考表產生
func hasCostValues(r *recipe.Recipe) bool {
	for _, row := range r.CostLines {
		for _, cell := range []string{row.PrezzoCalcolato, row.PrezzoKgUd, row.PrezzoAlimentoAcquisto, row.Scarto} {
			if !recipe.IsMissingAmount(cell) {
				return true
			}
		}
	}
	return !recipe.IsMissingAmount(r.SpesaTotaleRicetta) || !recipe.IsMissingAmount(r.SpesaTotaleAcquisto)
}

func (e *Enricher) costLines(r *recipe.Recipe, rep *Report) {
	var rows []recipe.CostLine
	source := ""
	for i := range r.Ingredients {
		ing := &r.Ingredients[i]
		if ing.Qty == nil || *ing.Qty <= 0 {
			continue
		}
		cost, err := e.prices.CostFor(ing.Name, *ing.Qty, ing.Unit)
		if !e.record(ing, cost.Match, err, rep) {
			continue
		}
		rep.Costs = append(rep.Costs, cost)
		if source == "" {
			source = cost.Entry.Source
		}
		rows = append(rows, recipe.CostLine{
			Ingrediente:     ing.Name,
			PesoMinAcquisto: fmt.Sprintf("%s %s", formatNumber(cost.Entry.PurchaseQty), cost.Entry.PurchaseUnit),
			PrezzoKgUd:      recipe.FormatMoney(cost.Entry.PricePerUnit),
			QuantitaUsata:   strings.TrimSpace(recipe.FormatQty(ing.Qty) + " " + ing.Unit),
			PrezzoCalcolato: recipe.FormatMoney(cost.CostEUR),
		})
	}
	if len(rows) == 0 {
		return
	}
	r.CostLines = rows
	rep.Changed.Add("cost_lines")
	if recipe.IsEmptyText(r.FontePrezzi) && source != "" {
		r.FontePrezzi = source
		rep.Changed.Add("fonte_prezzi")
	}
}

// record 記錄比對結果並補上標準名稱；回傳是否可用
func (e *Enricher) record(ing *recipe.Ingredient, m catalog.Match, err error, rep *Report) bool {
	switch {
	case errors.Is(err, units.ErrUnitMismatch):
		rep.Mismatches = append(rep.Mismatches, ing.Name)
		common.LogDebug("Catalog unit mismatch", zap.String("ingredient", ing.Name), zap.Error(err))
		return false
	case err != nil:
		common.LogWarn("Catalog lookup failed", zap.String("ingredient", ing.Name), zap.Error(err))
		return false
	case !m.Found():
		rep.NotFound = append(rep.NotFound, ing.Name)
		return false
	}
	if ing.CanonicalName == "" {
		ing.CanonicalName = m.Name
		if ing.CanonicalName == "" {
			ing.CanonicalName = m.Key
		}
	}
	return true
}

// estimateWaste 為空白或零的廢棄率填入估計值；估計為 "0" 時不寫入
func estimateWaste(rows []recipe.CostLine) bool {
	updated := false
	for i := range rows {
		raw := strings.TrimSpace(strings.ReplaceAll(rows[i].Scarto, "%", ""))
		if !recipe.IsMissingAmount(raw) {
			continue
		}
		est := EstimateWaste(rows[i].Ingrediente)
		if est == "" || est == "0" || est == rows[i].Scarto {
			continue
		}
		rows[i].Scarto = est
		updated = true
	}
	return updated
}

// fillTotals 由成本列加總缺少的總額，並以份數計算每份成本
func fillTotals(r *recipe.Recipe) bool {
	updated := false
	if recipe.IsMissingAmount(r.SpesaTotaleRicetta) {
		if sum, ok := sumColumn(r.CostLines, func(c recipe.CostLine) string { return c.PrezzoCalcolato }); ok && sum > 0 {
			r.SpesaTotaleRicetta = recipe.FormatMoney(sum)
			updated = true
		}
	}
	if recipe.IsMissingAmount(r.SpesaTotaleAcquisto) {
		if sum, ok := sumColumn(r.CostLines, func(c recipe.CostLine) string { return c.PrezzoAlimentoAcquisto }); ok && sum > 0 {
			r.SpesaTotaleAcquisto = recipe.FormatMoney(sum)
			updated = true
		}
	}
	if recipe.IsMissingAmount(r.SpesaPerPorzione) && r.Servings != nil && *r.Servings > 0 {
		if total, ok := recipe.NumberFromText(r.SpesaTotaleRicetta); ok && total > 0 {
			r.SpesaPerPorzione = recipe.FormatMoney(total / float64(*r.Servings))
			updated = true
		}
	}
	return updated
}

func sumColumn(rows []recipe.CostLine, cell func(recipe.CostLine) string) (float64, bool) {
	sum, found := 0.0, false
	for _, row := range rows {
		if v, ok := recipe.NumberFromText(cell(row)); ok {
			sum += v
			found = true
		}
	}
	return sum, found
}

func hasNutrition(t recipe.NutritionTable) bool {
	for _, block := range t {
		for _, v := range block {
			if v != 0 {
				return true
			}
		}
	}
	return false
}

// nutritionTable 加總每個食材的營養值為總量，再依總重量換算 100g、依份數換算每份
func (e *Enricher) nutritionTable(r *recipe.Recipe, rep *Report) {
	total := make(map[string]float64)
	grams := 0.0
	for i := range r.Ingredients {
		ing := &r.Ingredients[i]
		if ing.Qty == nil || *ing.Qty <= 0 {
			continue
		}
		n, err := e.nutrition.NutrientsFor(ing.Name, *ing.Qty, ing.Unit)
		if !e.record(ing, n.Match, err, rep) {
			continue
		}
		rep.Nutrients = append(rep.Nutrients, n.Match)
		grams += n.Grams
		for k, v := range n.Values {
			total[k] += v
		}
	}
	if grams <= 0 {
		return
	}

	for _, key := range recipe.NutrientKeys {
		v, ok := total[key]
		if !ok {
			continue
		}
		r.Nutrition.Set(recipe.ScopeTotal, key, round2(v))
		r.Nutrition.Set(recipe.ScopePer100g, key, round2(v*100/grams))
		if r.Servings != nil && *r.Servings > 0 {
			r.Nutrition.Set(recipe.ScopePerPortion, key, round2(v/float64(*r.Servings)))
		}
	}
	rep.Changed.Add("nutrition_table")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
