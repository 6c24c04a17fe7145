// Package analyzer 計算食譜缺少哪些欄位
package analyzer

import (
	"recipe-extractor/internal/core/recipe"
)

// 欄位識別碼
const (
	FieldTitle             = "title"
	FieldCategory          = "category"
	FieldServings          = "servings"
	FieldDifficulty        = "difficulty"
	FieldIngredients       = "ingredients"
	FieldSteps             = "steps"
	FieldTime              = "time"
	FieldDiets             = "diets"
	FieldStorage           = "conservazione"
	FieldAllergens         = "allergens"
	FieldWinePairing       = "wine_pairing"
	FieldWineTemperature   = "vino_temperatura_servizio"
	FieldWineRegion        = "vino_regione"
	FieldWineVintage       = "vino_annata"
	FieldWineVintageReason = "vino_motivo_annata"
	FieldEquipment         = "equipment"
	FieldPresentation      = "presentazione"
	FieldSeasonality       = "stagionalita"
	FieldCosts             = "costs"
	FieldNutrition         = "nutrition"
)

// Fields 檢查的頂層欄位
var Fields = []string{
	FieldTitle, FieldCategory, FieldServings, FieldDifficulty, FieldIngredients, FieldSteps,
	FieldTime, FieldDiets, FieldStorage, FieldAllergens, FieldWinePairing, FieldWineTemperature,
	FieldWineRegion, FieldWineVintage, FieldWineVintageReason, FieldEquipment, FieldPresentation,
	FieldSeasonality, FieldCosts, FieldNutrition,
}

// nutrientScopes 必須完整的營養表範圍；每份的值可由總量推算
var nutrientScopes = []string{recipe.ScopePer100g, recipe.ScopeTotal}

// Analyze 每次重新計算缺少欄位，不保存狀態
func Analyze(r *recipe.Recipe) recipe.FieldSet {
	m := recipe.NewFieldSet()
	if r == nil {
		m.Add(Fields...)
		return m
	}

	check := func(field string, missing bool) {
		if missing {
			m.Add(field)
		}
	}
	empty := recipe.IsEmptyText

	check(FieldTitle, empty(r.Title))
	check(FieldCategory, empty(r.Category))
	check(FieldServings, r.Servings == nil || *r.Servings <= 0)
	check(FieldDifficulty, empty(r.Difficulty))
	check(FieldIngredients, len(r.Ingredients) == 0)
	check(FieldSteps, len(r.Steps) == 0)
	check(FieldTime, r.PrepTimeMin == nil && r.CookTimeMin == nil && r.TotalTimeMin == nil)
	check(FieldDiets, empty(r.DietText) && !r.DietFlags.Any())
	check(FieldStorage, empty(r.Conservazione))
	check(FieldAllergens, empty(r.AllergensText) && len(r.Allergens) == 0)
	check(FieldWinePairing, empty(r.VinoDescrizione) && empty(r.WinePairing))
	check(FieldWineTemperature, empty(r.VinoTemperaturaServizio))
	check(FieldWineRegion, empty(r.VinoRegione))
	check(FieldWineVintage, empty(r.VinoAnnata))
	check(FieldWineVintageReason, empty(r.VinoMotivoAnnata))
	check(FieldEquipment, empty(r.EquipmentText) && empty(r.EquipmentGeneric))
	check(FieldPresentation, empty(r.Presentazione))
	check(FieldSeasonality, empty(r.Stagionalita))
	check(FieldCosts, CostsMissing(r))
	check(FieldNutrition, NutritionMissing(r.Nutrition))

	m.Add(recipe.IngredientMarkers(r.Ingredients)...)
	return m
}

// CostsMissing 沒有成本列、沒有任何非零金額、任一列缺廢棄率，或任一總額為空或零
func CostsMissing(r *recipe.Recipe) bool {
	if len(r.CostLines) == 0 {
		return true
	}
	hasValue := false
	for _, row := range r.CostLines {
		if recipe.IsEmptyText(row.Scarto) {
			return true
		}
		for _, cell := range []string{row.PrezzoCalcolato, row.PrezzoKgUd, row.PrezzoAlimentoAcquisto} {
			if !recipe.IsMissingAmount(cell) {
				hasValue = true
			}
		}
	}
	if !hasValue {
		return true
	}
	return recipe.IsMissingAmount(r.SpesaTotaleRicetta) ||
		recipe.IsMissingAmount(r.SpesaTotaleAcquisto) ||
		recipe.IsMissingAmount(r.SpesaPerPorzione)
}

// NutritionMissing 100g 或總量範圍內任一營養素缺少或為零
func NutritionMissing(t recipe.NutritionTable) bool {
	for _, scope := range nutrientScopes {
		for _, key := range recipe.NutrientKeys {
			v, ok := t.Get(scope, key)
			if !ok || v == 0 {
				return true
			}
		}
	}
	return false
}
