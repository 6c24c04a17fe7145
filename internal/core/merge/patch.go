// Package merge 將 AI 回傳的部分食譜套用到目前的食譜
package merge

import (
	"recipe-extractor/internal/core/parser"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

// Patch 部分更新；nil 代表未提供
type Patch struct {
	Title      *string
	Category   *string
	Servings   *int
	Difficulty *string

	PrepTimeMin  *int
	CookTimeMin  *int
	TotalTimeMin *int

	DietText  *string
	DietFlags *units.Diets

	Ingredients []recipe.Ingredient
	Steps       []recipe.Step
	Allergens   []string
	Traces      []string

	AllergensText *string
	TracesText    *string

	EquipmentText         *string
	EquipmentSpecific     *string
	EquipmentGeneric      *string
	EquipmentSimple       *string
	EquipmentProfessional *string
	EquipmentPastry       *string

	WinePairing             *string
	VinoDescrizione         *string
	VinoTemperaturaServizio *string
	VinoRegione             *string
	VinoAnnata              *string
	VinoMotivoAnnata        *string

	Conservazione *string
	Presentazione *string
	Stagionalita  *string
	Notes         *string

	Nutrition recipe.NutritionTable
	CostLines []recipe.CostLine

	SpesaTotaleRicetta  *string
	SpesaTotaleAcquisto *string
	SpesaPerPorzione    *string
	FontePrezzi         *string
}

// Decode 從模型回覆中取出 JSON 物件並逐欄位驗證；找不到物件時回傳 false
func Decode(text string) (*Patch, bool) {
	obj, ok := parser.DecodePayload(text)
	if !ok {
		return nil, false
	}
	return FromRecipe(parser.ParsePayload(obj)), true
}

// FromRecipe 以非空欄位建立 Patch
func FromRecipe(r *recipe.Recipe) *Patch {
	p := &Patch{}
	if r == nil {
		return p
	}
	str := func(s string) *string {
		if recipe.IsEmptyText(s) {
			return nil
		}
		return &s
	}

	p.Title = str(r.Title)
	p.Category = str(r.Category)
	p.Servings = r.Servings
	p.Difficulty = str(r.Difficulty)
	p.PrepTimeMin = r.PrepTimeMin
	p.CookTimeMin = r.CookTimeMin
	p.TotalTimeMin = r.TotalTimeMin
	p.DietText = str(r.DietText)
	if r.DietFlags.Any() {
		flags := r.DietFlags
		p.DietFlags = &flags
	}

	p.Ingredients = r.Ingredients
	p.Steps = r.Steps
	p.Allergens = r.Allergens
	p.Traces = r.Traces
	p.AllergensText = str(r.AllergensText)
	p.TracesText = str(r.TracesText)

	p.EquipmentText = str(r.EquipmentText)
	p.EquipmentSpecific = str(r.EquipmentSpecific)
	p.EquipmentGeneric = str(r.EquipmentGeneric)
	p.EquipmentSimple = str(r.EquipmentSimple)
	p.EquipmentProfessional = str(r.EquipmentProfessional)
	p.EquipmentPastry = str(r.EquipmentPastry)

	p.WinePairing = str(r.WinePairing)
	p.VinoDescrizione = str(r.VinoDescrizione)
	p.VinoTemperaturaServizio = str(r.VinoTemperaturaServizio)
	p.VinoRegione = str(r.VinoRegione)
	p.VinoAnnata = str(r.VinoAnnata)
	p.VinoMotivoAnnata = str(r.VinoMotivoAnnata)

	p.Conservazione = str(r.Conservazione)
	p.Presentazione = str(r.Presentazione)
	p.Stagionalita = str(r.Stagionalita)
	p.Notes = str(r.Notes)

	if len(r.Nutrition) > 0 {
		p.Nutrition = r.Nutrition
	}
	p.CostLines = r.CostLines

	p.SpesaTotaleRicetta = str(r.SpesaTotaleRicetta)
	p.SpesaTotaleAcquisto = str(r.SpesaTotaleAcquisto)
	p.SpesaPerPorzione = str(r.SpesaPerPorzione)
	p.FontePrezzi = str(r.FontePrezzi)
	return p
}

// Empty 是否沒有任何欄位
func (p *Patch) Empty() bool {
	if p == nil {
		return true
	}
	return len(p.Fields()) == 0
}

// Fields 有提供的欄位名稱
func (p *Patch) Fields() []string {
	if p == nil {
		return nil
	}
	var out []string
	for _, f := range textFields(recipe.New(), p) {
		if f.src != nil {
			out = append(out, f.name)
		}
	}
	for _, f := range intFields(recipe.New(), p) {
		if f.src != nil {
			out = append(out, f.name)
		}
	}
	if p.DietFlags != nil {
		out = append(out, "diet_flags")
	}
	lists := []struct {
		name string
		n    int
	}{
		{"ingredients", len(p.Ingredients)},
		{"steps", len(p.Steps)},
		{"allergens", len(p.Allergens)},
		{"traces_allergens", len(p.Traces)},
		{"nutrition_table", len(p.Nutrition)},
		{"cost_lines", len(p.CostLines)},
	}
	for _, l := range lists {
		if l.n > 0 {
			out = append(out, l.name)
		}
	}
	return out
}
