// Package recipe 定義食譜記錄及欄位判斷工具
package recipe

import (
	"recipe-extractor/internal/core/units"
)

// 營養表範圍
const (
	ScopePer100g    = "100g"
	ScopeTotal      = "totale"
	ScopePerPortion = "porzione"
)

// Scopes 固定的營養表範圍
var Scopes = []string{ScopePer100g, ScopeTotal, ScopePerPortion}

// NutrientKeys 固定的營養素鍵
var NutrientKeys = []string{
	"energia",
	"carboidrati_totali",
	"di_cui_zuccheri",
	"grassi_totali",
	"di_cui_saturi",
	"monoinsaturi",
	"polinsaturi",
	"proteine_totali",
	"colesterolo",
	"fibre",
	"sodio",
}

// Ingredient 食材
type Ingredient struct {
	Name          string   `json:"name"`
	CanonicalName string   `json:"canonical_name,omitempty"`
	Qty           *float64 `json:"qty"`
	Unit          string   `json:"unit,omitempty"`
}

// Step 步驟
type Step struct {
	Text string `json:"text"`
}

// CostLine 成本表的一列
type CostLine struct {
	Ingrediente            string `json:"ingrediente"`
	Scarto                 string `json:"scarto"`
	PesoMinAcquisto        string `json:"peso_min_acquisto"`
	PrezzoKgUd             string `json:"prezzo_kg_ud"`
	QuantitaUsata          string `json:"quantita_usata"`
	PrezzoAlimentoAcquisto string `json:"prezzo_alimento_acquisto"`
	PrezzoCalcolato        string `json:"prezzo_calcolato"`
}

// NutritionTable scope -> nutrient -> 數值；不存在的鍵代表未計算
type NutritionTable map[string]map[string]float64

// Get 取得數值
func (t NutritionTable) Get(scope, key string) (float64, bool) {
	block, ok := t[scope]
	if !ok {
		return 0, false
	}
	v, ok := block[key]
	return v, ok
}

// Set 設定數值
func (t NutritionTable) Set(scope, key string, v float64) {
	if t[scope] == nil {
		t[scope] = make(map[string]float64)
	}
	t[scope][key] = v
}

// Recipe 食譜記錄
type Recipe struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	Servings   *int   `json:"servings"`
	Difficulty string `json:"difficulty"`

	PrepTimeMin  *int `json:"prep_time_min"`
	CookTimeMin  *int `json:"cook_time_min"`
	TotalTimeMin *int `json:"total_time_min"`

	DietText  string      `json:"diet_text"`
	DietFlags units.Diets `json:"diet_flags"`

	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`

	Allergens     []string `json:"allergens"`
	AllergensText string   `json:"allergens_text"`
	Traces        []string `json:"traces"`
	TracesText    string   `json:"traces_allergens"`

	EquipmentText         string `json:"equipment_text"`
	EquipmentSpecific     string `json:"attrezzature_specifiche"`
	EquipmentGeneric      string `json:"attrezzature_generiche"`
	EquipmentSimple       string `json:"attrezzature_semplici"`
	EquipmentProfessional string `json:"attrezzature_professionali"`
	EquipmentPastry       string `json:"attrezzature_pasticceria"`

	WinePairing             string `json:"wine_pairing"`
	VinoDescrizione         string `json:"vino_descrizione"`
	VinoTemperaturaServizio string `json:"vino_temperatura_servizio"`
	VinoRegione             string `json:"vino_regione"`
	VinoAnnata              string `json:"vino_annata"`
	VinoMotivoAnnata        string `json:"vino_motivo_annata"`

	Conservazione string `json:"conservazione"`
	Presentazione string `json:"presentazione_impiattamento"`
	Stagionalita  string `json:"stagionalita"`
	Notes         string `json:"note_errori"`

	Nutrition NutritionTable `json:"nutrition_table"`

	CostLines           []CostLine `json:"cost_lines"`
	SpesaTotaleRicetta  string     `json:"spesa_totale_ricetta"`
	SpesaTotaleAcquisto string     `json:"spesa_totale_acquisto"`
	SpesaPerPorzione    string     `json:"spesa_per_porzione"`
	FontePrezzi         string     `json:"fonte_prezzi"`

	IngredientsText string   `json:"ingredients_text"`
	StepsText       string   `json:"steps_text"`
	SourceFiles     []string `json:"source_files,omitempty"`
}

// New 建立空白食譜
func New() *Recipe {
	return &Recipe{Nutrition: NutritionTable{}}
}

// Clone 深拷貝
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	c := *r
	c.Servings = cloneInt(r.Servings)
	c.PrepTimeMin = cloneInt(r.PrepTimeMin)
	c.CookTimeMin = cloneInt(r.CookTimeMin)
	c.TotalTimeMin = cloneInt(r.TotalTimeMin)

	if r.Ingredients != nil {
		c.Ingredients = make([]Ingredient, len(r.Ingredients))
		for i, ing := range r.Ingredients {
			ing.Qty = cloneFloat(ing.Qty)
			c.Ingredients[i] = ing
		}
	}
	c.Steps = append([]Step(nil), r.Steps...)
	c.Allergens = append([]string(nil), r.Allergens...)
	c.Traces = append([]string(nil), r.Traces...)
	c.CostLines = append([]CostLine(nil), r.CostLines...)
	c.SourceFiles = append([]string(nil), r.SourceFiles...)

	if r.Nutrition != nil {
		c.Nutrition = make(NutritionTable, len(r.Nutrition))
		for scope, block := range r.Nutrition {
			nb := make(map[string]float64, len(block))
			for k, v := range block {
				nb[k] = v
			}
			c.Nutrition[scope] = nb
		}
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int 取指標
func Int(v int) *int { return &v }

// Float 取指標
func Float(v float64) *float64 { return &v }
