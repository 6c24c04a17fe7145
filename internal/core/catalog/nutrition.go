package catalog

import (
	"fmt"

	"recipe-extractor/internal/core/units"
)

// NutritionEntry 每 100g 營養值
type NutritionEntry struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	Kcal       float64  `json:"kcal" yaml:"kcal" toml:"kcal"`
	CarbsG     float64  `json:"carbs_g" yaml:"carbs_g" toml:"carbs_g"`
	SugarsG    float64  `json:"sugars_g" yaml:"sugars_g" toml:"sugars_g"`
	FatsG      float64  `json:"fats_g" yaml:"fats_g" toml:"fats_g"`
	SaturatesG float64  `json:"saturates_g" yaml:"saturates_g" toml:"saturates_g"`
	ProteinsG  float64  `json:"proteins_g" yaml:"proteins_g" toml:"proteins_g"`
	FiberG     float64  `json:"fiber_g" yaml:"fiber_g" toml:"fiber_g"`
	SaltG      float64  `json:"salt_g" yaml:"salt_g" toml:"salt_g"`
	MonoG      *float64 `json:"monounsaturated_g,omitempty" yaml:"monounsaturated_g,omitempty" toml:"monounsaturated_g,omitempty"`
	PolyG      *float64 `json:"polyunsaturated_g,omitempty" yaml:"polyunsaturated_g,omitempty" toml:"polyunsaturated_g,omitempty"`
	CholMg     *float64 `json:"cholesterol_mg,omitempty" yaml:"cholesterol_mg,omitempty" toml:"cholesterol_mg,omitempty"`
	PieceG     float64  `json:"piece_g,omitempty" yaml:"piece_g,omitempty" toml:"piece_g,omitempty"`
	DensityGML float64  `json:"density_g_ml,omitempty" yaml:"density_g_ml,omitempty" toml:"density_g_ml,omitempty"`
}

// SodiumMgPerSaltG 每公克鹽的鈉含量（mg）
const SodiumMgPerSaltG = 400.0

// Nutrients 指定份量的營養值；Values 以營養表鍵為索引
type Nutrients struct {
	Match
	Grams  float64            `json:"grams"`
	Values map[string]float64 `json:"values"`
}

// NutritionCatalog 營養參考表，建立後唯讀
type NutritionCatalog struct {
	idx *index[NutritionEntry]
}

// NewNutritionCatalog 建立營養表
func NewNutritionCatalog(entries []NutritionEntry) *NutritionCatalog {
	c := &NutritionCatalog{idx: newIndex[NutritionEntry]()}
	for _, e := range entries {
		c.idx.add(e.Name, e)
	}
	return c
}

// Len 項目數
func (c *NutritionCatalog) Len() int {
	if c == nil {
		return 0
	}
	return c.idx.len()
}

// Find 依名稱比對
func (c *NutritionCatalog) Find(name string) (NutritionEntry, Match) {
	if c == nil {
		return NutritionEntry{}, Match{Query: name, Status: StatusNotFound}
	}
	return c.idx.find(name)
}

// NutrientsFor 換算為公克後依 grams/100 計算營養值
func (c *NutritionCatalog) NutrientsFor(name string, qty float64, unit string) (Nutrients, error) {
	entry, m := c.Find(name)
	out := Nutrients{Match: m}
	if !m.Found() {
		return out, nil
	}

	grams, err := units.ToGrams(qty, unit, entry.PieceG, entry.DensityGML)
	if err != nil {
		out.Status = StatusUnitMismatch
		return out, fmt.Errorf("%s: %s: %w", name, unit, err)
	}
	out.Grams = grams
	out.Values = entry.scaled(grams / 100)
	return out, nil
}

func (e NutritionEntry) scaled(f float64) map[string]float64 {
	v := map[string]float64{
		"energia":            e.Kcal * f,
		"carboidrati_totali": e.CarbsG * f,
		"di_cui_zuccheri":    e.SugarsG * f,
		"grassi_totali":      e.FatsG * f,
		"di_cui_saturi":      e.SaturatesG * f,
		"proteine_totali":    e.ProteinsG * f,
		"fibre":              e.FiberG * f,
		"sodio":              e.SaltG * SodiumMgPerSaltG * f,
	}
	if e.MonoG != nil {
		v["monoinsaturi"] = *e.MonoG * f
	}
	if e.PolyG != nil {
		v["polinsaturi"] = *e.PolyG * f
	}
	if e.CholMg != nil {
		v["colesterolo"] = *e.CholMg * f
	}
	return v
}
