package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

func completeRecipe() *recipe.Recipe {
	r := recipe.New()
	r.Title = "Risotto alla zucca"
	r.Category = "Primi"
	r.Servings = recipe.Int(4)
	r.Difficulty = units.DifficultyMedium
	r.TotalTimeMin = recipe.Int(40)
	r.DietText = "vegetariana"
	r.Ingredients = []recipe.Ingredient{{Name: "riso", Qty: recipe.Float(320), Unit: "g"}}
	r.Steps = []recipe.Step{{Text: "Tostare il riso"}}
	r.Conservazione = "in frigo"
	r.AllergensText = "latte"
	r.WinePairing = "Soave"
	r.VinoTemperaturaServizio = "10 C"
	r.VinoRegione = "Veneto"
	r.VinoAnnata = "2022"
	r.VinoMotivoAnnata = "fresco"
	r.EquipmentText = "pentola"
	r.Presentazione = "piatto fondo"
	r.Stagionalita = "autunno"
	r.CostLines = []recipe.CostLine{{Ingrediente: "riso", Scarto: "0", PrezzoCalcolato: "1.20"}}
	r.SpesaTotaleRicetta = "1.20"
	r.SpesaTotaleAcquisto = "3.00"
	r.SpesaPerPorzione = "0.30"
	for _, scope := range []string{recipe.ScopePer100g, recipe.ScopeTotal} {
		for _, key := range recipe.NutrientKeys {
			r.Nutrition.Set(scope, key, 1)
		}
	}
	return r
}

func TestAnalyzeComplete(t *testing.T) {
	assert.Empty(t, Analyze(completeRecipe()).Sorted())
}

func TestAnalyzeEmptyServingsIngredientsEnergy(t *testing.T) {
	r := completeRecipe()
	r.Servings = nil
	r.Ingredients = nil
	r.Steps = nil
	r.Nutrition.Set(recipe.ScopeTotal, "energia", 0)

	m := Analyze(r)
	for _, f := range []string{FieldServings, FieldIngredients, FieldSteps, FieldNutrition} {
		assert.True(t, m.Has(f), f)
	}
}

func TestAnalyzeCompositeRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *recipe.Recipe)
		field  string
		want   bool
	}{
		{"time present via prep only", func(r *recipe.Recipe) { r.TotalTimeMin = nil; r.PrepTimeMin = recipe.Int(10) }, FieldTime, false},
		{"time all missing", func(r *recipe.Recipe) { r.TotalTimeMin = nil }, FieldTime, true},
		{"diets from flags only", func(r *recipe.Recipe) { r.DietText = ""; r.DietFlags.GlutenFree = true }, FieldDiets, false},
		{"diets placeholder", func(r *recipe.Recipe) { r.DietText = "n/d" }, FieldDiets, true},
		{"allergens list only", func(r *recipe.Recipe) { r.AllergensText = ""; r.Allergens = []string{"latte"} }, FieldAllergens, false},
		{"wine description mirror", func(r *recipe.Recipe) { r.WinePairing = ""; r.VinoDescrizione = "Soave" }, FieldWinePairing, false},
		{"equipment generic mirror", func(r *recipe.Recipe) { r.EquipmentText = ""; r.EquipmentGeneric = "pentola" }, FieldEquipment, false},
		{"costs without rows", func(r *recipe.Recipe) { r.CostLines = nil }, FieldCosts, true},
		{"costs row without scarto", func(r *recipe.Recipe) { r.CostLines[0].Scarto = "" }, FieldCosts, true},
		{"costs only zero values", func(r *recipe.Recipe) { r.CostLines[0].PrezzoCalcolato = "0,00" }, FieldCosts, true},
		{"costs zero total", func(r *recipe.Recipe) { r.SpesaPerPorzione = "0" }, FieldCosts, true},
		{"costs literal zero scarto is present", func(r *recipe.Recipe) { r.CostLines[0].Scarto = "0" }, FieldCosts, false},
		{"nutrition missing key", func(r *recipe.Recipe) { delete(r.Nutrition[recipe.ScopePer100g], "sodio") }, FieldNutrition, true},
		{"nutrition portion scope ignored", func(r *recipe.Recipe) { delete(r.Nutrition, recipe.ScopePerPortion) }, FieldNutrition, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := completeRecipe()
			tt.mutate(r)
			assert.Equal(t, tt.want, Analyze(r).Has(tt.field))
		})
	}
}

func TestAnalyzeIngredientMarkers(t *testing.T) {
	r := completeRecipe()
	r.Ingredients = append(r.Ingredients,
		recipe.Ingredient{Name: "brodo"},
		recipe.Ingredient{Name: "zucca", Qty: recipe.Float(1)},
	)
	m := Analyze(r)
	assert.True(t, m.Has("qty:brodo"))
	assert.True(t, m.Has("unit:zucca"))
}

func TestAnalyzeIsFresh(t *testing.T) {
	r := completeRecipe()
	r.Title = ""
	assert.True(t, Analyze(r).Has(FieldTitle))
	r.Title = "Risotto"
	assert.False(t, Analyze(r).Has(FieldTitle))
}
