package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

const pumpkinCake = `Titolo: Torta di zucca
Porzioni: 4
Difficoltà: Media
Categoria: Dolci
Tempo: preparazione 20 min, cottura 40 min
Diete: vegetariana
Ingredienti:
- 200 g farina
- Zucchero 100 g
- 2 uova
- sale q.b.
- Porzioni: 4
Procedimento:
1. Mescolare la farina con lo zucchero.
2. Aggiungere le uova.
3.
Conservazione: in frigo
per 2 giorni
Allergeni: glutine, uova
Valori Nutrizionali
Energia 350 kcal`

func TestParseStructuredText(t *testing.T) {
	r, missing := Parse(pumpkinCake)

	assert.Equal(t, "Torta di zucca", r.Title)
	assert.Equal(t, "Dolci", r.Category)
	require.NotNil(t, r.Servings)
	assert.Equal(t, 4, *r.Servings)
	assert.Equal(t, units.DifficultyMedium, r.Difficulty)

	require.NotNil(t, r.PrepTimeMin)
	require.NotNil(t, r.CookTimeMin)
	require.NotNil(t, r.TotalTimeMin)
	assert.Equal(t, 20, *r.PrepTimeMin)
	assert.Equal(t, 40, *r.CookTimeMin)
	assert.Equal(t, 60, *r.TotalTimeMin)

	assert.Equal(t, "vegetariana", r.DietText)
	assert.True(t, r.DietFlags.Vegetarian)
	assert.False(t, r.DietFlags.Vegan)

	require.Len(t, r.Ingredients, 4)
	assert.Equal(t, "farina", r.Ingredients[0].Name)
	assert.Equal(t, "Zucchero", r.Ingredients[1].Name)
	assert.Equal(t, "uova", r.Ingredients[2].Name)
	assert.Equal(t, "sale", r.Ingredients[3].Name)
	assert.Equal(t, units.ToTaste, r.Ingredients[3].Unit)

	require.Len(t, r.Steps, 2)
	assert.Equal(t, "Mescolare la farina con lo zucchero.", r.Steps[0].Text)

	assert.Equal(t, "in frigo\nper 2 giorni", r.Conservazione)
	assert.Equal(t, "glutine, uova", r.AllergensText)
	assert.Equal(t, "- 200 g farina\n- 100 g Zucchero\n- 2 uova\n- q.b. sale", r.IngredientsText)

	assert.Equal(t, []string{"unit:uova"}, missing.Sorted())
}

func TestParseSplitIngredientLines(t *testing.T) {
	r, missing := Parse("Ingredienti:\n200\ng\nFlour\nProcedimento:\n1. Mix")

	require.Len(t, r.Ingredients, 1)
	ing := r.Ingredients[0]
	assert.Equal(t, "Flour", ing.Name)
	require.NotNil(t, ing.Qty)
	assert.Equal(t, 200.0, *ing.Qty)
	assert.Equal(t, "g", ing.Unit)
	assert.Equal(t, DefaultTitle, r.Title)
	assert.Equal(t, []string{"servings"}, missing.Sorted())
}

func TestParseInlineHeaders(t *testing.T) {
	text := "Tempo di preparazione: 15 min\nMascarpone Ingredienti: 250 g mascarpone\n3 uova\nPreparazione: montare le uova con il mascarpone"
	r, _ := Parse(text)

	require.NotNil(t, r.PrepTimeMin)
	assert.Equal(t, 15, *r.PrepTimeMin)
	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, "mascarpone", r.Ingredients[0].Name)
	require.Len(t, r.Steps, 1)
	assert.Equal(t, "montare le uova con il mascarpone", r.Steps[0].Text)
}

func TestParseLiftsIngredientsFromSteps(t *testing.T) {
	text := "Procedimento:\n200 g farina\n100 g zucchero\nMescolare la farina con lo zucchero e cuocere in forno."
	r, missing := Parse(text)

	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, "zucchero", r.Ingredients[1].Name)
	require.Len(t, r.Steps, 1)
	assert.False(t, missing.Has("ingredients"))
}

func TestParseDropsMetaPhrases(t *testing.T) {
	r, _ := Parse("Procedimento:\n1. Non trovo il procedimento nel testo\n2. Cuocere la pasta")
	require.Len(t, r.Steps, 1)
	assert.Equal(t, "Cuocere la pasta", r.Steps[0].Text)
}

func TestParseEmptyText(t *testing.T) {
	r, missing := Parse("")
	assert.Equal(t, DefaultTitle, r.Title)
	assert.True(t, missing.Has("servings"))
	assert.True(t, missing.Has("ingredients"))
	assert.True(t, missing.Has("steps"))
}

const lasagnaPayload = `{
  "titolo": "Titolo: Lasagne | Lasagne",
  "porzioni": "4 persone",
  "difficolta": "alta",
  "ingredienti": "200 g farina\n2 uova\nsale q.b.",
  "procedimento": ["1. Impastare", "2. Stendere"],
  "tempo": "prep 30 min, cottura 45 min",
  "diete": "vegetariana",
  "vino": "Lambrusco",
  "attrezzature generiche": "- mattarello\n- teglia",
  "energia 100g": 250,
  "energia_totale": "1000",
  "ingredienti_dettaglio": "Ingrediente | Scarto | Peso | Prezzo kg | Quantita | Prezzo acquisto | Prezzo\nfarina | 0 | 1 kg | 0,90 | 200 g | 0,90 | 0,18",
  "vegetariano flag": "si",
  "unknown_key": 1
}`

func TestParsePayload(t *testing.T) {
	r, missing := Parse(lasagnaPayload)

	assert.Equal(t, "Lasagne", r.Title)
	require.NotNil(t, r.Servings)
	assert.Equal(t, 4, *r.Servings)
	assert.Equal(t, units.DifficultyHigh, r.Difficulty)

	require.Len(t, r.Ingredients, 3)
	assert.Equal(t, "farina", r.Ingredients[0].Name)
	require.Len(t, r.Steps, 2)
	assert.Equal(t, "Impastare", r.Steps[0].Text)

	require.NotNil(t, r.PrepTimeMin)
	require.NotNil(t, r.CookTimeMin)
	assert.Equal(t, 30, *r.PrepTimeMin)
	assert.Equal(t, 45, *r.CookTimeMin)

	assert.True(t, r.DietFlags.Vegetarian)
	assert.Equal(t, "Lambrusco", r.WinePairing)
	assert.Equal(t, "Lambrusco", r.VinoDescrizione)
	assert.Equal(t, "mattarello, teglia", r.EquipmentGeneric)
	assert.Equal(t, "mattarello, teglia", r.EquipmentText)

	v, ok := r.Nutrition.Get(recipe.ScopePer100g, "energia")
	require.True(t, ok)
	assert.Equal(t, 250.0, v)
	v, ok = r.Nutrition.Get(recipe.ScopeTotal, "energia")
	require.True(t, ok)
	assert.Equal(t, 1000.0, v)

	require.Len(t, r.CostLines, 1)
	assert.Equal(t, "farina", r.CostLines[0].Ingrediente)
	assert.Equal(t, "0", r.CostLines[0].Scarto)
	assert.Equal(t, "0,18", r.CostLines[0].PrezzoCalcolato)

	assert.Equal(t, []string{"unit:uova"}, missing.Sorted())
}

func TestParsePayloadIngredientObjects(t *testing.T) {
	obj := map[string]any{
		"ingredients": []any{
			map[string]any{"name": "Zucca", "qty": json.Number("500"), "unit": "grammi"},
			map[string]any{"ingrediente": "Porzioni: 4"},
		},
		"steps": []any{map[string]any{"text": "Tagliare la zucca"}, "2."},
		"cost_lines": []any{
			map[string]any{"ingrediente": "Zucca", "scarto": json.Number("0"), "prezzo_calcolato": "0"},
		},
	}
	r := ParsePayload(obj)

	assert.Empty(t, r.Title)
	require.Len(t, r.Ingredients, 1)
	assert.Equal(t, "g", r.Ingredients[0].Unit)
	require.Len(t, r.Steps, 1)
	assert.Nil(t, r.CostLines, "rows without any value are dropped")
}

func TestDecodePayload(t *testing.T) {
	obj, ok := DecodePayload("Ecco il JSON:\n```json\n{\"title\": \"Pesto\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "Pesto", obj["title"])

	obj, ok = DecodePayload("risposta: {title: \"Pesto\", servings: 2}")
	require.True(t, ok)
	assert.Equal(t, json.Number("2"), obj["servings"])

	_, ok = DecodePayload("Titolo: Pesto")
	assert.False(t, ok)
}
