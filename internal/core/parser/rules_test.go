package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in        string
		wantRule  string
		wantClass LineClass
		wantLabel string
		wantRest  string
	}{
		{"", "blank", LineBlank, "", ""},
		{"Conservazione: in frigo", "meta_header", LineMetaHeader, MetaStorage, "in frigo"},
		{"Abbinamento vino: Barolo", "meta_header", LineMetaHeader, MetaWine, "Barolo"},
		{"Stagionalità: autunno", "meta_header", LineMetaHeader, MetaSeasonality, "autunno"},
		{"Adatto a: vegani", "diet_header", LineDietHeader, "", "vegani"},
		{"Valori Nutrizionali per 100g", "section_break", LineBreak, "", ""},
		{"Ingredienti:", "ingredients_header", LineIngredientsHeader, "", ""},
		{"Mascarpone Ingredienti: 250 g mascarpone", "ingredients_header", LineIngredientsHeader, "", "250 g mascarpone"},
		{"Procedimento: mescolare", "steps_header", LineStepsHeader, "", "mescolare"},
		{"Preparazione: 10 min Ingredienti: uova", "steps_header", LineStepsHeader, "", "10 min Ingredienti: uova"},
		{"Tempo di preparazione: 15 min", "text", LineText, "", "Tempo di preparazione: 15 min"},
		{"Mescolare bene", "text", LineText, "", "Mescolare bene"},
	}

	for _, tt := range tests {
		t.Run(tt.wantRule+"/"+tt.in, func(t *testing.T) {
			got := Classify(tt.in)
			assert.Equal(t, tt.wantRule, got.Rule)
			assert.Equal(t, tt.wantClass, got.Class)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.Equal(t, tt.wantRest, got.Rest)
		})
	}
}

func TestClassifyIngredient(t *testing.T) {
	tests := []struct {
		in       string
		wantRule string
		wantKind TokenKind
		wantName string
		wantQty  float64
		wantUnit string
	}{
		{"200", "qty_only", TokenQty, "", 200, ""},
		{"1/2", "qty_only", TokenQty, "", 0.5, ""},
		{"g", "unit_only", TokenUnit, "", 0, "g"},
		{"Gr.", "unit_only", TokenUnit, "", 0, "g"},
		{"250 ml", "qty_unit_only", TokenQtyUnit, "", 250, "ml"},
		{"250ml", "qty_unit_only", TokenQtyUnit, "", 250, "ml"},
		{"sale q.b.", "to_taste", TokenToTaste, "sale", 0, "q.b."},
		{"- 200 g di farina", "leading_qty", TokenIngredient, "farina", 200, "g"},
		{"1 1/2 cucchiaio d'olio", "leading_qty", TokenIngredient, "olio", 1.5, "cucchiai"},
		{"2 uova", "leading_qty", TokenIngredient, "uova", 2, ""},
		{"Zucchero 100 g", "trailing_qty", TokenIngredient, "Zucchero", 100, "g"},
		{"Burro - 50 g", "trailing_qty", TokenIngredient, "Burro", 50, "g"},
		{"Farina 00", "name_only", TokenName, "Farina 00", 0, ""},
		{"Flour", "name_only", TokenName, "Flour", 0, ""},
		{"Porzioni: 4", "non_ingredient", TokenSkip, "", 0, ""},
		{"12,50 €", "non_ingredient", TokenSkip, "", 0, ""},
		{"per 4 persone", "non_ingredient", TokenSkip, "", 0, ""},
		{"Procedimer", "fuzzy_steps_header", TokenStepsHeader, "", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ClassifyIngredient(tt.in)
			assert.Equal(t, tt.wantRule, got.Rule)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantUnit, got.Unit)
			if tt.wantQty == 0 {
				assert.Nil(t, got.Qty)
				return
			}
			require.NotNil(t, got.Qty)
			assert.InDelta(t, tt.wantQty, *got.Qty, 1e-9)
		})
	}
}

func TestIsNonIngredientLine(t *testing.T) {
	skip := []string{"Tempo: 30 min", "Difficoltà: media", "€", "Prezzi aggiornati a gennaio", "glutine, uova, tracce di frutta a guscio"}
	keep := []string{"farina 00", "200 g zucchero", "sale fino"}

	for _, s := range skip {
		assert.True(t, IsNonIngredientLine(s), s)
	}
	for _, s := range keep {
		assert.False(t, IsNonIngredientLine(s), s)
	}
}

func TestParseTimeBlock(t *testing.T) {
	prep, cook, total := ParseTimeBlock("Prep 20 min, cottura 1 h 10 min")
	require.NotNil(t, prep)
	require.NotNil(t, cook)
	assert.Equal(t, 20, *prep)
	assert.Equal(t, 70, *cook)
	assert.Nil(t, total)

	prep, cook, total = ParseTimeBlock("45 minuti")
	assert.Nil(t, prep)
	assert.Nil(t, cook)
	require.NotNil(t, total)
	assert.Equal(t, 45, *total)
}
