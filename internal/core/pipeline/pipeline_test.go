package pipeline

import (
	"context"
	"errors"
	"testing"

	"recipe-extractor/internal/core/ai"
	"recipe-extractor/internal/core/analyzer"
	"recipe-extractor/internal/core/catalog"
	"recipe-extractor/internal/core/enrich"
	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/core/merge"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumpkinCake = `Titolo: Torta di zucca
Porzioni: 4
Difficoltà: Media
Ingredienti:
- 200 g farina
- 800 g zucca
- 2 pz uova
Procedimento:
1. Mescolare la farina con le uova.
2. Aggiungere la zucca e cuocere.`

type fakeExtractor struct {
	res   extract.Result
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, []string, string) (extract.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeCompleter struct {
	reply   string
	err     error
	calls   int
	missing [][]string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) CompleteMissing(_ context.Context, _ *recipe.Recipe, _ string, missing []string) (*ai.Completion, error) {
	f.calls++
	f.missing = append(f.missing, missing)
	if f.err != nil {
		return nil, f.err
	}
	patch, ok := merge.Decode(f.reply)
	if !ok {
		return nil, errors.New("bad reply")
	}
	return &ai.Completion{Patch: patch, Provider: "fake"}, nil
}

func testEnricher() *enrich.Enricher {
	prices := catalog.NewPriceCatalog([]catalog.PriceEntry{
		{Ingredient: "Farina 00", PurchaseQty: 1, PurchaseUnit: "kg", PricePerUnit: 1.20, Source: "listino"},
		{Ingredient: "Zucca", PurchaseQty: 1, PurchaseUnit: "kg", PricePerUnit: 2.50},
		{Ingredient: "Uova", PurchaseQty: 1, PurchaseUnit: "pz", PricePerUnit: 0.30},
	})
	return enrich.New(prices, nil)
}

func TestRunWithoutAI(t *testing.T) {
	o := New(nil, testEnricher(), nil, nil, Options{})
	res := o.Run(context.Background(), Document{Text: pumpkinCake, RunID: "run-1"})

	require.True(t, res.OK)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "run-1", res.Diagnostics.RunID)
	assert.Equal(t, "Torta di zucca", res.Recipe.Title)
	require.Len(t, res.Recipe.CostLines, 3)
	assert.Equal(t, "2.84", res.Recipe.SpesaTotaleRicetta)
	assert.Equal(t, 0, res.Diagnostics.Passes)
	assert.Contains(t, res.Missing, analyzer.FieldNutrition)
	assert.NotContains(t, res.Missing, analyzer.FieldServings)
}

func TestRunAIPasses(t *testing.T) {
	c := &fakeCompleter{reply: `{"servings": 8, "stagionalita": "autunno", "vino_regione": "Piemonte"}`}
	o := New(nil, testEnricher(), c, nil, Options{})

	res := o.Run(context.Background(), Document{Text: pumpkinCake})
	require.True(t, res.OK)
	assert.NotEmpty(t, res.Diagnostics.RunID)

	r := res.Recipe
	require.NotNil(t, r.Servings)
	assert.Equal(t, 4, *r.Servings, "populated scalars are never replaced")
	assert.Equal(t, "autunno", r.Stagionalita)
	assert.Equal(t, "Piemonte", r.VinoRegione)

	assert.Equal(t, 2, c.calls, "second pass changes nothing and stops the loop")
	assert.Equal(t, 2, res.Diagnostics.Passes)
	assert.Equal(t, "fake", res.Diagnostics.AIProvider)
	assert.Contains(t, res.Diagnostics.AIFields, "stagionalita")
	assert.Contains(t, c.missing[0], analyzer.FieldSeasonality)
	assert.NotContains(t, c.missing[1], analyzer.FieldSeasonality)
	assert.NotContains(t, res.Missing, analyzer.FieldSeasonality)
}

func TestRunAIFailureDegrades(t *testing.T) {
	c := &fakeCompleter{err: common.ErrAIServiceError.Wrap(errors.New("401 invalid key sk-or-v1-0123456789abcdef"))}
	o := New(nil, testEnricher(), c, nil, Options{MaxPasses: 3})

	res := o.Run(context.Background(), Document{Text: pumpkinCake})
	require.True(t, res.OK)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, 1, res.Diagnostics.Passes)
	assert.Contains(t, res.Diagnostics.AIError, "401 invalid key")
	assert.NotContains(t, res.Diagnostics.AIError, "0123456789abcdef")
}

func TestRunNoAIFlag(t *testing.T) {
	c := &fakeCompleter{reply: `{"stagionalita": "autunno"}`}
	o := New(nil, testEnricher(), c, nil, Options{})

	res := o.Run(context.Background(), Document{Text: pumpkinCake, NoAI: true})
	require.True(t, res.OK)
	assert.Zero(t, c.calls)
}

func TestRunExtractionFailure(t *testing.T) {
	ext := &fakeExtractor{err: common.ErrEmptyText.Wrap(errors.New("1 file(s) produced no text"))}
	c := &fakeCompleter{}
	o := New(ext, testEnricher(), c, nil, Options{})

	res := o.Run(context.Background(), Document{Paths: []string{"/tmp/scan.png"}})
	assert.False(t, res.OK)
	assert.Equal(t, StatusError, res.Status)
	assert.ErrorIs(t, res.Err, common.ErrEmptyText)
	assert.Nil(t, res.Recipe)
	assert.Equal(t, 1, ext.calls)
	assert.Zero(t, c.calls)
}

func TestRunNoSource(t *testing.T) {
	res := New(nil, nil, nil, nil, Options{}).Run(context.Background(), Document{})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, common.ErrInvalidRequest)
}

func TestRunTitleFromFileStem(t *testing.T) {
	ext := &fakeExtractor{res: extract.Result{
		Text:   `{"ingredients":[{"name":"farina","qty":200,"unit":"g"}]}`,
		Engine: "tesseract",
		Files:  []string{"torta_di-zucca.txt"},
	}}
	o := New(ext, nil, nil, nil, Options{})

	res := o.Run(context.Background(), Document{Paths: []string{"/tmp/torta_di-zucca.txt"}})
	require.True(t, res.OK)
	assert.Equal(t, "torta di zucca", res.Recipe.Title)
	assert.Equal(t, "tesseract", res.Diagnostics.Engine)
	assert.Equal(t, []string{"/tmp/torta_di-zucca.txt"}, res.Recipe.SourceFiles)
}

func TestTitleFromPaths(t *testing.T) {
	tests := []struct {
		paths []string
		name  string
		want  string
	}{
		{[]string{"/a/b/Risotto_alla-milanese.pdf"}, "", "Risotto alla milanese"},
		{nil, "pasta__fresca.docx", "pasta fresca"},
		{[]string{"/a/x.txt"}, "override.txt", "override"},
		{nil, "", "Ricetta"},
		{[]string{"/a/___.txt"}, "", "Ricetta"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromPaths(tt.paths, tt.name))
		})
	}
}
