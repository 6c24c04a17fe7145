package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/units"
)

func testPrices() *PriceCatalog {
	return NewPriceCatalog([]PriceEntry{
		{Ingredient: "Farina 00", PurchaseQty: 1, PurchaseUnit: "kg", PricePerUnit: 0.9, Source: "listino"},
		{Ingredient: "Farina di mais tostato", PurchaseQty: 1, PurchaseUnit: "kg", PricePerUnit: 3.2},
		{Ingredient: "Zucchero semolato", PurchaseQty: 1, PurchaseUnit: "kilogrammi", PricePerUnit: 1.1},
		{Ingredient: "Latte intero", PurchaseQty: 1, PurchaseUnit: "litri", PricePerUnit: 1.4},
		{Ingredient: "Uova", PurchaseQty: 6, PurchaseUnit: "uova", PricePerUnit: 0.35},
		{Ingredient: "Pomodoro", PurchaseQty: 1, PurchaseUnit: "kg", PricePerUnit: 2.5},
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Farina 00 ", "farina 00"},
		{"Caffè [macinato]", "caffe"},
		{"Olio e.v.o.", "olio e v o"},
		{"Pomodori, pelati", "pomodori pelati"},
		{"d'oliva", "d'oliva"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b      string
		want      float64
		wantFuzzy bool
	}{
		{"pomodoro", "pomodoro", 1, true},
		{"pomodori", "pomodoro", 0.875, true},
		{"caffè", "caffe", 0.8, true},
		{"zucche", "zucca", 1 - 2.0/6, false},
		{"", "", 1, true},
		{"uova", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			got := similarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, tt.wantFuzzy, got >= FuzzyCutoff)
		})
	}
}

func TestFindTiers(t *testing.T) {
	c := testPrices()

	tests := []struct {
		name       string
		query      string
		wantKey    string
		wantConf   float64
		wantStatus Status
	}{
		{"exact", "farina 00", "farina 00", ConfidenceExact, StatusExact},
		{"exact after normalization", "FARINA-00", "farina 00", ConfidenceExact, StatusExact},
		{"fuzzy typo", "pomodori", "pomodoro", ConfidenceFuzzy, StatusFuzzy},
		{"substring shortest key", "farina", "farina 00", ConfidenceSubstring, StatusSubstring},
		{"query contains key", "uova fresche bio", "uova", ConfidenceSubstring, StatusSubstring},
		{"miss", "tartufo", "", 0, StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m := c.Find(tt.query)
			assert.Equal(t, tt.wantKey, m.Key)
			assert.Equal(t, tt.wantConf, m.Confidence)
			assert.Equal(t, tt.wantStatus, m.Status)
			assert.Equal(t, tt.query, m.Query)
		})
	}
}

func TestFindMonotonicity(t *testing.T) {
	c := testPrices()
	_, exact := c.Find("pomodoro")
	_, fuzzy := c.Find("pomodori")
	_, sub := c.Find("pomodoro ciliegino datterino")

	assert.Greater(t, exact.Confidence, fuzzy.Confidence)
	assert.Greater(t, fuzzy.Confidence, sub.Confidence)
}

func TestCostFor(t *testing.T) {
	c := testPrices()

	cost, err := c.CostFor("farina", 500, "g")
	require.NoError(t, err)
	assert.Equal(t, "Farina 00", cost.Entry.Ingredient)
	assert.InDelta(t, 0.5, cost.PurchaseQty, 1e-9)
	assert.InDelta(t, 0.45, cost.CostEUR, 1e-9)

	cost, err = c.CostFor("latte intero", 250, "ml")
	require.NoError(t, err)
	assert.InDelta(t, 0.35, cost.CostEUR, 1e-9)

	cost, err = c.CostFor("uova", 2, "pz")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cost.CostEUR, 1e-9)

	cost, err = c.CostFor("tartufo", 10, "g")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, cost.Status)
	assert.Zero(t, cost.CostEUR)

	cost, err = c.CostFor("farina 00", 2, "l")
	require.ErrorIs(t, err, units.ErrUnitMismatch)
	assert.Equal(t, StatusUnitMismatch, cost.Status)
	assert.Zero(t, cost.CostEUR)
}

func TestNutrientsFor(t *testing.T) {
	mono := 3.0
	c := NewNutritionCatalog([]NutritionEntry{
		{Name: "Farina 00", Kcal: 350, CarbsG: 75, ProteinsG: 11, SaltG: 0.01},
		{Name: "Uovo", Kcal: 140, FatsG: 10, MonoG: &mono, PieceG: 55},
		{Name: "Latte", Kcal: 64, DensityGML: 1.03},
	})

	n, err := c.NutrientsFor("farina", 200, "g")
	require.NoError(t, err)
	assert.Equal(t, 200.0, n.Grams)
	assert.InDelta(t, 700, n.Values["energia"], 1e-9)
	assert.InDelta(t, 150, n.Values["carboidrati_totali"], 1e-9)
	assert.InDelta(t, 8, n.Values["sodio"], 1e-9)
	_, hasMono := n.Values["monoinsaturi"]
	assert.False(t, hasMono)

	n, err = c.NutrientsFor("uovo", 2, "pz")
	require.NoError(t, err)
	assert.Equal(t, 110.0, n.Grams)
	assert.InDelta(t, 3.3, n.Values["monoinsaturi"], 1e-9)

	n, err = c.NutrientsFor("latte", 1, "l")
	require.NoError(t, err)
	assert.InDelta(t, 1030, n.Grams, 1e-9)

	_, err = c.NutrientsFor("farina", 1, "pz")
	assert.ErrorIs(t, err, units.ErrUnitMismatch)

	n, err = c.NutrientsFor("acqua di cocco", 100, "g")
	require.NoError(t, err)
	assert.False(t, n.Found())
}

func TestParseQtyUnit(t *testing.T) {
	q, u, ok := ParseQtyUnit("1 kg")
	require.True(t, ok)
	assert.Equal(t, 1.0, q)
	assert.Equal(t, "kg", u)

	q, u, ok = ParseQtyUnit("6 uova")
	require.True(t, ok)
	assert.Equal(t, 6.0, q)
	assert.Equal(t, "pz", u)

	_, _, ok = ParseQtyUnit("kg")
	assert.False(t, ok)
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"prices.json":   `[{"ingredient":"Farina 00","purchase_qty":1,"purchase_unit":"kg","price_per_unit":0.9}]`,
		"wrapped.json":  "\ufeff" + `{"items":[{"ingredient":"Farina 00","purchase_qty":1,"purchase_unit":"kg","price_per_unit":0.9}]}`,
		"prices.yaml":   "- ingredient: Farina 00\n  purchase_qty: 1\n  purchase_unit: kg\n  price_per_unit: 0.9\n",
		"prices.toml":   "[[items]]\ningredient = \"Farina 00\"\npurchase_qty = 1.0\npurchase_unit = \"kg\"\nprice_per_unit = 0.9\n",
		"combined.json": `[{"ingredient":"Farina 00","purchase_unit":"1 kg","price_per_unit":0.9}]`,
	}

	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			c, err := LoadPrices(path)
			require.NoError(t, err)
			require.Equal(t, 1, c.Len())

			e, m := c.Find("farina 00")
			assert.Equal(t, StatusExact, m.Status)
			assert.Equal(t, "kg", e.PurchaseUnit)
			assert.Equal(t, 1.0, e.PurchaseQty)
		})
	}
}

func TestLoadMissingAndInvalid(t *testing.T) {
	c, err := LoadNutrition(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o600))
	_, err = LoadPrices(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFindReportsCatalogName(t *testing.T) {
	c := testPrices()

	_, m := c.Find("zucchero")
	assert.Equal(t, "zucchero semolato", m.Key)
	assert.Equal(t, "Zucchero semolato", m.Name)

	_, m = c.Find("pomodori")
	assert.Equal(t, "Pomodoro", m.Name)

	_, m = c.Find("tartufo")
	assert.Empty(t, m.Name)
}

func TestDefaultAllergenCatalog(t *testing.T) {
	c := DefaultAllergenCatalog()
	require.Equal(t, 14, c.Len())
	assert.Equal(t, "Frutta a guscio", c.Label("frutta_a_guscio"))
	assert.Equal(t, "kiwi", c.Label("kiwi"))

	tests := []struct {
		line string
		want []AllergenHit
	}{
		{"200 g farina 00", []AllergenHit{{Key: "glutine", Term: "farina"}}},
		{"Pane (raffermo)", []AllergenHit{{Key: "glutine", Term: "pane", Weak: true}}},
		{"Farina di riso senza glutine", nil},
		{"Salsa di soia", []AllergenHit{{Key: "soia", Term: "salsa di soia"}}},
		{"Cipollotto", nil},
		{"Burro d'arachidi", []AllergenHit{{Key: "arachidi", Term: "arachidi"}, {Key: "latte", Term: "burro"}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Detect(tt.line))
		})
	}

	assert.True(t, c.IsTraceLine("Può contenere tracce di latte"))
	assert.True(t, c.IsTraceLine("May contain nuts"))
	assert.False(t, c.IsTraceLine("Tracciare una linea sulla pasta"))
}

func TestLoadAllergensOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allergeni.yaml")
	body := "- key: Sedano\n  label: Sedano e derivati\n  keywords: [sedano rapa]\n" +
		"  may_contain_phrases: [prodotto in un ambiente che lavora]\n" +
		"- key: kiwi\n  keywords: [kiwi]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := LoadAllergens(path)
	require.NoError(t, err)
	assert.Equal(t, 14, c.Len())
	assert.Equal(t, "Sedano e derivati", c.Label("sedano"))
	assert.Equal(t, []AllergenHit{{Key: "sedano", Term: "sedano rapa"}}, c.Detect("Sedano rapa"))
	assert.Empty(t, c.Detect("Gambo di sedano"))
	assert.Empty(t, c.Detect("Kiwi"))
	assert.True(t, c.IsTraceLine("Prodotto in un ambiente che lavora sedano"))

	c, err = LoadAllergens(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 14, c.Len())
}
