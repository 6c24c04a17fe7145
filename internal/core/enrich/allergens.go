package enrich

import (
	"fmt"
	"sort"
	"strings"

	"recipe-extractor/internal/core/catalog"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

// 飲食標記鍵
const (
	DietVegetarian  = "vegetarian"
	DietVegan       = "vegan"
	DietGlutenFree  = "gluten_free"
	DietLactoseFree = "lactose_free"
)

const glutenKey = "glutine"

var (
	nonVegetarianTerms = terms(
		"carne", "manzo", "vitello", "maiale", "pollo", "tacchino", "agnello", "coniglio", "anatra",
		"prosciutto", "speck", "salame", "salsiccia", "mortadella", "pancetta", "guanciale", "lardo", "bresaola",
		"tonno", "salmone", "acciuga", "acciughe", "alici", "merluzzo", "sgombro", "baccala", "pesce", "orata", "spigola",
		"brodo di carne", "dado di carne", "gelatina di carne", "colla di pesce",
		"cozze", "vongole", "calamari", "calamaro", "seppia", "seppie", "polpo", "ostriche",
		"gamberi", "gamberetti", "scampi", "aragosta", "astice", "granchio",
	)
	nonVeganTerms = terms(
		"uovo", "uova", "albume", "albumi", "tuorlo", "tuorli",
		"latte", "burro", "panna", "yogurt", "formaggio", "caseina", "siero di latte",
		"miele", "gelatina",
	)
	dairyTerms = terms(
		"latte", "burro", "panna", "yogurt", "formaggio", "ricotta", "mascarpone",
		"mozzarella", "parmigiano", "grana", "pecorino", "gorgonzola",
		"caseina", "siero di latte", "lattosio",
	)
	lactoseFreeClaims = terms("senza lattosio", "lactose free", "delattosato", "delattosata")
	glutenFreeClaims  = terms("senza glutine", "gluten free")
)

func terms(list ...string) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, catalog.AllergenText(t))
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// AllergenReport 過敏原與飲食標記的推斷結果，Reasons 以飲食標記鍵為索引
type AllergenReport struct {
	Present []string            `json:"present"`
	Traces  []string            `json:"traces"`
	Terms   map[string][]string `json:"detected_terms,omitempty"`
	Diets   units.Diets         `json:"diet_flags"`
	Reasons map[string][]string `json:"reasons"`
	Notes   []string            `json:"notes,omitempty"`
}

func (a *AllergenReport) term(key, term string) {
	for _, t := range a.Terms[key] {
		if t == term {
			return
		}
	}
	a.Terms[key] = append(a.Terms[key], term)
}

func (a *AllergenReport) reason(diet, format string, args ...any) {
	a.Reasons[diet] = append(a.Reasons[diet], fmt.Sprintf(format, args...))
}

// InferAllergens 依食材推斷過敏原，依食材與步驟中的「可能含有」句子推斷微量過敏原，並推斷飲食標記
func InferAllergens(c *catalog.AllergenCatalog, r *recipe.Recipe) AllergenReport {
	rep := AllergenReport{Terms: map[string][]string{}, Reasons: map[string][]string{}}
	if r == nil {
		return rep
	}

	var ingredients []string
	for _, ing := range r.Ingredients {
		if name := strings.TrimSpace(ing.Name); name != "" {
			ingredients = append(ingredients, name)
		}
	}
	var steps []string
	for _, st := range r.Steps {
		steps = append(steps, strings.Split(st.Text, "\n")...)
	}

	present := map[string]bool{}
	traces := map[string]bool{}
	var weakGluten []string
	for _, line := range ingredients {
		trace := c.IsTraceLine(line)
		for _, h := range c.Detect(line) {
			switch {
			case trace:
				if h.Weak {
					continue
				}
				traces[h.Key] = true
			case h.Weak:
				if h.Key == glutenKey {
					weakGluten = append(weakGluten, h.Term)
				}
			default:
				present[h.Key] = true
			}
			rep.term(h.Key, h.Term)
		}
	}
	traceLines := 0
	for _, line := range steps {
		if !c.IsTraceLine(line) {
			continue
		}
		traceLines++
		for _, h := range c.Detect(line) {
			if !h.Weak {
				traces[h.Key] = true
				rep.term(h.Key, h.Term)
			}
		}
	}
	if len(weakGluten) > 0 && !present[glutenKey] {
		rep.Notes = append(rep.Notes, fmt.Sprintf("termini generici associati al glutine (%s) senza farina o cereali espliciti", strings.Join(weakGluten, ", ")))
	}
	if traceLines > 0 && len(traces) == 0 {
		rep.Notes = append(rep.Notes, "frasi di tracce senza allergeni riconoscibili")
	}

	for _, key := range c.Keys() {
		if present[key] {
			rep.Present = append(rep.Present, key)
		}
		if traces[key] && !present[key] {
			rep.Traces = append(rep.Traces, key)
		}
	}

	inferDiets(&rep, r, ingredients, present[glutenKey], traces[glutenKey])
	return rep
}

// inferDiets 單一違反的食材即可讓標記為 false；每個標記都附上原因
func inferDiets(rep *AllergenReport, r *recipe.Recipe, ingredients []string, gluten, glutenTraces bool) {
	d := units.Diets{Vegetarian: true, Vegan: true, GlutenFree: !gluten, LactoseFree: true}

	if ing, term, ok := firstMatch(ingredients, nonVegetarianTerms); ok {
		d.Vegetarian, d.Vegan = false, false
		rep.reason(DietVegetarian, "ingrediente non vegetariano: %s (%s)", ing, term)
		rep.reason(DietVegan, "ingrediente di carne o pesce: %s (%s)", ing, term)
	} else if ing, term, ok := firstMatch(ingredients, nonVeganTerms); ok {
		d.Vegan = false
		rep.reason(DietVegan, "ingrediente di origine animale: %s (%s)", ing, term)
	}

	claims := append([]string{r.Title, r.DietText}, ingredients...)
	_, _, lactoseClaim := firstMatch(claims, lactoseFreeClaims)
	_, _, glutenClaim := firstMatch(claims, glutenFreeClaims)

	switch {
	case gluten && glutenClaim:
		rep.reason(DietGlutenFree, "indicato senza glutine ma con ingredienti che contengono glutine")
	case gluten:
		rep.reason(DietGlutenFree, "ingredienti con glutine: %s", strings.Join(rep.Terms[glutenKey], ", "))
	case glutenTraces:
		rep.reason(DietGlutenFree, "possibili tracce di glutine")
	}

	if ing, term, ok := firstMatch(ingredients, dairyTerms); ok {
		if lactoseClaim {
			rep.reason(DietLactoseFree, "indicato senza lattosio; le proteine del latte possono essere presenti")
		} else {
			d.LactoseFree = false
			rep.reason(DietLactoseFree, "derivato del latte: %s (%s)", ing, term)
		}
	}

	defaults := map[string]bool{
		DietVegetarian:  d.Vegetarian,
		DietVegan:       d.Vegan,
		DietGlutenFree:  d.GlutenFree,
		DietLactoseFree: d.LactoseFree,
	}
	for diet, ok := range defaults {
		if ok && len(rep.Reasons[diet]) == 0 {
			rep.reason(diet, "nessun ingrediente in contrasto")
		}
	}
	rep.Diets = d
}

func firstMatch(lines, list []string) (string, string, bool) {
	for _, line := range lines {
		text := catalog.AllergenText(line)
		if text == "" {
			continue
		}
		if term, ok := catalog.MatchTerm(text, list); ok {
			return line, term, true
		}
	}
	return "", "", false
}

// allergens 只補齊缺少的過敏原、微量過敏原與飲食標記
func (e *Enricher) allergens(r *recipe.Recipe, rep *Report) {
	allergensMissing := len(r.Allergens) == 0 && recipe.IsEmptyText(r.AllergensText)
	tracesMissing := len(r.Traces) == 0 && recipe.IsEmptyText(r.TracesText)
	dietsMissing := recipe.IsEmptyText(r.DietText) && !r.DietFlags.Any()
	if len(r.Ingredients) == 0 || !(allergensMissing || tracesMissing || dietsMissing) {
		return
	}

	ar := InferAllergens(e.allergenCat, r)
	rep.Allergens = &ar

	if allergensMissing && len(ar.Present) > 0 {
		r.Allergens = append([]string(nil), ar.Present...)
		r.AllergensText = e.labels(ar.Present)
		rep.Changed.Add("allergens")
	}
	if tracesMissing && len(ar.Traces) > 0 {
		r.Traces = append([]string(nil), ar.Traces...)
		r.TracesText = e.labels(ar.Traces)
		rep.Changed.Add("traces")
	}
	if dietsMissing && ar.Diets.Any() {
		r.DietFlags = ar.Diets
		rep.Changed.Add("diets")
	}
}

func (e *Enricher) labels(keys []string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = e.allergenCat.Label(k)
	}
	return strings.Join(out, ", ")
}
