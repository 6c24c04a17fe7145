package merge

import (
	"reflect"
	"regexp"
	"strings"

	"recipe-extractor/internal/core/recipe"
)

// Options 合併選項
type Options struct {
	// OverrideLists 以 Patch 的食材/步驟取代目前清單
	OverrideLists bool
}

var dietSeparators = regexp.MustCompile(`[;,\n]+`)

type textField struct {
	name string
	dst  *string
	src  *string
	// amount 為 true 時零值也視為缺少
	amount bool
}

type intField struct {
	name string
	dst  **int
	src  *int
}

func textFields(r *recipe.Recipe, p *Patch) []textField {
	return []textField{
		{name: "title", dst: &r.Title, src: p.Title},
		{name: "category", dst: &r.Category, src: p.Category},
		{name: "difficulty", dst: &r.Difficulty, src: p.Difficulty},
		{name: "diet_text", dst: &r.DietText, src: p.DietText},
		{name: "conservazione", dst: &r.Conservazione, src: p.Conservazione},
		{name: "allergens_text", dst: &r.AllergensText, src: p.AllergensText},
		{name: "traces_text", dst: &r.TracesText, src: p.TracesText},
		{name: "vino_descrizione", dst: &r.VinoDescrizione, src: p.VinoDescrizione},
		{name: "wine_pairing", dst: &r.WinePairing, src: p.WinePairing},
		{name: "vino_temperatura_servizio", dst: &r.VinoTemperaturaServizio, src: p.VinoTemperaturaServizio},
		{name: "vino_regione", dst: &r.VinoRegione, src: p.VinoRegione},
		{name: "vino_annata", dst: &r.VinoAnnata, src: p.VinoAnnata},
		{name: "vino_motivo_annata", dst: &r.VinoMotivoAnnata, src: p.VinoMotivoAnnata},
		{name: "equipment_text", dst: &r.EquipmentText, src: p.EquipmentText},
		{name: "attrezzature_specifiche", dst: &r.EquipmentSpecific, src: p.EquipmentSpecific},
		{name: "attrezzature_generiche", dst: &r.EquipmentGeneric, src: p.EquipmentGeneric},
		{name: "attrezzature_semplici", dst: &r.EquipmentSimple, src: p.EquipmentSimple},
		{name: "attrezzature_professionali", dst: &r.EquipmentProfessional, src: p.EquipmentProfessional},
		{name: "attrezzature_pasticceria", dst: &r.EquipmentPastry, src: p.EquipmentPastry},
		{name: "presentazione_impiattamento", dst: &r.Presentazione, src: p.Presentazione},
		{name: "stagionalita", dst: &r.Stagionalita, src: p.Stagionalita},
		{name: "note_errori", dst: &r.Notes, src: p.Notes},
		{name: "spesa_totale_ricetta", dst: &r.SpesaTotaleRicetta, src: p.SpesaTotaleRicetta, amount: true},
		{name: "spesa_totale_acquisto", dst: &r.SpesaTotaleAcquisto, src: p.SpesaTotaleAcquisto, amount: true},
		{name: "spesa_per_porzione", dst: &r.SpesaPerPorzione, src: p.SpesaPerPorzione, amount: true},
		{name: "fonte_prezzi", dst: &r.FontePrezzi, src: p.FontePrezzi},
	}
}

func intFields(r *recipe.Recipe, p *Patch) []intField {
	return []intField{
		{name: "servings", dst: &r.Servings, src: p.Servings},
		{name: "prep_time_min", dst: &r.PrepTimeMin, src: p.PrepTimeMin},
		{name: "cook_time_min", dst: &r.CookTimeMin, src: p.CookTimeMin},
		{name: "total_time_min", dst: &r.TotalTimeMin, src: p.TotalTimeMin},
	}
}

// Apply 將 Patch 套用到 r（就地修改），回傳實際變更的欄位；重複套用同一個 Patch 不會再有變更
func Apply(r *recipe.Recipe, p *Patch, opts Options) recipe.FieldSet {
	changed := recipe.NewFieldSet()
	if r == nil || p == nil {
		return changed
	}
	if r.Nutrition == nil {
		r.Nutrition = recipe.NutritionTable{}
	}

	for _, f := range textFields(r, p) {
		if f.src == nil {
			continue
		}
		if f.name == "diet_text" {
			if merged, ok := unionDiets(*f.dst, *f.src); ok {
				*f.dst = merged
				changed.Add(f.name)
			}
			continue
		}
		if setText(f.dst, *f.src, f.amount) {
			changed.Add(f.name)
		}
	}

	for _, f := range intFields(r, p) {
		if f.src == nil || *f.src <= 0 {
			continue
		}
		if *f.dst == nil || **f.dst <= 0 {
			v := *f.src
			*f.dst = &v
			changed.Add(f.name)
		}
	}

	if p.DietFlags != nil {
		flags := r.DietFlags
		flags.Vegetarian = flags.Vegetarian || p.DietFlags.Vegetarian || p.DietFlags.Vegan
		flags.Vegan = flags.Vegan || p.DietFlags.Vegan
		flags.GlutenFree = flags.GlutenFree || p.DietFlags.GlutenFree
		flags.LactoseFree = flags.LactoseFree || p.DietFlags.LactoseFree
		if flags != r.DietFlags {
			r.DietFlags = flags
			changed.Add("diet_flags")
		}
	}

	applyLists(r, p, opts, changed)

	if mergeNutrition(r.Nutrition, p.Nutrition) {
		changed.Add("nutrition_table")
	}
	if lines, ok := mergeCostLines(r.CostLines, p.CostLines); ok {
		r.CostLines = lines
		changed.Add("cost_lines")
	}

	syncMirrors(r)
	if changed.Has("ingredients") || changed.Has("steps") {
		r.IngredientsText = recipe.BuildIngredientsText(r.Ingredients)
		r.StepsText = recipe.BuildStepsText(r.Steps)
	}
	return changed
}

func setText(dst *string, src string, amount bool) bool {
	src = strings.TrimSpace(src)
	if recipe.IsEmptyText(src) || (amount && recipe.IsZeroLike(src)) {
		return false
	}
	missing := recipe.IsEmptyText(*dst)
	if amount {
		missing = recipe.IsMissingAmount(*dst)
	}
	if !missing || *dst == src {
		return false
	}
	*dst = src
	return true
}

func applyLists(r *recipe.Recipe, p *Patch, opts Options, changed recipe.FieldSet) {
	if ings := cleanIngredients(p.Ingredients); len(ings) > 0 {
		if len(r.Ingredients) == 0 || (opts.OverrideLists && !reflect.DeepEqual(r.Ingredients, ings)) {
			r.Ingredients = ings
			changed.Add("ingredients")
		}
	}
	if steps := cleanSteps(p.Steps); len(steps) > 0 {
		if len(r.Steps) == 0 || (opts.OverrideLists && !reflect.DeepEqual(r.Steps, steps)) {
			r.Steps = steps
			changed.Add("steps")
		}
	}
	if len(r.Allergens) == 0 && len(p.Allergens) > 0 {
		r.Allergens = append([]string(nil), p.Allergens...)
		changed.Add("allergens")
	}
	if len(r.Traces) == 0 && len(p.Traces) > 0 {
		r.Traces = append([]string(nil), p.Traces...)
		changed.Add("traces_allergens")
	}
}

func cleanIngredients(in []recipe.Ingredient) []recipe.Ingredient {
	var out []recipe.Ingredient
	for _, ing := range in {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			continue
		}
		if ing.Qty != nil {
			q := *ing.Qty
			ing.Qty = &q
		}
		out = append(out, ing)
	}
	return out
}

func cleanSteps(in []recipe.Step) []recipe.Step {
	var out []recipe.Step
	for _, st := range in {
		if txt := recipe.CleanStepText(st.Text); txt != "" {
			out = append(out, recipe.Step{Text: txt})
		}
	}
	return out
}

// unionDiets 合併飲食描述，不分大小寫去重並保留首次出現的寫法；
// incoming 沒有新項目時原樣回傳 existing 與 false
func unionDiets(existing, incoming string) (string, bool) {
	base := existing
	if recipe.IsEmptyText(base) {
		base = ""
	}
	seen := make(map[string]bool)
	var items []string
	added := false
	for i, s := range []string{base, incoming} {
		for _, part := range dietSeparators.Split(s, -1) {
			part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "-"))
			key := strings.ToLower(part)
			if part == "" || seen[key] {
				continue
			}
			seen[key] = true
			items = append(items, part)
			if i == 1 {
				added = true
			}
		}
	}
	if !added {
		return existing, false
	}
	return strings.Join(items, ", "), true
}

// mergeNutrition 逐格補上缺少或為零的數值
func mergeNutrition(dst, src recipe.NutritionTable) bool {
	updated := false
	for _, scope := range recipe.Scopes {
		for key, v := range src[scope] {
			if v == 0 {
				continue
			}
			if cur, ok := dst.Get(scope, key); ok && cur != 0 {
				continue
			}
			dst.Set(scope, key, v)
			updated = true
		}
	}
	return updated
}

// mergeCostLines 依正規化名稱逐列合併；找不到時使用第一個無名稱的列，否則附加
func mergeCostLines(dst, src []recipe.CostLine) ([]recipe.CostLine, bool) {
	if len(src) == 0 {
		return dst, false
	}
	if len(dst) == 0 {
		return append([]recipe.CostLine(nil), src...), true
	}

	out := append([]recipe.CostLine(nil), dst...)
	byName := make(map[string]int, len(out))
	for i, row := range out {
		key := recipe.NormalizeName(row.Ingrediente)
		if _, ok := byName[key]; key != "" && !ok {
			byName[key] = i
		}
	}

	updated := false
	for _, row := range src {
		idx := -1
		if key := recipe.NormalizeName(row.Ingrediente); key != "" {
			if i, ok := byName[key]; ok {
				idx = i
			}
		}
		if idx < 0 {
			for i, cur := range out {
				if recipe.NormalizeName(cur.Ingrediente) == "" {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			out = append(out, row)
			if key := recipe.NormalizeName(row.Ingrediente); key != "" {
				byName[key] = len(out) - 1
			}
			updated = true
			continue
		}
		if mergeCostRow(&out[idx], row) {
			updated = true
			if key := recipe.NormalizeName(out[idx].Ingrediente); key != "" {
				if _, ok := byName[key]; !ok {
					byName[key] = idx
				}
			}
		}
	}
	return out, updated
}

// mergeCostRow 保留非缺少的格子；廢棄率接受字面上的零，且目前為零時也會被覆蓋
func mergeCostRow(dst *recipe.CostLine, src recipe.CostLine) bool {
	cells := []struct {
		dst   *string
		src   string
		waste bool
	}{
		{&dst.Ingrediente, src.Ingrediente, false},
		{&dst.Scarto, src.Scarto, true},
		{&dst.PesoMinAcquisto, src.PesoMinAcquisto, false},
		{&dst.PrezzoKgUd, src.PrezzoKgUd, false},
		{&dst.QuantitaUsata, src.QuantitaUsata, false},
		{&dst.PrezzoAlimentoAcquisto, src.PrezzoAlimentoAcquisto, false},
		{&dst.PrezzoCalcolato, src.PrezzoCalcolato, false},
	}
	updated := false
	for _, c := range cells {
		v := strings.TrimSpace(c.src)
		if recipe.IsEmptyText(v) || *c.dst == v {
			continue
		}
		if c.waste {
			if recipe.IsMissingAmount(*c.dst) && !(recipe.IsZeroLike(v) && recipe.IsZeroLike(*c.dst)) {
				*c.dst = v
				updated = true
			}
			continue
		}
		if recipe.IsZeroLike(v) || !recipe.IsMissingAmount(*c.dst) {
			continue
		}
		*c.dst = v
		updated = true
	}
	return updated
}

// syncMirrors 同步成對欄位
func syncMirrors(r *recipe.Recipe) {
	pairs := [][2]*string{
		{&r.WinePairing, &r.VinoDescrizione},
		{&r.EquipmentText, &r.EquipmentGeneric},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		switch {
		case recipe.IsEmptyText(*a) && !recipe.IsEmptyText(*b):
			*a = *b
		case recipe.IsEmptyText(*b) && !recipe.IsEmptyText(*a):
			*b = *a
		}
	}
}
