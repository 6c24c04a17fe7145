package parser

import (
	"regexp"
	"strings"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

var (
	titleLabel     = regexp.MustCompile(`(?i)\bTitolo\s*:\s*`)
	costRowSplit   = regexp.MustCompile(`\t+|\s{2,}`)
	costHeaderLine = regexp.MustCompile(`(?i)^ingrediente\b`)
)

// costKeys 成本表欄位順序，字串列以 "|" 或 tab 分隔時依此對應
var costKeys = []string{
	"ingrediente", "scarto", "peso_min_acquisto", "prezzo_kg_ud",
	"quantita_usata", "prezzo_alimento_acquisto", "prezzo_calcolato",
}

// costValueKeys 判斷成本列是否有實際數值
var costValueKeys = []string{
	"prezzo_calcolato", "prezzo_kg_ud", "prezzo_alimento_acquisto", "prezzo_acquisto",
	"price_value", "cost", "scarto", "scarto_pct", "waste_pct",
}

// nutrientAliases 扁平欄位名稱（"energia 100g"、"energia_totale"…）
var nutrientAliases = map[string]string{
	"energia":            "energia",
	"carboidrati_totali": "carboidrati totali",
	"di_cui_zuccheri":    "di cui zuccheri",
	"grassi_totali":      "grassi totali",
	"di_cui_saturi":      "di cui saturi",
	"monoinsaturi":       "monoinsaturi",
	"polinsaturi":        "polinsaturi",
	"proteine_totali":    "proteine totali",
	"colesterolo":        "colesterolo totale",
	"fibre":              "fibre",
	"sodio":              "sodio",
}

// ParsePayload 逐欄位讀取 JSON 物件；不存在的欄位保持零值，未知鍵忽略
func ParsePayload(obj map[string]any) *recipe.Recipe {
	r := recipe.New()

	r.Title = payloadTitle(pickString(obj, "title", "titolo"))
	r.Category = pickString(obj, "category", "categoria")
	r.Servings = toInt(pick(obj, "servings", "porzioni", "portions"))
	if r.Servings != nil && *r.Servings <= 0 {
		r.Servings = nil
	}
	if d := pickString(obj, "difficulty", "difficolta", "difficoltà"); d != "" && !isPlaceholder(d) {
		r.Difficulty = units.Difficulty(d)
	}

	r.Ingredients = payloadIngredients(obj)
	r.Steps = payloadSteps(obj)

	r.PrepTimeMin = toMinutes(pick(obj, "prep_time", "prep_time_min", "tempo_preparazione"))
	r.CookTimeMin = toMinutes(pick(obj, "cook_time", "cook_time_min", "tempo_cottura"))
	r.TotalTimeMin = toMinutes(pick(obj, "total_time", "total_time_min", "tempo_totale"))
	if tempo := pickString(obj, "tempo_dettaglio", "tempo dettaglio", "tempo"); tempo != "" {
		prep, cook, total := ParseTimeBlock(tempo)
		if r.PrepTimeMin == nil {
			r.PrepTimeMin = prep
		}
		if r.CookTimeMin == nil {
			r.CookTimeMin = cook
		}
		if r.TotalTimeMin == nil {
			r.TotalTimeMin = total
		}
	}

	r.DietText = pickString(obj, "diets", "diete", "diet", "diet_text")
	r.DietFlags = payloadDiets(obj, r)

	r.Conservazione = pickString(obj, "conservazione", "storage", "conservazione_text")
	r.AllergensText = pickString(obj, "allergens_text", "allergeni", "allergeni elenco", "allergeni_elenco", "allergeni_text")
	r.Allergens = toList(pick(obj, "allergens", "allergens_present"))
	r.Traces = toList(pick(obj, "allergens_traces", "traces_allergens", "tracce_allergeni", "traces"))
	r.TracesText = strings.Join(r.Traces, ", ")

	r.VinoDescrizione = pickString(obj, "wine_pairing", "vino", "vino descrizione", "vino_descrizione")
	r.WinePairing = r.VinoDescrizione
	r.VinoTemperaturaServizio = pickString(obj, "vino temperatura servizio", "vino_temperatura_servizio", "temperatura servizio vino", "temperatura servizio")
	r.VinoRegione = pickString(obj, "vino regione", "vino_regione", "regione vino")
	r.VinoAnnata = pickString(obj, "vino annata", "vino_annata", "annata vino")
	r.VinoMotivoAnnata = pickString(obj, "vino motivo annata", "vino_motivo_annata", "motivo annata", "perche annata")

	payloadEquipment(obj, r)

	r.Presentazione = pickString(obj, "presentazione_impiattamento", "presentazione impiattamento", "presentazione", "plating")
	r.Stagionalita = pickString(obj, "stagionalita", "stagionalità", "stagione")
	r.Notes = pickString(obj, "note errori", "note_errori", "notes")

	r.Nutrition = payloadNutrition(obj)
	r.CostLines = payloadCostLines(obj)
	r.SpesaTotaleRicetta = pickString(obj, "spesa_totale_ricetta", "costo_totale_ricetta", "spesa totale ricetta")
	r.SpesaPerPorzione = pickString(obj, "spesa_per_porzione", "costo_per_porzione", "spesa per porzione")
	r.SpesaTotaleAcquisto = pickString(obj, "spesa_totale_acquisto", "spesa totale acquisto")
	r.FontePrezzi = pickString(obj, "fonte_prezzi", "prezzi_aggiornati_secondo", "prezzi aggiornati secondo")

	r.Ingredients = dropNonIngredients(r.Ingredients)
	r.IngredientsText = recipe.BuildIngredientsText(r.Ingredients)
	r.StepsText = recipe.BuildStepsText(r.Steps)
	return r
}

// payloadTitle 去除 "Titolo:" 前綴；"A | A | B" 取第一段
func payloadTitle(raw string) string {
	t := strings.TrimSpace(titleLabel.ReplaceAllString(raw, ""))
	if strings.Contains(t, "|") {
		for _, part := range strings.Split(t, "|") {
			if part = strings.TrimSpace(part); part != "" {
				return part
			}
		}
	}
	return t
}

func payloadIngredients(obj map[string]any) []recipe.Ingredient {
	var out []recipe.Ingredient
	var lines []string
	if list, ok := obj["ingredients"].([]any); ok {
		for _, item := range list {
			switch it := item.(type) {
			case map[string]any:
				out = append(out, recipe.Ingredient{
					Name: pickString(it, "name", "ingrediente"),
					Qty:  toFloat(pick(it, "qty", "quantita", "amount")),
					Unit: units.Canonical(pickString(it, "unit", "unita")),
				})
			case string:
				lines = append(lines, it)
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	if block := pick(obj, "ingredienti_blocco", "ingredienti"); block != nil {
		lines = append(lines, toLines(block)...)
	}
	return parseIngredientBlock(lines)
}

// parseIngredientBlock 以文字狀態機的食材區段處理區塊
func parseIngredientBlock(lines []string) []recipe.Ingredient {
	p := &textParser{r: recipe.New(), section: sectionIngredients}
	for _, ln := range lines {
		if s := strings.TrimSpace(ln); s != "" {
			p.ingredient(s)
		}
	}
	return p.r.Ingredients
}

func payloadSteps(obj map[string]any) []recipe.Step {
	var lines []string
	if list, ok := obj["steps"].([]any); ok {
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				lines = append(lines, pickString(m, "text", "step"))
				continue
			}
			lines = append(lines, toString(item))
		}
	}
	if len(nonEmpty(lines)) == 0 {
		lines = toLines(pick(obj, "procedimento_blocco", "procedimento"))
	}

	var out []recipe.Step
	for _, ln := range lines {
		if txt := recipe.CleanStepText(ln); txt != "" {
			out = append(out, recipe.Step{Text: txt})
		}
	}
	return dropMetaPhrases(out)
}

func payloadDiets(obj map[string]any, r *recipe.Recipe) units.Diets {
	var d units.Diets
	if flags, ok := obj["diet_flags"].(map[string]any); ok {
		d = units.Diets{
			Vegetarian:  !isFalsy(flags["vegetarian"]),
			Vegan:       !isFalsy(flags["vegan"]),
			GlutenFree:  !isFalsy(flags["gluten_free"]),
			LactoseFree: !isFalsy(flags["lactose_free"]),
		}
	} else {
		d = units.DietsFromText(r.DietText)
	}

	switch strings.ToLower(pickString(obj, "vegetariano flag", "vegetariano_flag")) {
	case "si", "sì", "yes", "true", "1":
		d.Vegetarian = true
		if r.DietText == "" {
			r.DietText = "vegetariana"
		}
	case "no", "false", "0":
		d.Vegetarian = false
	}
	return d
}

func payloadEquipment(obj map[string]any, r *recipe.Recipe) {
	specificRaw := pick(obj, "attrezzature specifiche", "attrezzature_specifiche")
	genericRaw := pick(obj, "attrezzature generiche", "attrezzature_generiche")
	simpleRaw := pick(obj, "attrezzature semplici", "attrezzature_semplici", "equipment_simple")
	professionalRaw := pick(obj, "attrezzature professionali", "attrezzature_professionali", "equipment_professional")
	pastryRaw := pick(obj, "attrezzature pasticceria", "attrezzature_pasticceria", "equipment_pasticceria")

	r.EquipmentText = pickString(obj, "equipment_text", "attrezzature", "equipment")
	r.EquipmentSpecific = blockToText(specificRaw)
	r.EquipmentGeneric = blockToText(genericRaw)
	if r.EquipmentGeneric != "" {
		r.EquipmentText = r.EquipmentGeneric
	}

	if simpleRaw == nil {
		simpleRaw = genericRaw
	}
	if professionalRaw == nil {
		professionalRaw = specificRaw
	}
	r.EquipmentSimple = blockToText(simpleRaw)
	r.EquipmentProfessional = blockToText(professionalRaw)
	r.EquipmentPastry = listToText(pastryRaw)

	if r.EquipmentGeneric == "" && r.EquipmentSimple != "" {
		r.EquipmentGeneric = r.EquipmentSimple
	}
	if r.EquipmentText == "" {
		r.EquipmentText = r.EquipmentGeneric
	}
	if r.EquipmentGeneric == "" {
		r.EquipmentGeneric = r.EquipmentText
	}
	if r.EquipmentSpecific == "" {
		r.EquipmentSpecific = r.EquipmentProfessional
	}
}

func payloadNutrition(obj map[string]any) recipe.NutritionTable {
	t := recipe.NutritionTable{}
	if table, ok := obj["nutrition_table"].(map[string]any); ok {
		for _, scope := range recipe.Scopes {
			block, ok := table[scope].(map[string]any)
			if !ok {
				continue
			}
			for _, key := range recipe.NutrientKeys {
				if v := toFloat(block[key]); v != nil {
					t.Set(scope, key, *v)
				}
			}
		}
		return t
	}

	for _, key := range recipe.NutrientKeys {
		spaced := nutrientAliases[key]
		if v := firstFloat(obj, spaced+" 100g", key+"_100g"); v != nil {
			t.Set(recipe.ScopePer100g, key, *v)
		}
		if v := firstFloat(obj, spaced+" totale", key+"_totale"); v != nil {
			t.Set(recipe.ScopeTotal, key, *v)
		}
	}
	return t
}

func firstFloat(obj map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if f := toFloat(v); f != nil {
				return f
			}
		}
	}
	return nil
}

func payloadCostLines(obj map[string]any) []recipe.CostLine {
	raw := obj["cost_lines"]
	if _, ok := raw.([]any); !ok {
		raw = obj["ingredienti_dettaglio"]
	}

	var rows []map[string]any
	var lines []string
	switch t := raw.(type) {
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, m)
				continue
			}
			lines = append(lines, toString(item))
		}
	case string:
		lines = strings.Split(t, "\n")
	}
	rows = append(rows, splitCostRows(lines)...)

	if !hasCostValues(rows) {
		return nil
	}
	out := make([]recipe.CostLine, 0, len(rows))
	for _, row := range rows {
		out = append(out, recipe.CostLine{
			Ingrediente:            pickString(row, "ingrediente", "ingredient", "name"),
			Scarto:                 pickRaw(row, "scarto", "scarto_pct", "waste_pct"),
			PesoMinAcquisto:        pickString(row, "peso_min_acquisto"),
			PrezzoKgUd:             pickString(row, "prezzo_kg_ud"),
			QuantitaUsata:          pickString(row, "quantita_usata"),
			PrezzoAlimentoAcquisto: pickString(row, "prezzo_alimento_acquisto", "prezzo_acquisto"),
			PrezzoCalcolato:        pickString(row, "prezzo_calcolato", "price_value", "cost"),
		})
	}
	return out
}

// pickRaw 與 pickString 相同，但保留字面上的 "0"（廢棄率 0 是有效值）
func pickRaw(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(toString(obj[k])); s != "" {
			return s
		}
	}
	return ""
}

func splitCostRows(lines []string) []map[string]any {
	var rows []map[string]any
	for _, raw := range lines {
		line := CleanLinePrefix(raw)
		if line == "" || costHeaderLine.MatchString(line) {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) == 1 {
			parts = costRowSplit.Split(line, -1)
		}
		parts = nonEmptyTrimmed(parts, len(parts) > 1 && strings.Contains(line, "|"))
		if len(parts) == 0 {
			continue
		}
		if len(parts) > len(costKeys) {
			last := strings.Join(parts[len(costKeys)-1:], " ")
			parts = append(parts[:len(costKeys)-1], last)
		}
		row := make(map[string]any, len(costKeys))
		for i, key := range costKeys {
			if i < len(parts) {
				row[key] = parts[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// nonEmptyTrimmed 以 "|" 分隔時保留空欄位以維持欄位位置
func nonEmptyTrimmed(parts []string, keepEmpty bool) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" && !keepEmpty {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasCostValues(rows []map[string]any) bool {
	for _, row := range rows {
		for _, key := range costValueKeys {
			s := strings.TrimSpace(toString(row[key]))
			if recipe.IsEmptyText(s) || recipe.IsZeroLike(s) {
				continue
			}
			return true
		}
	}
	return false
}

func nonEmpty(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
