package service

import (
	"strings"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/pkg/common"
)

// TruncationMarker 原文超過上限時附加的標記
const TruncationMarker = "\n...[TRONCATO]"

const systemPrompt = "Sei un assistente chef. Rispondi SOLO con un oggetto JSON valido, senza testo aggiuntivo."

// recipeSchema 回覆需符合的欄位形狀
const recipeSchema = `{"title":"string|null","category":"string|null","servings":0,"difficulty":"bassa|media|alta",` +
	`"prep_time_min":0,"cook_time_min":0,"total_time_min":0,"diet_text":"string|null",` +
	`"diet_flags":{"vegetarian":false,"vegan":false,"gluten_free":false,"lactose_free":false},` +
	`"conservazione":"string|null","allergens_text":"string|null","allergens_present":["string"],"allergens_traces":["string"],` +
	`"wine_pairing":"string|null","vino_temperatura_servizio":"string|null","vino_regione":"string|null",` +
	`"vino_annata":"string|null","vino_motivo_annata":"string|null",` +
	`"equipment_text":"string|null","attrezzature_specifiche":"string|null","attrezzature_generiche":"string|null",` +
	`"presentazione_impiattamento":"string|null","stagionalita":"string|null",` +
	`"ingredients":[{"name":"string","qty":0,"unit":"g|kg|ml|l|pz|cucchiai|cucchiaini|q.b."}],"steps":["string"],` +
	`"nutrition_table":{"100g":{"energia":0,"carboidrati_totali":0,"di_cui_zuccheri":0,"grassi_totali":0,"di_cui_saturi":0,"proteine_totali":0,"fibre":0,"sodio":0},` +
	`"totale":{"energia":0},"porzione":{"energia":0}},` +
	`"cost_lines":[{"ingrediente":"string","scarto":"string|null","peso_min_acquisto":"string|null","prezzo_kg_ud":"string|null",` +
	`"quantita_usata":"string|null","prezzo_alimento_acquisto":"string|null","prezzo_calcolato":"string|null"}],` +
	`"spesa_totale_acquisto":"string|null","spesa_totale_ricetta":"string|null","spesa_per_porzione":"string|null","fonte_prezzi":"string|null"}`

// BuildPrompt 組合補全提示：規則、欄位形狀、缺少欄位、現有記錄與截斷後的原文
func BuildPrompt(r *recipe.Recipe, source string, missing []string, maxSourceChars int) string {
	src := common.Truncate(strings.TrimSpace(source), maxSourceChars, TruncationMarker)

	current := "{}"
	if r != nil {
		if s, err := common.ToJSON(r); err == nil {
			current = s
		}
	}
	fields := "[]"
	if len(missing) > 0 {
		if s, err := common.ToJSON(missing); err == nil {
			fields = s
		}
	}

	var b strings.Builder
	b.WriteString("Completa una ricetta italiana.\n")
	b.WriteString("Compila SOLO i campi mancanti; non modificare i valori già presenti.\n")
	b.WriteString("Se Ingredienti/Procedimento non sono presenti nel testo, crea una versione plausibile coerente col titolo.\n")
	b.WriteString("Se mancano costi o valori nutrizionali, stima valori plausibili.\n")
	b.WriteString("Rispondi SOLO con un JSON valido secondo lo schema.\n")
	b.WriteString("SCHEMA: " + recipeSchema + "\n")
	b.WriteString("CAMPI MANCANTI: " + fields + "\n")
	b.WriteString("RICETTA ESISTENTE: " + current + "\n")
	b.WriteString("TESTO ORIGINALE:\n" + src + "\n")
	return b.String()
}
