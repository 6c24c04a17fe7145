package parser

import (
	"regexp"
	"strings"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

// 狀態機所在區段
type section int

const (
	sectionFront section = iota
	sectionIngredients
	sectionSteps
	sectionMeta
)

// metaPhrasePattern 模型常在步驟中插入的說明文字
var metaPhrasePattern = regexp.MustCompile(`(?i)(non\s+trovo|non\s+riesco|scrivo\s+con\s+contenuto\s+minimo|contenuto\s+minimo|quest[ei]\s+ingredienti\s+non\s+sono\s+presenti|porzioni\s*:\s*n/?d)`)

// liftMaxWords 從步驟中搬回食材時允許的最大字數
const liftMaxWords = 6

type textParser struct {
	r       *recipe.Recipe
	section section
	meta    string

	// OCR 常把 "112" / "g" / "Farina" 拆成三行，這裡暫存數量與單位
	pendingQty  *float64
	pendingUnit string

	sawIngredientsHeader bool
}

func parseText(src string) *recipe.Recipe {
	p := &textParser{r: recipe.New()}
	for _, raw := range strings.Split(src, "\n") {
		p.line(strings.TrimSpace(raw))
	}
	p.finish(src)
	return p.r
}

func (p *textParser) line(s string) {
	l := Classify(s)
	switch l.Class {
	case LineBlank:
		return
	case LineMetaHeader:
		p.enter(sectionMeta)
		p.meta = l.Label
		p.appendMeta(l.Rest)
		return
	case LineDietHeader:
		p.enter(sectionFront)
		p.r.DietText = l.Rest
		return
	case LineBreak:
		p.enter(sectionFront)
		return
	}

	if p.section == sectionMeta {
		if l.Class == LineText && !p.matchesFrontMatter(s) {
			p.appendMeta(s)
			return
		}
		p.enter(sectionFront)
	}

	if p.section == sectionFront {
		p.applyFrontMatter(s)
	}

	switch l.Class {
	case LineIngredientsHeader:
		p.enter(sectionIngredients)
		p.sawIngredientsHeader = true
		if l.Rest == "" {
			return
		}
		s = l.Rest
	case LineStepsHeader:
		p.enter(sectionSteps)
		if l.Rest == "" {
			return
		}
		s = l.Rest
	}

	switch p.section {
	case sectionIngredients:
		p.ingredient(s)
	case sectionSteps:
		if txt := recipe.CleanStepText(s); txt != "" {
			p.r.Steps = append(p.r.Steps, recipe.Step{Text: txt})
		}
	}
}

func (p *textParser) enter(s section) {
	p.section = s
	p.meta = ""
	p.pendingQty = nil
	p.pendingUnit = ""
}

func (p *textParser) matchesFrontMatter(s string) bool {
	for _, fr := range fieldRules {
		if fr.pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func (p *textParser) appendMeta(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	switch p.meta {
	case MetaStorage:
		p.r.Conservazione = appendLine(p.r.Conservazione, s)
	case MetaAllergens:
		p.r.AllergensText = appendLine(p.r.AllergensText, s)
	case MetaWine:
		p.r.VinoDescrizione = appendLine(p.r.VinoDescrizione, s)
	case MetaEquipment:
		p.r.EquipmentText = appendLine(p.r.EquipmentText, s)
	case MetaPresentation:
		p.r.Presentazione = appendLine(p.r.Presentazione, s)
	case MetaSeasonality:
		p.r.Stagionalita = appendLine(p.r.Stagionalita, s)
	}
}

// ingredient 食材區段內的一行，含跨行數量/單位的重組
func (p *textParser) ingredient(s string) {
	tok := ClassifyIngredient(s)
	switch tok.Kind {
	case TokenStepsHeader:
		p.enter(sectionSteps)
	case TokenQty:
		p.pendingQty = tok.Qty
	case TokenUnit:
		p.pendingUnit = tok.Unit
	case TokenQtyUnit:
		p.pendingQty, p.pendingUnit = tok.Qty, tok.Unit
	case TokenName:
		p.add(tok.Name, p.pendingQty, p.pendingUnit)
		p.pendingQty, p.pendingUnit = nil, ""
	case TokenToTaste, TokenIngredient:
		p.add(tok.Name, tok.Qty, tok.Unit)
	}
}

func (p *textParser) add(name string, qty *float64, unit string) {
	if name == "" {
		return
	}
	p.r.Ingredients = append(p.r.Ingredients, recipe.Ingredient{Name: name, Qty: qty, Unit: unit})
}

func (p *textParser) finish(src string) {
	r := p.r
	finishTimes(r)

	if r.Difficulty == "" {
		if m := difficultyAnywhere.FindStringSubmatch(src); m != nil && !isPlaceholder(m[1]) {
			r.Difficulty = units.Difficulty(m[1])
		}
	}
	if len(r.Ingredients) == 0 && !p.sawIngredientsHeader {
		liftIngredients(r)
	}

	r.Ingredients = dropNonIngredients(r.Ingredients)
	r.Steps = dropMetaPhrases(r.Steps)
	r.DietFlags = units.DietsFromText(r.DietText)
	r.WinePairing = r.VinoDescrizione
	r.EquipmentGeneric = r.EquipmentText
	r.IngredientsText = recipe.BuildIngredientsText(r.Ingredients)
	r.StepsText = recipe.BuildStepsText(r.Steps)
}

// liftIngredients 沒有食材標題時，把看起來像 "200 g farina" 的短步驟搬回食材
func liftIngredients(r *recipe.Recipe) {
	kept := r.Steps[:0]
	for _, st := range r.Steps {
		if len(strings.Fields(st.Text)) <= liftMaxWords {
			tok := ClassifyIngredient(st.Text)
			if (tok.Kind == TokenIngredient && tok.Unit != "") || tok.Kind == TokenToTaste {
				r.Ingredients = append(r.Ingredients, recipe.Ingredient{Name: tok.Name, Qty: tok.Qty, Unit: tok.Unit})
				continue
			}
		}
		kept = append(kept, st)
	}
	r.Steps = kept
}

func dropNonIngredients(in []recipe.Ingredient) []recipe.Ingredient {
	out := in[:0]
	for _, ing := range in {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" || IsNonIngredientLine(ing.Name) {
			continue
		}
		out = append(out, ing)
	}
	return out
}

func dropMetaPhrases(in []recipe.Step) []recipe.Step {
	out := in[:0]
	for _, st := range in {
		txt := strings.TrimSpace(st.Text)
		if txt == "" || metaPhrasePattern.MatchString(txt) {
			continue
		}
		out = append(out, recipe.Step{Text: txt})
	}
	return out
}

func appendLine(current, extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return current
	}
	if current == "" {
		return extra
	}
	return current + "\n" + extra
}
