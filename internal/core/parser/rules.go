package parser

import (
	"regexp"
	"strings"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

// LineClass 文字行分類
type LineClass int

const (
	LineText LineClass = iota
	LineBlank
	LineMetaHeader
	LineDietHeader
	LineBreak
	LineIngredientsHeader
	LineStepsHeader
)

// 附屬區塊名稱
const (
	MetaStorage      = "conservazione"
	MetaAllergens    = "allergeni"
	MetaWine         = "vino"
	MetaEquipment    = "attrezzature"
	MetaPresentation = "presentazione"
	MetaSeasonality  = "stagionalita"
)

// Line 分類結果；Rest 為標題後同一行的內容
type Line struct {
	Class LineClass
	Rule  string
	Label string
	Rest  string
}

// Rule 行分類規則：純函式判斷並擷取
type Rule struct {
	Name  string
	Match func(s string) (Line, bool)
}

var (
	metaHeaderPattern   = regexp.MustCompile(`(?i)^\s*(Conservazione|Allergeni|Abbinamento\s+vino|Attrezzature|Presentazione|Stagionalit(?:a|à))\s*:\s*(.*?)\s*$`)
	dietHeaderPattern   = regexp.MustCompile(`(?i)^\s*Adatto\s+a[^:]*:\s*(.+?)\s*$`)
	breakPattern        = regexp.MustCompile(`(?i)^\s*(Valori\s+Nutrizionali|Prezzo\s+del\s+Piatto)\b`)
	ingredientsAnywhere = regexp.MustCompile(`(?i)\bingredienti\s*:\s*`)
	stepsAnywhere       = regexp.MustCompile(`(?i)\b(procedimento|preparazione|metodo|instructions?|method)\s*:\s*`)
	timeLabelSuffix     = regexp.MustCompile(`(?i)\btempo(\s+di)?\s*$`)
)

// LineRules 依序套用，第一條命中的規則決定分類
var LineRules = []Rule{
	{Name: "blank", Match: func(s string) (Line, bool) {
		return Line{Class: LineBlank}, strings.TrimSpace(s) == ""
	}},
	{Name: "meta_header", Match: func(s string) (Line, bool) {
		m := metaHeaderPattern.FindStringSubmatch(s)
		if m == nil {
			return Line{}, false
		}
		return Line{Class: LineMetaHeader, Label: metaLabel(m[1]), Rest: m[2]}, true
	}},
	{Name: "diet_header", Match: func(s string) (Line, bool) {
		m := dietHeaderPattern.FindStringSubmatch(s)
		if m == nil {
			return Line{}, false
		}
		return Line{Class: LineDietHeader, Rest: m[1]}, true
	}},
	{Name: "section_break", Match: func(s string) (Line, bool) {
		return Line{Class: LineBreak}, breakPattern.MatchString(s)
	}},
	{Name: "ingredients_header", Match: func(s string) (Line, bool) {
		ing := ingredientsAnywhere.FindStringIndex(s)
		if ing == nil {
			return Line{}, false
		}
		if st := stepsHeaderIndex(s); st != nil && st[0] < ing[0] {
			return Line{}, false
		}
		return Line{Class: LineIngredientsHeader, Rest: strings.TrimSpace(s[ing[1]:])}, true
	}},
	{Name: "steps_header", Match: func(s string) (Line, bool) {
		st := stepsHeaderIndex(s)
		if st == nil {
			return Line{}, false
		}
		return Line{Class: LineStepsHeader, Rest: strings.TrimSpace(s[st[1]:])}, true
	}},
}

// Classify 回傳第一條命中規則的分類，否則為一般文字
func Classify(s string) Line {
	for _, r := range LineRules {
		if l, ok := r.Match(s); ok {
			l.Rule = r.Name
			return l
		}
	}
	return Line{Class: LineText, Rule: "text", Rest: strings.TrimSpace(s)}
}

// stepsHeaderIndex 找步驟標題；"Tempo di preparazione:" 不算
func stepsHeaderIndex(s string) []int {
	for _, loc := range stepsAnywhere.FindAllStringIndex(s, -1) {
		if !timeLabelSuffix.MatchString(s[:loc[0]]) {
			return loc
		}
	}
	return nil
}

func metaLabel(raw string) string {
	l := units.Fold(raw)
	switch {
	case strings.HasPrefix(l, "conservazione"):
		return MetaStorage
	case strings.HasPrefix(l, "allergeni"):
		return MetaAllergens
	case strings.HasPrefix(l, "abbinamento"):
		return MetaWine
	case strings.HasPrefix(l, "attrezzature"):
		return MetaEquipment
	case strings.HasPrefix(l, "presentazione"):
		return MetaPresentation
	}
	return MetaSeasonality
}

// TokenKind 食材區塊內單行的判讀結果
type TokenKind int

const (
	TokenSkip TokenKind = iota
	TokenStepsHeader
	TokenQty
	TokenUnit
	TokenQtyUnit
	TokenToTaste
	TokenIngredient
	TokenName
)

// Token 食材行的擷取結果
type Token struct {
	Kind TokenKind
	Rule string
	Name string
	Qty  *float64
	Unit string
}

// IngredientRule 食材行規則
type IngredientRule struct {
	Name  string
	Match func(s string) (Token, bool)
}

const qtyExpr = `(\d+\s+\d+/\d+|\d+\s*/\s*\d+|\d+(?:[.,]\d+)?\s*[½¼¾⅓⅔⅛]?|[½¼¾⅓⅔⅛])`

var (
	bulletPrefix      = regexp.MustCompile(`^\s*[\-•\*]+\s*`)
	numberPrefix      = regexp.MustCompile(`^\s*\d+[\.\)]\s+`)
	dashBeforeDigit   = regexp.MustCompile(`\s*[-–—]\s*(\d)`)
	qtyOnlyPattern    = regexp.MustCompile(`^` + qtyExpr + `$`)
	unitOnlyPattern   = regexp.MustCompile(`^[\p{L}\.]+$`)
	qtyUnitOnly       = regexp.MustCompile(`^` + qtyExpr + `\s*([\p{L}\.]+)$`)
	leadingQtyPattern = regexp.MustCompile(`^` + qtyExpr + `\s*(.*)$`)
	trailingQty       = regexp.MustCompile(`^(.+?)\s+` + qtyExpr + `\s*([\p{L}\.%]+)?$`)
	unitWordPattern   = regexp.MustCompile(`^([\p{L}\.']+)\s*(.*)$`)
	toTastePattern    = regexp.MustCompile(`(?i)\bq\.?\s?b\b\.?`)
	fuzzyStepsHeader  = regexp.MustCompile(`(?i)^(proced|prepar|metod|instruction|method)\p{L}*\s*:?$`)
	connectorPrefix   = regexp.MustCompile(`(?i)^(di|d')\s*`)
	moneyOnlyPattern  = regexp.MustCompile(`^[\d\.,]+\s*(?:€|eur|euro)$`)
	currencyOnly      = regexp.MustCompile(`^[€$]+$`)
	labelKeywords     = regexp.MustCompile(`\b(tempo|porzioni|difficolt\w*|allergen\w*|conservazion\w*|attrezzatur\w*|presentazion\w*|valori nutrizionali|prezz[oi]|costo|spesa|abbinamento)\b`)
	servingsPhrase    = regexp.MustCompile(`^per\s.*(porzion|persone)`)
)

var nonIngredientPrefixes = []string{
	"porzioni", "difficolt", "tempo", "procedimento", "preparazione", "metodo",
	"conservazione", "allergeni", "abbinamento vino", "attrezzature", "presentazione",
	"stagionalita", "prezzi", "valori nutrizionali", "prezzo del piatto", "spesa", "costo",
	"adatto a", "diete", "categoria", "titolo",
}

// IngredientRules 依序套用；name_only 永遠命中
var IngredientRules = []IngredientRule{
	{Name: "non_ingredient", Match: func(s string) (Token, bool) {
		return Token{Kind: TokenSkip}, IsNonIngredientLine(s)
	}},
	{Name: "fuzzy_steps_header", Match: func(s string) (Token, bool) {
		return Token{Kind: TokenStepsHeader}, fuzzyStepsHeader.MatchString(s)
	}},
	{Name: "qty_only", Match: func(s string) (Token, bool) {
		m := qtyOnlyPattern.FindStringSubmatch(s)
		if m == nil {
			return Token{}, false
		}
		q, ok := units.ParseQuantity(m[1])
		if !ok {
			return Token{}, false
		}
		return Token{Kind: TokenQty, Qty: &q}, true
	}},
	{Name: "unit_only", Match: func(s string) (Token, bool) {
		if !unitOnlyPattern.MatchString(s) {
			return Token{}, false
		}
		u := KnownUnit(s)
		return Token{Kind: TokenUnit, Unit: u}, u != ""
	}},
	{Name: "qty_unit_only", Match: func(s string) (Token, bool) {
		m := qtyUnitOnly.FindStringSubmatch(s)
		if m == nil {
			return Token{}, false
		}
		q, ok := units.ParseQuantity(m[1])
		u := KnownUnit(m[2])
		if !ok || u == "" {
			return Token{}, false
		}
		return Token{Kind: TokenQtyUnit, Qty: &q, Unit: u}, true
	}},
	{Name: "to_taste", Match: func(s string) (Token, bool) {
		if !toTastePattern.MatchString(s) {
			return Token{}, false
		}
		name := cleanName(toTastePattern.ReplaceAllString(s, ""))
		return Token{Kind: TokenToTaste, Name: name, Unit: units.ToTaste}, name != ""
	}},
	{Name: "leading_qty", Match: func(s string) (Token, bool) {
		m := leadingQtyPattern.FindStringSubmatch(dashBeforeDigit.ReplaceAllString(s, " $1"))
		if m == nil {
			return Token{}, false
		}
		q, ok := units.ParseQuantity(m[1])
		if !ok {
			return Token{}, false
		}
		unit, name := splitUnit(m[2])
		if name == "" {
			return Token{}, false
		}
		return Token{Kind: TokenIngredient, Name: name, Qty: &q, Unit: unit}, true
	}},
	{Name: "trailing_qty", Match: func(s string) (Token, bool) {
		m := trailingQty.FindStringSubmatch(dashBeforeDigit.ReplaceAllString(s, " $1"))
		if m == nil {
			return Token{}, false
		}
		q, ok := units.ParseQuantity(m[2])
		if !ok || q <= 0 {
			return Token{}, false
		}
		unit := ""
		if m[3] != "" {
			if unit = KnownUnit(m[3]); unit == "" {
				return Token{}, false
			}
		}
		name := cleanName(m[1])
		return Token{Kind: TokenIngredient, Name: name, Qty: &q, Unit: unit}, name != ""
	}},
	{Name: "name_only", Match: func(s string) (Token, bool) {
		name := cleanName(s)
		return Token{Kind: TokenName, Name: name}, name != ""
	}},
}

// ClassifyIngredient 去除項目符號後套用 IngredientRules
func ClassifyIngredient(line string) Token {
	s := CleanLinePrefix(line)
	if s == "" {
		return Token{Kind: TokenSkip, Rule: "blank"}
	}
	for _, r := range IngredientRules {
		if t, ok := r.Match(s); ok {
			t.Rule = r.Name
			return t
		}
	}
	return Token{Kind: TokenSkip, Rule: "none"}
}

// CleanLinePrefix 去除項目符號與 "1." 編號
func CleanLinePrefix(line string) string {
	s := strings.TrimSpace(line)
	s = bulletPrefix.ReplaceAllString(s, "")
	s = numberPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// KnownUnit 可辨識的單位回傳標準 token，否則空字串
func KnownUnit(raw string) string {
	u := units.Canonical(raw)
	if units.IsKnown(u) {
		return u
	}
	return ""
}

// splitUnit 拆出數量後的單位與名稱；第一個字不是單位時整段都是名稱
func splitUnit(rest string) (string, string) {
	rest = strings.TrimSpace(rest)
	if m := unitWordPattern.FindStringSubmatch(rest); m != nil {
		if u := KnownUnit(m[1]); u != "" {
			return u, cleanName(connectorPrefix.ReplaceAllString(m[2], ""))
		}
	}
	return "", cleanName(rest)
}

func cleanName(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), " -–—,;:."))
}

// IsNonIngredientLine 標題、價格、營養或欄位標籤等不屬於食材的行
func IsNonIngredientLine(line string) bool {
	low := units.Fold(line)
	if low == "" {
		return true
	}
	switch low {
	case "€", "eur", "euro":
		return true
	}
	if moneyOnlyPattern.MatchString(low) || currencyOnly.MatchString(low) || breakPattern.MatchString(low) {
		return true
	}

	namePart := low
	if m := leadingQtyPattern.FindStringSubmatch(low); m != nil {
		_, namePart = splitUnit(m[2])
	}
	namePart = recipe.NormalizeName(namePart)

	for _, p := range nonIngredientPrefixes {
		if strings.HasPrefix(namePart, p) && (strings.Contains(namePart, ":") || namePart == p) {
			return true
		}
	}
	if servingsPhrase.MatchString(namePart) {
		return true
	}
	if strings.Contains(namePart, ":") && labelKeywords.MatchString(namePart) {
		return true
	}
	if strings.HasPrefix(namePart, "prezzi aggiorn") || strings.Contains(namePart, "dati costo") {
		return true
	}
	if strings.Contains(namePart, ",") && !strings.ContainsAny(namePart, "0123456789") {
		for _, w := range []string{"allergeni", "tracce", "glutine"} {
			if strings.Contains(namePart, w) {
				return true
			}
		}
	}
	return false
}
