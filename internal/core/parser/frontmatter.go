package parser

import (
	"regexp"
	"strings"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/core/units"
)

// fieldRule 單值欄位規則；欄位已有值時不覆寫
type fieldRule struct {
	name    string
	pattern *regexp.Regexp
	apply   func(p *textParser, m []string)
}

var (
	difficultyAnywhere = regexp.MustCompile(`(?i)\bDifficolt(?:a|à|\x{FFFD})\s*:\s*([^\n]+)`)
	servingsTimeSplit  = regexp.MustCompile(`(?i)\bTempo\s*:`)

	prepLabel  = regexp.MustCompile(`(?:prep|preparazione)\s*[:\-]?\s*([0-9][^,;]*)`)
	cookLabel  = regexp.MustCompile(`(?:cottura|cook)\s*[:\-]?\s*([0-9][^,;]*)`)
	totalLabel = regexp.MustCompile(`(?:totale|complessivo|total)\s*[:\-]?\s*([0-9][^,;]*)`)
)

var fieldRules = []fieldRule{
	{"title", regexp.MustCompile(`(?i)^\s*Titolo\s*:\s*(.+?)\s*$`), func(p *textParser, m []string) {
		if p.r.Title == "" {
			p.r.Title = m[1]
		}
	}},
	{"servings", regexp.MustCompile(`(?i)^\s*Porzioni\s*:\s*(.+?)\s*$`), func(p *textParser, m []string) {
		v := strings.TrimSpace(servingsTimeSplit.Split(m[1], 2)[0])
		p.setServings(v)
	}},
	{"servings_inline", regexp.MustCompile(`(?i)\bPorzioni\s*:\s*([0-9]+(?:[.,][0-9]+)?)`), func(p *textParser, m []string) {
		p.setServings(m[1])
	}},
	{"servings_phrase", regexp.MustCompile(`(?i)\bper\s+([0-9]+)\s*(?:persone|porzion)`), func(p *textParser, m []string) {
		p.setServings(m[1])
	}},
	{"difficulty", regexp.MustCompile(`(?i)^\s*Difficolt(?:a|à|\x{FFFD})\s*:\s*(.+?)\s*$`), func(p *textParser, m []string) {
		if p.r.Difficulty == "" && !isPlaceholder(m[1]) {
			p.r.Difficulty = units.Difficulty(m[1])
		}
	}},
	{"category", regexp.MustCompile(`(?i)^\s*Categoria\s*:\s*(.+?)\s*$`), func(p *textParser, m []string) {
		if p.r.Category == "" {
			p.r.Category = m[1]
		}
	}},
	{"prep_time", regexp.MustCompile(`(?i)\bTempo\s*(?:di\s*)?preparazione\s*:\s*([0-9][^,;]*)`), func(p *textParser, m []string) {
		p.r.PrepTimeMin = firstMinutes(p.r.PrepTimeMin, m[1])
	}},
	{"cook_time", regexp.MustCompile(`(?i)\b(?:Tempo\s*(?:di\s*)?)?cottura\s*:\s*([0-9][^,;]*)`), func(p *textParser, m []string) {
		p.r.CookTimeMin = firstMinutes(p.r.CookTimeMin, m[1])
	}},
	{"total_time", regexp.MustCompile(`(?i)\bTempo\s*(?:totale|complessivo)\s*:\s*([0-9][^,;]*)`), func(p *textParser, m []string) {
		p.r.TotalTimeMin = firstMinutes(p.r.TotalTimeMin, m[1])
	}},
	{"diets", regexp.MustCompile(`(?i)^\s*Diete\s*:\s*(.+?)\s*$`), func(p *textParser, m []string) {
		if p.r.DietText == "" {
			p.r.DietText = m[1]
		}
	}},
	{"time_block", regexp.MustCompile(`(?i)\bTempo\s*:\s*(.+?)\s*$`), func(p *textParser, m []string) {
		prep, cook, total := ParseTimeBlock(m[1])
		if p.r.PrepTimeMin == nil {
			p.r.PrepTimeMin = prep
		}
		if p.r.CookTimeMin == nil {
			p.r.CookTimeMin = cook
		}
		if p.r.TotalTimeMin == nil {
			p.r.TotalTimeMin = total
		}
	}},
}

// applyFrontMatter 套用所有命中的欄位規則，回傳是否有任一規則命中
func (p *textParser) applyFrontMatter(s string) bool {
	hit := false
	for _, fr := range fieldRules {
		if m := fr.pattern.FindStringSubmatch(s); m != nil {
			fr.apply(p, m)
			hit = true
		}
	}
	return hit
}

func (p *textParser) setServings(v string) {
	if p.r.Servings != nil || isPlaceholder(v) {
		return
	}
	if n := toInt(v); n != nil && *n > 0 {
		p.r.Servings = n
	}
}

func firstMinutes(current *int, raw string) *int {
	if current != nil {
		return current
	}
	if m, ok := units.ParseMinutes(raw); ok {
		return &m
	}
	return nil
}

// ParseTimeBlock 解析 "prep 20 min, cottura 30 min" 這類合併時間；沒有標籤時視為總時間
func ParseTimeBlock(raw string) (prep, cook, total *int) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, nil, nil
	}
	extract := func(re *regexp.Regexp) *int {
		m := re.FindStringSubmatch(s)
		if m == nil {
			return nil
		}
		return firstMinutes(nil, m[1])
	}
	prep = extract(prepLabel)
	cook = extract(cookLabel)
	total = extract(totalLabel)
	if prep == nil && cook == nil && total == nil {
		total = firstMinutes(nil, raw)
	}
	return prep, cook, total
}

// finishTimes 沒有總時間時以準備加烹調時間補上
func finishTimes(r *recipe.Recipe) {
	if r.TotalTimeMin != nil {
		return
	}
	sum := 0
	if r.PrepTimeMin != nil {
		sum += *r.PrepTimeMin
	}
	if r.CookTimeMin != nil {
		sum += *r.CookTimeMin
	}
	if sum > 0 {
		r.TotalTimeMin = recipe.Int(sum)
	}
}
