package units

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	hoursPattern   = regexp.MustCompile(`(\d+)\s*(?:hours?|ore|ora|h)\b|(\d+)\s*h`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*(?:minutes?|minuti|minuto|min|m)\b`)
	numberPattern  = regexp.MustCompile(`\d+`)

	vulgarFractions = map[rune]float64{
		'½': 0.5, '¼': 0.25, '¾': 0.75, '⅓': 1.0 / 3, '⅔': 2.0 / 3, '⅛': 0.125,
	}

	timePlaceholders = map[string]bool{
		"n/d": true, "nd": true, "n.d.": true, "n.d": true, "n/a": true, "na": true,
	}
)

// ParseQuantity 解析數量：逗號小數、分數 1/2、帶分數 1 1/2、½ 等符號
func ParseQuantity(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0, false
	}

	var glyph float64
	s = strings.Map(func(r rune) rune {
		if v, ok := vulgarFractions[r]; ok {
			glyph += v
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" {
		return glyph, glyph > 0
	}

	fields := strings.Fields(s)
	if len(fields) == 2 && strings.Contains(fields[1], "/") {
		whole, ok1 := parseSimple(fields[0])
		frac, ok2 := parseSimple(fields[1])
		if ok1 && ok2 {
			return whole + frac + glyph, true
		}
		return 0, false
	}
	if len(fields) != 1 {
		return 0, false
	}
	v, ok := parseSimple(fields[0])
	if !ok {
		return 0, false
	}
	return v + glyph, true
}

func parseSimple(s string) (float64, bool) {
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 2 {
			return 0, false
		}
		num, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		den, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseMinutes 解析時間為分鐘數，例如 "1 h 30 min"、"1 ora e 20 minuti"、"2 hours, 15 minutes"、"45"
func ParseMinutes(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || timePlaceholders[s] {
		return 0, false
	}

	h, m := 0, 0
	if mh := hoursPattern.FindStringSubmatch(s); mh != nil {
		v := mh[1]
		if v == "" {
			v = mh[2]
		}
		h, _ = strconv.Atoi(v)
	}
	if mm := minutesPattern.FindStringSubmatch(s); mm != nil {
		m, _ = strconv.Atoi(mm[1])
	}
	if h > 0 || m > 0 {
		return h*60 + m, true
	}

	// 退回：第一個數字視為分鐘
	if n := numberPattern.FindString(s); n != "" {
		v, err := strconv.Atoi(n)
		if err == nil {
			return v, true
		}
	}
	return 0, false
}

// StripAccents 去除重音符號（NFD 分解後移除 Mn 類字元）
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold 小寫並去除重音，用於比對
func Fold(s string) string {
	return StripAccents(strings.ToLower(strings.TrimSpace(s)))
}
