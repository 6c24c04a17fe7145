package recipe

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bulletPrefix    = regexp.MustCompile(`^\s*[\-\*•]+\s*`)
	numberingPrefix = regexp.MustCompile(`^\s*\d+[\.\)\-]+(?:\s+|$)`)
	bareNumbering   = regexp.MustCompile(`^\d+(?:[\.\)\-]+)?$`)
)

// FormatQty 數量顯示；零或 nil 回傳空字串
func FormatQty(q *float64) string {
	if q == nil || (*q > -1e-9 && *q < 1e-9) {
		return ""
	}
	return strconv.FormatFloat(*q, 'f', -1, 64)
}

// CleanStepText 去除項目符號與編號；只剩編號時回傳空字串
func CleanStepText(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	t = bulletPrefix.ReplaceAllString(t, "")
	t = numberingPrefix.ReplaceAllString(t, "")
	t = strings.TrimSpace(t)
	if t == "" || bareNumbering.MatchString(t) {
		return ""
	}
	return t
}

// BuildIngredientsText 產生 "- 200 g farina" 形式的食材清單
func BuildIngredientsText(ings []Ingredient) string {
	lines := make([]string, 0, len(ings))
	for _, ing := range ings {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		parts := make([]string, 0, 3)
		if q := FormatQty(ing.Qty); q != "" {
			parts = append(parts, q)
		}
		if u := strings.TrimSpace(ing.Unit); u != "" {
			parts = append(parts, u)
		}
		parts = append(parts, name)
		lines = append(lines, "- "+strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

// BuildStepsText 產生編號步驟文字
func BuildStepsText(steps []Step) string {
	lines := make([]string, 0, len(steps))
	for i, st := range steps {
		txt := CleanStepText(st.Text)
		if txt == "" {
			continue
		}
		lines = append(lines, strconv.Itoa(i+1)+". "+txt)
	}
	return strings.Join(lines, "\n")
}
