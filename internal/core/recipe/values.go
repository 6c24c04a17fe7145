package recipe

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholders = map[string]bool{
		"none": true, "null": true, "n/d": true, "n.d": true, "n.d.": true,
		"nd": true, "n.a": true, "n/a": true,
	}

	moneyNumberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// IsEmptyText 空白或佔位字（n/d、none…）
func IsEmptyText(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return true
	}
	return placeholders[strings.ToLower(t)]
}

// IsZeroLike 字面上為零的數值，例如 "0"、"0,00"、"0.00 €"
func IsZeroLike(s string) bool {
	v, ok := NumberFromText(s)
	if !ok {
		return false
	}
	return v == 0 && !strings.ContainsAny(stripNumber(s), "123456789")
}

// IsMissingAmount 金額或營養總量：空白、佔位字或零都視為缺少
func IsMissingAmount(s string) bool {
	return IsEmptyText(s) || IsZeroLike(s)
}

// NumberFromText 擷取文字中的第一個數字（去除 €、eur、逗號小數）
func NumberFromText(s string) (float64, bool) {
	t := stripNumber(s)
	if t == "" {
		return 0, false
	}
	m := moneyNumberPattern.FindString(t)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func stripNumber(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.NewReplacer("€", "", "eur", "", ",", ".").Replace(t)
	return strings.TrimSpace(t)
}

// FormatMoney 金額格式
func FormatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// NormalizeName 比對用的食材名稱：小寫並合併空白
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
