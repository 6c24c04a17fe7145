package units

import "strings"

// 難度
const (
	DifficultyLow    = "low"
	DifficultyMedium = "medium"
	DifficultyHigh   = "high"
)

// Difficulty 將 "bassa"、"Media"、"difficile" 等轉為 low/medium/high；無法辨識時回傳原字串
func Difficulty(raw string) string {
	s := Fold(raw)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "bass") || strings.Contains(s, "facil") || strings.Contains(s, "easy") || s == "low":
		return DifficultyLow
	case strings.Contains(s, "medi") || strings.Contains(s, "intermed") || s == "medium":
		return DifficultyMedium
	case strings.Contains(s, "alt") || strings.Contains(s, "diffic") || strings.Contains(s, "hard") || s == "high":
		return DifficultyHigh
	}
	return strings.TrimSpace(raw)
}

// Diets 飲食標記
type Diets struct {
	Vegetarian  bool `json:"vegetarian"`
	Vegan       bool `json:"vegan"`
	GlutenFree  bool `json:"gluten_free"`
	LactoseFree bool `json:"lactose_free"`
}

// Any 是否有任一標記
func (d Diets) Any() bool {
	return d.Vegetarian || d.Vegan || d.GlutenFree || d.LactoseFree
}

// DietsFromText 從自由文字推斷飲食標記；純素隱含素食
func DietsFromText(text string) Diets {
	s := Fold(text)
	var d Diets
	if s == "" {
		return d
	}
	if strings.Contains(s, "vegan") {
		d.Vegan = true
	}
	if strings.Contains(s, "vegetar") {
		d.Vegetarian = true
	}
	if strings.Contains(s, "senza glutine") || strings.Contains(s, "gluten free") || strings.Contains(s, "gluten-free") {
		d.GlutenFree = true
	}
	if strings.Contains(s, "senza lattosio") || strings.Contains(s, "lactose free") || strings.Contains(s, "lactose-free") {
		d.LactoseFree = true
	}
	if d.Vegan {
		d.Vegetarian = true
	}
	return d
}
