package recipe

import "sort"

// 缺少欄位的標記前綴
const (
	QtyMarkerPrefix  = "qty:"
	UnitMarkerPrefix = "unit:"
)

// FieldSet 欄位識別碼集合（頂層欄位名或 qty:/unit: 標記）
type FieldSet map[string]struct{}

// NewFieldSet 建立集合
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	s.Add(names...)
	return s
}

// Add 加入欄位
func (s FieldSet) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
}

// Has 是否包含
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted 排序後的清單
func (s FieldSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IngredientMarkers 沒有數量（q.b. 除外）或有數量沒單位的食材標記
func IngredientMarkers(ings []Ingredient) []string {
	var out []string
	for _, ing := range ings {
		if ing.Name == "" {
			continue
		}
		switch {
		case ing.Qty == nil && ing.Unit != "q.b.":
			out = append(out, QtyMarkerPrefix+ing.Name)
		case ing.Qty != nil && ing.Unit == "":
			out = append(out, UnitMarkerPrefix+ing.Name)
		}
	}
	return out
}
