package catalog

import "strings"

// 比對信心值
const (
	ConfidenceExact     = 1.0
	ConfidenceFuzzy     = 0.9
	ConfidenceSubstring = 0.75

	// FuzzyCutoff 模糊比對最低相似度
	FuzzyCutoff = 0.8
)

// Status 比對結果狀態
type Status string

const (
	StatusExact        Status = "exact"
	StatusFuzzy        Status = "fuzzy"
	StatusSubstring    Status = "substring"
	StatusNotFound     Status = "not_found"
	StatusUnitMismatch Status = "unit_mismatch"
)

// Match 比對結果；未命中時 Key 為空且 Query 保留原始名稱；Name 為參考表中的原始名稱
type Match struct {
	Query      string  `json:"query"`
	Key        string  `json:"key,omitempty"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
	Status     Status  `json:"status"`
}

// Found 是否命中
func (m Match) Found() bool {
	return m.Key != ""
}

// index 依插入順序保存正規化鍵；重複鍵以後者為準
type index[T any] struct {
	keys  []string
	byKey map[string]T
	names map[string]string
}

func newIndex[T any]() *index[T] {
	return &index[T]{byKey: make(map[string]T), names: make(map[string]string)}
}

func (ix *index[T]) add(name string, v T) {
	key := Normalize(name)
	if key == "" {
		return
	}
	if _, exists := ix.byKey[key]; !exists {
		ix.keys = append(ix.keys, key)
	}
	ix.byKey[key] = v
	ix.names[key] = strings.Join(strings.Fields(name), " ")
}

func (ix *index[T]) len() int {
	return len(ix.keys)
}

// find 三層比對：完全相同、模糊、子字串（偏好最短的鍵）
func (ix *index[T]) find(name string) (T, Match) {
	var zero T
	m := Match{Query: name, Status: StatusNotFound}
	key := Normalize(name)
	if key == "" {
		return zero, m
	}

	if v, ok := ix.byKey[key]; ok {
		m.Key, m.Name, m.Confidence, m.Status = key, ix.names[key], ConfidenceExact, StatusExact
		return v, m
	}

	best, bestScore := "", 0.0
	for _, k := range ix.keys {
		if s := similarity(key, k); s >= FuzzyCutoff && s > bestScore {
			best, bestScore = k, s
		}
	}
	if best != "" {
		m.Key, m.Name, m.Confidence, m.Status = best, ix.names[best], ConfidenceFuzzy, StatusFuzzy
		return ix.byKey[best], m
	}

	bestLen := -1
	for _, k := range ix.keys {
		if !strings.Contains(k, key) && !strings.Contains(key, k) {
			continue
		}
		if n := len([]rune(k)); bestLen < 0 || n < bestLen {
			best, bestLen = k, n
		}
	}
	if best != "" {
		m.Key, m.Name, m.Confidence, m.Status = best, ix.names[best], ConfidenceSubstring, StatusSubstring
		return ix.byKey[best], m
	}
	return zero, m
}
