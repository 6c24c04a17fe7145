package catalog

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"recipe-extractor/internal/pkg/common"
)

//go:embed allergens.yaml
var defaultAllergens []byte

// DefaultTracePhrases 表示「可能含有」的片語，與參考表的 may_contain_phrases 合併
var DefaultTracePhrases = []string{
	"tracce", "puo contenere", "may contain", "traces of", "in uno stabilimento che utilizza",
}

var parenPattern = regexp.MustCompile(`\([^)]*\)`)

// AllergenEntry 一種過敏原的關鍵字
type AllergenEntry struct {
	Key        string   `json:"key" yaml:"key" toml:"key"`
	Label      string   `json:"label" yaml:"label" toml:"label"`
	Keywords   []string `json:"keywords" yaml:"keywords" toml:"keywords"`
	Weak       []string `json:"weak,omitempty" yaml:"weak,omitempty" toml:"weak,omitempty"`
	FreeFrom   []string `json:"free_from,omitempty" yaml:"free_from,omitempty" toml:"free_from,omitempty"`
	MayContain []string `json:"may_contain_phrases,omitempty" yaml:"may_contain_phrases,omitempty" toml:"may_contain_phrases,omitempty"`
}

// AllergenHit 一行中命中的關鍵字
type AllergenHit struct {
	Key  string `json:"key"`
	Term string `json:"term"`
	Weak bool   `json:"weak,omitempty"`
}

type allergenTerms struct {
	entry    AllergenEntry
	strong   []string
	weak     []string
	freeFrom []string
}

// AllergenCatalog 過敏原關鍵字表，建立後唯讀
type AllergenCatalog struct {
	order  []string
	byKey  map[string]*allergenTerms
	traces []string
}

// NewAllergenCatalog 建立過敏原表；同鍵的後者取代前者
func NewAllergenCatalog(entries []AllergenEntry) *AllergenCatalog {
	c := &AllergenCatalog{byKey: make(map[string]*allergenTerms)}
	seen := make(map[string]bool)
	for _, ph := range DefaultTracePhrases {
		c.addTrace(ph, seen)
	}
	for _, e := range entries {
		key := strings.ReplaceAll(AllergenText(e.Key), " ", "_")
		if key == "" {
			continue
		}
		e.Key = key
		if e.Label == "" {
			e.Label = e.Key
		}
		if _, ok := c.byKey[key]; !ok {
			c.order = append(c.order, key)
		}
		c.byKey[key] = &allergenTerms{
			entry:    e,
			strong:   normalizeTerms(e.Keywords),
			weak:     normalizeTerms(e.Weak),
			freeFrom: normalizeTerms(e.FreeFrom),
		}
		for _, ph := range e.MayContain {
			c.addTrace(ph, seen)
		}
	}
	return c
}

func (c *AllergenCatalog) addTrace(phrase string, seen map[string]bool) {
	if n := AllergenText(phrase); n != "" && !seen[n] {
		seen[n] = true
		c.traces = append(c.traces, n)
	}
}

// DefaultAllergenCatalog 內建的 14 種過敏原
func DefaultAllergenCatalog() *AllergenCatalog {
	entries, err := decodeEntries[AllergenEntry](".yaml", defaultAllergens)
	if err != nil {
		panic(fmt.Sprintf("embedded allergen catalog: %v", err))
	}
	return NewAllergenCatalog(entries)
}

// LoadAllergens 以內建表為基礎，載入檔案中的項目覆寫同鍵項目；檔案不存在時只用內建表
func LoadAllergens(path string) (*AllergenCatalog, error) {
	base, err := decodeEntries[AllergenEntry](".yaml", defaultAllergens)
	if err != nil {
		return nil, fmt.Errorf("decode embedded allergen catalog: %w", err)
	}
	known := make(map[string]bool, len(base))
	for _, e := range base {
		known[e.Key] = true
	}

	extra, err := loadEntries[AllergenEntry](path)
	if err != nil {
		return nil, err
	}
	for _, e := range extra {
		key := strings.ReplaceAll(AllergenText(e.Key), " ", "_")
		if !known[key] {
			common.LogWarn("Unknown allergen key ignored", zap.String("path", path), zap.String("key", e.Key))
			continue
		}
		base = append(base, e)
	}

	c := NewAllergenCatalog(base)
	common.LogInfo("Allergen catalog loaded", zap.String("path", path), zap.Int("entries", c.Len()), zap.Int("overrides", len(extra)))
	return c, nil
}

// Len 過敏原數
func (c *AllergenCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Keys 依表內順序的過敏原鍵
func (c *AllergenCatalog) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// Label 過敏原顯示名稱；未知鍵原樣回傳
func (c *AllergenCatalog) Label(key string) string {
	if c != nil {
		if t, ok := c.byKey[key]; ok {
			return t.entry.Label
		}
	}
	return key
}

// Detect 找出一行文字中命中的過敏原；同一過敏原只回報第一個關鍵字，強關鍵字優先
func (c *AllergenCatalog) Detect(line string) []AllergenHit {
	if c == nil {
		return nil
	}
	text := AllergenText(line)
	if text == "" {
		return nil
	}
	var hits []AllergenHit
	for _, key := range c.order {
		t := c.byKey[key]
		if _, free := MatchTerm(text, t.freeFrom); free {
			continue
		}
		if term, ok := MatchTerm(text, t.strong); ok {
			hits = append(hits, AllergenHit{Key: key, Term: term})
			continue
		}
		if term, ok := MatchTerm(text, t.weak); ok {
			hits = append(hits, AllergenHit{Key: key, Term: term, Weak: true})
		}
	}
	return hits
}

// IsTraceLine 是否為「可能含有」一類的句子
func (c *AllergenCatalog) IsTraceLine(line string) bool {
	if c == nil {
		return false
	}
	text := AllergenText(line)
	if text == "" {
		return false
	}
	padded := " " + text + " "
	for _, ph := range c.traces {
		if strings.Contains(padded, " "+ph+" ") {
			return true
		}
	}
	return false
}

// AllergenText 比對用文字：去括號內容、Normalize、撇號轉空白
func AllergenText(s string) string {
	s = parenPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("'", " ", "’", " ").Replace(s)
	return Normalize(s)
}

// MatchTerm 以完整字詞比對，多字片語需連續出現；terms 需已經過 AllergenText
func MatchTerm(text string, terms []string) (string, bool) {
	padded := " " + text + " "
	for _, term := range terms {
		if term != "" && strings.Contains(padded, " "+term+" ") {
			return term, true
		}
	}
	return "", false
}

// normalizeTerms 正規化並去重，較長片語在前
func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if n := AllergenText(t); n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
