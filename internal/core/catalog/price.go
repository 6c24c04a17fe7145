package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"recipe-extractor/internal/core/units"
)

// PriceEntry 價格表項目
type PriceEntry struct {
	Ingredient   string  `json:"ingredient" yaml:"ingredient" toml:"ingredient"`
	PurchaseQty  float64 `json:"purchase_qty" yaml:"purchase_qty" toml:"purchase_qty"`
	PurchaseUnit string  `json:"purchase_unit" yaml:"purchase_unit" toml:"purchase_unit"`
	PricePerUnit float64 `json:"price_per_unit" yaml:"price_per_unit" toml:"price_per_unit"`
	Source       string  `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
}

// Cost CostFor 的結果
type Cost struct {
	Match
	Entry       PriceEntry `json:"entry"`
	PurchaseQty float64    `json:"purchase_qty"`
	CostEUR     float64    `json:"cost_eur"`
}

var priceUnitAliases = map[string]string{
	"kilogrammi": units.Kilogram,
	"grammi":     units.Gram,
	"litri":      units.Liter,
	"cc":         units.Milliliter,
	"pz.":        units.Piece,
	"pezzi":      units.Piece,
	"uova":       units.Piece,
	"uovo":       units.Piece,
	"baccello":   units.Piece,
	"ud":         units.Piece,
	"unita":      units.Piece,
	"unità":      units.Piece,
	"unit":       units.Piece,
}

var qtyUnitPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([\p{L}\.]+)`)

// PriceUnit 價格表的購買單位
func PriceUnit(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := priceUnitAliases[u]; ok {
		return mapped
	}
	if c := units.Canonical(u); c != "" {
		return c
	}
	return strings.Trim(u, ".")
}

// ParseQtyUnit 解析 "1 kg"、"500gr" 之類的購買規格
func ParseQtyUnit(s string) (float64, string, bool) {
	m := qtyUnitPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	qty, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, "", false
	}
	return qty, PriceUnit(strings.Trim(m[2], ".")), true
}

// PriceCatalog 價格參考表，建立後唯讀
type PriceCatalog struct {
	idx *index[PriceEntry]
}

// NewPriceCatalog 建立價格表
func NewPriceCatalog(entries []PriceEntry) *PriceCatalog {
	c := &PriceCatalog{idx: newIndex[PriceEntry]()}
	for _, e := range entries {
		e.PurchaseUnit = PriceUnit(e.PurchaseUnit)
		c.idx.add(e.Ingredient, e)
	}
	return c
}

// Len 項目數
func (c *PriceCatalog) Len() int {
	if c == nil {
		return 0
	}
	return c.idx.len()
}

// Find 依名稱比對價格項目
func (c *PriceCatalog) Find(name string) (PriceEntry, Match) {
	if c == nil {
		return PriceEntry{}, Match{Query: name, Status: StatusNotFound}
	}
	return c.idx.find(name)
}

// CostFor 計算指定數量的成本；找不到時回傳 not_found 結果而非錯誤，單位不相容時回傳 units.ErrUnitMismatch
func (c *PriceCatalog) CostFor(name string, qty float64, unit string) (Cost, error) {
	entry, m := c.Find(name)
	out := Cost{Match: m, Entry: entry}
	if !m.Found() {
		return out, nil
	}

	pq, err := units.Convert(qty, PriceUnit(unit), entry.PurchaseUnit)
	if err != nil {
		out.Status = StatusUnitMismatch
		return out, fmt.Errorf("%s: %s -> %s: %w", name, unit, entry.PurchaseUnit, err)
	}
	out.PurchaseQty = pq
	out.CostEUR = pq * entry.PricePerUnit
	return out, nil
}
