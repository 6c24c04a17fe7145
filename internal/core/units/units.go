// Package units 處理食材單位、數量與時間的正規化
package units

import (
	"errors"
	"strings"
)

// 標準單位
const (
	Gram       = "g"
	Kilogram   = "kg"
	Milligram  = "mg"
	Milliliter = "ml"
	Centiliter = "cl"
	Deciliter  = "dl"
	Liter      = "l"
	Piece      = "pz"
	Spoon      = "cucchiai"
	Teaspoon   = "cucchiaini"
	ToTaste    = "q.b."
)

// ErrUnitMismatch 單位無法互相換算
var ErrUnitMismatch = errors.New("unit_mismatch")

// Kind 單位類別
type Kind int

const (
	KindUnknown Kind = iota
	KindMass
	KindVolume
	KindCount
	KindHousehold
)

var aliases = map[string]string{
	"g": Gram, "gr": Gram, "grammo": Gram, "grammi": Gram,
	"kg": Kilogram, "kilo": Kilogram, "kilogrammo": Kilogram, "kilogrammi": Kilogram,
	"mg": Milligram,
	"ml": Milliliter, "cc": Milliliter,
	"cl": Centiliter,
	"dl": Deciliter,
	"l": Liter, "lt": Liter, "litro": Liter, "litri": Liter,
	"pz": Piece, "p": Piece, "pc": Piece, "pezzo": Piece, "pezzi": Piece, "n": Piece, "nr": Piece,
	"ud": Piece, "u": Piece, "unita": Piece, "unità": Piece, "unit": Piece,
	"cucchiaio": Spoon, "cucchiai": Spoon,
	"cucchiaino": Teaspoon, "cucchiaini": Teaspoon,
	"qb": ToTaste,
}

// shortUnits 允許的短單位，其餘 1-2 字元的 token 視為雜訊
var shortUnits = map[string]bool{
	Gram: true, Kilogram: true, Milligram: true, Milliliter: true,
	Centiliter: true, Deciliter: true, Liter: true, Piece: true,
}

var factors = map[string]struct {
	kind Kind
	base float64
}{
	Milligram:  {KindMass, 0.001},
	Gram:       {KindMass, 1},
	Kilogram:   {KindMass, 1000},
	Milliliter: {KindVolume, 1},
	Centiliter: {KindVolume, 10},
	Deciliter:  {KindVolume, 100},
	Liter:      {KindVolume, 1000},
	Piece:      {KindCount, 1},
	Spoon:      {KindHousehold, 1},
	Teaspoon:   {KindHousehold, 1},
}

// Canonical 將自由文字單位轉為標準 token；無法辨識的短 token 回傳空字串
func Canonical(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.NewReplacer(".", "", ",", "", "’", "'").Replace(u)
	if u == "" {
		return ""
	}

	// OCR 常見誤判
	switch {
	case u == "b" || u == "9":
		u = Gram
	case strings.HasPrefix(u, "cucchiain") || strings.HasPrefix(u, "ucchiain"):
		u = Teaspoon
	case strings.HasPrefix(u, "ucch") || strings.HasPrefix(u, "cucch"):
		u = Spoon
	}

	if mapped, ok := aliases[u]; ok {
		u = mapped
	}
	if u == ToTaste {
		return u
	}
	if len([]rune(u)) <= 2 && !shortUnits[u] {
		return ""
	}
	return u
}

// IsKnown 是否為可換算的標準單位
func IsKnown(unit string) bool {
	_, ok := factors[unit]
	return ok || unit == ToTaste
}

// KindOf 回傳單位類別
func KindOf(unit string) Kind {
	if f, ok := factors[unit]; ok {
		return f.kind
	}
	return KindUnknown
}

// Factor 回傳 from -> to 的換算倍率；不同類別回傳 ErrUnitMismatch
func Factor(from, to string) (float64, error) {
	from, to = Canonical(from), Canonical(to)
	if from != "" && from == to {
		return 1, nil
	}
	f, okFrom := factors[from]
	t, okTo := factors[to]
	if !okFrom || !okTo || f.kind != t.kind || f.kind == KindCount || f.kind == KindHousehold {
		return 0, ErrUnitMismatch
	}
	return f.base / t.base, nil
}

// Convert 換算數量
func Convert(qty float64, from, to string) (float64, error) {
	factor, err := Factor(from, to)
	if err != nil {
		return 0, err
	}
	return qty * factor, nil
}

// ToGrams 將數量換算為公克；體積以密度換算（未提供時假設 1 g/ml），件數需提供單件重量
func ToGrams(qty float64, unit string, pieceG, densityGML float64) (float64, error) {
	if qty <= 0 {
		return 0, ErrUnitMismatch
	}
	unit = Canonical(unit)
	f, ok := factors[unit]
	if !ok {
		return 0, ErrUnitMismatch
	}
	switch f.kind {
	case KindMass:
		return qty * f.base, nil
	case KindVolume:
		if densityGML <= 0 {
			densityGML = 1
		}
		return qty * f.base * densityGML, nil
	case KindCount:
		if pieceG > 0 {
			return qty * pieceG, nil
		}
	}
	return 0, ErrUnitMismatch
}
