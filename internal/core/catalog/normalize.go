// Package catalog 價格與營養參考表的載入與模糊比對
package catalog

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"recipe-extractor/internal/core/units"
)

var (
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]`)
	punctPattern   = regexp.MustCompile(`[^\p{L}\p{N}_\s']`)
)

// Normalize 比對鍵：小寫、去重音、移除 [..]、標點轉空白並合併
func Normalize(name string) string {
	s := units.Fold(name)
	s = bracketPattern.ReplaceAllString(s, "")
	s = punctPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// similarity 正規化 Levenshtein 相似度，1 - 距離/較長字串長度
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
