package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	scoreWordPattern  = regexp.MustCompile(`[A-Za-zÀ-ÿ]{3,}`)
	scoreUnitPattern  = regexp.MustCompile(`(?i)\b(?:g|kg|ml|l|cl|dl|mg|pz|gr|lt)\b`)
	scoreDigitPattern = regexp.MustCompile(`[0-9]`)
)

// Score 文字品質分數：每個 3 字母以上的單字 +1、每個數字 +2、每個單位 +6、每行 2 字以下 -3
func Score(text string) int {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}

	short := 0
	for _, ln := range strings.Split(t, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" && utf8.RuneCountInString(ln) <= 2 {
			short++
		}
	}

	words := len(scoreWordPattern.FindAllStringIndex(t, -1))
	digits := len(scoreDigitPattern.FindAllStringIndex(t, -1))
	unitHits := len(scoreUnitPattern.FindAllStringIndex(t, -1))
	return words + digits*2 + unitHits*6 - short*3
}
