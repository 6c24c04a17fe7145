package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectCharset 偵測文字編碼，失敗時回傳 utf-8
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// DecodeText 將任意編碼的文字轉為 UTF-8；合法 UTF-8 直接使用
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	name := DetectCharset(data)
	enc, canonical := charset.Lookup(name)
	if enc == nil {
		// chardet 回報的名稱 x/net 不認得時，以西歐編碼解讀
		enc, canonical = charset.Lookup("windows-1252")
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", canonical, err)
	}
	return string(out), nil
}

// normalizeNewlines 統一換行並去除結尾空白
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
