package parser

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"recipe-extractor/internal/core/units"
)

var (
	listSeparator = regexp.MustCompile(`[;,/]+`)
	firstInt      = regexp.MustCompile(`\d+`)
)

// isFalsy 空字串、零、空集合、nil 與 false 視為沒有值
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case int:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// pick 依序取第一個有值的鍵
func pick(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && !isFalsy(v) {
			return v
		}
	}
	return nil
}

func pickString(obj map[string]any, keys ...string) string {
	return strings.TrimSpace(toString(pick(obj, keys...)))
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(toList(t), ", ")
	}
	return ""
}

func toFloat(v any) *float64 {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case string:
		if f, ok := units.ParseQuantity(t); ok {
			return &f
		}
	}
	return nil
}

func toInt(v any) *int {
	if f := toFloat(v); f != nil {
		n := int(math.Trunc(*f))
		return &n
	}
	s, ok := v.(string)
	if !ok || isPlaceholder(s) {
		return nil
	}
	if m := firstInt.FindString(s); m != "" {
		n, _ := strconv.Atoi(m)
		return &n
	}
	return nil
}

func toMinutes(v any) *int {
	switch t := v.(type) {
	case json.Number, float64, int:
		return toInt(t)
	}
	if m, ok := units.ParseMinutes(toString(v)); ok {
		return &m
	}
	return nil
}

func toList(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(toString(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range listSeparator.Split(t, -1) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func listToText(v any) string {
	return strings.Join(toList(v), ", ")
}

// blockToText 多行區塊轉為逗號分隔文字
func blockToText(v any) string {
	s, ok := v.(string)
	if !ok {
		return listToText(v)
	}
	var items []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.Trim(strings.TrimSpace(ln), " -"); ln != "" {
			items = append(items, ln)
		}
	}
	return strings.Join(items, ", ")
}

func toLines(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.Split(t, "\n")
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := toString(item); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/d", "nd", "n.d.", "n.d", "n/a", "na":
		return true
	}
	return false
}
