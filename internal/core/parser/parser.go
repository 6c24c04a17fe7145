// Package parser 將 OCR 文字或寬鬆 JSON 轉為結構化食譜
package parser

import (
	"strings"

	"go.uber.org/zap"

	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/pkg/common"
)

// DefaultTitle 找不到標題時的預設值
const DefaultTitle = "Ricetta"

// Parse 解析文件文字；內容為 JSON 物件時改走逐欄位讀取
func Parse(text string) (*recipe.Recipe, recipe.FieldSet) {
	var r *recipe.Recipe
	if obj, ok := DecodePayload(text); ok {
		r = ParsePayload(obj)
		common.LogDebug("Parsed JSON payload", zap.Int("ingredients", len(r.Ingredients)), zap.Int("steps", len(r.Steps)))
	} else {
		r = parseText(text)
		common.LogDebug("Parsed structured text", zap.Int("ingredients", len(r.Ingredients)), zap.Int("steps", len(r.Steps)))
	}
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	return r, Missing(r)
}

// DecodePayload 嘗試將整段文字或其中第一個 {...} 區塊解析為 JSON 物件
func DecodePayload(text string) (map[string]any, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := common.ParseJSON(s, &obj); err == nil && obj != nil {
		return obj, true
	}

	block, ok := common.ExtractJSONObject(s)
	if !ok {
		return nil, false
	}
	obj = nil
	if err := common.ParseJSON(block, &obj); err == nil && obj != nil {
		return obj, true
	}
	obj = nil
	if err := common.ParseJSON(common.QuoteJSONKeys(block), &obj); err == nil && obj != nil {
		return obj, true
	}
	return nil, false
}

// Missing 解析階段的缺少欄位：份數、食材、步驟與食材數量/單位標記
func Missing(r *recipe.Recipe) recipe.FieldSet {
	m := recipe.NewFieldSet()
	if r.Servings == nil {
		m.Add("servings")
	}
	if len(r.Ingredients) == 0 {
		m.Add("ingredients")
	}
	if len(r.Steps) == 0 {
		m.Add("steps")
	}
	m.Add(recipe.IngredientMarkers(r.Ingredients)...)
	return m
}
