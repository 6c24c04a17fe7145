// Package ai 外部文字補全服務的共用型別
package ai

import (
	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/merge"
)

// Completion 一次補全的結果
type Completion struct {
	Patch    *merge.Patch   `json:"-"`
	Fields   []string       `json:"fields"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Usage    provider.Usage `json:"usage"`
	CacheHit bool           `json:"cache_hit"`
	Attempts int            `json:"attempts"`
}
