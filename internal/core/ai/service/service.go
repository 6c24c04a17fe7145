// Package service 以外部補全服務填補食譜缺少的欄位
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-extractor/internal/core/ai"
	"recipe-extractor/internal/core/ai/cache"
	"recipe-extractor/internal/core/ai/provider"
	"recipe-extractor/internal/core/merge"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"

	"go.uber.org/zap"
)

// 預設值
const (
	DefaultAttempts       = 2
	DefaultMaxSourceChars = 20000
	DefaultTemperature    = 0.2
)

// ErrEmptyResponse 回覆中沒有可用的欄位
var ErrEmptyResponse = errors.New("risposta vuota")

// Config 補全設定；Attempts 為含第一次在內的總呼叫次數
type Config struct {
	Attempts       int
	MaxSourceChars int
	Temperature    float64
	MaxTokens      int
	// Redactor 遮罩日誌與錯誤中的憑證；nil 時建立空的遮罩器
	Redactor       *common.Redactor
}

// Service AI 服務
type Service struct {
	provider provider.Provider
	cache    cache.Store
	config   Config
	metrics  *metrics.Metrics
}

// NewService 創建 AI 服務；store 與 m 可為 nil
func NewService(p provider.Provider, store cache.Store, cfg Config, m *metrics.Metrics) *Service {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.MaxSourceChars <= 0 {
		cfg.MaxSourceChars = DefaultMaxSourceChars
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Redactor == nil {
		cfg.Redactor = common.NewRedactor()
	}
	return &Service{provider: p, cache: store, config: cfg, metrics: m}
}

// Name 提供者名稱
func (s *Service) Name() string {
	return s.provider.Name()
}

// CompleteMissing 要求補全缺少的欄位；回覆經 merge.Decode 逐欄位驗證，失敗時重試，總共最多呼叫 Attempts 次
func (s *Service) CompleteMissing(ctx context.Context, r *recipe.Recipe, source string, missing []string) (*ai.Completion, error) {
	prompt := BuildPrompt(r, source, missing, s.config.MaxSourceChars)
	cacheKey := s.provider.GetModel() + "\n" + prompt

	if s.cache != nil {
		if content, ok := s.cache.Get(ctx, cacheKey); ok {
			if patch, ok := merge.Decode(content); ok && !patch.Empty() {
				return &ai.Completion{
					Patch:    patch,
					Fields:   patch.Fields(),
					Provider: s.provider.Name(),
					Model:    s.provider.GetModel(),
					CacheHit: true,
				}, nil
			}
		}
	}

	req := &provider.Request{
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		JSONMode:    true,
	}

	var lastErr error
	for attempt := 1; attempt <= s.config.Attempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		start := time.Now()
		resp, err := s.provider.Generate(ctx, req)
		elapsed := time.Since(start)
		if err != nil {
			lastErr = err
			s.metrics.ObserveAI(s.provider.Name(), "error", elapsed)
			common.LogWarn("AI completion attempt failed",
				zap.String("provider", s.provider.Name()),
				zap.Int("attempt", attempt),
				zap.String("error", s.config.Redactor.Redact(err.Error())),
			)
			continue
		}

		patch, ok := merge.Decode(resp.Content)
		if !ok || patch.Empty() {
			lastErr = ErrEmptyResponse
			s.metrics.ObserveAI(s.provider.Name(), "empty", elapsed)
			common.LogWarn("AI completion returned no usable fields",
				zap.String("provider", s.provider.Name()),
				zap.Int("attempt", attempt),
				zap.Int("content_length", len(resp.Content)),
			)
			continue
		}

		s.metrics.ObserveAI(s.provider.Name(), "ok", elapsed)
		if s.cache != nil {
			if err := s.cache.Set(ctx, cacheKey, resp.Content); err != nil {
				common.LogWarn("Failed to cache AI completion", zap.Error(err))
			}
		}
		return &ai.Completion{
			Patch:    patch,
			Fields:   patch.Fields(),
			Provider: s.provider.Name(),
			Model:    resp.Model,
			Usage:    resp.Usage,
			Attempts: attempt,
		}, nil
	}

	if lastErr == nil {
		lastErr = ErrEmptyResponse
	}
	return nil, common.ErrAIServiceError.Wrap(fmt.Errorf("%s: %w", s.provider.Name(), s.config.Redactor.Wrap(lastErr)))
}

// Close 關閉提供者
func (s *Service) Close() error {
	return s.provider.Close()
}
