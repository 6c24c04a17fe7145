// Package app 依設定組裝擷取、OCR、參考表、AI 與流程元件，供 HTTP 服務與 CLI 共用
package app

import (
	"context"
	"errors"
	"fmt"

	"recipe-extractor/internal/core/ai/cache"
	"recipe-extractor/internal/core/ai/openrouter"
	"recipe-extractor/internal/core/ai/provider"
	aiService "recipe-extractor/internal/core/ai/service"
	"recipe-extractor/internal/core/catalog"
	"recipe-extractor/internal/core/enrich"
	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/core/image"
	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/core/pipeline"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"

	"go.uber.org/zap"
)

// App 組裝完成的元件
type App struct {
	Registry     *ocr.Registry
	Arbiter      *ocr.Arbiter
	Extractor    *extract.Extractor
	Orchestrator *pipeline.Orchestrator
	// AI 未設定 API key 時為 nil
	AI *aiService.Service

	closers []func() error
}

// Options 組裝選項
type Options struct {
	Metrics *metrics.Metrics
	// DisableAI 即使設定了 API key 也不建立 AI 服務
	DisableAI bool
}

// Build 建立所有元件；參考表缺檔時以空表繼續，Redis 無法連線時退回記憶體快取
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{}

	pre := image.NewService(cfg.Image.MaxSizeBytes, cfg.OCR.MaxSide)
	a.Registry = ocr.Build(cfg.OCR.Engines, cfg.OCR.DefaultEngine, cfg.OCR.Commands, pre)
	a.Arbiter = ocr.NewArbiter(a.Registry,
		ocr.WithTimeout(cfg.OCR.Timeout),
		ocr.WithWorkers(cfg.OCR.Workers),
		ocr.WithMetrics(opts.Metrics),
	)
	for _, info := range a.Registry.Info() {
		common.LogInfo("OCR engine registered",
			zap.String("engine", info.Name),
			zap.Bool("available", info.Available),
			zap.Bool("default", info.Default),
			zap.String("reason", info.Error),
		)
	}

	a.Extractor = extract.New(extract.Config{
		MaxFileBytes: cfg.Extract.MaxFileBytes,
		MaxDocxChars: cfg.Extract.MaxDocxChars,
		MaxDocxRows:  cfg.Extract.MaxDocxRows,
		Timeout:      cfg.Extract.Timeout,
		PDFToPPM:     cfg.Extract.PDFToPPM,
		RasterDPI:    cfg.Extract.RasterDPI,
		Lang:         cfg.OCR.Language,
	}, a.Arbiter)

	prices, err := catalog.LoadPrices(cfg.Catalog.PricePath)
	if err != nil {
		return nil, fmt.Errorf("load price catalog: %w", err)
	}
	nutrition, err := catalog.LoadNutrition(cfg.Catalog.NutritionPath)
	if err != nil {
		return nil, fmt.Errorf("load nutrition catalog: %w", err)
	}
	allergens, err := catalog.LoadAllergens(cfg.Catalog.AllergenPath)
	if err != nil {
		return nil, fmt.Errorf("load allergen catalog: %w", err)
	}
	enricher := enrich.New(prices, nutrition).WithAllergens(allergens)

	var completer pipeline.Completer
	if cfg.OpenRouter.Enabled && !opts.DisableAI {
		a.AI = a.buildAI(ctx, cfg, opts.Metrics)
		completer = a.AI
	} else {
		common.LogInfo("AI completion disabled", zap.Bool("api_key_set", cfg.OpenRouter.APIKey != ""))
	}

	a.Orchestrator = pipeline.New(a.Extractor, enricher, completer, opts.Metrics, pipeline.Options{
		MaxPasses:     cfg.Pipeline.MaxPasses,
		OverrideLists: cfg.Pipeline.AllowOverrideLists,
	})
	return a, nil
}

func (a *App) buildAI(ctx context.Context, cfg *config.Config, m *metrics.Metrics) *aiService.Service {
	redactor := common.NewRedactor(cfg.OpenRouter.APIKey)
	client := openrouter.NewClient(provider.Config{
		APIKey:     cfg.OpenRouter.APIKey,
		Model:      cfg.OpenRouter.Model,
		BaseURL:    cfg.OpenRouter.BaseURL,
		Timeout:    cfg.OpenRouter.Timeout,
		MaxRetries: cfg.OpenRouter.Retries,
		MaxTokens:  cfg.OpenRouter.MaxTokens,
		RPS:        cfg.OpenRouter.RPS,
		Title:      cfg.App.Name,
		Redactor:   redactor,
	})

	var store cache.Store
	if cfg.Cache.Enabled {
		store = a.buildCache(ctx, cfg)
	}

	svc := aiService.NewService(client, store, aiService.Config{
		Attempts:       cfg.OpenRouter.Attempts,
		MaxSourceChars: cfg.Pipeline.MaxSourceChars,
		MaxTokens:      cfg.OpenRouter.MaxTokens,
		Redactor:       redactor,
	}, m)
	a.closers = append(a.closers, svc.Close)

	common.LogInfo("AI completion enabled",
		zap.String("provider", client.Name()),
		zap.String("model", client.GetModel()),
		zap.String("api_key", common.MaskSecret(cfg.OpenRouter.APIKey)),
		zap.Bool("cache", store != nil),
	)
	return svc
}

func (a *App) buildCache(ctx context.Context, cfg *config.Config) cache.Store {
	if cfg.Cache.RedisAddr != "" {
		rs, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err == nil {
			a.closers = append(a.closers, rs.Close)
			return rs
		}
		common.LogWarn("Redis cache unavailable, falling back to memory cache",
			zap.String("addr", cfg.Cache.RedisAddr),
			zap.Error(err),
		)
	}

	mgr := cache.NewManager(cache.Config{
		Enabled:         true,
		MaxSize:         cfg.Cache.MaxSize,
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	a.closers = append(a.closers, mgr.Close)
	return mgr
}

// Close 釋放 AI 連線與快取
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
