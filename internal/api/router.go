package api

import (
	"fmt"
	"time"

	"recipe-extractor/internal/api/handlers"
	"recipe-extractor/internal/api/handlers/health"
	recipeHandler "recipe-extractor/internal/api/handlers/recipe"
	"recipe-extractor/internal/api/middleware"
	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/core/queue"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps 路由需要的服務
type Deps struct {
	Queue    *queue.Manager
	Registry *ocr.Registry
	Metrics  *metrics.Metrics
	// Gatherer 為 nil 時不註冊 /metrics
	Gatherer prometheus.Gatherer
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if cfg == nil || deps.Queue == nil || deps.Registry == nil {
		return nil, fmt.Errorf("router requires config, queue and OCR registry")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger(deps.Metrics))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 注入設定與服務
	router.Use(func(c *gin.Context) {
		c.Set(health.ConfigKey, cfg)
		c.Set(health.QueueKey, deps.Queue)
		c.Set(health.RegistryKey, deps.Registry)
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)))
	}
	{
		status := handlers.NewStatusHandler(deps.Registry, deps.Queue)
		api.GET("/ocr/engines", status.OCREngines)
		api.GET("/queue/status", status.QueueStatus)

		recipeHandlerInstance := recipeHandler.NewHandler(deps.Queue, recipeHandler.Config{
			UploadDir: cfg.Server.UploadDir,
			Lang:      cfg.OCR.Language,
			Debug:     cfg.App.Debug,
		})

		recipeGroup := api.Group("/recipes")
		recipeGroup.Use(middleware.Deduplication(middleware.NewDeduplicator(cfg.DedupWindow)))
		{
			recipeGroup.POST("/analyze", recipeHandlerInstance.HandleAnalyze)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("metrics", deps.Gatherer != nil),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
