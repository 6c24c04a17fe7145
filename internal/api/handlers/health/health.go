package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/core/queue"
	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 注入 gin.Context 的鍵
const (
	ConfigKey   = "config"
	QueueKey    = "queue"
	RegistryKey = "ocr_registry"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	AIEnabled bool                   `json:"ai_enabled"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	// 獲取配置
	cfg, ok := c.MustGet(ConfigKey).(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		status, resp := common.ToResponse(common.ErrInternalError, false)
		c.JSON(status, resp)
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// 構建響應
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		AIEnabled: cfg.OpenRouter.Enabled,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if q, ok := c.Get(QueueKey); ok {
		response.Queue = q.(*queue.Manager).GetQueueStatus()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：隊列已啟動且至少一個 OCR 引擎可用
func ReadinessCheck(c *gin.Context) {
	checks := gin.H{}
	ready := true

	if q, ok := c.Get(QueueKey); ok {
		st := q.(*queue.Manager).GetQueueStatus()
		checks["queue"] = st.Running
		ready = ready && st.Running
	}
	if r, ok := c.Get(RegistryKey); ok {
		available := 0
		for _, info := range r.(*ocr.Registry).Info() {
			if info.Available {
				available++
			}
		}
		checks["ocr_engines_available"] = available
		ready = ready && available > 0
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
