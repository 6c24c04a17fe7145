package handlers

import (
	"net/http"

	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/core/queue"

	"github.com/gin-gonic/gin"
)

// StatusHandler OCR 引擎與隊列狀態
type StatusHandler struct {
	registry *ocr.Registry
	queue    *queue.Manager
}

// NewStatusHandler 創建狀態處理器
func NewStatusHandler(registry *ocr.Registry, q *queue.Manager) *StatusHandler {
	return &StatusHandler{registry: registry, queue: q}
}

// OCREngines 列出已註冊引擎及可用狀態
func (h *StatusHandler) OCREngines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"engines": h.registry.Info(),
	})
}

// QueueStatus 隊列狀態
func (h *StatusHandler) QueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.GetQueueStatus())
}
