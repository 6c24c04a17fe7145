package recipe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"recipe-extractor/internal/core/pipeline"
	"recipe-extractor/internal/core/queue"
	"recipe-extractor/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Queue 文件處理佇列
type Queue interface {
	Enqueue(ctx context.Context, doc pipeline.Document) (*queue.Job, error)
}

// Config 處理器設定
type Config struct {
	// UploadDir 暫存上傳檔的根目錄；空字串使用系統暫存目錄
	UploadDir string
	Lang      string
	// Debug 為 true 時錯誤回應帶細節
	Debug bool
}

// Handler 食譜分析處理程序
type Handler struct {
	queue Queue
	cfg   Config
}

// NewHandler 創建新的食譜處理程序
func NewHandler(q Queue, cfg Config) *Handler {
	return &Handler{queue: q, cfg: cfg}
}

// HandleAnalyze 上傳檔案（或 text 欄位）並回傳結構化食譜
//
// multipart 欄位：files / file（可多個）、text、name、lang、no_ai
func (h *Handler) HandleAnalyze(c *gin.Context) {
	requestID := requestid.Get(c)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	common.LogInfo("開始處理食譜分析請求",
		zap.String("request_id", requestID),
		zap.String("client_ip", c.ClientIP()),
	)

	form, err := c.MultipartForm()
	if err != nil {
		h.abort(c, common.ErrInvalidRequest.Wrap(fmt.Errorf("multipart form: %w", err)), requestID)
		return
	}

	files := uploadedFiles(form)
	text := strings.TrimSpace(c.PostForm("text"))
	if len(files) == 0 && text == "" {
		h.abort(c, common.ErrInvalidRequest.Wrap(fmt.Errorf("no files or text provided")), requestID)
		return
	}
	if len(files) > MaxFiles {
		h.abort(c, common.ErrInvalidRequest.Wrap(fmt.Errorf("too many files: %d > %d", len(files), MaxFiles)), requestID)
		return
	}

	noAI := false
	if raw := c.PostForm("no_ai"); raw != "" {
		if noAI, err = strconv.ParseBool(raw); err != nil {
			h.abort(c, common.ErrInvalidRequest.Wrap(fmt.Errorf("no_ai: %w", err)), requestID)
			return
		}
	}

	doc := pipeline.Document{
		Text:  text,
		Name:  c.PostForm("name"),
		Lang:  c.DefaultPostForm("lang", h.cfg.Lang),
		RunID: requestID,
		NoAI:  noAI,
	}

	var dir string
	if len(files) > 0 {
		dir, err = os.MkdirTemp(h.cfg.UploadDir, "upload-*")
		if err != nil {
			h.abort(c, common.ErrInternalError.Wrap(err), requestID)
			return
		}
		paths, names, err := saveUploads(c, dir, files)
		if err != nil {
			removeDir(dir)
			h.abort(c, common.ErrInternalError.Wrap(err), requestID)
			return
		}
		doc.Paths = paths
		if doc.Name == "" {
			doc.Name = names[0]
		}
	}

	job, err := h.queue.Enqueue(c.Request.Context(), doc)
	if err != nil {
		removeDir(dir)
		h.abort(c, err, requestID)
		return
	}

	res, err := job.Wait(c.Request.Context())
	if err != nil {
		// worker 可能仍在讀檔，等它結束後再清除
		go func() {
			_, _ = job.Wait(context.Background())
			removeDir(dir)
		}()
		h.abort(c, err, requestID)
		return
	}
	removeDir(dir)

	if res.Recipe != nil && dir != "" {
		res.Recipe.SourceFiles = relativeTo(dir, res.Recipe.SourceFiles)
	}

	if !res.OK {
		status, _ := common.ToResponse(res.Err, h.cfg.Debug)
		common.LogWarn("食譜分析失敗",
			zap.String("request_id", requestID),
			zap.String("error", res.Error),
		)
		c.JSON(status, res)
		return
	}

	common.LogInfo("食譜分析完成",
		zap.String("request_id", requestID),
		zap.Int("missing", len(res.Missing)),
		zap.Int("passes", res.Diagnostics.Passes),
	)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) abort(c *gin.Context, err error, requestID string) {
	common.LogWarn("食譜分析請求被拒絕",
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	status, resp := common.ToResponse(err, h.cfg.Debug)
	c.AbortWithStatusJSON(status, resp)
}

// relativeTo 去掉暫存目錄前綴，只留上傳檔名
func relativeTo(dir string, paths []string) []string {
	prefix := strings.TrimRight(dir, string(os.PathSeparator)) + string(os.PathSeparator)
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.TrimPrefix(p, prefix)
	}
	return out
}
