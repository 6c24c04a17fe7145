// Package pipeline 串接文字擷取、解析、參考表補齊與 AI 補全
package pipeline

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"recipe-extractor/internal/core/ai"
	"recipe-extractor/internal/core/analyzer"
	"recipe-extractor/internal/core/enrich"
	"recipe-extractor/internal/core/extract"
	"recipe-extractor/internal/core/merge"
	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/core/parser"
	"recipe-extractor/internal/core/recipe"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultMaxPasses AI 補全輪數上限
const DefaultMaxPasses = 2

// 執行狀態
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var spacePattern = regexp.MustCompile(`\s+`)

// Extractor 將來源檔案轉為文字
type Extractor interface {
	Extract(ctx context.Context, paths []string, lang string) (extract.Result, error)
}

// Completer 外部補全服務
type Completer interface {
	Name() string
	CompleteMissing(ctx context.Context, r *recipe.Recipe, source string, missing []string) (*ai.Completion, error)
}

// Options 流程設定
type Options struct {
	MaxPasses int
	// OverrideLists 第一輪 AI 補全可整批替換食材與步驟
	OverrideLists bool
}

// Document 一份待處理的文件；Text 非空時跳過擷取
type Document struct {
	Paths []string `json:"paths"`
	Text  string   `json:"-"`
	Name  string   `json:"name,omitempty"`
	Lang  string   `json:"lang,omitempty"`
	RunID string   `json:"run_id,omitempty"`
	NoAI  bool     `json:"no_ai,omitempty"`
}

// Diagnostics 執行紀錄
type Diagnostics struct {
	RunID      string         `json:"run_id"`
	Engine     string         `json:"engine,omitempty"`
	TextLen    int            `json:"text_len"`
	Passes     int            `json:"passes"`
	AIProvider string         `json:"ai_provider,omitempty"`
	AIError    string         `json:"ai_error,omitempty"`
	AIFields   []string       `json:"ai_fields,omitempty"`
	OCR        *ocr.Report    `json:"ocr,omitempty"`
	Files      []string       `json:"files,omitempty"`
	Kinds      []extract.Kind `json:"kinds,omitempty"`
	Enrich     enrich.Report  `json:"enrich"`
	ElapsedSec float64        `json:"elapsed_s"`
}

// Result 流程結果；Err 不為 nil 時 Recipe 可能為 nil
type Result struct {
	OK          bool           `json:"ok"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Err         error          `json:"-"`
	Recipe      *recipe.Recipe `json:"recipe,omitempty"`
	Missing     []string       `json:"missing"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}

// Orchestrator 單一文件的同步流程；不同文件可以並行呼叫 Run
type Orchestrator struct {
	extractor Extractor
	enricher  *enrich.Enricher
	completer Completer
	metrics   *metrics.Metrics
	opts      Options
}

// New 建立 Orchestrator；completer 為 nil 時略過 AI 補全
func New(ext Extractor, enr *enrich.Enricher, completer Completer, m *metrics.Metrics, opts Options) *Orchestrator {
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = DefaultMaxPasses
	}
	return &Orchestrator{extractor: ext, enricher: enr, completer: completer, metrics: m, opts: opts}
}

// Run 擷取 -> 解析 -> 分析 -> 補齊 -> 分析 -> AI 補全迴圈；不會回傳 error，失敗記錄在 Result
func (o *Orchestrator) Run(ctx context.Context, doc Document) Result {
	start := time.Now()
	if doc.RunID == "" {
		doc.RunID = common.GenerateUUID()
	}
	res := Result{Diagnostics: Diagnostics{RunID: doc.RunID}}

	text, err := o.source(ctx, doc, &res.Diagnostics)
	if err != nil {
		return o.fail(res, err, start)
	}
	res.Diagnostics.TextLen = len([]rune(text))

	r, _ := parser.Parse(text)
	if r.Title == "" || r.Title == parser.DefaultTitle {
		r.Title = TitleFromPaths(doc.Paths, doc.Name)
	}
	if len(doc.Paths) > 0 {
		r.SourceFiles = append([]string(nil), doc.Paths...)
	}

	common.LogDebug("Parsed source text",
		zap.String("run_id", doc.RunID),
		zap.Int("missing", len(analyzer.Analyze(r))),
		zap.Int("ingredients", len(r.Ingredients)),
	)
	res.Diagnostics.Enrich = o.enricher.Enrich(r)
	missing := analyzer.Analyze(r)

	if o.completer != nil && !doc.NoAI {
		missing = o.complete(ctx, r, text, missing, &res.Diagnostics)
	}

	res.OK = true
	res.Status = StatusOK
	res.Recipe = r
	res.Missing = missing.Sorted()
	res.Diagnostics.ElapsedSec = time.Since(start).Seconds()
	o.metrics.ObservePipeline(StatusOK, res.Diagnostics.Passes, len(res.Missing))

	common.LogInfo("Pipeline run completed",
		zap.String("run_id", doc.RunID),
		zap.String("title", r.Title),
		zap.Int("missing", len(res.Missing)),
		zap.Int("passes", res.Diagnostics.Passes),
		zap.Float64("elapsed_s", res.Diagnostics.ElapsedSec),
	)
	return res
}

// source 取得文件文字；空白文字視為無法恢復的擷取失敗
func (o *Orchestrator) source(ctx context.Context, doc Document, diag *Diagnostics) (string, error) {
	if strings.TrimSpace(doc.Text) != "" {
		return strings.TrimSpace(doc.Text), nil
	}
	if len(doc.Paths) == 0 {
		return "", common.ErrInvalidRequest.Wrap(errors.New("no source files"))
	}
	if o.extractor == nil {
		return "", common.ErrServiceUnavailable.Wrap(errors.New("no extractor configured"))
	}

	out, err := o.extractor.Extract(ctx, doc.Paths, doc.Lang)
	diag.Engine = out.Engine
	diag.OCR = out.OCR
	diag.Files = out.Files
	diag.Kinds = out.Kinds
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", common.ErrEmptyText
	}
	return out.Text, nil
}

// complete AI 補全迴圈：合併 -> 補齊 -> 重新分析，直到沒有欄位變動或輪數用完
func (o *Orchestrator) complete(ctx context.Context, r *recipe.Recipe, text string, missing recipe.FieldSet, diag *Diagnostics) recipe.FieldSet {
	diag.AIProvider = o.completer.Name()
	for pass := 1; pass <= o.opts.MaxPasses && len(missing) > 0; pass++ {
		if ctx.Err() != nil {
			diag.AIError = common.Redact(ctx.Err().Error())
			break
		}
		diag.Passes = pass

		callStart := time.Now()
		c, err := o.completer.CompleteMissing(ctx, r, text, missing.Sorted())
		if err != nil {
			common.LogAICall(o.completer.Name(), time.Since(callStart), err, diag.RunID)
			diag.AIError = common.Redact(err.Error())
			break
		}
		if c == nil || c.Patch.Empty() {
			diag.AIError = "empty completion"
			break
		}
		common.LogAICall(c.Provider, time.Since(callStart), nil, diag.RunID)
		if c.Provider != "" {
			diag.AIProvider = c.Provider
		}
		diag.AIError = ""

		changed := merge.Apply(r, c.Patch, merge.Options{OverrideLists: o.opts.OverrideLists && pass == 1})
		enriched := o.enricher.Enrich(r)
		changed.Add(enriched.Changed.Sorted()...)
		diag.Enrich = enriched
		missing = analyzer.Analyze(r)

		if len(changed) == 0 {
			break
		}
		diag.AIFields = appendUnique(diag.AIFields, changed.Sorted()...)
	}
	return missing
}

func (o *Orchestrator) fail(res Result, err error, start time.Time) Result {
	res.OK = false
	res.Status = StatusError
	res.Err = err
	res.Error = common.Redact(err.Error())
	res.Diagnostics.ElapsedSec = time.Since(start).Seconds()
	o.metrics.ObservePipeline(StatusError, 0, 0)
	common.LogWarn("Pipeline run failed",
		zap.String("run_id", res.Diagnostics.RunID),
		zap.Error(err),
	)
	return res
}

// TitleFromPaths 以第一個檔名推得標題："torta_di-mele.docx" -> "torta di mele"
func TitleFromPaths(paths []string, name string) string {
	src := name
	if src == "" && len(paths) > 0 {
		src = paths[0]
	}
	if src == "" {
		return parser.DefaultTitle
	}
	stem := common.FileStem(src)
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.TrimSpace(spacePattern.ReplaceAllString(stem, " "))
	if stem == "" {
		return parser.DefaultTitle
	}
	return stem
}

func appendUnique(list []string, items ...string) []string {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s] = true
	}
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			list = append(list, s)
		}
	}
	return list
}
