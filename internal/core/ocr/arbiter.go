package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"
)

// 預設值
const (
	DefaultTimeout = 45 * time.Second
	DefaultWorkers = 4
)

// EngineResult 單一引擎的執行結果
type EngineResult struct {
	Name      string  `json:"name"`
	Available bool    `json:"available"`
	OK        bool    `json:"ok"`
	TimedOut  bool    `json:"timed_out,omitempty"`
	Error     string  `json:"error,omitempty"`
	TimeSec   float64 `json:"time_sec"`
	Score     int     `json:"score"`
	Fallback  bool    `json:"fallback,omitempty"`

	text string
}

// Report 仲裁報告
type Report struct {
	Engines       []EngineResult `json:"engines"`
	Selected      string         `json:"selected,omitempty"`
	SelectedScore int            `json:"selected_score"`
	Successes     int            `json:"successes"`
	Fallback      bool           `json:"fallback"`
}

// Arbiter 並行執行所有可用引擎並選出分數最高的文字
type Arbiter struct {
	registry *Registry
	timeout  time.Duration
	workers  int
	metrics  *metrics.Metrics
}

// Option Arbiter 選項
type Option func(*Arbiter)

// WithTimeout 每個引擎的逾時
func WithTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithWorkers 同時執行的引擎數
func WithWorkers(n int) Option {
	return func(a *Arbiter) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithMetrics 記錄引擎耗時
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Arbiter) { a.metrics = m }
}

// NewArbiter 建立仲裁器
func NewArbiter(reg *Registry, opts ...Option) *Arbiter {
	a := &Arbiter{registry: reg, timeout: DefaultTimeout, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry 回傳引擎註冊表
func (a *Arbiter) Registry() *Registry {
	return a.registry
}

// Recognize 回傳最佳文字與報告；所有引擎都失敗時改用預設引擎且不計分，仍失敗則回傳空字串
func (a *Arbiter) Recognize(ctx context.Context, images []string, lang string) (string, Report) {
	var rep Report
	if a == nil || a.registry == nil {
		return "", rep
	}

	engines := a.registry.Engines()
	results := make([]EngineResult, len(engines))
	g := new(errgroup.Group)
	g.SetLimit(a.workers)
	for i, e := range engines {
		if err := e.Available(); err != nil {
			results[i] = EngineResult{Name: e.Name(), Error: err.Error()}
			continue
		}
		g.Go(func() error {
			results[i] = a.run(ctx, e, images, lang)
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i, res := range results {
		if !res.OK {
			continue
		}
		rep.Successes++
		if best < 0 || res.Score > results[best].Score {
			best = i
		}
	}
	rep.Engines = results

	if best >= 0 {
		rep.Selected = results[best].Name
		rep.SelectedScore = results[best].Score
		a.metrics.OCRWinner(rep.Selected)
		common.LogInfo("OCR arbitration completed",
			zap.String("selected", rep.Selected),
			zap.Int("score", rep.SelectedScore),
			zap.Int("successes", rep.Successes),
		)
		return results[best].text, rep
	}

	return a.fallback(ctx, images, lang, rep)
}

// fallback 以預設引擎再試一次
func (a *Arbiter) fallback(ctx context.Context, images []string, lang string, rep Report) (string, Report) {
	e, ok := a.registry.Default()
	if !ok || e.Available() != nil {
		common.LogWarn("OCR produced no text", zap.Int("engines", len(rep.Engines)))
		return "", rep
	}

	res := a.run(ctx, e, images, lang)
	res.Fallback = true
	res.Score = 0
	rep.Fallback = true
	rep.Engines = append(rep.Engines, res)
	if !res.OK {
		common.LogWarn("OCR default engine failed", zap.String("engine", e.Name()), zap.String("error", res.Error))
		return "", rep
	}
	rep.Successes++
	rep.Selected = res.Name
	a.metrics.OCRWinner(rep.Selected)
	return res.text, rep
}

type outcome struct {
	text string
	err  error
}

// run 在獨立的逾時內執行引擎；逾時後晚到的結果會被丟棄
func (a *Arbiter) run(ctx context.Context, e Engine, images []string, lang string) EngineResult {
	res := EngineResult{Name: e.Name(), Available: true}
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan outcome, 1)
	go func() {
		text, err := e.Recognize(cctx, images, lang)
		ch <- outcome{text: text, err: err}
	}()

	var o outcome
	select {
	case o = <-ch:
	case <-cctx.Done():
		o.err = cctx.Err()
	}
	elapsed := time.Since(start)
	res.TimeSec = elapsed.Seconds()

	status := "ok"
	switch {
	case o.err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.TimedOut = true
		res.Error = fmt.Sprintf("timeout>%gs", a.timeout.Seconds())
		status = "timeout"
	case o.err != nil:
		res.Error = common.Redact(o.err.Error())
		status = "error"
	default:
		res.OK = true
		res.text = o.text
		res.Score = Score(o.text)
	}
	a.metrics.ObserveOCR(res.Name, status, elapsed)
	common.LogDebug("OCR engine finished",
		zap.String("engine", res.Name),
		zap.String("status", status),
		zap.Duration("elapsed", elapsed),
		zap.Int("score", res.Score),
	)
	return res
}
