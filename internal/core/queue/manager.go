// Package queue 有界的文件處理佇列，固定數量的 worker 依序執行流程
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"recipe-extractor/internal/core/pipeline"
	"recipe-extractor/internal/pkg/common"
	"recipe-extractor/internal/pkg/metrics"

	"go.uber.org/zap"
)

var errClosed = errors.New("queue manager is closed")

// Runner 執行單一文件
type Runner interface {
	Run(ctx context.Context, doc pipeline.Document) pipeline.Result
}

// Config 佇列設定
type Config struct {
	Workers    int
	MaxSize    int
	JobTimeout time.Duration
}

// Job 隊列中的一份文件
type Job struct {
	ID         string
	Document   pipeline.Document
	EnqueuedAt time.Time

	ctx    context.Context
	result chan pipeline.Result
}

// Status 隊列狀態
type Status struct {
	QueueLength    int  `json:"queue_length"`
	Active         int  `json:"active"`
	ProcessedCount int  `json:"processed_count"`
	MaxQueueSize   int  `json:"max_queue_size"`
	Workers        int  `json:"workers"`
	Running        bool `json:"running"`
}

// Manager 隊列管理器
type Manager struct {
	config  Config
	runner  Runner
	metrics *metrics.Metrics

	queue     chan *Job
	done      chan struct{}
	wg        sync.WaitGroup
	processed int64
	active    int64

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewManager 創建新的隊列管理器
func NewManager(cfg Config, runner Runner, m *metrics.Metrics) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	return &Manager{
		config:  cfg,
		runner:  runner,
		metrics: m,
		queue:   make(chan *Job, cfg.MaxSize),
		done:    make(chan struct{}),
	}
}

// Start 啟動 worker；重複呼叫無作用
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	for i := 0; i < m.config.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("Queue workers started",
		zap.Int("workers", m.config.Workers),
		zap.Int("max_queue_size", m.config.MaxSize),
	)
}

// Enqueue 將文件加入隊列；佇列已滿時立即回傳 ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, doc pipeline.Document) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, common.ErrServiceUnavailable.Wrap(errClosed)
	}

	if doc.RunID == "" {
		doc.RunID = common.GenerateUUID()
	}
	job := &Job{
		ID:         doc.RunID,
		Document:   doc,
		EnqueuedAt: time.Now(),
		ctx:        ctx,
		result:     make(chan pipeline.Result, 1),
	}

	select {
	case m.queue <- job:
		m.updateGauges()
		common.LogDebug("Request enqueued",
			zap.String("run_id", job.ID),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return job, nil
	default:
		return nil, common.ErrQueueFull
	}
}

// Wait 等待結果或 ctx 結束
func (j *Job) Wait(ctx context.Context) (pipeline.Result, error) {
	select {
	case res := <-j.result:
		return res, nil
	case <-ctx.Done():
		return pipeline.Result{}, common.ErrRequestTimeout.Wrap(ctx.Err())
	}
}

// Process 加入隊列並等待結果
func (m *Manager) Process(ctx context.Context, doc pipeline.Document) (pipeline.Result, error) {
	job, err := m.Enqueue(ctx, doc)
	if err != nil {
		return pipeline.Result{}, err
	}
	return job.Wait(ctx)
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case job := <-m.queue:
			m.run(id, job)
		}
	}
}

func (m *Manager) run(worker int, job *Job) {
	atomic.AddInt64(&m.active, 1)
	m.updateGauges()
	defer func() {
		atomic.AddInt64(&m.active, -1)
		atomic.AddInt64(&m.processed, 1)
		m.updateGauges()
	}()

	ctx := job.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		job.result <- errorResult(job, common.ErrRequestTimeout.Wrap(err))
		return
	}
	if m.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.JobTimeout)
		defer cancel()
	}

	common.LogDebug("Job started",
		zap.Int("worker", worker),
		zap.String("run_id", job.ID),
		zap.Duration("waited", time.Since(job.EnqueuedAt)),
	)
	job.result <- m.runner.Run(ctx, job.Document)
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Status{
		QueueLength:    len(m.queue),
		Active:         int(atomic.LoadInt64(&m.active)),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
		Running:        m.started && !m.closed,
	}
}

func (m *Manager) updateGauges() {
	m.metrics.SetQueue(len(m.queue), int(atomic.LoadInt64(&m.active)))
}

// Close 停止接收新文件，等待 worker 結束，仍在佇列中的文件回傳錯誤結果
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	for {
		select {
		case job := <-m.queue:
			job.result <- errorResult(job, common.ErrServiceUnavailable.Wrap(errClosed))
		default:
			m.updateGauges()
			return
		}
	}
}

func errorResult(job *Job, err error) pipeline.Result {
	return pipeline.Result{
		Status:      pipeline.StatusError,
		Error:       common.Redact(err.Error()),
		Err:         err,
		Diagnostics: pipeline.Diagnostics{RunID: job.ID},
	}
}
