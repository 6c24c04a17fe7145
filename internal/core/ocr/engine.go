// Package ocr 以多個 OCR 引擎辨識圖片並依文字品質選出最佳結果
package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"recipe-extractor/internal/core/image"
)

// ErrEngineUnavailable 引擎未安裝或未設定
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Engine OCR 引擎
type Engine interface {
	Name() string
	// Available 探測引擎是否可用；不可用不是錯誤，只會記錄在報告中
	Available() error
	Recognize(ctx context.Context, images []string, lang string) (string, error)
}

// EngineInfo 引擎狀態
type EngineInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Default   bool   `json:"default"`
	Error     string `json:"error,omitempty"`
}

// Registry 已註冊的引擎，依註冊順序保存；啟動時註冊完成後只讀
type Registry struct {
	mu          sync.RWMutex
	engines     []Engine
	defaultName string
}

// NewRegistry 建立空的引擎註冊表
func NewRegistry() *Registry {
	return &Registry{}
}

// Register 註冊引擎；同名引擎會被取代但保留原本順序
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.engines {
		if cur.Name() == e.Name() {
			r.engines[i] = e
			return
		}
	}
	r.engines = append(r.engines, e)
}

// SetDefault 設定全部失敗時使用的引擎
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// Engines 依註冊順序回傳引擎
func (r *Registry) Engines() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Engine(nil), r.engines...)
}

// Default 回傳預設引擎
func (r *Registry) Default() (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.engines {
		if e.Name() == r.defaultName {
			return e, true
		}
	}
	return nil, false
}

// Info 各引擎的可用狀態
func (r *Registry) Info() []EngineInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EngineInfo, 0, len(r.engines))
	for _, e := range r.engines {
		info := EngineInfo{Name: e.Name(), Available: true, Default: e.Name() == r.defaultName}
		if err := e.Available(); err != nil {
			info.Available = false
			info.Error = err.Error()
		}
		out = append(out, info)
	}
	return out
}

// unavailable 設定中列出但沒有實作或指令的引擎
type unavailable struct {
	name string
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Available() error {
	return fmt.Errorf("%w: %s has no command configured", ErrEngineUnavailable, u.name)
}

func (u unavailable) Recognize(context.Context, []string, string) (string, error) {
	return "", u.Available()
}

// Build 依設定建立註冊表："tesseract" 使用內建引擎，其餘名稱使用 commands 中的指令
func Build(names []string, defaultName string, commands map[string]string, pre *image.Service) *Registry {
	reg := NewRegistry()
	for _, name := range names {
		switch {
		case name == TesseractName:
			reg.Register(NewTesseract(pre))
		case commands[name] != "":
			reg.Register(NewCommand(name, commands[name]))
		default:
			reg.Register(unavailable{name: name})
		}
	}
	reg.SetDefault(defaultName)
	return reg
}
