package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"recipe-extractor/internal/pkg/common"
)

var (
	// ErrToolMissing 外部工具不存在
	ErrToolMissing = errors.New("external tool not found")
	// ErrPDFUnreadable PDF 結構無法解析
	ErrPDFUnreadable = errors.New("unreadable pdf")
)

// runTool 執行外部工具並回傳 stdout；錯誤訊息包含截斷後的 stderr
func runTool(ctx context.Context, bin string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, bin)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("%s failed: %w: %s", bin, err, msg)
	}
	return out, nil
}

// pdfText 以 ledongthuc/pdf 逐頁取出文字層，頁與頁之間空一行
func pdfText(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrPDFUnreadable, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPDFUnreadable, err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			common.LogDebug("PDF page without readable text", zap.String("file", filepath.Base(path)), zap.Int("page", i), zap.Error(err))
			continue
		}
		if s = strings.TrimSpace(normalizeNewlines(s)); s != "" {
			pages = append(pages, s)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// pdfPages 以 pdftoppm 將每頁轉為 PNG，回傳依頁碼排序的路徑與清理函式
func (e *Extractor) pdfPages(ctx context.Context, path string) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "recipe-pdf-*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	prefix := filepath.Join(dir, "page")
	if _, err := runTool(ctx, e.cfg.PDFToPPM, "-r", fmt.Sprint(e.cfg.RasterDPI), "-png", path, prefix); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	sort.Slice(pages, func(i, j int) bool {
		if len(pages[i]) != len(pages[j]) {
			return len(pages[i]) < len(pages[j])
		}
		return pages[i] < pages[j]
	})
	return pages, cleanup, nil
}
