package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/pkg/common"
)

// 預設值
const (
	DefaultMaxFileBytes = 15 << 20
	DefaultTimeout      = 45 * time.Second
	DefaultRasterDPI    = 300
	// DefaultMinPDFText 文字層少於此長度時視為掃描檔改走 OCR
	DefaultMinPDFText = 40
)

// Config 取出設定
type Config struct {
	MaxFileBytes int64
	MaxDocxChars int
	MaxDocxRows  int
	Timeout      time.Duration
	PDFToPPM     string
	RasterDPI    int
	MinPDFText   int
	Lang         string
}

func (c *Config) defaults() {
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = DefaultMaxFileBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PDFToPPM == "" {
		c.PDFToPPM = "pdftoppm"
	}
	if c.RasterDPI <= 0 {
		c.RasterDPI = DefaultRasterDPI
	}
	if c.MinPDFText <= 0 {
		c.MinPDFText = DefaultMinPDFText
	}
	if c.Lang == "" {
		c.Lang = "ita"
	}
}

// Recognizer 圖片文字辨識，由 ocr.Arbiter 實作
type Recognizer interface {
	Recognize(ctx context.Context, images []string, lang string) (string, ocr.Report)
}

// Result 取出結果
type Result struct {
	Text   string      `json:"-"`
	Kinds  []Kind      `json:"kinds"`
	Engine string      `json:"engine,omitempty"`
	OCR    *ocr.Report `json:"ocr,omitempty"`
	Files  []string    `json:"files"`
}

// Extractor 文字取出器
type Extractor struct {
	cfg Config
	ocr Recognizer
}

// New 建立取出器；rec 為 nil 時圖片與掃描 PDF 無法處理
func New(cfg Config, rec Recognizer) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg, ocr: rec}
}

// Extract 取出多個檔案的文字；多檔時每段以 "# FILE: 名稱" 開頭，圖片一起辨識
func (e *Extractor) Extract(ctx context.Context, paths []string, lang string) (Result, error) {
	if lang == "" {
		lang = e.cfg.Lang
	}
	var (
		res      Result
		texts    []string
		images   []string
		firstErr error
	)
	multi := len(paths) > 1

	for _, p := range paths {
		kind, err := e.check(p)
		if err != nil {
			common.LogWarn("Skipping source file", zap.String("file", filepath.Base(p)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		res.Files = append(res.Files, filepath.Base(p))
		res.Kinds = append(res.Kinds, kind)
		if kind == KindImage {
			images = append(images, p)
			continue
		}

		text, rep, err := e.extractFile(ctx, p, kind, lang)
		if rep != nil {
			res.OCR = rep
			res.Engine = rep.Selected
		}
		if err != nil {
			common.LogWarn("Text extraction failed", zap.String("file", filepath.Base(p)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if text == "" {
			continue
		}
		if multi {
			text = "# FILE: " + filepath.Base(p) + "\n" + text
		}
		texts = append(texts, text)
	}

	if len(images) > 0 {
		text, rep := e.recognize(ctx, images, lang)
		res.OCR = &rep
		res.Engine = rep.Selected
		if text != "" {
			if multi {
				text = "# IMAGES OCR\n" + text
			}
			texts = append(texts, text)
		}
	}

	res.Text = strings.TrimSpace(strings.Join(texts, "\n\n"))
	if res.Text == "" {
		if firstErr != nil && !errors.Is(firstErr, common.ErrEmptyText) {
			return res, firstErr
		}
		return res, common.ErrEmptyText.Wrap(fmt.Errorf("%d file(s) produced no text", len(paths)))
	}
	return res, nil
}

// check 檢查檔案大小與類型
func (e *Extractor) check(path string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", common.ErrInvalidRequest.Wrap(err)
	}
	if info.Size() > e.cfg.MaxFileBytes {
		return "", common.ErrFileTooLarge.Wrap(fmt.Errorf("%s: %d bytes (max %d)", filepath.Base(path), info.Size(), e.cfg.MaxFileBytes))
	}
	kind, _, err := Detect(path)
	return kind, err
}

func (e *Extractor) extractFile(ctx context.Context, path string, kind Kind, lang string) (string, *ocr.Report, error) {
	switch kind {
	case KindText:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, err
		}
		text, err := DecodeText(data)
		return normalizeNewlines(text), nil, err
	case KindDocx:
		text, err := ReadDocx(path, e.cfg.MaxDocxChars, e.cfg.MaxDocxRows)
		return text, nil, err
	case KindPDF:
		return e.extractPDF(ctx, path, lang)
	}
	return "", nil, common.ErrUnsupportedFile.Wrap(fmt.Errorf("kind %s", kind))
}

// extractPDF 先取文字層，文字太少時轉圖片走 OCR
func (e *Extractor) extractPDF(ctx context.Context, path, lang string) (string, *ocr.Report, error) {
	tctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	text, err := pdfText(tctx, path)
	if err != nil {
		common.LogWarn("PDF text layer unreadable", zap.String("file", filepath.Base(path)), zap.Error(err))
	}
	if len([]rune(text)) >= e.cfg.MinPDFText || e.ocr == nil {
		return text, nil, err
	}

	pages, cleanup, perr := e.pdfPages(tctx, path)
	defer cleanup()
	if perr != nil {
		if text != "" {
			return text, nil, nil
		}
		return "", nil, perr
	}
	common.LogInfo("Scanned PDF, running OCR", zap.String("file", filepath.Base(path)), zap.Int("pages", len(pages)))
	ocrText, rep := e.recognize(ctx, pages, lang)
	if len(strings.TrimSpace(ocrText)) < len(strings.TrimSpace(text)) {
		return text, &rep, nil
	}
	return ocrText, &rep, nil
}

func (e *Extractor) recognize(ctx context.Context, images []string, lang string) (string, ocr.Report) {
	if e.ocr == nil {
		common.LogWarn("No OCR engine configured", zap.Int("images", len(images)))
		return "", ocr.Report{}
	}
	text, rep := e.ocr.Recognize(ctx, images, lang)
	return normalizeNewlines(text), rep
}
