package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"recipe-extractor/internal/core/image"
	"recipe-extractor/internal/pkg/common"
)

// TesseractName 內建 tesseract 引擎名稱
const TesseractName = "tesseract"

// Tesseract 透過 libtesseract 辨識；圖片先經過灰階與縮放前處理
type Tesseract struct {
	pre *image.Service
}

// NewTesseract 建立 tesseract 引擎；pre 為 nil 時直接讀取原圖
func NewTesseract(pre *image.Service) *Tesseract {
	return &Tesseract{pre: pre}
}

// Name 引擎名稱
func (t *Tesseract) Name() string { return TesseractName }

// Available 檢查 libtesseract 是否可用
func (t *Tesseract) Available() error {
	if gosseract.Version() == "" {
		return fmt.Errorf("%w: libtesseract not found", ErrEngineUnavailable)
	}
	return nil
}

// Recognize 逐頁辨識並合併文字；空白頁略過
func (t *Tesseract) Recognize(ctx context.Context, images []string, lang string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if lang != "" {
		if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			return "", fmt.Errorf("tesseract language %q: %w", lang, err)
		}
	}

	parts := make([]string, 0, len(images))
	for _, path := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := t.load(client, path); err != nil {
			if errors.Is(err, image.ErrBlankImage) {
				common.LogDebug("Skipping blank page", zap.String("image", path))
				continue
			}
			return "", err
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("tesseract %s: %w", path, err)
		}
		parts = append(parts, strings.TrimSpace(text))
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func (t *Tesseract) load(client *gosseract.Client, path string) error {
	if t.pre == nil {
		return client.SetImage(path)
	}
	data, err := t.pre.PrepareFile(path)
	if err != nil {
		if errors.Is(err, image.ErrBlankImage) {
			return err
		}
		common.LogDebug("Preprocessing failed, using original image", zap.String("image", path), zap.Error(err))
		return client.SetImage(path)
	}
	return client.SetImageFromBytes(data)
}
