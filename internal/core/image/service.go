// Package image OCR 前的圖片前處理
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	_ "image/gif"  // 支援 GIF
	_ "image/jpeg" // 支援 JPEG

	_ "golang.org/x/image/bmp"  // 支援 BMP
	_ "golang.org/x/image/tiff" // 支援 TIFF
	_ "golang.org/x/image/webp" // 支援 WebP

	"golang.org/x/image/draw"
)

var (
	// ErrImageTooLarge 圖片超過大小上限
	ErrImageTooLarge = errors.New("image too large")
	// ErrBlankImage 空白頁
	ErrBlankImage = errors.New("blank image")
)

// DefaultMaxSide 預設最長邊
const DefaultMaxSide = 2400

// Service 圖片前處理服務
type Service struct {
	maxSizeBytes int64
	maxSide      int
}

// NewService 創建圖片前處理服務；maxSide <= 0 時使用 DefaultMaxSide
func NewService(maxSizeBytes int64, maxSide int) *Service {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Service{
		maxSizeBytes: maxSizeBytes,
		maxSide:      maxSide,
	}
}

// PrepareFile 讀取圖片檔並轉為灰階 PNG
func (s *Service) PrepareFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return s.Prepare(f)
}

// Prepare 解碼圖片，縮小到最長邊上限，轉灰階後編碼為 PNG
func (s *Service) Prepare(r io.Reader) ([]byte, error) {
	if s.maxSizeBytes > 0 {
		r = io.LimitReader(r, s.maxSizeBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if s.maxSizeBytes > 0 && int64(len(data)) > s.maxSizeBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrImageTooLarge, s.maxSizeBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}
	if IsBlank(img) {
		return nil, ErrBlankImage
	}

	gray := s.grayscale(img)
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// grayscale 依比例縮放並轉為灰階
func (s *Service) grayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), s.maxSide)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Fit 回傳縮放後尺寸；最長邊不超過 maxSide，不放大
func Fit(w, h, maxSide int) (int, int) {
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return w, h
	}
	scale := float64(maxSide) / float64(longest)
	return max(1, int(float64(w)*scale+0.5)), max(1, int(float64(h)*scale+0.5))
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
		"bmp":  true,
		"tiff": true,
	}
	return supportedFormats[format]
}

// IsBlank 圖片是否幾乎沒有內容（全白或全黑），用於略過空白掃描頁
func IsBlank(img image.Image) bool {
	b := img.Bounds()
	if b.Empty() {
		return true
	}
	first := color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray).Y
	step := max(1, min(b.Dx(), b.Dy())/64)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			v := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			if diff := int(v) - int(first); diff > 24 || diff < -24 {
				return false
			}
		}
	}
	return true
}
