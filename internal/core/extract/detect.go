// Package extract 從 txt、docx、pdf 與圖片檔取出原始文字
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"recipe-extractor/internal/pkg/common"
)

// Kind 來源類型
type Kind string

const (
	KindText  Kind = "text"
	KindDocx  Kind = "docx"
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var imageMIMEs = []string{"image/png", "image/jpeg", "image/webp", "image/bmp", "image/tiff", "image/gif"}

// extensionKinds 內容偵測不明確時（例如 zip 或空白文字檔）以副檔名判斷
var extensionKinds = map[string]Kind{
	".txt": KindText, ".log": KindText,
	".docx": KindDocx,
	".pdf":  KindPDF,
	".png":  KindImage, ".jpg": KindImage, ".jpeg": KindImage, ".webp": KindImage,
	".bmp": KindImage, ".tif": KindImage, ".tiff": KindImage,
}

// Detect 以檔案內容判斷類型，必要時參考副檔名
func Detect(path string) (Kind, string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", "", fmt.Errorf("mime detection failed: %w", err)
	}
	kind, ok := kindOf(mtype, strings.ToLower(filepath.Ext(path)))
	if !ok {
		return "", mtype.String(), common.ErrUnsupportedFile.Wrap(fmt.Errorf("%s: %s", filepath.Base(path), mtype.String()))
	}
	return kind, mtype.String(), nil
}

func kindOf(mtype *mimetype.MIME, ext string) (Kind, bool) {
	switch {
	case mtype.Is(docxMIME):
		return KindDocx, true
	case mtype.Is("application/pdf"):
		return KindPDF, true
	case isText(mtype):
		return KindText, true
	}
	for _, m := range imageMIMEs {
		if mtype.Is(m) {
			return KindImage, true
		}
	}
	// 壓縮檔或無法辨識的內容才退回副檔名
	if mtype.Is("application/zip") && ext == ".docx" {
		return KindDocx, true
	}
	if mtype.Is("application/octet-stream") {
		if kind, ok := extensionKinds[ext]; ok && kind == KindText {
			return kind, true
		}
	}
	return "", false
}

// isText JSON、CSV 等文字格式在 mimetype 的樹中都是 text/plain 的子節點
func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Supported 副檔名是否在支援清單內
func Supported(path string) bool {
	_, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	return ok
}
