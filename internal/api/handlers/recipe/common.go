package recipe

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxFiles 單次請求可上傳的檔案數
const MaxFiles = 20

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

// sanitizeFilename 只保留檔名本身並移除路徑與控制字元
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSpace(unsafeNameChars.ReplaceAllString(name, "_"))
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "_" {
		return "upload"
	}
	return name
}

// uploadedFiles 收集 files 與 file 兩個欄位的上傳檔案
func uploadedFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	files := append([]*multipart.FileHeader(nil), form.File["files"]...)
	return append(files, form.File["file"]...)
}

// saveUploads 存入 dir，回傳存檔路徑與原始檔名；同名檔加上序號前綴
func saveUploads(c *gin.Context, dir string, files []*multipart.FileHeader) ([]string, []string, error) {
	paths := make([]string, 0, len(files))
	names := make([]string, 0, len(files))
	used := make(map[string]bool, len(files))

	for i, fh := range files {
		name := sanitizeFilename(fh.Filename)
		if used[strings.ToLower(name)] {
			name = fmt.Sprintf("%02d_%s", i+1, name)
		}
		used[strings.ToLower(name)] = true

		dst := filepath.Join(dir, name)
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return nil, nil, fmt.Errorf("save %s: %w", name, err)
		}
		paths = append(paths, dst)
		names = append(names, name)
	}
	return paths, names, nil
}

// removeDir 清除暫存目錄
func removeDir(dir string) {
	if dir != "" {
		_ = os.RemoveAll(dir)
	}
}
