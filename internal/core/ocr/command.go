package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"recipe-extractor/internal/pkg/common"
)

// 指令參數中的佔位字
const (
	ImagePlaceholder = "{image}"
	LangPlaceholder  = "{lang}"
)

// Command 以外部指令執行的引擎，例如 "easyocr -l {lang} -f {image}"；指令輸出即為辨識文字
type Command struct {
	name string
	argv []string
}

// NewCommand 建立指令引擎；沒有 {image} 時圖片路徑附加在最後
func NewCommand(name, commandLine string) *Command {
	return &Command{name: name, argv: strings.Fields(commandLine)}
}

// Name 引擎名稱
func (c *Command) Name() string { return c.name }

// Available 檢查執行檔是否存在
func (c *Command) Available() error {
	if len(c.argv) == 0 {
		return fmt.Errorf("%w: %s has an empty command", ErrEngineUnavailable, c.name)
	}
	if _, err := exec.LookPath(c.argv[0]); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, c.name, err)
	}
	return nil
}

// Recognize 每張圖片執行一次指令
func (c *Command) Recognize(ctx context.Context, images []string, lang string) (string, error) {
	if err := c.Available(); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(images))
	for _, path := range images {
		out, err := c.exec(ctx, path, lang)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func (c *Command) exec(ctx context.Context, image, lang string) (string, error) {
	args := make([]string, 0, len(c.argv))
	hasImage := false
	for _, a := range c.argv[1:] {
		if strings.Contains(a, ImagePlaceholder) {
			hasImage = true
		}
		a = strings.ReplaceAll(a, ImagePlaceholder, image)
		a = strings.ReplaceAll(a, LangPlaceholder, lang)
		args = append(args, a)
	}
	if !hasImage {
		args = append(args, image)
	}

	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := common.Truncate(strings.TrimSpace(stderr.String()), 300, "...")
			return "", fmt.Errorf("%s exited with %d: %s", c.name, exitErr.ExitCode(), msg)
		}
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	return string(out), nil
}
