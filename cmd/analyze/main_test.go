package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/pipeline"
)

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(nil, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "usage")
	assert.Empty(t, stdout.String())
}

func TestRunTextFromStdin(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OCR_ENGINES", "paddle")
	t.Setenv("OCR_DEFAULT_ENGINE", "paddle")

	var stdout, stderr bytes.Buffer
	in := strings.NewReader("Titolo: Pesto\nPorzioni: 2\nIngredienti:\n- 50 g basilico\nProcedimento:\n1. Pestare")
	code := run([]string{"-no-ai", "-text", "-"}, in, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var res pipeline.Result
	require.NoError(t, sonic.Unmarshal(stdout.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Equal(t, "Pesto", res.Recipe.Title)
	assert.Empty(t, res.Diagnostics.AIProvider)
}

func TestRunFileFailure(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("OCR_ENGINES", "paddle")
	t.Setenv("OCR_DEFAULT_ENGINE", "paddle")
	path := filepath.Join(dir, "vuoto.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-no-ai", "-pretty", path}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)

	var res pipeline.Result
	require.NoError(t, sonic.Unmarshal(stdout.Bytes(), &res))
	assert.False(t, res.OK)
	assert.Contains(t, stdout.String(), "\n  \"ok\": false")
}

// chdir 切換工作目錄，測試結束後還原
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
