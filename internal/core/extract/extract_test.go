package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/core/ocr"
	"recipe-extractor/internal/pkg/common"
)

type fakeRecognizer struct {
	text  string
	calls [][]string
}

func (f *fakeRecognizer) Recognize(_ context.Context, images []string, _ string) (string, ocr.Report) {
	f.calls = append(f.calls, images)
	return f.text, ocr.Report{Selected: "fake", Successes: 1}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Torta di zucca</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Ingredienti </w:t></w:r><w:r><w:t>per 8</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Zucca</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>500 g</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Uova</w:t></w:r></w:p></w:tc><w:tc><w:p></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>Procedimento</w:t><w:br/><w:t>Cuocere</w:t></w:r></w:p>
</w:body>
</w:document>`

func docxBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`},
		{"word/document.xml", documentXML},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseDocumentXML(t *testing.T) {
	text, err := parseDocumentXML(strings.NewReader(documentXML), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Torta di zucca\nIngredienti per 8\nProcedimento\nCuocere\nZucca | 500 g\nUova", text)

	text, err = parseDocumentXML(strings.NewReader(documentXML), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "Torta di zucca", text, "stops once the character budget is reached")
}

func TestDecodeText(t *testing.T) {
	text, err := DecodeText([]byte("\xEF\xBB\xBFPerò già"))
	require.NoError(t, err)
	assert.Equal(t, "Però già", text)

	latin1 := bytes.Repeat([]byte("La torta di zucca \xe8 pi\xf9 buona in autunno, perch\xe9 la citt\xe0 profuma di cannella. "), 8)
	text, err = DecodeText(latin1)
	require.NoError(t, err)
	assert.Contains(t, text, "città")
	assert.Contains(t, text, "più")
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ricetta.txt", []byte("Risotto\r\nIngredienti\r\n320 g riso\r\n"))

	res, err := New(Config{}, nil).Extract(context.Background(), []string{path}, "")
	require.NoError(t, err)
	assert.Equal(t, "Risotto\nIngredienti\n320 g riso", res.Text)
	assert.Equal(t, []Kind{KindText}, res.Kinds)
}

func TestExtractDocx(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "torta.docx", docxBytes(t))

	res, err := New(Config{}, nil).Extract(context.Background(), []string{path}, "")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindDocx}, res.Kinds)
	assert.Contains(t, res.Text, "Zucca | 500 g")
}

func TestExtractImagesAndHeaders(t *testing.T) {
	dir := t.TempDir()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 4, 4))))
	pic := writeFile(t, dir, "foto.png", img.Bytes())
	txt := writeFile(t, dir, "note.txt", []byte("Note dello chef"))

	rec := &fakeRecognizer{text: "200 g farina"}
	res, err := New(Config{}, rec).Extract(context.Background(), []string{txt, pic}, "ita")
	require.NoError(t, err)

	assert.Equal(t, "# FILE: note.txt\nNote dello chef\n\n# IMAGES OCR\n200 g farina", res.Text)
	assert.Equal(t, "fake", res.Engine)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{pic}, rec.calls[0])
}

func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()

	big := writeFile(t, dir, "big.txt", bytes.Repeat([]byte("a"), 64))
	_, err := New(Config{MaxFileBytes: 16}, nil).Extract(context.Background(), []string{big}, "")
	assert.ErrorIs(t, err, common.ErrFileTooLarge)

	bin := writeFile(t, dir, "dati.bin", []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff, 0x00, 0x10})
	_, err = New(Config{}, nil).Extract(context.Background(), []string{bin}, "")
	assert.ErrorIs(t, err, common.ErrUnsupportedFile)

	empty := writeFile(t, dir, "vuoto.txt", []byte("  \n "))
	_, err = New(Config{}, nil).Extract(context.Background(), []string{empty}, "")
	assert.ErrorIs(t, err, common.ErrEmptyText)
}

// textPDF 產生一頁 Helvetica 文字層的最小 PDF，每行以 T* 換行
func textPDF(lines ...string) []byte {
	var content strings.Builder
	content.WriteString("BT /F1 12 Tf 14 TL 72 720 Td\n")
	for i, l := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", l)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractPDFTextLayer(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"Torta di zucca", "Ingredienti", "500 g zucca", "3 uova", "Procedimento", "Cuocere in forno per 40 minuti"}
	path := writeFile(t, dir, "ricetta.pdf", textPDF(lines...))

	rec := &fakeRecognizer{text: "unused"}
	cfg := Config{PDFToPPM: filepath.Join(dir, "missing-pdftoppm")}
	res, err := New(cfg, rec).Extract(context.Background(), []string{path}, "")
	require.NoError(t, err)
	for _, l := range lines {
		assert.Contains(t, res.Text, l)
	}
	assert.Equal(t, []Kind{KindPDF}, res.Kinds)
	assert.Empty(t, rec.calls, "a readable text layer skips OCR")
}

func TestPDFTextUnreadable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rotto.pdf", []byte("%PDF-1.4\n%rotto\n"))
	_, err := pdfText(context.Background(), path)
	assert.ErrorIs(t, err, ErrPDFUnreadable)
}

func TestExtractScannedPDF(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	dir := t.TempDir()
	path := writeFile(t, dir, "scansione.pdf", textPDF())

	cfg := Config{PDFToPPM: writeScript(t, dir, "pdftoppm-pages", `touch "$5-10.png" "$5-2.png" "$5-1.png"`)}
	rec := &fakeRecognizer{text: "Zucca 500 g\nProcedimento"}
	res, err := New(cfg, rec).Extract(context.Background(), []string{path}, "")
	require.NoError(t, err)
	assert.Equal(t, "Zucca 500 g\nProcedimento", res.Text)
	require.Len(t, rec.calls, 1)
	pages := rec.calls[0]
	require.Len(t, pages, 3)
	assert.True(t, strings.HasSuffix(pages[0], "-1.png"))
	assert.True(t, strings.HasSuffix(pages[1], "-2.png"))
	assert.True(t, strings.HasSuffix(pages[2], "-10.png"))
	_, err = os.Stat(filepath.Dir(pages[0]))
	assert.True(t, os.IsNotExist(err), "rasterized pages are removed")
}
