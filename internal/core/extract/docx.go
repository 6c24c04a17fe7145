package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docx 限制
const (
	DefaultMaxDocxChars = 60000
	DefaultMaxDocxRows  = 2000
)

var errDocxBody = errors.New("word/document.xml not found")

// ReadDocx 讀取段落文字，接著是以 " | " 連接儲存格的表格列
func ReadDocx(path string, maxChars, maxRows int) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return parseDocumentXML(rc, maxChars, maxRows)
	}
	return "", errDocxBody
}

type docxState struct {
	paragraphs []string
	rows       []string
	chars      int
	maxChars   int
	maxRows    int

	tableDepth int
	para       strings.Builder
	inText     bool
	cell       []string
	cells      []string
}

func parseDocumentXML(r io.Reader, maxChars, maxRows int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxDocxChars
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxDocxRows
	}
	st := &docxState{maxChars: maxChars, maxRows: maxRows}

	dec := xml.NewDecoder(r)
	for !st.full() {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			st.start(t.Name.Local)
		case xml.EndElement:
			st.end(t.Name.Local)
		case xml.CharData:
			if st.inText {
				st.para.Write(t)
			}
		}
	}

	parts := append(st.paragraphs, st.rows...)
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func (s *docxState) full() bool {
	return s.chars >= s.maxChars || len(s.rows) >= s.maxRows
}

func (s *docxState) start(name string) {
	switch name {
	case "tbl":
		s.tableDepth++
	case "tr":
		if s.tableDepth == 1 {
			s.cells = nil
		}
	case "tc":
		if s.tableDepth == 1 {
			s.cell = nil
		}
	case "p":
		s.para.Reset()
	case "t":
		s.inText = true
	case "tab":
		s.para.WriteByte('\t')
	case "br", "cr":
		s.para.WriteByte('\n')
	}
}

func (s *docxState) end(name string) {
	switch name {
	case "t":
		s.inText = false
	case "p":
		text := strings.TrimSpace(s.para.String())
		s.para.Reset()
		if text == "" {
			return
		}
		if s.tableDepth > 0 {
			s.cell = append(s.cell, text)
			return
		}
		s.paragraphs = append(s.paragraphs, text)
		s.chars += len([]rune(text))
	case "tc":
		if s.tableDepth == 1 {
			if text := strings.TrimSpace(strings.Join(s.cell, " ")); text != "" {
				s.cells = append(s.cells, text)
			}
			s.cell = nil
		}
	case "tr":
		if s.tableDepth == 1 && len(s.cells) > 0 {
			line := strings.Join(s.cells, " | ")
			s.rows = append(s.rows, line)
			s.chars += len([]rune(line))
			s.cells = nil
		}
	case "tbl":
		if s.tableDepth > 0 {
			s.tableDepth--
		}
	}
}
