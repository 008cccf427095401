package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	docxBodyPath          = "word/document.xml"
	docxParagraphsPerPage = 25
	docxMaxBodyBytes      = 64 << 20
)

type docxExtractor struct{}

// Extract reads paragraph text from word/document.xml. Paragraphs are
// separated by newlines and table cells by tabs.
func (d *docxExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open docx: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPath {
			body = f
			break
		}
	}
	if body == nil {
		return Result{}, fmt.Errorf("docx has no %s", docxBodyPath)
	}
	rc, err := body.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open docx body: %w", err)
	}
	defer rc.Close()
	return parseDocxBody(ctx, io.LimitReader(rc, docxMaxBodyBytes))
}

func parseDocxBody(ctx context.Context, r io.Reader) (Result, error) {
	dec := xml.NewDecoder(r)
	var (
		sb         strings.Builder
		para       strings.Builder
		inText     bool
		paragraphs int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("decode docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "tc":
				para.WriteByte('\t')
			case "p":
				line := strings.TrimSpace(para.String())
				para.Reset()
				if line == "" {
					continue
				}
				paragraphs++
				sb.WriteString(line)
				sb.WriteByte('\n')
				if paragraphs%100 == 0 {
					if err := ctx.Err(); err != nil {
						return Result{}, err
					}
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	pages := (paragraphs + docxParagraphsPerPage - 1) / docxParagraphsPerPage
	if pages == 0 && sb.Len() > 0 {
		pages = 1
	}
	return Result{Text: sb.String(), Pages: pages}, nil
}
