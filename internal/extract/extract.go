package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailed  = errors.New("document extraction failed")
)

const (
	TypePDF      = "pdf"
	TypeDOCX     = "docx"
	TypeText     = "txt"
	TypeMarkdown = "md"
)

type Result struct {
	Text  string
	Pages int
}

type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

type Registry struct {
	items map[string]Extractor
}

// NewRegistry returns a registry holding the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{items: map[string]Extractor{}}
	r.Register(TypePDF, &pdfExtractor{})
	r.Register(TypeDOCX, &docxExtractor{})
	r.Register(TypeText, &textExtractor{})
	r.Register(TypeMarkdown, &markdownExtractor{})
	return r
}

func (r *Registry) Register(kind string, e Extractor) {
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "" || e == nil {
		return
	}
	r.items[key] = e
}

func (r *Registry) Supports(kind string) bool {
	_, ok := r.items[kind]
	return ok
}

// Extract resolves the document type and runs the matching extractor.
// Extractor failures and panics are reported as ErrExtractionFailed.
func (r *Registry) Extract(ctx context.Context, name string, declaredType string, data []byte) (res Result, err error) {
	kind := DetectType(name, declaredType)
	e, ok := r.items[kind]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	defer func() {
		if rec := recover(); rec != nil {
			logutil.GetLogger(ctx).Error("extractor panic", zap.String("name", name), zap.Any("panic", rec))
			res = Result{}
			err = fmt.Errorf("%w: %s: %v", ErrExtractionFailed, name, rec)
		}
	}()
	res, err = e.Extract(ctx, data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, name, err)
	}
	return res, nil
}

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var mimeTypes = map[string]string{
	"application/pdf": TypePDF,
	docxMIME:          TypeDOCX,
	"text/plain":      TypeText,
	"text/markdown":   TypeMarkdown,
	"text/x-markdown": TypeMarkdown,
}

var extensions = map[string]string{
	".pdf":      TypePDF,
	".docx":     TypeDOCX,
	".txt":      TypeText,
	".text":     TypeText,
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
}

// DetectType maps a declared type (short name or MIME type) or, failing
// that, the file extension to an extractor key.
func DetectType(name string, declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	switch declared {
	case TypePDF, TypeDOCX, TypeText, TypeMarkdown:
		return declared
	}
	if kind, ok := mimeTypes[declared]; ok {
		return kind
	}
	if kind, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return ""
}
