package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(docxBodyPath)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectType(t *testing.T) {
	require.Equal(t, TypePDF, DetectType("a.PDF", ""))
	require.Equal(t, TypeDOCX, DetectType("a.bin", docxMIME))
	require.Equal(t, TypeText, DetectType("notes", "text/plain; charset=utf-8"))
	require.Equal(t, TypeMarkdown, DetectType("readme.markdown", ""))
	require.Equal(t, "", DetectType("image.png", "image/png"))
}

func TestExtractUnsupported(t *testing.T) {
	_, err := NewRegistry().Extract(context.Background(), "photo.png", "", []byte("x"))
	require.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestExtractBrokenPDF(t *testing.T) {
	_, err := NewRegistry().Extract(context.Background(), "broken.pdf", "", []byte("not a pdf"))
	require.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestExtractDocx(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Data strategy</w:t></w:r><w:r><w:t xml:space="preserve"> overview</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>We run a cloud warehouse.</w:t></w:r></w:p>
</w:body>
</w:document>`
	res, err := NewRegistry().Extract(context.Background(), "plan.docx", "", buildDocx(t, body))
	require.NoError(t, err)
	require.Equal(t, "Data strategy overview\nWe run a cloud warehouse.\n", res.Text)
	require.Equal(t, 1, res.Pages)
}

func TestExtractDocxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = NewRegistry().Extract(context.Background(), "x.docx", "", buf.Bytes())
	require.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestExtractMarkdown(t *testing.T) {
	src := "# Governance\n\nWe have an **AI policy** and a [risk register](http://x).\n\n```\ncode line\n```\n"
	res, err := NewRegistry().Extract(context.Background(), "gov.md", "", []byte(src))
	require.NoError(t, err)
	require.Contains(t, res.Text, "Governance")
	require.Contains(t, res.Text, "We have an AI policy and a risk register.")
	require.Contains(t, res.Text, "code line")
	require.NotContains(t, res.Text, "**")
	require.NotContains(t, res.Text, "http://x")
}

func TestExtractTextPages(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 6001)
	res, err := NewRegistry().Extract(context.Background(), "big.txt", "", data)
	require.NoError(t, err)
	require.Equal(t, 3, res.Pages)
}
