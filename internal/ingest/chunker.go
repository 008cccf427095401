package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 0.15
	minChunkSize        = 50
)

type Span struct {
	Start int
	End   int
}

// Chunker splits cleaned text into overlapping spans bounded by a character
// budget. Spans are byte offsets on rune boundaries; boundaries prefer a
// paragraph break, then a line break, then a sentence end, then any space.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size int, overlap float64) *Chunker {
	if size <= 0 {
		size = defaultChunkSize
	}
	if size < minChunkSize {
		size = minChunkSize
	}
	if overlap < 0 || overlap >= 0.5 {
		overlap = defaultChunkOverlap
	}
	return &Chunker{size: size, overlap: int(float64(size) * overlap)}
}

func (c *Chunker) Split(text string) []Span {
	var spans []Span
	pos := 0
	for pos < len(text) {
		end := advanceRunes(text, pos, c.size)
		if end < len(text) {
			end = c.boundary(text, pos, end)
		}
		if strings.TrimSpace(text[pos:end]) != "" {
			spans = append(spans, Span{Start: pos, End: end})
		}
		if end >= len(text) {
			break
		}
		pos = c.nextStart(text, pos, end)
	}
	return spans
}

// boundary moves end back to a natural break, but never below half of the
// budget so chunks keep a useful size.
func (c *Chunker) boundary(text string, start, end int) int {
	floor := advanceRunes(text, start, c.size/2)
	window := text[floor:end]
	for _, sep := range []string{"\n\n", "\n", ". ", " "} {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return floor + idx + len(sep)
		}
	}
	return end
}

// nextStart steps back overlap runes from end and then forward to the next
// word start, so the following chunk starts strictly inside the previous
// one and strictly after its start.
func (c *Chunker) nextStart(text string, start, end int) int {
	if c.overlap == 0 {
		return end
	}
	next := retreatRunes(text, end, c.overlap)
	if next <= start {
		next = advanceRunes(text, start, 1)
	}
	for i := next; i < end; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			if i+size < end {
				return i + size
			}
			break
		}
		i += size
	}
	if next >= end {
		return end
	}
	return next
}

func advanceRunes(text string, pos int, n int) int {
	for n > 0 && pos < len(text) {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
		n--
	}
	return pos
}

func retreatRunes(text string, pos int, n int) int {
	for n > 0 && pos > 0 {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
		n--
	}
	return pos
}
