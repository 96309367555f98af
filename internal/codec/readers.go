package codec

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader over r with a leading UTF-8 byte order mark
// removed. Spreadsheet exports on Windows commonly start with one, and it
// would otherwise end up glued to the first header name.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// Sanitizer replaces bytes that are not valid UTF-8 with '?' while
// streaming. A multi-byte sequence split across two reads is carried over
// to the next read instead of being replaced.
type Sanitizer struct {
	r       io.Reader
	pending []byte
	// Replaced counts the bytes rewritten so far.
	Replaced int
}

// NewSanitizer wraps r.
func NewSanitizer(r io.Reader) *Sanitizer {
	return &Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes ready to
// hand out. Unless atEOF, an incomplete trailing sequence is held back.
func (s *Sanitizer) sanitize(data []byte, atEOF bool) int {
	end := len(data)
	if !atEOF {
		end -= incompleteTail(data)
		s.pending = append(s.pending, data[end:]...)
	}

	w := 0
	for r := 0; r < end; {
		c, size := utf8.DecodeRune(data[r:end])
		if c == utf8.RuneError && size == 1 {
			data[w] = '?'
			s.Replaced++
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// incompleteTail returns how many trailing bytes of data start a multi-byte
// sequence that has not been completed yet.
func incompleteTail(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		c := data[len(data)-i]
		if c&0xC0 == 0x80 {
			continue
		}
		if c >= 0xC0 && i < seqLen(c) {
			return i
		}
		return 0
	}
	return 0
}

func seqLen(lead byte) int {
	switch {
	case lead < 0xC0:
		return 1
	case lead < 0xE0:
		return 2
	case lead < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader tracks the number of bytes read through it.
type CountingReader struct {
	r io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.N += int64(n)
	return n, err
}

// wrap applies BOM removal, UTF-8 sanitizing and counting, in that order.
func wrap(r io.Reader) (*CountingReader, *Sanitizer) {
	san := NewSanitizer(SkipBOM(r))
	return &CountingReader{r: san}, san
}
