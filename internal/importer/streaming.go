package importer

// streaming.go cleans an upload stream before it reaches the tokenizer.
//
//   - bomReader drops a leading UTF-8 byte-order mark (spreadsheet exports)
//   - utf8Sanitizer replaces invalid UTF-8 with U+FFFD instead of failing
//   - countingReader records how many bytes were consumed, for logging
//
// All three work chunk by chunk; the file is never held in memory twice.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips a UTF-8 BOM at the very start of the stream.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// utf8Sanitizer rewrites invalid UTF-8 sequences as U+FFFD. A multi-byte
// rune split across two reads is carried over rather than replaced.
type utf8Sanitizer struct {
	r     io.Reader
	buf   []byte
	carry []byte
	out   []byte
	err   error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, buf: make([]byte, 32*1024)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.out) == 0 && s.err == nil {
		n, err := s.r.Read(s.buf)
		s.err = err

		chunk := append(s.carry, s.buf[:n]...)
		s.carry = nil

		if err == nil {
			if hold := incompleteSuffix(chunk); hold > 0 {
				s.carry = append([]byte(nil), chunk[len(chunk)-hold:]...)
				chunk = chunk[:len(chunk)-hold]
			}
		}

		if utf8.Valid(chunk) {
			s.out = chunk
		} else {
			s.out = bytes.ToValidUTF8(chunk, []byte(string(utf8.RuneError)))
		}
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	if len(s.out) == 0 && s.err != nil {
		return n, s.err
	}
	return n, nil
}

// incompleteSuffix returns how many trailing bytes of b begin a rune that
// has not been fully read yet.
func incompleteSuffix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax+1; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return 0
			}
			return len(b) - i
		}
	}
	return 0
}

// countingReader counts bytes passed through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// wrapForParsing applies BOM stripping and UTF-8 repair, counting the raw
// bytes consumed from r.
func wrapForParsing(r io.Reader) (io.Reader, *countingReader) {
	counter := &countingReader{r: r}
	return newUTF8Sanitizer(newBOMReader(counter)), counter
}
