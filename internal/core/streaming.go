package core

// streaming.go provides the reader and writer wrappers applied to every CSV
// stream.
//
//   - DecodingReader / EncodingWriter: convert between the file's resolved
//     text encoding and UTF-8 using golang.org/x/text
//   - BOMSkippingReader: removes a UTF-8 BOM and remembers it was there
//   - LineEndingSniffer: records whether the file uses CRLF line endings
//   - CountingReader: tracks bytes read for progress logging
//
// Use WrapForStreaming to apply them in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding has been resolved for a file.
const DefaultEncoding = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LookupEncoding resolves an encoding label such as "utf-8", "windows-1252"
// or "latin1". The returned name is canonical. A nil Encoding means the
// stream is UTF-8 and needs no transformation.
func LookupEncoding(label string) (encoding.Encoding, string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultEncoding
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, "", fmt.Errorf("%w %q", ErrUnknownEncoding, label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, "", fmt.Errorf("%w %q", ErrUnknownEncoding, label)
	}
	if name == DefaultEncoding {
		return nil, name, nil
	}
	return enc, name, nil
}

// DecodingReader wraps r so that it yields UTF-8 text. UTF-8 input is passed
// through untouched so invalid bytes survive a round trip.
func DecodingReader(r io.Reader, label string) (io.Reader, string, error) {
	enc, name, err := LookupEncoding(label)
	if err != nil {
		return nil, "", err
	}
	if enc == nil {
		return r, name, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), name, nil
}

// EncodingWriter wraps w so that UTF-8 text written to it is stored in the
// named encoding. The caller must Close the returned writer to flush it.
func EncodingWriter(w io.Writer, label string) (io.WriteCloser, error) {
	enc, _, err := LookupEncoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nopWriteCloser{w}, nil
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder())), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
// The UTF-8 BOM is 0xEF 0xBB 0xBF and is commonly added by Windows programs.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
	found   bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
			r.found = true
		}
	}
	return r.br.Read(p)
}

// Found reports whether a BOM was skipped. Valid after the first Read.
func (r *BOMSkippingReader) Found() bool { return r.found }

// LineEndingSniffer records whether the first line of a stream ends in CRLF.
type LineEndingSniffer struct {
	reader  io.Reader
	decided bool
	crlf    bool
	prevCR  bool
}

// NewLineEndingSniffer creates a sniffer over r.
func NewLineEndingSniffer(r io.Reader) *LineEndingSniffer {
	return &LineEndingSniffer{reader: r}
}

// Read implements io.Reader.
func (s *LineEndingSniffer) Read(p []byte) (int, error) {
	n, err := s.reader.Read(p)
	if !s.decided {
		for _, b := range p[:n] {
			if b == '\n' {
				s.crlf = s.prevCR
				s.decided = true
				break
			}
			s.prevCR = b == '\r'
		}
	}
	return n, err
}

// CRLF reports whether the first line break seen was "\r\n".
func (s *LineEndingSniffer) CRLF() bool { return s.crlf }

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// StreamState exposes what the wrappers applied by WrapForStreaming learned
// about the stream. Query it after the header has been read.
type StreamState struct {
	encoding string
	bom      *BOMSkippingReader
	sniffer  *LineEndingSniffer
	counter  *CountingReader
}

// Format returns the on-disk format needed to write the stream back.
func (s *StreamState) Format() Format {
	return Format{Encoding: s.encoding, BOM: s.bom.Found(), CRLF: s.sniffer.CRLF()}
}

// BytesRead returns the number of raw bytes consumed so far.
func (s *StreamState) BytesRead() int64 { return s.counter.BytesRead }

// WrapForStreaming wraps a raw file stream for CSV parsing.
//
// The order matters:
//  1. Bytes are counted as they come off the source
//  2. The encoding is decoded to UTF-8
//  3. The BOM is stripped from the decoded text
//  4. Line endings are sniffed last, on the text the CSV parser sees
func WrapForStreaming(r io.Reader, label string, totalSize int64) (io.Reader, *StreamState, error) {
	counter := NewCountingReader(r, totalSize)
	decoded, name, err := DecodingReader(counter, label)
	if err != nil {
		return nil, nil, err
	}
	bom := NewBOMSkippingReader(decoded)
	sniffer := NewLineEndingSniffer(bom)
	return sniffer, &StreamState{encoding: name, bom: bom, sniffer: sniffer, counter: counter}, nil
}
