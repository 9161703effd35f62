package core

// reader.go provides the lazy, row-at-a-time reader over one CSV file.
//
// The header is read and bound to the layout in NewReader, so a schema
// problem is reported before the first row is yielded. After that the
// reader holds at most one row in memory. Typed iteration goes through
// Each/Collect with an explicit RowPolicy deciding what a malformed row does.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// RowPolicy decides how typed iteration reacts to a malformed row.
type RowPolicy int

const (
	// AbortOnError stops at the first malformed row and returns its error.
	AbortOnError RowPolicy = iota
	// SkipAndReport skips malformed rows and returns them after the pass.
	SkipAndReport
)

func (p RowPolicy) String() string {
	if p == SkipAndReport {
		return "skip-and-report"
	}
	return "abort-on-error"
}

// Reader yields the data rows of one file in order.
type Reader struct {
	path    string
	layout  *Layout
	csv     *csv.Reader
	state   *StreamState
	mapping *Mapping
	closer  io.Closer
}

// NewReader reads and binds the header of r. label names the text encoding
// resolved by the caller; an empty label means UTF-8.
func NewReader(r io.Reader, layout *Layout, label string) (*Reader, error) {
	return newReader(r, layout, label, 0, "")
}

// Open opens path and returns a reader over it. The caller must Close it.
func Open(path string, layout *Layout, label string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", layout.Kind, err)
	}
	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	rd, err := newReader(file, layout, label, size, path)
	if err != nil {
		file.Close()
		return nil, err
	}
	rd.closer = file
	return rd, nil
}

func newReader(r io.Reader, layout *Layout, label string, size int64, path string) (*Reader, error) {
	wrapped, state, err := WrapForStreaming(r, label, size)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(wrapped)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaMismatchError{Kind: layout.Kind, Path: path, Reason: "file is empty"}
	}
	if err != nil {
		return nil, &SchemaMismatchError{Kind: layout.Kind, Path: path, Reason: "unreadable header: " + err.Error()}
	}

	mapping, err := Bind(layout, header)
	if err != nil {
		var sm *SchemaMismatchError
		if errors.As(err, &sm) {
			sm.Path = path
		}
		return nil, err
	}

	return &Reader{
		path:    path,
		layout:  layout,
		csv:     cr,
		state:   state,
		mapping: mapping,
	}, nil
}

// Next returns the next data row, or io.EOF after the last one.
// A malformed row is returned as *RowParseError; reading may continue.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		// encoding/csv keeps no copy of the text it consumed, so Raw is the
		// record it returned with the error, if any. With LazyQuotes set a
		// bad quote is read as text and reaches the field count check below.
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			perr := &RowParseError{
				Kind:   r.layout.Kind,
				Line:   pe.StartLine,
				Reason: pe.Err.Error(),
			}
			if record != nil {
				perr.Raw = encodeLine(record)
			}
			return Row{}, perr
		}
		return Row{}, fmt.Errorf("read %s file: %w", r.layout.Kind, err)
	}

	line, _ := r.csv.FieldPos(0)
	row := Row{Line: line, Cells: record}
	if want := len(r.mapping.header); len(record) != want {
		return Row{}, &RowParseError{
			Kind:   r.layout.Kind,
			Line:   line,
			Raw:    row.String(),
			Reason: fmt.Sprintf("wrong number of fields: got %d, want %d", len(record), want),
		}
	}
	return row, nil
}

// Mapping returns the header binding.
func (r *Reader) Mapping() *Mapping { return r.mapping }

// Header returns the header cells in file order.
func (r *Reader) Header() []string { return r.mapping.header }

// Layout returns the layout the reader was opened with.
func (r *Reader) Layout() *Layout { return r.layout }

// Path returns the file path, empty for readers over a plain stream.
func (r *Reader) Path() string { return r.path }

// Format returns the on-disk format detected while reading the header.
func (r *Reader) Format() Format { return r.state.Format() }

// BytesRead returns the raw bytes consumed so far.
func (r *Reader) BytesRead() int64 { return r.state.BytesRead() }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Each decodes every remaining row and passes it to fn. With SkipAndReport,
// malformed rows are collected and returned; with AbortOnError the first one
// is returned as the error. An error from fn stops the pass.
func Each[T any](r *Reader, policy RowPolicy, decode func(*Mapping, Row) (T, error), fn func(T) error) ([]*RowParseError, error) {
	var skipped []*RowParseError
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return skipped, nil
		}
		var rec T
		if err == nil {
			rec, err = decode(r.mapping, row)
		}
		if err != nil {
			var pe *RowParseError
			if policy == SkipAndReport && errors.As(err, &pe) {
				skipped = append(skipped, pe)
				continue
			}
			return skipped, err
		}
		if err := fn(rec); err != nil {
			return skipped, err
		}
	}
}

// Collect decodes every remaining row into a slice.
func Collect[T any](r *Reader, policy RowPolicy, decode func(*Mapping, Row) (T, error)) ([]T, []*RowParseError, error) {
	var out []T
	skipped, err := Each(r, policy, decode, func(rec T) error {
		out = append(out, rec)
		return nil
	})
	return out, skipped, err
}

// EachUnit streams the units of r.
func EachUnit(r *Reader, policy RowPolicy, fn func(Unit) error) ([]*RowParseError, error) {
	return Each(r, policy, (*Mapping).DecodeUnit, fn)
}

// EachOB streams the OB templates of r.
func EachOB(r *Reader, policy RowPolicy, fn func(OB) error) ([]*RowParseError, error) {
	return Each(r, policy, (*Mapping).DecodeOB, fn)
}

// EachGround streams the ground elements of r.
func EachGround(r *Reader, policy RowPolicy, fn func(GroundElement) error) ([]*RowParseError, error) {
	return Each(r, policy, (*Mapping).DecodeGround, fn)
}
