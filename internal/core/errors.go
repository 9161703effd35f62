package core

// errors.go defines the error taxonomy shared by every component.
//
// Each typed error matches its sentinel through errors.Is, so callers can
// branch on the category without caring about the details:
//
//	if errors.Is(err, core.ErrSchemaMismatch) { ... }
//
// Load-time structural errors (schema mismatch, duplicate identifier) abort
// an operation. Dangling references are reported, never raised. Row parse errors are recoverable per row. Mutation errors
// abort the transform before anything is written.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrSchemaMismatch      = errors.New("schema mismatch")
	ErrRowParse            = errors.New("row parse error")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrDanglingReference   = errors.New("dangling reference")
	ErrCyclicChain         = errors.New("cyclic chain")
	ErrUnknownWID          = errors.New("unknown wid")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrRecordNotFound      = errors.New("record not found")
	ErrWriteSanityCheck    = errors.New("write sanity check failed")
	ErrUnknownEncoding     = errors.New("unknown encoding")
)

// SchemaMismatchError reports a file header that does not match its layout.
type SchemaMismatchError struct {
	Kind       Kind
	Path       string
	Missing    []string // Required columns absent from the header
	Duplicated []string // Mapped columns present more than once
	Reason     string   // Set when the header could not be read at all
}

func (e *SchemaMismatchError) Error() string {
	var b strings.Builder
	b.WriteString("schema mismatch in ")
	b.WriteString(string(e.Kind))
	b.WriteString(" file")
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing columns %s", strings.Join(quoteAll(e.Missing), ", "))
	}
	if len(e.Duplicated) > 0 {
		fmt.Fprintf(&b, ": duplicated columns %s", strings.Join(quoteAll(e.Duplicated), ", "))
	}
	return b.String()
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// RowParseError reports a single malformed row.
type RowParseError struct {
	Kind   Kind
	Line   int    // 1-based line number
	Raw    string // The offending line, re-encoded as CSV
	Column string // Column that failed to parse, empty for structural errors
	Reason string
}

func (e *RowParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row parse error at line %d, column %q: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("row parse error at line %d: %s", e.Line, e.Reason)
}

func (e *RowParseError) Is(target error) bool { return target == ErrRowParse }

// DuplicateIdentifierError reports two records of one kind sharing an id.
type DuplicateIdentifierError struct {
	Kind  Kind
	ID    int
	Lines []int // Source lines of the first and the duplicate record
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate identifier: %s id %d (lines %s)", e.Kind, e.ID, joinInts(e.Lines, ", "))
}

func (e *DuplicateIdentifierError) Is(target error) bool { return target == ErrDuplicateIdentifier }

// DanglingReferenceError reports a record pointing at a record that does
// not exist.
type DanglingReferenceError struct {
	Kind     Kind   // Kind of the referencing record
	ID       int    // Id of the referencing record
	Field    string // Column holding the reference
	Target   Kind
	TargetID int
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference: %s %d points to %s %d, which does not exist", e.Kind, e.ID, e.Target, e.TargetID)
}

func (e *DanglingReferenceError) Is(target error) bool { return target == ErrDanglingReference }

// CyclicChainError reports OB templates whose predecessor links form a loop.
type CyclicChainError struct {
	OBIDs []int // Cycle members in predecessor order, starting at the smallest id
}

func (e *CyclicChainError) Error() string {
	if len(e.OBIDs) == 0 {
		return "cyclic chain"
	}
	return fmt.Sprintf("cyclic chain: %s -> %d", joinInts(e.OBIDs, " -> "), e.OBIDs[0])
}

func (e *CyclicChainError) Is(target error) bool { return target == ErrCyclicChain }

// UnknownWIDError reports a replacement target that is not a ground element.
type UnknownWIDError struct {
	WID int
}

func (e *UnknownWIDError) Error() string {
	return fmt.Sprintf("unknown wid %d: no such ground element", e.WID)
}

func (e *UnknownWIDError) Is(target error) bool { return target == ErrUnknownWID }

// SlotNotFoundError reports that no slot of a record, or of the units of an
// OB, holds the requested WID.
type SlotNotFoundError struct {
	Kind Kind
	ID   int
	WID  int
}

func (e *SlotNotFoundError) Error() string {
	return fmt.Sprintf("slot not found: no slot with wid %d in %s %d", e.WID, e.Kind, e.ID)
}

func (e *SlotNotFoundError) Is(target error) bool { return target == ErrSlotNotFound }

// IndexOutOfRangeError reports a slot position outside a slot list.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index out of range: slot %d, list has %d slots", e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// RecordNotFoundError reports a mutation target id absent from its file.
type RecordNotFoundError struct {
	Kind Kind
	ID   int
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record not found: %s id %d", e.Kind, e.ID)
}

func (e *RecordNotFoundError) Is(target error) bool { return target == ErrRecordNotFound }

// WriteSanityCheckError reports a temporary file whose row count differs
// from the in-memory record count. The original file was not replaced.
type WriteSanityCheckError struct {
	Path string
	Want int
	Got  int
}

func (e *WriteSanityCheckError) Error() string {
	return fmt.Sprintf("write sanity check failed for %q: wrote %d rows, expected %d", e.Path, e.Got, e.Want)
}

func (e *WriteSanityCheckError) Is(target error) bool { return target == ErrWriteSanityCheck }

func joinInts(ids []int, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, sep)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strconv.Quote(s)
	}
	return out
}
