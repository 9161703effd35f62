package core

// writer.go implements the atomic write-back used by every mutation.
//
// The commit protocol:
//  1. Serialize header and rows to a pending file in the target's directory,
//     using the source's encoding, BOM and line terminator
//  2. Re-read the pending file and compare its data row count with len(rows)
//  3. Sync, close and rename the pending file over the target
//
// Any failure removes the pending file. The target is never opened for
// writing, so it keeps its content and modification time unless step 3
// succeeds.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Format describes how a file is stored on disk.
type Format struct {
	Encoding string // Canonical encoding name, "utf-8" when empty
	BOM      bool   // File starts with a UTF-8 byte order mark
	CRLF     bool   // Lines end in "\r\n"
}

// countRows counts the data rows of a written file. Tests replace it to
// simulate a short write.
var countRows = countDataRows

// WriteAtomic replaces path with header followed by rows, keeping the
// permissions of the file it replaces.
// Returns *WriteSanityCheckError if the written file does not hold
// exactly len(rows) data rows; the original file is then left in place.
func WriteAtomic(path string, header []string, rows [][]string, f Format) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer pf.Cleanup()

	if err := writeRows(pf, header, rows, f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	got, err := countRows(pf.Name(), f)
	if err != nil {
		return fmt.Errorf("verify temp file: %w", err)
	}
	if got != len(rows) {
		return &WriteSanityCheckError{Path: path, Want: len(rows), Got: got}
	}

	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeRows(w io.Writer, header []string, rows [][]string, f Format) error {
	enc, err := EncodingWriter(w, f.Encoding)
	if err != nil {
		return err
	}
	if f.BOM {
		if _, err := enc.Write(utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(enc)
	cw.UseCRLF = f.CRLF
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return enc.Close()
}

// countDataRows re-reads a file and returns the number of records after the
// header.
func countDataRows(path string, f Format) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	r, _, err := WrapForStreaming(file, f.Encoding, 0)
	if err != nil {
		return 0, err
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	n := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
