package report

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/core"
)

// WriteAudit renders one audit report.
func WriteAudit(w io.Writer, f Format, r *audit.Report) error {
	return Encode(w, f, r, func(w io.Writer) error { return auditText(w, r) })
}

func auditText(w io.Writer, r *audit.Report) error {
	fmt.Fprintf(w, "Audit %s (run %s)\n", r.Files.Name(), r.RunID)
	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "No issues found.")
	} else if err := findingsTable(w, r.Findings); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d error(s), %d warning(s), %d row(s) skipped in %s\n",
		r.Errors, r.Warnings, r.RowsSkipped, r.Duration.Round(time.Millisecond))
	return err
}

func findingsTable(w io.Writer, findings []audit.Finding) error {
	t := newTable(w, "SEVERITY", "CHECK", "RECORD", "LINE", "FIELD", "MESSAGE")
	for _, f := range findings {
		line := "-"
		if f.Line > 0 {
			line = fmt.Sprint(f.Line)
		}
		t.row(f.Severity, f.Check, fmt.Sprintf("%s %d", f.Kind, f.ID), line, dash(f.Field), f.Message)
	}
	return t.flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// batchEntry is the encoded form of audit.BatchEntry.
type batchEntry struct {
	Files  core.FileSet  `json:"files" yaml:"files"`
	Report *audit.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

type batchOutput struct {
	Summary audit.Summary `json:"summary" yaml:"summary"`
	Entries []batchEntry  `json:"entries" yaml:"entries"`
}

// WriteBatch renders the entries of a batch audit in order, followed by the
// totals.
func WriteBatch(w io.Writer, f Format, entries []audit.BatchEntry) error {
	out := batchOutput{Summary: audit.Summarize(entries)}
	for _, e := range entries {
		be := batchEntry{Files: e.Files, Report: e.Report}
		if e.Err != nil {
			be.Error = e.Err.Error()
		}
		out.Entries = append(out.Entries, be)
	}
	return Encode(w, f, out, func(w io.Writer) error {
		t := newTable(w, "SCENARIO", "ERRORS", "WARNINGS", "SKIPPED", "STATUS")
		for _, e := range entries {
			if e.Err != nil {
				t.row(e.Files.Name(), "-", "-", "-", "failed: "+e.Err.Error())
				continue
			}
			t.row(e.Files.Name(), e.Report.Errors, e.Report.Warnings, e.Report.RowsSkipped, "ok")
		}
		if err := t.flush(); err != nil {
			return err
		}
		s := out.Summary
		_, err := fmt.Fprintf(w, "%d set(s), %d failed, %d error(s), %d warning(s)\n",
			s.Sets, s.Failed, s.Errors, s.Warnings)
		return err
	})
}
