package report

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/history"
)

// WriteRuns renders recorded audit runs, newest first.
func WriteRuns(w io.Writer, f Format, runs []history.Run) error {
	return Encode(w, f, runs, func(w io.Writer) error {
		if len(runs) == 0 {
			_, err := fmt.Fprintln(w, "No audit runs recorded.")
			return err
		}
		t := newTable(w, "ID", "STARTED", "SCENARIO", "ERRORS", "WARNINGS", "SKIPPED", "DURATION")
		for _, r := range runs {
			t.row(r.ID, r.StartedAt.Local().Format(time.DateTime), r.Files.Name(),
				r.Errors, r.Warnings, r.RowsSkipped, r.Duration.Round(time.Millisecond))
		}
		return t.flush()
	})
}

// WriteFindings renders the findings of one recorded run.
func WriteFindings(w io.Writer, f Format, id int64, findings []audit.Finding) error {
	return Encode(w, f, findings, func(w io.Writer) error {
		fmt.Fprintf(w, "Run %d\n", id)
		if len(findings) == 0 {
			_, err := fmt.Fprintln(w, "No issues recorded.")
			return err
		}
		if err := findingsTable(w, findings); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d finding(s)\n", len(findings))
		return err
	})
}
