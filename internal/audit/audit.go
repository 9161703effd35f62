// Package audit runs the consistency checks over a scenario and collects
// the findings into a report.
//
// The battery is fixed and ordered. Checks only read the graph; fixing what
// they find is the mutation engine's job.
package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/wite2/internal/core"
)

// Severity classifies a finding.
type Severity string

const (
	// SeverityError marks a dataset-corrupting issue.
	SeverityError Severity = "error"
	// SeverityWarning marks an informational issue.
	SeverityWarning Severity = "warning"
)

// Finding is one issue located at a record.
type Finding struct {
	Check    string    `json:"check" yaml:"check"`
	Severity Severity  `json:"severity" yaml:"severity"`
	Kind     core.Kind `json:"kind" yaml:"kind"`
	ID       int       `json:"id" yaml:"id"`
	Field    string    `json:"field,omitempty" yaml:"field,omitempty"`
	Line     int       `json:"line,omitempty" yaml:"line,omitempty"`
	Message  string    `json:"message" yaml:"message"`
	// Cause is the typed error behind the finding, when there is one. It is
	// not persisted.
	Cause error `json:"-" yaml:"-"`
}

func (f Finding) String() string {
	loc := fmt.Sprintf("%s %d", f.Kind, f.ID)
	if f.Line > 0 {
		loc += fmt.Sprintf(" (line %d)", f.Line)
	}
	return fmt.Sprintf("[%s] %s: %s: %s", f.Severity, f.Check, loc, f.Message)
}

// GhostRules selects which slot states count as ghost squads.
type GhostRules struct {
	Unset    bool // count set on a slot without a WID
	Zero     bool // WID set with a zero count
	Negative bool // WID set with a negative count
	Missing  bool // WID not present in the ground file
}

// DefaultGhostRules is "unset,zero,negative".
var DefaultGhostRules = GhostRules{Unset: true, Zero: true, Negative: true}

// ParseGhostRules parses a comma-separated rule list such as "unset,zero".
func ParseGhostRules(s string) (GhostRules, error) {
	var r GhostRules
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "unset":
			r.Unset = true
		case "zero":
			r.Zero = true
		case "negative":
			r.Negative = true
		case "missing":
			r.Missing = true
		default:
			return GhostRules{}, fmt.Errorf("unknown ghost rule %q (want unset, zero, negative or missing)", part)
		}
	}
	return r, nil
}

func (r GhostRules) String() string {
	var parts []string
	for _, p := range []struct {
		on   bool
		name string
	}{{r.Unset, "unset"}, {r.Zero, "zero"}, {r.Negative, "negative"}, {r.Missing, "missing"}} {
		if p.on {
			parts = append(parts, p.name)
		}
	}
	return strings.Join(parts, ",")
}

// Rules holds the thresholds the checks compare against.
type Rules struct {
	MapWidth     int
	MapHeight    int
	MaxGameTurns int
	MaxGroundMen int
	Ghost        GhostRules
	// IgnoreOrigin skips (0,0), the placement of units held in a pool.
	IgnoreOrigin bool
	// ActiveOnly restricts record checks to units with an OB, templates and
	// ground elements with a non-zero type.
	ActiveOnly bool
	// FollowChains treats upgrades of a used template as used.
	FollowChains bool
}

// DefaultRules returns the limits of the stock game engine.
func DefaultRules() Rules {
	return Rules{
		MapWidth:     379,
		MapHeight:    355,
		MaxGameTurns: 225,
		MaxGroundMen: 30,
		Ghost:        DefaultGhostRules,
		IgnoreOrigin: true,
		ActiveOnly:   true,
	}
}

// Report is the outcome of auditing one file set.
type Report struct {
	RunID       string         `json:"run_id" yaml:"run_id"`
	Files       core.FileSet   `json:"files" yaml:"files"`
	StartedAt   time.Time      `json:"started_at" yaml:"started_at"`
	Duration    time.Duration  `json:"duration_ns" yaml:"duration"`
	RowsSkipped int            `json:"rows_skipped" yaml:"rows_skipped"`
	Errors      int            `json:"errors" yaml:"errors"`
	Warnings    int            `json:"warnings" yaml:"warnings"`
	ByCheck     map[string]int `json:"by_check" yaml:"by_check"`
	Findings    []Finding      `json:"findings" yaml:"findings"`
}

// HasFindings reports whether the audit found anything.
func (r *Report) HasFindings() bool { return len(r.Findings) > 0 }

// HasErrors reports whether any finding has error severity.
func (r *Report) HasErrors() bool { return r.Errors > 0 }

// tally recomputes the summary counters from Findings.
func (r *Report) tally() {
	r.Errors, r.Warnings = 0, 0
	r.ByCheck = make(map[string]int)
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityError:
			r.Errors++
		case SeverityWarning:
			r.Warnings++
		}
		r.ByCheck[f.Check]++
	}
}

// CheckNames returns the checks that produced findings, sorted.
func (r *Report) CheckNames() []string {
	names := make([]string, 0, len(r.ByCheck))
	for name := range r.ByCheck {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
