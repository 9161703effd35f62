package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/wite2/internal/chain"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/logging"
)

// DefaultWorkers bounds batch parallelism when Auditor.Workers is unset.
const DefaultWorkers = 4

// Auditor runs the battery over file sets.
type Auditor struct {
	Rules    Rules
	Encoding string
	// Workers bounds the number of file sets audited at once in Batch.
	Workers int
	// Checks overrides the battery. Nil means Battery().
	Checks []Check

	now func() time.Time
}

// New returns an auditor with the given rules and the full battery.
func New(rules Rules, encoding string, workers int) *Auditor {
	return &Auditor{Rules: rules, Encoding: encoding, Workers: workers}
}

func (a *Auditor) checks() []Check {
	if a.Checks != nil {
		return a.Checks
	}
	return Battery()
}

func (a *Auditor) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// Run applies every check to g and returns the findings in battery order.
func (a *Auditor) Run(ctx context.Context, g *graph.Graph) []Finding {
	in := &Input{Graph: g, Chains: chain.Trace(g, chain.Options{}), Rules: a.Rules}
	log := logging.FromContext(ctx)

	var out []Finding
	for _, c := range a.checks() {
		found := c.Run(in)
		if len(found) > 0 {
			log.Debug("check finished", "check", c.Name(), "findings", len(found))
		}
		out = append(out, found...)
	}
	return out
}

// Audit loads fs and runs the battery over it. Load-time structural errors
// (schema mismatch, duplicate identifiers, missing files) are returned and no
// report is produced.
func (a *Auditor) Audit(ctx context.Context, fs core.FileSet) (*Report, error) {
	runID := core.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = core.ContextWithRunID(ctx, runID)
	}
	start := a.clock()
	log := logging.WithFields(ctx, "scenario", fs.Name())

	g, err := graph.Load(ctx, fs, graph.LoadOptions{Encoding: a.Encoding})
	if err != nil {
		log.Error("audit aborted", "error", err)
		return nil, err
	}

	r := &Report{
		RunID:       runID,
		Files:       fs,
		StartedAt:   start,
		RowsSkipped: len(g.Skipped),
		Findings:    a.Run(ctx, g),
	}
	r.Duration = a.clock().Sub(start)
	r.tally()

	log.Info("audit complete",
		"errors", r.Errors,
		"warnings", r.Warnings,
		"duration", r.Duration,
	)
	return r, nil
}

// BatchEntry is the outcome for one file set of a batch.
type BatchEntry struct {
	Files  core.FileSet `json:"files" yaml:"files"`
	Report *Report      `json:"report,omitempty" yaml:"report,omitempty"`
	Err    error        `json:"-" yaml:"-"`
}

// Batch audits every set in parallel and returns one entry per set in input
// order. A failure in one set is recorded in its entry; the others still run.
func (a *Auditor) Batch(ctx context.Context, sets []core.FileSet) []BatchEntry {
	entries := make([]BatchEntry, len(sets))
	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, fs := range sets {
		entries[i].Files = fs
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				entries[i].Err = err
				return nil
			}
			entries[i].Report, entries[i].Err = a.Audit(ctx, fs)
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

// Summary totals a batch.
type Summary struct {
	Sets     int `json:"sets" yaml:"sets"`
	Failed   int `json:"failed" yaml:"failed"`
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
}

// Summarize totals the entries of a batch.
func Summarize(entries []BatchEntry) Summary {
	s := Summary{Sets: len(entries)}
	for _, e := range entries {
		if e.Err != nil {
			s.Failed++
			continue
		}
		s.Errors += e.Report.Errors
		s.Warnings += e.Report.Warnings
	}
	return s
}
