package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/logging"
	"github.com/JonMunkholm/wite2/internal/mutate"
	"github.com/JonMunkholm/wite2/internal/report"
)

func (a *app) auditor(workers int) *audit.Auditor {
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}
	return audit.New(a.cfg.Rules.AuditRules(), a.cfg.Data.Encoding, workers)
}

// record stores reports in the history database when one is configured.
// A recording failure is logged; the audit result stands.
func (a *app) record(cmd *cobra.Command, reports ...*audit.Report) {
	if a.cfg.Database.URL == "" || len(reports) == 0 {
		return
	}
	log := logging.FromContext(cmd.Context())
	store, err := a.openHistory(cmd)
	if err != nil {
		log.Warn("audit history unavailable", "error", err)
		return
	}
	defer store.Close()
	for _, r := range reports {
		id, err := store.RecordReport(cmd.Context(), r)
		if err != nil {
			log.Warn("recording audit failed", "scenario", r.Files.Name(), "error", err)
			continue
		}
		log.Debug("audit recorded", "scenario", r.Files.Name(), "id", id)
	}
}

func newAuditSingleCmd(a *app) *cobra.Command {
	var (
		fixGhosts bool
		relinkHQ  int
		noRecord  bool
	)
	cmd := &cobra.Command{
		Use:     "audit-single",
		Aliases: []string{"audit"},
		Short:   "Run every integrity check over one scenario",
		Long: `Load one scenario and run the full check battery: references between the
files, OB chain cycles, ghost squads, orphan templates, coordinate and date
bounds, duplicate slots and ground element sanity.

--fix-ghosts and --relink-hq apply their repair after the report is
printed. Reports are recorded to the history database when DATABASE_URL is
set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := a.fileSet()
			if err != nil {
				return err
			}
			r, err := a.auditor(0).Audit(cmd.Context(), fs)
			if err != nil {
				return err
			}
			if err := report.WriteAudit(a.out, a.format, r); err != nil {
				return err
			}
			if !noRecord {
				a.record(cmd, r)
			}

			if fixGhosts {
				if err := a.repair(cmd, fs, mutate.FixGhostsOp()); err != nil {
					return err
				}
			}
			if relinkHQ != 0 {
				if err := a.repair(cmd, fs, mutate.RelinkHQOp(relinkHQ)); err != nil {
					return err
				}
			}

			if a.strict && r.HasFindings() {
				return errFindings
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&fixGhosts, "fix-ghosts", false, "zero the count of slots that have no ground element")
	f.IntVar(&relinkHQ, "relink-hq", 0, "point units with a missing or inactive HQ at this unit")
	f.BoolVar(&noRecord, "no-record", false, "do not record the report in the history database")
	return cmd
}

// repair applies a fix after an audit. Its summary goes to stderr so the
// report on stdout stays machine-readable.
func (a *app) repair(cmd *cobra.Command, fs core.FileSet, op mutate.Op) error {
	engine := mutate.Engine{Files: fs, Encoding: a.cfg.Data.Encoding}
	res, err := engine.Run(cmd.Context(), op)
	if err != nil {
		return fmt.Errorf("%s: %w", op.Name, err)
	}
	return report.WriteMutation(a.errOut, report.FormatText, res)
}

func newAuditBatchCmd(a *app) *cobra.Command {
	var (
		workers  int
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "audit-batch [dir...]",
		Short: "Audit every scenario found in one or more directories",
		Long: `Discover every scenario in the given directories (the data directory
when none is given) and audit them in parallel. A set that cannot be loaded
is reported as failed without stopping the others; the command then exits
with status 1 after printing the summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{a.cfg.Data.Dir}
			}
			var sets []core.FileSet
			for _, dir := range dirs {
				found, err := core.DiscoverFileSets(dir)
				if err != nil {
					return err
				}
				sets = append(sets, found...)
			}
			if len(sets) == 0 {
				return fmt.Errorf("no scenarios found in %v", dirs)
			}

			entries := a.auditor(workers).Batch(cmd.Context(), sets)
			if err := report.WriteBatch(a.out, a.format, entries); err != nil {
				return err
			}

			var reports []*audit.Report
			findings := false
			for _, e := range entries {
				if e.Report != nil {
					reports = append(reports, e.Report)
					findings = findings || e.Report.HasFindings()
				}
			}
			if !noRecord {
				a.record(cmd, reports...)
			}

			if s := audit.Summarize(entries); s.Failed > 0 {
				return fmt.Errorf("%d of %d scenario(s) could not be audited", s.Failed, s.Sets)
			}
			if a.strict && findings {
				return errFindings
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&workers, "workers", 0, "scenarios audited in parallel (env WITE2_BATCH_WORKERS)")
	f.BoolVar(&noRecord, "no-record", false, "do not record the reports in the history database")
	return cmd
}
