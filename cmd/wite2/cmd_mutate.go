package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/mutate"
	"github.com/JonMunkholm/wite2/internal/report"
)

// runOp applies op to the selected file set and prints the result.
func (a *app) runOp(cmd *cobra.Command, op mutate.Op, dryRun bool) error {
	fs, err := a.fileSet()
	if err != nil {
		return err
	}
	engine := mutate.Engine{Files: fs, Encoding: a.cfg.Data.Encoding, DryRun: dryRun}
	res, err := engine.Run(cmd.Context(), op)
	if err != nil {
		return err
	}
	return report.WriteMutation(a.out, a.format, res)
}

func parseWID(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: %q is not a ground element id", name, s)
	}
	return n, nil
}

func newReplaceElementCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "replace-element <from-wid> <to-wid>",
		Short: "Replace a ground element in every unit and OB slot",
		Long: `Replace every slot reference to one ground element with another across
the unit and OB files. Counts are kept. The target WID must exist in the
ground file.`,
		Example: "  wite2 --scenario 1941 replace-element 112 140",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseWID("from", args[0])
			if err != nil {
				return err
			}
			to, err := parseWID("to", args[1])
			if err != nil {
				return err
			}
			return a.runOp(cmd, mutate.ReplaceElementOp(from, to), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without writing")
	return cmd
}

func newUpdateCountCmd(a *app) *cobra.Command {
	var (
		p      mutate.UpdateCountParams
		old    int
		target string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "update-count",
		Short: "Set or adjust the count of one ground element",
		Long: `Set or adjust the count of every slot holding --wid, either in the units
using OB --ob or in the template itself (--target ob).

--delta adds to the current count and takes precedence over --new.
--old restricts the edit to slots whose current count matches.`,
		Example: `  wite2 --scenario 1941 update-count --ob 41 --wid 112 --new 12
  wite2 --scenario 1941 update-count --ob 41 --wid 112 --delta -2 --target ob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := mutate.ParseTarget(target)
			if err != nil {
				return err
			}
			p.Target = t
			if cmd.Flags().Changed("old") {
				p.Old = &old
			}
			if !cmd.Flags().Changed("new") && p.Delta == 0 {
				return fmt.Errorf("one of --new or a non-zero --delta is required")
			}
			return a.runOp(cmd, mutate.UpdateCountOp(p), dryRun)
		},
	}
	f := cmd.Flags()
	f.IntVar(&p.OBID, "ob", 0, "OB template id")
	f.IntVar(&p.WID, "wid", 0, "ground element id")
	f.IntVar(&old, "old", 0, "only edit slots whose count equals this")
	f.IntVar(&p.New, "new", 0, "count to set")
	f.IntVar(&p.Delta, "delta", 0, "amount to add to the current count")
	f.StringVar(&target, "target", "units", "records to edit: units or ob")
	f.BoolVar(&dryRun, "dry-run", false, "show the changes without writing")
	_ = cmd.MarkFlagRequired("ob")
	_ = cmd.MarkFlagRequired("wid")
	return cmd
}

func newReorderCmd(a *app) *cobra.Command {
	var (
		m      mutate.Move
		kind   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Move one slot of a unit or OB template",
		Long: `Move one slot of a unit or OB template to a new position. The slots in
between shift by one. Positions count from 0. With --wid the source is the
first slot holding that element and --from is ignored.`,
		Example: "  wite2 --scenario 1941 reorder --kind ob --id 41 --from 3 --to 0",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var k core.Kind
			switch kind {
			case "unit":
				k = core.KindUnit
			case "ob":
				k = core.KindOB
			default:
				return fmt.Errorf("unknown record kind %q (want unit or ob)", kind)
			}
			if m.WID == 0 && !cmd.Flags().Changed("from") {
				return fmt.Errorf("one of --from or --wid is required")
			}
			return a.runOp(cmd, mutate.ReorderOp(k, m), dryRun)
		},
	}
	f := cmd.Flags()
	f.StringVar(&kind, "kind", "unit", "record kind: unit or ob")
	f.IntVar(&m.ID, "id", 0, "unit or OB id")
	f.IntVar(&m.WID, "wid", 0, "locate the source slot by ground element id")
	f.IntVar(&m.From, "from", 0, "source slot position")
	f.IntVar(&m.To, "to", 0, "destination slot position")
	f.BoolVar(&dryRun, "dry-run", false, "show the changes without writing")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newCompactCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Pack the weapon slots of every ground element",
		Long: `Move the occupied weapon slots of every ground element to the front,
keeping their order, and clear the slots after them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runOp(cmd, mutate.CompactWeaponsOp(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without writing")
	return cmd
}
