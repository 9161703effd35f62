package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/chain"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/report"
)

func newTraceChainsCmd(a *app) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "trace-chains",
		Short: "Reconstruct OB upgrade chains",
		Long: `Follow the predecessor links of the OB file and print every upgrade
lineage, root first. Predecessor loops are reported separately.

--export csv|txt also writes the chains to the export directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if export != "" && export != "csv" && export != "txt" {
				return fmt.Errorf("unknown export format %q (want csv or txt)", export)
			}
			g, fs, err := a.loadGraph(cmd)
			if err != nil {
				return err
			}
			res := chain.Trace(g, chain.Options{Nations: a.nations})
			if err := report.WriteChains(a.out, a.format, g, res); err != nil {
				return err
			}
			views := report.Chains(g, res.Chains)
			switch export {
			case "csv":
				return a.export(exportName(fs, "chains.csv"), func(w io.Writer) error {
					return report.ChainsCSV(w, views)
				})
			case "txt":
				return a.export(exportName(fs, "chains.txt"), func(w io.Writer) error {
					return report.ChainsText(w, views)
				})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "also export the chains as csv or txt")
	return cmd
}

func newFindOrphansCmd(a *app) *cobra.Command {
	var (
		follow bool
		all    bool
		export bool
	)
	cmd := &cobra.Command{
		Use:   "find-orphans",
		Short: "List OB templates no unit uses",
		Long: `List the OB templates that no unit references. With --follow-chains a
template is also used when it upgrades, directly or not, from a template
some unit references. Units pointing at a template that does not exist are
reported as errors after the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, fs, err := a.loadGraph(cmd)
			if err != nil {
				return err
			}
			ids := g.FindOrphans(graph.OrphanOptions{
				Nations:      a.nations,
				ActiveOnly:   a.cfg.Rules.ActiveOnly && !all,
				FollowChains: follow,
			})
			orphans := report.Orphans(g, ids)
			rep := report.OrphanReport{
				Orphans:  orphans,
				Dangling: report.Dangling(g, g.DanglingOBRefs(a.nations)),
			}
			if err := report.WriteOrphans(a.out, a.format, rep); err != nil {
				return err
			}
			if export {
				return a.export(exportName(fs, "orphans.csv"), func(w io.Writer) error {
					return report.OrphansCSV(w, orphans)
				})
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&follow, "follow-chains", false, "treat upgrades of a used template as used")
	f.BoolVar(&all, "all", false, "include templates with type 0")
	f.BoolVar(&export, "export", false, "also export the list as csv")
	return cmd
}

func newCountInventoryCmd(a *app) *cobra.Command {
	var (
		all    bool
		export bool
	)
	cmd := &cobra.Command{
		Use:   "count-inventory",
		Short: "Total the squads of every ground element across units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, fs, err := a.loadGraph(cmd)
			if err != nil {
				return err
			}
			lines := g.CountInventory(a.nations, a.cfg.Rules.ActiveOnly && !all)
			if err := report.WriteInventory(a.out, a.format, lines); err != nil {
				return err
			}
			if export {
				return a.export(exportName(fs, "inventory.csv"), func(w io.Writer) error {
					return report.InventoryCSV(w, lines)
				})
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&all, "all", false, "include units without an OB")
	f.BoolVar(&export, "export", false, "also export the totals as csv")
	return cmd
}

func newScanByWIDCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "scan-by-wid <wid>",
		Short: "List every slot holding a ground element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wid, err := parseWID("wid", args[0])
			if err != nil {
				return err
			}
			var kinds []core.Kind
			switch kind {
			case "", "all":
			case "unit":
				kinds = []core.Kind{core.KindUnit}
			case "ob":
				kinds = []core.Kind{core.KindOB}
			default:
				return fmt.Errorf("unknown record kind %q (want unit, ob or all)", kind)
			}
			g, _, err := a.loadGraph(cmd)
			if err != nil {
				return err
			}
			return report.WriteRefs(a.out, a.format, g.ScanByWID(wid, kinds...))
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "all", "records to scan: unit, ob or all")
	return cmd
}

func newScanExcessCmd(a *app) *cobra.Command {
	var (
		resource   string
		multiplier int
		stream     bool
	)
	cmd := &cobra.Command{
		Use:   "scan-excess",
		Short: "Find units holding far more of a resource than they need",
		Long: `Find active units whose stock of a resource exceeds the multiplier times
their need, or who hold any of a resource they do not need at all.

--stream reads only the unit file, row by row, without loading the
scenario.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := core.ParseResource(resource)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("multiplier") {
				multiplier = a.cfg.Rules.ExcessMultiplier
			}
			if multiplier <= 0 {
				return fmt.Errorf("multiplier must be positive, got %d", multiplier)
			}

			if !stream {
				g, _, err := a.loadGraph(cmd)
				if err != nil {
					return err
				}
				return report.WriteExcess(a.out, a.format, g.ScanExcess(r, multiplier, a.nations))
			}

			path, err := a.unitPath()
			if err != nil {
				return err
			}
			scanner := graph.ExcessScanner{
				Resource:   r,
				Multiplier: multiplier,
				Nations:    a.nations,
				Encoding:   a.cfg.Data.Encoding,
			}
			var rows []graph.Excess
			skipped, err := scanner.Scan(cmd.Context(), path, func(e graph.Excess) error {
				rows = append(rows, e)
				return nil
			})
			if err != nil {
				return err
			}
			if len(skipped) > 0 {
				fmt.Fprintf(a.errOut, "%d malformed row(s) skipped\n", len(skipped))
			}
			return report.WriteExcess(a.out, a.format, rows)
		},
	}
	f := cmd.Flags()
	f.StringVar(&resource, "resource", "", "ammo, supplies, fuel or vehicles")
	f.IntVar(&multiplier, "multiplier", graph.DefaultExcessMultiplier, "excess threshold as a multiple of need")
	f.BoolVar(&stream, "stream", false, "stream the unit file instead of loading the scenario")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}

func newScanTOEExcessCmd(a *app) *cobra.Command {
	var percent int
	cmd := &cobra.Command{
		Use:   "scan-toe-excess",
		Short: "Find unit slots holding more than their template authorises",
		Long: `Compare every unit's squads with the OB template it uses and list the
slots holding more than --percent of the authorised count. Elements the
template does not list are not reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if percent <= 0 {
				return fmt.Errorf("percent must be positive, got %d", percent)
			}
			g, _, err := a.loadGraph(cmd)
			if err != nil {
				return err
			}
			return report.WriteTOEExcess(a.out, a.format, g.ScanTOEExcess(a.nations, percent))
		},
	}
	cmd.Flags().IntVar(&percent, "percent", graph.DefaultTOEExcessPercent, "threshold as a percentage of the authorised count")
	return cmd
}

func newGroupUnitsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "group-units",
		Short: "List units grouped by their OB template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, _, err := a.loadGraph(cmd)
			if err != nil {
				return err
			}
			return report.WriteGroups(a.out, a.format, g.GroupUnitsByOB(a.nations))
		},
	}
}
