package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/mutate"
)

// WriteInventory renders a squad inventory.
func WriteInventory(w io.Writer, f Format, lines []graph.InventoryLine) error {
	return Encode(w, f, lines, func(w io.Writer) error {
		t := newTable(w, "WID", "NAME", "TOTAL", "UNITS")
		for _, l := range lines {
			t.row(l.WID, dash(l.Name), l.Total, l.Units)
		}
		return t.flush()
	})
}

// InventoryCSV writes the inventory export.
func InventoryCSV(w io.Writer, lines []graph.InventoryLine) error {
	rows := make([][]string, len(lines))
	for i, l := range lines {
		rows[i] = []string{strconv.Itoa(l.WID), l.Name, strconv.Itoa(l.Total), strconv.Itoa(l.Units)}
	}
	return writeCSV(w, []string{"WID", "Name", "Total", "Units"}, rows)
}

// OrphanView is an orphaned template with its label.
type OrphanView struct {
	OBID   int    `json:"ob_id" yaml:"ob_id"`
	Label  string `json:"label" yaml:"label"`
	Nation int    `json:"nation" yaml:"nation"`
}

// Orphans labels orphaned template ids.
func Orphans(g *graph.Graph, ids []int) []OrphanView {
	out := make([]OrphanView, len(ids))
	for i, id := range ids {
		out[i] = OrphanView{OBID: id, Label: label(g, id)}
		if o, ok := g.OBs[id]; ok {
			out[i].Nation = o.Nation
		}
	}
	return out
}

// DanglingView is a unit whose OB reference names no template.
type DanglingView struct {
	Severity audit.Severity `json:"severity" yaml:"severity"`
	UnitID   int            `json:"unit_id" yaml:"unit_id"`
	Name     string         `json:"name" yaml:"name"`
	OBID     int            `json:"ob_id" yaml:"ob_id"`
	Message  string         `json:"message" yaml:"message"`
}

// OrphanReport is the outcome of an orphan search: templates no unit uses
// and units pointing at templates that do not exist.
type OrphanReport struct {
	Orphans  []OrphanView   `json:"orphans" yaml:"orphans"`
	Dangling []DanglingView `json:"dangling" yaml:"dangling"`
}

// Dangling describes dangling unit references. Every entry is an error.
func Dangling(g *graph.Graph, refs []*core.DanglingReferenceError) []DanglingView {
	out := make([]DanglingView, len(refs))
	for i, ref := range refs {
		out[i] = DanglingView{
			Severity: audit.SeverityError,
			UnitID:   ref.ID,
			OBID:     ref.TargetID,
			Message:  ref.Error(),
		}
		if u, ok := g.Units[ref.ID]; ok {
			out[i].Name = u.Name
		}
	}
	return out
}

// WriteOrphans renders an orphan report. Dangling references follow the
// orphan list.
func WriteOrphans(w io.Writer, f Format, rep OrphanReport) error {
	return Encode(w, f, rep, func(w io.Writer) error {
		for _, o := range rep.Orphans {
			fmt.Fprintln(w, o.Label)
		}
		fmt.Fprintf(w, "%d orphan template(s)\n", len(rep.Orphans))
		for _, d := range rep.Dangling {
			fmt.Fprintf(w, "[%s] unit %d %s: %s\n", d.Severity, d.UnitID, dash(d.Name), d.Message)
		}
		if len(rep.Dangling) > 0 {
			fmt.Fprintf(w, "%d unit(s) point to a missing template\n", len(rep.Dangling))
		}
		return nil
	})
}

// OrphansCSV writes the orphan export.
func OrphansCSV(w io.Writer, orphans []OrphanView) error {
	rows := make([][]string, len(orphans))
	for i, o := range orphans {
		rows[i] = []string{strconv.Itoa(o.OBID), o.Label, strconv.Itoa(o.Nation)}
	}
	return writeCSV(w, []string{"OB ID", "Label", "Nation"}, rows)
}

// WriteRefs renders the result of a WID scan.
func WriteRefs(w io.Writer, f Format, refs []graph.SlotRef) error {
	return Encode(w, f, refs, func(w io.Writer) error {
		t := newTable(w, "OWNER", "ID", "SLOT", "COUNT")
		for _, r := range refs {
			t.row(r.Owner, r.OwnerID, r.Slot, r.Count)
		}
		if err := t.flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d slot(s)\n", len(refs))
		return err
	})
}

// WriteExcess renders units holding excess stores.
func WriteExcess(w io.Writer, f Format, rows []graph.Excess) error {
	return Encode(w, f, rows, func(w io.Writer) error {
		t := newTable(w, "UNIT", "NAME", "NAT", "OB", "RESOURCE", "HAVE", "NEED", "RATIO")
		for _, e := range rows {
			t.row(e.UnitID, dash(e.Name), e.Nation, e.OBID, e.Resource, e.Have, e.Need, ratio(e.Ratio()))
		}
		if err := t.flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d unit(s)\n", len(rows))
		return err
	})
}

// WriteTOEExcess renders unit slots above their authorised strength.
func WriteTOEExcess(w io.Writer, f Format, rows []graph.TOEExcess) error {
	return Encode(w, f, rows, func(w io.Writer) error {
		t := newTable(w, "UNIT", "NAME", "OB", "SLOT", "WID", "ELEMENT", "HAVE", "AUTH", "% OF TOE")
		for _, e := range rows {
			t.row(e.UnitID, dash(e.Name), e.OBID, e.Slot, e.WID, dash(e.Element), e.Have, e.Authorised,
				strconv.FormatFloat(e.Percent(), 'f', 1, 64)+"%")
		}
		if err := t.flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "%d slot(s) over strength\n", len(rows))
		return err
	})
}

func ratio(r float64) string {
	if math.IsInf(r, 1) {
		return "inf"
	}
	return strconv.FormatFloat(r, 'f', 1, 64) + "x"
}

// WriteGroups renders units grouped by template.
func WriteGroups(w io.Writer, f Format, groups []graph.OBGroup) error {
	return Encode(w, f, groups, func(w io.Writer) error {
		for _, grp := range groups {
			name := grp.OBName
			if name == "" {
				name = fmt.Sprintf("[%d] Unk", grp.OBID)
			}
			fmt.Fprintf(w, "%s (%d unit(s))\n", name, len(grp.UnitIDs))
			for i, id := range grp.UnitIDs {
				fmt.Fprintf(w, "  %d %s\n", id, grp.Names[i])
			}
		}
		return nil
	})
}

// WriteMutation renders the outcome of a mutation.
func WriteMutation(w io.Writer, f Format, res *mutate.Result) error {
	return Encode(w, f, res, func(w io.Writer) error {
		for _, c := range res.Changes {
			fmt.Fprintln(w, c)
		}
		switch {
		case len(res.Changes) == 0:
			fmt.Fprintf(w, "%s: nothing to change\n", res.Op)
		case res.DryRun:
			fmt.Fprintf(w, "%s: %d change(s) in %d record(s), not written (dry run)\n", res.Op, len(res.Changes), res.Changed())
		default:
			fmt.Fprintf(w, "%s: %d change(s) in %d record(s) written to %d file(s)\n",
				res.Op, len(res.Changes), res.Changed(), len(res.Committed))
		}
		return nil
	})
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
