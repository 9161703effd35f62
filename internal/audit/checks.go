package audit

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/wite2/internal/chain"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/tables"
	"github.com/JonMunkholm/wite2/internal/graph"
)

// Input is what every check sees.
type Input struct {
	Graph  *graph.Graph
	Chains chain.Result
	Rules  Rules
}

// Check is one entry of the battery.
type Check interface {
	Name() string
	Run(in *Input) []Finding
}

// Battery returns the checks in the order they run.
func Battery() []Check {
	return []Check{
		rowParseCheck{},
		unitOBRefCheck{},
		unitHQRefCheck{},
		obPredecessorRefCheck{},
		obCycleCheck{},
		slotRefCheck{},
		ghostSquadCheck{},
		orphanTemplateCheck{},
		unitBoundsCheck{},
		unitDelayCheck{},
		obDatesCheck{},
		duplicateSlotCheck{},
		groundElementCheck{},
	}
}

// owner is a unit or OB with its slots, for the slot-level checks.
type owner struct {
	kind  core.Kind
	id    int
	line  int
	slots []core.Slot
	block core.SlotBlock
}

func (in *Input) owners() []owner {
	var out []owner
	for _, u := range in.Graph.UnitList() {
		if in.Rules.ActiveOnly && !u.Active() {
			continue
		}
		out = append(out, owner{core.KindUnit, u.ID, u.Line, u.Slots, tables.Unit.Slots})
	}
	for _, o := range in.Graph.OBList() {
		if in.Rules.ActiveOnly && !o.Active() {
			continue
		}
		out = append(out, owner{core.KindOB, o.ID, o.Line, o.Slots, tables.OB.Slots})
	}
	return out
}

func errorAt(check string, kind core.Kind, id, line int, field, msg string) Finding {
	return Finding{Check: check, Severity: SeverityError, Kind: kind, ID: id, Line: line, Field: field, Message: msg}
}

// danglingAt returns the error finding for a reference to a missing record.
func danglingAt(check string, line int, ref *core.DanglingReferenceError, msg string) Finding {
	f := errorAt(check, ref.Kind, ref.ID, line, ref.Field, msg)
	f.Cause = ref
	return f
}

func warningAt(check string, kind core.Kind, id, line int, field, msg string) Finding {
	return Finding{Check: check, Severity: SeverityWarning, Kind: kind, ID: id, Line: line, Field: field, Message: msg}
}

type rowParseCheck struct{}

func (rowParseCheck) Name() string { return "row-parse" }

func (c rowParseCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, pe := range in.Graph.Skipped {
		out = append(out, errorAt(c.Name(), pe.Kind, 0, pe.Line, pe.Column, "row skipped: "+pe.Reason))
	}
	return out
}

type unitOBRefCheck struct{}

func (unitOBRefCheck) Name() string { return "unit-ob-ref" }

func (c unitOBRefCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, ref := range in.Graph.DanglingOBRefs(nil) {
		out = append(out, danglingAt(c.Name(), in.Graph.Units[ref.ID].Line, ref,
			fmt.Sprintf("dangling reference: OB %d does not exist", ref.TargetID)))
	}
	return out
}

type unitHQRefCheck struct{}

func (unitHQRefCheck) Name() string { return "unit-hq-ref" }

func (c unitHQRefCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, u := range in.Graph.UnitList() {
		if u.HHQ == 0 || (in.Rules.ActiveOnly && !u.Active()) {
			continue
		}
		hq, ok := in.Graph.Units[u.HHQ]
		switch {
		case !ok:
			ref := &core.DanglingReferenceError{Kind: core.KindUnit, ID: u.ID, Field: "hhq", Target: core.KindUnit, TargetID: u.HHQ}
			out = append(out, danglingAt(c.Name(), u.Line, ref,
				fmt.Sprintf("dangling reference: HQ unit %d does not exist", u.HHQ)))
		case !hq.Active():
			out = append(out, errorAt(c.Name(), core.KindUnit, u.ID, u.Line, "hhq",
				fmt.Sprintf("reports to inactive HQ unit %d", u.HHQ)))
		}
	}
	return out
}

type obPredecessorRefCheck struct{}

func (obPredecessorRefCheck) Name() string { return "ob-predecessor-ref" }

func (c obPredecessorRefCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, o := range in.Graph.OBList() {
		if o.PredecessorID == 0 || o.PredecessorID == o.ID {
			continue
		}
		if _, ok := in.Graph.OBs[o.PredecessorID]; !ok {
			ref := &core.DanglingReferenceError{Kind: core.KindOB, ID: o.ID, Field: "predecessor", Target: core.KindOB, TargetID: o.PredecessorID}
			out = append(out, danglingAt(c.Name(), o.Line, ref,
				fmt.Sprintf("dangling reference: predecessor OB %d does not exist", o.PredecessorID)))
		}
	}
	return out
}

type obCycleCheck struct{}

func (obCycleCheck) Name() string { return "ob-cycle" }

func (c obCycleCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, cyc := range in.Chains.Cycles {
		head := in.Graph.OBs[cyc.OBIDs[0]]
		msg := cyc.Error()
		if len(cyc.OBIDs) == 1 {
			msg = "template is its own predecessor"
		}
		out = append(out, errorAt(c.Name(), core.KindOB, head.ID, head.Line, "predecessor", msg))
	}
	return out
}

type slotRefCheck struct{}

func (slotRefCheck) Name() string { return "slot-ref" }

func (c slotRefCheck) Run(in *Input) []Finding {
	if in.Rules.Ghost.Missing {
		return nil
	}
	var out []Finding
	for _, o := range in.owners() {
		for i, s := range o.slots {
			if s.WID == 0 {
				continue
			}
			if _, ok := in.Graph.Ground[s.WID]; !ok {
				ref := &core.DanglingReferenceError{Kind: o.kind, ID: o.id, Field: o.block.ItemColumn(i), Target: core.KindGround, TargetID: s.WID}
				out = append(out, danglingAt(c.Name(), o.line, ref,
					fmt.Sprintf("dangling reference: slot %d holds unknown WID %d", i, s.WID)))
			}
		}
	}
	return out
}

type ghostSquadCheck struct{}

func (ghostSquadCheck) Name() string { return "ghost-squad" }

// ghostReason returns why s is a ghost squad under rules, or "".
func ghostReason(s core.Slot, rules GhostRules, known map[int]*core.GroundElement) string {
	switch {
	case s.WID == 0 && s.Count != 0:
		if rules.Unset {
			return fmt.Sprintf("count %d without a WID", s.Count)
		}
	case s.WID != 0 && s.Count == 0:
		if rules.Zero {
			return fmt.Sprintf("WID %d with zero count", s.WID)
		}
	case s.WID != 0 && s.Count < 0:
		if rules.Negative {
			return fmt.Sprintf("WID %d with negative count %d", s.WID, s.Count)
		}
	}
	if s.WID != 0 && rules.Missing {
		if _, ok := known[s.WID]; !ok {
			return fmt.Sprintf("WID %d is not a ground element", s.WID)
		}
	}
	return ""
}

func (c ghostSquadCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, o := range in.owners() {
		for i, s := range o.slots {
			if reason := ghostReason(s, in.Rules.Ghost, in.Graph.Ground); reason != "" {
				out = append(out, warningAt(c.Name(), o.kind, o.id, o.line, o.block.CountColumn(i),
					fmt.Sprintf("ghost squad in slot %d: %s", i, reason)))
			}
		}
	}
	return out
}

type orphanTemplateCheck struct{}

func (orphanTemplateCheck) Name() string { return "orphan-template" }

func (c orphanTemplateCheck) Run(in *Input) []Finding {
	var out []Finding
	ids := in.Graph.FindOrphans(graph.OrphanOptions{
		ActiveOnly:   in.Rules.ActiveOnly,
		FollowChains: in.Rules.FollowChains,
	})
	for _, id := range ids {
		o := in.Graph.OBs[id]
		out = append(out, warningAt(c.Name(), core.KindOB, id, o.Line, "",
			fmt.Sprintf("orphan template: %s is used by no unit", o.Label())))
	}
	return out
}

type unitBoundsCheck struct{}

func (unitBoundsCheck) Name() string { return "unit-bounds" }

func (c unitBoundsCheck) Run(in *Input) []Finding {
	r := in.Rules
	var out []Finding
	for _, u := range in.Graph.UnitList() {
		if r.ActiveOnly && !u.Active() {
			continue
		}
		if u.X == 0 && u.Y == 0 {
			if !r.IgnoreOrigin {
				out = append(out, warningAt(c.Name(), core.KindUnit, u.ID, u.Line, "x",
					"unit held at the pool origin (0, 0)"))
			}
			continue
		}
		if u.X < 0 || u.X >= r.MapWidth || u.Y < 0 || u.Y >= r.MapHeight {
			out = append(out, warningAt(c.Name(), core.KindUnit, u.ID, u.Line, "x",
				fmt.Sprintf("coordinates (%d, %d) outside map %dx%d", u.X, u.Y, r.MapWidth, r.MapHeight)))
		}
	}
	return out
}

type unitDelayCheck struct{}

func (unitDelayCheck) Name() string { return "unit-delay" }

func (c unitDelayCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, u := range in.Graph.UnitList() {
		if in.Rules.ActiveOnly && !u.Active() {
			continue
		}
		if u.Delay > in.Rules.MaxGameTurns {
			out = append(out, warningAt(c.Name(), core.KindUnit, u.ID, u.Line, "delay",
				fmt.Sprintf("delay %d exceeds the last game turn %d", u.Delay, in.Rules.MaxGameTurns)))
		}
	}
	return out
}

type obDatesCheck struct{}

func (obDatesCheck) Name() string { return "ob-dates" }

func (c obDatesCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, o := range in.Graph.OBList() {
		if !o.Active() {
			continue
		}
		if o.FirstYear == 0 {
			out = append(out, warningAt(c.Name(), core.KindOB, o.ID, o.Line, "firstYear",
				"active template has no first year"))
			continue
		}
		if o.LastYear != 0 && o.LastYear*12+o.LastMonth < o.Sequence() {
			out = append(out, warningAt(c.Name(), core.KindOB, o.ID, o.Line, "lastYear",
				fmt.Sprintf("expires %d/%d before it is introduced %d/%d", o.LastMonth, o.LastYear, o.FirstMonth, o.FirstYear)))
		}
	}
	return out
}

type duplicateSlotCheck struct{}

func (duplicateSlotCheck) Name() string { return "duplicate-slot" }

func (c duplicateSlotCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, o := range in.owners() {
		first := make(map[int]int)
		for i, s := range o.slots {
			if s.WID == 0 {
				continue
			}
			if j, ok := first[s.WID]; ok {
				out = append(out, warningAt(c.Name(), o.kind, o.id, o.line, o.block.ItemColumn(i),
					fmt.Sprintf("WID %d appears in slots %d and %d", s.WID, j, i)))
				continue
			}
			first[s.WID] = i
		}
	}
	return out
}

type groundElementCheck struct{}

func (groundElementCheck) Name() string { return "ground-element" }

func (c groundElementCheck) Run(in *Input) []Finding {
	var out []Finding
	for _, wid := range in.Graph.WIDs() {
		ge := in.Graph.Ground[wid]
		if in.Rules.ActiveOnly && ge.TypeID == 0 {
			continue
		}
		if ge.Men == 0 || ge.Men > in.Rules.MaxGroundMen {
			out = append(out, warningAt(c.Name(), core.KindGround, wid, ge.Line, "men",
				"men "+strconv.Itoa(ge.Men)+" outside 1.."+strconv.Itoa(in.Rules.MaxGroundMen)))
		}
		if ge.Size == 0 {
			out = append(out, warningAt(c.Name(), core.KindGround, wid, ge.Line, "size", "size is zero"))
		}
	}
	return out
}
