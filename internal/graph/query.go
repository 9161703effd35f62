package graph

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/tables"
)

// DefaultExcessMultiplier is the stores-to-need ratio above which a unit is
// reported by ScanExcess.
const DefaultExcessMultiplier = 5

// DefaultTOEExcessPercent is the share of a template's authorised count
// above which ScanTOEExcess reports a unit slot.
const DefaultTOEExcessPercent = 125

// Nations restricts a query to a set of nation codes. An empty set matches
// every nation.
type Nations []int

// Match reports whether nation passes the filter.
func (n Nations) Match(nation int) bool {
	return len(n) == 0 || slices.Contains(n, nation)
}

// ParseNations parses a comma-separated list of nation codes such as "1,2".
// An empty string yields the empty filter.
func ParseNations(s string) (Nations, error) {
	var out Nations
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid nation code %q", part)
		}
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// ScanByWID returns every slot referencing wid, restricted to the given
// owner kinds (units and OBs when none are given).
func (g *Graph) ScanByWID(wid int, kinds ...core.Kind) []SlotRef {
	refs := g.RefsTo(wid)
	if len(kinds) == 0 {
		return slices.Clone(refs)
	}
	var out []SlotRef
	for _, ref := range refs {
		if slices.Contains(kinds, ref.Owner) {
			out = append(out, ref)
		}
	}
	return out
}

// Excess is one unit holding more of a resource than its threshold allows.
type Excess struct {
	UnitID   int           `json:"unit_id" yaml:"unit_id"`
	Name     string        `json:"name" yaml:"name"`
	Nation   int           `json:"nation" yaml:"nation"`
	OBID     int           `json:"ob_id" yaml:"ob_id"`
	Resource core.Resource `json:"resource" yaml:"resource"`
	Have     int           `json:"have" yaml:"have"`
	Need     int           `json:"need" yaml:"need"`
}

// Ratio returns Have/Need, +Inf when Need is 0.
func (e Excess) Ratio() float64 {
	if e.Need == 0 {
		return math.Inf(1)
	}
	return float64(e.Have) / float64(e.Need)
}

// IsExcess reports whether s holds strictly more than multiplier times its
// need. A unit that needs nothing but holds a positive amount is in excess.
func IsExcess(s core.Store, multiplier int) bool {
	if s.Need == 0 {
		return s.Have > 0
	}
	return s.Have > multiplier*s.Need
}

// ExcessOf returns the excess entry of u for r, if any. Inactive units are
// never reported.
func ExcessOf(u core.Unit, r core.Resource, multiplier int) (Excess, bool) {
	if !u.Active() {
		return Excess{}, false
	}
	s := u.Stores[r]
	if !IsExcess(s, multiplier) {
		return Excess{}, false
	}
	return Excess{
		UnitID:   u.ID,
		Name:     u.Name,
		Nation:   u.Nation,
		OBID:     u.OBID,
		Resource: r,
		Have:     s.Have,
		Need:     s.Need,
	}, true
}

// ScanExcess returns the active units of units in excess of r.
func ScanExcess(units []*core.Unit, r core.Resource, multiplier int) []Excess {
	var out []Excess
	for _, u := range units {
		if e, ok := ExcessOf(*u, r, multiplier); ok {
			out = append(out, e)
		}
	}
	return out
}

// ScanExcess returns the active units of g in excess of r, in id order.
func (g *Graph) ScanExcess(r core.Resource, multiplier int, nations Nations) []Excess {
	var units []*core.Unit
	for _, u := range g.UnitList() {
		if nations.Match(u.Nation) {
			units = append(units, u)
		}
	}
	return ScanExcess(units, r, multiplier)
}

// ExcessScanner finds excess stores by streaming a unit file, without
// building a graph.
type ExcessScanner struct {
	Resource   core.Resource
	Multiplier int
	Nations    Nations
	Encoding   string
}

// Scan reads path and calls fn for every unit in excess. Malformed rows are
// skipped and returned.
func (s ExcessScanner) Scan(ctx context.Context, path string, fn func(Excess) error) ([]*core.RowParseError, error) {
	r, err := core.Open(path, tables.Unit, s.Encoding)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return core.EachUnit(r, core.SkipAndReport, func(u core.Unit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Nations.Match(u.Nation) {
			return nil
		}
		if e, ok := ExcessOf(u, s.Resource, s.Multiplier); ok {
			return fn(e)
		}
		return nil
	})
}

// TOEExcess is one unit slot holding more of an element than its template
// authorises.
type TOEExcess struct {
	UnitID     int    `json:"unit_id" yaml:"unit_id"`
	Name       string `json:"name" yaml:"name"`
	OBID       int    `json:"ob_id" yaml:"ob_id"`
	Slot       int    `json:"slot" yaml:"slot"`
	WID        int    `json:"wid" yaml:"wid"`
	Element    string `json:"element" yaml:"element"`
	Have       int    `json:"have" yaml:"have"`
	Authorised int    `json:"authorised" yaml:"authorised"`
}

// Percent returns Have as a percentage of Authorised.
func (e TOEExcess) Percent() float64 {
	return float64(e.Have) * 100 / float64(e.Authorised)
}

// authorised totals the template's slot counts per WID.
func authorised(o *core.OB) map[int]int {
	toe := make(map[int]int)
	for _, s := range o.Slots {
		if s.WID > 0 {
			toe[s.WID] += s.Count
		}
	}
	return toe
}

// ScanTOEExcess compares every unit slot with the template the unit uses and
// returns the slots holding more than percent of the authorised count, in
// unit and slot order. Elements the template does not list, and units whose
// template does not exist, are not reported.
func (g *Graph) ScanTOEExcess(nations Nations, percent int) []TOEExcess {
	toes := make(map[int]map[int]int)
	var out []TOEExcess
	for _, u := range g.UnitList() {
		if !nations.Match(u.Nation) {
			continue
		}
		o, ok := g.OBs[u.OBID]
		if !ok {
			continue
		}
		toe, ok := toes[o.ID]
		if !ok {
			toe = authorised(o)
			toes[o.ID] = toe
		}
		for i, s := range u.Slots {
			auth := toe[s.WID]
			if s.WID <= 0 || s.Count <= 0 || auth <= 0 || s.Count*100 <= auth*percent {
				continue
			}
			e := TOEExcess{
				UnitID: u.ID, Name: u.Name, OBID: o.ID, Slot: i,
				WID: s.WID, Have: s.Count, Authorised: auth,
			}
			if ge, found := g.Ground[s.WID]; found {
				e.Element = ge.Name
			}
			out = append(out, e)
		}
	}
	return out
}

// InventoryLine is the total deployment of one ground element.
type InventoryLine struct {
	WID   int    `json:"wid" yaml:"wid"`
	Name  string `json:"name" yaml:"name"`
	Total int    `json:"total" yaml:"total"`
	Units int    `json:"units" yaml:"units"`
}

// CountInventory totals squads per WID over units passing the filter,
// largest total first.
func (g *Graph) CountInventory(nations Nations, activeOnly bool) []InventoryLine {
	totals := make(map[int]*InventoryLine)
	for _, u := range g.UnitList() {
		if !nations.Match(u.Nation) || (activeOnly && !u.Active()) {
			continue
		}
		seen := make(map[int]bool)
		for _, s := range u.Slots {
			if s.WID == 0 {
				continue
			}
			line, ok := totals[s.WID]
			if !ok {
				line = &InventoryLine{WID: s.WID}
				if ge, found := g.Ground[s.WID]; found {
					line.Name = ge.Name
				}
				totals[s.WID] = line
			}
			line.Total += s.Count
			if !seen[s.WID] {
				seen[s.WID] = true
				line.Units++
			}
		}
	}

	out := make([]InventoryLine, 0, len(totals))
	for _, line := range totals {
		if line.Total > 0 {
			out = append(out, *line)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].WID < out[j].WID
	})
	return out
}

// OBGroup lists the units using one OB template.
type OBGroup struct {
	OBID    int      `json:"ob_id" yaml:"ob_id"`
	OBName  string   `json:"ob_name" yaml:"ob_name"`
	UnitIDs []int    `json:"unit_ids" yaml:"unit_ids"`
	Names   []string `json:"unit_names" yaml:"unit_names"`
}

// GroupUnitsByOB groups units passing the filter by their OB reference, in
// OB id order. Inactive units have no OB and are never grouped.
func (g *Graph) GroupUnitsByOB(nations Nations) []OBGroup {
	obIDs := sortedKeys(g.unitsByOB)
	var out []OBGroup
	for _, obID := range obIDs {
		grp := OBGroup{OBID: obID}
		if o, ok := g.OBs[obID]; ok {
			grp.OBName = o.Label()
		}
		for _, uid := range g.unitsByOB[obID] {
			u := g.Units[uid]
			if !nations.Match(u.Nation) {
				continue
			}
			grp.UnitIDs = append(grp.UnitIDs, uid)
			grp.Names = append(grp.Names, u.Name)
		}
		if len(grp.UnitIDs) > 0 {
			out = append(out, grp)
		}
	}
	return out
}

// OrphanOptions controls FindOrphans.
type OrphanOptions struct {
	Nations Nations
	// ActiveOnly ignores templates whose type is 0.
	ActiveOnly bool
	// FollowChains treats every upgrade of a referenced template as used.
	FollowChains bool
}

// FindOrphans returns the ids of OB templates referenced by no unit,
// ascending.
func (g *Graph) FindOrphans(opts OrphanOptions) []int {
	used := make(map[int]bool, len(g.unitsByOB))
	for obID := range g.unitsByOB {
		used[obID] = true
	}
	if opts.FollowChains {
		stack := make([]int, 0, len(used))
		for obID := range used {
			stack = append(stack, obID)
		}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, succ := range g.successors[id] {
				if !used[succ] {
					used[succ] = true
					stack = append(stack, succ)
				}
			}
		}
	}

	var out []int
	for _, id := range g.obIDs {
		o := g.OBs[id]
		if used[id] || !opts.Nations.Match(o.Nation) || (opts.ActiveOnly && !o.Active()) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// DanglingOBRefs returns one error per unit of the filter whose OB reference
// names no template, in unit id order. Each error matches
// core.ErrDanglingReference.
func (g *Graph) DanglingOBRefs(nations Nations) []*core.DanglingReferenceError {
	var out []*core.DanglingReferenceError
	for _, u := range g.UnitList() {
		if !u.Active() || !nations.Match(u.Nation) {
			continue
		}
		if _, ok := g.OBs[u.OBID]; !ok {
			out = append(out, &core.DanglingReferenceError{
				Kind: core.KindUnit, ID: u.ID, Field: "type",
				Target: core.KindOB, TargetID: u.OBID,
			})
		}
	}
	return out
}
