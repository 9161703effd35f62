// Package graph builds the in-memory index over a scenario's three record
// kinds and answers read-only queries against it.
//
// A Graph is built once per operation and never modified afterwards. Records
// with id 0 are placeholder rows and are not indexed; a reference of 0 means
// "none".
package graph

import (
	"slices"
	"sort"

	"github.com/JonMunkholm/wite2/internal/core"
)

// SlotRef locates one slot referencing a ground element.
type SlotRef struct {
	Owner   core.Kind `json:"owner" yaml:"owner"`
	OwnerID int       `json:"owner_id" yaml:"owner_id"`
	Slot    int       `json:"slot" yaml:"slot"`
	WID     int       `json:"wid" yaml:"wid"`
	Count   int       `json:"count" yaml:"count"`
}

// Graph holds the records of one scenario and the reverse indexes over them.
type Graph struct {
	Units  map[int]*core.Unit
	OBs    map[int]*core.OB
	Ground map[int]*core.GroundElement

	// Skipped holds the rows dropped while loading.
	Skipped []*core.RowParseError

	unitIDs, obIDs, wids []int
	unitsByOB            map[int][]int
	refs                 map[int][]SlotRef
	successors           map[int][]int
}

// Builder accumulates records and rejects duplicate identifiers.
type Builder struct {
	units  map[int]*core.Unit
	obs    map[int]*core.OB
	ground map[int]*core.GroundElement
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		units:  make(map[int]*core.Unit),
		obs:    make(map[int]*core.OB),
		ground: make(map[int]*core.GroundElement),
	}
}

// AddUnit indexes u. Returns *core.DuplicateIdentifierError if a unit with
// the same id was already added.
func (b *Builder) AddUnit(u core.Unit) error {
	if u.ID == 0 {
		return nil
	}
	if prev, ok := b.units[u.ID]; ok {
		return &core.DuplicateIdentifierError{Kind: core.KindUnit, ID: u.ID, Lines: []int{prev.Line, u.Line}}
	}
	b.units[u.ID] = &u
	return nil
}

// AddOB indexes o.
func (b *Builder) AddOB(o core.OB) error {
	if o.ID == 0 {
		return nil
	}
	if prev, ok := b.obs[o.ID]; ok {
		return &core.DuplicateIdentifierError{Kind: core.KindOB, ID: o.ID, Lines: []int{prev.Line, o.Line}}
	}
	b.obs[o.ID] = &o
	return nil
}

// AddGround indexes g.
func (b *Builder) AddGround(g core.GroundElement) error {
	if g.WID == 0 {
		return nil
	}
	if prev, ok := b.ground[g.WID]; ok {
		return &core.DuplicateIdentifierError{Kind: core.KindGround, ID: g.WID, Lines: []int{prev.Line, g.Line}}
	}
	b.ground[g.WID] = &g
	return nil
}

// AddUnits indexes every unit, stopping at the first duplicate.
func (b *Builder) AddUnits(units []core.Unit) error {
	for _, u := range units {
		if err := b.AddUnit(u); err != nil {
			return err
		}
	}
	return nil
}

// AddOBs indexes every template, stopping at the first duplicate.
func (b *Builder) AddOBs(obs []core.OB) error {
	for _, o := range obs {
		if err := b.AddOB(o); err != nil {
			return err
		}
	}
	return nil
}

// AddGroundElements indexes every element, stopping at the first duplicate.
func (b *Builder) AddGroundElements(elems []core.GroundElement) error {
	for _, g := range elems {
		if err := b.AddGround(g); err != nil {
			return err
		}
	}
	return nil
}

// Build derives the reverse indexes and returns the graph. The builder must
// not be used afterwards.
func (b *Builder) Build() *Graph {
	g := &Graph{
		Units:      b.units,
		OBs:        b.obs,
		Ground:     b.ground,
		unitIDs:    sortedKeys(b.units),
		obIDs:      sortedKeys(b.obs),
		wids:       sortedKeys(b.ground),
		unitsByOB:  make(map[int][]int),
		refs:       make(map[int][]SlotRef),
		successors: make(map[int][]int),
	}

	for _, id := range g.unitIDs {
		u := g.Units[id]
		if u.OBID != 0 {
			g.unitsByOB[u.OBID] = append(g.unitsByOB[u.OBID], id)
		}
		g.indexSlots(core.KindUnit, id, u.Slots)
	}
	for _, id := range g.obIDs {
		o := g.OBs[id]
		if o.PredecessorID != 0 {
			g.successors[o.PredecessorID] = append(g.successors[o.PredecessorID], id)
		}
		g.indexSlots(core.KindOB, id, o.Slots)
	}
	for pred, succ := range g.successors {
		sort.Slice(succ, func(i, j int) bool {
			x, y := g.OBs[succ[i]], g.OBs[succ[j]]
			if x.Sequence() != y.Sequence() {
				return x.Sequence() < y.Sequence()
			}
			return x.ID < y.ID
		})
		g.successors[pred] = succ
	}
	return g
}

func (g *Graph) indexSlots(owner core.Kind, id int, slots []core.Slot) {
	for i, s := range slots {
		if s.WID == 0 {
			continue
		}
		g.refs[s.WID] = append(g.refs[s.WID], SlotRef{Owner: owner, OwnerID: id, Slot: i, WID: s.WID, Count: s.Count})
	}
}

// UnitIDs returns every unit id in ascending order.
func (g *Graph) UnitIDs() []int { return g.unitIDs }

// OBIDs returns every OB id in ascending order.
func (g *Graph) OBIDs() []int { return g.obIDs }

// WIDs returns every ground element id in ascending order.
func (g *Graph) WIDs() []int { return g.wids }

// UnitsOf returns the ids of units referencing obID, ascending.
func (g *Graph) UnitsOf(obID int) []int { return g.unitsByOB[obID] }

// RefsTo returns every unit or OB slot referencing wid, units first, each
// kind ordered by owner id and slot.
func (g *Graph) RefsTo(wid int) []SlotRef { return g.refs[wid] }

// Successors returns the OBs naming obID as predecessor, ordered by sequence
// marker then id.
func (g *Graph) Successors(obID int) []int { return g.successors[obID] }

// UnitList returns the units in id order.
func (g *Graph) UnitList() []*core.Unit {
	out := make([]*core.Unit, len(g.unitIDs))
	for i, id := range g.unitIDs {
		out[i] = g.Units[id]
	}
	return out
}

// OBList returns the templates in id order.
func (g *Graph) OBList() []*core.OB {
	out := make([]*core.OB, len(g.obIDs))
	for i, id := range g.obIDs {
		out[i] = g.OBs[id]
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
