// Package mutate implements the bulk edits over a scenario's record sets and
// commits them back to disk.
//
// Transforms are pure: each takes a Set, returns a modified copy and the list
// of changes it made, and never touches the input. An error from a transform
// means nothing was changed. Engine wraps them with loading and the atomic
// commit.
package mutate

import (
	"fmt"
	"slices"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/tables"
)

// Set is the in-memory record set a transform works on. Kinds that were not
// loaded are nil.
type Set struct {
	Units  []core.Unit
	OBs    []core.OB
	Ground []core.GroundElement
}

// Clone returns a deep copy of s.
func (s Set) Clone() Set {
	var c Set
	if s.Units != nil {
		c.Units = make([]core.Unit, len(s.Units))
		for i, u := range s.Units {
			c.Units[i] = u.Clone()
		}
	}
	if s.OBs != nil {
		c.OBs = make([]core.OB, len(s.OBs))
		for i, o := range s.OBs {
			c.OBs[i] = o.Clone()
		}
	}
	if s.Ground != nil {
		c.Ground = make([]core.GroundElement, len(s.Ground))
		for i, g := range s.Ground {
			c.Ground[i] = g.Clone()
		}
	}
	return c
}

// Change is one field edit made by a transform.
type Change struct {
	Kind  core.Kind `json:"kind" yaml:"kind"`
	ID    int       `json:"id" yaml:"id"`
	Field string    `json:"field" yaml:"field"`
	Old   int       `json:"old" yaml:"old"`
	New   int       `json:"new" yaml:"new"`
}

func (c Change) String() string {
	return fmt.Sprintf("%s %d: %s %d -> %d", c.Kind, c.ID, c.Field, c.Old, c.New)
}

// Transform is a pure edit over a record set.
type Transform func(Set) (Set, []Change, error)

// ReplaceElement points every unit and OB slot holding from at to, keeping
// the count. Returns *core.UnknownWIDError, before any change, if to is not
// a ground element of s.
func ReplaceElement(s Set, from, to int) (Set, []Change, error) {
	if !core.KnownWIDs(s.Ground)[to] {
		return s, nil, &core.UnknownWIDError{WID: to}
	}
	out := s.Clone()
	var changes []Change
	for i := range out.Units {
		u := &out.Units[i]
		changes = append(changes, replaceIn(core.KindUnit, u.ID, u.Slots, tables.Unit.Slots, from, to)...)
	}
	for i := range out.OBs {
		o := &out.OBs[i]
		changes = append(changes, replaceIn(core.KindOB, o.ID, o.Slots, tables.OB.Slots, from, to)...)
	}
	return out, changes, nil
}

func replaceIn(kind core.Kind, id int, slots []core.Slot, block core.SlotBlock, from, to int) []Change {
	var changes []Change
	for j := range slots {
		if slots[j].WID != from || from == to {
			continue
		}
		slots[j].WID = to
		changes = append(changes, Change{Kind: kind, ID: id, Field: block.ItemColumn(j), Old: from, New: to})
	}
	return changes
}

// Target selects which records UpdateCount edits.
type Target int

const (
	// TargetUnits edits the slots of every unit using the OB.
	TargetUnits Target = iota
	// TargetOB edits the slots of the OB template itself.
	TargetOB
)

func (t Target) String() string {
	if t == TargetOB {
		return "ob"
	}
	return "units"
}

// ParseTarget converts "units" or "ob" to a Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "", "units", "unit":
		return TargetUnits, nil
	case "ob", "template":
		return TargetOB, nil
	}
	return 0, fmt.Errorf("unknown update target %q (want units or ob)", s)
}

// UpdateCountParams selects the slots UpdateCount edits and how.
type UpdateCountParams struct {
	OBID int
	WID  int
	// Old, when set, restricts the edit to slots whose current count equals it.
	Old *int
	// New is the count to set.
	New int
	// Delta, when non-zero, is added to the current count and New is ignored.
	Delta  int
	Target Target
}

func (p UpdateCountParams) apply(count int) int {
	if p.Delta != 0 {
		return count + p.Delta
	}
	return p.New
}

// UpdateCount sets or adjusts the count of every slot holding p.WID within
// the units of p.OBID, or within the template itself. Returns
// *core.SlotNotFoundError if no slot holds the WID; a slot skipped because
// its count differs from p.Old is not an error.
func UpdateCount(s Set, p UpdateCountParams) (Set, []Change, error) {
	out := s.Clone()
	var changes []Change
	matched := false

	edit := func(kind core.Kind, id int, slots []core.Slot, block core.SlotBlock) {
		for j := range slots {
			if slots[j].WID != p.WID || p.WID == 0 {
				continue
			}
			matched = true
			cur := slots[j].Count
			if p.Old != nil && cur != *p.Old {
				continue
			}
			if next := p.apply(cur); next != cur {
				slots[j].Count = next
				changes = append(changes, Change{Kind: kind, ID: id, Field: block.CountColumn(j), Old: cur, New: next})
			}
		}
	}

	switch p.Target {
	case TargetOB:
		i := slices.IndexFunc(out.OBs, func(o core.OB) bool { return o.ID == p.OBID })
		if i < 0 || p.OBID == 0 {
			return s, nil, &core.RecordNotFoundError{Kind: core.KindOB, ID: p.OBID}
		}
		edit(core.KindOB, p.OBID, out.OBs[i].Slots, tables.OB.Slots)
	default:
		for i := range out.Units {
			u := &out.Units[i]
			if u.OBID == p.OBID && u.ID != 0 {
				edit(core.KindUnit, u.ID, u.Slots, tables.Unit.Slots)
			}
		}
	}

	if !matched {
		return s, nil, &core.SlotNotFoundError{Kind: core.KindOB, ID: p.OBID, WID: p.WID}
	}
	return out, changes, nil
}

// Reorder returns a copy of slots with the slot at from moved to to and the
// slots in between shifted by one. Attributes travel with their slot.
func Reorder(slots []core.Slot, from, to int) ([]core.Slot, error) {
	for _, idx := range []int{from, to} {
		if idx < 0 || idx >= len(slots) {
			return nil, &core.IndexOutOfRangeError{Index: idx, Len: len(slots)}
		}
	}
	out := slices.Clone(slots)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	return out, nil
}

// SlotOf returns the first slot position holding wid.
func SlotOf(kind core.Kind, id int, slots []core.Slot, wid int) (int, error) {
	i := slices.IndexFunc(slots, func(s core.Slot) bool { return s.WID == wid })
	if i < 0 || wid == 0 {
		return -1, &core.SlotNotFoundError{Kind: kind, ID: id, WID: wid}
	}
	return i, nil
}

// Move names the slot to move and where to. When WID is non-zero the source
// position is the first slot holding it and From is ignored.
type Move struct {
	ID   int
	WID  int
	From int
	To   int
}

// ReorderUnit moves one slot of unit m.ID.
func ReorderUnit(s Set, m Move) (Set, []Change, error) {
	i := slices.IndexFunc(s.Units, func(u core.Unit) bool { return u.ID == m.ID })
	if i < 0 || m.ID == 0 {
		return s, nil, &core.RecordNotFoundError{Kind: core.KindUnit, ID: m.ID}
	}
	slots, c, err := reorderRecord(core.KindUnit, m, s.Units[i].Slots)
	if err != nil || c == nil {
		return s, nil, err
	}
	out := s.Clone()
	out.Units[i].Slots = slots
	return out, []Change{*c}, nil
}

// ReorderOB moves one slot of OB template m.ID.
func ReorderOB(s Set, m Move) (Set, []Change, error) {
	i := slices.IndexFunc(s.OBs, func(o core.OB) bool { return o.ID == m.ID })
	if i < 0 || m.ID == 0 {
		return s, nil, &core.RecordNotFoundError{Kind: core.KindOB, ID: m.ID}
	}
	slots, c, err := reorderRecord(core.KindOB, m, s.OBs[i].Slots)
	if err != nil || c == nil {
		return s, nil, err
	}
	out := s.Clone()
	out.OBs[i].Slots = slots
	return out, []Change{*c}, nil
}

// reorderRecord returns the new slots and the change, or a nil change when
// the slot is already in place.
func reorderRecord(kind core.Kind, m Move, slots []core.Slot) ([]core.Slot, *Change, error) {
	from := m.From
	if m.WID != 0 {
		i, err := SlotOf(kind, m.ID, slots, m.WID)
		if err != nil {
			return nil, nil, err
		}
		from = i
	}
	out, err := Reorder(slots, from, m.To)
	if err != nil {
		return nil, nil, err
	}
	if from == m.To {
		return nil, nil, nil
	}
	return out, &Change{Kind: kind, ID: m.ID, Field: "slot", Old: from, New: m.To}, nil
}

// CompactWeapons moves the occupied weapon slots of every ground element to
// the front, keeping their order, and clears the rest. A slot is empty when
// its WID is 0 or its count is not positive.
func CompactWeapons(s Set) (Set, []Change, error) {
	out := s.Clone()
	var changes []Change
	for i := range out.Ground {
		g := &out.Ground[i]
		packed := make([]core.Slot, 0, len(g.Weapons))
		moved := 0
		for j, w := range g.Weapons {
			if w.IsEmpty() {
				continue
			}
			if len(packed) != j {
				moved++
			}
			packed = append(packed, w)
		}
		if moved == 0 && !hasLeftovers(g.Weapons, len(packed)) {
			continue
		}
		for len(packed) < len(g.Weapons) {
			packed = append(packed, core.Slot{})
		}
		changes = append(changes, Change{Kind: core.KindGround, ID: g.WID, Field: "weapons", Old: len(g.Weapons), New: occupied(packed)})
		g.Weapons = packed
	}
	return out, changes, nil
}

// hasLeftovers reports whether any slot at or after n holds a non-zero cell.
func hasLeftovers(slots []core.Slot, n int) bool {
	for _, s := range slots[n:] {
		if s.WID != 0 || s.Count != 0 {
			return true
		}
	}
	return false
}

func occupied(slots []core.Slot) int {
	n := 0
	for _, s := range slots {
		if !s.IsEmpty() {
			n++
		}
	}
	return n
}

// ClearGhostSquads zeroes the count of every unit and OB slot that has a
// count but no WID.
func ClearGhostSquads(s Set) (Set, []Change, error) {
	out := s.Clone()
	var changes []Change
	zero := func(kind core.Kind, id int, slots []core.Slot, block core.SlotBlock) {
		for j := range slots {
			if slots[j].WID == 0 && slots[j].Count != 0 {
				changes = append(changes, Change{Kind: kind, ID: id, Field: block.CountColumn(j), Old: slots[j].Count})
				slots[j].Count = 0
			}
		}
	}
	for i := range out.Units {
		zero(core.KindUnit, out.Units[i].ID, out.Units[i].Slots, tables.Unit.Slots)
	}
	for i := range out.OBs {
		zero(core.KindOB, out.OBs[i].ID, out.OBs[i].Slots, tables.OB.Slots)
	}
	return out, changes, nil
}

// RelinkHQ points every active unit whose higher HQ is missing or inactive at
// fallback. Returns *core.RecordNotFoundError if fallback is not an active
// unit.
func RelinkHQ(s Set, fallback int) (Set, []Change, error) {
	active := make(map[int]bool, len(s.Units))
	for _, u := range s.Units {
		if u.ID != 0 && u.Active() {
			active[u.ID] = true
		}
	}
	if !active[fallback] {
		return s, nil, &core.RecordNotFoundError{Kind: core.KindUnit, ID: fallback}
	}

	out := s.Clone()
	var changes []Change
	for i := range out.Units {
		u := &out.Units[i]
		if u.ID == 0 || !u.Active() || u.HHQ == 0 || active[u.HHQ] || u.ID == fallback {
			continue
		}
		changes = append(changes, Change{Kind: core.KindUnit, ID: u.ID, Field: "hhq", Old: u.HHQ, New: fallback})
		u.HHQ = fallback
	}
	return out, changes, nil
}
