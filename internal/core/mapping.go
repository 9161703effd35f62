package core

// mapping.go binds a Layout to the header of an actual file and converts
// rows to and from typed records.
//
// Binding happens once per file, before the first row is read. A header that
// lacks a required column or repeats a mapped column is rejected with
// SchemaMismatchError instead of silently misaligning fields.
//
// Encoding is conservative: a record is written back into a copy of its
// source cells and a cell is only rewritten when its numeric value actually
// changed. An untouched record therefore reproduces its original cells.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mapping is a Layout resolved against a concrete header.
type Mapping struct {
	layout *Layout
	header []string
	fields map[Field]int // -1 when an optional column is absent
	items  []int
	counts []int
	attrs  [][]int // attrs[a][i] is the position of attribute a for slot i, or -1
}

// MakeHeaderIndex maps normalised header names to their first position and
// reports which names occur more than once.
func MakeHeaderIndex(header []string) (HeaderIndex, map[string]bool) {
	idx := make(HeaderIndex, len(header))
	dups := make(map[string]bool)
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := idx[key]; seen {
			dups[key] = true
			continue
		}
		idx[key] = i
	}
	return idx, dups
}

// Bind validates header against layout and returns the resolved mapping.
// Returns *SchemaMismatchError listing every missing or duplicated column.
func Bind(layout *Layout, header []string) (*Mapping, error) {
	idx, dups := MakeHeaderIndex(header)
	m := &Mapping{
		layout: layout,
		header: append([]string(nil), header...),
		fields: make(map[Field]int, len(layout.Fields)),
	}
	var missing, duplicated []string

	lookup := func(col string, required bool) int {
		key := normalizeHeader(col)
		if dups[key] {
			duplicated = append(duplicated, col)
		}
		pos, ok := idx[key]
		if !ok {
			if required {
				missing = append(missing, col)
			}
			return -1
		}
		return pos
	}

	for _, spec := range layout.Fields {
		m.fields[spec.Field] = lookup(spec.Column, spec.Required)
	}

	block := layout.Slots
	m.items = make([]int, block.Width)
	m.counts = make([]int, block.Width)
	for i := 0; i < block.Width; i++ {
		m.items[i] = lookup(block.ItemColumn(i), true)
		m.counts[i] = lookup(block.CountColumn(i), true)
	}
	m.attrs = make([][]int, len(block.Attrs))
	for a, prefix := range block.Attrs {
		m.attrs[a] = make([]int, block.Width)
		for i := 0; i < block.Width; i++ {
			m.attrs[a][i] = lookup(prefix+strconv.Itoa(i), false)
		}
	}

	if len(missing) > 0 || len(duplicated) > 0 {
		return nil, &SchemaMismatchError{
			Kind:       layout.Kind,
			Missing:    missing,
			Duplicated: duplicated,
		}
	}
	return m, nil
}

// Layout returns the layout the mapping was bound from.
func (m *Mapping) Layout() *Layout { return m.layout }

// Header returns the bound header in file order.
func (m *Mapping) Header() []string { return m.header }

// Has reports whether the file carries a column for f.
func (m *Mapping) Has(f Field) bool {
	pos, ok := m.fields[f]
	return ok && pos >= 0
}

// ParseInt parses a numeric cell. Empty cells are 0. Values written as
// integral floats ("12.0") are accepted because some editors emit them.
func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	return int(f), nil
}

// cellDecoder reads typed values from one row and keeps the first error.
type cellDecoder struct {
	m   *Mapping
	row Row
	err error
}

func (d *cellDecoder) cell(pos int) string {
	if pos < 0 || pos >= len(d.row.Cells) {
		return ""
	}
	return d.row.Cells[pos]
}

func (d *cellDecoder) parse(pos int) int {
	if d.err != nil || pos < 0 {
		return 0
	}
	n, err := ParseInt(d.cell(pos))
	if err != nil {
		d.err = &RowParseError{
			Kind:   d.m.layout.Kind,
			Line:   d.row.Line,
			Raw:    d.row.String(),
			Column: d.m.header[pos],
			Reason: err.Error(),
		}
	}
	return n
}

func (d *cellDecoder) int(f Field) int {
	pos, ok := d.m.fields[f]
	if !ok {
		return 0
	}
	return d.parse(pos)
}

func (d *cellDecoder) text(f Field) string {
	pos, ok := d.m.fields[f]
	if !ok {
		return ""
	}
	return d.cell(pos)
}

func (d *cellDecoder) slots() []Slot {
	block := d.m.layout.Slots
	slots := make([]Slot, block.Width)
	for i := range slots {
		slots[i].WID = d.parse(d.m.items[i])
		slots[i].Count = d.parse(d.m.counts[i])
		if len(block.Attrs) > 0 {
			slots[i].Attrs = make([]string, len(block.Attrs))
			for a := range block.Attrs {
				if pos := d.m.attrs[a][i]; pos >= 0 {
					slots[i].Attrs[a] = d.cell(pos)
				} else {
					slots[i].Attrs[a] = "0"
				}
			}
		}
	}
	return slots
}

func (d *cellDecoder) raw() []string {
	return append([]string(nil), d.row.Cells...)
}

// DecodeUnit converts a row of a unit file.
func (m *Mapping) DecodeUnit(row Row) (Unit, error) {
	d := &cellDecoder{m: m, row: row}
	u := Unit{
		Line:   row.Line,
		Raw:    d.raw(),
		ID:     d.int(FieldID),
		Name:   d.text(FieldName),
		OBID:   d.int(FieldOBRef),
		Nation: d.int(FieldNation),
		X:      d.int(FieldX),
		Y:      d.int(FieldY),
		Delay:  d.int(FieldDelay),
		HQ:     d.int(FieldHQ),
		HHQ:    d.int(FieldHHQ),
	}
	u.Stores[Ammo] = Store{Have: d.int(FieldAmmo), Need: d.int(FieldAmmoNeed)}
	u.Stores[Supplies] = Store{Have: d.int(FieldSupplies), Need: d.int(FieldSuppliesNeed)}
	u.Stores[Fuel] = Store{Have: d.int(FieldFuel), Need: d.int(FieldFuelNeed)}
	u.Stores[Vehicles] = Store{Have: d.int(FieldVehicles), Need: d.int(FieldVehiclesNeed)}
	u.Slots = d.slots()
	return u, d.err
}

// DecodeOB converts a row of an OB file.
func (m *Mapping) DecodeOB(row Row) (OB, error) {
	d := &cellDecoder{m: m, row: row}
	o := OB{
		Line:          row.Line,
		Raw:           d.raw(),
		ID:            d.int(FieldID),
		Name:          d.text(FieldName),
		Suffix:        d.text(FieldSuffix),
		Nation:        d.int(FieldNation),
		FirstYear:     d.int(FieldFirstYear),
		FirstMonth:    d.int(FieldFirstMonth),
		LastYear:      d.int(FieldLastYear),
		LastMonth:     d.int(FieldLastMonth),
		Type:          d.int(FieldOBType),
		PredecessorID: d.int(FieldPredecessor),
	}
	o.Slots = d.slots()
	return o, d.err
}

// DecodeGround converts a row of a ground element file.
func (m *Mapping) DecodeGround(row Row) (GroundElement, error) {
	d := &cellDecoder{m: m, row: row}
	g := GroundElement{
		Line:   row.Line,
		Raw:    d.raw(),
		WID:    d.int(FieldID),
		Name:   d.text(FieldName),
		TypeID: d.int(FieldTypeID),
		Size:   d.int(FieldSize),
		Men:    d.int(FieldMen),
	}
	g.Weapons = d.slots()
	return g, d.err
}

// cellEncoder writes typed values into a copy of a source row.
type cellEncoder struct {
	m   *Mapping
	row []string
}

func (m *Mapping) encoder(raw []string) *cellEncoder {
	row := make([]string, len(m.header))
	if raw == nil {
		for i := range row {
			row[i] = "0"
		}
	}
	copy(row, raw)
	return &cellEncoder{m: m, row: row}
}

// set stores value at pos unless the cell already holds the same number.
func (e *cellEncoder) set(pos int, value string) {
	if pos < 0 || pos >= len(e.row) {
		return
	}
	cur := e.row[pos]
	if cur == value {
		return
	}
	a, errA := ParseInt(cur)
	b, errB := ParseInt(value)
	if errA == nil && errB == nil && a == b {
		return
	}
	e.row[pos] = value
}

func (e *cellEncoder) int(f Field, v int) {
	if pos, ok := e.m.fields[f]; ok {
		e.set(pos, strconv.Itoa(v))
	}
}

func (e *cellEncoder) text(f Field, v string) {
	if pos, ok := e.m.fields[f]; ok && pos >= 0 && pos < len(e.row) {
		e.row[pos] = v
	}
}

func (e *cellEncoder) slots(slots []Slot) {
	block := e.m.layout.Slots
	for i := 0; i < block.Width; i++ {
		var s Slot
		if i < len(slots) {
			s = slots[i]
		}
		e.set(e.m.items[i], strconv.Itoa(s.WID))
		e.set(e.m.counts[i], strconv.Itoa(s.Count))
		for a := range block.Attrs {
			value := "0"
			if a < len(s.Attrs) && s.Attrs[a] != "" {
				value = s.Attrs[a]
			}
			e.set(e.m.attrs[a][i], value)
		}
	}
}

// EncodeUnit converts a unit back into a row in header order.
func (m *Mapping) EncodeUnit(u Unit) []string {
	e := m.encoder(u.Raw)
	e.int(FieldID, u.ID)
	e.text(FieldName, u.Name)
	e.int(FieldOBRef, u.OBID)
	e.int(FieldNation, u.Nation)
	e.int(FieldX, u.X)
	e.int(FieldY, u.Y)
	e.int(FieldDelay, u.Delay)
	e.int(FieldHQ, u.HQ)
	e.int(FieldHHQ, u.HHQ)
	e.int(FieldAmmo, u.Stores[Ammo].Have)
	e.int(FieldAmmoNeed, u.Stores[Ammo].Need)
	e.int(FieldSupplies, u.Stores[Supplies].Have)
	e.int(FieldSuppliesNeed, u.Stores[Supplies].Need)
	e.int(FieldFuel, u.Stores[Fuel].Have)
	e.int(FieldFuelNeed, u.Stores[Fuel].Need)
	e.int(FieldVehicles, u.Stores[Vehicles].Have)
	e.int(FieldVehiclesNeed, u.Stores[Vehicles].Need)
	e.slots(u.Slots)
	return e.row
}

// EncodeOB converts an OB template back into a row in header order.
func (m *Mapping) EncodeOB(o OB) []string {
	e := m.encoder(o.Raw)
	e.int(FieldID, o.ID)
	e.text(FieldName, o.Name)
	e.text(FieldSuffix, o.Suffix)
	e.int(FieldNation, o.Nation)
	e.int(FieldFirstYear, o.FirstYear)
	e.int(FieldFirstMonth, o.FirstMonth)
	e.int(FieldLastYear, o.LastYear)
	e.int(FieldLastMonth, o.LastMonth)
	e.int(FieldOBType, o.Type)
	e.int(FieldPredecessor, o.PredecessorID)
	e.slots(o.Slots)
	return e.row
}

// EncodeGround converts a ground element back into a row in header order.
func (m *Mapping) EncodeGround(g GroundElement) []string {
	e := m.encoder(g.Raw)
	e.int(FieldID, g.WID)
	e.text(FieldName, g.Name)
	e.int(FieldTypeID, g.TypeID)
	e.int(FieldSize, g.Size)
	e.int(FieldMen, g.Men)
	e.slots(g.Weapons)
	return e.row
}

// encodeLine renders cells as a single CSV line without a terminator.
func encodeLine(cells []string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(cells)
	w.Flush()
	return strings.TrimRight(buf.String(), "\r\n")
}
