package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the three record kinds of a scenario.
type Kind string

const (
	KindUnit   Kind = "unit"
	KindOB     Kind = "ob"
	KindGround Kind = "ground"
)

// Field is a logical field name, independent of the column header used in
// any particular file.
type Field string

const (
	FieldID     Field = "id"
	FieldName   Field = "name"
	FieldNation Field = "nation"

	// Unit fields
	FieldOBRef        Field = "ob_id"
	FieldX            Field = "x"
	FieldY            Field = "y"
	FieldDelay        Field = "delay"
	FieldHQ           Field = "hq"
	FieldHHQ          Field = "hhq"
	FieldAmmo         Field = "ammo"
	FieldAmmoNeed     Field = "ammo_need"
	FieldSupplies     Field = "supplies"
	FieldSuppliesNeed Field = "supplies_need"
	FieldFuel         Field = "fuel"
	FieldFuelNeed     Field = "fuel_need"
	FieldVehicles     Field = "vehicles"
	FieldVehiclesNeed Field = "vehicles_need"

	// OB fields
	FieldSuffix      Field = "suffix"
	FieldFirstYear   Field = "first_year"
	FieldFirstMonth  Field = "first_month"
	FieldLastYear    Field = "last_year"
	FieldLastMonth   Field = "last_month"
	FieldOBType      Field = "ob_type"
	FieldPredecessor Field = "predecessor_ob_id"

	// Ground element fields
	FieldTypeID Field = "type_id"
	FieldSize   Field = "size"
	FieldMen    Field = "men"
)

// FieldType represents how a column's cells are parsed.
type FieldType int

const (
	FieldInt FieldType = iota
	FieldText
)

// FieldSpec maps one logical field to a column header.
type FieldSpec struct {
	Field    Field     // Logical field
	Column   string    // Column header name (matched case-insensitively)
	Type     FieldType // Expected data type
	Required bool      // Column must exist in the header
}

// SlotBlock describes a fixed-width block of repeated slot columns. Column
// names are the prefix followed by the zero-based slot index, e.g. "sqd.u0".
type SlotBlock struct {
	Item  string   // Prefix of the item reference column
	Count string   // Prefix of the count column
	Attrs []string // Optional per-slot columns that travel with the slot
	Width int      // Number of slots
}

// ItemColumn returns the item reference column name for slot i.
func (b SlotBlock) ItemColumn(i int) string { return b.Item + strconv.Itoa(i) }

// CountColumn returns the count column name for slot i.
func (b SlotBlock) CountColumn(i int) string { return b.Count + strconv.Itoa(i) }

// Layout is the fixed column mapping of one record kind.
type Layout struct {
	Kind   Kind
	Label  string // Display name: "Units"
	Suffix string // File name suffix: "_unit.csv"
	Fields []FieldSpec
	Slots  SlotBlock
}

// Columns returns the canonical header for the layout: scalar fields in
// declaration order, then item, count and attribute columns per block.
func (l *Layout) Columns() []string {
	cols := make([]string, 0, len(l.Fields)+l.Slots.Width*(2+len(l.Slots.Attrs)))
	for _, f := range l.Fields {
		cols = append(cols, f.Column)
	}
	for i := 0; i < l.Slots.Width; i++ {
		cols = append(cols, l.Slots.ItemColumn(i))
	}
	for i := 0; i < l.Slots.Width; i++ {
		cols = append(cols, l.Slots.CountColumn(i))
	}
	for _, prefix := range l.Slots.Attrs {
		for i := 0; i < l.Slots.Width; i++ {
			cols = append(cols, prefix+strconv.Itoa(i))
		}
	}
	return cols
}

// HeaderIndex maps normalised column names to their first position in a row.
type HeaderIndex map[string]int

// normalizeHeader lowercases and trims a header cell for matching.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Row is one data line of a CSV file.
type Row struct {
	Line  int      // 1-based line number in the source file
	Cells []string // Raw cell values
}

// String renders the row as a CSV line for error reporting.
func (r Row) String() string {
	return encodeLine(r.Cells)
}

// Slot is one (item reference, count) entry of a slot block.
// WID 0 marks an empty slot.
type Slot struct {
	WID   int
	Count int
	Attrs []string // Raw per-slot attribute cells, in SlotBlock.Attrs order
}

// IsEmpty reports whether the slot holds nothing: no item or no count.
func (s Slot) IsEmpty() bool {
	return s.WID == 0 || s.Count <= 0
}

func cloneSlots(slots []Slot) []Slot {
	if slots == nil {
		return nil
	}
	out := make([]Slot, len(slots))
	for i, s := range slots {
		out[i] = Slot{WID: s.WID, Count: s.Count}
		if s.Attrs != nil {
			out[i].Attrs = append([]string(nil), s.Attrs...)
		}
	}
	return out
}

// Resource is one of the four logistic stores a unit carries.
type Resource int

const (
	Ammo Resource = iota
	Supplies
	Fuel
	Vehicles
	numResources
)

// Resources lists every resource in display order.
var Resources = []Resource{Ammo, Supplies, Fuel, Vehicles}

func (r Resource) String() string {
	switch r {
	case Ammo:
		return "ammo"
	case Supplies:
		return "supplies"
	case Fuel:
		return "fuel"
	case Vehicles:
		return "vehicles"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// MarshalText renders the resource by name in JSON and YAML output.
func (r Resource) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseResource converts a resource name to a Resource.
func ParseResource(s string) (Resource, error) {
	for _, r := range Resources {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q (want ammo, supplies, fuel or vehicles)", s)
}

// Store is the quantity of one resource a unit holds and needs.
type Store struct {
	Have int
	Need int
}

// Unit is a decoded row of a unit file.
type Unit struct {
	Line   int
	Raw    []string // Source cells, used to preserve unmapped columns on write
	ID     int
	Name   string
	OBID   int // OB template; 0 marks an inactive unit
	Nation int
	X, Y   int
	Delay  int
	HQ     int
	HHQ    int
	Stores [numResources]Store
	Slots  []Slot
}

// Active reports whether the unit is in use by the scenario.
func (u Unit) Active() bool { return u.OBID != 0 }

// Clone returns a deep copy of the unit.
func (u Unit) Clone() Unit {
	c := u
	c.Raw = append([]string(nil), u.Raw...)
	c.Slots = cloneSlots(u.Slots)
	return c
}

// OB is a decoded row of an OB (TOE) file.
type OB struct {
	Line          int
	Raw           []string
	ID            int
	Name          string
	Suffix        string
	Nation        int
	FirstYear     int
	FirstMonth    int
	LastYear      int
	LastMonth     int
	Type          int // 0 marks an inactive template
	PredecessorID int // 0 when the template starts a chain
	Slots         []Slot
}

// Active reports whether the template is in use by the scenario.
func (o OB) Active() bool { return o.Type != 0 }

// Sequence returns the chronological ordering marker of the template.
func (o OB) Sequence() int { return o.FirstYear*12 + o.FirstMonth }

// Label returns "[id] name suffix" for reports.
func (o OB) Label() string {
	return strings.TrimSpace(fmt.Sprintf("[%d] %s %s", o.ID, o.Name, o.Suffix))
}

// Clone returns a deep copy of the template.
func (o OB) Clone() OB {
	c := o
	c.Raw = append([]string(nil), o.Raw...)
	c.Slots = cloneSlots(o.Slots)
	return c
}

// GroundElement is a decoded row of a ground element file.
type GroundElement struct {
	Line    int
	Raw     []string
	WID     int
	Name    string
	TypeID  int
	Size    int
	Men     int
	Weapons []Slot
}

// Clone returns a deep copy of the ground element.
func (g GroundElement) Clone() GroundElement {
	c := g
	c.Raw = append([]string(nil), g.Raw...)
	c.Weapons = cloneSlots(g.Weapons)
	return c
}
