package core

import "fmt"

// Table is a materialised file: its binding and on-disk format, kept so the
// records can be written back exactly as they were read.
type Table struct {
	Path    string
	Mapping *Mapping
	Format  Format
}

// Header returns the file's header in original order.
func (t *Table) Header() []string { return t.Mapping.Header() }

func (t *Table) commit(rows [][]string) error {
	if err := WriteAtomic(t.Path, t.Header(), rows, t.Format); err != nil {
		return fmt.Errorf("commit %s: %w", t.Path, err)
	}
	return nil
}

// UnitFile is a fully loaded unit file.
type UnitFile struct {
	Table
	Units []Unit
}

// OBFile is a fully loaded OB file.
type OBFile struct {
	Table
	OBs []OB
}

// GroundFile is a fully loaded ground element file.
type GroundFile struct {
	Table
	Elements []GroundElement
}

// load reads a whole file with AbortOnError.
func load[T any](path string, layout *Layout, label string, decode func(*Mapping, Row) (T, error)) (Table, []T, error) {
	r, err := Open(path, layout, label)
	if err != nil {
		return Table{}, nil, err
	}
	defer r.Close()

	recs, _, err := Collect(r, AbortOnError, decode)
	if err != nil {
		return Table{}, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return Table{Path: path, Mapping: r.Mapping(), Format: r.Format()}, recs, nil
}

// LoadUnitFile reads every unit of path. Any malformed row aborts the load.
func LoadUnitFile(path string, layout *Layout, label string) (*UnitFile, error) {
	t, units, err := load(path, layout, label, (*Mapping).DecodeUnit)
	if err != nil {
		return nil, err
	}
	return &UnitFile{Table: t, Units: units}, nil
}

// LoadOBFile reads every OB template of path. Any malformed row aborts the load.
func LoadOBFile(path string, layout *Layout, label string) (*OBFile, error) {
	t, obs, err := load(path, layout, label, (*Mapping).DecodeOB)
	if err != nil {
		return nil, err
	}
	return &OBFile{Table: t, OBs: obs}, nil
}

// LoadGroundFile reads every ground element of path. Any malformed row aborts
// the load.
func LoadGroundFile(path string, layout *Layout, label string) (*GroundFile, error) {
	t, elems, err := load(path, layout, label, (*Mapping).DecodeGround)
	if err != nil {
		return nil, err
	}
	return &GroundFile{Table: t, Elements: elems}, nil
}

// Commit atomically writes the units back to the file they were loaded from.
func (f *UnitFile) Commit() error {
	rows := make([][]string, len(f.Units))
	for i, u := range f.Units {
		rows[i] = f.Mapping.EncodeUnit(u)
	}
	return f.commit(rows)
}

// Commit atomically writes the templates back to the file they were loaded from.
func (f *OBFile) Commit() error {
	rows := make([][]string, len(f.OBs))
	for i, o := range f.OBs {
		rows[i] = f.Mapping.EncodeOB(o)
	}
	return f.commit(rows)
}

// Commit atomically writes the elements back to the file they were loaded from.
func (f *GroundFile) Commit() error {
	rows := make([][]string, len(f.Elements))
	for i, g := range f.Elements {
		rows[i] = f.Mapping.EncodeGround(g)
	}
	return f.commit(rows)
}

// KnownWIDs returns the set of non-zero ground element ids in elems.
func KnownWIDs(elems []GroundElement) map[int]bool {
	known := make(map[int]bool, len(elems))
	for _, g := range elems {
		if g.WID != 0 {
			known[g.WID] = true
		}
	}
	return known
}
