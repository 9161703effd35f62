// Package coretest builds scenario CSV files for tests.
package coretest

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/tables"
)

// Row holds cell values by column name. Columns not set are written as "0",
// except name which defaults to "".
type Row map[string]any

// With returns r with col set to v.
func (r Row) With(col string, v any) Row {
	r[col] = v
	return r
}

// Unit returns a unit row. slots are WID, count pairs for slots 0, 1, ...
func Unit(id, obID int, slots ...int) Row {
	r := Row{"id": id, "name": fmt.Sprintf("Unit %d", id), "type": obID, "nat": 1, "x": 10, "y": 10}
	return withSlots(r, tables.Unit.Slots, slots)
}

// OB returns an active OB template row.
func OB(id, predecessor int, slots ...int) Row {
	r := Row{"id": id, "name": fmt.Sprintf("OB %d", id), "nat": 1, "type": 1,
		"firstYear": 41, "firstMonth": 6, "predecessor": predecessor}
	return withSlots(r, tables.OB.Slots, slots)
}

// Ground returns a ground element row. weapons are WID, count pairs.
func Ground(wid int, weapons ...int) Row {
	r := Row{"id": wid, "name": fmt.Sprintf("Element %d", wid), "type": 1, "size": 1, "men": 10}
	return withSlots(r, tables.Ground.Slots, weapons)
}

func withSlots(r Row, block core.SlotBlock, pairs []int) Row {
	for i := 0; i+1 < len(pairs); i += 2 {
		r[block.ItemColumn(i/2)] = pairs[i]
		r[block.CountColumn(i/2)] = pairs[i+1]
	}
	return r
}

// Render returns the CSV text of rows under layout's canonical header.
func Render(layout *core.Layout, rows ...Row) string {
	cols := layout.Columns()
	var b strings.Builder
	b.WriteString(strings.Join(cols, ","))
	b.WriteString("\n")
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, ok := r[c]
			switch {
			case ok:
				cells[i] = fmt.Sprint(v)
			case c == "name":
				cells[i] = ""
			default:
				cells[i] = "0"
			}
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteFile writes rows to path.
func WriteFile(t testing.TB, path string, layout *core.Layout, rows ...Row) {
	t.Helper()
	if err := os.WriteFile(path, []byte(Render(layout, rows...)), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Scenario writes the three files of scenario "test" into a temp dir.
func Scenario(t testing.TB, units, obs, ground []Row) core.FileSet {
	t.Helper()
	return ScenarioIn(t, t.TempDir(), "test", units, obs, ground)
}

// ScenarioIn writes the three files of a named scenario into dir.
func ScenarioIn(t testing.TB, dir, name string, units, obs, ground []Row) core.FileSet {
	t.Helper()
	fs := core.ResolveFileSet(dir, name)
	WriteFile(t, fs.Unit, tables.Unit, units...)
	WriteFile(t, fs.OB, tables.OB, obs...)
	WriteFile(t, fs.Ground, tables.Ground, ground...)
	return fs
}

// ReadFile returns the content of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
