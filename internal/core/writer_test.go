package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCommitRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		encoding string
	}{
		{
			name:    "plain LF",
			content: testCSV("1,A,10,0,0,0,0,0,0,0,0", "2,B,11,600,100,100,0,5,0,45,0"),
		},
		{
			name:    "BOM and CRLF",
			content: "\xef\xbb\xbf" + strings.ReplaceAll(testCSV("1,A,10,0,0,0,0,0,0,0,0"), "\n", "\r\n"),
		},
		{
			name:     "windows-1252 names",
			content:  testCSV("1,Gebirgsj\xe4ger,10,0,0,0,0,0,0,0,0"),
			encoding: "windows-1252",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFixture(t, "s_unit.csv", tt.content)

			f, err := LoadUnitFile(path, testUnitLayout, tt.encoding)
			if err != nil {
				t.Fatalf("LoadUnitFile() error = %v", err)
			}
			if err := f.Commit(); err != nil {
				t.Fatalf("Commit() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.content {
				t.Errorf("got %q, want %q", got, tt.content)
			}
		})
	}
}

func TestCommitKeepsFileMode(t *testing.T) {
	path := writeFixture(t, "s_unit.csv", testCSV("1,A,10,0,0,0,0,0,0,0,0"))
	f, err := LoadUnitFile(path, testUnitLayout, "")
	if err != nil {
		t.Fatal(err)
	}
	f.Units[0].Slots[0] = Slot{WID: 50, Count: 2}
	if err := f.Commit(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestWriteAtomicSanityFailureLeavesOriginal(t *testing.T) {
	content := testCSV("1,A,10,0,0,0,0,0,0,0,0", "2,B,10,0,0,0,0,0,0,0,0")
	path := writeFixture(t, "s_unit.csv", content)
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	saved := countRows
	countRows = func(string, Format) (int, error) { return 1, nil }
	t.Cleanup(func() { countRows = saved })

	f, err := LoadUnitFile(path, testUnitLayout, "")
	if err != nil {
		t.Fatal(err)
	}
	f.Units[0].Name = "changed"
	err = f.Commit()

	var sc *WriteSanityCheckError
	if !errors.As(err, &sc) {
		t.Fatalf("Commit() error = %v, want *WriteSanityCheckError", err)
	}
	if sc.Want != 2 || sc.Got != 1 {
		t.Errorf("got want=%d got=%d", sc.Want, sc.Got)
	}

	got, _ := os.ReadFile(path)
	if string(got) != content {
		t.Errorf("original content changed:\n%s", got)
	}
	info, _ := os.Stat(path)
	if !info.ModTime().Equal(old) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), old)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries in dir", len(entries))
	}
}

func TestWriteAtomicVerifiesPendingFile(t *testing.T) {
	path := writeFixture(t, "s_unit.csv", testCSV("1,A,10,0,0,0,0,0,0,0,0"))

	var checked string
	saved := countRows
	countRows = func(p string, f Format) (int, error) {
		checked = p
		return saved(p, f)
	}
	t.Cleanup(func() { countRows = saved })

	rows := [][]string{
		{"1", "A", "10", "0", "0", "0", "0", "0", "0", "0", "0"},
		{"2", "B", "10", "0", "0", "0", "0", "0", "0", "0", "0"},
	}
	if err := WriteAtomic(path, testUnitHeader, rows, Format{}); err != nil {
		t.Fatalf("WriteAtomic() error = %v", err)
	}

	if checked == "" || checked == path || filepath.Dir(checked) != filepath.Dir(path) {
		t.Errorf("row count checked on %q, want a pending file next to %q", checked, path)
	}
	if _, err := os.Stat(checked); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("pending file %q still present: %v", checked, err)
	}
	if n, err := countDataRows(path, Format{}); err != nil || n != 2 {
		t.Errorf("countDataRows() = %d, %v; want 2 rows", n, err)
	}
}

func TestCountDataRows(t *testing.T) {
	path := writeFixture(t, "x.csv", "a,b\n1,\"multi\nline\"\n2,3\n")
	got, err := countDataRows(path, Format{})
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestDiscoverFileSets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_unit.csv", "b_ob.csv", "b_ground.csv", "a_unit.csv", "a_ob.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sets, err := DiscoverFileSets(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	if sets[0].Scenario != "a" || sets[1].Scenario != "b" {
		t.Errorf("scenarios = %q, %q", sets[0].Scenario, sets[1].Scenario)
	}
	if sets[0].Ground != filepath.Join(dir, "a_ground.csv") {
		t.Errorf("missing ground file should keep its conventional path, got %q", sets[0].Ground)
	}
}

func TestDiscoverFileSetsKeepsFileNames(t *testing.T) {
	dir := t.TempDir()
	names := []string{"1941_Unit.csv", "1941_OB.CSV", "1941_ground.csv"}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sets, err := DiscoverFileSets(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := FileSet{
		Scenario: "1941",
		Unit:     filepath.Join(dir, names[0]),
		OB:       filepath.Join(dir, names[1]),
		Ground:   filepath.Join(dir, names[2]),
	}
	if len(sets) != 1 {
		t.Fatalf("got %d sets, want 1: %+v", len(sets), sets)
	}
	if sets[0] != want {
		t.Errorf("DiscoverFileSets() = %+v, want %+v", sets[0], want)
	}
	for _, kind := range []Kind{KindUnit, KindOB, KindGround} {
		if _, err := os.Stat(sets[0].Path(kind)); err != nil {
			t.Errorf("%s path not on disk: %v", kind, err)
		}
	}
}

func TestFileSetOverrides(t *testing.T) {
	fs := ResolveFileSet("/data", "1941").WithOverrides("", "/tmp/other_ob.csv", "")
	if fs.Unit != filepath.Join("/data", "1941_unit.csv") {
		t.Errorf("Unit = %q", fs.Unit)
	}
	if fs.Path(KindOB) != "/tmp/other_ob.csv" {
		t.Errorf("OB = %q", fs.OB)
	}
}
