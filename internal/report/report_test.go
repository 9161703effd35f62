package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/wite2/internal/audit"
	"github.com/JonMunkholm/wite2/internal/chain"
	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
	"github.com/JonMunkholm/wite2/internal/history"
	"github.com/JonMunkholm/wite2/internal/mutate"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	obs := []core.OB{
		{ID: 41, Name: "Inf Div", Suffix: "41", Type: 1, FirstYear: 41, FirstMonth: 6},
		{ID: 42, Name: "Inf Div", Suffix: "42", Type: 1, FirstYear: 42, FirstMonth: 1, PredecessorID: 41},
		{ID: 43, Name: "Inf Div", Type: 1, FirstYear: 43, FirstMonth: 1, PredecessorID: 42},
	}
	if err := b.AddOBs(obs); err != nil {
		t.Fatal(err)
	}
	return b.Build()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"TEXT", FormatText, false},
		{"json", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestChainsExport(t *testing.T) {
	g := testGraph(t)
	views := Chains(g, chain.Trace(g, chain.Options{}).Chains)

	var buf bytes.Buffer
	if err := ChainsCSV(&buf, views); err != nil {
		t.Fatal(err)
	}
	wantCSV := "Root ID,Length,Chain\n41,3,[41] Inf Div 41 -> [42] Inf Div 42 -> [43] Inf Div\n"
	if got := buf.String(); got != wantCSV {
		t.Errorf("ChainsCSV() = %q, want %q", got, wantCSV)
	}

	buf.Reset()
	if err := ChainsText(&buf, views); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "[41] Inf Div 41 -> [42] Inf Div 42 -> [43] Inf Div\n"; got != want {
		t.Errorf("ChainsText() = %q, want %q", got, want)
	}
}

func TestWriteChainsWithCycle(t *testing.T) {
	b := graph.NewBuilder()
	if err := b.AddOBs([]core.OB{{ID: 1, PredecessorID: 2}, {ID: 2, PredecessorID: 1}}); err != nil {
		t.Fatal(err)
	}
	g := b.Build()

	var buf bytes.Buffer
	if err := WriteChains(&buf, FormatText, g, chain.Trace(g, chain.Options{})); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "LOOP: cyclic chain: 1 -> 2 -> 1") || !strings.Contains(out, "0 chain(s), 1 cycle(s)") {
		t.Errorf("WriteChains() = %q", out)
	}

	buf.Reset()
	if err := WriteChains(&buf, FormatJSON, g, chain.Trace(g, chain.Options{})); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Cycles [][]int `json:"cycles"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]int{{1, 2}}, decoded.Cycles); diff != "" {
		t.Errorf("cycles mismatch (-want +got):\n%s", diff)
	}
}

func sampleReport() *audit.Report {
	return &audit.Report{
		RunID:     "run-1",
		Files:     core.ResolveFileSet("/data", "east41"),
		StartedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Errors:    1,
		ByCheck:   map[string]int{"unit-ob-ref": 1},
		Findings: []audit.Finding{{
			Check: "unit-ob-ref", Severity: audit.SeverityError, Kind: core.KindUnit,
			ID: 7, Field: "type", Line: 9, Message: "dangling reference: OB 99 does not exist",
		}},
	}
}

func TestWriteAudit(t *testing.T) {
	r := sampleReport()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteAudit(&buf, FormatText, r); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Audit east41 (run run-1)", "unit 7", "dangling reference", "1 error(s), 0 warning(s)"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteAudit(&buf, FormatJSON, r); err != nil {
			t.Fatal(err)
		}
		var got audit.Report
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(r.Findings, got.Findings); diff != "" {
			t.Errorf("findings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteAudit(&buf, FormatYAML, r); err != nil {
			t.Fatal(err)
		}
		var got map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got["run_id"] != "run-1" || got["errors"] != 1 {
			t.Errorf("decoded = %v", got)
		}
	})
}

func TestWriteBatch(t *testing.T) {
	entries := []audit.BatchEntry{
		{Files: core.ResolveFileSet("/data", "east41"), Report: sampleReport()},
		{Files: core.ResolveFileSet("/data", "west44"), Err: errors.New("open ground file: no such file")},
	}
	var buf bytes.Buffer
	if err := WriteBatch(&buf, FormatText, entries); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Index(out, "east41") > strings.Index(out, "west44") {
		t.Errorf("entries out of order:\n%s", out)
	}
	if !strings.Contains(out, "failed: open ground file") || !strings.Contains(out, "2 set(s), 1 failed, 1 error(s)") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteBatch(&buf, FormatJSON, entries); err != nil {
		t.Fatal(err)
	}
	var decoded batchOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Entries[1].Error == "" || decoded.Summary.Failed != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestInventoryCSV(t *testing.T) {
	lines := []graph.InventoryLine{{WID: 100, Name: "Rifle Squad", Total: 40, Units: 3}, {WID: 7, Name: "MG, heavy", Total: 2, Units: 1}}
	var buf bytes.Buffer
	if err := InventoryCSV(&buf, lines); err != nil {
		t.Fatal(err)
	}
	want := "WID,Name,Total,Units\n100,Rifle Squad,40,3\n7,\"MG, heavy\",2,1\n"
	if got := buf.String(); got != want {
		t.Errorf("InventoryCSV() = %q, want %q", got, want)
	}
}

func TestOrphans(t *testing.T) {
	g := testGraph(t)
	got := Orphans(g, []int{42, 99})
	want := []OrphanView{{OBID: 42, Label: "[42] Inf Div 42"}, {OBID: 99, Label: "[99] Unk"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Orphans mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteExcessRatio(t *testing.T) {
	rows := []graph.Excess{
		{UnitID: 1, Resource: core.Fuel, Have: 600, Need: 100},
		{UnitID: 2, Resource: core.Fuel, Have: 50},
	}
	var buf bytes.Buffer
	if err := WriteExcess(&buf, FormatText, rows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "6.0x") || !strings.Contains(out, "inf") {
		t.Errorf("WriteExcess() = %q", out)
	}

	buf.Reset()
	if err := WriteExcess(&buf, FormatJSON, rows); err != nil {
		t.Fatalf("json encoding failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"resource": "fuel"`) {
		t.Errorf("resource not encoded by name: %s", buf.String())
	}
}

func TestWriteMutation(t *testing.T) {
	tests := []struct {
		name string
		res  *mutate.Result
		want string
	}{
		{"none", &mutate.Result{Op: "compact"}, "compact: nothing to change"},
		{
			"committed",
			&mutate.Result{
				Op:        "replace-element",
				Changes:   []mutate.Change{{Kind: core.KindUnit, ID: 1, Field: "sqd.u0", Old: 100, New: 200}},
				Committed: []string{"a_unit.csv"},
			},
			"replace-element: 1 change(s) in 1 record(s) written to 1 file(s)",
		},
		{
			"dry run",
			&mutate.Result{Op: "compact", DryRun: true, Changes: []mutate.Change{{ID: 3}}},
			"not written (dry run)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteMutation(&buf, FormatText, tt.res); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("got %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	path, err := Export(dir, "orphans.csv", func(w io.Writer) error {
		return OrphansCSV(w, []OrphanView{{OBID: 5, Label: "[5] Pz Div", Nation: 1}})
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "OB ID,Label,Nation\n5,[5] Pz Div,1\n"; got != want {
		t.Errorf("export = %q, want %q", got, want)
	}

	_, err = Export(dir, "broken.csv", func(io.Writer) error { return errors.New("boom") })
	if err == nil {
		t.Fatal("Export() succeeded, want error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "broken.csv")); !os.IsNotExist(statErr) {
		t.Errorf("partial export left behind: %v", statErr)
	}
}

func TestWriteRuns(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteRuns(&buf, FormatText, nil); err != nil {
			t.Fatal(err)
		}
		if got, want := buf.String(), "No audit runs recorded.\n"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("table", func(t *testing.T) {
		runs := []history.Run{{
			ID:        3,
			Files:     core.ResolveFileSet("data", "east41"),
			StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Duration:  1500 * time.Millisecond,
			Errors:    2,
			Warnings:  1,
		}}
		var buf bytes.Buffer
		if err := WriteRuns(&buf, FormatText, runs); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"ID", "east41", "1.5s"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestWriteFindings(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFindings(&buf, FormatText, 3, sampleReport().Findings); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Run 3", "unit-ob-ref", "1 finding(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
