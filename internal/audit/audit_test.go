package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/coretest"
	"github.com/JonMunkholm/wite2/internal/graph"
)

func buildGraph(t *testing.T, units []core.Unit, obs []core.OB, ground []core.GroundElement) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	if err := b.AddGroundElements(ground); err != nil {
		t.Fatal(err)
	}
	if err := b.AddOBs(obs); err != nil {
		t.Fatal(err)
	}
	if err := b.AddUnits(units); err != nil {
		t.Fatal(err)
	}
	return b.Build()
}

func slots(pairs ...int) []core.Slot {
	var out []core.Slot
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, core.Slot{WID: pairs[i], Count: pairs[i+1]})
	}
	return out
}

// run applies the named check from the battery.
func run(t *testing.T, name string, g *graph.Graph, rules Rules) []Finding {
	t.Helper()
	a := &Auditor{Rules: rules}
	for _, c := range Battery() {
		if c.Name() == name {
			a.Checks = []Check{c}
			return a.Run(context.Background(), g)
		}
	}
	t.Fatalf("no check named %q", name)
	return nil
}

type loc struct {
	Kind  core.Kind
	ID    int
	Field string
}

func locs(fs []Finding) []loc {
	var out []loc
	for _, f := range fs {
		out = append(out, loc{f.Kind, f.ID, f.Field})
	}
	return out
}

var (
	ground100 = core.GroundElement{WID: 100, Name: "Rifle Squad", TypeID: 1, Size: 1, Men: 10}
	ob10      = core.OB{ID: 10, Type: 1, FirstYear: 41, FirstMonth: 6, Slots: slots(100, 9)}
)

func TestBatteryOrder(t *testing.T) {
	want := []string{
		"row-parse", "unit-ob-ref", "unit-hq-ref", "ob-predecessor-ref", "ob-cycle",
		"slot-ref", "ghost-squad", "orphan-template", "unit-bounds", "unit-delay",
		"ob-dates", "duplicate-slot", "ground-element",
	}
	var got []string
	for _, c := range Battery() {
		got = append(got, c.Name())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("battery mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanGraphHasNoFindings(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{
			{ID: 1, OBID: 10, X: 10, Y: 10, Slots: slots(100, 9)},
			{ID: 2, OBID: 10, X: 20, Y: 30, HHQ: 1},
		},
		[]core.OB{ob10},
		[]core.GroundElement{ground100},
	)
	a := &Auditor{Rules: DefaultRules()}
	if got := a.Run(context.Background(), g); len(got) != 0 {
		t.Errorf("Run() = %v, want no findings", got)
	}
}

func TestChecks(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name   string
		check  string
		units  []core.Unit
		obs    []core.OB
		ground []core.GroundElement
		rules  func(*Rules)
		want   []loc
	}{
		{
			name:  "dangling ob reference",
			check: "unit-ob-ref",
			units: []core.Unit{{ID: 1, OBID: 99}, {ID: 2, OBID: 10}, {ID: 3}},
			obs:   []core.OB{ob10},
			want:  []loc{{core.KindUnit, 1, "type"}},
		},
		{
			name:  "missing and inactive hq",
			check: "unit-hq-ref",
			units: []core.Unit{
				{ID: 1, OBID: 10, HHQ: 5},
				{ID: 2, OBID: 10, HHQ: 3},
				{ID: 3},
				{ID: 4, OBID: 10, HHQ: 2},
			},
			obs:  []core.OB{ob10},
			want: []loc{{core.KindUnit, 1, "hhq"}, {core.KindUnit, 2, "hhq"}},
		},
		{
			name:  "dangling predecessor",
			check: "ob-predecessor-ref",
			obs:   []core.OB{{ID: 1, Type: 1}, {ID: 2, Type: 1, PredecessorID: 9}, {ID: 3, Type: 1, PredecessorID: 1}},
			want:  []loc{{core.KindOB, 2, "predecessor"}},
		},
		{
			name:  "cycles",
			check: "ob-cycle",
			obs: []core.OB{
				{ID: 5, Type: 1, PredecessorID: 4},
				{ID: 4, Type: 1, PredecessorID: 5},
				{ID: 7, Type: 1, PredecessorID: 7},
				{ID: 8, Type: 1},
			},
			want: []loc{{core.KindOB, 4, "predecessor"}, {core.KindOB, 7, "predecessor"}},
		},
		{
			name:   "unknown slot wid",
			check:  "slot-ref",
			units:  []core.Unit{{ID: 1, OBID: 10, Slots: slots(100, 1, 7, 2)}},
			obs:    []core.OB{{ID: 10, Type: 1, Slots: slots(0, 0, 0, 0, 8, 1)}},
			ground: []core.GroundElement{ground100},
			want:   []loc{{core.KindUnit, 1, "sqd.u1"}, {core.KindOB, 10, "sqd 2"}},
		},
		{
			name:   "unknown slot wid reclassified as ghost",
			check:  "slot-ref",
			units:  []core.Unit{{ID: 1, OBID: 10, Slots: slots(7, 2)}},
			obs:    []core.OB{ob10},
			ground: []core.GroundElement{ground100},
			rules:  func(r *Rules) { r.Ghost.Missing = true },
		},
		{
			name:   "default ghost rules",
			check:  "ghost-squad",
			units:  []core.Unit{{ID: 1, OBID: 10, Slots: slots(0, 5, 100, 0, 100, -2, 100, 3, 0, 0)}},
			obs:    []core.OB{ob10},
			ground: []core.GroundElement{ground100},
			want: []loc{
				{core.KindUnit, 1, "sqd.num0"},
				{core.KindUnit, 1, "sqd.num1"},
				{core.KindUnit, 1, "sqd.num2"},
			},
		},
		{
			name:   "unset rule only",
			check:  "ghost-squad",
			units:  []core.Unit{{ID: 1, OBID: 10, Slots: slots(0, 5, 100, 0, 100, -2)}},
			obs:    []core.OB{ob10},
			ground: []core.GroundElement{ground100},
			rules:  func(r *Rules) { r.Ghost = GhostRules{Unset: true} },
			want:   []loc{{core.KindUnit, 1, "sqd.num0"}},
		},
		{
			name:   "missing rule",
			check:  "ghost-squad",
			units:  []core.Unit{{ID: 1, OBID: 10, Slots: slots(7, 2)}},
			obs:    []core.OB{ob10},
			ground: []core.GroundElement{ground100},
			rules:  func(r *Rules) { r.Ghost = GhostRules{Missing: true} },
			want:   []loc{{core.KindUnit, 1, "sqd.num0"}},
		},
		{
			name:   "inactive units skipped",
			check:  "ghost-squad",
			units:  []core.Unit{{ID: 1, Slots: slots(0, 5)}},
			obs:    []core.OB{ob10},
			ground: []core.GroundElement{ground100},
		},
		{
			name:  "orphan template",
			check: "orphan-template",
			units: []core.Unit{{ID: 1, OBID: 10}},
			obs:   []core.OB{ob10, {ID: 11, Type: 1, PredecessorID: 10}, {ID: 12}},
			want:  []loc{{core.KindOB, 11, ""}},
		},
		{
			name:  "orphan template following chains",
			check: "orphan-template",
			units: []core.Unit{{ID: 1, OBID: 10}},
			obs:   []core.OB{ob10, {ID: 11, Type: 1, PredecessorID: 10}},
			rules: func(r *Rules) { r.FollowChains = true },
		},
		{
			name:  "bounds",
			check: "unit-bounds",
			units: []core.Unit{
				{ID: 1, OBID: 10, X: 379, Y: 10},
				{ID: 2, OBID: 10, X: 378, Y: 354},
				{ID: 3, OBID: 10, X: -1, Y: 5},
				{ID: 4, OBID: 10},
				{ID: 5, X: 999, Y: 999},
			},
			obs:  []core.OB{ob10},
			want: []loc{{core.KindUnit, 1, "x"}, {core.KindUnit, 3, "x"}},
		},
		{
			name:  "pool origin reported",
			check: "unit-bounds",
			units: []core.Unit{{ID: 4, OBID: 10}},
			obs:   []core.OB{ob10},
			rules: func(r *Rules) { r.IgnoreOrigin = false },
			want:  []loc{{core.KindUnit, 4, "x"}},
		},
		{
			name:  "delay",
			check: "unit-delay",
			units: []core.Unit{{ID: 1, OBID: 10, Delay: 225}, {ID: 2, OBID: 10, Delay: 226}},
			obs:   []core.OB{ob10},
			want:  []loc{{core.KindUnit, 2, "delay"}},
		},
		{
			name:  "dates",
			check: "ob-dates",
			obs: []core.OB{
				{ID: 1, Type: 1},
				{ID: 2, Type: 1, FirstYear: 42, FirstMonth: 3, LastYear: 41, LastMonth: 12},
				{ID: 3, Type: 1, FirstYear: 42, FirstMonth: 3, LastYear: 42, LastMonth: 3},
				{ID: 4},
			},
			want: []loc{{core.KindOB, 1, "firstYear"}, {core.KindOB, 2, "lastYear"}},
		},
		{
			name:   "duplicate slot",
			check:  "duplicate-slot",
			units:  []core.Unit{{ID: 1, OBID: 10, Slots: slots(100, 1, 0, 0, 100, 2)}},
			obs:    []core.OB{ob10},
			ground: []core.GroundElement{ground100},
			want:   []loc{{core.KindUnit, 1, "sqd.u2"}},
		},
		{
			name:  "ground element limits",
			check: "ground-element",
			ground: []core.GroundElement{
				ground100,
				{WID: 101, TypeID: 1, Size: 1, Men: 0},
				{WID: 102, TypeID: 1, Size: 0, Men: 31},
				{WID: 103, Size: 0, Men: 0},
			},
			want: []loc{
				{core.KindGround, 101, "men"},
				{core.KindGround, 102, "men"},
				{core.KindGround, 102, "size"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rules
			if tt.rules != nil {
				tt.rules(&r)
			}
			g := buildGraph(t, tt.units, tt.obs, tt.ground)
			got := locs(run(t, tt.check, g, r))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("%s findings mismatch (-want +got):\n%s", tt.check, diff)
			}
		})
	}
}

func TestDanglingFindingsCarryCause(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{{ID: 1, OBID: 99, HHQ: 8, Slots: slots(7, 1)}},
		[]core.OB{{ID: 2, Type: 1, PredecessorID: 6}},
		[]core.GroundElement{ground100},
	)
	for _, check := range []string{"unit-ob-ref", "unit-hq-ref", "ob-predecessor-ref", "slot-ref"} {
		t.Run(check, func(t *testing.T) {
			findings := run(t, check, g, DefaultRules())
			if len(findings) != 1 {
				t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
			}
			var ref *core.DanglingReferenceError
			if !errors.As(findings[0].Cause, &ref) || !errors.Is(findings[0].Cause, core.ErrDanglingReference) {
				t.Fatalf("Cause = %v, want DanglingReferenceError", findings[0].Cause)
			}
			if ref.ID != findings[0].ID || ref.Field != findings[0].Field {
				t.Errorf("Cause locates %s %d %q, finding %s %d %q",
					ref.Kind, ref.ID, ref.Field, findings[0].Kind, findings[0].ID, findings[0].Field)
			}
		})
	}
}

func TestSeverities(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{{ID: 1, OBID: 99, X: 500, Y: 1, Slots: slots(0, 3)}},
		[]core.OB{ob10},
		[]core.GroundElement{ground100},
	)
	a := &Auditor{Rules: DefaultRules()}
	want := map[string]Severity{
		"unit-ob-ref":     SeverityError,
		"ghost-squad":     SeverityWarning,
		"orphan-template": SeverityWarning,
		"unit-bounds":     SeverityWarning,
	}
	got := make(map[string]Severity)
	for _, f := range a.Run(context.Background(), g) {
		got[f.Check] = f.Severity
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("severities mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDoesNotMutate(t *testing.T) {
	u := core.Unit{ID: 1, OBID: 10, Slots: slots(0, 5, 7, 1)}
	g := buildGraph(t, []core.Unit{u}, []core.OB{ob10}, nil)
	before := g.Units[1].Clone()
	(&Auditor{Rules: DefaultRules()}).Run(context.Background(), g)
	if diff := cmp.Diff(before, *g.Units[1]); diff != "" {
		t.Errorf("unit changed by audit (-before +after):\n%s", diff)
	}
}

func TestParseGhostRules(t *testing.T) {
	tests := []struct {
		in      string
		want    GhostRules
		wantErr bool
	}{
		{"unset,zero,negative", DefaultGhostRules, false},
		{" Missing , zero", GhostRules{Zero: true, Missing: true}, false},
		{"", GhostRules{}, false},
		{"phantom", GhostRules{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGhostRules(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGhostRules(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	if got := DefaultGhostRules.String(); got != "unset,zero,negative" {
		t.Errorf("String() = %q", got)
	}
}

func TestAudit(t *testing.T) {
	fs := coretest.Scenario(t,
		[]coretest.Row{
			coretest.Unit(1, 10, 100, 5),
			coretest.Unit(2, 99),
			coretest.Unit(3, 10).With("x", "far"),
		},
		[]coretest.Row{coretest.OB(10, 0, 100, 9)},
		[]coretest.Row{coretest.Ground(100)},
	)
	a := New(DefaultRules(), "", 1)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return start }

	r, err := a.Audit(context.Background(), fs)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if r.RunID == "" {
		t.Error("RunID is empty")
	}
	if !r.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", r.StartedAt, start)
	}
	if r.RowsSkipped != 1 {
		t.Errorf("RowsSkipped = %d, want 1", r.RowsSkipped)
	}
	want := map[string]int{"row-parse": 1, "unit-ob-ref": 1}
	if diff := cmp.Diff(want, r.ByCheck); diff != "" {
		t.Errorf("ByCheck mismatch (-want +got):\n%s", diff)
	}
	if r.Errors != 2 || r.Warnings != 0 || !r.HasErrors() || !r.HasFindings() {
		t.Errorf("got %d errors, %d warnings", r.Errors, r.Warnings)
	}
	if diff := cmp.Diff([]string{"row-parse", "unit-ob-ref"}, r.CheckNames()); diff != "" {
		t.Errorf("CheckNames mismatch (-want +got):\n%s", diff)
	}
}

func TestAuditUsesContextRunID(t *testing.T) {
	fs := coretest.Scenario(t, nil, nil, nil)
	ctx := core.ContextWithRunID(context.Background(), "run-1")
	r, err := New(DefaultRules(), "", 1).Audit(ctx, fs)
	if err != nil {
		t.Fatal(err)
	}
	if r.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", r.RunID)
	}
}

func TestAuditDuplicateIsFatal(t *testing.T) {
	fs := coretest.Scenario(t,
		nil,
		[]coretest.Row{coretest.OB(10, 0), coretest.OB(10, 0)},
		nil,
	)
	r, err := New(DefaultRules(), "", 1).Audit(context.Background(), fs)
	if !errors.Is(err, core.ErrDuplicateIdentifier) {
		t.Fatalf("Audit() error = %v, want ErrDuplicateIdentifier", err)
	}
	if r != nil {
		t.Errorf("Audit() report = %v, want nil", r)
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	clean := coretest.ScenarioIn(t, dir, "a", nil, nil, nil)
	dirty := coretest.ScenarioIn(t, dir, "b",
		[]coretest.Row{coretest.Unit(1, 99)}, nil, nil)
	broken := core.ResolveFileSet(filepath.Join(dir, "missing"), "c")

	sets := []core.FileSet{dirty, broken, clean, dirty}
	entries := New(DefaultRules(), "", 2).Batch(context.Background(), sets)

	if len(entries) != len(sets) {
		t.Fatalf("got %d entries, want %d", len(entries), len(sets))
	}
	for i, e := range entries {
		if e.Files != sets[i] {
			t.Errorf("entry %d: Files = %v, want %v", i, e.Files, sets[i])
		}
	}
	if entries[1].Err == nil || entries[1].Report != nil {
		t.Errorf("entry 1 = %+v, want an error", entries[1])
	}
	for _, i := range []int{0, 2, 3} {
		if entries[i].Err != nil {
			t.Errorf("entry %d error = %v", i, entries[i].Err)
		}
	}
	if entries[0].Report.Errors != 1 || entries[2].Report.HasFindings() {
		t.Errorf("unexpected reports: %+v, %+v", entries[0].Report, entries[2].Report)
	}

	sum := Summarize(entries)
	if sum != (Summary{Sets: 4, Failed: 1, Errors: 2}) {
		t.Errorf("Summarize() = %+v", sum)
	}
}

func TestFindingString(t *testing.T) {
	f := Finding{Check: "unit-delay", Severity: SeverityWarning, Kind: core.KindUnit, ID: 4, Line: 7, Message: "late"}
	got := f.String()
	if !strings.Contains(got, "[warning] unit-delay: unit 4 (line 7): late") {
		t.Errorf("String() = %q", got)
	}
}
