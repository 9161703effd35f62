package graph

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/core/coretest"
)

func buildGraph(t *testing.T, units []core.Unit, obs []core.OB, ground []core.GroundElement) *Graph {
	t.Helper()
	b := NewBuilder()
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

func TestBuilderRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name string
		add  func(b *Builder) error
		kind core.Kind
	}{
		{
			name: "units",
			add: func(b *Builder) error {
				return b.AddUnits([]core.Unit{{ID: 1, Line: 2}, {ID: 1, Line: 5}})
			},
			kind: core.KindUnit,
		},
		{
			name: "obs",
			add: func(b *Builder) error {
				return b.AddOBs([]core.OB{{ID: 3, Line: 2}, {ID: 3, Line: 3}})
			},
			kind: core.KindOB,
		},
		{
			name: "ground",
			add: func(b *Builder) error {
				return b.AddGroundElements([]core.GroundElement{{WID: 9}, {WID: 9}})
			},
			kind: core.KindGround,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add(NewBuilder())
			var de *core.DuplicateIdentifierError
			if !errors.As(err, &de) {
				t.Fatalf("error = %v, want *DuplicateIdentifierError", err)
			}
			if de.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", de.Kind, tt.kind)
			}
		})
	}
}

func TestBuilderIgnoresPlaceholders(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{{ID: 0}, {ID: 0}, {ID: 1, OBID: 10}},
		[]core.OB{{ID: 0}, {ID: 10}},
		nil,
	)
	if len(g.Units) != 1 || len(g.OBs) != 1 {
		t.Errorf("got %d units, %d obs; want 1, 1", len(g.Units), len(g.OBs))
	}
}

func TestReverseIndexes(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{
			{ID: 2, OBID: 10, Slots: slots(100, 5, 0, 0, 200, 1)},
			{ID: 1, OBID: 10, Slots: slots(100, 3)},
			{ID: 3, OBID: 0, Slots: slots(100, 1)},
		},
		[]core.OB{
			{ID: 10, Slots: slots(0, 0, 100, 8)},
			{ID: 12, PredecessorID: 10, FirstYear: 42, FirstMonth: 1},
			{ID: 11, PredecessorID: 10, FirstYear: 42, FirstMonth: 1},
			{ID: 13, PredecessorID: 10, FirstYear: 41, FirstMonth: 12},
		},
		[]core.GroundElement{{WID: 100}, {WID: 200}},
	)

	if diff := cmp.Diff([]int{1, 2}, g.UnitsOf(10)); diff != "" {
		t.Errorf("UnitsOf(10) mismatch (-want +got):\n%s", diff)
	}

	want := []SlotRef{
		{Owner: core.KindUnit, OwnerID: 1, Slot: 0, WID: 100, Count: 3},
		{Owner: core.KindUnit, OwnerID: 2, Slot: 0, WID: 100, Count: 5},
		{Owner: core.KindUnit, OwnerID: 3, Slot: 0, WID: 100, Count: 1},
		{Owner: core.KindOB, OwnerID: 10, Slot: 1, WID: 100, Count: 8},
	}
	if diff := cmp.Diff(want, g.RefsTo(100)); diff != "" {
		t.Errorf("RefsTo(100) mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{13, 11, 12}, g.Successors(10)); diff != "" {
		t.Errorf("Successors(10) mismatch (-want +got):\n%s", diff)
	}

	onlyOB := g.ScanByWID(100, core.KindOB)
	if len(onlyOB) != 1 || onlyOB[0].OwnerID != 10 {
		t.Errorf("ScanByWID(100, ob) = %+v", onlyOB)
	}
}

func TestExcess(t *testing.T) {
	tests := []struct {
		name  string
		store core.Store
		want  bool
	}{
		{"six times need", core.Store{Have: 600, Need: 100}, true},
		{"exactly five times need", core.Store{Have: 500, Need: 100}, false},
		{"below threshold", core.Store{Have: 100, Need: 100}, false},
		{"no need but stores", core.Store{Have: 10, Need: 0}, true},
		{"no need no stores", core.Store{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExcess(tt.store, DefaultExcessMultiplier); got != tt.want {
				t.Errorf("IsExcess(%+v) = %v, want %v", tt.store, got, tt.want)
			}
		})
	}
}

func TestScanExcess(t *testing.T) {
	units := []core.Unit{
		{ID: 1, OBID: 5},
		{ID: 2, OBID: 5},
		{ID: 3, OBID: 0},
		{ID: 4, OBID: 5},
	}
	units[0].Stores[core.Fuel] = core.Store{Have: 600, Need: 100}
	units[1].Stores[core.Fuel] = core.Store{Have: 500, Need: 100}
	units[2].Stores[core.Fuel] = core.Store{Have: 900, Need: 100}
	units[3].Stores[core.Fuel] = core.Store{Have: 7, Need: 0}
	g := buildGraph(t, units, nil, nil)

	got := g.ScanExcess(core.Fuel, 5, nil)
	if len(got) != 2 || got[0].UnitID != 1 || got[1].UnitID != 4 {
		t.Fatalf("ScanExcess = %+v, want units 1 and 4", got)
	}
	if got[0].Ratio() != 6 {
		t.Errorf("Ratio = %v, want 6", got[0].Ratio())
	}
	if !math.IsInf(got[1].Ratio(), 1) {
		t.Errorf("Ratio with zero need = %v, want +Inf", got[1].Ratio())
	}
}

func TestCountInventory(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{
			{ID: 1, OBID: 5, Nation: 1, Slots: slots(100, 5, 200, 1, 100, 2)},
			{ID: 2, OBID: 5, Nation: 2, Slots: slots(100, 4)},
			{ID: 3, OBID: 0, Nation: 1, Slots: slots(200, 50)},
		},
		nil,
		[]core.GroundElement{{WID: 100, Name: "Rifle Squad"}},
	)

	got := g.CountInventory(Nations{1}, true)
	want := []InventoryLine{
		{WID: 100, Name: "Rifle Squad", Total: 7, Units: 1},
		{WID: 200, Total: 1, Units: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CountInventory mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupUnitsByOB(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{
			{ID: 1, Name: "a", OBID: 6},
			{ID: 2, Name: "b", OBID: 5},
			{ID: 3, Name: "c", OBID: 6},
			{ID: 4, Name: "d", OBID: 0},
		},
		[]core.OB{{ID: 5, Name: "Inf Div"}},
		nil,
	)
	got := g.GroupUnitsByOB(nil)
	want := []OBGroup{
		{OBID: 5, OBName: "[5] Inf Div", UnitIDs: []int{2}, Names: []string{"b"}},
		{OBID: 6, UnitIDs: []int{1, 3}, Names: []string{"a", "c"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GroupUnitsByOB mismatch (-want +got):\n%s", diff)
	}
}

func TestFindOrphans(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{{ID: 1, OBID: 10}},
		[]core.OB{
			{ID: 10, Type: 1},
			{ID: 11, Type: 1, PredecessorID: 10},
			{ID: 12, Type: 1, PredecessorID: 11},
			{ID: 20, Type: 1},
			{ID: 30, Type: 0},
		},
		nil,
	)

	tests := []struct {
		name string
		opts OrphanOptions
		want []int
	}{
		{"direct references only", OrphanOptions{}, []int{11, 12, 20, 30}},
		{"active only", OrphanOptions{ActiveOnly: true}, []int{11, 12, 20}},
		{"follow chains", OrphanOptions{FollowChains: true, ActiveOnly: true}, []int{20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, g.FindOrphans(tt.opts)); diff != "" {
				t.Errorf("FindOrphans mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanTOEExcess(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{
			{ID: 1, Name: "a", OBID: 10, Nation: 1, Slots: slots(100, 13, 200, 13, 300, 50)},
			{ID: 2, Name: "b", OBID: 10, Nation: 2, Slots: slots(100, 20)},
			{ID: 3, Name: "c", OBID: 99, Nation: 1, Slots: slots(100, 90)},
			{ID: 4, Name: "d", OBID: 10, Nation: 1, Slots: slots(0, 0, 200, 10)},
		},
		[]core.OB{{ID: 10, Type: 1, Slots: slots(100, 6, 200, 8, 100, 4)}},
		[]core.GroundElement{{WID: 100, Name: "Rifle Sqd"}, {WID: 200, Name: "MG Sec"}},
	)

	got := g.ScanTOEExcess(nil, DefaultTOEExcessPercent)
	want := []TOEExcess{
		{UnitID: 1, Name: "a", OBID: 10, Slot: 0, WID: 100, Element: "Rifle Sqd", Have: 13, Authorised: 10},
		{UnitID: 1, Name: "a", OBID: 10, Slot: 1, WID: 200, Element: "MG Sec", Have: 13, Authorised: 8},
		{UnitID: 2, Name: "b", OBID: 10, Slot: 0, WID: 100, Element: "Rifle Sqd", Have: 20, Authorised: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ScanTOEExcess mismatch (-want +got):\n%s", diff)
	}
	if p := got[0].Percent(); p != 130 {
		t.Errorf("Percent() = %v, want 130", p)
	}

	if got := g.ScanTOEExcess(Nations{1}, 150); len(got) != 1 || got[0].WID != 200 {
		t.Errorf("ScanTOEExcess(nation 1, 150%%) = %v, want unit 1 WID 200 only", got)
	}
}

func TestDanglingOBRefs(t *testing.T) {
	g := buildGraph(t,
		[]core.Unit{
			{ID: 1, OBID: 10, Nation: 1},
			{ID: 2, OBID: 99, Nation: 1},
			{ID: 3, OBID: 0, Nation: 1},
			{ID: 4, OBID: 98, Nation: 2},
		},
		[]core.OB{{ID: 10, Type: 1}},
		nil,
	)

	got := g.DanglingOBRefs(nil)
	want := []*core.DanglingReferenceError{
		{Kind: core.KindUnit, ID: 2, Field: "type", Target: core.KindOB, TargetID: 99},
		{Kind: core.KindUnit, ID: 4, Field: "type", Target: core.KindOB, TargetID: 98},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DanglingOBRefs mismatch (-want +got):\n%s", diff)
	}
	for _, err := range got {
		if !errors.Is(err, core.ErrDanglingReference) {
			t.Errorf("%v does not match ErrDanglingReference", err)
		}
	}

	if got := g.DanglingOBRefs(Nations{1}); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("DanglingOBRefs(nation 1) = %v, want unit 2 only", got)
	}
}

func TestLoad(t *testing.T) {
	fs := coretest.Scenario(t,
		[]coretest.Row{
			coretest.Unit(1, 10, 100, 5),
			coretest.Unit(2, 10).With("type", "bad"),
			coretest.Unit(0, 0),
		},
		[]coretest.Row{coretest.OB(10, 0, 100, 9)},
		[]coretest.Row{coretest.Ground(100)},
	)

	g, err := Load(context.Background(), fs, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(g.Units) != 1 || len(g.OBs) != 1 || len(g.Ground) != 1 {
		t.Errorf("got %d/%d/%d records, want 1/1/1", len(g.Units), len(g.OBs), len(g.Ground))
	}
	if len(g.Skipped) != 1 || g.Skipped[0].Line != 3 {
		t.Errorf("Skipped = %v, want one row at line 3", g.Skipped)
	}
	if len(g.RefsTo(100)) != 2 {
		t.Errorf("RefsTo(100) = %v", g.RefsTo(100))
	}
}

func TestLoadDuplicateAborts(t *testing.T) {
	fs := coretest.Scenario(t,
		[]coretest.Row{coretest.Unit(1, 10), coretest.Unit(1, 10)},
		[]coretest.Row{coretest.OB(10, 0)},
		nil,
	)
	_, err := Load(context.Background(), fs, LoadOptions{})
	if !errors.Is(err, core.ErrDuplicateIdentifier) {
		t.Fatalf("Load() error = %v, want ErrDuplicateIdentifier", err)
	}
}

func TestExcessScanner(t *testing.T) {
	fs := coretest.Scenario(t,
		[]coretest.Row{
			coretest.Unit(1, 10).With("fuel", 600).With("fNeed", 100),
			coretest.Unit(2, 10).With("fuel", 500).With("fNeed", 100),
		},
		nil, nil,
	)
	var got []int
	s := ExcessScanner{Resource: core.Fuel, Multiplier: 5}
	if _, err := s.Scan(context.Background(), fs.Unit, func(e Excess) error {
		got = append(got, e.UnitID)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1}, got); diff != "" {
		t.Errorf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNations(t *testing.T) {
	tests := []struct {
		in      string
		want    Nations
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "1", want: Nations{1}},
		{in: " 1, 2 ,1,", want: Nations{1, 2}},
		{in: "1,germany", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNations(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNations(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseNations(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
