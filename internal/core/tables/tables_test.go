package tables

import (
	"testing"

	"github.com/JonMunkholm/wite2/internal/core"
)

func TestLayoutsRegistered(t *testing.T) {
	for _, kind := range []core.Kind{core.KindUnit, core.KindOB, core.KindGround} {
		got, ok := core.Get(kind)
		if !ok {
			t.Fatalf("layout %s not registered", kind)
		}
		if got != ForKind(kind) {
			t.Errorf("registered %s layout differs from ForKind", kind)
		}
	}
}

func TestLayoutColumnsBindToThemselves(t *testing.T) {
	for _, layout := range []*core.Layout{Unit, OB, Ground} {
		t.Run(string(layout.Kind), func(t *testing.T) {
			cols := layout.Columns()
			seen := make(map[string]bool, len(cols))
			for _, c := range cols {
				if seen[c] {
					t.Fatalf("column %q generated twice", c)
				}
				seen[c] = true
			}
			if _, err := core.Bind(layout, cols); err != nil {
				t.Errorf("Bind(canonical header) = %v", err)
			}
		})
	}
}

func TestSlotColumnNames(t *testing.T) {
	tests := []struct {
		block core.SlotBlock
		i     int
		item  string
		count string
	}{
		{Unit.Slots, 0, "sqd.u0", "sqd.num0"},
		{Unit.Slots, 31, "sqd.u31", "sqd.num31"},
		{OB.Slots, 5, "sqd 5", "sqdNum 5"},
		{Ground.Slots, 9, "wpn 9", "wpnNum 9"},
	}
	for _, tt := range tests {
		if got := tt.block.ItemColumn(tt.i); got != tt.item {
			t.Errorf("ItemColumn(%d) = %q, want %q", tt.i, got, tt.item)
		}
		if got := tt.block.CountColumn(tt.i); got != tt.count {
			t.Errorf("CountColumn(%d) = %q, want %q", tt.i, got, tt.count)
		}
	}
}
