// Package tables registers the built-in column layouts with the core registry.
// Import this package to ensure all layouts are registered.
package tables

import "github.com/JonMunkholm/wite2/internal/core"

// Slot block widths fixed by the game engine.
const (
	SquadSlots  = 32
	WeaponSlots = 10
)

func init() {
	core.Register(Unit)
	core.Register(OB)
	core.Register(Ground)
}

// ForKind returns the built-in layout of kind.
func ForKind(kind core.Kind) *core.Layout {
	switch kind {
	case core.KindUnit:
		return Unit
	case core.KindOB:
		return OB
	case core.KindGround:
		return Ground
	}
	return nil
}
