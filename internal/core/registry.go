package core

// registry.go holds the layouts registered by the tables subpackage. It is
// written only from init functions and read-only afterwards.

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[Kind]*Layout)
	registryMu sync.RWMutex
)

// Register adds a layout to the registry.
// Panics if a layout for the same kind is already registered.
func Register(layout *Layout) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[layout.Kind]; exists {
		panic(fmt.Sprintf("layout already registered: %s", layout.Kind))
	}
	if layout.Label == "" {
		layout.Label = string(layout.Kind)
	}
	registry[layout.Kind] = layout
}

// Get returns the layout for kind.
// Returns false if not found.
func Get(kind Kind) (*Layout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	l, ok := registry[kind]
	return l, ok
}

// All returns all registered layouts sorted by kind.
func All() []*Layout {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]*Layout, 0, len(registry))
	for _, l := range registry {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result
}
