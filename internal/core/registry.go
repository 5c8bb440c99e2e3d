package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry.
// Panics if a table with the same key is already registered.
func Register(def TableDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	if def.Build == nil {
		panic(fmt.Sprintf("table %s has no Build func", def.Info.Key))
	}

	registry[def.Info.Key] = def
}

// Get returns a table definition by key.
// Returns false if not found.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// ByParam returns the table whose upload field or CLI flag is param.
func ByParam(param string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, def := range registry {
		if def.Info.Param == param {
			return def, true
		}
	}
	return TableDefinition{}, false
}

// All returns all registered table definitions in load order:
// by stage, then by key.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Stage != result[j].Info.Stage {
			return result[i].Info.Stage < result[j].Info.Stage
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}
