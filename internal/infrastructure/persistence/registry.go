package persistence

import "sync"

var (
	registryMu sync.Mutex
	registry   []any
)

// RegisterModel records models for schema migration. Call it from an init
// function next to the model definition; AutoMigrate picks up everything
// registered here.
func RegisterModel(models ...any) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, models...)
}

// RegisteredModels returns a copy of all registered models.
func RegisteredModels() []any {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]any, len(registry))
	copy(out, registry)
	return out
}

// resetRegistry clears the registry between tests.
func resetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = nil
}
