// Package registry implements the type-id → adapter map the binary codec
// consults for user-defined values (SPEC_FULL.md §4.E). The core never
// constructs adapters; they are registered at runtime by a caller-owned
// code generator, out of scope for this module.
package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/hiveerr"
)

// Registry maps an external typeId (0-223) to the TypeAdapter that
// serializes it, optionally falling through to a parent registry on miss.
type Registry struct {
	mu       sync.RWMutex
	adapters map[uint8]format.Adapter
	parent   *Registry
}

// New returns an empty registry, optionally chained to parent. A nil parent
// means lookups fail outright on miss instead of falling through.
func New(parent *Registry) *Registry {
	return &Registry{adapters: make(map[uint8]format.Adapter), parent: parent}
}

// Register adds adapter under typeID. typeID must be in [0, format.MaxExternalTypeID];
// a second registration of the same typeID fails with ErrAlreadyRegistered.
func (r *Registry) Register(adapter format.Adapter, typeID uint8) error {
	if typeID > format.MaxExternalTypeID {
		return fmt.Errorf("registry: typeId %d exceeds max %d", typeID, format.MaxExternalTypeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[typeID]; exists {
		return fmt.Errorf("registry: typeId %d: %w", typeID, hiveerr.ErrAlreadyRegistered)
	}
	r.adapters[typeID] = adapter
	return nil
}

// Find looks up the adapter for typeID, falling through to the parent
// registry on miss.
func (r *Registry) Find(typeID uint8) (format.Adapter, bool) {
	r.mu.RLock()
	adapter, ok := r.adapters[typeID]
	r.mu.RUnlock()
	if ok {
		return adapter, true
	}
	if r.parent != nil {
		return r.parent.Find(typeID)
	}
	return nil, false
}

// FindByValue resolves the adapter registered for v's runtime type. Lookup is
// O(N) in the number of registered adapters, acceptable for the expected
// handful of user types (SPEC_FULL.md §9).
func (r *Registry) FindByValue(v any) (format.Adapter, uint8, bool) {
	r.mu.RLock()
	target := reflect.TypeOf(v)
	for typeID, adapter := range r.adapters {
		if sameAdapterValueType(adapter, target) {
			r.mu.RUnlock()
			return adapter, typeID, true
		}
	}
	r.mu.RUnlock()

	if r.parent != nil {
		return r.parent.FindByValue(v)
	}
	return nil, 0, false
}

// sameAdapterValueType checks whether adapter is willing to write a value of
// kind target, by asking it to describe its own value type if it implements
// ValueTyped, falling back to a permissive match otherwise (an adapter that
// doesn't self-describe matches any value). FindByValue visits adapters in
// Go map order, so when several adapters match, which one it returns is not
// defined.
func sameAdapterValueType(adapter format.Adapter, target reflect.Type) bool {
	typed, ok := adapter.(ValueTyped)
	if !ok {
		return true
	}
	return typed.ValueType() == target
}

// ValueTyped is an optional extension an Adapter can implement so
// FindByValue can resolve it precisely instead of matching whichever
// non-self-describing adapter it visits first. Most hand-written adapters
// implement this; it is not part of the mandatory TypeAdapter contract
// (SPEC_FULL.md §6).
type ValueTyped interface {
	ValueType() reflect.Type
}
