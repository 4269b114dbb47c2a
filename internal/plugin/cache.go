package plugin

import (
	"reflect"
	"sync"
)

// handle is the opaque identity of an external value: its reflect kind plus
// the pointer reflect reports for pointer-shaped kinds. Funcs are identified
// by code pointer, so distinct closures of one function literal share a
// handle; package-level factories, the common case, are always distinct.
type handle struct {
	kind reflect.Kind
	ptr  uintptr
}

// identityOf returns the identity handle for a value, or ok=false when the
// value has no stable identity and must not be cached.
func identityOf(v any) (handle, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Map, reflect.Pointer, reflect.Chan, reflect.Slice, reflect.UnsafePointer:
		return handle{kind: rv.Kind(), ptr: rv.Pointer()}, true
	default:
		return handle{}, false
	}
}

// Cache memoizes instantiations by the identity of the underlying factory or
// spec value. The key deliberately ignores per-use options: two uses of the
// same factory with different options share one cached result, and the
// factory runs once. Callers depend on that, so it must not be "fixed".
//
// A Cache is intended to be shared across sequential resolutions within a
// process. Lookup and insert are individually locked; the build callback
// runs unlocked because instantiating an inheritance chain re-enters the
// cache. Concurrent resolutions sharing one Cache are not supported.
type Cache struct {
	mu      sync.Mutex
	entries map[handle]any
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[handle]any)}
}

// Memoize returns the cached result for value's identity, building and
// storing it on first sight. Values without a stable identity are built
// every time.
func (c *Cache) Memoize(value any, build func() (any, error)) (any, error) {
	key, ok := identityOf(value)
	if !ok {
		return build()
	}

	c.mu.Lock()
	cached, hit := c.entries[key]
	c.mu.Unlock()
	if hit {
		return cached, nil
	}

	built, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = built
	c.mu.Unlock()
	return built, nil
}

// Len reports how many distinct values have been instantiated through the
// cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
