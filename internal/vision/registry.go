package vision

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Backend{
		NativeName: func() Backend { return NewNative() },
	}
)

// Register makes a backend constructor available under name. Backends that
// depend on optional build tags register themselves from init.
func Register(name string, ctor func() Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// New returns the backend registered under name. An empty name selects the
// native backend.
func New(name string) (Backend, error) {
	if name == "" {
		name = NativeName
	}
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown vision backend %q (available: %v)", name, Available())
	}
	return ctor(), nil
}

// Available lists registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
