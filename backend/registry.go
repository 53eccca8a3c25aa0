package backend

import (
	"fmt"
	"slices"
	"sync"
)

// DriverFactory opens a driver. A factory may return nil when its device
// API is missing on the host; the registry then tries the next driver.
type DriverFactory func() Driver

var (
	registryMu sync.RWMutex
	drivers    = make(map[string]DriverFactory)

	// Hardware drivers come before the in-memory reference device.
	driverPriority = []string{NameWGPU, NameSoftware}
)

// Register adds a driver factory under name, replacing any factory already
// registered there. Driver packages call it from init, so importing a
// driver package for its side effect makes it selectable by name.
func Register(name string, factory DriverFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	drivers[name] = factory
}

// Unregister removes the factory registered under name.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(drivers, name)
}

// Available returns the registered driver names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames()
}

// sortedNames returns the registered names. registryMu must be held.
func sortedNames() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a driver factory is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := drivers[name]
	return ok
}

// Get opens the driver registered under name, or returns nil.
func Get(name string) Driver {
	registryMu.RLock()
	factory, ok := drivers[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// Lookup is Get with an error naming the missing driver and the ones
// that are registered.
func Lookup(name string) (Driver, error) {
	d := Get(name)
	if d == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, name, Available())
	}
	return d, nil
}

// Default opens the first driver in priority order (wgpu, then software)
// whose factory succeeds. Drivers outside the priority list follow in name
// order. It returns nil when no factory yields a driver.
func Default() Driver {
	registryMu.RLock()
	order := slices.Clone(driverPriority)
	for _, name := range sortedNames() {
		if !slices.Contains(driverPriority, name) {
			order = append(order, name)
		}
	}
	factories := make([]DriverFactory, 0, len(order))
	for _, name := range order {
		if f, ok := drivers[name]; ok {
			factories = append(factories, f)
		}
	}
	registryMu.RUnlock()

	for _, f := range factories {
		if d := f(); d != nil {
			return d
		}
	}
	return nil
}

// MustDefault is Default that panics when no driver can be opened.
func MustDefault() Driver {
	d := Default()
	if d == nil {
		panic("backend: no driver available")
	}
	return d
}
