package payment

import (
	"fmt"
	"sort"
	"sync"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]func() Driver)
)

// Register makes a driver available under the given gateway name. Driver
// packages call it from init, mirroring database/sql.
func Register(name string, factory func() Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if factory == nil {
		panic("payment: Register factory is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("payment: Register called twice for driver " + name)
	}
	drivers[name] = factory
}

// New returns a fresh, unconfigured driver for the gateway name.
func New(name string) (Driver, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported payment method: %s", name)
	}
	return factory(), nil
}

// Methods lists the registered gateway names, sorted.
func Methods() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
