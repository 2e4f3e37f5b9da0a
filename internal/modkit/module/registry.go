package module

import "sync"

// registry maps module names to the port sets they registered
var registry struct {
	sync.RWMutex
	ports map[string]any
}

// Register records ports under name, replacing any earlier entry
func Register(name string, ports any) {
	registry.Lock()
	defer registry.Unlock()
	if registry.ports == nil {
		registry.ports = map[string]any{}
	}
	registry.ports[name] = ports
}

// PortsAs returns the ports registered under name when they are a T
func PortsAs[T any](name string) (T, bool) {
	registry.RLock()
	v, found := registry.ports[name]
	registry.RUnlock()
	out, ok := v.(T)
	return out, found && ok
}

// Reset empties the registry
func Reset() {
	registry.Lock()
	registry.ports = nil
	registry.Unlock()
}
