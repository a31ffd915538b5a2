package backend

import (
	"fmt"
	"sort"
)

// Constructor opens a Reader for one backend.
type Constructor func(Options) (Reader, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the constructor for the given backend name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
	return ctor, nil
}

// Names returns the registered backend identifiers, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
