package platform

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownSource = errors.New("source not registered")

var (
	registry = make(map[string]Source)
	mu       sync.RWMutex
)

func Register(source Source) {
	mu.Lock()
	defer mu.Unlock()
	registry[source.Name()] = source
}

func Get(name string) (Source, error) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", name, ErrUnknownSource)
	}
	return s, nil
}

// List returns registered source names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sources returns every registered source.
func Sources() []Source {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Source, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Reset drops every registration.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Source)
}
