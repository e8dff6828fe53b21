// Package config holds the read-mostly key/value registry connectors consult
// for credentials and hosts, and the construction-time validation of the
// keys each connector needs.
package config

import (
	"os"
	"sort"
	"sync"
)

// Registry looks up configuration values by key.
type Registry interface {
	Get(key string) (string, bool)
}

type envRegistry struct{}

func (envRegistry) Get(key string) (string, bool) { return os.LookupEnv(key) }

// Environment reads the process environment.
var Environment Registry = envRegistry{}

// Map is an in-memory Registry. It is meant to be filled at bootstrap (or by
// tests) and read concurrently afterwards.
type Map struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMap returns a Map seeded with a copy of values.
func NewMap(values map[string]string) *Map {
	m := &Map{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Get implements Registry.
func (m *Map) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *Map) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// Delete removes key.
func (m *Map) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}

// Keys returns the stored keys in sorted order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Chain consults each registry in order and returns the first hit.
type Chain []Registry

// Get implements Registry.
func (c Chain) Get(key string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if v, ok := r.Get(key); ok {
			return v, true
		}
	}
	return "", false
}
