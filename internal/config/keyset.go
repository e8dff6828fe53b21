package config

import "sort"

// KeySet is the finite set of configuration keys a domain type requires.
type KeySet []string

// Keys builds a KeySet, dropping duplicates and sorting the result.
func Keys(keys ...string) KeySet {
	seen := make(map[string]struct{}, len(keys))
	out := make(KeySet, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether key is part of the set.
func (ks KeySet) Contains(key string) bool {
	for _, k := range ks {
		if k == key {
			return true
		}
	}
	return false
}

// Intersect returns the keys present in both sets, sorted.
func (ks KeySet) Intersect(other KeySet) []string {
	var out []string
	for _, k := range Keys(ks...) {
		if other.Contains(k) {
			out = append(out, k)
		}
	}
	return out
}

// Missing returns the keys reg has no value for, sorted.
func (ks KeySet) Missing(reg Registry) []string {
	var out []string
	for _, k := range Keys(ks...) {
		if reg == nil {
			out = append(out, k)
			continue
		}
		if _, ok := reg.Get(k); !ok {
			out = append(out, k)
		}
	}
	return out
}
