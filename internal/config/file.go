package config

import (
	"fmt"
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a flat YAML mapping of configuration keys. Scalar values of
// any YAML type are kept in their string form; nested values are rejected.
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading config file %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, xerrors.Errorf("parsing config file %s: %w", path, err)
	}

	m := NewMap(nil)
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			m.Set(k, "")
		case map[string]any, []any:
			return nil, xerrors.Errorf("config file %s: key %q must hold a scalar value", path, k)
		default:
			m.Set(k, fmt.Sprintf("%v", val))
		}
	}
	return m, nil
}
