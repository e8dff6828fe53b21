package loader

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"relay/internal/types"
)

// LoadRouteFile reads and parses a single YAML routes file.
func LoadRouteFile(path string) (*types.RouteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading routes file %s: %w", path, err)
	}

	var rf types.RouteFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, xerrors.Errorf("parsing routes file %s: %w", path, err)
	}

	if len(rf.Commands) == 0 && len(rf.Hooks) == 0 {
		return nil, xerrors.Errorf("routes file %s: must define at least one command or hook", path)
	}

	return &rf, nil
}

// LoadRoutes reads path, which is either a routes file or a directory of
// them. Files in a directory are read recursively in lexical order and
// merged.
func LoadRoutes(path string) (*types.RouteFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, xerrors.Errorf("loading routes: %w", err)
	}
	if !info.IsDir() {
		return LoadRouteFile(path)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("loading routes from %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, xerrors.Errorf("loading routes from %s: no YAML files found", path)
	}
	sort.Strings(files)

	merged := &types.RouteFile{}
	for _, f := range files {
		rf, err := LoadRouteFile(f)
		if err != nil {
			return nil, err
		}
		merged.Merge(rf)
	}
	return merged, nil
}
