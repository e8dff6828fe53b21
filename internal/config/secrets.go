package config

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// LoadSecrets reads a .env-style file (KEY=VALUE per line) into a Map.
// Lines starting with # are comments. Empty lines are skipped. An optional
// "export " prefix is accepted so the same file can be sourced by a shell.
func LoadSecrets(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("opening secrets file: %w", err)
	}
	defer f.Close()

	secrets := NewMap(nil)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, xerrors.Errorf("secrets file line %d: invalid format (expected KEY=VALUE)", lineNum)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, xerrors.Errorf("secrets file line %d: empty key", lineNum)
		}
		secrets.Set(key, unquote(strings.TrimSpace(value)))
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("reading secrets file: %w", err)
	}

	return secrets, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
