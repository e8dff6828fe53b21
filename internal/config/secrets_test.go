package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	content := `# Slack
SLACK_VERIFICATION_TOKEN=abc123
CIRCLECI_TOKEN="super secret"
GITHUB_TOKEN='ghp-test-123'
export YOUTRACK_HOST=https://tracker.example.com

# Empty line above is fine
SIMPLE=value
`
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte(content), 0644)

	secrets, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets error: %v", err)
	}

	tests := map[string]string{
		"SLACK_VERIFICATION_TOKEN": "abc123",
		"CIRCLECI_TOKEN":           "super secret",
		"GITHUB_TOKEN":             "ghp-test-123",
		"YOUTRACK_HOST":            "https://tracker.example.com",
		"SIMPLE":                   "value",
	}

	for key, expected := range tests {
		if got, _ := secrets.Get(key); got != expected {
			t.Errorf("secrets[%q] = %q, want %q", key, got, expected)
		}
	}

	if n := len(secrets.Keys()); n != 5 {
		t.Errorf("expected 5 secrets, got %d", n)
	}
}

func TestLoadSecretsInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("INVALID LINE WITHOUT EQUALS\n"), 0644)

	_, err := LoadSecrets(path)
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestLoadSecretsMissingFile(t *testing.T) {
	_, err := LoadSecrets(filepath.Join(t.TempDir(), "nope.env"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
