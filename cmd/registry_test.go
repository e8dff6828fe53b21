package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func withFiles(t *testing.T, secrets, file string) {
	t.Helper()
	prevSecrets, prevFile := secretsFile, configFile
	t.Cleanup(func() { secretsFile, configFile = prevSecrets, prevFile })
	secretsFile, configFile = secrets, file
}

func TestDefaultRegistryWrapsLoadErrors(t *testing.T) {
	withFiles(t, filepath.Join(t.TempDir(), "missing.env"), "")

	_, err := defaultRegistry()
	if err == nil {
		t.Fatal("expected error for a missing secrets file")
	}
	if !strings.HasPrefix(err.Error(), "loading secrets:") {
		t.Errorf("error = %q, want it to start with %q", err.Error(), "loading secrets:")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error %v does not wrap os.ErrNotExist", err)
	}
}

func TestDefaultRegistryPrecedence(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, ".env")
	file := filepath.Join(dir, "config.yaml")
	os.WriteFile(secrets, []byte("CIRCLECI_TOKEN=from-secrets\n"), 0644)
	os.WriteFile(file, []byte("CIRCLECI_TOKEN: from-file\nYOUTRACK_HOST: from-file\n"), 0644)
	withFiles(t, secrets, file)

	t.Setenv("CIRCLECI_TOKEN", "from-env")
	t.Setenv("YOUTRACK_HOST", "from-env")
	t.Setenv("GITHUB_TOKEN", "from-env")

	reg, err := defaultRegistry()
	if err != nil {
		t.Fatalf("defaultRegistry error: %v", err)
	}

	tests := map[string]string{
		"CIRCLECI_TOKEN": "from-secrets",
		"YOUTRACK_HOST":  "from-file",
		"GITHUB_TOKEN":   "from-env",
	}
	for key, want := range tests {
		if got, _ := reg.Get(key); got != want {
			t.Errorf("reg[%q] = %q, want %q", key, got, want)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	prevLevel, prevFormat := logLevel, logFormat
	t.Cleanup(func() {
		logLevel, logFormat = prevLevel, prevFormat
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.TextFormatter{})
	})

	logLevel, logFormat = "verbose", "text"
	if err := setupLogging(nil, nil); err == nil || !strings.Contains(err.Error(), "invalid --log-level") {
		t.Errorf("error = %v, want invalid --log-level", err)
	}

	logLevel, logFormat = "debug", "xml"
	if err := setupLogging(nil, nil); err == nil || !strings.Contains(err.Error(), `invalid --log-format "xml"`) {
		t.Errorf("error = %v, want invalid --log-format", err)
	}

	logLevel, logFormat = "warn", "json"
	if err := setupLogging(nil, nil); err != nil {
		t.Fatalf("setupLogging error: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T, want *logrus.JSONFormatter", logger.Formatter)
	}
}
