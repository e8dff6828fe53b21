package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeysSortsAndDeduplicates(t *testing.T) {
	require.Equal(t, KeySet{"a", "b", "c"}, Keys("c", "a", "b", "a"))
}

func TestIntersectAndMissing(t *testing.T) {
	reg := NewMap(map[string]string{"a": "1"})

	require.Equal(t, []string{"token"}, Keys("token", "a").Intersect(Keys("token", "b")))
	require.Empty(t, Keys("a").Intersect(Keys("b")))
	require.Equal(t, []string{"b", "c"}, Keys("a", "b", "c").Missing(reg))
	require.Equal(t, []string{"a"}, Keys("a").Missing(nil))
}

func TestChainFirstHitWins(t *testing.T) {
	top := NewMap(map[string]string{"k": "top"})
	bottom := NewMap(map[string]string{"k": "bottom", "only": "bottom"})
	chain := Chain{nil, top, bottom}

	v, ok := chain.Get("k")
	require.True(t, ok)
	require.Equal(t, "top", v)

	v, ok = chain.Get("only")
	require.True(t, ok)
	require.Equal(t, "bottom", v)

	_, ok = chain.Get("absent")
	require.False(t, ok)
}

func TestMapSetDelete(t *testing.T) {
	m := NewMap(nil)
	m.Set("x", "1")
	v, ok := m.Get("x")
	require.True(t, ok)
	require.Equal(t, "1", v)

	m.Delete("x")
	_, ok = m.Get("x")
	require.False(t, ok)
}

func TestValidatePasses(t *testing.T) {
	reg := NewMap(map[string]string{"a": "1", "b": "2"})
	require.NoError(t, Validate(Keys("a"), Keys("b"), reg))
}

func TestValidateCollision(t *testing.T) {
	reg := NewMap(map[string]string{"token": "t"})

	err := Validate(Keys("token"), Keys("token"), reg)
	require.Error(t, err)

	var collision *CollisionError
	require.True(t, errors.As(err, &collision))
	require.Equal(t, []string{"token"}, collision.Keys)
}

func TestValidateReportsEverything(t *testing.T) {
	err := Validate(Keys("a"), Keys("b"), NewMap(nil))

	var combined *CombinedError
	require.ErrorAs(t, err, &combined)
	require.Len(t, combined.Errors, 2)

	var fromMissing *FromMissingError
	require.ErrorAs(t, combined.Errors[0], &fromMissing)
	require.Equal(t, []string{"a"}, fromMissing.Keys)

	var toMissing *ToMissingError
	require.ErrorAs(t, combined.Errors[1], &toMissing)
	require.Equal(t, []string{"b"}, toMissing.Keys)
}

func TestValidateDoesNotStopAtFirstFailure(t *testing.T) {
	err := Validate(Keys("shared", "a"), Keys("shared", "b"), NewMap(nil))

	var combined *CombinedError
	require.ErrorAs(t, err, &combined)
	require.Len(t, combined.Errors, 3)
	require.Contains(t, err.Error(), "shared")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	content := `
YOUTRACK_HOST: https://tracker.example.com
PAGE_SIZE: 5
EMPTY:
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)

	v, _ := m.Get("YOUTRACK_HOST")
	require.Equal(t, "https://tracker.example.com", v)
	v, _ = m.Get("PAGE_SIZE")
	require.Equal(t, "5", v)
	_, ok := m.Get("EMPTY")
	require.True(t, ok)
}

func TestLoadFileRejectsNestedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nested:\n  key: v\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}
