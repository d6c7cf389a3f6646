package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
manifest:
  cities: ["Itabuna", "Ilhéus"]
  route_ref_prefix: "BA"
  code_letters: "AB"
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Itabuna", "Ilhéus"}, p.Cities)
	assert.Equal(t, "BA", p.RouteRefPrefix)
	assert.Equal(t, "AB", p.CodeLetters)

	e, err := NewExtractor(p)
	require.NoError(t, err)
	r, ok := e.ParseLine("1 B-4 BA001 Rua Um  Pontal 45654000 Ilheus")
	require.True(t, ok)
	assert.Equal(t, "Ilhéus", r.City)

	_, ok = e.ParseLine("1 C-4 BA001 Rua Um  Pontal 45654000 Ilheus")
	assert.False(t, ok)
}

func TestLoadProfile_Defaults(t *testing.T) {
	path := writeProfile(t, "manifest:\n  cities: [\"Ilhéus\"]\n")

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ilhéus"}, p.Cities)
	assert.Equal(t, "BR", p.RouteRefPrefix)
	assert.Equal(t, "A-Z", p.CodeLetters)
}

func TestLoadProfile_Errors(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadProfile(writeProfile(t, "manifest: [unclosed"))
	require.Error(t, err)

	_, err = LoadProfile(writeProfile(t, "manifest:\n  code_letters: \"A]\"\n"))
	require.Error(t, err)

	_, err = LoadProfile(writeProfile(t, "manifest:\n  cities: [\" \"]\n"))
	require.Error(t, err)
}
