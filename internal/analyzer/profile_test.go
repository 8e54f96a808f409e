package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestLoadProfileDefault(t *testing.T) {
	p, err := LoadProfile("")
	require.NoError(t, err)
	require.Equal(t, DefaultProfile(), p)
}

func TestLoadProfileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: Ada
experience: 5
skills:
  - Go
  - Postgres
excludedRoles: []
`), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	want := DefaultProfile()
	want.Name = "Ada"
	want.Experience = 5
	want.Skills = []string{"Go", "Postgres"}
	want.ExcludedRoles = nil

	if diff := cmp.Diff(want, p, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadProfileErrors(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skills: [unterminated"), 0o600))
	_, err = LoadProfile(path)
	require.Error(t, err)
}

func TestSaveProfileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")

	p := DefaultProfile()
	p.Name = "Ada"
	p.ExcludedRoles = []string{"Sales"}
	require.NoError(t, SaveProfile(path, p))

	got, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, p, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestProfileValidate(t *testing.T) {
	require.NoError(t, DefaultProfile().Validate())

	p := DefaultProfile()
	p.Name = "  "
	require.Error(t, p.Validate())

	p = DefaultProfile()
	p.Experience = -1
	require.Error(t, p.Validate())
}
