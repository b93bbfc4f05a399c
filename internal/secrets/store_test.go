package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	t.Parallel()

	s := &Store{Dir: t.TempDir()}
	require.NoError(t, s.Put(ProviderAPIKey, "ck_staging_secret"))

	got, err := s.Get(" Provider_API_Key ")
	require.NoError(t, err)
	require.Equal(t, "ck_staging_secret", got)

	raw, err := os.ReadFile(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "ck_staging_secret"), "secret must not be stored in plain text")

	info, err := os.Stat(filepath.Join(s.Dir, fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, s.Delete(ProviderAPIKey))
	_, err = s.Get(ProviderAPIKey)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(ProviderAPIKey))
}

func TestEntryAsTokenStore(t *testing.T) {
	t.Parallel()

	e := Entry{Store: &Store{Dir: t.TempDir()}, Name: SessionToken}
	tok, err := e.Load()
	require.NoError(t, err)
	require.Empty(t, tok)

	require.NoError(t, e.Save("jwt.value.here"))
	tok, err = e.Load()
	require.NoError(t, err)
	require.Equal(t, "jwt.value.here", tok)

	require.NoError(t, e.Delete())
	tok, err = e.Load()
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestNameRequired(t *testing.T) {
	t.Parallel()

	s := &Store{Dir: t.TempDir()}
	require.Error(t, s.Put("  ", "x"))
	_, err := s.Get("")
	require.Error(t, err)
}
