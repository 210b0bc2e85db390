package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("  from-file\n"), 0o600))
	emptyFile := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(emptyFile, []byte("\n"), 0o600))

	got, err := Load(Source{Name: "gemini api key", Value: "inline", File: keyFile})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Load(Source{Value: " inline "})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	_, err = Load(Source{Name: "jwt secret"})
	assert.EqualError(t, err, "jwt secret is not configured")

	_, err = Load(Source{File: emptyFile})
	assert.ErrorContains(t, err, "is empty")

	_, err = Load(Source{File: filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "reading secret from file")
}
