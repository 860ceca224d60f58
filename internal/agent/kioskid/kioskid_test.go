package kioskid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_GeneratesOnFirstBoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kiosk-id")

	id, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode().Perm())
}

func TestLoadOrCreate_PersistsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk-id")

	first, err := LoadOrCreate(path)
	require.NoError(t, err)

	second, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadOrCreate_RejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk-id")
	require.NoError(t, os.WriteFile(path, []byte(""), FileMode))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}
