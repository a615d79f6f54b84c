package directory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Doe880/telegram-feedback-bot1/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsAndDedup(t *testing.T) {
	d := directory.New(nil, []int64{1, 0, 1, 2})
	assert.Equal(t, directory.DefaultManagers, d.Managers())
	assert.Equal(t, []int64{1, 2}, d.Admins())
	assert.True(t, d.IsAdmin(2))
	assert.False(t, d.IsAdmin(3))

	d = directory.New([]string{" Иванов ", "Иванов", ""}, nil)
	assert.Equal(t, []string{"Иванов"}, d.Managers())
	assert.True(t, d.HasManager("Иванов "))
	assert.False(t, d.HasManager("Петров"))
}

func TestManagers_ReturnsCopy(t *testing.T) {
	d := directory.New([]string{"A"}, nil)
	m := d.Managers()
	m[0] = "B"
	assert.True(t, d.HasManager("A"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte("managers:\n  - Петров\nadmins: [10, 20]\n"), 0o644))

	d, err := directory.LoadFile(path, []string{"Иванов"}, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Иванов", "Петров"}, d.Managers())
	assert.Equal(t, []int64{10, 20}, d.Admins())

	_, err = directory.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	assert.Error(t, err)
}
