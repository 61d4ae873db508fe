package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	t.Run("missing file yields empty store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		store, err := NewFileStore(path)
		require.NoError(t, err)

		all, err := store.GetAll()
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Equal(t, path, store.Path())
		assert.False(t, store.IsModified())
	})

	t.Run("default path under home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		store, err := NewFileStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".pageview", "config.json"), store.Path())
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewFileStore(path)
		assert.Error(t, err)
	})
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			store, err := NewFileStore(path)
			require.NoError(t, err)

			require.NoError(t, store.SetSection("viewport", map[string]interface{}{
				"zoom_to_fit_on_load": false,
				"viewport_width":      980,
			}))
			assert.True(t, store.IsModified())
			require.NoError(t, store.Save())
			assert.False(t, store.IsModified())

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

			reloaded, err := NewFileStore(path)
			require.NoError(t, err)
			section, err := reloaded.GetSection("viewport")
			require.NoError(t, err)
			assert.Equal(t, false, section["zoom_to_fit_on_load"])
			assert.EqualValues(t, 980, section["viewport_width"])
		})
	}
}

func TestFileStore_CopiesData(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	input := map[string]interface{}{"accelerated": true}
	require.NoError(t, store.SetSection("compositing", input))
	input["accelerated"] = false

	got, err := store.GetSection("compositing")
	require.NoError(t, err)
	assert.Equal(t, true, got["accelerated"])

	got["accelerated"] = false
	again, _ := store.GetSection("compositing")
	assert.Equal(t, true, again["accelerated"])

	missing, err := store.GetSection("nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestFileStore_SetAll(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	require.NoError(t, store.SetAll(map[string]map[string]interface{}{
		"a": {"k": 1},
		"b": {"k": 2},
	}))

	all, err := store.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, all["b"]["k"])
}
