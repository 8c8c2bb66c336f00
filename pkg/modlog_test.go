package pkg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModLog(t *testing.T) {
	t.Run("empty path is a no-op", func(t *testing.T) {
		log := NewModLog("")
		assert.NotPanics(t, func() {
			log.Reset("header")
			log.Log("line %d", 1)
			log.LogWithDate("dated")
		})
		assert.NoError(t, log.Close())
	})

	t.Run("reset truncates and writes header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "modloader.log")
		require.NoError(t, os.WriteFile(path, []byte("old run\n"), 0o600))

		log := NewModLog(path)
		log.Reset("modhook loader")
		log.Log("loading %s", "alpha.so")
		require.NoError(t, log.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "modhook loader\nloading alpha.so\n", string(data))
	})

	t.Run("timestamped lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "modloader.log")

		log := NewModLog(path).(*modLogImpl)
		log.now = func() time.Time { return time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local) }
		log.LogWithDate("started")
		require.NoError(t, log.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "[2024-03-09 07:05:01] started", strings.TrimSpace(string(data)))
	})

	t.Run("unwritable target does not fail", func(t *testing.T) {
		log := NewModLog(filepath.Join(t.TempDir(), "missing", "dir", "modloader.log"))
		assert.NotPanics(t, func() {
			log.Reset("header")
			log.Log("ignored")
		})
		assert.NoError(t, log.Close())
	})
}
