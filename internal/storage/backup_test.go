package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Backup(t *testing.T) {
	ctx := context.Background()
	src, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.Set(ctx, "auth-storage", []byte("x")))

	dir := t.TempDir()
	dest, err := src.Backup(ctx, dir)
	require.NoError(t, err)

	copied, err := NewSQLiteStore(dest)
	require.NoError(t, err)
	defer copied.Close()
	got, err := copied.Get(ctx, "auth-storage")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestCleanupBackups(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "booking_20200101_000000.db")
	fresh := filepath.Join(dir, "booking_20990101_000000.db")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	n, err := CleanupBackups(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}
