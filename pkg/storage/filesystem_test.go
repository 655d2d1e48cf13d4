package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	rel, err := store.Save("job-1/report_all_2024-03-09.csv", []byte("a,b\n"))
	require.NoError(t, err)
	require.Equal(t, "job-1/report_all_2024-03-09.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "a,b\n", string(data))

	require.NoError(t, store.Delete(rel))
	_, err = os.Stat(filepath.Join(base, "job-1"))
	require.True(t, os.IsNotExist(err))
	require.NoError(t, store.Delete(rel))
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../outside.csv", "job/../../outside.csv", "/etc/passwd", "."} {
		_, err := store.Save(name, []byte("x"))
		require.ErrorIs(t, err, ErrInvalidPath, name)
		_, err = store.Open(name)
		require.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	_, err = store.Save("old/report.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new/report.pdf", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(base, "old", "report.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old/report.pdf"}, deleted)

	_, err = os.Stat(filepath.Join(base, "old"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "new", "report.pdf"))
	require.NoError(t, err)
}
