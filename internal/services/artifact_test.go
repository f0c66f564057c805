package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/medreport/internal/lib"
	"github.com/trobanga/medreport/internal/models"
	"github.com/trobanga/medreport/internal/services"
)

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() == services.LockFileName {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

func TestArtifactStore_Save(t *testing.T) {
	dir := t.TempDir()
	store := services.NewArtifactStore(dir, lib.NewLogger(lib.LogLevelError))

	path, err := store.Save(context.Background(), "RPT-1.pdf", func(ctx context.Context, w io.Writer) (string, error) {
		_, err := w.Write([]byte("%PDF-1.4 body"))
		return "", err
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "RPT-1.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, []string{"RPT-1.pdf"}, dirEntries(t, dir), "no temporary file is left behind")
}

func TestArtifactStore_SavePrefersSuggestedName(t *testing.T) {
	dir := t.TempDir()
	store := services.NewArtifactStore(dir, lib.NewLogger(lib.LogLevelError))

	path, err := store.Save(context.Background(), "fallback.pdf", func(ctx context.Context, w io.Writer) (string, error) {
		return "../../etc/server-name.pdf", nil
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "server-name.pdf"), path)
}

func TestArtifactStore_FailureRemovesTemporaryFile(t *testing.T) {
	dir := t.TempDir()
	store := services.NewArtifactStore(dir, lib.NewLogger(lib.LogLevelError))
	boom := errors.New("stream broke")

	_, err := store.Save(context.Background(), "RPT-1.pdf", func(ctx context.Context, w io.Writer) (string, error) {
		_, _ = w.Write([]byte("partial"))
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, dirEntries(t, dir))
	assert.False(t, services.IsDirLocked(dir), "lock is released after failure")
}

func TestArtifactStore_BusyWhileLocked(t *testing.T) {
	dir := t.TempDir()
	logger := lib.NewLogger(lib.LogLevelError)

	lock, err := services.AcquireDirLock(dir, logger)
	require.NoError(t, err)
	assert.True(t, services.IsDirLocked(dir))

	_, err = services.NewArtifactStore(dir, logger).Save(context.Background(), "x.pdf", func(ctx context.Context, w io.Writer) (string, error) {
		return "", nil
	})
	assert.True(t, lib.IsCategory(err, lib.CategoryState))

	require.NoError(t, lock.Release())
	assert.False(t, services.IsDirLocked(dir))
}

func TestDownloadToStore(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/medical/report/SESSION-1/download" {
			writeJSON(w, 404, models.DownloadErrorResponse{Status: "error", Message: "not approved"})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	dir := t.TempDir()
	logger := lib.NewLogger(lib.LogLevelError)
	store := services.NewArtifactStore(dir, logger)

	path, err := services.DownloadToStore(context.Background(), client, store, "SESSION-1", "RPT-7", nil, logger)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "RPT-7.pdf"), path)

	_, err = services.DownloadToStore(context.Background(), client, store, "SESSION-2", "RPT-8", nil, logger)
	assert.True(t, lib.IsCategory(err, lib.CategoryAbsence))
	assert.Equal(t, []string{"RPT-7.pdf"}, dirEntries(t, dir))
}

func TestDownloadToStore_MissingSessionMakesNoRequest(t *testing.T) {
	called := false
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	logger := lib.NewLogger(lib.LogLevelError)

	_, err := services.DownloadToStore(context.Background(), client, services.NewArtifactStore(t.TempDir(), logger), "", "", nil, logger)

	assert.True(t, lib.IsCategory(err, lib.CategoryValidation))
	assert.False(t, called)
}

func TestArtifactFileName(t *testing.T) {
	assert.Equal(t, "RPT-1.pdf", services.ArtifactFileName("RPT-1", "S"))
	assert.Equal(t, "SESSION-1.pdf", services.ArtifactFileName("", "SESSION-1"))
	assert.Equal(t, "report.pdf", services.ArtifactFileName("", ""))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a.pdf", services.SanitizeFileName(`..\..\a.pdf`))
	assert.Equal(t, "", services.SanitizeFileName(".hidden"))
	assert.Equal(t, "", services.SanitizeFileName(""))
	assert.Equal(t, "", services.SanitizeFileName(".."))
}

func TestProgressReader(t *testing.T) {
	var seen []int64
	r := &services.ProgressReader{Reader: bytes.NewReader(make([]byte, 10)), Callback: func(n int64) { seen = append(seen, n) }}
	_, err := io.Copy(io.Discard, r)
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	assert.Equal(t, int64(10), seen[len(seen)-1])
}
