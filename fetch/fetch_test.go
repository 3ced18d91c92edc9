package fetch

import (
	"archive/zip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownloadIfMissing(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("hello zoo"))
	}))
	defer server.Close()

	const wrongHash = "0000000000000000000000000000000000000000000000000000000000000000"
	filePath := filepath.Join(t.TempDir(), "sub", "sample.txt")

	require.NoError(t, DownloadIfMissing(server.URL, filePath, ""))
	require.Equal(t, 1, hits)
	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, "hello zoo", string(data))

	// Second call hits the cache, not the server.
	require.NoError(t, DownloadIfMissing(server.URL, filePath, ""))
	require.Equal(t, 1, hits)

	// Correct checksum accepted, wrong checksum rejected after re-download.
	goodHash, err := SHA256(filePath)
	require.NoError(t, err)
	require.NoError(t, DownloadIfMissing(server.URL, filePath, goodHash))
	require.Equal(t, 1, hits)
	err = DownloadIfMissing(server.URL, filePath, wrongHash)
	require.Error(t, err)
	require.Equal(t, 2, hits) // mismatch forces one re-download before failing
}

func TestDownloadErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	filePath := filepath.Join(t.TempDir(), "missing.bin")
	err := Download(server.URL, filePath, false)
	require.Error(t, err)
	_, statErr := os.Stat(filePath)
	require.True(t, os.IsNotExist(statErr), "failed download must not leave a file behind")
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "data.zip")
	writeZip(t, zipPath, map[string]string{
		"SST-2/dev.tsv":   "sentence\tlabel\n",
		"SST-2/train.tsv": "sentence\tlabel\n",
	})

	dest := filepath.Join(dir, "out")
	require.NoError(t, Unzip(zipPath, dest))
	data, err := os.ReadFile(filepath.Join(dest, "SST-2", "dev.tsv"))
	require.NoError(t, err)
	require.Equal(t, "sentence\tlabel\n", string(data))
}

func TestUnzipRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	writeZip(t, zipPath, map[string]string{"../evil.txt": "nope"})

	err := Unzip(zipPath, filepath.Join(dir, "out"))
	require.Error(t, err)
}
