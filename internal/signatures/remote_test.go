package signatures

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteTestDoc = `{"RemoteTech": {"html": "remote-marker"}}`

func TestLoadRemoteDownloadsAndCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(remoteTestDoc))
	}))
	defer server.Close()

	cfg := RemoteConfig{
		SignaturesURL: server.URL,
		CacheDir:      t.TempDir(),
		Client:        server.Client(),
	}

	store, err := LoadRemote(cfg, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, store.ByName("RemoteTech"))
	assert.Equal(t, 1, requests)

	// Second load within the expiry window reuses the cache.
	_, err = LoadRemote(cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, requests)

	data, err := os.ReadFile(filepath.Join(cfg.CacheDir, "technologies.json"))
	require.NoError(t, err)
	assert.Equal(t, remoteTestDoc, string(data))
}

func TestLoadRemoteForceDownload(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(remoteTestDoc))
	}))
	defer server.Close()

	cfg := RemoteConfig{
		SignaturesURL: server.URL,
		CacheDir:      t.TempDir(),
		Client:        server.Client(),
		ForceDownload: true,
	}

	for i := 0; i < 2; i++ {
		_, err := LoadRemote(cfg, quietLogger())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, requests)
}

func TestLoadRemoteStaleCacheFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	cachePath := filepath.Join(cacheDir, "technologies.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(remoteTestDoc), 0o644))
	// Age the cache past the expiry window so a download is attempted.
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(cachePath, old, old))

	cfg := RemoteConfig{
		SignaturesURL: server.URL,
		CacheDir:      cacheDir,
		Client:        server.Client(),
	}

	store, err := LoadRemote(cfg, quietLogger())
	require.NoError(t, err)
	assert.NotNil(t, store.ByName("RemoteTech"))
}

func TestLoadRemoteNoURL(t *testing.T) {
	_, err := LoadRemote(RemoteConfig{}, quietLogger())
	require.Error(t, err)
}

func TestUpdateCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(remoteTestDoc))
	}))
	defer server.Close()

	cacheDir := t.TempDir()
	dir, err := UpdateCache(RemoteConfig{
		SignaturesURL: server.URL,
		CacheDir:      cacheDir,
		Client:        server.Client(),
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, cacheDir, dir)

	_, err = os.Stat(filepath.Join(cacheDir, "technologies.json"))
	assert.NoError(t, err)
}
