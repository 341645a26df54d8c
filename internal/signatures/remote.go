package signatures

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultCacheDir is the subdirectory of the user cache directory
	// where downloaded rulesets are kept.
	DefaultCacheDir = "go-webinspectra"

	// DefaultCacheExpiry is how long a cached ruleset stays fresh.
	DefaultCacheExpiry = 24 * time.Hour
)

// RemoteConfig controls ruleset downloads.
type RemoteConfig struct {
	// SignaturesURL points at a signature JSON document (the merged
	// technologies map).
	SignaturesURL string
	// CategoriesURL points at the category table. Optional.
	CategoriesURL string
	// CacheDir overrides the cache location.
	CacheDir string
	// CacheExpiry overrides the cache freshness window.
	CacheExpiry time.Duration
	// ForceDownload ignores a fresh cache.
	ForceDownload bool
	// Client is the HTTP client used for downloads.
	Client *http.Client
}

func (c *RemoteConfig) cacheDir() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, DefaultCacheDir)
}

func (c *RemoteConfig) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *RemoteConfig) expiry() time.Duration {
	if c.CacheExpiry > 0 {
		return c.CacheExpiry
	}
	return DefaultCacheExpiry
}

// LoadRemote downloads a ruleset (or reuses a fresh cached copy) and
// builds a Store from it.
func LoadRemote(cfg RemoteConfig, log *logrus.Logger) (*Store, error) {
	if cfg.SignaturesURL == "" {
		return nil, fmt.Errorf("no signatures URL configured")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	signaturesData, err := fetchCached(cfg, "technologies.json", cfg.SignaturesURL, log)
	if err != nil {
		return nil, err
	}
	var categoriesData []byte
	if cfg.CategoriesURL != "" {
		if categoriesData, err = fetchCached(cfg, "categories.json", cfg.CategoriesURL, log); err != nil {
			return nil, err
		}
	}

	return FromJSON(signaturesData, categoriesData, log)
}

// UpdateCache forces a fresh download of the configured ruleset into the
// cache and reports where it was written.
func UpdateCache(cfg RemoteConfig, log *logrus.Logger) (string, error) {
	cfg.ForceDownload = true
	if _, err := LoadRemote(cfg, log); err != nil {
		return "", err
	}
	return cfg.cacheDir(), nil
}

// fetchCached returns the named document from the cache when fresh,
// downloading it otherwise. A download failure falls back to a stale
// cached copy when one exists.
func fetchCached(cfg RemoteConfig, name, url string, log *logrus.Logger) ([]byte, error) {
	cachePath := filepath.Join(cfg.cacheDir(), name)

	if !cfg.ForceDownload {
		if info, err := os.Stat(cachePath); err == nil && time.Since(info.ModTime()) < cfg.expiry() {
			return os.ReadFile(cachePath)
		}
	}

	data, err := download(cfg.client(), url)
	if err != nil {
		if stale, readErr := os.ReadFile(cachePath); readErr == nil {
			log.WithField("url", url).Warnf("download failed, using stale cache: %v", err)
			return stale, nil
		}
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	if err := os.MkdirAll(cfg.cacheDir(), 0o755); err == nil {
		if err := os.WriteFile(cachePath, data, 0o644); err != nil {
			log.WithField("path", cachePath).Warnf("could not cache ruleset: %v", err)
		}
	}
	return data, nil
}

func download(client *http.Client, url string) ([]byte, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
