package inspectra

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/webinspectra/go-webinspectra/internal/browser"
	"github.com/webinspectra/go-webinspectra/internal/signatures"
)

// Config contains configuration options for the inspector.
type Config struct {
	// SignatureDir loads the signature database from a directory of
	// .json/.yaml files plus categories.json.
	SignatureDir string
	// SignaturesJSON and CategoriesJSON provide the database as raw
	// documents, taking precedence over SignatureDir.
	SignaturesJSON []byte
	CategoriesJSON []byte
	// Remote downloads the database, with local caching.
	Remote *signatures.RemoteConfig
	// Workers bounds concurrent technology matching; 0 means GOMAXPROCS.
	Workers int
	// Logger receives diagnostics; nil uses the logrus standard logger.
	Logger *logrus.Logger
	// Browser configures the page collector used by InspectURL.
	Browser browser.Config
}

// Option is a function that configures the inspector.
type Option func(*Config)

// WithSignatureDir loads signatures from a database directory.
func WithSignatureDir(dir string) Option {
	return func(c *Config) {
		c.SignatureDir = dir
	}
}

// WithSignaturesJSON provides the signature and category documents
// directly.
func WithSignaturesJSON(signaturesData, categoriesData []byte) Option {
	return func(c *Config) {
		c.SignaturesJSON = signaturesData
		c.CategoriesJSON = categoriesData
	}
}

// WithRemoteSignatures downloads the signature database.
func WithRemoteSignatures(cfg signatures.RemoteConfig) Option {
	return func(c *Config) {
		c.Remote = &cfg
	}
}

// WithWorkers bounds concurrent technology matching.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithBrowser configures the page collector used by InspectURL.
func WithBrowser(cfg browser.Config) Option {
	return func(c *Config) {
		c.Browser = cfg
	}
}

// WithNavigationTimeout bounds page load time for InspectURL.
func WithNavigationTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Browser.NavigationTimeout = d
	}
}
