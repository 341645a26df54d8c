// Package inspectra identifies the technologies powering a website by
// matching a signature database against signals collected from a live
// page: HTML, headers, cookies, script URLs, JS globals, DOM state, CSS
// and DNS records.
package inspectra

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/webinspectra/go-webinspectra/internal/browser"
	"github.com/webinspectra/go-webinspectra/internal/detection"
	"github.com/webinspectra/go-webinspectra/internal/models"
	"github.com/webinspectra/go-webinspectra/internal/resolve"
	"github.com/webinspectra/go-webinspectra/internal/signatures"
)

// BundleIncompleteError reports a signal bundle unusable for matching.
// Partial bundles (no cookies, no DNS, ...) are fine and simply yield no
// hits from those categories; only a missing bundle is rejected.
type BundleIncompleteError struct {
	Reason string
}

func (e *BundleIncompleteError) Error() string {
	return "incomplete signal bundle: " + e.Reason
}

// Inspector matches page signals against an immutable signature store.
// One Inspector is safe for concurrent inspections.
type Inspector struct {
	config *Config
	store  *signatures.Store
	log    *logrus.Logger
}

// New creates an Inspector. Without signature options the embedded
// default database is used.
func New(options ...Option) (*Inspector, error) {
	config := &Config{}
	for _, option := range options {
		option(config)
	}

	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	store, err := buildStore(config, log)
	if err != nil {
		return nil, err
	}

	return &Inspector{config: config, store: store, log: log}, nil
}

func buildStore(config *Config, log *logrus.Logger) (*signatures.Store, error) {
	switch {
	case len(config.SignaturesJSON) > 0:
		return signatures.FromJSON(config.SignaturesJSON, config.CategoriesJSON, log)
	case config.SignatureDir != "":
		return signatures.LoadDir(config.SignatureDir, log)
	case config.Remote != nil:
		return signatures.LoadRemote(*config.Remote, log)
	default:
		return signatures.Default(log)
	}
}

// Store exposes the signature index, e.g. for listing categories.
func (i *Inspector) Store() *signatures.Store { return i.store }

// SignalNeeds reports which dynamic page signals the loaded signatures
// can use; collectors should evaluate only those.
func (i *Inspector) SignalNeeds() models.SignalNeeds { return i.store.SignalNeeds() }

// Inspect matches every signature against the bundle and resolves the
// hits into a report. Matching fans out over a bounded worker pool; the
// context cancels the inspection between technologies, discarding any
// hits collected so far.
func (i *Inspector) Inspect(ctx context.Context, bundle *models.Bundle) (*models.Report, error) {
	if bundle == nil {
		return nil, &BundleIncompleteError{Reason: "no bundle"}
	}

	names := i.store.Names()
	hitsPerTech := make([][]models.Hit, len(names))

	workers := i.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(names) && len(names) > 0 {
		workers = len(names)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				hitsPerTech[idx] = detection.Match(i.store.ByName(names[idx]), bundle)
			}
		}()
	}

feed:
	for idx := range names {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Flatten in store order so version ordering is reproducible no
	// matter how the workers interleaved.
	var hits []models.Hit
	for _, techHits := range hitsPerTech {
		hits = append(hits, techHits...)
	}

	report := resolve.Resolve(hits, i.store)
	report.RunID = uuid.NewString()
	report.URL = bundle.URL

	i.log.WithFields(logrus.Fields{
		"run":   report.RunID,
		"url":   bundle.URL,
		"count": report.Count,
	}).Debug("inspection finished")

	return report, nil
}

// InspectURL loads the URL in a headless browser, collects its signal
// bundle and inspects it.
func (i *Inspector) InspectURL(ctx context.Context, url string) (*models.Report, error) {
	collector := browser.New(i.config.Browser, i.log)
	bundle, err := collector.Collect(ctx, url, i.store.SignalNeeds())
	if err != nil {
		return nil, err
	}
	return i.Inspect(ctx, bundle)
}

// InspectResponse builds a bundle from a raw HTTP response without a
// browser and inspects it. Dynamic signals (JS globals, DOM queries,
// XHR) are unavailable on this path.
func (i *Inspector) InspectResponse(ctx context.Context, url string, headers map[string][]string, body []byte) (*models.Report, error) {
	return i.Inspect(ctx, browser.BuildStatic(url, headers, body))
}

// ByCategory re-keys a report's detections by category, ordered by
// category priority. A detection appears under every category it
// belongs to.
func (i *Inspector) ByCategory(report *models.Report) []models.CategoryGroup {
	return resolve.ByCategory(report, i.store)
}
