// Package browser collects the signal bundle for a URL: it drives a
// headless Chrome through chromedp, watches network traffic for the
// document response and XHR requests, and evaluates only the dynamic
// signals (JS globals, DOM selectors) the signature store asks for.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

// Config controls page collection.
type Config struct {
	// NavigationTimeout bounds the whole page load, default 30s.
	NavigationTimeout time.Duration
	// UserAgent overrides the browser user agent.
	UserAgent string
	// ExecPath points at a Chrome binary when it is not on PATH.
	ExecPath string
	// FetchScripts downloads external script bodies so `scripts`
	// signatures can match them, at the cost of extra requests.
	FetchScripts bool
	// SkipDNS disables DNS record collection.
	SkipDNS bool
	// SkipRobots disables robots.txt collection.
	SkipRobots bool
}

// Collector builds signal bundles. Collectors are cheap; the browser
// process is started per Collect call and torn down with it.
type Collector struct {
	cfg Config
	log *logrus.Logger
}

// New creates a Collector.
func New(cfg Config, log *logrus.Logger) *Collector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{cfg: cfg, log: log}
}

// Collect loads the URL and gathers its signal bundle. Secondary signal
// failures (robots, DNS, individual scripts) degrade to empty signals;
// only a failed document load is an error.
func (c *Collector) Collect(ctx context.Context, target string, needs models.SignalNeeds) (*models.Bundle, error) {
	timeout := c.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	bundle := &models.Bundle{
		Headers: map[string][]string{},
		Cookies: map[string]string{},
	}

	// The document response headers and XHR URLs only exist as network
	// events, so listen before navigating.
	var mu sync.Mutex
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Type != network.ResourceTypeDocument {
				return
			}
			mu.Lock()
			for name, value := range e.Response.Headers {
				key := strings.ToLower(name)
				bundle.Headers[key] = append(bundle.Headers[key], fmt.Sprint(value))
			}
			mu.Unlock()
		case *network.EventRequestWillBeSent:
			if e.Type != network.ResourceTypeXHR && e.Type != network.ResourceTypeFetch {
				return
			}
			mu.Lock()
			bundle.XHR = append(bundle.XHR, e.Request.URL)
			mu.Unlock()
		}
	})

	var inlineScripts []string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&bundle.URL),
		chromedp.OuterHTML("html", &bundle.HTML, chromedp.ByQuery),
		chromedp.Evaluate(scriptSrcJS, &bundle.ScriptSrc),
		chromedp.Evaluate(inlineScriptsJS, &inlineScripts),
		chromedp.Evaluate(metaJS, &bundle.Meta),
		chromedp.Evaluate(cssRulesJS, &bundle.CSS),
		chromedp.Evaluate(jsSnapshotExpr(needs.JSPaths), &bundle.JS),
		chromedp.Evaluate(domSnapshotExpr(needs.DOMSelectors), &bundle.DOM),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, cookie := range cookies {
				bundle.Cookies[strings.ToLower(cookie.Name)] = cookie.Value
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", target, err)
	}

	bundle.Scripts = inlineScripts
	if c.cfg.FetchScripts {
		bundle.Scripts = append(bundle.Scripts, c.fetchScripts(ctx, bundle.URL, bundle.ScriptSrc)...)
	}
	if !c.cfg.SkipRobots {
		bundle.Robots = c.fetchRobots(ctx, bundle.URL)
	}
	if !c.cfg.SkipDNS {
		bundle.DNS = c.lookupRecords(domainOf(bundle.URL))
	}

	return bundle, nil
}

// domainOf extracts the registrable host from a URL, without the "www."
// prefix.
func domainOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

const (
	scriptSrcJS = `[...document.querySelectorAll('script[src]')].map(s => s.src)`

	inlineScriptsJS = `[...document.querySelectorAll('script:not([src])')].map(s => s.textContent).filter(t => t.trim().length > 0)`

	metaJS = `Object.fromEntries([...document.querySelectorAll('meta[name][content]')].map(m => [m.getAttribute('name').toLowerCase(), m.getAttribute('content')]))`

	cssRulesJS = `(() => {
	const out = [];
	for (const sheet of document.styleSheets) {
		try {
			for (const rule of sheet.cssRules) out.push(rule.cssText);
		} catch (e) { /* cross-origin sheet */ }
		if (out.length > 5000) break;
	}
	return out;
})()`
)

// jsSnapshotExpr builds the expression that string-coerces each global
// property path the signatures reference. Absent paths are omitted so
// the matcher can tell "missing" from "empty".
func jsSnapshotExpr(paths []string) string {
	encoded, _ := json.Marshal(paths)
	return fmt.Sprintf(`((paths) => {
	const out = {};
	for (const path of paths) {
		try {
			const value = path.split('.').reduce((o, k) => (o == null ? undefined : o[k]), window);
			if (value !== undefined && value !== null) out[path] = String(value);
		} catch (e) {}
	}
	return out;
})(%s)`, encoded)
}

// domSnapshotExpr builds the expression that evaluates each selector the
// signatures reference, returning tag, attributes and inner HTML per
// matched node.
func domSnapshotExpr(selectors []string) string {
	encoded, _ := json.Marshal(selectors)
	return fmt.Sprintf(`((selectors) => {
	const out = {};
	for (const selector of selectors) {
		try {
			const nodes = [...document.querySelectorAll(selector)].slice(0, 50).map(n => ({
				tag: n.tagName.toLowerCase(),
				attrs: Object.fromEntries([...n.attributes].map(a => [a.name.toLowerCase(), a.value])),
				innerHTML: n.innerHTML,
			}));
			if (nodes.length > 0) out[selector] = nodes;
		} catch (e) { /* invalid selector */ }
	}
	return out;
})(%s)`, encoded)
}
