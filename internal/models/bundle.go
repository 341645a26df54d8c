package models

// DOMNode is one element returned by a DOM query: its tag name, attribute
// map and inner HTML.
type DOMNode struct {
	Tag       string            `json:"tag"`
	Attrs     map[string]string `json:"attrs"`
	InnerHTML string            `json:"innerHTML"`
}

// Bundle is the normalized set of observable facts about one fetched page.
// It is built once per inspected URL by a collector and never mutated
// while an inspection is running.
type Bundle struct {
	// URL is the final URL after redirects.
	URL string
	// HTML is the rendered page source.
	HTML string
	// ScriptSrc lists script source URLs in document order.
	ScriptSrc []string
	// Scripts holds inline and fetched script bodies in document order.
	Scripts []string
	// Headers holds response headers of the document request. Keys are
	// lowercased by the collector; values keep arrival order.
	Headers map[string][]string
	// Cookies maps lowercased cookie names to values.
	Cookies map[string]string
	// Meta maps lowercased meta tag names to their content.
	Meta map[string]string
	// JS is a snapshot of global property paths and their
	// string-coerced values. Only paths some signature asks for are
	// populated; an absent path means the global did not exist.
	JS map[string]string
	// DOM holds query results keyed by CSS selector. As with JS, only
	// selectors named by some signature are evaluated.
	DOM map[string][]DOMNode
	// CSS holds stylesheet rule text.
	CSS []string
	// XHR lists URLs requested via fetch/XMLHttpRequest during load.
	XHR []string
	// Robots is the body of /robots.txt, empty when unavailable.
	Robots string
	// DNS maps lowercased record types (a, cname, mx, ...) to records.
	DNS map[string][]string
}

// SignalNeeds tells a collector which dynamic signals the signature store
// can actually use, so it only evaluates those in the page.
type SignalNeeds struct {
	// JSPaths are global property paths referenced by js signatures.
	JSPaths []string
	// DOMSelectors are CSS selectors referenced by dom signatures.
	DOMSelectors []string
}
