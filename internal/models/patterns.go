package models

import "github.com/dlclark/regexp2"

// Pattern is a single compiled matching unit: the regular expression, an
// optional version template referencing capture groups, and a confidence
// weight in [0,100].
type Pattern struct {
	// Source is the pattern text as written in the signature file,
	// directives included. It is the dedup key in confidence breakdowns.
	Source string
	// Expression is the regex part of Source, without directives.
	Expression string
	// Regex is nil when Expression is empty; an empty pattern matches
	// any candidate, which is how bare existence checks are written.
	Regex *regexp2.Regexp
	// Version is the extraction template, e.g. "\\1" or "\\1?A:B".
	Version string
	// Confidence weight, default 100.
	Confidence int
}

// DOMPattern is the compiled form of one selector clause of a dom signature.
type DOMPattern struct {
	// Selector carries the CSS selector in Source; its directives
	// (confidence, version) apply to existence hits.
	Selector *Pattern
	Exists   bool
	Text     []*Pattern
	// Attributes maps an attribute name to the patterns its value
	// must match.
	Attributes map[string][]*Pattern
}

// Relationship is a parsed implies/excludes/requires target, optionally
// qualified with a minimum confidence.
type Relationship struct {
	Name string
	// Confidence is the qualifier from "\\;confidence:N", 0 when absent.
	Confidence int
}

// Technology is a fully compiled signature, immutable after store load.
type Technology struct {
	Name        string
	Cats        []int
	Description string
	Website     string
	CPE         string
	Icon        string
	Pricing     []string
	OSS         bool
	SaaS        bool

	// Keyed pattern maps. Keys are lowercased at compile time, except JS
	// keys which are case-sensitive property paths.
	Headers map[string][]*Pattern
	Cookies map[string][]*Pattern
	Meta    map[string][]*Pattern
	DNS     map[string][]*Pattern
	JS      map[string][]*Pattern

	// Plain pattern lists, in declaration order.
	HTML      []*Pattern
	Scripts   []*Pattern
	ScriptSrc []*Pattern
	CSS       []*Pattern
	URL       []*Pattern
	XHR       []*Pattern
	Robots    []*Pattern

	DOM []*DOMPattern

	Implies  []Relationship
	Excludes []Relationship
	Requires []Relationship
}
