// Package models contains the data types shared between the signature
// store, the pattern matcher and the resolution engine.
package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Signature is a single technology definition as it appears in a
// signature database file, before pattern compilation.
type Signature struct {
	Name        string                `json:"name,omitempty" yaml:"name,omitempty"`
	Cats        []int                 `json:"cats,omitempty" yaml:"cats,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Website     string                `json:"website,omitempty" yaml:"website,omitempty"`
	CPE         string                `json:"cpe,omitempty" yaml:"cpe,omitempty"`
	Icon        string                `json:"icon,omitempty" yaml:"icon,omitempty"`
	Pricing     []string              `json:"pricing,omitempty" yaml:"pricing,omitempty"`
	OSS         bool                  `json:"oss,omitempty" yaml:"oss,omitempty"`
	SaaS        bool                  `json:"saas,omitempty" yaml:"saas,omitempty"`
	Headers     map[string]StringList `json:"headers,omitempty" yaml:"headers,omitempty"`
	Cookies     map[string]StringList `json:"cookies,omitempty" yaml:"cookies,omitempty"`
	Meta        map[string]StringList `json:"meta,omitempty" yaml:"meta,omitempty"`
	DNS         map[string]StringList `json:"dns,omitempty" yaml:"dns,omitempty"`
	JS          map[string]StringList `json:"js,omitempty" yaml:"js,omitempty"`
	HTML        StringList            `json:"html,omitempty" yaml:"html,omitempty"`
	Scripts     StringList            `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	ScriptSrc   StringList            `json:"scriptSrc,omitempty" yaml:"scriptSrc,omitempty"`
	CSS         StringList            `json:"css,omitempty" yaml:"css,omitempty"`
	URL         StringList            `json:"url,omitempty" yaml:"url,omitempty"`
	XHR         StringList            `json:"xhr,omitempty" yaml:"xhr,omitempty"`
	Robots      StringList            `json:"robots,omitempty" yaml:"robots,omitempty"`
	DOM         DOMClauses            `json:"dom,omitempty" yaml:"dom,omitempty"`
	Implies     StringList            `json:"implies,omitempty" yaml:"implies,omitempty"`
	Excludes    StringList            `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	Requires    StringList            `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// Category describes one technology category from the signature database.
type Category struct {
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`
}

// StringList accepts either a single string or a list of strings, which
// is how signature files express both forms interchangeably.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or string list: %w", err)
	}
	*s = StringList(many)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	}
	var many []string
	if err := node.Decode(&many); err != nil {
		return fmt.Errorf("expected string or string list: %w", err)
	}
	*s = StringList(many)
	return nil
}

// DOMClause is the matching clause for one CSS selector: bare existence,
// text content patterns, or per-attribute patterns.
type DOMClause struct {
	Exists     *string               `json:"exists,omitempty" yaml:"exists,omitempty"`
	Text       StringList            `json:"text,omitempty" yaml:"text,omitempty"`
	Attributes map[string]StringList `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// DOMClauses maps a CSS selector to its clause. Signature files may write
// the whole field as a bare selector string, a list of selectors (both
// meaning existence checks), or a selector->clause object.
type DOMClauses map[string]DOMClause

// UnmarshalJSON implements json.Unmarshaler.
func (d *DOMClauses) UnmarshalJSON(data []byte) error {
	var selectors StringList
	if err := selectors.UnmarshalJSON(data); err == nil {
		out := make(DOMClauses, len(selectors))
		empty := ""
		for _, sel := range selectors {
			out[sel] = DOMClause{Exists: &empty}
		}
		*d = out
		return nil
	}
	var obj map[string]DOMClause
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("expected selector, selector list or selector map: %w", err)
	}
	*d = DOMClauses(obj)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DOMClauses) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode || node.Kind == yaml.SequenceNode {
		var selectors StringList
		if err := selectors.UnmarshalYAML(node); err != nil {
			return err
		}
		out := make(DOMClauses, len(selectors))
		empty := ""
		for _, sel := range selectors {
			out[sel] = DOMClause{Exists: &empty}
		}
		*d = out
		return nil
	}
	var obj map[string]DOMClause
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("expected selector, selector list or selector map: %w", err)
	}
	*d = DOMClauses(obj)
	return nil
}
