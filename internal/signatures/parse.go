package signatures

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

// directiveSeparator splits the regex part of a pattern from its
// version/confidence directives, e.g. "jquery[.-]([\d.]+)\.js\;version:\1".
const directiveSeparator = `\;`

// matchTimeout bounds a single regex evaluation. Signature regexes come
// from an external database and may backtrack pathologically.
const matchTimeout = 3 * time.Second

// ParsePattern compiles one pattern string into its structured form.
// An empty expression yields a nil Regex, which matches any candidate.
func ParsePattern(src string) (*models.Pattern, error) {
	p, err := parseDirectives(src)
	if err != nil {
		return nil, err
	}

	if p.Expression != "" {
		regex, err := regexp2.Compile(p.Expression, regexp2.IgnoreCase)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", p.Expression, err)
		}
		regex.MatchTimeout = matchTimeout
		p.Regex = regex
	}

	return p, nil
}

// parseDirectives splits a pattern into its expression and trailing
// version/confidence directives.
func parseDirectives(src string) (*models.Pattern, error) {
	p := &models.Pattern{
		Source:     src,
		Confidence: 100,
	}

	parts := strings.Split(src, directiveSeparator)
	p.Expression = parts[0]

	for _, directive := range parts[1:] {
		name, value, ok := strings.Cut(directive, ":")
		if !ok {
			continue
		}
		switch name {
		case "version":
			p.Version = value
		case "confidence":
			confidence, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid confidence %q: %w", value, err)
			}
			if confidence < 0 {
				confidence = 0
			} else if confidence > 100 {
				confidence = 100
			}
			p.Confidence = confidence
		}
	}

	return p, nil
}

// parseSelector parses a dom selector and its directives. The selector
// is a CSS selector, not a regex, so it stays uncompiled.
func parseSelector(src string) (*models.Pattern, error) {
	return parseDirectives(src)
}

// parsePatternList compiles every pattern of a list-valued signature field.
func parsePatternList(values models.StringList) ([]*models.Pattern, error) {
	if len(values) == 0 {
		return nil, nil
	}
	patterns := make([]*models.Pattern, 0, len(values))
	for _, value := range values {
		p, err := ParsePattern(value)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// parsePatternMap compiles a keyed signature field. Keys are lowercased
// unless keepCase is set (js property paths are case-sensitive).
func parsePatternMap(values map[string]models.StringList, keepCase bool) (map[string][]*models.Pattern, error) {
	if len(values) == 0 {
		return nil, nil
	}
	patterns := make(map[string][]*models.Pattern, len(values))
	for key, list := range values {
		compiled, err := parsePatternList(list)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if !keepCase {
			key = strings.ToLower(key)
		}
		patterns[key] = compiled
	}
	return patterns, nil
}

// parseDOMClauses compiles the dom field of a signature.
func parseDOMClauses(clauses models.DOMClauses) ([]*models.DOMPattern, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	// Deterministic compile order keeps hit order reproducible.
	selectors := make([]string, 0, len(clauses))
	for selector := range clauses {
		selectors = append(selectors, selector)
	}
	sortStrings(selectors)

	patterns := make([]*models.DOMPattern, 0, len(clauses))
	for _, selector := range selectors {
		clause := clauses[selector]
		dp := &models.DOMPattern{}

		// The selector itself may carry confidence/version directives
		// that apply to existence hits.
		sel, err := parseSelector(selector)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", selector, err)
		}
		dp.Selector = sel
		dp.Exists = clause.Exists != nil

		if dp.Text, err = parsePatternList(clause.Text); err != nil {
			return nil, fmt.Errorf("selector %q text: %w", selector, err)
		}
		if len(clause.Attributes) > 0 {
			dp.Attributes = make(map[string][]*models.Pattern, len(clause.Attributes))
			for attr, list := range clause.Attributes {
				compiled, err := parsePatternList(list)
				if err != nil {
					return nil, fmt.Errorf("selector %q attribute %q: %w", selector, attr, err)
				}
				dp.Attributes[strings.ToLower(attr)] = compiled
			}
		}
		// A clause with neither text nor attribute patterns is an
		// existence check even without an explicit "exists" key.
		if !dp.Exists && len(dp.Text) == 0 && len(dp.Attributes) == 0 {
			dp.Exists = true
		}

		patterns = append(patterns, dp)
	}
	return patterns, nil
}

// parseRelationships parses implies/excludes/requires targets, each
// optionally qualified as "Name\;confidence:N".
func parseRelationships(values models.StringList) []models.Relationship {
	if len(values) == 0 {
		return nil
	}
	relationships := make([]models.Relationship, 0, len(values))
	for _, value := range values {
		rel := models.Relationship{Name: value}
		if name, directive, ok := strings.Cut(value, directiveSeparator); ok {
			rel.Name = name
			if confidence, found := strings.CutPrefix(directive, "confidence:"); found {
				if n, err := strconv.Atoi(confidence); err == nil {
					rel.Confidence = n
				}
			}
		}
		relationships = append(relationships, rel)
	}
	return relationships
}
