// Package detection evaluates one technology's compiled patterns against
// a signal bundle, producing hits with confidence weights and extracted
// versions. All inputs are immutable, so Match is safe to call
// concurrently for different technologies over the same bundle.
package detection

import (
	"sort"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

// Match evaluates every pattern of tech against the bundle. Categories
// are evaluated in a fixed order (then candidate order, then rule order)
// so that first-seen version ordering is reproducible.
func Match(tech *models.Technology, bundle *models.Bundle) []models.Hit {
	var hits []models.Hit

	matchList(tech.Name, "url", tech.URL, []string{bundle.URL}, &hits)
	matchList(tech.Name, "html", tech.HTML, []string{bundle.HTML}, &hits)
	matchList(tech.Name, "scriptSrc", tech.ScriptSrc, bundle.ScriptSrc, &hits)
	matchList(tech.Name, "scripts", tech.Scripts, bundle.Scripts, &hits)
	matchList(tech.Name, "css", tech.CSS, bundle.CSS, &hits)
	matchList(tech.Name, "robots", tech.Robots, []string{bundle.Robots}, &hits)
	matchList(tech.Name, "xhr", tech.XHR, bundle.XHR, &hits)

	matchKeyedMulti(tech.Name, "headers", tech.Headers, bundle.Headers, &hits)
	matchKeyed(tech.Name, "cookies", tech.Cookies, bundle.Cookies, &hits)
	matchKeyed(tech.Name, "meta", tech.Meta, bundle.Meta, &hits)
	matchKeyedMulti(tech.Name, "dns", tech.DNS, bundle.DNS, &hits)

	matchJS(tech, bundle, &hits)
	matchDOM(tech, bundle, &hits)

	return hits
}

// matchList evaluates patterns of a list category against each candidate
// string in order.
func matchList(tech, category string, patterns []*models.Pattern, candidates []string, hits *[]models.Hit) {
	if len(patterns) == 0 {
		return
	}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		for _, pattern := range patterns {
			if !evaluate(pattern, candidate) {
				continue
			}
			*hits = append(*hits, models.Hit{
				Technology: tech,
				Category:   category,
				Pattern:    pattern.Source,
				Confidence: pattern.Confidence,
				Version:    extractVersion(pattern, candidate),
			})
		}
	}
}

// sortedKeys returns map keys in sorted order; map iteration order would
// otherwise make first-seen version ordering nondeterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// matchKeyed evaluates a keyed category whose bundle side carries one
// value per key (cookies, meta).
func matchKeyed(tech, category string, patterns map[string][]*models.Pattern, values map[string]string, hits *[]models.Hit) {
	if len(patterns) == 0 || len(values) == 0 {
		return
	}
	for _, key := range sortedKeys(patterns) {
		value, ok := values[key]
		if !ok {
			continue
		}
		for _, pattern := range patterns[key] {
			if !evaluate(pattern, value) {
				continue
			}
			*hits = append(*hits, models.Hit{
				Technology: tech,
				Category:   category,
				Key:        key,
				Pattern:    pattern.Source,
				Confidence: pattern.Confidence,
				Version:    extractVersion(pattern, value),
			})
		}
	}
}

// matchKeyedMulti evaluates a keyed category whose bundle side carries
// multiple values per key (headers, dns records).
func matchKeyedMulti(tech, category string, patterns map[string][]*models.Pattern, values map[string][]string, hits *[]models.Hit) {
	if len(patterns) == 0 || len(values) == 0 {
		return
	}
	for _, key := range sortedKeys(patterns) {
		for _, value := range values[key] {
			for _, pattern := range patterns[key] {
				if !evaluate(pattern, value) {
					continue
				}
				*hits = append(*hits, models.Hit{
					Technology: tech,
					Category:   category,
					Key:        key,
					Pattern:    pattern.Source,
					Confidence: pattern.Confidence,
					Version:    extractVersion(pattern, value),
				})
			}
		}
	}
}
