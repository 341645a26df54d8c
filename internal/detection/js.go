package detection

import (
	"github.com/webinspectra/go-webinspectra/internal/models"
)

// matchJS evaluates js signatures against the bundle's global snapshot.
// An absent path contributes no candidates; an empty pattern matches any
// present value, which is how bare existence checks are expressed.
func matchJS(tech *models.Technology, bundle *models.Bundle, hits *[]models.Hit) {
	if len(tech.JS) == 0 || len(bundle.JS) == 0 {
		return
	}
	for _, path := range sortedKeys(tech.JS) {
		value, ok := bundle.JS[path]
		if !ok {
			continue
		}
		for _, pattern := range tech.JS[path] {
			if !evaluate(pattern, value) {
				continue
			}
			*hits = append(*hits, models.Hit{
				Technology: tech.Name,
				Category:   "js",
				Key:        path,
				Pattern:    pattern.Source,
				Confidence: pattern.Confidence,
				Version:    extractVersion(pattern, value),
			})
		}
	}
}
