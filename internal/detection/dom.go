package detection

import (
	"github.com/webinspectra/go-webinspectra/internal/models"
)

// matchDOM evaluates dom signatures against the bundle's pre-computed
// selector results: bare existence, text content, then attribute values.
func matchDOM(tech *models.Technology, bundle *models.Bundle, hits *[]models.Hit) {
	if len(tech.DOM) == 0 || len(bundle.DOM) == 0 {
		return
	}
	for _, dom := range tech.DOM {
		nodes := bundle.DOM[dom.Selector.Expression]
		if len(nodes) == 0 {
			continue
		}

		if dom.Exists {
			*hits = append(*hits, models.Hit{
				Technology: tech.Name,
				Category:   "dom",
				Key:        "exists",
				Pattern:    dom.Selector.Source,
				Confidence: dom.Selector.Confidence,
			})
		}

		for _, node := range nodes {
			for _, pattern := range dom.Text {
				if !evaluate(pattern, node.InnerHTML) {
					continue
				}
				*hits = append(*hits, models.Hit{
					Technology: tech.Name,
					Category:   "dom",
					Key:        "text",
					Pattern:    pattern.Source,
					Confidence: pattern.Confidence,
					Version:    extractVersion(pattern, node.InnerHTML),
				})
			}
			for _, attr := range sortedKeys(dom.Attributes) {
				value, ok := node.Attrs[attr]
				if !ok {
					continue
				}
				for _, pattern := range dom.Attributes[attr] {
					if !evaluate(pattern, value) {
						continue
					}
					*hits = append(*hits, models.Hit{
						Technology: tech.Name,
						Category:   "dom",
						Key:        attr,
						Pattern:    pattern.Source,
						Confidence: pattern.Confidence,
						Version:    extractVersion(pattern, value),
					})
				}
			}
		}
	}
}
