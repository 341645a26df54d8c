package detection

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webinspectra/go-webinspectra/internal/models"
	"github.com/webinspectra/go-webinspectra/internal/signatures"
)

// compileTech builds a single compiled technology from a raw signature
// document, going through the same load path production code uses.
func compileTech(t *testing.T, name, doc string) *models.Technology {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	store, err := signatures.FromJSON([]byte(doc), nil, log)
	require.NoError(t, err)
	tech := store.ByName(name)
	require.NotNil(t, tech)
	return tech
}

func TestMatchScriptSrcWithVersion(t *testing.T) {
	tech := compileTech(t, "Bootstrap", `{"Bootstrap": {
		"scriptSrc": "bootstrap(?:[.-](\\d+(?:\\.\\d+)+))?(?:\\.bundle)?(?:\\.min)?\\.js\\;version:\\1"
	}}`)
	bundle := &models.Bundle{
		ScriptSrc: []string{
			"https://cdn.example.com/bootstrap-5.3.3.min.js",
			"https://cdn.example.com/app.js",
		},
	}

	hits := Match(tech, bundle)
	require.Len(t, hits, 1)
	assert.Equal(t, "Bootstrap", hits[0].Technology)
	assert.Equal(t, "scriptSrc", hits[0].Category)
	assert.Equal(t, "5.3.3", hits[0].Version)
	assert.Equal(t, 100, hits[0].Confidence)
}

func TestMatchHeadersCaseAndConfidence(t *testing.T) {
	tech := compileTech(t, "Nginx", `{"Nginx": {
		"headers": {"Server": "^nginx(?:/(\\d+(?:\\.\\d+)+))?\\;version:\\1\\;confidence:90"}
	}}`)
	// Header keys are lowercased on both sides of the match.
	bundle := &models.Bundle{
		Headers: map[string][]string{"server": {"nginx/1.25.3"}},
	}

	hits := Match(tech, bundle)
	require.Len(t, hits, 1)
	assert.Equal(t, "headers", hits[0].Category)
	assert.Equal(t, "server", hits[0].Key)
	assert.Equal(t, "1.25.3", hits[0].Version)
	assert.Equal(t, 90, hits[0].Confidence)
}

func TestMatchEmptyHeaderPattern(t *testing.T) {
	tech := compileTech(t, "Cloudflare", `{"Cloudflare": {"headers": {"cf-ray": ""}}}`)

	hits := Match(tech, &models.Bundle{Headers: map[string][]string{"cf-ray": {"8f2-LHR"}}})
	require.Len(t, hits, 1)
	assert.Equal(t, 100, hits[0].Confidence)

	hits = Match(tech, &models.Bundle{Headers: map[string][]string{"server": {"cloudflare"}}})
	assert.Empty(t, hits)
}

func TestMatchMetaGenerator(t *testing.T) {
	tech := compileTech(t, "WordPress", `{"WordPress": {
		"meta": {"generator": "^WordPress(?: (\\d+(?:\\.\\d+)+))?\\;version:\\1"}
	}}`)
	bundle := &models.Bundle{Meta: map[string]string{"generator": "WordPress 6.4.2"}}

	hits := Match(tech, bundle)
	require.Len(t, hits, 1)
	assert.Equal(t, "meta", hits[0].Category)
	assert.Equal(t, "6.4.2", hits[0].Version)
}

func TestMatchJSExistence(t *testing.T) {
	tech := compileTech(t, "jQuery", `{"jQuery": {
		"js": {"jQuery.fn.jquery": "^(\\d+(?:\\.\\d+)+)\\;version:\\1", "jQuery": ""}
	}}`)

	bundle := &models.Bundle{JS: map[string]string{
		"jQuery":           "function",
		"jQuery.fn.jquery": "3.7.1",
	}}
	hits := Match(tech, bundle)
	require.Len(t, hits, 2)
	// Sorted path order: "jQuery" before "jQuery.fn.jquery".
	assert.Equal(t, "jQuery", hits[0].Key)
	assert.Empty(t, hits[0].Version)
	assert.Equal(t, "jQuery.fn.jquery", hits[1].Key)
	assert.Equal(t, "3.7.1", hits[1].Version)

	// Absent path contributes no candidates, even for empty patterns.
	hits = Match(tech, &models.Bundle{JS: map[string]string{"React": "object"}})
	assert.Empty(t, hits)
}

func TestMatchDOM(t *testing.T) {
	tech := compileTech(t, "Font Awesome", `{"Font Awesome": {
		"dom": {
			"link[href*='font-awesome']": {
				"attributes": {"href": "font-awesome(?:[.-](\\d+(?:\\.\\d+)+))?\\;version:\\1"}
			},
			"i.fa": {"exists": ""}
		}
	}}`)
	bundle := &models.Bundle{DOM: map[string][]models.DOMNode{
		"i.fa": {{Tag: "i"}},
		"link[href*='font-awesome']": {{
			Tag:   "link",
			Attrs: map[string]string{"href": "/css/font-awesome-4.7.0.min.css"},
		}},
	}}

	hits := Match(tech, bundle)
	require.Len(t, hits, 2)
	// Selectors are compiled in sorted order.
	assert.Equal(t, "exists", hits[0].Key)
	assert.Equal(t, "i.fa", hits[0].Pattern)
	assert.Equal(t, "href", hits[1].Key)
	assert.Equal(t, "4.7.0", hits[1].Version)
}

func TestMatchDNS(t *testing.T) {
	tech := compileTech(t, "Cloudflare", `{"Cloudflare": {
		"dns": {"NS": "cloudflare\\.com"}
	}}`)
	bundle := &models.Bundle{DNS: map[string][]string{
		"ns": {"chin.ns.cloudflare.com.", "kara.ns.cloudflare.com."},
	}}

	hits := Match(tech, bundle)
	assert.Len(t, hits, 2)
}

func TestMatchURLAndRobots(t *testing.T) {
	tech := compileTech(t, "WordPress", `{"WordPress": {
		"url": "/wp-content/",
		"robots": "Disallow: /wp-admin"
	}}`)
	bundle := &models.Bundle{
		URL:    "https://example.com/wp-content/themes/x/",
		Robots: "User-agent: *\nDisallow: /wp-admin/",
	}

	hits := Match(tech, bundle)
	require.Len(t, hits, 2)
	assert.Equal(t, "url", hits[0].Category)
	assert.Equal(t, "robots", hits[1].Category)
}

func TestMatchNoSignals(t *testing.T) {
	tech := compileTech(t, "Anything", `{"Anything": {"html": "marker"}}`)
	assert.Empty(t, Match(tech, &models.Bundle{}))
}

func TestExtractVersionTernary(t *testing.T) {
	tech := compileTech(t, "T", `{"T": {
		"scriptSrc": "lib(?:-(\\d+(?:\\.\\d+)*))?\\.js\\;version:\\1?\\1:1"
	}}`)

	hits := Match(tech, &models.Bundle{ScriptSrc: []string{"/lib-2.4.js"}})
	require.Len(t, hits, 1)
	assert.Equal(t, "2.4", hits[0].Version)

	hits = Match(tech, &models.Bundle{ScriptSrc: []string{"/lib.js"}})
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].Version)
}

func TestExtractVersionInvalidDropped(t *testing.T) {
	tech := compileTech(t, "T", `{"T": {
		"scriptSrc": "lib-([\\w.]+)\\.js\\;version:\\1"
	}}`)

	hits := Match(tech, &models.Bundle{ScriptSrc: []string{"/lib-beta.js"}})
	require.Len(t, hits, 1)
	assert.Empty(t, hits[0].Version)
}
