package browser

import (
	"regexp"
	"strings"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

var (
	metaTagRegex = regexp.MustCompile(`(?i)<meta[^>]+name=["']([^"']+)["'][^>]+content=["']([^"']*)["']|<meta[^>]+content=["']([^"']*)["'][^>]+name=["']([^"']+)["']`)
	scriptRegex  = regexp.MustCompile(`(?i)<script[^>]*\ssrc=["']([^"']+)["'][^>]*>|<script[^>]*>([\s\S]*?)</script>`)
)

// BuildStatic assembles a bundle from a raw HTTP response, without a
// browser. Dynamic signals (JS global snapshot, DOM queries, XHR, CSS
// rules) stay empty on this path; HTML-derived signals are extracted
// with regular expressions from the unrendered source.
func BuildStatic(pageURL string, headers map[string][]string, body []byte) *models.Bundle {
	bundle := &models.Bundle{
		URL:     pageURL,
		HTML:    string(body),
		Headers: normalizeHeaders(headers),
		Meta:    extractMetaTags(body),
	}
	bundle.Cookies = extractCookies(bundle.Headers)
	bundle.ScriptSrc, bundle.Scripts = extractScripts(body)
	return bundle
}

func normalizeHeaders(headers map[string][]string) map[string][]string {
	normalized := make(map[string][]string, len(headers))
	for name, values := range headers {
		key := strings.ToLower(name)
		normalized[key] = append(normalized[key], values...)
	}
	return normalized
}

// extractCookies pulls cookie name/value pairs out of Cookie and
// Set-Cookie headers. Header keys are already lowercased.
func extractCookies(headers map[string][]string) map[string]string {
	cookies := map[string]string{}

	for _, header := range headers["cookie"] {
		for _, pair := range strings.Split(header, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || name == "" {
				continue
			}
			cookies[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
		}
	}

	for _, header := range headers["set-cookie"] {
		pair, _, _ := strings.Cut(header, ";")
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			continue
		}
		cookies[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	return cookies
}

// extractMetaTags handles both attribute orders of <meta name content>.
func extractMetaTags(body []byte) map[string]string {
	meta := map[string]string{}
	for _, match := range metaTagRegex.FindAllSubmatch(body, -1) {
		var name, content string
		switch {
		case len(match[1]) > 0:
			name, content = string(match[1]), string(match[2])
		case len(match[4]) > 0:
			name, content = string(match[4]), string(match[3])
		default:
			continue
		}
		meta[strings.ToLower(name)] = content
	}
	return meta
}

// extractScripts returns script source URLs and inline script bodies in
// document order.
func extractScripts(body []byte) (sources, inline []string) {
	for _, match := range scriptRegex.FindAllSubmatch(body, -1) {
		if len(match[1]) > 0 {
			sources = append(sources, string(match[1]))
		} else if content := strings.TrimSpace(string(match[2])); content != "" {
			inline = append(inline, content)
		}
	}
	return sources, inline
}
