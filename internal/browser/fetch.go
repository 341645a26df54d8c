package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// maxScriptBytes caps a single downloaded script body.
	maxScriptBytes = 512 << 10

	// scriptChunkSize splits long script bodies into chunks so a
	// pathological regex never scans megabytes in one evaluation.
	scriptChunkSize = 3000
)

var fetchClient = &http.Client{Timeout: 10 * time.Second}

// fetchScripts downloads external script bodies and splits them into
// chunks. Failures skip the script; script matching is best effort.
func (c *Collector) fetchScripts(ctx context.Context, pageURL string, sources []string) []string {
	var chunks []string
	for _, src := range sources {
		resolved := resolveRef(pageURL, src)
		if resolved == "" {
			continue
		}
		body, err := c.fetch(ctx, resolved, maxScriptBytes)
		if err != nil {
			c.log.WithField("script", resolved).Debugf("script fetch failed: %v", err)
			continue
		}
		chunks = append(chunks, chunkString(body, scriptChunkSize)...)
	}
	return chunks
}

// fetchRobots retrieves /robots.txt for the page's origin, empty on any
// failure.
func (c *Collector) fetchRobots(ctx context.Context, pageURL string) string {
	target := resolveRef(pageURL, "/robots.txt")
	if target == "" {
		return ""
	}
	body, err := c.fetch(ctx, target, 64<<10)
	if err != nil {
		c.log.WithField("url", target).Debugf("robots.txt fetch failed: %v", err)
		return ""
	}
	return body
}

func (c *Collector) fetch(ctx context.Context, target string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	resp, err := fetchClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// resolveRef resolves a possibly relative reference against the page URL.
func resolveRef(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// chunkString splits s into size-bounded chunks.
func chunkString(s string, size int) []string {
	if len(s) <= size {
		return []string{s}
	}
	chunks := make([]string, 0, len(s)/size+1)
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[start:end])
	}
	return chunks
}
