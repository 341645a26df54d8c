package detection

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

var (
	// validVersion is the dotted-number shape extracted versions must
	// have; anything else is dropped rather than reported.
	validVersion = regexp.MustCompile(`^\d+(\.\d+)*$`)

	// ternaryTemplates[i] matches the "\i?true:false" form in a version
	// template for capture group i+1.
	ternaryTemplates = buildTernaryTemplates()
)

func buildTernaryTemplates() []*regexp.Regexp {
	templates := make([]*regexp.Regexp, 9)
	for i := range templates {
		templates[i] = regexp.MustCompile(fmt.Sprintf(`\\%d\?([^:]*):(.*)$`, i+1))
	}
	return templates
}

// evaluate reports whether the candidate matches the pattern. A nil
// regex (empty pattern) matches anything. Regex errors, including the
// match timeout, count as no match; patterns were validated at load time
// so only a pathological candidate can trigger them.
func evaluate(pattern *models.Pattern, candidate string) bool {
	if pattern.Regex == nil {
		return true
	}
	matched, err := pattern.Regex.MatchString(candidate)
	return err == nil && matched
}

// extractVersion substitutes the pattern's capture groups into its
// version template. Templates support back references "\1".."\9" and the
// ternary form "\1?a:b" (a when group 1 captured, b otherwise). An empty
// or non-numeric result is discarded, never an error.
func extractVersion(pattern *models.Pattern, candidate string) string {
	if pattern.Version == "" || pattern.Regex == nil {
		return ""
	}
	match, err := pattern.Regex.FindStringMatch(candidate)
	if err != nil || match == nil {
		return ""
	}

	version := pattern.Version
	groups := match.Groups()
	for i := 1; i < len(groups) && i <= 9; i++ {
		captured := groups[i].String()

		if ternary := ternaryTemplates[i-1].FindStringSubmatch(version); ternary != nil {
			replacement := ternary[2]
			if captured != "" {
				replacement = ternary[1]
			}
			version = strings.Replace(version, ternary[0], replacement, 1)
		}
		version = strings.ReplaceAll(version, fmt.Sprintf(`\%d`, i), captured)
	}

	if version == "" || !validVersion.MatchString(version) {
		return ""
	}
	return version
}
