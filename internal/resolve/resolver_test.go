package resolve

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webinspectra/go-webinspectra/internal/models"
	"github.com/webinspectra/go-webinspectra/internal/signatures"
)

func mustStore(t *testing.T, doc string) *signatures.Store {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	store, err := signatures.FromJSON([]byte(doc), nil, log)
	require.NoError(t, err)
	return store
}

func TestResolveAggregatesConfidence(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "p1", Confidence: 60},
		{Technology: "A", Category: "headers", Key: "server", Pattern: "p2", Confidence: 30},
	}

	report := Resolve(hits, store)
	require.Equal(t, 1, report.Count)
	det := report.Technologies["A"]
	require.NotNil(t, det)
	assert.Equal(t, 90, det.Confidence)
	assert.Equal(t, map[string]int{
		"html p1":          60,
		"headers server p2": 30,
	}, det.Breakdown)
}

func TestResolveConfidenceClampedAt100(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "p1", Confidence: 80},
		{Technology: "A", Category: "css", Pattern: "p2", Confidence: 80},
	}

	report := Resolve(hits, store)
	assert.Equal(t, 100, report.Technologies["A"].Confidence)
}

func TestResolveRepeatedHitCountsOnce(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	hit := models.Hit{Technology: "A", Category: "scriptSrc", Pattern: "p", Confidence: 40}
	hits := []models.Hit{hit, hit, hit}

	report := Resolve(hits, store)
	assert.Equal(t, 40, report.Technologies["A"].Confidence)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := mustStore(t, `{"A": {"implies": "B"}, "B": {}}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "p", Confidence: 75, Version: "2.0"},
	}

	first := Resolve(hits, store)
	second := Resolve(hits, store)
	assert.Equal(t, first.Technologies, second.Technologies)
	assert.Equal(t, first.Count, second.Count)
}

func TestResolveVersionsFirstSeenDeduplicated(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "p1", Confidence: 50, Version: "1.0"},
		{Technology: "A", Category: "html", Pattern: "p2", Confidence: 50, Version: "2.0"},
		{Technology: "A", Category: "meta", Key: "generator", Pattern: "p3", Confidence: 50, Version: "1.0"},
	}

	report := Resolve(hits, store)
	assert.Equal(t, []string{"1.0", "2.0"}, report.Technologies["A"].Versions)
}

func TestResolveZeroConfidenceDropped(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "p", Confidence: 0},
	}

	report := Resolve(hits, store)
	assert.Equal(t, 0, report.Count)
	assert.Empty(t, report.Technologies)
}

func TestResolveUnknownTechnologyIgnored(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	hits := []models.Hit{
		{Technology: "Ghost", Category: "html", Pattern: "p", Confidence: 100},
	}

	report := Resolve(hits, store)
	assert.Equal(t, 0, report.Count)
}

func TestResolveImpliesInheritsConfidence(t *testing.T) {
	store := mustStore(t, `{
		"WordPress": {"implies": ["PHP", "MySQL\\;confidence:50"]},
		"PHP": {},
		"MySQL": {}
	}`)
	hits := []models.Hit{
		{Technology: "WordPress", Category: "meta", Key: "generator", Pattern: "p", Confidence: 80},
	}

	report := Resolve(hits, store)
	require.Equal(t, 3, report.Count)

	php := report.Technologies["PHP"]
	require.NotNil(t, php)
	assert.True(t, php.Implied)
	assert.Equal(t, 80, php.Confidence)
	assert.Equal(t, map[string]int{"implies WordPress": 80}, php.Breakdown)

	mysql := report.Technologies["MySQL"]
	require.NotNil(t, mysql)
	assert.Equal(t, 50, mysql.Confidence)
}

func TestResolveImpliesChainsToFixedPoint(t *testing.T) {
	store := mustStore(t, `{
		"A": {"implies": "B"},
		"B": {"implies": "C"},
		"C": {"implies": "A"}
	}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "p", Confidence: 100},
	}

	report := Resolve(hits, store)
	require.Equal(t, 3, report.Count)
	assert.False(t, report.Technologies["A"].Implied)
	assert.True(t, report.Technologies["B"].Implied)
	assert.True(t, report.Technologies["C"].Implied)
}

func TestResolveImpliesDoesNotOverrideDirect(t *testing.T) {
	store := mustStore(t, `{"A": {"implies": "B"}, "B": {}}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "pa", Confidence: 100},
		{Technology: "B", Category: "html", Pattern: "pb", Confidence: 30},
	}

	report := Resolve(hits, store)
	b := report.Technologies["B"]
	assert.False(t, b.Implied)
	assert.Equal(t, 30, b.Confidence)
}

func TestResolveExcludesWeaker(t *testing.T) {
	store := mustStore(t, `{
		"Apache": {"excludes": "Nginx"},
		"Nginx": {}
	}`)
	hits := []models.Hit{
		{Technology: "Apache", Category: "headers", Key: "server", Pattern: "pa", Confidence: 100},
		{Technology: "Nginx", Category: "html", Pattern: "pn", Confidence: 40},
	}

	report := Resolve(hits, store)
	assert.Equal(t, 1, report.Count)
	assert.Contains(t, report.Technologies, "Apache")
	assert.NotContains(t, report.Technologies, "Nginx")
}

func TestResolveExcludesKeepsEqualDirect(t *testing.T) {
	store := mustStore(t, `{
		"A": {"excludes": "B"},
		"B": {}
	}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "pa", Confidence: 70},
		{Technology: "B", Category: "html", Pattern: "pb", Confidence: 70},
	}

	// Equal strength and both direct: no removal.
	report := Resolve(hits, store)
	assert.Equal(t, 2, report.Count)
}

func TestResolveExcludesTieBreakDirectOverImplied(t *testing.T) {
	store := mustStore(t, `{
		"A": {"excludes": "B"},
		"B": {},
		"C": {"implies": "B"}
	}`)
	hits := []models.Hit{
		{Technology: "A", Category: "html", Pattern: "pa", Confidence: 100},
		{Technology: "C", Category: "html", Pattern: "pc", Confidence: 100},
	}

	// B arrives implied at 100, A is direct at 100: A wins the tie.
	report := Resolve(hits, store)
	assert.NotContains(t, report.Technologies, "B")
	assert.Contains(t, report.Technologies, "A")
	assert.Contains(t, report.Technologies, "C")
}

func TestResolveRequiresAdvisory(t *testing.T) {
	store := mustStore(t, `{
		"WooCommerce": {"requires": "WordPress"},
		"WordPress": {}
	}`)
	hits := []models.Hit{
		{Technology: "WooCommerce", Category: "scriptSrc", Pattern: "p", Confidence: 100},
	}

	report := Resolve(hits, store)
	require.Equal(t, 1, report.Count)
	det := report.Technologies["WooCommerce"]
	assert.Equal(t, []string{"WordPress"}, det.MissingRequires)
	assert.Equal(t, 100, det.Confidence)
}

func TestResolveRequiresSatisfied(t *testing.T) {
	store := mustStore(t, `{
		"WooCommerce": {"requires": "WordPress"},
		"WordPress": {}
	}`)
	hits := []models.Hit{
		{Technology: "WooCommerce", Category: "scriptSrc", Pattern: "p", Confidence: 100},
		{Technology: "WordPress", Category: "meta", Key: "generator", Pattern: "p", Confidence: 100},
	}

	report := Resolve(hits, store)
	assert.Empty(t, report.Technologies["WooCommerce"].MissingRequires)
}

func TestResolveEmptyHits(t *testing.T) {
	store := mustStore(t, `{"A": {}}`)
	report := Resolve(nil, store)
	assert.Equal(t, 0, report.Count)
	assert.Empty(t, report.Technologies)
}

func TestByCategory(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	store, err := signatures.FromJSON([]byte(`{
		"Bootstrap": {"cats": [59, 66]},
		"WordPress": {"cats": [1]}
	}`), []byte(`{
		"1": {"name": "CMS", "priority": 1},
		"59": {"name": "JavaScript libraries", "priority": 8},
		"66": {"name": "UI frameworks", "priority": 8}
	}`), log)
	require.NoError(t, err)

	hits := []models.Hit{
		{Technology: "Bootstrap", Category: "scriptSrc", Pattern: "p", Confidence: 100},
		{Technology: "WordPress", Category: "html", Pattern: "p", Confidence: 100},
	}
	report := Resolve(hits, store)

	groups := ByCategory(report, store)
	require.Len(t, groups, 3)
	assert.Equal(t, "CMS", groups[0].Name)
	assert.Equal(t, 59, groups[1].ID)
	assert.Equal(t, 66, groups[2].ID)
	// Bootstrap appears under both of its categories.
	require.Len(t, groups[1].Technologies, 1)
	require.Len(t, groups[2].Technologies, 1)
	assert.Equal(t, "Bootstrap", groups[1].Technologies[0].Name)
}
