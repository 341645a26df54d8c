package signatures

import (
	"errors"
	"io"
	"testing"
	"testing/fstest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestFromJSON(t *testing.T) {
	store, err := FromJSON([]byte(`{
		"WordPress": {
			"cats": [1],
			"meta": {"generator": "^WordPress(?: (\\d+(?:\\.\\d+)+))?\\;version:\\1"},
			"implies": ["PHP", "MySQL\\;confidence:50"]
		},
		"PHP": {"cats": [27]},
		"MySQL": {"cats": [34]}
	}`), []byte(`{
		"1": {"name": "CMS", "priority": 1},
		"27": {"name": "Programming languages", "priority": 5},
		"34": {"name": "Databases", "priority": 6}
	}`), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, []string{"MySQL", "PHP", "WordPress"}, store.Names())

	wp := store.ByName("WordPress")
	require.NotNil(t, wp)
	require.Len(t, wp.Implies, 2)
	assert.Equal(t, models.Relationship{Name: "PHP"}, wp.Implies[0])
	assert.Equal(t, models.Relationship{Name: "MySQL", Confidence: 50}, wp.Implies[1])
	require.Contains(t, wp.Meta, "generator")
	assert.Equal(t, `\1`, wp.Meta["generator"][0].Version)

	assert.Equal(t, "CMS", store.Categories()[1].Name)
	assert.Equal(t, []string{"CMS"}, store.CategoryNames([]int{1, 999}))
}

func TestFromJSONInvalidRegex(t *testing.T) {
	_, err := FromJSON([]byte(`{"Broken": {"html": "("}}`), nil, quietLogger())
	require.Error(t, err)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "Broken", formatErr.Technology)
	assert.Equal(t, "html", formatErr.Field)
}

func TestUnknownRelationshipDropped(t *testing.T) {
	store, err := FromJSON([]byte(`{
		"A": {"html": "aaa", "implies": "Nonexistent", "excludes": "AlsoMissing"}
	}`), nil, quietLogger())
	require.NoError(t, err)

	a := store.ByName("A")
	assert.Empty(t, a.Implies)
	assert.Empty(t, a.Excludes)
}

func TestLoadMergesFilesLexically(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": {Data: []byte(`{"Tech": {"html": "from-a"}, "OnlyA": {"html": "xa"}}`)},
		"b.yaml": {Data: []byte("Tech:\n  html: from-b\nOnlyB:\n  html: xb\n")},
		"categories.json": {Data: []byte(`{"1": {"name": "CMS", "priority": 1}}`)},
		"README.md":       {Data: []byte("not a database file")},
	}

	store, err := Load(fsys, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"OnlyA", "OnlyB", "Tech"}, store.Names())
	// b.yaml sorts after a.json, its definition wins.
	assert.Equal(t, "from-b", store.ByName("Tech").HTML[0].Expression)
	assert.Equal(t, "CMS", store.Categories()[1].Name)
}

func TestLoadNoSignatureFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"categories.json": {Data: []byte(`{}`)},
	}
	_, err := Load(fsys, quietLogger())
	require.Error(t, err)

	var formatErr *FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestLoadBadCategoryID(t *testing.T) {
	fsys := fstest.MapFS{
		"sigs.json":       {Data: []byte(`{"A": {"html": "x"}}`)},
		"categories.json": {Data: []byte(`{"cms": {"name": "CMS"}}`)},
	}
	_, err := Load(fsys, quietLogger())
	require.Error(t, err)
}

func TestDefaultEmbeddedDatabase(t *testing.T) {
	store, err := Default(quietLogger())
	require.NoError(t, err)

	assert.Greater(t, store.Len(), 0)
	require.NotNil(t, store.ByName("WordPress"))
	assert.NotEmpty(t, store.Categories())
}

func TestSignalNeeds(t *testing.T) {
	store, err := FromJSON([]byte(`{
		"A": {"js": {"jQuery.fn.jquery": "", "React": ""}},
		"B": {"js": {"jQuery.fn.jquery": "^3"}, "dom": "#carbonads"},
		"C": {"dom": {"link[href*='font-awesome']": {"attributes": {"href": ""}}}}
	}`), nil, quietLogger())
	require.NoError(t, err)

	needs := store.SignalNeeds()
	assert.Equal(t, []string{"React", "jQuery.fn.jquery"}, needs.JSPaths)
	assert.Equal(t, []string{"#carbonads", "link[href*='font-awesome']"}, needs.DOMSelectors)
}
