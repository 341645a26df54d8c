// Package signatures loads, validates and indexes the technology
// signature database. A Store is built once and is read-only afterwards,
// so any number of concurrent inspections may share it.
package signatures

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/webinspectra/go-webinspectra/internal/models"
)

// Store is the in-memory signature index.
type Store struct {
	techs      map[string]*models.Technology
	names      []string
	categories map[int]models.Category
	log        *logrus.Logger
}

// New compiles raw signatures into a Store. Structural problems (invalid
// regex, unnamed entry) fail the load with a FormatError; relationships
// pointing at unknown technologies are logged and dropped.
func New(raw map[string]models.Signature, categories map[int]models.Category, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	store := &Store{
		techs:      make(map[string]*models.Technology, len(raw)),
		categories: categories,
		log:        log,
	}
	if store.categories == nil {
		store.categories = map[int]models.Category{}
	}

	for name, sig := range raw {
		if sig.Name != "" {
			name = sig.Name
		}
		if name == "" {
			return nil, &FormatError{Err: fmt.Errorf("signature without a name")}
		}
		tech, err := compile(name, sig)
		if err != nil {
			return nil, err
		}
		store.techs[name] = tech
		store.names = append(store.names, name)
	}
	sort.Strings(store.names)

	store.pruneUnknownRelationships()
	return store, nil
}

// compile turns one raw signature into its pattern-compiled form.
func compile(name string, sig models.Signature) (*models.Technology, error) {
	tech := &models.Technology{
		Name:        name,
		Cats:        sig.Cats,
		Description: sig.Description,
		Website:     sig.Website,
		CPE:         sig.CPE,
		Icon:        sig.Icon,
		Pricing:     sig.Pricing,
		OSS:         sig.OSS,
		SaaS:        sig.SaaS,
		Implies:     parseRelationships(sig.Implies),
		Excludes:    parseRelationships(sig.Excludes),
		Requires:    parseRelationships(sig.Requires),
	}

	fields := []struct {
		name string
		dst  *[]*models.Pattern
		src  models.StringList
	}{
		{"html", &tech.HTML, sig.HTML},
		{"scripts", &tech.Scripts, sig.Scripts},
		{"scriptSrc", &tech.ScriptSrc, sig.ScriptSrc},
		{"css", &tech.CSS, sig.CSS},
		{"url", &tech.URL, sig.URL},
		{"xhr", &tech.XHR, sig.XHR},
		{"robots", &tech.Robots, sig.Robots},
	}
	for _, f := range fields {
		patterns, err := parsePatternList(f.src)
		if err != nil {
			return nil, &FormatError{Technology: name, Field: f.name, Err: err}
		}
		*f.dst = patterns
	}

	keyed := []struct {
		name     string
		dst      *map[string][]*models.Pattern
		src      map[string]models.StringList
		keepCase bool
	}{
		{"headers", &tech.Headers, sig.Headers, false},
		{"cookies", &tech.Cookies, sig.Cookies, false},
		{"meta", &tech.Meta, sig.Meta, false},
		{"dns", &tech.DNS, sig.DNS, false},
		{"js", &tech.JS, sig.JS, true},
	}
	for _, f := range keyed {
		patterns, err := parsePatternMap(f.src, f.keepCase)
		if err != nil {
			return nil, &FormatError{Technology: name, Field: f.name, Err: err}
		}
		*f.dst = patterns
	}

	dom, err := parseDOMClauses(sig.DOM)
	if err != nil {
		return nil, &FormatError{Technology: name, Field: "dom", Err: err}
	}
	tech.DOM = dom

	return tech, nil
}

// pruneUnknownRelationships drops relationships whose target is not in
// the store. A broken reference is a database defect, not a reason to
// reject every other signature in the file.
func (s *Store) pruneUnknownRelationships() {
	for _, name := range s.names {
		tech := s.techs[name]
		tech.Implies = s.pruneRelationshipList(name, "implies", tech.Implies)
		tech.Excludes = s.pruneRelationshipList(name, "excludes", tech.Excludes)
		tech.Requires = s.pruneRelationshipList(name, "requires", tech.Requires)
	}
}

func (s *Store) pruneRelationshipList(owner, kind string, relationships []models.Relationship) []models.Relationship {
	kept := relationships[:0]
	for _, rel := range relationships {
		if _, ok := s.techs[rel.Name]; !ok {
			s.log.WithFields(logrus.Fields{
				"technology": owner,
				"target":     rel.Name,
			}).Warnf("dropping %s relationship to unknown technology", kind)
			continue
		}
		kept = append(kept, rel)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Names returns every technology name in sorted order.
func (s *Store) Names() []string { return s.names }

// Len returns the number of technologies in the store.
func (s *Store) Len() int { return len(s.names) }

// ByName returns the technology with the given name, or nil.
func (s *Store) ByName(name string) *models.Technology { return s.techs[name] }

// Categories returns the category id to metadata mapping.
func (s *Store) Categories() map[int]models.Category { return s.categories }

// CategoryNames resolves category ids to names, skipping unknown ids.
func (s *Store) CategoryNames(ids []int) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if cat, ok := s.categories[id]; ok {
			names = append(names, cat.Name)
		}
	}
	return names
}

// SignalNeeds reports which JS paths and DOM selectors any signature in
// the store references, so a collector only evaluates those.
func (s *Store) SignalNeeds() models.SignalNeeds {
	jsSeen := map[string]struct{}{}
	domSeen := map[string]struct{}{}
	var needs models.SignalNeeds
	for _, name := range s.names {
		tech := s.techs[name]
		for path := range tech.JS {
			if _, ok := jsSeen[path]; !ok {
				jsSeen[path] = struct{}{}
				needs.JSPaths = append(needs.JSPaths, path)
			}
		}
		for _, dom := range tech.DOM {
			selector := dom.Selector.Expression
			if _, ok := domSeen[selector]; !ok {
				domSeen[selector] = struct{}{}
				needs.DOMSelectors = append(needs.DOMSelectors, selector)
			}
		}
	}
	sort.Strings(needs.JSPaths)
	sort.Strings(needs.DOMSelectors)
	return needs
}

func sortStrings(values []string) { sort.Strings(values) }
