// Package corpus indexes an existing bibliography for duplicate detection.
package corpus

import (
	"fmt"

	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/reference"
)

// MatchKind says how a candidate matched the corpus.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchDOI
	MatchTitle
)

func (k MatchKind) String() string {
	switch k {
	case MatchDOI:
		return "doi"
	case MatchTitle:
		return "title"
	default:
		return "none"
	}
}

// Match is the result of a corpus lookup.
type Match struct {
	Kind MatchKind
	Key  string // citation key of the matching corpus entry

	// PossiblyMissingDOI is set when the candidate has a DOI that no corpus
	// entry records, yet its title matched an entry.
	PossiblyMissingDOI bool

	// Warnings are weak signals worth showing the operator: a DOI match
	// whose titles disagree, or a title match rejected by year or venue.
	Warnings []string
}

// Duplicate reports whether the candidate is already in the corpus.
func (m Match) Duplicate() bool {
	return m.Kind != MatchNone
}

type titleEntry struct {
	key   string
	year  int
	venue string
	doi   string
}

type doiEntry struct {
	key   string
	title string
}

// Index is a lookup structure over a bibliography. It is not safe for
// concurrent use.
type Index struct {
	byDOI   map[string]doiEntry
	byTitle map[string][]titleEntry
	keys    []string
}

// Build indexes the given entries.
func Build(entries []bibtex.Entry) *Index {
	idx := &Index{
		byDOI:   make(map[string]doiEntry),
		byTitle: make(map[string][]titleEntry),
	}
	for _, e := range entries {
		idx.Add(e)
	}
	return idx
}

// Add indexes one more entry. The first entry seen for a DOI keeps it.
func (idx *Index) Add(e bibtex.Entry) {
	ref := e.ToReference()
	idx.keys = append(idx.keys, e.Key)

	titleKey := reference.NormalizeTitle(ref.Title)
	doi := reference.NormalizeDOI(ref.DOI)

	if doi != "" {
		if _, exists := idx.byDOI[doi]; !exists {
			idx.byDOI[doi] = doiEntry{key: e.Key, title: titleKey}
		}
	}
	if titleKey != "" {
		idx.byTitle[titleKey] = append(idx.byTitle[titleKey], titleEntry{
			key:   e.Key,
			year:  ref.Year,
			venue: normalizeVenue(ref.Venue),
			doi:   doi,
		})
	}
}

// Load parses and indexes one or more .bib files. Missing files are
// treated as empty.
func Load(paths ...string) (*Index, error) {
	var all []bibtex.Entry
	for _, path := range paths {
		if path == "" {
			continue
		}
		entries, err := bibtex.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
		all = append(all, entries...)
	}
	return Build(all), nil
}

// Lookup checks a candidate against the corpus. A DOI match wins. Otherwise
// a normalized-title match counts when year and venue agree wherever both
// sides have a value.
func (idx *Index) Lookup(ref reference.Reference) Match {
	var m Match
	titleKey := reference.NormalizeTitle(ref.Title)
	doi := reference.NormalizeDOI(ref.DOI)

	if doi != "" {
		if hit, ok := idx.byDOI[doi]; ok {
			m.Kind = MatchDOI
			m.Key = hit.key
			if titleKey != "" && hit.title != "" && titleKey != hit.title {
				m.Warnings = append(m.Warnings, fmt.Sprintf("DOI %s matches %s but titles differ", doi, hit.key))
			}
			return m
		}
	}

	if titleKey == "" {
		return m
	}

	venue := normalizeVenue(ref.Venue)
	for _, hit := range idx.byTitle[titleKey] {
		if reason := disagreement(ref.Year, venue, hit); reason != "" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("title matches %s but %s", hit.key, reason))
			continue
		}
		m.Kind = MatchTitle
		m.Key = hit.key
		m.PossiblyMissingDOI = doi != ""
		m.Warnings = nil
		if doi != "" && hit.doi != "" {
			m.Warnings = append(m.Warnings, fmt.Sprintf("title matches %s but DOIs differ (corpus %s, candidate %s)", hit.key, hit.doi, doi))
		}
		return m
	}

	return m
}

// Contains reports whether ref duplicates a corpus entry.
func (idx *Index) Contains(ref reference.Reference) bool {
	return idx.Lookup(ref).Duplicate()
}

// Keys returns every citation key in the corpus.
func (idx *Index) Keys() []string {
	return append([]string(nil), idx.keys...)
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.keys)
}

func disagreement(year int, venue string, hit titleEntry) string {
	if year > 0 && hit.year > 0 && year != hit.year {
		return fmt.Sprintf("year %d != %d", year, hit.year)
	}
	if venue != "" && hit.venue != "" && venue != hit.venue {
		return "venue differs"
	}
	return ""
}

func normalizeVenue(v string) string {
	return reference.NormalizeTitle(v)
}
