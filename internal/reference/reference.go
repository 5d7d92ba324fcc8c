// Package reference defines the core domain types for bibliographic records.
package reference

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reference represents one scholarly work: a journal article, a conference
// paper, a patent, and so on.
type Reference struct {
	// Identity
	ID  string `json:"id"`            // Citation key
	DOI string `json:"doi,omitempty"` // Digital Object Identifier (primary deduplication key)

	Type EntryType `json:"type"`

	// Metadata
	Title   string   `json:"title"`
	Authors []Author `json:"authors,omitempty"`
	Venue   string   `json:"venue,omitempty"` // Journal, proceedings, or publisher

	// Publication date. Year is 0 when unknown.
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"` // 1-12, 0 if unknown

	// Fields holds everything else (volume, pages, number, note, ...),
	// keyed by lowercase BibTeX field name.
	Fields map[string]string `json:"fields,omitempty"`

	// Import Tracking
	Source ImportSource `json:"source"`
}

// ImportSource tracks where a reference was harvested from.
type ImportSource struct {
	Type string `json:"type"` // orcid, crossref, scopus, patents, pdf, bibtex
	ID   string `json:"id"`   // Original ID in the source system (put-code, EID, patent number)
}

// Field returns an additional field value, or "" if unset.
func (r Reference) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[strings.ToLower(name)]
}

// SetField sets an additional field. Empty values remove the field.
func (r *Reference) SetField(name, value string) {
	name = strings.ToLower(name)
	if value == "" {
		delete(r.Fields, name)
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[name] = value
}

// FirstAuthorSurname returns the last name of the first author, or "".
func (r Reference) FirstAuthorSurname() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0].Last
}

// NormalizeTitle returns the title deduplication key: lowercase, accents
// folded, with every character that is not a letter or digit removed. A
// LaTeX-accented "Stabilit{\"a}t" and a Unicode "Stabilität" share a key.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(Fold(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Fold strips combining marks: "Müller" -> "Muller".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeDOI normalizes a DOI for comparison.
// Removes resolver prefixes like "https://doi.org/" and lowercases.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range []string{
		"https://doi.org/",
		"http://doi.org/",
		"https://dx.doi.org/",
		"http://dx.doi.org/",
		"doi.org/",
		"doi:",
	} {
		if strings.HasPrefix(lower, prefix) {
			lower = lower[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(lower)
}
