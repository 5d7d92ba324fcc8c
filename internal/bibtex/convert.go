package bibtex

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/makecv/makecv/internal/reference"
)

// Fields that map onto dedicated Reference attributes.
var coreFields = map[string]bool{
	"title":     true,
	"author":    true,
	"journal":   true,
	"booktitle": true,
	"year":      true,
	"month":     true,
	"doi":       true,
}

var monthNames = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// authorSeparator splits author lists on " and " (any case).
var authorSeparator = regexp.MustCompile(`(?i)\s+and\s+`)

var leadingYear = regexp.MustCompile(`^\s*\{?(\d{4})`)

// ToReference converts a parsed entry into the domain type.
func (e Entry) ToReference() reference.Reference {
	ref := reference.Reference{
		ID:    e.Key,
		Type:  reference.ParseEntryType(e.Type),
		Title: CleanValue(e.Get("title")),
		DOI:   strings.TrimSpace(e.Get("doi")),
		Year:  ParseYear(e),
		Month: ParseMonth(e.Get("month")),
		Source: reference.ImportSource{
			Type: "bibtex",
			ID:   e.Key,
		},
	}

	ref.Venue = CleanValue(e.Get("journal"))
	if ref.Venue == "" {
		ref.Venue = CleanValue(e.Get("booktitle"))
	}

	if authors := strings.TrimSpace(e.Get("author")); authors != "" {
		for _, name := range splitAuthors(authors) {
			a := reference.ParseName(CleanValue(name))
			if a.Last != "" {
				ref.Authors = append(ref.Authors, a)
			}
		}
	}

	for _, f := range e.Fields {
		if coreFields[f.Name] {
			continue
		}
		ref.SetField(f.Name, f.Value)
	}

	return ref
}

// FromReference builds an entry from plain-text metadata, escaping LaTeX
// special characters. Fields are written in a fixed order: author, title,
// venue, year, month, doi, then any additional fields sorted by name.
func FromReference(ref reference.Reference) Entry {
	entryType := ref.Type
	if entryType == "" {
		entryType = GuessEntryType(ref.Venue)
	}
	e := Entry{Type: string(entryType), Key: ref.ID}

	if len(ref.Authors) > 0 {
		e.Set("author", FormatAuthors(ref.Authors))
	}
	e.Set("title", EscapeLatex(ref.Title))

	if ref.Venue != "" {
		e.Set(venueField(entryType), EscapeLatex(ref.Venue))
	}
	if ref.Year > 0 {
		e.Set("year", strconv.Itoa(ref.Year))
	}
	e.SetMonth(ref.Month)
	if ref.DOI != "" {
		e.Set("doi", ref.DOI)
	}

	names := make([]string, 0, len(ref.Fields))
	for name := range ref.Fields {
		if !coreFields[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		e.Set(name, EscapeLatex(ref.Fields[name]))
	}

	return e
}

// venueField returns the BibTeX field that holds the venue for an entry type.
func venueField(t reference.EntryType) string {
	switch t {
	case reference.TypeInProceedings, reference.TypeInCollection:
		return "booktitle"
	case reference.TypeBook, reference.TypeThesis:
		return "publisher"
	case reference.TypeTechReport:
		return "institution"
	case reference.TypePatent, reference.TypeMisc:
		return "howpublished"
	default:
		return "journal"
	}
}

// GuessEntryType infers an entry type from a venue name.
func GuessEntryType(venue string) reference.EntryType {
	v := strings.ToLower(venue)

	// Conference proceedings
	if strings.Contains(v, "proceedings") ||
		strings.Contains(v, "conference") ||
		strings.Contains(v, "workshop") ||
		strings.Contains(v, "symposium") {
		return reference.TypeInProceedings
	}

	// Default to article
	return reference.TypeArticle
}

// FormatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func FormatAuthors(authors []reference.Author) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		formatted = append(formatted, EscapeLatex(a.String()))
	}
	return strings.Join(formatted, " and ")
}

// ParseYear reads the year field, falling back to the first four digits of
// a biblatex date field. Returns 0 when neither is usable.
func ParseYear(e Entry) int {
	for _, name := range []string{"year", "date"} {
		if m := leadingYear.FindStringSubmatch(e.Get(name)); m != nil {
			y, _ := strconv.Atoi(m[1])
			return y
		}
	}
	return 0
}

// ParseMonth accepts "3", "mar", "March" and returns 1-12, or 0.
func ParseMonth(s string) int {
	s = strings.ToLower(CleanValue(s))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	if len(s) >= 3 {
		for i, m := range monthNames {
			if s[:3] == m {
				return i + 1
			}
		}
	}
	return 0
}

// CleanValue strips protective braces and collapses whitespace.
func CleanValue(s string) string {
	s = strings.NewReplacer("{", "", "}", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// splitAuthors splits an author field on "and" at brace depth zero.
func splitAuthors(s string) []string {
	var names []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		default:
			if depth != 0 {
				continue
			}
			if loc := authorSeparator.FindStringIndex(s[i:]); loc != nil && loc[0] == 0 {
				names = append(names, s[last:i])
				i += loc[1] - 1
				last = i + 1
			}
		}
	}
	return append(names, s[last:])
}

// EscapeLatex escapes special LaTeX characters.
func EscapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
