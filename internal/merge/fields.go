package merge

import (
	"fmt"
	"strings"

	"github.com/makecv/makecv/internal/reference"
)

// FieldConflict records a field where the two sources disagreed. The
// preferred value was used.
type FieldConflict struct {
	FieldName string
	Preferred string
	Fallback  string
}

func (c FieldConflict) String() string {
	return fmt.Sprintf("%s: using %q over %q", c.FieldName, truncate(c.Preferred, 50), truncate(c.Fallback, 50))
}

// MergeReferences combines two records field by field. Values from
// preferred win; fallback fills whatever preferred lacks. Source tracking
// and the citation key come from fallback, which is the harvested record.
func MergeReferences(preferred, fallback reference.Reference) (reference.Reference, []FieldConflict) {
	merged := reference.Reference{
		ID:     fallback.ID,
		Source: fallback.Source,
		Type:   fallback.Type,
	}
	var conflicts []FieldConflict

	mergeField := func(fieldName, pref, fb string, target *string, same func(a, b string) bool) {
		val, conflict := mergeString(fieldName, pref, fb, same)
		*target = val
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
	}

	sameTitle := func(a, b string) bool { return reference.NormalizeTitle(a) == reference.NormalizeTitle(b) }
	sameDOI := func(a, b string) bool { return reference.NormalizeDOI(a) == reference.NormalizeDOI(b) }

	mergeField("title", preferred.Title, fallback.Title, &merged.Title, sameTitle)
	mergeField("venue", preferred.Venue, fallback.Venue, &merged.Venue, sameTitle)
	mergeField("doi", preferred.DOI, fallback.DOI, &merged.DOI, sameDOI)

	merged.Authors = mergeAuthors(preferred.Authors, fallback.Authors)

	merged.Year = mergeInt(preferred.Year, fallback.Year)
	if merged.Year == preferred.Year && preferred.Month > 0 {
		merged.Month = preferred.Month
	} else if merged.Year == fallback.Year {
		merged.Month = fallback.Month
	}
	if preferred.Year > 0 && fallback.Year > 0 && preferred.Year != fallback.Year {
		conflicts = append(conflicts, FieldConflict{
			FieldName: "year",
			Preferred: fmt.Sprint(preferred.Year),
			Fallback:  fmt.Sprint(fallback.Year),
		})
	}

	for name, v := range fallback.Fields {
		merged.SetField(name, v)
	}
	for name, v := range preferred.Fields {
		merged.SetField(name, v)
	}

	return merged, conflicts
}

// mergeString returns preferred unless it is empty, reporting a conflict
// when both are set and differ.
func mergeString(fieldName, preferred, fallback string, same func(a, b string) bool) (string, *FieldConflict) {
	if preferred == "" {
		return fallback, nil
	}
	if fallback == "" || same(preferred, fallback) {
		return preferred, nil
	}
	return preferred, &FieldConflict{
		FieldName: fieldName,
		Preferred: preferred,
		Fallback:  fallback,
	}
}

// mergeAuthors prefers the preferred list but carries over ORCID iDs the
// fallback list knows for the same names.
func mergeAuthors(preferred, fallback []reference.Author) []reference.Author {
	if len(preferred) == 0 {
		return fallback
	}
	merged := make([]reference.Author, len(preferred))
	copy(merged, preferred)

	orcids := make(map[string]string)
	for _, a := range fallback {
		if a.ORCID != "" {
			orcids[strings.ToLower(a.Last)] = a.ORCID
		}
	}
	for i := range merged {
		if merged[i].ORCID == "" {
			merged[i].ORCID = orcids[strings.ToLower(merged[i].Last)]
		}
	}
	return merged
}

func mergeInt(preferred, fallback int) int {
	if preferred != 0 {
		return preferred
	}
	return fallback
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
