package reference

import "strings"

// EntryType is the bibliographic classification of a work.
type EntryType string

const (
	TypeArticle       EntryType = "article"
	TypeInProceedings EntryType = "inproceedings"
	TypeBook          EntryType = "book"
	TypeInCollection  EntryType = "incollection"
	TypeTechReport    EntryType = "techreport"
	TypeThesis        EntryType = "thesis"
	TypePatent        EntryType = "patent"
	TypeMisc          EntryType = "misc"
)

// EntryTypes lists every supported entry type.
var EntryTypes = []EntryType{
	TypeArticle,
	TypeInProceedings,
	TypeBook,
	TypeInCollection,
	TypeTechReport,
	TypeThesis,
	TypePatent,
	TypeMisc,
}

// BibTeX aliases that collapse onto a supported type.
var entryTypeAliases = map[string]EntryType{
	"conference":    TypeInProceedings,
	"phdthesis":     TypeThesis,
	"mastersthesis": TypeThesis,
	"report":        TypeTechReport,
	"inbook":        TypeInCollection,
}

// ParseEntryType maps a BibTeX entry type to an EntryType.
// Anything unrecognized becomes TypeMisc.
func ParseEntryType(s string) EntryType {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range EntryTypes {
		if string(t) == s {
			return t
		}
	}
	if t, ok := entryTypeAliases[s]; ok {
		return t
	}
	return TypeMisc
}
