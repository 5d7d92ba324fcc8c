package merge

import (
	"strings"

	"github.com/makecv/makecv/internal/reference"
)

// workTypes maps source work-type vocabularies onto entry types. Keys are
// lowercase with underscores replaced by hyphens.
var workTypes = map[string]reference.EntryType{
	// ORCID and Crossref
	"journal-article":     reference.TypeArticle,
	"magazine-article":    reference.TypeArticle,
	"newspaper-article":   reference.TypeArticle,
	"review":              reference.TypeArticle,
	"conference-paper":    reference.TypeInProceedings,
	"conference-abstract": reference.TypeInProceedings,
	"conference-poster":   reference.TypeInProceedings,
	"proceedings-article": reference.TypeInProceedings,
	"book":                reference.TypeBook,
	"edited-book":         reference.TypeBook,
	"monograph":           reference.TypeBook,
	"reference-book":      reference.TypeBook,
	"book-chapter":        reference.TypeInCollection,
	"book-section":        reference.TypeInCollection,
	"book-part":           reference.TypeInCollection,
	"reference-entry":     reference.TypeInCollection,
	"report":              reference.TypeTechReport,
	"working-paper":       reference.TypeTechReport,
	"dissertation":        reference.TypeThesis,
	"dissertation-thesis": reference.TypeThesis,

	// Scopus subtypes and aggregation types
	"ar":                    reference.TypeArticle,
	"re":                    reference.TypeArticle,
	"le":                    reference.TypeArticle,
	"no":                    reference.TypeArticle,
	"ed":                    reference.TypeArticle,
	"sh":                    reference.TypeArticle,
	"cp":                    reference.TypeInProceedings,
	"ch":                    reference.TypeInCollection,
	"bk":                    reference.TypeBook,
	"journal":               reference.TypeArticle,
	"conference-proceeding": reference.TypeInProceedings,
	"book-series":           reference.TypeInCollection,
	"trade-journal":         reference.TypeArticle,

	// Semantic Scholar publication types
	"journalarticle":     reference.TypeArticle,
	"lettersandcomments": reference.TypeArticle,
	"editorial":          reference.TypeArticle,
	"casereport":         reference.TypeArticle,
	"metaanalysis":       reference.TypeArticle,
	"conference":         reference.TypeInProceedings,
	"booksection":        reference.TypeInCollection,

	// PatentsView
	"patent":             reference.TypePatent,
	"patent-application": reference.TypePatent,

	// BibTeX names map to themselves.
	"article":       reference.TypeArticle,
	"inproceedings": reference.TypeInProceedings,
	"incollection":  reference.TypeInCollection,
	"techreport":    reference.TypeTechReport,
	"thesis":        reference.TypeThesis,
	"phdthesis":     reference.TypeThesis,
	"misc":          reference.TypeMisc,
}

// MapWorkType maps a source's work type to an entry type. Anything not in
// the table is TypeMisc.
func MapWorkType(workType string) reference.EntryType {
	key := strings.ToLower(strings.TrimSpace(workType))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	if t, ok := workTypes[key]; ok {
		return t
	}
	return reference.TypeMisc
}
