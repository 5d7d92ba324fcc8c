package semanticscholar

import (
	"strconv"
	"strings"

	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

func toCandidate(p paper) sources.Candidate {
	ref := reference.Reference{
		Title:   strings.TrimSpace(p.Title),
		DOI:     p.ExternalIDs.DOI,
		Venue:   p.Venue,
		Authors: mapAuthors(p.Authors),
		Source:  reference.ImportSource{Type: Name, ID: p.PaperID},
	}
	ref.Year, ref.Month = parsePublicationDate(p.Year, p.PubDate)

	if j := p.Journal; j != nil {
		if j.Name != "" {
			ref.Venue = j.Name
		}
		ref.SetField("volume", strings.TrimSpace(j.Volume))
		ref.SetField("pages", strings.ReplaceAll(strings.TrimSpace(j.Pages), "-", "--"))
	}
	if ref.DOI == "" && p.ExternalIDs.ArXiv != "" {
		ref.SetField("eprint", p.ExternalIDs.ArXiv)
		ref.SetField("archiveprefix", "arXiv")
	}

	var workType string
	if len(p.PublicationTypes) > 0 {
		workType = p.PublicationTypes[0]
	}

	return sources.Candidate{Record: ref, WorkType: workType, Source: Name}
}

func mapAuthors(in []author) []reference.Author {
	authors := make([]reference.Author, 0, len(in))
	for _, a := range in {
		if au := reference.ParseName(a.Name); au.Last != "" {
			authors = append(authors, au)
		}
	}
	return authors
}

// parsePublicationDate prefers the full date and falls back to the year.
func parsePublicationDate(year int, date string) (int, int) {
	if date == "" {
		return year, 0
	}
	parts := strings.Split(date, "-")
	if y, err := strconv.Atoi(parts[0]); err == nil && y > 0 {
		year = y
	}
	month := 0
	if len(parts) >= 2 {
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}
