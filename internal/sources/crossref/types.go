package crossref

import (
	"strings"

	"github.com/makecv/makecv/internal/reference"
)

// Author is a contributor in a Crossref work.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"` // organisational authors
	ORCID  string `json:"ORCID"`
}

// DateParts is Crossref's partial date: [[year, month, day]].
type DateParts struct {
	Parts [][]int `json:"date-parts"`
}

// YearMonth returns the year and month, 0 where absent.
func (d *DateParts) YearMonth() (int, int) {
	if d == nil || len(d.Parts) == 0 || len(d.Parts[0]) == 0 {
		return 0, 0
	}
	p := d.Parts[0]
	if len(p) == 1 {
		return p[0], 0
	}
	return p[0], p[1]
}

// Work is a Crossref work record.
type Work struct {
	DOI             string     `json:"DOI"`
	Title           []string   `json:"title"`
	Author          []Author   `json:"author"`
	ContainerTitle  []string   `json:"container-title"`
	Type            string     `json:"type"`
	Publisher       string     `json:"publisher"`
	Volume          string     `json:"volume"`
	Issue           string     `json:"issue"`
	Page            string     `json:"page"`
	ArticleNumber   string     `json:"article-number"`
	URL             string     `json:"URL"`
	Issued          *DateParts `json:"issued"`
	PublishedPrint  *DateParts `json:"published-print"`
	PublishedOnline *DateParts `json:"published-online"`
}

type workResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

type listResponse struct {
	Status  string `json:"status"`
	Message struct {
		TotalResults int    `json:"total-results"`
		NextCursor   string `json:"next-cursor"`
		Items        []Work `json:"items"`
	} `json:"message"`
}

// ToReference converts a Crossref work to the domain type.
func (w Work) ToReference() reference.Reference {
	ref := reference.Reference{
		DOI:    reference.NormalizeDOI(w.DOI),
		Title:  first(w.Title),
		Venue:  first(w.ContainerTitle),
		Source: reference.ImportSource{Type: Name, ID: w.DOI},
	}

	ref.Year, ref.Month = w.Date()

	for _, a := range w.Author {
		switch {
		case a.Family != "":
			ref.Authors = append(ref.Authors, reference.Author{
				First: a.Given,
				Last:  a.Family,
				ORCID: orcidPath(a.ORCID),
			})
		case a.Name != "":
			ref.Authors = append(ref.Authors, reference.Author{Last: a.Name})
		}
	}

	ref.SetField("volume", w.Volume)
	ref.SetField("number", w.Issue)
	ref.SetField("pages", pages(w.Page, w.ArticleNumber))
	ref.SetField("publisher", w.Publisher)

	return ref
}

// Date prefers the print date, then online, then issued.
func (w Work) Date() (int, int) {
	for _, d := range []*DateParts{w.PublishedPrint, w.PublishedOnline, w.Issued} {
		if y, m := d.YearMonth(); y > 0 {
			return y, m
		}
	}
	return 0, 0
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(s[0]), " ")
}

// pages formats "12-19" as a BibTeX range "12--19".
func pages(page, articleNumber string) string {
	if page == "" {
		return articleNumber
	}
	if strings.Contains(page, "--") {
		return page
	}
	return strings.Replace(page, "-", "--", 1)
}

func orcidPath(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
