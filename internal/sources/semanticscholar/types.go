package semanticscholar

// paper is one entry in an author's paper list.
type paper struct {
	PaperID          string      `json:"paperId"`
	ExternalIDs      externalIDs `json:"externalIds"`
	Title            string      `json:"title"`
	Venue            string      `json:"venue"`
	Year             int         `json:"year"`
	PubDate          string      `json:"publicationDate"` // YYYY-MM-DD
	PublicationTypes []string    `json:"publicationTypes"`
	Journal          *journal    `json:"journal"`
	Authors          []author    `json:"authors"`
}

type externalIDs struct {
	DOI   string `json:"DOI,omitempty"`
	ArXiv string `json:"ArXiv,omitempty"`
}

type journal struct {
	Name   string `json:"name"`
	Volume string `json:"volume"`
	Pages  string `json:"pages"`
}

type author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// papersResponse is one page of /author/{id}/papers. Next is absent on
// the last page.
type papersResponse struct {
	Offset int     `json:"offset"`
	Next   *int    `json:"next"`
	Data   []paper `json:"data"`
}
