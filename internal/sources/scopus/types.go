package scopus

// searchResponse is the top-level Scopus Search API response.
type searchResponse struct {
	SearchResults searchResults `json:"search-results"`
}

type searchResults struct {
	TotalResults string  `json:"opensearch:totalResults"`
	StartIndex   string  `json:"opensearch:startIndex"`
	ItemsPerPage string  `json:"opensearch:itemsPerPage"`
	Entries      []entry `json:"entry"`
}

// entry is a single document in the search results.
type entry struct {
	EID             string       `json:"eid"` // "2-s2.0-85012345678"
	DOI             string       `json:"prism:doi"`
	Title           string       `json:"dc:title"`
	Creator         string       `json:"dc:creator"` // first author only in STANDARD view
	PublicationName string       `json:"prism:publicationName"`
	Volume          string       `json:"prism:volume"`
	IssueID         string       `json:"prism:issueIdentifier"`
	PageRange       string       `json:"prism:pageRange"`
	ArticleNumber   string       `json:"article-number"`
	CoverDate       string       `json:"prism:coverDate"` // "2024-01-15"
	Aggregation     string       `json:"prism:aggregationType"`
	SubType         string       `json:"subtype"` // ar, cp, re, ch, bk, ...
	Authors         []authorInfo `json:"author"`  // COMPLETE view only
	Error           string       `json:"error"`   // set on the single entry of an empty result
}

type authorInfo struct {
	AuthID    string `json:"authid"`
	Name      string `json:"authname"` // "Surname I."
	GivenName string `json:"given-name"`
	Surname   string `json:"surname"`
	ORCID     string `json:"orcid"`
}
