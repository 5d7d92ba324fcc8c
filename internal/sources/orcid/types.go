package orcid

// Response types for the ORCID public API v3.0. Only the fields the
// harvester reads are modelled.

type stringValue struct {
	Value string `json:"value"`
}

type workTitle struct {
	Title *stringValue `json:"title"`
}

type publicationDate struct {
	Year  *stringValue `json:"year"`
	Month *stringValue `json:"month"`
}

type externalID struct {
	Type  string `json:"external-id-type"`
	Value string `json:"external-id-value"`
	// Relationship is "self" for the work's own identifier.
	Relationship string `json:"external-id-relationship"`
}

type externalIDs struct {
	ExternalID []externalID `json:"external-id"`
}

// workSummary is one entry of GET /{orcid}/works.
type workSummary struct {
	PutCode         int              `json:"put-code"`
	Title           *workTitle       `json:"title"`
	Type            string           `json:"type"`
	PublicationDate *publicationDate `json:"publication-date"`
	JournalTitle    *stringValue     `json:"journal-title"`
	ExternalIDs     *externalIDs     `json:"external-ids"`
}

type workGroup struct {
	// WorkSummary holds duplicate versions of one work; the first is the
	// owner's preferred version.
	WorkSummary []workSummary `json:"work-summary"`
}

// worksResponse is the body of GET /{orcid}/works.
type worksResponse struct {
	Group []workGroup `json:"group"`
}

type citation struct {
	Type  string `json:"citation-type"`
	Value string `json:"citation-value"`
}

type contributor struct {
	CreditName *stringValue `json:"credit-name"`
	ORCID      *struct {
		Path string `json:"path"`
	} `json:"contributor-orcid"`
	Attributes *struct {
		Sequence string `json:"contributor-sequence"`
		Role     string `json:"contributor-role"`
	} `json:"contributor-attributes"`
}

type contributors struct {
	Contributor []contributor `json:"contributor"`
}

// work is the body of GET /{orcid}/work/{put-code}.
type work struct {
	PutCode         int              `json:"put-code"`
	Title           *workTitle       `json:"title"`
	JournalTitle    *stringValue     `json:"journal-title"`
	Citation        *citation        `json:"citation"`
	Type            string           `json:"type"`
	PublicationDate *publicationDate `json:"publication-date"`
	ExternalIDs     *externalIDs     `json:"external-ids"`
	Contributors    *contributors    `json:"contributors"`
}
