package patents

// query is a PatentsView search request body.
type query struct {
	Q map[string]string `json:"q"`
	F []string          `json:"f"`
}

var patentFields = []string{
	"patent_id",
	"patent_title",
	"patent_date",
	"inventors.inventor_name_first",
	"inventors.inventor_name_last",
	"assignees.assignee_organization",
}

var publicationFields = []string{
	"publication_number",
	"publication_title",
	"publication_date",
	"application_number",
	"inventors.inventor_name_first",
	"inventors.inventor_name_last",
	"assignees.assignee_organization",
}

type inventor struct {
	First string `json:"inventor_name_first"`
	Last  string `json:"inventor_name_last"`
}

type assignee struct {
	Organization string `json:"assignee_organization"`
}

// record holds either a granted patent or a pre-grant publication.
type record struct {
	PatentID          string     `json:"patent_id"`
	PatentTitle       string     `json:"patent_title"`
	PatentDate        string     `json:"patent_date"`
	PublicationNumber string     `json:"publication_number"`
	PublicationTitle  string     `json:"publication_title"`
	PublicationDate   string     `json:"publication_date"`
	ApplicationNumber string     `json:"application_number"`
	Inventors         []inventor `json:"inventors"`
	Assignees         []assignee `json:"assignees"`
}

func (r record) number() string {
	if r.PatentID != "" {
		return r.PatentID
	}
	return r.PublicationNumber
}

func (r record) title() string {
	if r.PatentTitle != "" {
		return r.PatentTitle
	}
	return r.PublicationTitle
}

func (r record) date() string {
	if r.PatentDate != "" {
		return r.PatentDate
	}
	return r.PublicationDate
}

type response struct {
	Error        bool     `json:"error"`
	Count        int      `json:"count"`
	Patents      []record `json:"patents"`
	Publications []record `json:"publications"`
}
