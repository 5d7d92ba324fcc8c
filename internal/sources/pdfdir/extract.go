package pdfdir

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Text is what the harvester reads from a PDF.
type Text struct {
	FirstPage string // used for the title heuristic
	Leading   string // first few pages, searched for a DOI
}

// Extractor reads text from a PDF file.
type Extractor interface {
	Extract(path string) (Text, error)
}

// PlainText extracts text with ledongthuc/pdf.
type PlainText struct {
	// MaxPages limits how many leading pages are read (default 3).
	MaxPages int
}

// Extract reads the first pages of a PDF. Pages that fail to decode are
// skipped.
func (p PlainText) Extract(path string) (Text, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Text{}, err
	}
	defer f.Close()

	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = 3
	}
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	var out Text
	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i == 1 {
			out.FirstPage = text
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	out.Leading = builder.String()

	return out, nil
}

// FindDOI returns the first plausible DOI in text, or "".
func FindDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		// Remove trailing punctuation
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// GuessTitle returns the first substantial line of a page that doesn't look
// like a running header.
func GuessTitle(page string) string {
	for _, line := range strings.Split(page, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if len(line) > 20 && !isHeaderLine(line) && FindDOI(line) == "" {
			return line
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// isHeaderLine checks if a line is likely a header/footer.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"),
		strings.Contains(lower, "copyright"),
		strings.Contains(lower, "preprint"),
		strings.Contains(lower, "http://"),
		strings.Contains(lower, "https://"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "article") && strings.Contains(lower, "published"):
		return true
	}
	return false
}
