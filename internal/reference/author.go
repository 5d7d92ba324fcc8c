package reference

import "strings"

// Author represents a work's author with optional ORCID identifier.
type Author struct {
	First string `json:"first"`           // First/given name(s)
	Last  string `json:"last"`            // Last/family name
	ORCID string `json:"orcid,omitempty"` // ORCID identifier (without URL prefix)
}

// Common name suffixes to keep with the last name.
var nameSuffixes = map[string]bool{
	"jr":   true,
	"jr.":  true,
	"sr":   true,
	"sr.":  true,
	"ii":   true,
	"iii":  true,
	"iv":   true,
	"phd":  true,
	"ph.d": true,
	"md":   true,
	"m.d":  true,
}

// ParseName splits a display name into an Author.
//
// Supported formats:
//   - "Smith, John"  → first="John", last="Smith"
//   - "John Smith"   → first="John", last="Smith"
//   - "Smith"        → last="Smith"
//
// Known limitations:
// - Multi-part surnames (von Neumann, van der Waals) split incorrectly in
// "First Last" form; use "Last, First" to avoid that.
func ParseName(name string) Author {
	name = strings.TrimSpace(name)
	if name == "" {
		return Author{}
	}

	if idx := strings.Index(name, ","); idx > 0 {
		return Author{
			Last:  strings.TrimSpace(name[:idx]),
			First: strings.TrimSpace(name[idx+1:]),
		}
	}

	parts := strings.Fields(name)
	if len(parts) == 1 {
		return Author{Last: parts[0]}
	}

	lastPart := strings.ToLower(parts[len(parts)-1])
	if nameSuffixes[lastPart] && len(parts) > 2 {
		return Author{
			First: strings.Join(parts[:len(parts)-2], " "),
			Last:  parts[len(parts)-2] + " " + parts[len(parts)-1],
		}
	}
	return Author{
		First: strings.Join(parts[:len(parts)-1], " "),
		Last:  parts[len(parts)-1],
	}
}

// String formats the author in BibTeX style: "Last, First".
func (a Author) String() string {
	if a.First == "" {
		return a.Last
	}
	return a.Last + ", " + a.First
}
