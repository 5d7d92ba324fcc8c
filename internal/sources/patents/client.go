// Package patents looks up granted U.S. patents and published applications
// in the PatentsView search API.
package patents

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

const (
	// Name identifies the source.
	Name = "patents"

	// BaseURL is the PatentsView search API.
	BaseURL = "https://search.patentsview.org/api/v1"

	apiKeyHeader = "X-Api-Key"

	// RateLimit is PatentsView's 45 requests per minute.
	RateLimit = 45.0 / 60.0
)

// Kind classifies a patent identifier.
type Kind int

const (
	KindUnknown Kind = iota
	KindPatent
	KindPublication
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindPatent:
		return "patent"
	case KindPublication:
		return "publication"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

var publicationPattern = regexp.MustCompile(`^[A-Z]{2}\d{4}`)

// Classify identifies the kind of a patent identifier:
//   - "US20210234567" is a publication number
//   - "19/091,471" is an application number
//   - "10987654" (seven or more digits) is a granted patent number
func Classify(id string) Kind {
	id = strings.TrimSpace(id)
	switch {
	case publicationPattern.MatchString(id):
		return KindPublication
	case strings.ContainsAny(id, "/,"):
		return KindApplication
	case len(id) >= 7 && isDigits(id):
		return KindPatent
	}
	return KindUnknown
}

// NormalizeApplication converts "19/091,471" to "19091471".
func NormalizeApplication(id string) string {
	return strings.TrimSpace(strings.NewReplacer("/", "", ",", "").Replace(id))
}

// Source looks up an explicit list of patent identifiers.
type Source struct {
	apiKey  string
	baseURL string
	cfg     sources.HTTPClientConfig
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(s *Source) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPConfig overrides the HTTP client configuration.
func WithHTTPConfig(cfg sources.HTTPClientConfig) Option {
	return func(s *Source) { s.cfg = cfg }
}

// New creates a PatentsView source.
func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		apiKey:  apiKey,
		baseURL: BaseURL,
		cfg:     sources.HTTPClientConfig{RateLimit: RateLimit},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg.Source = Name
	s.cfg.APIKey = apiKey
	s.cfg.APIKeyHeader = apiKeyHeader
	return s
}

func (s *Source) Name() string { return Name }

// Undated patents are kept: the operator listed them explicitly.
func (s *Source) Undated() sources.UndatedPolicy { return sources.KeepUndated }

// Open fails without an API key.
func (s *Source) Open(ctx context.Context) (sources.Session, error) {
	if s.apiKey == "" {
		return nil, sources.Unavailable(Name, fmt.Errorf("%w: no PatentsView API key configured", sources.ErrAuth))
	}
	return &session{src: s, http: sources.NewHTTPClient(s.cfg)}, nil
}

type session struct {
	src  *Source
	http *sources.HTTPClient
}

func (s *session) Close() error { return nil }

// Works looks up each identifier listed in q.ID (see SplitIdentifiers).
// Unknown or unrecognized identifiers are yielded as errors.
func (s *session) Works(ctx context.Context, q sources.Query) iter.Seq2[sources.Candidate, error] {
	return func(yield func(sources.Candidate, error) bool) {
		for _, id := range SplitIdentifiers(q.ID) {
			cand, err := s.lookup(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					yield(sources.Candidate{}, ctx.Err())
					return
				}
				if sources.IsAuthError(err) {
					yield(sources.Candidate{}, sources.Unavailable(Name, err))
					return
				}
				if !yield(sources.Candidate{}, &sources.CandidateError{Source: Name, ID: id, Err: err}) {
					return
				}
				continue
			}
			if !yield(cand, nil) {
				return
			}
		}
	}
}

// SplitIdentifiers splits a list of identifiers separated by commas,
// semicolons or whitespace. The comma inside an application number such as
// "19/091,471" is kept.
func SplitIdentifiers(list string) []string {
	tokens := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})

	var ids []string
	for _, tok := range tokens {
		if n := len(ids); n > 0 && strings.Contains(ids[n-1], "/") && !strings.Contains(ids[n-1], ",") &&
			len(tok) == 3 && isDigits(tok) {
			ids[n-1] += "," + tok
			continue
		}
		ids = append(ids, tok)
	}
	return ids
}

func (s *session) lookup(ctx context.Context, id string) (sources.Candidate, error) {
	kind := Classify(id)

	var (
		endpoint string
		payload  query
		label    string
		workType string
	)
	switch kind {
	case KindPatent:
		endpoint = "/patent"
		payload = query{Q: map[string]string{"patent_id": id}, F: patentFields}
		label = "U.S. Patent"
		workType = "patent"
	case KindPublication, KindApplication:
		endpoint = "/publication"
		if kind == KindApplication {
			payload = query{Q: map[string]string{"application_number": NormalizeApplication(id)}, F: publicationFields}
		} else {
			payload = query{Q: map[string]string{"publication_number": id}, F: publicationFields}
		}
		label = "U.S. Patent Application"
		workType = "patent-application"
	default:
		return sources.Candidate{}, fmt.Errorf("unrecognized identifier format: %q", id)
	}

	var resp response
	if err := s.http.PostJSON(ctx, s.src.baseURL+endpoint, payload, &resp); err != nil {
		return sources.Candidate{}, err
	}

	var rec record
	switch {
	case len(resp.Patents) > 0:
		rec = resp.Patents[0]
	case len(resp.Publications) > 0:
		rec = resp.Publications[0]
	default:
		return sources.Candidate{}, fmt.Errorf("%w: no %s record for %s", sources.ErrNotFound, kind, id)
	}

	return toCandidate(rec, label, workType), nil
}

func toCandidate(rec record, label, workType string) sources.Candidate {
	number := rec.number()
	ref := reference.Reference{
		Type:   reference.TypePatent,
		Title:  strings.NewReplacer("{", "", "}", "").Replace(strings.TrimSpace(rec.title())),
		Source: reference.ImportSource{Type: Name, ID: number},
	}

	if t, err := time.Parse("2006-01-02", rec.date()); err == nil {
		ref.Year = t.Year()
		ref.Month = int(t.Month())
	}

	for _, inv := range rec.Inventors {
		if inv.Last == "" {
			continue
		}
		ref.Authors = append(ref.Authors, reference.Author{First: inv.First, Last: inv.Last})
	}

	ref.SetField("howpublished", label+" "+number)

	var assignees []string
	for _, a := range rec.Assignees {
		if a.Organization != "" {
			assignees = append(assignees, a.Organization)
		}
	}
	if len(assignees) > 0 {
		ref.SetField("note", "Assignee: "+strings.Join(assignees, ", "))
	}

	return sources.Candidate{Record: ref, WorkType: workType, Source: Name}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
