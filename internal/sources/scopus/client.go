// Package scopus harvests an author's documents from the Elsevier Scopus
// Search API.
package scopus

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

const (
	// Name identifies the source.
	Name = "scopus"

	// BaseURL is the Scopus Search API endpoint.
	BaseURL = "https://api.elsevier.com/content/search/scopus"

	apiKeyHeader = "X-ELS-APIKey"

	// RateLimit is below the API's 9 requests per second.
	RateLimit = 5.0

	pageSize = 25

	// ViewStandard is available to every API key; ViewComplete adds the
	// full author list but needs an institutional subscription.
	ViewStandard = "STANDARD"
	ViewComplete = "COMPLETE"
)

// Source harvests documents for a Scopus author ID.
type Source struct {
	apiKey  string
	baseURL string
	view    string
	cfg     sources.HTTPClientConfig
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(s *Source) { s.baseURL = u }
}

// WithView selects the response view.
func WithView(view string) Option {
	return func(s *Source) { s.view = view }
}

// WithHTTPConfig overrides the HTTP client configuration.
func WithHTTPConfig(cfg sources.HTTPClientConfig) Option {
	return func(s *Source) { s.cfg = cfg }
}

// New creates a Scopus source.
func New(apiKey string, opts ...Option) *Source {
	s := &Source{
		apiKey:  apiKey,
		baseURL: BaseURL,
		view:    ViewStandard,
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

func (s *Source) Undated() sources.UndatedPolicy { return sources.SkipUndated }

// Open fails without an API key.
func (s *Source) Open(ctx context.Context) (sources.Session, error) {
	if s.apiKey == "" {
		return nil, sources.Unavailable(Name, fmt.Errorf("%w: no API key configured", sources.ErrAuth))
	}
	return &session{src: s, http: sources.NewHTTPClient(s.cfg)}, nil
}

type session struct {
	src  *Source
	http *sources.HTTPClient
}

func (s *session) Close() error { return nil }

// Works pages through AU-ID(id), newest first. The lookback window is
// pushed down as a PUBYEAR clause.
func (s *session) Works(ctx context.Context, q sources.Query) iter.Seq2[sources.Candidate, error] {
	return func(yield func(sources.Candidate, error) bool) {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			yield(sources.Candidate{}, sources.Unavailable(Name, fmt.Errorf("no Scopus author ID given")))
			return
		}

		query := fmt.Sprintf("AU-ID(%s)", id)
		if q.Lookback > 0 {
			now := q.Now
			if now.IsZero() {
				now = time.Now()
			}
			query += fmt.Sprintf(" AND PUBYEAR > %d", now.Year()-q.Lookback-1)
		}

		for start := 0; ; start += pageSize {
			resp, err := s.page(ctx, query, start)
			if err != nil {
				yield(sources.Candidate{}, sources.Unavailable(Name, err))
				return
			}

			entries := resp.SearchResults.Entries
			for _, e := range entries {
				if e.Error != "" {
					return
				}
				cand := toCandidate(e)
				if cand.Record.Title == "" {
					continue
				}
				if !yield(cand, nil) {
					return
				}
			}

			total, _ := strconv.Atoi(resp.SearchResults.TotalResults)
			if len(entries) < pageSize || start+len(entries) >= total {
				return
			}
		}
	}
}

func (s *session) page(ctx context.Context, query string, start int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("view", s.src.view)
	params.Set("sort", "-coverDate")
	params.Set("count", strconv.Itoa(pageSize))
	params.Set("start", strconv.Itoa(start))

	var resp searchResponse
	if err := s.http.GetJSON(ctx, s.src.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching %s: %w", query, err)
	}
	return &resp, nil
}

func toCandidate(e entry) sources.Candidate {
	ref := reference.Reference{
		Title:  strings.TrimSpace(e.Title),
		DOI:    reference.NormalizeDOI(e.DOI),
		Venue:  strings.TrimSpace(e.PublicationName),
		Source: reference.ImportSource{Type: Name, ID: e.EID},
	}
	ref.Year, ref.Month = parseCoverDate(e.CoverDate)

	if len(e.Authors) > 0 {
		for _, a := range e.Authors {
			if a.Surname != "" {
				ref.Authors = append(ref.Authors, reference.Author{First: a.GivenName, Last: a.Surname, ORCID: a.ORCID})
			} else if a.Name != "" {
				ref.Authors = append(ref.Authors, creatorName(a.Name))
			}
		}
	} else if e.Creator != "" {
		ref.Authors = []reference.Author{creatorName(e.Creator)}
	}

	ref.SetField("volume", e.Volume)
	ref.SetField("number", e.IssueID)
	ref.SetField("pages", pageRange(e.PageRange, e.ArticleNumber))

	workType := e.SubType
	if workType == "" {
		workType = strings.ToLower(e.Aggregation)
	}

	return sources.Candidate{Record: ref, WorkType: workType, Source: Name}
}

// creatorName parses Scopus's "Surname I." form.
func creatorName(name string) reference.Author {
	name = strings.TrimSpace(name)
	if strings.Contains(name, ",") {
		return reference.ParseName(name)
	}
	if i := strings.LastIndex(name, " "); i > 0 {
		return reference.Author{Last: name[:i], First: name[i+1:]}
	}
	return reference.Author{Last: name}
}

func parseCoverDate(s string) (int, int) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		if len(s) >= 4 {
			y, _ := strconv.Atoi(s[:4])
			return y, 0
		}
		return 0, 0
	}
	return t.Year(), int(t.Month())
}

func pageRange(r, articleNumber string) string {
	if r == "" {
		return articleNumber
	}
	if strings.Contains(r, "--") {
		return r
	}
	return strings.Replace(r, "-", "--", 1)
}
