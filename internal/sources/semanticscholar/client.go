// Package semanticscholar harvests an author's papers from the Semantic
// Scholar Academic Graph API.
package semanticscholar

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/makecv/makecv/internal/sources"
)

const (
	// Name identifies the source.
	Name = "semanticscholar"

	// BaseURL is the Academic Graph API.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// RateLimit is the documented limit for keyed requests.
	RateLimit = 1.0

	apiKeyHeader = "x-api-key"
	pageSize     = 100
	paperFields  = "paperId,externalIds,title,venue,year,publicationDate,publicationTypes,journal,authors"
)

var authorIDPattern = regexp.MustCompile(`^\d+$`)

// Source harvests papers for a Semantic Scholar author ID. The API key is
// optional; unkeyed requests share a public pool and are throttled harder.
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

// New creates a Semantic Scholar source.
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
	if apiKey != "" {
		s.cfg.APIKey = apiKey
		s.cfg.APIKeyHeader = apiKeyHeader
	}
	return s
}

func (s *Source) Name() string { return Name }

func (s *Source) Undated() sources.UndatedPolicy { return sources.SkipUndated }

func (s *Source) Open(ctx context.Context) (sources.Session, error) {
	return &session{src: s, http: sources.NewHTTPClient(s.cfg)}, nil
}

type session struct {
	src  *Source
	http *sources.HTTPClient
}

func (s *session) Close() error { return nil }

// Works pages through the author's papers. The lookback window is pushed
// down as a publicationDateOrYear range.
func (s *session) Works(ctx context.Context, q sources.Query) iter.Seq2[sources.Candidate, error] {
	return func(yield func(sources.Candidate, error) bool) {
		id := normalizeAuthorID(q.ID)
		if !authorIDPattern.MatchString(id) {
			yield(sources.Candidate{}, sources.Unavailable(Name, fmt.Errorf("invalid author ID %q", q.ID)))
			return
		}

		since := ""
		if q.Lookback > 0 {
			now := q.Now
			if now.IsZero() {
				now = time.Now()
			}
			since = fmt.Sprintf("%d:", now.Year()-q.Lookback)
		}

		offset := 0
		for {
			resp, err := s.page(ctx, id, offset, since)
			if err != nil {
				yield(sources.Candidate{}, sources.Unavailable(Name, err))
				return
			}

			for _, p := range resp.Data {
				cand := toCandidate(p)
				if cand.Record.Title == "" {
					continue
				}
				if !yield(cand, nil) {
					return
				}
			}

			if resp.Next == nil || *resp.Next <= offset || len(resp.Data) == 0 {
				return
			}
			offset = *resp.Next
		}
	}
}

func (s *session) page(ctx context.Context, id string, offset int, since string) (*papersResponse, error) {
	params := url.Values{}
	params.Set("fields", paperFields)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(pageSize))
	if since != "" {
		params.Set("publicationDateOrYear", since)
	}

	var resp papersResponse
	u := fmt.Sprintf("%s/author/%s/papers?%s", s.src.baseURL, id, params.Encode())
	if err := s.http.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("listing papers for author %s: %w", id, err)
	}
	return &resp, nil
}

// normalizeAuthorID accepts bare IDs and semanticscholar.org author URLs
// such as https://www.semanticscholar.org/author/Jane-Doe/1741101.
func normalizeAuthorID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := url.Parse(id); err == nil && u.Host != "" {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		id = parts[len(parts)-1]
	}
	return id
}
