// Package orcid harvests works from an ORCID record via the public API.
package orcid

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

const (
	// Name identifies the source.
	Name = "orcid"

	// BaseURL is the ORCID public API.
	BaseURL = "https://pub.orcid.org/v3.0"

	// RateLimit stays well under the public API's 24 requests per second.
	RateLimit = 8.0
)

var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// Source harvests works from an ORCID record.
type Source struct {
	baseURL string
	cfg     sources.HTTPClientConfig
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(s *Source) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPConfig overrides the HTTP client configuration.
func WithHTTPConfig(cfg sources.HTTPClientConfig) Option {
	return func(s *Source) {
		cfg.Source = Name
		s.cfg = cfg
	}
}

// New creates an ORCID source.
func New(opts ...Option) *Source {
	s := &Source{
		baseURL: BaseURL,
		cfg:     sources.HTTPClientConfig{Source: Name, RateLimit: RateLimit},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string { return Name }

// Undated works are skipped: the ORCID record has no later date to offer.
func (s *Source) Undated() sources.UndatedPolicy { return sources.SkipUndated }

// Open creates the session's HTTP client.
func (s *Source) Open(ctx context.Context) (sources.Session, error) {
	return &session{
		baseURL: s.baseURL,
		http:    sources.NewHTTPClient(s.cfg),
	}, nil
}

type session struct {
	baseURL string
	http    *sources.HTTPClient
}

func (s *session) Close() error { return nil }

// Works lists the record's works, newest first as ORCID returns them, and
// fetches full details (contributors, native BibTeX) for works inside the
// lookback window.
func (s *session) Works(ctx context.Context, q sources.Query) iter.Seq2[sources.Candidate, error] {
	return func(yield func(sources.Candidate, error) bool) {
		id := normalizeORCID(q.ID)
		if !orcidPattern.MatchString(id) {
			yield(sources.Candidate{}, sources.Unavailable(Name, fmt.Errorf("invalid ORCID iD %q", q.ID)))
			return
		}

		var resp worksResponse
		if err := s.http.GetJSON(ctx, s.baseURL+"/"+id+"/works", &resp); err != nil {
			yield(sources.Candidate{}, sources.Unavailable(Name, fmt.Errorf("listing works: %w", err)))
			return
		}

		filter := sources.Filter{Lookback: q.Lookback, Now: q.Now, Undated: sources.SkipUndated}

		for _, group := range resp.Group {
			if len(group.WorkSummary) == 0 {
				continue
			}
			summary := group.WorkSummary[0]
			cand := fromSummary(summary)
			if cand.Record.Title == "" {
				continue
			}

			if filter.Check(cand.Record.Year) == sources.Accept {
				detail, err := s.work(ctx, id, summary.PutCode)
				if err != nil {
					if ctx.Err() != nil {
						yield(sources.Candidate{}, ctx.Err())
						return
					}
					if !yield(sources.Candidate{}, &sources.CandidateError{
						Source: Name, ID: strconv.Itoa(summary.PutCode), Err: err,
					}) {
						return
					}
					continue
				}
				applyDetail(&cand, detail)
			}

			if !yield(cand, nil) {
				return
			}
		}
	}
}

func (s *session) work(ctx context.Context, id string, putCode int) (*work, error) {
	var w work
	u := fmt.Sprintf("%s/%s/work/%d", s.baseURL, id, putCode)
	if err := s.http.GetJSON(ctx, u, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func fromSummary(w workSummary) sources.Candidate {
	ref := reference.Reference{
		Title:  titleOf(w.Title),
		Venue:  valueOf(w.JournalTitle),
		DOI:    doiOf(w.ExternalIDs),
		Source: reference.ImportSource{Type: Name, ID: strconv.Itoa(w.PutCode)},
	}
	ref.Year, ref.Month = dateOf(w.PublicationDate)

	return sources.Candidate{
		Record:   ref,
		WorkType: w.Type,
		Source:   Name,
	}
}

func applyDetail(c *sources.Candidate, w *work) {
	if w.Contributors != nil {
		for _, contrib := range w.Contributors.Contributor {
			name := valueOf(contrib.CreditName)
			if name == "" {
				continue
			}
			a := reference.ParseName(name)
			if contrib.ORCID != nil {
				a.ORCID = contrib.ORCID.Path
			}
			c.Record.Authors = append(c.Record.Authors, a)
		}
	}
	if c.Record.DOI == "" {
		c.Record.DOI = doiOf(w.ExternalIDs)
	}
	if c.Record.Venue == "" {
		c.Record.Venue = valueOf(w.JournalTitle)
	}
	if w.Citation != nil && strings.EqualFold(w.Citation.Type, "bibtex") {
		c.Citation = strings.TrimSpace(w.Citation.Value)
	}
}

// normalizeORCID accepts bare iDs and https://orcid.org/ URLs.
func normalizeORCID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := url.Parse(id); err == nil && u.Host != "" {
		id = strings.Trim(u.Path, "/")
	}
	return strings.ToUpper(id)
}

func titleOf(t *workTitle) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(valueOf(t.Title))
}

func valueOf(v *stringValue) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.Value)
}

func dateOf(d *publicationDate) (year, month int) {
	if d == nil {
		return 0, 0
	}
	year, _ = strconv.Atoi(valueOf(d.Year))
	month, _ = strconv.Atoi(valueOf(d.Month))
	return year, month
}

// doiOf returns the work's own DOI, preferring "self" identifiers.
func doiOf(ids *externalIDs) string {
	if ids == nil {
		return ""
	}
	var fallback string
	for _, id := range ids.ExternalID {
		if !strings.EqualFold(id.Type, "doi") {
			continue
		}
		doi := reference.NormalizeDOI(id.Value)
		if strings.EqualFold(id.Relationship, "self") {
			return doi
		}
		if fallback == "" {
			fallback = doi
		}
	}
	return fallback
}
