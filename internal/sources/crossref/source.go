package crossref

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/makecv/makecv/internal/sources"
)

// Source yields works that Crossref attributes to an ORCID iD. Only works
// whose publishers deposited the author's ORCID are found.
type Source struct {
	client *Client
}

// NewSource creates a Crossref author-works source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) Name() string { return Name }

func (s *Source) Undated() sources.UndatedPolicy { return sources.SkipUndated }

func (s *Source) Open(ctx context.Context) (sources.Session, error) {
	return s, nil
}

func (s *Source) Close() error { return nil }

// Works pages through the author's works with a deep-paging cursor. The
// lookback window is pushed down as a from-pub-date filter.
func (s *Source) Works(ctx context.Context, q sources.Query) iter.Seq2[sources.Candidate, error] {
	return func(yield func(sources.Candidate, error) bool) {
		orcid := strings.TrimSpace(q.ID)
		if i := strings.LastIndex(orcid, "/"); i >= 0 {
			orcid = orcid[i+1:]
		}
		if orcid == "" {
			yield(sources.Candidate{}, sources.Unavailable(Name, fmt.Errorf("no ORCID iD given")))
			return
		}

		fromYear := 0
		if q.Lookback > 0 {
			now := q.Now
			if now.IsZero() {
				now = time.Now()
			}
			fromYear = now.Year() - q.Lookback
		}

		cursor := "*"
		for {
			page, err := s.client.worksPage(ctx, orcid, cursor, fromYear)
			if err != nil {
				yield(sources.Candidate{}, sources.Unavailable(Name, fmt.Errorf("listing works: %w", err)))
				return
			}

			for _, w := range page.Message.Items {
				ref := w.ToReference()
				if ref.Title == "" {
					continue
				}
				if !yield(sources.Candidate{Record: ref, WorkType: w.Type, Source: Name}, nil) {
					return
				}
			}

			if len(page.Message.Items) < pageSize || page.Message.NextCursor == "" || page.Message.NextCursor == cursor {
				return
			}
			cursor = page.Message.NextCursor
		}
	}
}
