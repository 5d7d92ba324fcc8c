// Package doisearch proposes DOIs for bibliography entries that lack one.
// It only reports; the bibliography is never rewritten.
package doisearch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

// Matcher finds a registry record whose normalized title equals title and
// whose year matches when both are known.
type Matcher interface {
	MatchTitle(ctx context.Context, title string, year int) (reference.Reference, error)
}

// Suggestion is a proposed DOI for one entry.
type Suggestion struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
	DOI   string `json:"doi"`
}

// Result lists what was found.
type Result struct {
	Checked     int          `json:"checked"`
	Suggestions []Suggestion `json:"suggestions"`
	NotFound    []string     `json:"not_found"`
	Failed      []string     `json:"failed"`
}

// Finder looks up DOIs one entry at a time.
type Finder struct {
	matcher Matcher
	logger  zerolog.Logger
}

// New creates a Finder.
func New(matcher Matcher, logger zerolog.Logger) *Finder {
	return &Finder{matcher: matcher, logger: logger}
}

// Find checks every entry without a DOI. Entries with no title are
// skipped. Lookup failures are recorded and the search continues; only
// context cancellation stops it early.
func (f *Finder) Find(ctx context.Context, entries []bibtex.Entry) (*Result, error) {
	res := &Result{Suggestions: []Suggestion{}, NotFound: []string{}, Failed: []string{}}

	for _, e := range entries {
		if e.Has("doi") {
			continue
		}
		ref := e.ToReference()
		if ref.Title == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		log := f.logger.With().Str("key", e.Key).Logger()
		hit, err := f.matcher.MatchTitle(ctx, ref.Title, ref.Year)
		switch {
		case err == nil && hit.DOI != "":
			res.Suggestions = append(res.Suggestions, Suggestion{
				Key:   e.Key,
				Title: ref.Title,
				Year:  ref.Year,
				DOI:   reference.NormalizeDOI(hit.DOI),
			})
			log.Info().Str("doi", hit.DOI).Msg("DOI found")
		case err == nil, sources.IsNotFound(err):
			res.NotFound = append(res.NotFound, e.Key)
			log.Debug().Msg("no matching DOI")
		case ctx.Err() != nil:
			return res, ctx.Err()
		default:
			res.Failed = append(res.Failed, e.Key)
			log.Warn().Err(err).Msg("DOI lookup failed")
		}
	}
	return res, nil
}
