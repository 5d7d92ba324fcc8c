// Package complete fills gaps in draft entries from a metadata registry and
// checks that completion did not change which work an entry describes.
package complete

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

// ErrMalformed marks a completed entry that must not be persisted.
var ErrMalformed = errors.New("malformed completed entry")

// Completer enriches a serialized draft entry.
type Completer interface {
	Complete(ctx context.Context, draft string) (string, error)
}

// Nop returns drafts unchanged.
type Nop struct{}

func (Nop) Complete(_ context.Context, draft string) (string, error) {
	return draft, nil
}

// Registry is the lookup a Crossref completer needs.
type Registry interface {
	Metadata(ctx context.Context, doi string) (reference.Reference, string, error)
	MatchTitle(ctx context.Context, title string, year int) (reference.Reference, error)
}

// Crossref fills missing fields from registry metadata found by DOI, or by
// an exact normalized-title match when the draft has no DOI. Existing
// values are never overwritten, and key, title and author are never set.
type Crossref struct {
	registry Registry
}

// NewCrossref creates a registry-backed completer.
func NewCrossref(registry Registry) *Crossref {
	return &Crossref{registry: registry}
}

// Complete returns the draft with gaps filled. A draft the registry does not
// know is returned unchanged.
func (c *Crossref) Complete(ctx context.Context, draft string) (string, error) {
	entry, err := bibtex.ParseOne(draft)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rec, err := c.lookup(ctx, entry)
	if err != nil {
		if sources.IsNotFound(err) {
			return draft, nil
		}
		return "", err
	}

	Fill(&entry, rec)
	return entry.String(), nil
}

func (c *Crossref) lookup(ctx context.Context, entry bibtex.Entry) (reference.Reference, error) {
	if doi := reference.NormalizeDOI(entry.Get("doi")); doi != "" {
		rec, _, err := c.registry.Metadata(ctx, doi)
		return rec, err
	}
	ref := entry.ToReference()
	return c.registry.MatchTitle(ctx, ref.Title, ref.Year)
}

// Fill sets fields that entry lacks from rec. Identity fields (key, title,
// author) are left alone.
func Fill(entry *bibtex.Entry, rec reference.Reference) {
	setIfMissing := func(name, value string) {
		if value != "" && !entry.Has(name) {
			entry.Set(name, value)
		}
	}

	setIfMissing("doi", rec.DOI)
	if rec.Year > 0 && !entry.Has("date") {
		setIfMissing("year", strconv.Itoa(rec.Year))
	}
	if !entry.Has("month") {
		entry.SetMonth(rec.Month)
	}

	if rec.Venue != "" {
		switch reference.ParseEntryType(entry.Type) {
		case reference.TypeArticle:
			setIfMissing("journal", bibtex.EscapeLatex(rec.Venue))
		case reference.TypeInProceedings, reference.TypeInCollection:
			setIfMissing("booktitle", bibtex.EscapeLatex(rec.Venue))
		}
	}

	for _, name := range []string{"volume", "number", "pages", "publisher"} {
		setIfMissing(name, bibtex.EscapeLatex(rec.Field(name)))
	}
}

// Verify checks a completed entry against its draft. It fails with
// ErrMalformed if the completed text does not parse as exactly one entry,
// or if its key, title or author list differ from the draft's.
func Verify(draft, completed string) (bibtex.Entry, error) {
	before, err := bibtex.ParseOne(draft)
	if err != nil {
		return bibtex.Entry{}, fmt.Errorf("%w: draft: %v", ErrMalformed, err)
	}
	after, err := bibtex.ParseOne(completed)
	if err != nil {
		return bibtex.Entry{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if after.Key != before.Key {
		return after, fmt.Errorf("%w: key changed from %q to %q", ErrMalformed, before.Key, after.Key)
	}
	for _, name := range []string{"title", "author"} {
		if normalize(before.Get(name)) != normalize(after.Get(name)) {
			return after, fmt.Errorf("%w: %s changed", ErrMalformed, name)
		}
	}
	return after, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
