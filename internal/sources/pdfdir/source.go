// Package pdfdir turns a directory of PDFs into candidates. Each file yields
// whatever DOI and title can be read from its first pages; the merger fills
// in the rest from Crossref.
package pdfdir

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

// Name identifies the source.
const Name = "pdf"

// Source reads PDFs from a directory.
type Source struct {
	extractor Extractor
}

// New creates a PDF directory source. A nil extractor uses PlainText.
func New(extractor Extractor) *Source {
	if extractor == nil {
		extractor = PlainText{}
	}
	return &Source{extractor: extractor}
}

func (s *Source) Name() string { return Name }

// Undated PDFs are kept; the year usually comes from the DOI lookup.
func (s *Source) Undated() sources.UndatedPolicy { return sources.KeepUndated }

func (s *Source) Open(ctx context.Context) (sources.Session, error) {
	return s, nil
}

func (s *Source) Close() error { return nil }

// Works yields one candidate per *.pdf file in the directory q.ID, in name
// order. Subdirectories are not searched.
func (s *Source) Works(ctx context.Context, q sources.Query) iter.Seq2[sources.Candidate, error] {
	return func(yield func(sources.Candidate, error) bool) {
		entries, err := os.ReadDir(q.ID)
		if err != nil {
			yield(sources.Candidate{}, sources.Unavailable(Name, err))
			return
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(sources.Candidate{}, err)
				return
			}

			cand, err := s.candidate(filepath.Join(q.ID, entry.Name()))
			if err != nil {
				if !yield(sources.Candidate{}, &sources.CandidateError{Source: Name, ID: entry.Name(), Err: err}) {
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

func (s *Source) candidate(path string) (c sources.Candidate, err error) {
	// The PDF decoder panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	text, err := s.extractor.Extract(path)
	if err != nil {
		return sources.Candidate{}, fmt.Errorf("reading PDF: %w", err)
	}

	ref := reference.Reference{
		DOI:    reference.NormalizeDOI(FindDOI(text.Leading)),
		Title:  GuessTitle(text.FirstPage),
		Source: reference.ImportSource{Type: Name, ID: filepath.Base(path)},
	}
	if ref.DOI == "" && ref.Title == "" {
		return sources.Candidate{}, errors.New("no DOI or title found")
	}
	if ref.Title == "" {
		// Placeholder until the merger replaces it with the registry title.
		ref.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return sources.Candidate{Record: ref, Source: Name}, nil
}
