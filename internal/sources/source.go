// Package sources defines the contract every bibliographic source adapter
// implements, plus the HTTP plumbing they share.
//
// A source is opened once per run and yields candidates lazily:
//
//	sess, err := src.Open(ctx)
//	if err != nil { ... }
//	defer sess.Close()
//	for cand, err := range sess.Works(ctx, q) { ... }
//
// Errors for individual candidates are yielded alongside the sequence and do
// not stop it. An error wrapping ErrSourceUnavailable ends the sequence.
package sources

import (
	"context"
	"iter"
	"time"

	"github.com/makecv/makecv/internal/reference"
)

// UndatedPolicy decides what happens to candidates without a year when a
// lookback window is in effect.
type UndatedPolicy int

const (
	// SkipUndated drops candidates with no determinable year.
	SkipUndated UndatedPolicy = iota
	// KeepUndated passes them through to the merger.
	KeepUndated
)

func (p UndatedPolicy) String() string {
	if p == KeepUndated {
		return "keep"
	}
	return "skip"
}

// Query selects the works to fetch.
type Query struct {
	// ID is the source-specific profile identifier: an ORCID iD, a Scopus
	// author ID, a comma-separated patent list, a directory path.
	ID string

	// Lookback is the window in years. Zero or negative means no limit.
	Lookback int

	// Now anchors the window. Zero means time.Now().
	Now time.Time
}

// Candidate is a partial record yielded by a source.
type Candidate struct {
	Record reference.Reference

	// WorkType is the source's own type label ("journal-article",
	// "proceedings-article", "ar", "patent"); the merger maps it.
	WorkType string

	// Citation is a BibTeX string provided natively by the source, if any.
	Citation string

	// Source names the adapter that produced the candidate.
	Source string
}

// Source is a bibliographic source adapter.
type Source interface {
	// Name identifies the source in logs, metrics and reports.
	Name() string

	// Undated reports how candidates without a year are treated.
	Undated() UndatedPolicy

	// Open acquires whatever the source needs for a run (HTTP clients,
	// tokens, file handles). The caller must Close the session.
	Open(ctx context.Context) (Session, error)
}

// Session is an open connection to a source.
type Session interface {
	// Works lazily yields candidates for the query.
	Works(ctx context.Context, q Query) iter.Seq2[Candidate, error]

	// Close releases the session's resources.
	Close() error
}

// Filter decides whether a candidate falls inside the query's lookback window.
type Filter struct {
	Lookback int
	Now      time.Time
	Undated  UndatedPolicy
}

// Verdict is the outcome of Filter.Check.
type Verdict int

const (
	Accept Verdict = iota
	OutOfWindow
	Undated
)

// Check classifies a candidate year.
func (f Filter) Check(year int) Verdict {
	if f.Lookback <= 0 {
		return Accept
	}
	if year <= 0 {
		if f.Undated == KeepUndated {
			return Accept
		}
		return Undated
	}
	if InWindow(year, f.Lookback, f.Now) {
		return Accept
	}
	return OutOfWindow
}

// InWindow reports whether year falls within the lookback window ending at
// now. The boundary year (now.Year()-lookback) is included. A lookback of
// zero or less admits every year.
func InWindow(year, lookback int, now time.Time) bool {
	if lookback <= 0 {
		return true
	}
	if now.IsZero() {
		now = time.Now()
	}
	return year >= now.Year()-lookback
}
