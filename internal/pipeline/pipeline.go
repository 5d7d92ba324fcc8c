// Package pipeline runs candidates from each source through filtering,
// deduplication, merging, completion and approval, one at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/makecv/makecv/internal/approval"
	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/citekey"
	"github.com/makecv/makecv/internal/complete"
	"github.com/makecv/makecv/internal/corpus"
	"github.com/makecv/makecv/internal/merge"
	"github.com/makecv/makecv/internal/observability"
	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

// Metrics receives per-candidate and per-source outcomes.
type Metrics interface {
	RecordCandidate(source, outcome string)
	RecordSourceFailure(source string)
}

// SourceRun pairs a source with the query to run against it.
type SourceRun struct {
	Source sources.Source
	Query  sources.Query
}

// Pipeline holds the collaborators for a run. Index, Keys, Merger and Gate
// are required.
type Pipeline struct {
	Index     *corpus.Index
	Keys      *citekey.Registry
	Merger    *merge.Merger
	Completer complete.Completer
	Gate      *approval.Gate
	Logger    zerolog.Logger
	Metrics   Metrics
	RunID     string

	// Now anchors lookback windows. Defaults to time.Now.
	Now func() time.Time
}

// Run processes every source in order. Sources that fail to open are
// logged and skipped. The returned error is non-nil only when the run was
// aborted: the context was cancelled, the operator could not be asked, or
// an accepted entry could not be written. The report is valid either way.
func (p *Pipeline) Run(ctx context.Context, runs []SourceRun) (*Report, error) {
	if p.Completer == nil {
		p.Completer = complete.Nop{}
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.RunID == "" {
		p.RunID = observability.NewRunID()
	}

	report := &Report{RunID: p.RunID, Accepted: []string{}, Flagged: []Flag{}}
	r := &run{Pipeline: p, ledger: corpus.Build(nil), report: report}
	log := observability.WithRun(p.Logger, p.RunID)

	for _, sr := range runs {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			return report, err
		}
		if err := r.source(ctx, observability.WithSource(log, sr.Source.Name()), sr); err != nil {
			report.Aborted = true
			return report, err
		}
	}
	return report, nil
}

// run is the state of a single Run call. The ledger holds entries accepted
// during this run so a work reported by two sources is proposed once.
type run struct {
	*Pipeline
	ledger *corpus.Index
	report *Report
}

func (r *run) source(ctx context.Context, log zerolog.Logger, sr SourceRun) (err error) {
	name := sr.Source.Name()
	r.report.Sources = append(r.report.Sources, SourceReport{Source: name})
	sreport := &r.report.Sources[len(r.report.Sources)-1]

	fail := func(cause error) {
		sreport.Error = cause.Error()
		r.recordSourceFailure(name)
		log.Error().Err(cause).Msg("source failed")
	}

	defer func() {
		if v := recover(); v != nil {
			fail(fmt.Errorf("panic: %v", v))
		}
	}()

	session, err := sr.Source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fail(err)
		return nil
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing source")
		}
	}()

	q := sr.Query
	if q.Now.IsZero() {
		q.Now = r.Now()
	}
	filter := sources.Filter{Lookback: q.Lookback, Now: q.Now, Undated: sr.Source.Undated()}

	for cand, cerr := range session.Works(ctx, q) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cerr != nil {
			if sources.IsFatal(cerr) {
				fail(cerr)
				return nil
			}
			sreport.Fetched++
			sreport.Failed++
			r.recordCandidate(name, OutcomeFailed)
			log.Warn().Err(cerr).Msg("candidate failed")
			continue
		}

		sreport.Fetched++
		if cand.Source == "" {
			cand.Source = name
		}
		outcome, perr := r.candidate(ctx, log, filter, cand, sreport)
		if perr != nil {
			return perr
		}
		sreport.add(outcome)
		r.recordCandidate(name, outcome)
	}
	return ctx.Err()
}

// candidate runs one candidate to completion. An error aborts the run.
func (r *run) candidate(ctx context.Context, log zerolog.Logger, filter sources.Filter, cand sources.Candidate, sreport *SourceReport) (outcome Outcome, err error) {
	log = observability.WithCandidate(log, cand.Record.Title, cand.Record.DOI)

	defer func() {
		if v := recover(); v != nil {
			log.Error().Interface("panic", v).Msg("candidate failed")
			outcome, err = OutcomeFailed, nil
		}
	}()

	verdict := filter.Check(cand.Record.Year)
	switch verdict {
	case sources.OutOfWindow:
		log.Debug().Int("year", cand.Record.Year).Msg("outside lookback window")
		return OutcomeOutOfWindow, nil
	case sources.Undated:
		log.Debug().Msg("no year, skipped")
		return OutcomeUndated, nil
	}

	if r.duplicate(log, cand.Source, cand.Record, sreport) {
		return OutcomeDuplicate, nil
	}

	draft, err := r.Merger.Merge(ctx, cand)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeFailed, ctx.Err()
		}
		log.Warn().Err(err).Msg("merge failed")
		return OutcomeFailed, nil
	}
	sreport.Merged++

	// Registry metadata can supply a year or DOI the source lacked.
	if cand.Record.Year <= 0 && draft.Record.Year > 0 && filter.Check(draft.Record.Year) == sources.OutOfWindow {
		log.Debug().Int("year", draft.Record.Year).Msg("outside lookback window after merge")
		return OutcomeOutOfWindow, nil
	}
	if draft.Record.DOI != cand.Record.DOI || draft.Record.Title != cand.Record.Title {
		if r.duplicate(log, cand.Source, draft.Record, sreport) {
			return OutcomeDuplicate, nil
		}
	}

	prop := approval.Proposal{
		Key:      draft.Key,
		Source:   cand.Source,
		Text:     draft.Text,
		Warnings: draft.Warnings,
	}

	accepted := draft.Entry
	completed, err := r.Completer.Complete(ctx, draft.Text)
	switch {
	case err == nil:
		entry, verr := complete.Verify(draft.Text, completed)
		if verr != nil {
			prop.Text = completed
			prop.Err = verr
		} else {
			prop.Text = completed
			accepted = entry
		}
	case ctx.Err() != nil:
		return OutcomeFailed, ctx.Err()
	case errors.Is(err, complete.ErrMalformed):
		prop.Err = err
	default:
		log.Warn().Err(err).Msg("completion failed, proposing draft")
		prop.Warnings = append(prop.Warnings, fmt.Sprintf("completion failed: %v", err))
	}

	result, err := r.Gate.Submit(ctx, prop)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("approving %s: %w", draft.Key, err)
	}

	switch result {
	case approval.Accepted:
		r.accept(accepted)
		log.Info().Str("key", draft.Key).Msg("entry accepted")
		return OutcomeAccepted, nil
	case approval.Discarded:
		log.Warn().Err(prop.Err).Str("key", draft.Key).Msg("malformed entry discarded")
		return OutcomeDiscarded, nil
	default:
		log.Info().Str("key", draft.Key).Msg("entry declined")
		return OutcomeRejected, nil
	}
}

// duplicate checks a record against the corpus and the run ledger.
func (r *run) duplicate(log zerolog.Logger, source string, rec reference.Reference, sreport *SourceReport) bool {
	m := r.Index.Lookup(rec)
	for _, w := range m.Warnings {
		log.Warn().Msg(w)
	}
	if m.Duplicate() {
		if m.PossiblyMissingDOI {
			sreport.Flagged++
			r.report.Flagged = append(r.report.Flagged, Flag{
				Source:    source,
				Title:     rec.Title,
				DOI:       rec.DOI,
				CorpusKey: m.Key,
			})
			log.Warn().Str("corpus_key", m.Key).Msg("title matches a corpus entry that does not record this DOI")
		}
		log.Debug().Str("corpus_key", m.Key).Stringer("match", m.Kind).Msg("already in corpus")
		return true
	}

	if m := r.ledger.Lookup(rec); m.Duplicate() {
		log.Debug().Str("key", m.Key).Msg("already accepted this run")
		return true
	}
	return false
}

func (r *run) accept(entry bibtex.Entry) {
	r.Keys.Add(entry.Key)
	r.ledger.Add(entry)
	r.report.Accepted = append(r.report.Accepted, entry.Key)
}

func (r *run) recordCandidate(source string, o Outcome) {
	if r.Metrics != nil {
		r.Metrics.RecordCandidate(source, string(o))
	}
}

func (r *run) recordSourceFailure(source string) {
	if r.Metrics != nil {
		r.Metrics.RecordSourceFailure(source)
	}
}
