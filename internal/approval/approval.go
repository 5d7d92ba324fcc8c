// Package approval is the human-in-the-loop step between a completed entry
// and the output file.
package approval

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/makecv/makecv/internal/bibtex"
)

// Proposal is one entry awaiting a decision.
type Proposal struct {
	Key    string
	Source string
	Text   string // serialized entry to be appended

	// Warnings are shown alongside the entry (weak matches, field
	// disagreements, registry failures).
	Warnings []string

	// Err is set when completion produced an entry that must not be
	// persisted. Such proposals are shown and discarded.
	Err error
}

// Approver decides whether a proposal is persisted.
type Approver interface {
	Approve(ctx context.Context, p Proposal) (bool, error)
}

// Presenter shows a proposal without asking for a decision.
type Presenter interface {
	Present(p Proposal)
}

// Auto is an Approver with a fixed answer, recording what it was shown.
type Auto struct {
	Accept bool
	Seen   []Proposal
}

func (a *Auto) Approve(_ context.Context, p Proposal) (bool, error) {
	a.Seen = append(a.Seen, p)
	return a.Accept, nil
}

func (a *Auto) Present(p Proposal) {
	a.Seen = append(a.Seen, p)
}

// Func adapts a function to an Approver.
type Func func(ctx context.Context, p Proposal) (bool, error)

func (f Func) Approve(ctx context.Context, p Proposal) (bool, error) {
	return f(ctx, p)
}

// Sink receives accepted entries.
type Sink interface {
	Append(text string) error
}

// FileSink appends to a .bib file, opening and closing it per entry.
type FileSink struct {
	Path string
}

func (s FileSink) Append(text string) error {
	return bibtex.AppendToFile(s.Path, text)
}

// Outcome is the result of submitting a proposal.
type Outcome int

const (
	Accepted Outcome = iota
	Rejected
	Discarded // malformed; never persisted
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "discarded"
	}
}

// Gate routes proposals to the approver and the sink. Quiet mode is fixed
// at construction: a quiet gate accepts without asking.
type Gate struct {
	approver Approver
	sink     Sink
	quiet    bool
	logger   zerolog.Logger
}

// NewGate creates a gate. approver may be nil for a quiet gate.
func NewGate(approver Approver, sink Sink, quiet bool) *Gate {
	return &Gate{approver: approver, sink: sink, quiet: quiet, logger: zerolog.Nop()}
}

// WithLogger sets the logger that records entries a quiet gate appends.
func (g *Gate) WithLogger(l zerolog.Logger) *Gate {
	g.logger = l
	return g
}

// Quiet reports whether the gate auto-accepts.
func (g *Gate) Quiet() bool {
	return g.quiet
}

// Submit decides a proposal and appends accepted entries. A decline is
// Rejected with a nil error. Errors come from the approver (the operator
// channel failed) or the sink (the entry was not written).
func (g *Gate) Submit(ctx context.Context, p Proposal) (Outcome, error) {
	if p.Err != nil {
		if pr, ok := g.approver.(Presenter); ok {
			pr.Present(p)
		}
		return Discarded, nil
	}

	if !g.quiet {
		if g.approver == nil {
			return Rejected, fmt.Errorf("no approver configured for interactive gate")
		}
		ok, err := g.approver.Approve(ctx, p)
		if err != nil {
			return Rejected, err
		}
		if !ok {
			return Rejected, nil
		}
	} else {
		g.logger.Info().
			Str("key", p.Key).
			Str("source", p.Source).
			Strs("warnings", p.Warnings).
			Str("entry", p.Text).
			Msg("appending without review")
	}

	if err := g.sink.Append(p.Text); err != nil {
		return Rejected, fmt.Errorf("writing %s: %w", p.Key, err)
	}
	return Accepted, nil
}
