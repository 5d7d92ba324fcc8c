package pipeline

// Outcome names what happened to a single candidate. The values double as
// metric labels.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeRejected    Outcome = "rejected"
	OutcomeDiscarded   Outcome = "discarded"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeOutOfWindow Outcome = "out_of_window"
	OutcomeUndated     Outcome = "undated"
	OutcomeFailed      Outcome = "failed"
)

// Counts tallies candidates for one source.
type Counts struct {
	Fetched     int `json:"fetched"`
	OutOfWindow int `json:"out_of_window"`
	Undated     int `json:"undated"`
	Duplicate   int `json:"duplicate"`
	Flagged     int `json:"flagged"`
	Merged      int `json:"merged"`
	Accepted    int `json:"accepted"`
	Rejected    int `json:"rejected"`
	Discarded   int `json:"discarded"`
	Failed      int `json:"failed"`
}

func (c *Counts) add(o Outcome) {
	switch o {
	case OutcomeAccepted:
		c.Accepted++
	case OutcomeRejected:
		c.Rejected++
	case OutcomeDiscarded:
		c.Discarded++
	case OutcomeDuplicate:
		c.Duplicate++
	case OutcomeOutOfWindow:
		c.OutOfWindow++
	case OutcomeUndated:
		c.Undated++
	case OutcomeFailed:
		c.Failed++
	}
}

// SourceReport is the result of running one source.
type SourceReport struct {
	Source string `json:"source"`
	Counts

	// Error is set when the source could not be opened or stopped early.
	Error string `json:"error,omitempty"`
}

// Flag is a candidate that duplicates a corpus entry by title while
// carrying a DOI the corpus entry lacks.
type Flag struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	DOI       string `json:"doi"`
	CorpusKey string `json:"corpus_key"`
}

// Report summarizes a run.
type Report struct {
	RunID    string         `json:"run_id"`
	Sources  []SourceReport `json:"sources"`
	Accepted []string       `json:"accepted"`
	Flagged  []Flag         `json:"flagged"`

	// Aborted is set when the run stopped before every source finished.
	Aborted bool `json:"aborted,omitempty"`
}

// Totals sums the counts of every source.
func (r *Report) Totals() Counts {
	var t Counts
	for _, s := range r.Sources {
		t.Fetched += s.Fetched
		t.OutOfWindow += s.OutOfWindow
		t.Undated += s.Undated
		t.Duplicate += s.Duplicate
		t.Flagged += s.Flagged
		t.Merged += s.Merged
		t.Accepted += s.Accepted
		t.Rejected += s.Rejected
		t.Discarded += s.Discarded
		t.Failed += s.Failed
	}
	return t
}
