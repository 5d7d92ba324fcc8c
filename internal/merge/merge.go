// Package merge combines a harvested candidate with registry metadata into
// a single BibTeX entry ready for review.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/citekey"
	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

// ErrMissingTitle is returned for candidates that have no title even after
// merging.
var ErrMissingTitle = errors.New("record has no title")

// Registry is the secondary, high-coverage metadata source keyed by DOI.
type Registry interface {
	// Metadata returns the registry's record and native work type.
	Metadata(ctx context.Context, doi string) (reference.Reference, string, error)

	// BibTeX returns the registry's own formatted citation.
	BibTeX(ctx context.Context, doi string) (string, error)
}

// Origin says where a draft's citation text came from.
type Origin string

const (
	OriginNative      Origin = "native"      // citation supplied by the source
	OriginRegistry    Origin = "registry"    // registry BibTeX for the DOI
	OriginSynthesized Origin = "synthesized" // built field by field
)

// Draft is a merged record awaiting completion and approval.
type Draft struct {
	Key    string
	Entry  bibtex.Entry
	Text   string
	Origin Origin

	// Record is the merged metadata, used for dedupe and logging.
	Record reference.Reference

	// Warnings are non-fatal problems: registry failures, disagreeing
	// fields, unparseable native citations.
	Warnings []string
}

// Merger builds drafts. It is not safe for concurrent use.
type Merger struct {
	registry Registry
	keys     *citekey.Registry
}

// New creates a Merger. registry may be nil, in which case drafts are
// built from candidate data alone.
func New(registry Registry, keys *citekey.Registry) *Merger {
	if keys == nil {
		keys = citekey.NewRegistry()
	}
	return &Merger{registry: registry, keys: keys}
}

// Merge produces a draft for a candidate.
//
// Citation text is chosen in order: the candidate's native citation, the
// registry's BibTeX for the DOI, then an entry synthesized from the merged
// fields (registry values preferred, candidate values as fallback). A
// citation string is kept as is except for its key, and a doi field when it
// lacks one.
//
// The key is proposed from the merged record but not reserved; callers
// reserve it once the draft is accepted.
func (m *Merger) Merge(ctx context.Context, cand sources.Candidate) (*Draft, error) {
	native := cand.Record
	native.DOI = reference.NormalizeDOI(native.DOI)

	d := &Draft{}
	merged := native
	registryType := ""

	if m.registry != nil && native.DOI != "" {
		secondary, wt, err := m.registry.Metadata(ctx, native.DOI)
		switch {
		case err == nil:
			var conflicts []FieldConflict
			merged, conflicts = MergeReferences(secondary, native)
			registryType = wt
			for _, c := range conflicts {
				d.Warnings = append(d.Warnings, c.String())
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			d.Warnings = append(d.Warnings, fmt.Sprintf("registry lookup for %s failed, using source fields: %v", native.DOI, err))
		}
	}

	if merged.Title == "" {
		return nil, ErrMissingTitle
	}
	merged.Type = m.entryType(native.Type, cand.WorkType, registryType)

	d.Key = m.keys.Propose(citekey.Synthesize(merged.FirstAuthorSurname(), merged.Year, merged.Title))
	merged.ID = d.Key
	d.Record = merged

	text, origin, warnings := m.citation(ctx, cand.Citation, merged.DOI, d.Key)
	d.Warnings = append(d.Warnings, warnings...)
	if text == "" {
		d.Entry = bibtex.FromReference(merged)
		d.Origin = OriginSynthesized
		d.Text = d.Entry.String()
		return d, nil
	}

	entry, err := bibtex.ParseOne(text)
	if err != nil {
		return nil, fmt.Errorf("rekeyed citation: %w", err)
	}
	if !entry.Has("doi") && merged.DOI != "" {
		if text, err = bibtex.AddField(text, "doi", merged.DOI); err != nil {
			return nil, fmt.Errorf("adding doi: %w", err)
		}
		if entry, err = bibtex.ParseOne(text); err != nil {
			return nil, fmt.Errorf("adding doi: %w", err)
		}
	}

	d.Entry = entry
	d.Origin = origin
	d.Text = text
	return d, nil
}

// citation returns the first usable citation string, rekeyed to key. The
// rest of the text is left exactly as the source wrote it.
func (m *Merger) citation(ctx context.Context, native, doi, key string) (string, Origin, []string) {
	var warnings []string

	if native != "" {
		text, err := bibtex.ReplaceKey(native, key)
		if err == nil {
			return text, OriginNative, nil
		}
		warnings = append(warnings, fmt.Sprintf("ignoring unparseable source citation: %v", err))
	}

	if m.registry == nil || doi == "" {
		return "", "", warnings
	}

	raw, err := m.registry.BibTeX(ctx, doi)
	if err != nil {
		if !sources.IsNotFound(err) {
			warnings = append(warnings, fmt.Sprintf("registry BibTeX for %s unavailable: %v", doi, err))
		}
		return "", "", warnings
	}
	text, err := bibtex.ReplaceKey(raw, key)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("ignoring unparseable registry BibTeX for %s: %v", doi, err))
		return "", "", warnings
	}
	return text, OriginRegistry, warnings
}

// entryType uses the candidate's own type if it has one, else maps its
// work type. The registry's work type is consulted only when the source
// gave none, so an unmapped source type always ends up as misc.
func (m *Merger) entryType(own reference.EntryType, workType, registryType string) reference.EntryType {
	if own != "" {
		return own
	}
	if workType != "" {
		return MapWorkType(workType)
	}
	return MapWorkType(registryType)
}
