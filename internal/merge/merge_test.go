package merge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/citekey"
	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

type fakeRegistry struct {
	records  map[string]reference.Reference
	types    map[string]string
	bibtex   map[string]string
	metaErr  error
	bibCalls int
}

func (f *fakeRegistry) Metadata(_ context.Context, doi string) (reference.Reference, string, error) {
	if f.metaErr != nil {
		return reference.Reference{}, "", f.metaErr
	}
	r, ok := f.records[doi]
	if !ok {
		return reference.Reference{}, "", fmt.Errorf("%w: %s", sources.ErrNotFound, doi)
	}
	return r, f.types[doi], nil
}

func (f *fakeRegistry) BibTeX(_ context.Context, doi string) (string, error) {
	f.bibCalls++
	t, ok := f.bibtex[doi]
	if !ok {
		return "", fmt.Errorf("%w: %s", sources.ErrNotFound, doi)
	}
	return t, nil
}

func TestMapWorkType(t *testing.T) {
	tests := []struct {
		in   string
		want reference.EntryType
	}{
		{"journal-article", reference.TypeArticle},
		{"JOURNAL_ARTICLE", reference.TypeArticle},
		{"proceedings-article", reference.TypeInProceedings},
		{"conference-paper", reference.TypeInProceedings},
		{"cp", reference.TypeInProceedings},
		{"Conference Proceeding", reference.TypeInProceedings},
		{"book-chapter", reference.TypeInCollection},
		{"dissertation-thesis", reference.TypeThesis},
		{"patent-application", reference.TypePatent},
		{"JournalArticle", reference.TypeArticle},
		{"Conference", reference.TypeInProceedings},
		{"ar", reference.TypeArticle},
		{"posted-content", reference.TypeMisc},
		{"data-set", reference.TypeMisc},
		{"", reference.TypeMisc},
		{"definitely-not-a-type", reference.TypeMisc},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapWorkType(tt.in), tt.in)
	}
}

func TestMerge_NativeCitationWins(t *testing.T) {
	reg := &fakeRegistry{
		records: map[string]reference.Reference{"10.1/x": {Title: "Deep Trees", Year: 2024}},
		bibtex:  map[string]string{"10.1/x": "@article{reg, title={Registry}}"},
	}
	m := New(reg, citekey.NewRegistry())

	cand := sources.Candidate{
		Record:   reference.Reference{Title: "Deep Trees", DOI: "10.1/X", Year: 2024, Authors: []reference.Author{{First: "Jo", Last: "Smith"}}},
		WorkType: "journal-article",
		Citation: "@article{orcid123,\n  title = {Deep {T}rees},\n  journal = {Nature},\n}",
	}

	d, err := m.Merge(context.Background(), cand)
	require.NoError(t, err)
	assert.Equal(t, OriginNative, d.Origin)
	assert.Equal(t, "Smith2024Deep", d.Key)
	assert.Equal(t, "Smith2024Deep", d.Entry.Key)
	assert.Equal(t, "Deep {T}rees", d.Entry.Get("title"))
	assert.Equal(t, "Nature", d.Entry.Get("journal"))
	assert.Equal(t, "10.1/x", d.Entry.Get("doi"), "missing doi is patched in")
	assert.Equal(t, 0, reg.bibCalls)

	parsed, err := bibtex.ParseOne(d.Text)
	require.NoError(t, err)
	assert.Equal(t, d.Entry.Fields, parsed.Fields)
}

func TestMerge_NativeCitationTextPreserved(t *testing.T) {
	m := New(nil, nil)
	citation := "@article{Doe_2020,\n  title = {A Study},\n  author = {Doe, Jane},\n  month = jan,\n  journal = \"J\" # \" Phys\",\n  year = 2020\n}"

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record:   reference.Reference{Title: "A Study", DOI: "10.1/ab", Year: 2020, Authors: []reference.Author{{First: "Jane", Last: "Doe"}}},
		Citation: citation,
	})
	require.NoError(t, err)
	assert.Equal(t, "Doe2020Study", d.Key)

	want := "@article{Doe2020Study,\n  title = {A Study},\n  author = {Doe, Jane},\n  month = jan,\n  journal = \"J\" # \" Phys\",\n  year = 2020,\n  doi = {10.1/ab}\n}"
	assert.Equal(t, want, d.Text)
	assert.Equal(t, "jan", d.Entry.Get("month"))
	assert.Equal(t, "J Phys", d.Entry.Get("journal"))
}

func TestMerge_NativeCitationKeepsOwnDOI(t *testing.T) {
	m := New(nil, nil)
	d, err := m.Merge(context.Background(), sources.Candidate{
		Record:   reference.Reference{Title: "T", DOI: "10.1/new"},
		Citation: "@misc{k, title={T}, doi={10.1/Original}}",
	})
	require.NoError(t, err)
	assert.Equal(t, "10.1/Original", d.Entry.Get("doi"))
	assert.Len(t, d.Entry.Fields, 2)
}

func TestMerge_RegistryCitation(t *testing.T) {
	reg := &fakeRegistry{
		records: map[string]reference.Reference{"10.1/x": {Title: "Deep Trees", Year: 2023, Authors: []reference.Author{{Last: "Jones"}}}},
		bibtex:  map[string]string{"10.1/x": "@article{Jones_2023, title={Deep Trees}, journal={Cell}, year={2023}}"},
	}
	m := New(reg, citekey.NewRegistry())

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record: reference.Reference{Title: "Deep trees", DOI: "10.1/x"},
	})
	require.NoError(t, err)
	assert.Equal(t, OriginRegistry, d.Origin)
	assert.Equal(t, "Jones2023Deep", d.Key)
	assert.Equal(t, "Cell", d.Entry.Get("journal"))
	assert.Equal(t, "10.1/x", d.Entry.Get("doi"))
	assert.True(t, strings.HasPrefix(d.Text, "@article{Jones2023Deep,"))
}

func TestMerge_SynthesizesPreferringRegistry(t *testing.T) {
	reg := &fakeRegistry{
		records: map[string]reference.Reference{"10.1/x": {
			Title:   "Deep Trees: A Study",
			Venue:   "Nature Methods",
			Year:    2024,
			Month:   2,
			Authors: []reference.Author{{First: "Jo", Last: "Smith"}, {First: "Al", Last: "Lee"}},
			Fields:  map[string]string{"volume": "21", "pages": "1--9"},
		}},
		types: map[string]string{"10.1/x": "journal-article"},
	}
	m := New(reg, citekey.NewRegistry())

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record: reference.Reference{
			Title:   "Deep trees - a study",
			Venue:   "Nat Methods",
			Year:    2024,
			DOI:     "10.1/x",
			Authors: []reference.Author{{First: "J.", Last: "Smith", ORCID: "0000-0001"}},
			Fields:  map[string]string{"volume": "20", "note": "keep me"},
		},
		WorkType: "journal-article",
	})
	require.NoError(t, err)

	assert.Equal(t, OriginSynthesized, d.Origin)
	assert.Equal(t, "article", d.Entry.Type)
	assert.Equal(t, "Nature Methods", d.Entry.Get("journal"))
	assert.Equal(t, "Smith, Jo and Lee, Al", d.Entry.Get("author"))
	assert.Equal(t, "21", d.Entry.Get("volume"))
	assert.Equal(t, "keep me", d.Entry.Get("note"))
	assert.Equal(t, "feb", d.Entry.Get("month"))
	assert.Equal(t, "0000-0001", d.Record.Authors[0].ORCID)
	assert.NotEmpty(t, d.Warnings, "venue disagreement is reported")
}

func TestMerge_RegistryFailureFallsBackToNative(t *testing.T) {
	reg := &fakeRegistry{metaErr: errors.New("connection refused")}
	m := New(reg, citekey.NewRegistry())

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record:   reference.Reference{Title: "Solo Work", DOI: "10.1/y", Year: 2022, Venue: "Proceedings of Things"},
		WorkType: "conference-paper",
	})
	require.NoError(t, err)
	assert.Equal(t, "inproceedings", d.Entry.Type)
	assert.Equal(t, "Proceedings of Things", d.Entry.Get("booktitle"))
	require.NotEmpty(t, d.Warnings)
	assert.Contains(t, d.Warnings[0], "connection refused")
}

func TestMerge_UnmappedTypeIsMisc(t *testing.T) {
	reg := &fakeRegistry{
		records: map[string]reference.Reference{"10.1/z": {Title: "Dataset"}},
		types:   map[string]string{"10.1/z": "journal-article"},
	}
	m := New(reg, nil)

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record:   reference.Reference{Title: "Dataset", DOI: "10.1/z"},
		WorkType: "data-set",
	})
	require.NoError(t, err)
	assert.Equal(t, "misc", d.Entry.Type)
}

func TestMerge_MissingTitle(t *testing.T) {
	m := New(nil, nil)
	_, err := m.Merge(context.Background(), sources.Candidate{Record: reference.Reference{DOI: "10.1/q"}})
	assert.ErrorIs(t, err, ErrMissingTitle)
}

func TestMerge_PDFPlaceholderReplaced(t *testing.T) {
	reg := &fakeRegistry{
		records: map[string]reference.Reference{"10.5/p": {Title: "Real Title", Year: 2021, Authors: []reference.Author{{Last: "Ng"}}}},
		types:   map[string]string{"10.5/p": "proceedings-article"},
	}
	m := New(reg, nil)

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record: reference.Reference{Title: "scan_0042", DOI: "10.5/p"},
		Source: "pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "Real Title", d.Record.Title)
	assert.Equal(t, 2021, d.Record.Year)
	assert.Equal(t, "inproceedings", d.Entry.Type)
	assert.Equal(t, "Ng2021Real", d.Key)
}

func TestMerge_KeyCollisionsGetSuffix(t *testing.T) {
	keys := citekey.NewRegistry("Smith2024Deep")
	m := New(nil, keys)

	d, err := m.Merge(context.Background(), sources.Candidate{
		Record: reference.Reference{Title: "Deep Things", Year: 2024, Authors: []reference.Author{{Last: "Smith"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Smith2024Deepb", d.Key)
	assert.False(t, keys.Taken("Smith2024Deepb"), "keys are reserved on acceptance, not on merge")
}

func TestMergeReferences(t *testing.T) {
	pref := reference.Reference{Title: "A", Year: 2020, Fields: map[string]string{"pages": "1"}}
	fb := reference.Reference{ID: "k", Title: "a", Venue: "V", Year: 2019, Month: 5, Fields: map[string]string{"pages": "2", "note": "n"}}

	merged, conflicts := MergeReferences(pref, fb)
	assert.Equal(t, "k", merged.ID)
	assert.Equal(t, "A", merged.Title)
	assert.Equal(t, "V", merged.Venue)
	assert.Equal(t, 2020, merged.Year)
	assert.Equal(t, 0, merged.Month)
	assert.Equal(t, "1", merged.Field("pages"))
	assert.Equal(t, "n", merged.Field("note"))
	require.Len(t, conflicts, 1)
	assert.Equal(t, "year", conflicts[0].FieldName)
}
