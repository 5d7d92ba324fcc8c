package orcid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makecv/makecv/internal/sources"
)

const worksJSON = `{
  "group": [
    {"work-summary": [{
      "put-code": 11,
      "title": {"title": {"value": "Recent Paper"}},
      "type": "journal-article",
      "publication-date": {"year": {"value": "2024"}, "month": {"value": "05"}},
      "journal-title": {"value": "Nature"},
      "external-ids": {"external-id": [
        {"external-id-type": "issn", "external-id-value": "1234-5678"},
        {"external-id-type": "doi", "external-id-value": "https://doi.org/10.1/ABC", "external-id-relationship": "self"}
      ]}
    }]},
    {"work-summary": [{
      "put-code": 12,
      "title": {"title": {"value": "Old Paper"}},
      "type": "conference-paper",
      "publication-date": {"year": {"value": "2001"}}
    }]},
    {"work-summary": [{
      "put-code": 13,
      "title": {"title": {"value": "Undated Thing"}},
      "type": "other"
    }]},
    {"work-summary": [{
      "put-code": 14,
      "title": {"title": {"value": "Broken Detail"}},
      "type": "journal-article",
      "publication-date": {"year": {"value": "2025"}}
    }]},
    {"work-summary": []}
  ]
}`

const workJSON = `{
  "put-code": 11,
  "citation": {"citation-type": "bibtex", "citation-value": "@article{orcid11, title={Recent Paper}}"},
  "contributors": {"contributor": [
    {"credit-name": {"value": "Jane Doe"}, "contributor-orcid": {"path": "0000-0002-1825-0097"}},
    {"credit-name": {"value": "Smith, John"}}
  ]}
}`

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	detailCalls := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/0000-0002-1825-0097/works", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(worksJSON))
	})
	mux.HandleFunc("/0000-0002-1825-0097/work/11", func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		w.Write([]byte(workJSON))
	})
	mux.HandleFunc("/0000-0002-1825-0097/work/14", func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, detailCalls
}

func openSession(t *testing.T, baseURL string) sources.Session {
	t.Helper()
	src := New(WithBaseURL(baseURL), WithHTTPConfig(sources.HTTPClientConfig{RateLimit: 1000, BurstSize: 10, RetryDelay: time.Millisecond}))
	sess, err := src.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestWorks(t *testing.T) {
	server, detailCalls := newServer(t)
	sess := openSession(t, server.URL)

	q := sources.Query{
		ID:       "https://orcid.org/0000-0002-1825-0097",
		Lookback: 2,
		Now:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	var cands []sources.Candidate
	var errs []error
	for c, err := range sess.Works(context.Background(), q) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cands = append(cands, c)
	}

	require.Len(t, cands, 3)
	require.Len(t, errs, 1)

	recent := cands[0]
	assert.Equal(t, "Recent Paper", recent.Record.Title)
	assert.Equal(t, "10.1/abc", recent.Record.DOI)
	assert.Equal(t, 2024, recent.Record.Year)
	assert.Equal(t, 5, recent.Record.Month)
	assert.Equal(t, "Nature", recent.Record.Venue)
	assert.Equal(t, "journal-article", recent.WorkType)
	assert.Contains(t, recent.Citation, "@article{orcid11")
	require.Len(t, recent.Record.Authors, 2)
	assert.Equal(t, "Doe", recent.Record.Authors[0].Last)
	assert.Equal(t, "0000-0002-1825-0097", recent.Record.Authors[0].ORCID)
	assert.Equal(t, "Smith", recent.Record.Authors[1].Last)

	// Out-of-window and undated works are yielded from the summary alone.
	assert.Equal(t, "Old Paper", cands[1].Record.Title)
	assert.Empty(t, cands[1].Record.Authors)
	assert.Equal(t, "Undated Thing", cands[2].Record.Title)
	assert.Equal(t, 0, cands[2].Record.Year)

	var candErr *sources.CandidateError
	require.ErrorAs(t, errs[0], &candErr)
	assert.Equal(t, "14", candErr.ID)
	assert.True(t, sources.IsNotFound(errs[0]))

	assert.Equal(t, int32(2), detailCalls.Load())
}

func TestWorks_InvalidID(t *testing.T) {
	sess := openSession(t, "http://127.0.0.1:0")

	var errs []error
	for _, err := range sess.Works(context.Background(), sources.Query{ID: "not-an-orcid"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, sources.IsFatal(errs[0]))
}

func TestWorks_ListFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sess := openSession(t, server.URL)
	for _, err := range sess.Works(context.Background(), sources.Query{ID: "0000-0002-1825-0097"}) {
		require.Error(t, err)
		assert.True(t, sources.IsFatal(err))
		assert.True(t, sources.IsAuthError(err))
	}
}

func TestWorks_StopsWhenConsumerBreaks(t *testing.T) {
	server, _ := newServer(t)
	sess := openSession(t, server.URL)

	n := 0
	for range sess.Works(context.Background(), sources.Query{ID: "0000-0002-1825-0097"}) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestNormalizeORCID(t *testing.T) {
	assert.Equal(t, "0000-0002-1825-009X", normalizeORCID(" https://orcid.org/0000-0002-1825-009x "))
	assert.Equal(t, "0000-0002-1825-0097", normalizeORCID("0000-0002-1825-0097"))
}
