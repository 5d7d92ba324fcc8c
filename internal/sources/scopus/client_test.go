package scopus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makecv/makecv/internal/sources"
)

func testSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("key-123",
		WithBaseURL(server.URL),
		WithHTTPConfig(sources.HTTPClientConfig{RateLimit: 1000, BurstSize: 10, RetryDelay: time.Millisecond}),
	)
}

func collect(t *testing.T, src *Source, q sources.Query) ([]sources.Candidate, []error) {
	t.Helper()
	sess, err := src.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	var cands []sources.Candidate
	var errs []error
	for c, err := range sess.Works(context.Background(), q) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cands = append(cands, c)
	}
	return cands, errs
}

func TestWorks(t *testing.T) {
	var gotQuery, gotKey string
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.Header.Get("X-ELS-APIKey")
		w.Write([]byte(`{"search-results": {
			"opensearch:totalResults": "2",
			"entry": [
				{"eid": "2-s2.0-1", "dc:title": "Scopus Paper", "dc:creator": "Smith J.",
				 "prism:publicationName": "Physical Review E", "prism:coverDate": "2024-02-15",
				 "prism:doi": "10.1103/ABC", "prism:volume": "9", "prism:pageRange": "1-5", "subtype": "ar"},
				{"eid": "2-s2.0-2", "dc:title": "Conference Talk", "prism:coverDate": "2023-07-01",
				 "prism:aggregationType": "Conference Proceeding",
				 "author": [{"surname": "Doe", "given-name": "Jane"}, {"authname": "Roe R."}]}
			]}}`))
	})

	cands, errs := collect(t, src, sources.Query{ID: "7004212771", Lookback: 2, Now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.Empty(t, errs)
	require.Len(t, cands, 2)

	assert.Equal(t, "AU-ID(7004212771) AND PUBYEAR > 2022", gotQuery)
	assert.Equal(t, "key-123", gotKey)

	first := cands[0]
	assert.Equal(t, "Scopus Paper", first.Record.Title)
	assert.Equal(t, "10.1103/abc", first.Record.DOI)
	assert.Equal(t, 2024, first.Record.Year)
	assert.Equal(t, 2, first.Record.Month)
	assert.Equal(t, "ar", first.WorkType)
	assert.Equal(t, "1--5", first.Record.Field("pages"))
	require.Len(t, first.Record.Authors, 1)
	assert.Equal(t, "Smith", first.Record.Authors[0].Last)
	assert.Equal(t, "J.", first.Record.Authors[0].First)

	second := cands[1]
	assert.Equal(t, "conference proceeding", second.WorkType)
	require.Len(t, second.Record.Authors, 2)
	assert.Equal(t, "Doe", second.Record.Authors[0].Last)
	assert.Equal(t, "Roe", second.Record.Authors[1].Last)
}

func TestWorks_Paginates(t *testing.T) {
	var starts []string
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		starts = append(starts, start)
		n := pageSize
		if start != "0" {
			n = 3
		}
		var entries []string
		for i := 0; i < n; i++ {
			entries = append(entries, fmt.Sprintf(`{"eid":"e%s-%d","dc:title":"T%s-%d","prism:coverDate":"2024-01-01"}`, start, i, start, i))
		}
		fmt.Fprintf(w, `{"search-results":{"opensearch:totalResults":"%d","entry":[%s]}}`, pageSize+3, strings.Join(entries, ","))
	})

	cands, errs := collect(t, src, sources.Query{ID: "1"})
	require.Empty(t, errs)
	assert.Len(t, cands, pageSize+3)
	assert.Equal(t, []string{"0", "25"}, starts)
}

func TestWorks_EmptyResult(t *testing.T) {
	src := testSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"search-results":{"opensearch:totalResults":"0","entry":[{"error":"Result set was empty"}]}}`))
	})

	cands, errs := collect(t, src, sources.Query{ID: "1"})
	assert.Empty(t, cands)
	assert.Empty(t, errs)
}

func TestOpen_RequiresAPIKey(t *testing.T) {
	_, err := New("").Open(context.Background())
	require.Error(t, err)
	assert.True(t, sources.IsFatal(err))
	assert.True(t, sources.IsAuthError(err))
}

func TestParseCoverDate(t *testing.T) {
	y, m := parseCoverDate("2021-12-01")
	assert.Equal(t, 2021, y)
	assert.Equal(t, 12, m)

	y, m = parseCoverDate("2019")
	assert.Equal(t, 2019, y)
	assert.Equal(t, 0, m)

	y, _ = parseCoverDate("")
	assert.Equal(t, 0, y)
}
