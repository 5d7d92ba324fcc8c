// Package crossref talks to the Crossref REST API: DOI metadata, BibTeX
// content negotiation, bibliographic search, and works by ORCID iD.
package crossref

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/makecv/makecv/internal/reference"
	"github.com/makecv/makecv/internal/sources"
)

const (
	// Name identifies the source.
	Name = "crossref"

	// BaseURL is the Crossref REST API.
	BaseURL = "https://api.crossref.org"

	// RateLimit matches the polite pool's advertised limit.
	RateLimit = 10.0

	// DefaultSearchRows is the number of results requested from searches.
	DefaultSearchRows = 5

	pageSize = 100
)

// Client is a Crossref REST API client.
type Client struct {
	http    *sources.HTTPClient
	baseURL string
	mailto  string
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL string
	mailto  string
	cfg     sources.HTTPClientConfig
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithMailto identifies the caller, which routes requests to the polite pool.
func WithMailto(email string) ClientOption {
	return func(o *clientOptions) {
		o.mailto = email
	}
}

// WithHTTPConfig overrides the HTTP client configuration.
func WithHTTPConfig(cfg sources.HTTPClientConfig) ClientOption {
	return func(o *clientOptions) {
		o.cfg = cfg
	}
}

// NewClient creates a new Crossref client.
func NewClient(opts ...ClientOption) *Client {
	o := clientOptions{
		baseURL: BaseURL,
		cfg:     sources.HTTPClientConfig{RateLimit: RateLimit},
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.cfg.Source = Name
	if o.mailto != "" && o.cfg.UserAgent == "" {
		o.cfg.UserAgent = sources.DefaultUserAgent + " mailto:" + o.mailto
	}

	return &Client{
		http:    sources.NewHTTPClient(o.cfg),
		baseURL: o.baseURL,
		mailto:  o.mailto,
	}
}

// Work fetches metadata for a DOI.
func (c *Client) Work(ctx context.Context, doi string) (*Work, error) {
	doi = reference.NormalizeDOI(doi)
	if doi == "" {
		return nil, fmt.Errorf("%w: empty DOI", sources.ErrNotFound)
	}

	var resp workResponse
	if err := c.http.GetJSON(ctx, c.url("/works/"+escapeDOI(doi), nil), &resp); err != nil {
		return nil, fmt.Errorf("crossref work %s: %w", doi, err)
	}
	return &resp.Message, nil
}

// BibTeX fetches the registry's BibTeX rendering of a DOI.
func (c *Client) BibTeX(ctx context.Context, doi string) (string, error) {
	doi = reference.NormalizeDOI(doi)
	if doi == "" {
		return "", fmt.Errorf("%w: empty DOI", sources.ErrNotFound)
	}

	u := c.url("/works/"+escapeDOI(doi)+"/transform/application/x-bibtex", nil)
	body, err := c.http.Get(ctx, u, "application/x-bibtex")
	if err != nil {
		return "", fmt.Errorf("crossref bibtex %s: %w", doi, err)
	}

	text := strings.TrimSpace(string(body))
	if !strings.HasPrefix(text, "@") {
		return "", fmt.Errorf("%w: crossref bibtex %s: not a BibTeX entry", sources.ErrInvalidResponse, doi)
	}
	return text, nil
}

// Search runs a bibliographic query (title, optionally with author and
// year) and returns up to rows results in relevance order.
func (c *Client) Search(ctx context.Context, query string, rows int) ([]Work, error) {
	if rows <= 0 {
		rows = DefaultSearchRows
	}
	params := url.Values{}
	params.Set("query.bibliographic", query)
	params.Set("rows", strconv.Itoa(rows))

	var resp listResponse
	if err := c.http.GetJSON(ctx, c.url("/works", params), &resp); err != nil {
		return nil, fmt.Errorf("crossref search: %w", err)
	}
	return resp.Message.Items, nil
}

// FindByTitle searches for title and returns the first result whose
// normalized title matches exactly, and whose year matches when year > 0.
// Returns sources.ErrNotFound when nothing matches.
func (c *Client) FindByTitle(ctx context.Context, title string, year int) (*Work, error) {
	key := reference.NormalizeTitle(title)
	if key == "" {
		return nil, fmt.Errorf("%w: empty title", sources.ErrNotFound)
	}

	works, err := c.Search(ctx, title, DefaultSearchRows)
	if err != nil {
		return nil, err
	}
	for i := range works {
		w := &works[i]
		if reference.NormalizeTitle(first(w.Title)) != key {
			continue
		}
		if y, _ := w.Date(); year > 0 && y > 0 && y != year {
			continue
		}
		return w, nil
	}
	return nil, fmt.Errorf("%w: no crossref record titled %q", sources.ErrNotFound, title)
}

// worksPage fetches one page of works attributed to an ORCID iD.
func (c *Client) worksPage(ctx context.Context, orcid, cursor string, fromYear int) (*listResponse, error) {
	filter := "orcid:" + orcid
	if fromYear > 0 {
		filter += ",from-pub-date:" + strconv.Itoa(fromYear)
	}
	params := url.Values{}
	params.Set("filter", filter)
	params.Set("rows", strconv.Itoa(pageSize))
	params.Set("cursor", cursor)

	var resp listResponse
	if err := c.http.GetJSON(ctx, c.url("/works", params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) url(path string, params url.Values) string {
	if c.mailto != "" {
		if params == nil {
			params = url.Values{}
		}
		params.Set("mailto", c.mailto)
	}
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// escapeDOI escapes each path segment of a DOI, keeping the slashes.
func escapeDOI(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// Metadata fetches a DOI and returns it as a record plus Crossref's work
// type ("journal-article", "proceedings-article", ...).
func (c *Client) Metadata(ctx context.Context, doi string) (reference.Reference, string, error) {
	w, err := c.Work(ctx, doi)
	if err != nil {
		return reference.Reference{}, "", err
	}
	return w.ToReference(), w.Type, nil
}

// MatchTitle is FindByTitle returning a record.
func (c *Client) MatchTitle(ctx context.Context, title string, year int) (reference.Reference, error) {
	w, err := c.FindByTitle(ctx, title, year)
	if err != nil {
		return reference.Reference{}, err
	}
	return w.ToReference(), nil
}
