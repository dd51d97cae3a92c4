// Package crossref provides the bibliographic lookup collaborator used to
// check DOIs and reference metadata against the Crossref registry.
package crossref

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

// WorkAuthor is one author of a registered work.
type WorkAuthor struct {
	Given  string
	Family string
	ORCID  string // bare identifier, no URL prefix
}

// Work is the registry record for a DOI.
type Work struct {
	DOI     string
	Journal string
	Year    int
	Volume  string
	Pages   string
	Authors []WorkAuthor
}

// Lookup resolves a DOI to its registered metadata. ErrNotFound means the
// DOI does not resolve; ErrUnavailable means the registry cannot be reached
// and is treated as advisory by callers.
type Lookup interface {
	Work(ctx context.Context, doi string) (*Work, error)
}

var (
	ErrNotFound    = errors.New("crossref: DOI not found")
	ErrUnavailable = errors.New("crossref: registry unavailable")
)

// NormalizeDOI strips URL prefixes and trailing punctuation that commonly
// rides along when a DOI is copied out of running text.
func NormalizeDOI(doi string) string {
	d := strings.TrimSpace(doi)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "http://dx.doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, p)
	}
	return strings.TrimRight(d, ".,;")
}

// Client queries the Crossref works API. A single Client is intended to be
// shared between the validator and the converter so the registry sees one
// consumer.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string // defaults to the public API
	// MailTo is appended to requests per Crossref etiquette when set.
	MailTo string
}

const defaultBaseURL = "https://api.crossref.org"

func (c *Client) Work(ctx context.Context, doi string) (*Work, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	u := base + "/works/" + url.PathEscape(NormalizeDOI(doi))
	if c.MailTo != "" {
		u += "?mailto=" + url.QueryEscape(c.MailTo)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("crossref: %w", err)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var body struct {
		Message struct {
			DOI            string   `json:"DOI"`
			ContainerTitle []string `json:"container-title"`
			Volume         string   `json:"volume"`
			Page           string   `json:"page"`
			PublishedPrint struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"published-print"`
			PublishedOnline struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"published-online"`
			Author []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
				ORCID  string `json:"ORCID"`
			} `json:"author"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	m := body.Message
	w := &Work{DOI: m.DOI, Volume: m.Volume, Pages: m.Page}
	if len(m.ContainerTitle) > 0 {
		w.Journal = m.ContainerTitle[0]
	}
	if dp := m.PublishedPrint.DateParts; len(dp) > 0 && len(dp[0]) > 0 {
		w.Year = dp[0][0]
	} else if dp := m.PublishedOnline.DateParts; len(dp) > 0 && len(dp[0]) > 0 {
		w.Year = dp[0][0]
	}
	for _, a := range m.Author {
		id := a.ORCID
		if i := strings.LastIndexByte(id, '/'); i >= 0 {
			id = id[i+1:]
		}
		w.Authors = append(w.Authors, WorkAuthor{Given: a.Given, Family: a.Family, ORCID: id})
	}
	return w, nil
}

// Offline is a Lookup that always reports the registry as unreachable.
type Offline struct{}

func (Offline) Work(ctx context.Context, doi string) (*Work, error) {
	return nil, ErrUnavailable
}

// Static is a Lookup backed by a fixed table, for tests and cached runs.
type Static map[string]*Work

func (s Static) Work(ctx context.Context, doi string) (*Work, error) {
	w, ok := s[NormalizeDOI(doi)]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}
