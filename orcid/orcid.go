// Package orcid provides ORCID identifier validation: the ISO 7064 11-2
// checksum, a name-agreement heuristic, and a public-registry lookup client.
package orcid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// Person holds the registered name for an identifier.
type Person struct {
	GivenName  string
	FamilyName string
}

// Lookup resolves an ORCID to the registered person. Implementations return
// ErrNotFound for an unknown identifier and ErrUnavailable when the registry
// cannot be reached; callers treat the latter as advisory, not fatal.
type Lookup interface {
	Person(ctx context.Context, id string) (Person, error)
}

var (
	ErrNotFound    = errors.New("orcid: identifier not found")
	ErrUnavailable = errors.New("orcid: registry unavailable")
)

var idPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// ValidFormat reports whether id has the ####-####-####-###X shape.
func ValidFormat(id string) bool { return idPattern.MatchString(id) }

// ValidChecksum reports whether the final character of id is the correct
// ISO 7064 11-2 check digit for the preceding fifteen digits.
func ValidChecksum(id string) bool {
	if !ValidFormat(id) {
		return false
	}
	digits := strings.ReplaceAll(id, "-", "")
	total := 0
	for _, r := range digits[:15] {
		total = (total + int(r-'0')) * 2
	}
	result := (12 - total%11) % 11
	check := digits[15]
	if result == 10 {
		return check == 'X'
	}
	return check == byte('0'+result)
}

// Client looks identifiers up against the public ORCID registry.
type Client struct {
	HTTPClient *http.Client
	// BaseURL defaults to the public registry endpoint.
	BaseURL string
}

const defaultBaseURL = "https://pub.orcid.org/v3.0"

func (c *Client) Person(ctx context.Context, id string) (Person, error) {
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+id+"/person", nil)
	if err != nil {
		return Person{}, fmt.Errorf("orcid: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return Person{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Person{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Person{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var body struct {
		Name struct {
			GivenNames struct {
				Value string `json:"value"`
			} `json:"given-names"`
			FamilyName struct {
				Value string `json:"value"`
			} `json:"family-name"`
		} `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Person{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Person{
		GivenName:  body.Name.GivenNames.Value,
		FamilyName: body.Name.FamilyName.Value,
	}, nil
}

// Offline is a Lookup that always reports the registry as unreachable.
// It keeps validation usable without network access.
type Offline struct{}

func (Offline) Person(ctx context.Context, id string) (Person, error) {
	return Person{}, ErrUnavailable
}

// Static is a Lookup backed by a fixed table, for tests and cached runs.
type Static map[string]Person

func (s Static) Person(ctx context.Context, id string) (Person, error) {
	p, ok := s[id]
	if !ok {
		return Person{}, ErrNotFound
	}
	return p, nil
}
