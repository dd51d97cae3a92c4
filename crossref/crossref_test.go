package crossref_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chemked/chemked/crossref"
)

func TestNormalizeDOI(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"10.1016/j.ijhydene.2007.04.008", "10.1016/j.ijhydene.2007.04.008"},
		{"https://doi.org/10.1016/j.ijhydene.2007.04.008", "10.1016/j.ijhydene.2007.04.008"},
		{"http://doi.org/10.1016/j.ijhydene.2007.04.008", "10.1016/j.ijhydene.2007.04.008"},
		{"http://dx.doi.org/10.1016/j.ijhydene.2007.04.008", "10.1016/j.ijhydene.2007.04.008"},
		{"doi:10.1016/j.ijhydene.2007.04.008", "10.1016/j.ijhydene.2007.04.008"},
		{"  10.1016/j.ijhydene.2007.04.008. ", "10.1016/j.ijhydene.2007.04.008"},
		{"10.1000/xyz123;", "10.1000/xyz123"},
	}
	for _, c := range cases {
		if got := crossref.NormalizeDOI(c.in); got != c.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStaticLookup(t *testing.T) {
	work := &crossref.Work{
		DOI:     "10.1016/j.ijhydene.2007.04.008",
		Journal: "International Journal of Hydrogen Energy",
		Year:    2007,
		Volume:  "32",
		Pages:   "2216-2226",
		Authors: []crossref.WorkAuthor{
			{Given: "N.", Family: "Chaumeix"},
		},
	}
	s := crossref.Static{"10.1016/j.ijhydene.2007.04.008": work}

	got, err := s.Work(context.Background(), "https://doi.org/10.1016/j.ijhydene.2007.04.008")
	if err != nil {
		t.Fatal(err)
	}
	if got.Journal != work.Journal || got.Year != 2007 {
		t.Errorf("got %+v", got)
	}

	if _, err := s.Work(context.Background(), "10.1000/nope"); !errors.Is(err, crossref.ErrNotFound) {
		t.Errorf("unknown DOI: %v, want ErrNotFound", err)
	}
}

func TestOfflineLookup(t *testing.T) {
	if _, err := (crossref.Offline{}).Work(context.Background(), "10.1000/xyz"); !errors.Is(err, crossref.ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}
