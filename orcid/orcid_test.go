package orcid_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chemked/chemked/orcid"
)

func TestValidFormat(t *testing.T) {
	cases := []struct {
		id string
		ok bool
	}{
		{"0000-0003-4425-7097", true},
		{"0000-0002-1825-009X", true},
		{"0000-0003-4425-709", false},
		{"0000-0003-4425-70977", false},
		{"0000.0003.4425.7097", false},
		{"000A-0003-4425-7097", false},
		{"", false},
	}
	for _, c := range cases {
		if got := orcid.ValidFormat(c.id); got != c.ok {
			t.Errorf("ValidFormat(%q) = %v, want %v", c.id, got, c.ok)
		}
	}
}

func TestValidChecksum(t *testing.T) {
	cases := []struct {
		id string
		ok bool
	}{
		{"0000-0003-4425-7097", true},
		{"0000-0002-1825-0097", true},
		{"0000-0002-1694-233X", true},
		{"0000-0003-4425-7096", false},
		{"0000-0002-1825-0098", false},
		{"not-an-orcid", false},
	}
	for _, c := range cases {
		if got := orcid.ValidChecksum(c.id); got != c.ok {
			t.Errorf("ValidChecksum(%q) = %v, want %v", c.id, got, c.ok)
		}
	}
}

func TestMatchName(t *testing.T) {
	cases := []struct {
		given, family, question string
		ok                      bool
	}{
		{"Kyle", "Niemeyer", "Kyle Niemeyer", true},
		{"Kyle E", "Niemeyer", "Kyle E Niemeyer", true},
		{"Kyle E", "Niemeyer", "Kyle Niemeyer", true},
		{"Kyle E", "Niemeyer", "K. E. Niemeyer", true},
		{"Kyle E", "Niemeyer", "KE Niemeyer", true},
		{"Kyle E", "Niemeyer", "Niemeyer, Kyle", true},
		{"Kyle E", "Niemeyer", "niemeyer, k e", true},
		{"Chih-Jen", "Sung", "C-J Sung", true},
		{"Chih-Jen", "Sung", "Chih-Jen Sung", true},
		{"Kyle E", "Niemeyer", "Wrong Name", false},
		{"Kyle E", "Niemeyer", "Kevin Niemeyer", false},
		{"Kyle E", "Niemeyer", "Niemeyer", false},
		{"Kyle E", "Niemeyer", "", false},
	}
	for _, c := range cases {
		if got := orcid.MatchName(c.given, c.family, c.question); got != c.ok {
			t.Errorf("MatchName(%q, %q, %q) = %v, want %v", c.given, c.family, c.question, got, c.ok)
		}
	}
}

func TestStaticLookup(t *testing.T) {
	s := orcid.Static{
		"0000-0003-4425-7097": {GivenName: "Kyle E", FamilyName: "Niemeyer"},
	}
	p, err := s.Person(context.Background(), "0000-0003-4425-7097")
	if err != nil {
		t.Fatal(err)
	}
	if p.FamilyName != "Niemeyer" {
		t.Errorf("got %+v", p)
	}
	if _, err := s.Person(context.Background(), "0000-0002-1825-0097"); !errors.Is(err, orcid.ErrNotFound) {
		t.Errorf("unknown id: %v, want ErrNotFound", err)
	}
}

func TestOfflineLookup(t *testing.T) {
	if _, err := (orcid.Offline{}).Person(context.Background(), "0000-0003-4425-7097"); !errors.Is(err, orcid.ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}
