package orcid

import (
	"regexp"
	"strings"
)

var nameSep = regexp.MustCompile(`[, .-]+`)
var nameSepKeepHyphen = regexp.MustCompile(`[, .]+`)

// MatchName compares a free-form name against a registered given/family pair.
// The free-form name may abbreviate given names to initials ("K. E. Niemeyer",
// "KE Niemeyer"), reorder as "family, given", or hyphenate ("C-J Sung").
func MatchName(given, family, question string) bool {
	given = strings.ToLower(given)
	family = strings.ToLower(family)
	question = strings.ToLower(question)

	// rearrange names given as "last, first middle"
	if strings.Contains(question, ",") {
		parts := strings.SplitN(question, ",", 2)
		question = strings.TrimSpace(parts[1]) + " " + strings.TrimSpace(parts[0])
	}

	givenParts := splitName(given, nameSep)
	familyParts := splitName(family, nameSepKeepHyphen)
	questionParts := splitName(question, nameSep)
	if len(givenParts) == 0 || len(familyParts) == 0 || len(questionParts) == 0 {
		return false
	}

	numFamily := len(familyParts)
	if len(questionParts) <= numFamily {
		return false
	}
	first := questionParts[:len(questionParts)-numFamily]

	// A hyphenated family name splits in the question string; stitch it back.
	var familyCompare string
	if numFamily == 1 && strings.Contains(family, "-") {
		hyphens := strings.Count(family, "-")
		if len(questionParts) > hyphens {
			familyCompare = strings.Join(questionParts[len(questionParts)-hyphens-1:], "-")
			first = questionParts[:len(questionParts)-hyphens-1]
		}
	} else {
		familyCompare = strings.Join(questionParts[len(questionParts)-numFamily:], " ")
	}
	if familyCompare != strings.Join(familyParts, " ") {
		return false
	}
	if len(first) == 0 {
		return false
	}

	// "KE Niemeyer" packs the initials into one token; unpack it.
	if len(first) == 1 && len(givenParts) > 1 && len(first[0]) == len(givenParts) {
		unpacked := make([]string, len(first[0]))
		for i := range first[0] {
			unpacked[i] = string(first[0][i])
		}
		first = unpacked
	}

	// Trim to the shorter of the two given-name lists, then reduce matching
	// positions to initials when either side is abbreviated.
	g := append([]string(nil), givenParts...)
	f := append([]string(nil), first...)
	if len(g) != len(f) {
		n := len(g)
		if len(f) < n {
			n = len(f)
		}
		g, f = g[:n], f[:n]
	}
	for i := range g {
		if len(g[i]) == 1 || len(f[i]) == 1 {
			g[i] = g[i][:1]
			f[i] = f[i][:1]
		}
	}
	for i := range g {
		if g[i] != f[i] {
			return false
		}
	}
	return true
}

func splitName(s string, sep *regexp.Regexp) []string {
	var out []string
	for _, p := range sep.Split(s, -1) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
