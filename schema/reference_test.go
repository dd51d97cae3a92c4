package schema_test

import (
	"context"
	"strings"
	"testing"

	"github.com/chemked/chemked/crossref"
	"github.com/chemked/chemked/schema"
)

const paperDOI = "10.1016/j.ijhydene.2007.04.008"

var works = crossref.Static{
	paperDOI: {
		DOI:     paperDOI,
		Journal: "International Journal of Hydrogen Energy",
		Year:    2007,
		Volume:  "32",
		Pages:   "2216-2226",
		Authors: []crossref.WorkAuthor{
			{Given: "N.", Family: "Chaumeix"},
			{Given: "S.", Family: "Pichon", ORCID: "0000-0003-4425-7097"},
		},
	},
}

func refDoc() map[string]any {
	return map[string]any{
		"doi":     paperDOI,
		"journal": "International Journal of Hydrogen Energy",
		"year":    2007,
		"volume":  32,
		"pages":   "2216-2226",
		"authors": []any{
			map[string]any{"name": "N. Chaumeix"},
			map[string]any{"name": "S. Pichon", "ORCID": "0000-0003-4425-7097"},
		},
	}
}

func runReference(t *testing.T, doc any, registry crossref.Lookup) (schema.Issues, schema.Warnings) {
	t.Helper()
	return schema.Validate(context.Background(), schema.Reference(), doc, nil, registry)
}

func TestReferenceValid(t *testing.T) {
	issues, _ := runReference(t, refDoc(), works)
	if len(issues) != 0 {
		t.Fatalf("got %v", issues)
	}
}

func TestReferenceYearBounds(t *testing.T) {
	doc := refDoc()
	doc["year"] = 1600
	issues, _ := runReference(t, doc, works)
	wantCode(t, issues, schema.CodeTooSmall, "/year")
}

func TestReferenceVolumeBounds(t *testing.T) {
	doc := refDoc()
	doc["volume"] = 0
	issues, _ := runReference(t, doc, works)
	wantCode(t, issues, schema.CodeTooSmall, "/volume")
}

func TestReferenceAuthorsRequired(t *testing.T) {
	doc := refDoc()
	delete(doc, "authors")
	issues, _ := runReference(t, doc, works)
	wantCode(t, issues, schema.CodeRequired, "/authors")
}

func TestReferenceWithoutDOI(t *testing.T) {
	doc := map[string]any{
		"year":   2007,
		"detail": "Fig. 12, right, open diamond",
		"authors": []any{
			map[string]any{"name": "N. Chaumeix"},
		},
	}
	issues, _ := runReference(t, doc, works)
	if len(issues) != 0 {
		t.Errorf("got %v", issues)
	}
}

func TestReferenceDOINotFound(t *testing.T) {
	doc := refDoc()
	doc["doi"] = "10.1000/does-not-exist"
	issues, _ := runReference(t, doc, works)
	wantCode(t, issues, schema.CodeDOIMismatch, "/doi")
}

func TestReferenceRegistryOutage(t *testing.T) {
	issues, warns := runReference(t, refDoc(), crossref.Offline{})
	if len(issues) != 0 {
		t.Fatalf("outage should not fail validation: %v", issues)
	}
	found := false
	for _, w := range warns {
		if strings.Contains(w.Message, "DOI not validated") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v", warns)
	}
}

func TestReferenceMetadataDisagreement(t *testing.T) {
	doc := refDoc()
	doc["journal"] = "Journal of Wrong Results"
	doc["year"] = 2008
	doc["volume"] = 31
	doc["pages"] = "1-2"
	issues, _ := runReference(t, doc, works)
	for _, part := range []string{"/journal", "/year", "/volume", "/pages"} {
		wantDOIIssueAt(t, issues, part)
	}
}

func wantDOIIssueAt(t *testing.T, issues schema.Issues, pathPart string) {
	t.Helper()
	for _, it := range issues {
		if it.Code == schema.CodeDOIMismatch && strings.Contains(it.Path, pathPart) {
			return
		}
	}
	t.Errorf("no doi_mismatch at %s in %v", pathPart, issues)
}

func TestReferenceMissingAuthor(t *testing.T) {
	doc := refDoc()
	doc["authors"] = []any{map[string]any{"name": "N. Chaumeix"}}
	issues, _ := runReference(t, doc, works)
	it, ok := findIssue(issues, schema.CodeDOIMismatch)
	if !ok || !strings.Contains(it.Message, "missing author") {
		t.Errorf("got %v", issues)
	}
}

func TestReferenceExtraAuthor(t *testing.T) {
	doc := refDoc()
	doc["authors"] = append(doc["authors"].([]any), map[string]any{"name": "A. Interloper"})
	issues, _ := runReference(t, doc, works)
	it, ok := findIssue(issues, schema.CodeDOIMismatch)
	if !ok || !strings.Contains(it.Message, "extra author") {
		t.Errorf("got %v", issues)
	}
}

func TestReferenceAuthorORCIDMismatch(t *testing.T) {
	doc := refDoc()
	doc["authors"].([]any)[1].(map[string]any)["ORCID"] = "0000-0002-1825-0097"
	issues, _ := runReference(t, doc, works)
	wantDOIIssueAt(t, issues, "/authors/1/ORCID")
}

func TestReferenceRegisteredORCIDMissing(t *testing.T) {
	doc := refDoc()
	delete(doc["authors"].([]any)[1].(map[string]any), "ORCID")
	issues, warns := runReference(t, doc, works)
	if len(issues) != 0 {
		t.Fatalf("got %v", issues)
	}
	found := false
	for _, w := range warns {
		if strings.Contains(w.Message, "ORCID 0000-0003-4425-7097 missing") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v", warns)
	}
}
