package schema_test

import (
	"context"
	"strings"
	"testing"

	"github.com/chemked/chemked/orcid"
	"github.com/chemked/chemked/schema"
)

var registry = orcid.Static{
	"0000-0003-4425-7097": {GivenName: "Kyle E", FamilyName: "Niemeyer"},
}

func runAuthor(t *testing.T, people orcid.Lookup, doc any) (schema.Issues, schema.Warnings) {
	t.Helper()
	return schema.Validate(context.Background(), schema.Author(), doc, people, nil)
}

func TestAuthorName(t *testing.T) {
	issues, _ := runAuthor(t, registry, map[string]any{"name": "Kyle E Niemeyer"})
	if len(issues) != 0 {
		t.Errorf("got %v", issues)
	}

	issues, _ = runAuthor(t, registry, map[string]any{})
	wantCode(t, issues, schema.CodeRequired, "/name")

	issues, _ = runAuthor(t, registry, map[string]any{"name": "  "})
	wantCode(t, issues, schema.CodeEmpty, "/name")
}

func TestAuthorORCIDAgreement(t *testing.T) {
	issues, _ := runAuthor(t, registry, map[string]any{
		"name":  "Kyle E Niemeyer",
		"ORCID": "0000-0003-4425-7097",
	})
	if len(issues) != 0 {
		t.Errorf("got %v", issues)
	}
}

func TestAuthorORCIDNameMismatch(t *testing.T) {
	issues, _ := runAuthor(t, registry, map[string]any{
		"name":  "Wrong Name",
		"ORCID": "0000-0003-4425-7097",
	})
	it, ok := findIssue(issues, schema.CodeNameMismatch)
	if !ok {
		t.Fatalf("no name mismatch: %v", issues)
	}
	if !strings.Contains(it.Message, `"Wrong Name"`) || !strings.Contains(it.Message, "Kyle E Niemeyer") {
		t.Errorf("message %q should name both sides", it.Message)
	}
}

func TestAuthorORCIDShape(t *testing.T) {
	issues, _ := runAuthor(t, registry, map[string]any{
		"name":  "Kyle E Niemeyer",
		"ORCID": "12-34",
	})
	wantCode(t, issues, schema.CodeParseError, "/ORCID")
}

func TestAuthorORCIDChecksum(t *testing.T) {
	issues, _ := runAuthor(t, registry, map[string]any{
		"name":  "Kyle E Niemeyer",
		"ORCID": "0000-0003-4425-7096",
	})
	wantCode(t, issues, schema.CodeBadChecksum, "/ORCID")
}

func TestAuthorORCIDUnknown(t *testing.T) {
	issues, _ := runAuthor(t, registry, map[string]any{
		"name":  "Josiah Carberry",
		"ORCID": "0000-0002-1825-0097",
	})
	wantCode(t, issues, schema.CodeUnknownIdentifier, "/ORCID")
}

func TestAuthorRegistryOutage(t *testing.T) {
	issues, warns := runAuthor(t, orcid.Offline{}, map[string]any{
		"name":  "Kyle E Niemeyer",
		"ORCID": "0000-0003-4425-7097",
	})
	if len(issues) != 0 {
		t.Fatalf("outage should not fail validation: %v", issues)
	}
	if len(warns) != 1 || !strings.Contains(warns[0].Message, "not validated") {
		t.Errorf("warnings = %v", warns)
	}
}
