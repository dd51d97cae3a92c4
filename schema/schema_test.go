package schema_test

import (
	"context"
	"strings"
	"testing"

	"github.com/chemked/chemked/schema"
)

func run(t *testing.T, r schema.Rule, doc any) (schema.Issues, schema.Warnings) {
	t.Helper()
	return schema.Validate(context.Background(), r, doc, nil, nil)
}

func findIssue(issues schema.Issues, code string) (schema.Issue, bool) {
	for _, it := range issues {
		if it.Code == code {
			return it, true
		}
	}
	return schema.Issue{}, false
}

func wantCode(t *testing.T, issues schema.Issues, code, pathPart string) {
	t.Helper()
	it, ok := findIssue(issues, code)
	if !ok {
		t.Fatalf("no %s issue in %v", code, issues)
	}
	if pathPart != "" && !strings.Contains(it.Path, pathPart) {
		t.Errorf("issue path %q does not mention %q", it.Path, pathPart)
	}
}

func TestObjectRequired(t *testing.T) {
	r := schema.Object().
		Field("name", schema.String().NonEmpty()).Required().
		Field("note", schema.String()).Optional()

	issues, _ := run(t, r, map[string]any{"note": "hi"})
	wantCode(t, issues, schema.CodeRequired, "/name")

	issues, _ = run(t, r, map[string]any{"name": "ok"})
	if len(issues) != 0 {
		t.Errorf("valid document produced issues: %v", issues)
	}
}

func TestObjectUnknownKey(t *testing.T) {
	r := schema.Object().Field("name", schema.String()).Required()
	issues, _ := run(t, r, map[string]any{"name": "x", "surprise": 1})
	wantCode(t, issues, schema.CodeUnknownKey, "/surprise")

	issues, _ = run(t, r.AllowUnknown(), map[string]any{"name": "x", "surprise": 1})
	if len(issues) != 0 {
		t.Errorf("AllowUnknown still rejected: %v", issues)
	}
}

func TestObjectExclusive(t *testing.T) {
	r := schema.Object().
		Field("a", schema.Any()).Optional().
		Field("b", schema.Any()).Optional().
		Exclusive("a", "b")
	issues, _ := run(t, r, map[string]any{"a": 1, "b": 2})
	wantCode(t, issues, schema.CodeExcluded, "")
}

func TestObjectOneOf(t *testing.T) {
	r := schema.Object().
		Field("a", schema.Any()).Optional().
		Field("b", schema.Any()).Optional().
		OneOf("a", "b")
	issues, _ := run(t, r, map[string]any{})
	wantCode(t, issues, schema.CodeRequired, "")
}

func TestObjectRequiresWith(t *testing.T) {
	r := schema.Object().
		Field("upper", schema.Any()).Optional().
		Field("lower", schema.Any()).Optional().
		RequiresWith("upper", "lower")
	issues, _ := run(t, r, map[string]any{"upper": 1})
	wantCode(t, issues, schema.CodeRequiredWith, "/upper")
}

func TestObjectLegacyYAMLKeys(t *testing.T) {
	r := schema.Object().Field("name", schema.String()).Required()
	issues, _ := run(t, r, map[any]any{"name": "x"})
	if len(issues) != 0 {
		t.Errorf("interface-keyed mapping rejected: %v", issues)
	}
}

func TestRefineSkippedOnStructuralIssue(t *testing.T) {
	called := false
	r := schema.Object().
		Field("name", schema.String()).Required().
		Refine(func(cx *schema.Context, path string, m map[string]any) { called = true })
	run(t, r, map[string]any{})
	if called {
		t.Error("refine ran despite a structural issue")
	}
	run(t, r, map[string]any{"name": "x"})
	if !called {
		t.Error("refine did not run on a clean object")
	}
}

func TestStringEnum(t *testing.T) {
	r := schema.String().Enum("max", "min")
	issues, _ := run(t, r, "other")
	it, ok := findIssue(issues, schema.CodeInvalidEnum)
	if !ok {
		t.Fatalf("no enum issue: %v", issues)
	}
	if !strings.Contains(it.Hint, "max, min") {
		t.Errorf("hint %q should list the allowed values", it.Hint)
	}

	if issues, _ := run(t, r, "max"); len(issues) != 0 {
		t.Errorf("allowed value rejected: %v", issues)
	}
	issues, _ = run(t, r, 7)
	wantCode(t, issues, schema.CodeInvalidType, "")
}

func TestStringPattern(t *testing.T) {
	r := schema.String().Pattern(`^\d{4}-\d{4}$`)
	issues, _ := run(t, r, "1234-5678")
	if len(issues) != 0 {
		t.Errorf("matching value rejected: %v", issues)
	}
	issues, _ = run(t, r, "12345678")
	wantCode(t, issues, schema.CodeParseError, "")
}

func TestIntBounds(t *testing.T) {
	r := schema.Int().Min(1601)
	issues, _ := run(t, r, 1600)
	wantCode(t, issues, schema.CodeTooSmall, "")
	if issues, _ := run(t, r, 2007); len(issues) != 0 {
		t.Errorf("got %v", issues)
	}

	issues, _ = run(t, schema.Int().Max(1), 2)
	wantCode(t, issues, schema.CodeTooBig, "")
}

func TestListNonEmpty(t *testing.T) {
	r := schema.List(schema.String()).NonEmpty()
	issues, _ := run(t, r, []any{})
	wantCode(t, issues, schema.CodeEmpty, "")

	issues, _ = run(t, r, []any{"a", 2})
	wantCode(t, issues, schema.CodeInvalidType, "/1")
}

func TestIssuesError(t *testing.T) {
	issues := schema.Issues{
		{Path: "/a", Code: schema.CodeRequired, Message: "required field missing"},
	}
	msg := issues.Error()
	if !strings.Contains(msg, "/a") || !strings.Contains(msg, "required field missing") {
		t.Errorf("Error() = %q", msg)
	}
}

func TestRebase(t *testing.T) {
	issues := schema.Issues{{Path: "/name", Code: schema.CodeRequired}}
	moved := issues.Rebase("/datapoints/0")
	if moved[0].Path != "/datapoints/0/name" {
		t.Errorf("Rebase path = %q", moved[0].Path)
	}
}
