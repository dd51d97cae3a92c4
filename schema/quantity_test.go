package schema_test

import (
	"strings"
	"testing"

	"github.com/chemked/chemked/schema"
	"github.com/chemked/chemked/units"
)

func TestQuantityWellFormed(t *testing.T) {
	r := schema.Quantity("temperature")
	issues, _ := run(t, r, []any{"297.4 kelvin"})
	if len(issues) != 0 {
		t.Fatalf("got %v", issues)
	}

	issues, _ = run(t, r, []any{"297.4 kelvin", map[string]any{
		"uncertainty-type": "absolute",
		"uncertainty":      "5 kelvin",
	}})
	if len(issues) != 0 {
		t.Fatalf("with uncertainty: %v", issues)
	}
}

func TestQuantityDimensionMismatch(t *testing.T) {
	issues, _ := run(t, schema.Quantity("temperature"), []any{"100 kPa"})
	it, ok := findIssue(issues, schema.CodeDimensionMismatch)
	if !ok {
		t.Fatalf("no dimension issue: %v", issues)
	}
	if !strings.Contains(it.Message, "kelvin") {
		t.Errorf("message %q should name the expected unit", it.Message)
	}
}

func TestQuantityMalformed(t *testing.T) {
	r := schema.Quantity("pressure")

	issues, _ := run(t, r, "958 torr")
	wantCode(t, issues, schema.CodeInvalidType, "")

	issues, _ = run(t, r, []any{"banana torr"})
	wantCode(t, issues, schema.CodeParseError, "/0")

	issues, _ = run(t, r, []any{958.0})
	wantCode(t, issues, schema.CodeParseError, "/0")

	issues, _ = run(t, r, []any{"958 torr", map[string]any{}, map[string]any{}})
	wantCode(t, issues, schema.CodeTooBig, "")
}

func TestQuantityPositive(t *testing.T) {
	issues, _ := run(t, schema.Quantity("temperature"), []any{"-10 K"})
	wantCode(t, issues, schema.CodeBounds, "/0")

	issues, _ = run(t, schema.Quantity("pressure"), []any{"0 Pa"})
	wantCode(t, issues, schema.CodeBounds, "/0")
}

func TestUncertaintyForms(t *testing.T) {
	r := schema.Quantity("temperature")

	issues, _ := run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type": "relative",
		"uncertainty":      0.01,
	}})
	if len(issues) != 0 {
		t.Errorf("relative: %v", issues)
	}

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type":  "absolute",
		"upper-uncertainty": "5 K",
		"lower-uncertainty": "3 K",
	}})
	if len(issues) != 0 {
		t.Errorf("asymmetric pair: %v", issues)
	}

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type":  "absolute",
		"uncertainty":       "5 K",
		"upper-uncertainty": "5 K",
		"lower-uncertainty": "3 K",
	}})
	wantCode(t, issues, schema.CodeExcluded, "")

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type":  "absolute",
		"upper-uncertainty": "5 K",
	}})
	wantCode(t, issues, schema.CodeRequiredWith, "")

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type": "absolute",
	}})
	wantCode(t, issues, schema.CodeRequired, "")

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type": "sorta",
		"uncertainty":      "5 K",
	}})
	wantCode(t, issues, schema.CodeInvalidEnum, "/uncertainty-type")

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type": "absolute",
		"uncertainty":      "5 Pa",
	}})
	wantCode(t, issues, schema.CodeDimensionMismatch, "/uncertainty")

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type": "relative",
		"uncertainty":      "5 K",
	}})
	wantCode(t, issues, schema.CodeDimensionMismatch, "/uncertainty")

	issues, _ = run(t, r, []any{"300 K", map[string]any{
		"uncertainty-type": "absolute",
		"uncertainty":      "5 K",
		"comment":          "tight",
	}})
	wantCode(t, issues, schema.CodeUnknownKey, "/comment")
}

func TestBuildQuantity(t *testing.T) {
	q, warns, err := schema.BuildQuantity([]any{"958.0 torr"})
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if kPa, _ := q.Value("kPa"); !schema.CloseEnough(kPa, 127.72283) {
		t.Errorf("958 torr = %g kPa", kPa)
	}
}

func TestBuildQuantitySymmetricUncertainty(t *testing.T) {
	q, warns, err := schema.BuildQuantity([]any{"300 K", map[string]any{
		"uncertainty-type": "absolute",
		"uncertainty":      "5 K",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %v", warns)
	}
	if q.Uncertainty == nil || q.Uncertainty.Kind != units.Absolute || q.Uncertainty.Value != 5 {
		t.Errorf("uncertainty = %+v", q.Uncertainty)
	}
}

func TestBuildQuantityAsymmetricCollapse(t *testing.T) {
	q, warns, err := schema.BuildQuantity([]any{"300 K", map[string]any{
		"uncertainty-type":  "absolute",
		"upper-uncertainty": "5 K",
		"lower-uncertainty": "3 K",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if q.Uncertainty == nil || q.Uncertainty.Value != 5 {
		t.Fatalf("collapsed uncertainty = %+v, want 5", q.Uncertainty)
	}
	if len(warns) != 1 || !strings.Contains(warns[0].Message, "asymmetric uncertainties are not supported") {
		t.Errorf("warnings = %v", warns)
	}

	// larger side wins regardless of order
	q, _, err = schema.BuildQuantity([]any{"300 K", map[string]any{
		"uncertainty-type":  "absolute",
		"upper-uncertainty": "2 K",
		"lower-uncertainty": "6 K",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if q.Uncertainty.Value != 6 {
		t.Errorf("collapsed uncertainty = %g, want 6", q.Uncertainty.Value)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.125, "0.125"},
		{0.18125, "0.18125"},
		{1, "1"},
	}
	for _, c := range cases {
		if got := schema.FormatAmount(c.in); got != c.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
