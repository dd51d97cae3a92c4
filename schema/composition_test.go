package schema_test

import (
	"testing"

	"github.com/chemked/chemked/schema"
)

func species(name string, amount float64, extra map[string]any) map[string]any {
	sp := map[string]any{
		"species-name": name,
		"amount":       []any{amount},
	}
	for k, v := range extra {
		sp[k] = v
	}
	return sp
}

func TestCompositionValid(t *testing.T) {
	doc := map[string]any{
		"kind": "mole fraction",
		"species": []any{
			species("H2", 0.125, map[string]any{"InChI": "1S/H2/h1H"}),
			species("O2", 0.0625, nil),
			species("N2", 0.18125, nil),
			species("Ar", 0.63125, nil),
		},
	}
	issues, _ := run(t, schema.Composition(), doc)
	if len(issues) != 0 {
		t.Fatalf("got %v", issues)
	}
}

func TestCompositionMolePercent(t *testing.T) {
	doc := map[string]any{
		"kind": "mole percent",
		"species": []any{
			species("H2", 12.5, nil),
			species("O2", 6.25, nil),
			species("Ar", 81.25, nil),
		},
	}
	issues, _ := run(t, schema.Composition(), doc)
	if len(issues) != 0 {
		t.Fatalf("got %v", issues)
	}
}

func TestCompositionIdentityExclusive(t *testing.T) {
	doc := map[string]any{
		"kind": "mole fraction",
		"species": []any{
			species("H2", 1.0, map[string]any{
				"InChI":  "1S/H2/h1H",
				"SMILES": "[HH]",
			}),
		},
	}
	issues, _ := run(t, schema.Composition(), doc)
	wantCode(t, issues, schema.CodeExcluded, "/species/0")
}

func TestCompositionSumMismatch(t *testing.T) {
	doc := map[string]any{
		"kind": "mole fraction",
		"species": []any{
			species("H2", 0.5, nil),
			species("O2", 0.4, nil),
		},
	}
	issues, _ := run(t, schema.Composition(), doc)
	wantCode(t, issues, schema.CodeSumMismatch, "")
}

func TestCompositionAmountBounds(t *testing.T) {
	doc := map[string]any{
		"kind": "mole percent",
		"species": []any{
			species("H2", 150.0, nil),
		},
	}
	issues, _ := run(t, schema.Composition(), doc)
	wantCode(t, issues, schema.CodeBounds, "/species/0/amount")
}

func TestCompositionBadKind(t *testing.T) {
	doc := map[string]any{
		"kind":    "volume fraction",
		"species": []any{species("H2", 1.0, nil)},
	}
	issues, _ := run(t, schema.Composition(), doc)
	wantCode(t, issues, schema.CodeInvalidEnum, "/kind")
}

func TestCompositionAtomicBreakdown(t *testing.T) {
	doc := map[string]any{
		"kind": "mole fraction",
		"species": []any{
			species("nC7H16", 1.0, map[string]any{
				"atomic-composition": []any{
					map[string]any{"element": "C", "amount": 7.0},
					map[string]any{"element": "H", "amount": 16.0},
				},
			}),
		},
	}
	issues, _ := run(t, schema.Composition(), doc)
	if len(issues) != 0 {
		t.Fatalf("got %v", issues)
	}
}

func TestCloseEnough(t *testing.T) {
	if !schema.CloseEnough(1.0, 1.0+1e-9) {
		t.Error("1e-9 apart should be close")
	}
	if schema.CloseEnough(1.0, 1.01) {
		t.Error("1% apart should not be close")
	}
}
