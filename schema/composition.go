package schema

import (
	"fmt"
	"math"
)

// CompositionKinds are the legal mixture bases.
var CompositionKinds = []string{"mass fraction", "mole fraction", "mole percent"}

// Composition returns the rule for a mixture specification: a kind and a
// non-empty species list whose identity fields are mutually exclusive and
// whose amounts lie in the kind's bounds and sum to the kind's total.
func Composition() *ObjectRule {
	atom := Object().
		Field("element", String().NonEmpty()).Required().
		Field("amount", Float().Min(0)).Required()
	species := Object().
		Field("species-name", String().NonEmpty()).Required().
		Field("InChI", String().NonEmpty()).Optional().
		Field("SMILES", String().NonEmpty()).Optional().
		Field("atomic-composition", List(atom).NonEmpty()).Optional().
		Field("amount", Amount()).Required().
		Exclusive("InChI", "SMILES", "atomic-composition")
	return Object().
		Field("kind", String().Enum(CompositionKinds...)).Required().
		Field("species", List(species).NonEmpty()).Required().
		Refine(checkAmounts)
}

func checkAmounts(cx *Context, path string, m map[string]any) {
	kind, _ := m["kind"].(string)
	total := 1.0
	if kind == "mole percent" {
		total = 100.0
	}

	items, _ := m["species"].([]any)
	sum := 0.0
	for i, it := range items {
		sp, ok := AsMap(it)
		if !ok {
			continue
		}
		q, _, err := BuildQuantity(sp["amount"])
		if err != nil {
			continue // reported by the structural pass
		}
		name, _ := sp["species-name"].(string)
		amount := q.Magnitude
		sum += amount
		p := fmt.Sprintf("%s/species/%d/amount", path, i)
		if amount < 0 {
			cx.Errorf(p, CodeBounds, "species %s %s must be greater than 0.0", name, kind)
		} else if amount > total {
			cx.Errorf(p, CodeBounds, "species %s %s must be less than %.1f", name, kind, total)
		}
	}
	if !CloseEnough(sum, total) {
		cx.Errorf(at(path), CodeSumMismatch, "species %ss do not sum to %.1f: %f", kind, total, sum)
	}
}

// CloseEnough is the shared floating-point tolerance for composition sums
// and round-trip comparisons.
func CloseEnough(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}
