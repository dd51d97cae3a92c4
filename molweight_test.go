package chemked_test

import (
	"testing"

	"github.com/chemked/chemked"
	"github.com/chemked/chemked/schema"
)

func TestMolecularWeightFromName(t *testing.T) {
	cases := []struct {
		name string
		want float64
	}{
		{"H2", 2.016},
		{"O2", 31.998},
		{"N2", 28.014},
		{"Ar", 39.95},
		{"CH4", 16.043},
		{"C7H16", 100.205},
	}
	for _, c := range cases {
		sp := chemked.SpeciesAmount{Name: c.name}
		got, err := sp.MolecularWeight()
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if !schema.CloseEnough(got, c.want) {
			t.Errorf("%s weight = %g, want %g", c.name, got, c.want)
		}
	}
}

func TestMolecularWeightFromInChI(t *testing.T) {
	sp := chemked.SpeciesAmount{
		Name:  "water",
		InChI: "InChI=1S/H2O/h1H2",
	}
	got, err := sp.MolecularWeight()
	if err != nil {
		t.Fatal(err)
	}
	if !schema.CloseEnough(got, 18.015) {
		t.Errorf("H2O weight = %g, want 18.015", got)
	}
}

func TestMolecularWeightFromAtoms(t *testing.T) {
	// name alone would not parse as a formula
	sp := chemked.SpeciesAmount{
		Name: "nC7H16",
		Atoms: []chemked.ElementAmount{
			{Element: "C", Amount: 7},
			{Element: "H", Amount: 16},
		},
	}
	got, err := sp.MolecularWeight()
	if err != nil {
		t.Fatal(err)
	}
	if !schema.CloseEnough(got, 100.205) {
		t.Errorf("n-heptane weight = %g, want 100.205", got)
	}
}

func TestMolecularWeightUnderivable(t *testing.T) {
	sp := chemked.SpeciesAmount{Name: "nC7H16"}
	if _, err := sp.MolecularWeight(); err == nil {
		t.Error("lowercase-led name should not parse as a formula")
	}

	sp = chemked.SpeciesAmount{Name: "Zz4"}
	if _, err := sp.MolecularWeight(); err == nil {
		t.Error("unknown element should fail")
	}
}
