package chemked

import (
	"fmt"
	"strconv"
	"strings"
)

// Standard atomic weights (g/mol), CIAAW 2021 abridged values, covering the
// elements that occur in combustion mixtures.
var atomicWeights = map[string]float64{
	"H": 1.008, "He": 4.0026, "Li": 6.94, "Be": 9.0122, "B": 10.81,
	"C": 12.011, "N": 14.007, "O": 15.999, "F": 18.998, "Ne": 20.180,
	"Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.085, "P": 30.974,
	"S": 32.06, "Cl": 35.45, "Ar": 39.95, "K": 39.098, "Ca": 40.078,
	"Br": 79.904, "Kr": 83.798, "I": 126.90, "Xe": 131.29,
}

// MolecularWeight derives the species' molecular weight in g/mol. The
// atomic-composition breakdown wins when given; otherwise the formula layer
// of the InChI is parsed; as a last resort the species name itself is read
// as a chemical formula.
func (s SpeciesAmount) MolecularWeight() (float64, error) {
	if len(s.Atoms) > 0 {
		total := 0.0
		for _, a := range s.Atoms {
			w, ok := atomicWeights[a.Element]
			if !ok {
				return 0, fmt.Errorf("chemked: no atomic weight for element %q", a.Element)
			}
			total += w * a.Amount
		}
		return total, nil
	}
	if s.InChI != "" {
		formula, err := inchiFormula(s.InChI)
		if err != nil {
			return 0, err
		}
		return formulaWeight(formula)
	}
	w, err := formulaWeight(s.Name)
	if err != nil {
		return 0, fmt.Errorf("chemked: cannot derive molecular weight of %q: %w", s.Name, err)
	}
	return w, nil
}

// inchiFormula extracts the formula layer, the segment after the version
// prefix (for example 1S/H2O/h1H2 yields H2O).
func inchiFormula(inchi string) (string, error) {
	s := strings.TrimPrefix(inchi, "InChI=")
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("chemked: InChI %q has no formula layer", inchi)
	}
	return parts[1], nil
}

// formulaWeight sums atomic weights over a Hill-style formula such as C7H16.
// Dotted components (for example CH4.H2O) are summed; parentheses are not
// supported.
func formulaWeight(formula string) (float64, error) {
	total := 0.0
	for _, part := range strings.Split(formula, ".") {
		w, err := plainFormulaWeight(part)
		if err != nil {
			return 0, err
		}
		total += w
	}
	return total, nil
}

func plainFormulaWeight(formula string) (float64, error) {
	total := 0.0
	i := 0
	for i < len(formula) {
		c := formula[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("unexpected character %q in formula %q", c, formula)
		}
		sym := string(c)
		i++
		if i < len(formula) && formula[i] >= 'a' && formula[i] <= 'z' {
			sym += string(formula[i])
			i++
		}
		w, ok := atomicWeights[sym]
		if !ok {
			return 0, fmt.Errorf("no atomic weight for element %q in formula %q", sym, formula)
		}
		start := i
		for i < len(formula) && formula[i] >= '0' && formula[i] <= '9' {
			i++
		}
		count := 1
		if i > start {
			n, err := strconv.Atoi(formula[start:i])
			if err != nil || n == 0 {
				return 0, fmt.Errorf("bad element count in formula %q", formula)
			}
			count = n
		}
		total += w * float64(count)
	}
	if total == 0 {
		return 0, fmt.Errorf("empty formula")
	}
	return total, nil
}
