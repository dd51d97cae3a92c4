// Package units provides the dimensional-quantity model for ChemKED
// documents: a small registry of named units, parsing of compound unit
// expressions ("cm**3", "1/ms"), dimensional-compatibility checks, and
// magnitude conversion.
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimension is a vector of base-dimension exponents. Two units are
// compatible exactly when their dimensions are equal.
type Dimension struct {
	Length      int8
	Mass        int8
	Time        int8
	Temperature int8
	Amount      int8
}

// IsZero reports whether the dimension is dimensionless.
func (d Dimension) IsZero() bool { return d == Dimension{} }

func (d Dimension) String() string {
	if d.IsZero() {
		return "dimensionless"
	}
	b := &strings.Builder{}
	for _, c := range []struct {
		sym string
		exp int8
	}{
		{"L", d.Length}, {"M", d.Mass}, {"T", d.Time},
		{"Θ", d.Temperature}, {"N", d.Amount},
	} {
		if c.exp == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if c.exp == 1 {
			b.WriteString(c.sym)
		} else {
			fmt.Fprintf(b, "%s^%d", c.sym, c.exp)
		}
	}
	return b.String()
}

func (d Dimension) mul(o Dimension, sign int8) Dimension {
	return Dimension{
		Length:      d.Length + sign*o.Length,
		Mass:        d.Mass + sign*o.Mass,
		Time:        d.Time + sign*o.Time,
		Temperature: d.Temperature + sign*o.Temperature,
		Amount:      d.Amount + sign*o.Amount,
	}
}

func (d Dimension) pow(n int8) Dimension {
	return Dimension{
		Length:      d.Length * n,
		Mass:        d.Mass * n,
		Time:        d.Time * n,
		Temperature: d.Temperature * n,
		Amount:      d.Amount * n,
	}
}

// Unit is a parsed unit expression. Factor converts a magnitude in this unit
// to SI base units; Offset is non-zero only for affine temperature scales and
// only legal on simple (single-term) units.
type Unit struct {
	expr   string
	dim    Dimension
	factor float64
	offset float64
}

// Dimension returns the unit's dimension vector.
func (u Unit) Dimension() Dimension { return u.dim }

// String returns the expression the unit was parsed from.
func (u Unit) String() string { return u.expr }

// Compatible reports whether a magnitude in u can be converted to target.
func (u Unit) Compatible(target Unit) bool { return u.dim == target.dim }

type entry struct {
	dim    Dimension
	factor float64
	offset float64
}

var (
	dimTime        = Dimension{Time: 1}
	dimTemperature = Dimension{Temperature: 1}
	dimPressure    = Dimension{Length: -1, Mass: 1, Time: -2}
	dimLength      = Dimension{Length: 1}
	dimMass        = Dimension{Mass: 1}
	dimAmount      = Dimension{Amount: 1}
	dimVolume      = Dimension{Length: 3}
)

// registry maps unit spellings to their SI definitions. Spellings follow the
// document format convention (case-sensitive, with the historical "Torr"
// spelling accepted alongside "torr").
var registry = map[string]entry{
	"":              {Dimension{}, 1, 0},
	"1":             {Dimension{}, 1, 0},
	"dimensionless": {Dimension{}, 1, 0},

	"s":       {dimTime, 1, 0},
	"second":  {dimTime, 1, 0},
	"seconds": {dimTime, 1, 0},
	"ms":      {dimTime, 1e-3, 0},
	"us":      {dimTime, 1e-6, 0},
	"ns":      {dimTime, 1e-9, 0},
	"min":     {dimTime, 60, 0},
	"hr":      {dimTime, 3600, 0},

	"K":       {dimTemperature, 1, 0},
	"kelvin":  {dimTemperature, 1, 0},
	"degC":    {dimTemperature, 1, 273.15},
	"celsius": {dimTemperature, 1, 273.15},
	"degF":    {dimTemperature, 5.0 / 9.0, 255.3722222222222},
	"degR":    {dimTemperature, 5.0 / 9.0, 0},

	"Pa":     {dimPressure, 1, 0},
	"pascal": {dimPressure, 1, 0},
	"kPa":    {dimPressure, 1e3, 0},
	"MPa":    {dimPressure, 1e6, 0},
	"GPa":    {dimPressure, 1e9, 0},
	"bar":    {dimPressure, 1e5, 0},
	"mbar":   {dimPressure, 1e2, 0},
	"atm":    {dimPressure, 101325, 0},
	"torr":   {dimPressure, 101325.0 / 760.0, 0},
	"Torr":   {dimPressure, 101325.0 / 760.0, 0},
	"psi":    {dimPressure, 6894.757293168361, 0},

	"m":     {dimLength, 1, 0},
	"meter": {dimLength, 1, 0},
	"cm":    {dimLength, 1e-2, 0},
	"mm":    {dimLength, 1e-3, 0},
	"km":    {dimLength, 1e3, 0},
	"in":    {dimLength, 0.0254, 0},
	"inch":  {dimLength, 0.0254, 0},
	"ft":    {dimLength, 0.3048, 0},

	"kg": {dimMass, 1, 0},
	"g":  {dimMass, 1e-3, 0},
	"mg": {dimMass, 1e-6, 0},

	"mol":  {dimAmount, 1, 0},
	"mole": {dimAmount, 1, 0},
	"kmol": {dimAmount, 1e3, 0},

	"L":     {dimVolume, 1e-3, 0},
	"l":     {dimVolume, 1e-3, 0},
	"liter": {dimVolume, 1e-3, 0},

	"Hz": {Dimension{Time: -1}, 1, 0},
}

// Dimensionless is the unit of a bare number.
func Dimensionless() Unit { return Unit{expr: "", factor: 1} }

// Parse parses a unit expression. Terms are separated by "*" and "/"; an
// exponent may be attached with "**" or "^" (e.g. "m**3", "cm^2"). The
// leading term "1" denotes unity, so reciprocal units read "1/ms". Affine
// temperature scales are only legal as a whole expression.
func Parse(expr string) (Unit, error) {
	s := strings.TrimSpace(expr)
	if e, ok := registry[s]; ok {
		return Unit{expr: s, dim: e.dim, factor: e.factor, offset: e.offset}, nil
	}

	u := Unit{expr: s, factor: 1}
	sign := int8(1)
	rest := s
	for rest != "" {
		i := strings.IndexAny(rest, "*/")
		// "**" is an exponent marker, not a separator
		for i >= 0 && rest[i] == '*' && i+1 < len(rest) && rest[i+1] == '*' {
			j := strings.IndexAny(rest[i+2:], "*/")
			if j < 0 {
				i = -1
			} else {
				i = i + 2 + j
			}
		}
		var term string
		var nextSign int8
		if i < 0 {
			term, rest = rest, ""
		} else {
			term = rest[:i]
			if rest[i] == '/' {
				nextSign = -1
			} else {
				nextSign = 1
			}
			rest = rest[i+1:]
		}

		name, exp, err := splitExponent(strings.TrimSpace(term))
		if err != nil {
			return Unit{}, fmt.Errorf("units: %q: %w", s, err)
		}
		e, ok := registry[name]
		if !ok {
			return Unit{}, fmt.Errorf("units: unknown unit %q in %q", name, s)
		}
		if e.offset != 0 {
			return Unit{}, fmt.Errorf("units: affine unit %q not allowed in compound expression %q", name, s)
		}
		u.dim = u.dim.mul(e.dim.pow(exp), sign)
		f := pow(e.factor, int(exp))
		if sign > 0 {
			u.factor *= f
		} else {
			u.factor /= f
		}
		sign = nextSign
	}
	return u, nil
}

func splitExponent(term string) (string, int8, error) {
	name := term
	exp := "1"
	if i := strings.Index(term, "**"); i >= 0 {
		name, exp = term[:i], term[i+2:]
	} else if i := strings.Index(term, "^"); i >= 0 {
		name, exp = term[:i], term[i+1:]
	}
	n, err := strconv.Atoi(strings.TrimSpace(exp))
	if err != nil || n == 0 || n > 6 || n < -6 {
		return "", 0, fmt.Errorf("bad exponent %q", exp)
	}
	return strings.TrimSpace(name), int8(n), nil
}

func pow(base float64, n int) float64 {
	if n < 0 {
		return 1 / pow(base, -n)
	}
	out := 1.0
	for ; n > 0; n-- {
		out *= base
	}
	return out
}
