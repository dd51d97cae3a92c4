package units

import (
	"fmt"
	"strconv"
	"strings"
)

// UncertaintyKind distinguishes absolute from relative uncertainty.
type UncertaintyKind string

const (
	Absolute UncertaintyKind = "absolute"
	Relative UncertaintyKind = "relative"
)

// Uncertainty is a symmetric measurement uncertainty. An absolute value is
// expressed in the magnitude's own unit; a relative value is a fraction.
type Uncertainty struct {
	Kind  UncertaintyKind
	Value float64
}

// Quantity pairs a magnitude with a unit and an optional uncertainty.
// Quantities are value objects; conversion returns a new Quantity.
type Quantity struct {
	Magnitude   float64
	Unit        Unit
	Uncertainty *Uncertainty
}

// New builds a Quantity from a magnitude and a unit expression.
func New(magnitude float64, expr string) (Quantity, error) {
	u, err := Parse(expr)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Magnitude: magnitude, Unit: u}, nil
}

// MustNew is New for statically known unit expressions.
func MustNew(magnitude float64, expr string) Quantity {
	q, err := New(magnitude, expr)
	if err != nil {
		panic(err)
	}
	return q
}

// ParseQuantity parses the "magnitude unit" wire form, e.g. "220 kPa".
// A bare number parses as a dimensionless quantity.
func ParseQuantity(s string) (Quantity, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return Quantity{}, fmt.Errorf("units: empty quantity")
	}
	mag, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("units: bad magnitude in %q: %w", s, err)
	}
	return New(mag, strings.Join(fields[1:], " "))
}

// ConvertTo returns the quantity expressed in the target unit. The stored
// quantity is not mutated. A relative uncertainty carries over unchanged; an
// absolute one is scaled (never shifted, offsets do not apply to intervals).
func (q Quantity) ConvertTo(expr string) (Quantity, error) {
	target, err := Parse(expr)
	if err != nil {
		return Quantity{}, err
	}
	if !q.Unit.Compatible(target) {
		return Quantity{}, fmt.Errorf("units: cannot convert %s (%s) to %s (%s)",
			q.Unit, q.Unit.dim, target, target.dim)
	}
	si := q.Magnitude*q.Unit.factor + q.Unit.offset
	out := Quantity{
		Magnitude: (si - target.offset) / target.factor,
		Unit:      target,
	}
	if q.Uncertainty != nil {
		u := *q.Uncertainty
		if u.Kind == Absolute {
			u.Value = u.Value * q.Unit.factor / target.factor
		}
		out.Uncertainty = &u
	}
	return out, nil
}

// Value returns the magnitude converted to the target unit.
func (q Quantity) Value(expr string) (float64, error) {
	c, err := q.ConvertTo(expr)
	if err != nil {
		return 0, err
	}
	return c.Magnitude, nil
}

// AbsoluteError returns the absolute uncertainty magnitude in the quantity's
// own unit, and whether an uncertainty is present.
func (q Quantity) AbsoluteError() (float64, bool) {
	if q.Uncertainty == nil {
		return 0, false
	}
	if q.Uncertainty.Kind == Relative {
		return q.Uncertainty.Value * q.Magnitude, true
	}
	return q.Uncertainty.Value, true
}

func (q Quantity) String() string {
	s := strconv.FormatFloat(q.Magnitude, 'g', -1, 64)
	if q.Unit.expr != "" {
		s += " " + q.Unit.expr
	}
	return s
}
