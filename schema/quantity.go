package schema

import (
	"fmt"
	"strconv"

	"github.com/chemked/chemked/units"
)

// KindUnits maps a physical kind to the SI-compatible unit its values must
// be dimensionally consistent with.
var KindUnits = map[string]string{
	"temperature":            "kelvin",
	"pressure":               "pascal",
	"ignition-delay":         "second",
	"pressure-rise":          "1/s",
	"compression-time":       "second",
	"compressed-pressure":    "pascal",
	"compressed-temperature": "kelvin",
	"volume":                 "m**3",
	"time":                   "second",
	"stroke":                 "meter",
	"clearance":              "meter",
}

// QuantityRule validates the quantity wire form: a sequence whose first
// element is "magnitude unit" (or a bare number for dimensionless amounts),
// optionally followed by one uncertainty mapping.
type QuantityRule struct {
	kind      string // key into KindUnits; empty means dimensionless allowed
	allowBare bool   // first element may be a bare number
	positive  bool
}

// Quantity returns a rule for a value of the given physical kind.
// Values of every kind listed in KindUnits must be strictly positive.
func Quantity(kind string) *QuantityRule {
	if _, ok := KindUnits[kind]; !ok {
		panic("schema: unknown quantity kind " + kind)
	}
	return &QuantityRule{kind: kind, positive: true}
}

// Amount returns a rule for a composition amount: a dimensionless number
// (bare or with an explicit fraction spelling), bounds checked separately by
// the composition rule.
func Amount() *QuantityRule { return &QuantityRule{allowBare: true} }

func (r *QuantityRule) Check(cx *Context, path string, v any) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		cx.Errorf(at(path), CodeInvalidType, "expected sequence of value and optional uncertainty")
		return
	}
	if len(items) > 2 {
		cx.Errorf(at(path), CodeTooBig, "at most one uncertainty entry allowed")
		return
	}

	q, err := parseMagnitude(items[0], r.allowBare)
	if err != nil {
		cx.Issue(Issue{Path: path + "/0", Code: CodeParseError, Message: err.Error(), Cause: err})
		return
	}

	if r.kind != "" {
		expect, _ := units.Parse(KindUnits[r.kind])
		if q.Unit.Dimension() != expect.Dimension() {
			cx.Issue(Issue{Path: path + "/0", Code: CodeDimensionMismatch,
				Message: fmt.Sprintf("incompatible units %q; should be consistent with %s", q.Unit, KindUnits[r.kind])})
			return
		}
		if r.positive {
			si, _ := q.Value(KindUnits[r.kind])
			if si <= 0 {
				cx.Errorf(path+"/0", CodeBounds, "value must be greater than 0 %s", KindUnits[r.kind])
			}
		}
	}

	if len(items) == 2 {
		r.checkUncertainty(cx, path+"/1", items[1], q)
	}
}

func (r *QuantityRule) checkUncertainty(cx *Context, path string, v any, q units.Quantity) {
	m, ok := AsMap(v)
	if !ok {
		cx.Errorf(path, CodeInvalidType, "expected uncertainty mapping")
		return
	}
	kindV, ok := m["uncertainty-type"]
	if !ok {
		cx.Errorf(path+"/uncertainty-type", CodeRequired, "required field missing")
		return
	}
	kind, _ := kindV.(string)
	if kind != string(units.Absolute) && kind != string(units.Relative) {
		cx.Issue(Issue{Path: path + "/uncertainty-type", Code: CodeInvalidEnum,
			Message: fmt.Sprintf("illegal value %q", kindV), Hint: "allowed values: absolute, relative"})
		return
	}

	_, hasSym := m["uncertainty"]
	_, hasUpper := m["upper-uncertainty"]
	_, hasLower := m["lower-uncertainty"]
	switch {
	case hasSym && (hasUpper || hasLower):
		cx.Errorf(path, CodeExcluded, "uncertainty and upper/lower-uncertainty are mutually exclusive")
		return
	case !hasSym && !hasUpper && !hasLower:
		cx.Errorf(path, CodeRequired, "one of uncertainty or upper-uncertainty with lower-uncertainty is required")
		return
	case hasUpper != hasLower:
		cx.Errorf(path, CodeRequiredWith, "upper-uncertainty and lower-uncertainty must be given together")
		return
	}

	for _, key := range []string{"uncertainty", "upper-uncertainty", "lower-uncertainty"} {
		uv, present := m[key]
		if !present {
			continue
		}
		uq, err := parseMagnitude(uv, true)
		if err != nil {
			cx.Issue(Issue{Path: path + "/" + key, Code: CodeParseError, Message: err.Error(), Cause: err})
			continue
		}
		if kind == string(units.Relative) {
			if !uq.Unit.Dimension().IsZero() {
				cx.Errorf(path+"/"+key, CodeDimensionMismatch, "relative uncertainty must be dimensionless")
			}
			continue
		}
		// absolute: must share the magnitude's dimension
		if uq.Unit.Dimension() != q.Unit.Dimension() {
			cx.Issue(Issue{Path: path + "/" + key, Code: CodeDimensionMismatch,
				Message: fmt.Sprintf("uncertainty units %q incompatible with value units %q", uq.Unit, q.Unit)})
		}
	}

	for k := range m {
		switch k {
		case "uncertainty-type", "uncertainty", "upper-uncertainty", "lower-uncertainty":
		default:
			cx.Errorf(path+"/"+k, CodeUnknownKey, "unknown key")
		}
	}
}

func parseMagnitude(v any, allowBare bool) (units.Quantity, error) {
	switch t := v.(type) {
	case string:
		return units.ParseQuantity(t)
	case float64:
		if !allowBare {
			return units.Quantity{}, fmt.Errorf("expected \"magnitude unit\" string, got bare number")
		}
		return units.Quantity{Magnitude: t, Unit: units.Dimensionless()}, nil
	case int:
		if !allowBare {
			return units.Quantity{}, fmt.Errorf("expected \"magnitude unit\" string, got bare number")
		}
		return units.Quantity{Magnitude: float64(t), Unit: units.Dimensionless()}, nil
	default:
		return units.Quantity{}, fmt.Errorf("expected quantity string, got %T", v)
	}
}

// BuildQuantity constructs a units.Quantity from the validated wire form.
// An asymmetric uncertainty pair is collapsed to the larger magnitude as a
// symmetric uncertainty; the collapse is reported through the returned
// warnings rather than silently applied.
func BuildQuantity(v any) (units.Quantity, Warnings, error) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return units.Quantity{}, nil, fmt.Errorf("schema: malformed quantity node %v", v)
	}
	q, err := parseMagnitude(items[0], true)
	if err != nil {
		return units.Quantity{}, nil, err
	}
	if len(items) < 2 {
		return q, nil, nil
	}
	m, ok := AsMap(items[1])
	if !ok {
		return units.Quantity{}, nil, fmt.Errorf("schema: malformed uncertainty node %v", items[1])
	}
	kind := units.UncertaintyKind(m["uncertainty-type"].(string))

	var warns Warnings
	var value float64
	if uv, ok := m["uncertainty"]; ok {
		value, err = uncertaintyValue(uv, kind, q)
		if err != nil {
			return units.Quantity{}, nil, err
		}
	} else {
		upper, err := uncertaintyValue(m["upper-uncertainty"], kind, q)
		if err != nil {
			return units.Quantity{}, nil, err
		}
		lower, err := uncertaintyValue(m["lower-uncertainty"], kind, q)
		if err != nil {
			return units.Quantity{}, nil, err
		}
		value = upper
		if lower > value {
			value = lower
		}
		warns = append(warns, Warning{Message: "asymmetric uncertainties are not supported; the larger of lower-uncertainty and upper-uncertainty has been used as the symmetric uncertainty"})
	}
	q.Uncertainty = &units.Uncertainty{Kind: kind, Value: value}
	return q, warns, nil
}

// uncertaintyValue evaluates one uncertainty entry in the unit of the parent
// magnitude (absolute) or as a plain fraction (relative).
func uncertaintyValue(v any, kind units.UncertaintyKind, q units.Quantity) (float64, error) {
	uq, err := parseMagnitude(v, true)
	if err != nil {
		return 0, err
	}
	if kind == units.Relative {
		return uq.Magnitude, nil
	}
	if uq.Unit.Dimension().IsZero() && !q.Unit.Dimension().IsZero() {
		// bare number rides along in the parent's unit
		return uq.Magnitude, nil
	}
	conv, err := uq.ConvertTo(q.Unit.String())
	if err != nil {
		return 0, err
	}
	return conv.Magnitude, nil
}

// FormatAmount renders a plain number the way composition strings expect.
func FormatAmount(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
