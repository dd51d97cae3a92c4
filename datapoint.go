package chemked

import (
	"fmt"
	"strings"

	"github.com/chemked/chemked/schema"
	"github.com/chemked/chemked/units"
)

// IgnitionType defines how the ignition delay was determined: which signal
// was observed and which feature of it marks ignition.
type IgnitionType struct {
	Target string
	Type   string
}

// ElementAmount is one entry of an atomic-composition breakdown.
type ElementAmount struct {
	Element string
	Amount  float64
}

// SpeciesAmount is one species of a mixture. At most one of InChI, SMILES,
// and Atoms identifies the species beyond its name.
type SpeciesAmount struct {
	Name   string
	InChI  string
	SMILES string
	Atoms  []ElementAmount
	Amount units.Quantity
}

// Composition is a mixture specification in one of the three bases.
type Composition struct {
	Kind    string // mole fraction, mass fraction, or mole percent
	Species []SpeciesAmount
}

// Column locates one variable of a time history in its values table.
type Column struct {
	Units string
	Index int
}

// TimeHistory is a recorded time series attached to a datapoint.
type TimeHistory struct {
	Type     string
	Time     Column
	Quantity Column
	Values   [][2]float64
}

// RCMData carries the measurements specific to rapid compression machines.
type RCMData struct {
	CompressedPressure    *units.Quantity
	CompressedTemperature *units.Quantity
	CompressionTime       *units.Quantity
	Stroke                *units.Quantity
	Clearance             *units.Quantity
	CompressionRatio      *float64
}

// DataPoint is one experimental measurement. RCM is nil unless the apparatus
// is a rapid compression machine.
type DataPoint struct {
	Temperature      units.Quantity
	Pressure         units.Quantity
	IgnitionDelay    units.Quantity
	PressureRise     *units.Quantity
	EquivalenceRatio *float64
	IgnitionType     IgnitionType
	Composition      Composition
	RCM              *RCMData
	Histories        []TimeHistory
}

func buildDataPoint(m map[string]any) (DataPoint, Warnings, error) {
	var dp DataPoint
	var warns Warnings

	for _, f := range []struct {
		key string
		dst *units.Quantity
	}{
		{"temperature", &dp.Temperature},
		{"pressure", &dp.Pressure},
		{"ignition-delay", &dp.IgnitionDelay},
	} {
		q, ws, err := schema.BuildQuantity(m[f.key])
		if err != nil {
			return DataPoint{}, nil, fmt.Errorf("%s: %w", f.key, err)
		}
		warns = append(warns, ws...)
		*f.dst = q
	}

	rise, err := buildOptionalQuantity(m["pressure-rise"], &warns)
	if err != nil {
		return DataPoint{}, nil, fmt.Errorf("pressure-rise: %w", err)
	}
	dp.PressureRise = rise

	if v, ok := m["equivalence-ratio"]; ok {
		phi, ok := schema.AsFloat(v)
		if !ok {
			return DataPoint{}, nil, fmt.Errorf("equivalence-ratio: expected number, got %T", v)
		}
		dp.EquivalenceRatio = &phi
	}

	if ign, ok := schema.AsMap(m["ignition-type"]); ok {
		dp.IgnitionType.Target, _ = ign["target"].(string)
		dp.IgnitionType.Type, _ = ign["type"].(string)
	}

	comp, ws, err := buildComposition(m["composition"])
	if err != nil {
		return DataPoint{}, nil, fmt.Errorf("composition: %w", err)
	}
	warns = append(warns, ws...)
	dp.Composition = comp

	if rcm, ok := schema.AsMap(m["rcm-data"]); ok {
		data, ws, err := buildRCMData(rcm)
		if err != nil {
			return DataPoint{}, nil, fmt.Errorf("rcm-data: %w", err)
		}
		warns = append(warns, ws...)
		dp.RCM = data
	}

	histories, err := buildHistories(m)
	if err != nil {
		return DataPoint{}, nil, err
	}
	dp.Histories = histories

	return dp, warns, nil
}

func buildComposition(v any) (Composition, Warnings, error) {
	m, ok := schema.AsMap(v)
	if !ok {
		return Composition{}, nil, fmt.Errorf("expected mapping, got %T", v)
	}
	comp := Composition{}
	comp.Kind, _ = m["kind"].(string)

	var warns Warnings
	items, _ := m["species"].([]any)
	comp.Species = make([]SpeciesAmount, 0, len(items))
	for i, it := range items {
		sm, ok := schema.AsMap(it)
		if !ok {
			return Composition{}, nil, fmt.Errorf("species %d is not a mapping", i)
		}
		sp := SpeciesAmount{}
		sp.Name, _ = sm["species-name"].(string)
		sp.InChI, _ = sm["InChI"].(string)
		sp.SMILES, _ = sm["SMILES"].(string)
		if atoms, ok := sm["atomic-composition"].([]any); ok {
			for _, a := range atoms {
				am, ok := schema.AsMap(a)
				if !ok {
					continue
				}
				el := ElementAmount{}
				el.Element, _ = am["element"].(string)
				el.Amount, _ = schema.AsFloat(am["amount"])
				sp.Atoms = append(sp.Atoms, el)
			}
		}
		q, ws, err := schema.BuildQuantity(sm["amount"])
		if err != nil {
			return Composition{}, nil, fmt.Errorf("species %s amount: %w", sp.Name, err)
		}
		warns = append(warns, ws...)
		sp.Amount = q
		comp.Species = append(comp.Species, sp)
	}
	return comp, warns, nil
}

func buildRCMData(m map[string]any) (*RCMData, Warnings, error) {
	var warns Warnings
	data := &RCMData{}
	for _, f := range []struct {
		key string
		dst **units.Quantity
	}{
		{"compressed-pressure", &data.CompressedPressure},
		{"compressed-temperature", &data.CompressedTemperature},
		{"compression-time", &data.CompressionTime},
		{"stroke", &data.Stroke},
		{"clearance", &data.Clearance},
	} {
		q, err := buildOptionalQuantity(m[f.key], &warns)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = q
	}
	if v, ok := m["compression-ratio"]; ok {
		ratio, ok := schema.AsFloat(v)
		if !ok {
			return nil, nil, fmt.Errorf("compression-ratio: expected number, got %T", v)
		}
		data.CompressionRatio = &ratio
	}
	return data, warns, nil
}

func buildHistories(m map[string]any) ([]TimeHistory, error) {
	if legacy, ok := schema.AsMap(m["volume-history"]); ok {
		h, err := buildHistory(legacy, "volume", "volume")
		if err != nil {
			return nil, fmt.Errorf("volume-history: %w", err)
		}
		return []TimeHistory{h}, nil
	}
	items, _ := m["time-histories"].([]any)
	out := make([]TimeHistory, 0, len(items))
	for i, it := range items {
		hm, ok := schema.AsMap(it)
		if !ok {
			return nil, fmt.Errorf("time-histories %d is not a mapping", i)
		}
		typ, _ := hm["type"].(string)
		h, err := buildHistory(hm, typ, "quantity")
		if err != nil {
			return nil, fmt.Errorf("time-histories %d: %w", i, err)
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func buildHistory(m map[string]any, typ, quantityKey string) (TimeHistory, error) {
	h := TimeHistory{Type: typ}
	tm, ok := schema.AsMap(m["time"])
	if !ok {
		return TimeHistory{}, fmt.Errorf("missing time column")
	}
	qm, ok := schema.AsMap(m[quantityKey])
	if !ok {
		return TimeHistory{}, fmt.Errorf("missing %s column", quantityKey)
	}
	h.Time = buildColumn(tm)
	h.Quantity = buildColumn(qm)

	rows, _ := m["values"].([]any)
	h.Values = make([][2]float64, 0, len(rows))
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) != 2 {
			return TimeHistory{}, fmt.Errorf("values row %d is not a pair", i)
		}
		a, okA := schema.AsFloat(row[0])
		b, okB := schema.AsFloat(row[1])
		if !okA || !okB {
			return TimeHistory{}, fmt.Errorf("values row %d is not numeric", i)
		}
		h.Values = append(h.Values, [2]float64{a, b})
	}
	return h, nil
}

func buildColumn(m map[string]any) Column {
	c := Column{}
	c.Units, _ = m["units"].(string)
	idx, _ := schema.AsInt(m["column"])
	c.Index = int(idx)
	return c
}

// MoleFractionString renders the composition as "name:value" pairs on a mole
// fraction basis, converting from the stored basis when necessary. The remap
// substitutes species names, for simulators using different spellings.
func (d DataPoint) MoleFractionString(remap map[string]string) (string, error) {
	fractions, err := d.moleFractions()
	if err != nil {
		return "", err
	}
	return d.Composition.format(fractions, remap), nil
}

// MassFractionString is MoleFractionString on a mass fraction basis.
func (d DataPoint) MassFractionString(remap map[string]string) (string, error) {
	fractions, err := d.massFractions()
	if err != nil {
		return "", err
	}
	return d.Composition.format(fractions, remap), nil
}

func (c Composition) format(fractions []float64, remap map[string]string) string {
	parts := make([]string, len(c.Species))
	for i, sp := range c.Species {
		name := sp.Name
		if mapped, ok := remap[name]; ok {
			name = mapped
		}
		parts[i] = name + ":" + schema.FormatAmount(fractions[i])
	}
	return strings.Join(parts, ", ")
}

func (d DataPoint) moleFractions() ([]float64, error) {
	amounts := d.Composition.amounts()
	switch d.Composition.Kind {
	case "mole fraction":
		return amounts, nil
	case "mole percent":
		for i := range amounts {
			amounts[i] /= 100.0
		}
		return amounts, nil
	case "mass fraction":
		// x_i = (y_i / W_i) / sum_j (y_j / W_j)
		weights, err := d.Composition.molecularWeights()
		if err != nil {
			return nil, err
		}
		total := 0.0
		for i := range amounts {
			amounts[i] /= weights[i]
			total += amounts[i]
		}
		for i := range amounts {
			amounts[i] /= total
		}
		return amounts, nil
	default:
		return nil, fmt.Errorf("chemked: unknown composition kind %q", d.Composition.Kind)
	}
}

func (d DataPoint) massFractions() ([]float64, error) {
	if d.Composition.Kind == "mass fraction" {
		return d.Composition.amounts(), nil
	}
	moles, err := d.moleFractions()
	if err != nil {
		return nil, err
	}
	// y_i = x_i W_i / sum_j x_j W_j
	weights, err := d.Composition.molecularWeights()
	if err != nil {
		return nil, err
	}
	total := 0.0
	for i := range moles {
		moles[i] *= weights[i]
		total += moles[i]
	}
	for i := range moles {
		moles[i] /= total
	}
	return moles, nil
}

func (c Composition) amounts() []float64 {
	out := make([]float64, len(c.Species))
	for i, sp := range c.Species {
		out[i] = sp.Amount.Magnitude
	}
	return out
}

func (c Composition) molecularWeights() ([]float64, error) {
	out := make([]float64, len(c.Species))
	for i, sp := range c.Species {
		w, err := sp.MolecularWeight()
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}
