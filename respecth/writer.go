package respecth

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/chemked/chemked"
	"github.com/chemked/chemked/schema"
	"github.com/chemked/chemked/units"
)

type xmlDocument struct {
	XMLName      xml.Name        `xml:"experiment"`
	FileAuthor   string          `xml:"fileAuthor"`
	Bibliography xmlBibliography `xml:"bibliographyLink"`
	Experiment   string          `xml:"experimentType"`
	Apparatus    xmlApparatus    `xml:"apparatus"`
	Common       *xmlCommon      `xml:"commonProperties,omitempty"`
	Ignition     xmlIgnition     `xml:"ignitionType"`
	Groups       []xmlGroup      `xml:"dataGroup"`
}

type xmlBibliography struct {
	DOI          string `xml:"doi,attr,omitempty"`
	PreferredKey string `xml:"preferredKey,attr,omitempty"`
}

type xmlApparatus struct {
	Kind string `xml:"kind"`
}

type xmlCommon struct {
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Name       string          `xml:"name,attr"`
	ID         string          `xml:"id,attr,omitempty"`
	Units      string          `xml:"units,attr,omitempty"`
	Value      string          `xml:"value,omitempty"`
	Species    *xmlSpeciesLink `xml:"speciesLink,omitempty"`
	Components []xmlComponent  `xml:"component,omitempty"`
}

type xmlComponent struct {
	Species xmlSpeciesLink `xml:"speciesLink"`
	Amount  xmlAmount      `xml:"amount"`
}

type xmlSpeciesLink struct {
	PreferredKey string `xml:"preferredKey,attr"`
	InChI        string `xml:"InChI,attr,omitempty"`
}

type xmlAmount struct {
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

type xmlIgnition struct {
	Target string `xml:"target,attr"`
	Type   string `xml:"type,attr"`
}

type xmlGroup struct {
	ID         string        `xml:"id,attr"`
	Properties []xmlProperty `xml:"property"`
	Points     []xmlPoint    `xml:"dataPoint"`
}

type xmlPoint struct {
	Cells []xmlCell
}

type xmlCell struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// WriteFile renders a record as ReSpecTh XML into a file.
func WriteFile(c *chemked.ChemKED, path string) (schema.Warnings, error) {
	data, warns, err := FromChemKED(c)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("respecth: %w", err)
	}
	return warns, nil
}

// FromChemKED renders a record as ReSpecTh XML. Fields the format cannot
// express are dropped and reported in the returned warnings: file author
// identifiers beyond the names, uncertainties, equivalence ratios, and the
// RCM machine parameters.
func FromChemKED(c *chemked.ChemKED) ([]byte, schema.Warnings, error) {
	w := &writer{}
	doc, err := w.document(c)
	if err != nil {
		return nil, nil, err
	}
	data, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, nil, fmt.Errorf("respecth: %w", err)
	}
	return append([]byte(xml.Header), append(data, '\n')...), w.warns, nil
}

type writer struct {
	warns schema.Warnings
}

func (w *writer) warnf(format string, args ...any) {
	w.warns = append(w.warns, schema.Warning{Message: fmt.Sprintf(format, args...)})
}

func (w *writer) document(c *chemked.ChemKED) (*xmlDocument, error) {
	if c.ExperimentType != chemked.ExperimentIgnitionDelay {
		return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "experimentType",
			Message: fmt.Sprintf("%q cannot be represented", c.ExperimentType)}
	}
	if len(c.Datapoints) == 0 {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "dataGroup",
			Message: "a record without datapoints cannot be represented"}
	}

	doc := &xmlDocument{
		FileAuthor:   w.fileAuthor(c.FileAuthors),
		Bibliography: xmlBibliography{DOI: c.Reference.DOI, PreferredKey: c.Reference.Detail},
		Experiment:   experimentTypeSpelling,
		Apparatus:    xmlApparatus{Kind: string(c.Apparatus.Kind)},
	}

	ignition, err := w.ignition(c.Datapoints)
	if err != nil {
		return nil, err
	}
	doc.Ignition = ignition

	common, group, err := w.measurements(c.Datapoints)
	if err != nil {
		return nil, err
	}
	doc.Common = common
	doc.Groups = append(doc.Groups, group)

	histories, err := w.histories(c.Datapoints)
	if err != nil {
		return nil, err
	}
	doc.Groups = append(doc.Groups, histories...)

	w.noteDrops(c)
	return doc, nil
}

func (w *writer) fileAuthor(authors []chemked.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
		if a.ORCID != "" {
			w.warnf("file author ORCID %s cannot be represented and was dropped", a.ORCID)
		}
	}
	return strings.Join(names, ", ")
}

// ignition requires a single shared definition; ReSpecTh has one ignitionType
// element for the whole experiment.
func (w *writer) ignition(points []chemked.DataPoint) (xmlIgnition, error) {
	first := points[0].IgnitionType
	for _, dp := range points[1:] {
		if dp.IgnitionType != first {
			return xmlIgnition{}, &ConvertError{Code: schema.CodeUnmappedValue, Element: "ignitionType",
				Message: "datapoints with differing ignition definitions cannot be represented"}
		}
	}
	target, ok := ignitionTargetOut[first.Target]
	if !ok {
		return xmlIgnition{}, &ConvertError{Code: schema.CodeUnmappedValue, Element: "ignitionType",
			Message: fmt.Sprintf("%q is not a valid ignition target", first.Target)}
	}
	typ := first.Type
	if typ == "d/dt max extrapolated" {
		typ = extrapolatedSpelling
	}
	return xmlIgnition{Target: target, Type: typ}, nil
}

// measurements factors values shared by every datapoint into the
// commonProperties block and emits the rest as dataGroup columns. The
// ignition delay always stays a column so the group is never empty.
func (w *writer) measurements(points []chemked.DataPoint) (*xmlCommon, xmlGroup, error) {
	common := &xmlCommon{}
	group := xmlGroup{ID: "dg1"}

	type scalar struct {
		name string
		get  func(chemked.DataPoint) *units.Quantity
	}
	scalars := []scalar{
		{"temperature", func(dp chemked.DataPoint) *units.Quantity { q := dp.Temperature; return &q }},
		{"pressure", func(dp chemked.DataPoint) *units.Quantity { q := dp.Pressure; return &q }},
		{"pressure rise", func(dp chemked.DataPoint) *units.Quantity { return dp.PressureRise }},
	}

	nextID := 0
	newID := func() string {
		nextID++
		return fmt.Sprintf("x%d", nextID)
	}

	type column struct {
		id    string
		units string
		get   func(chemked.DataPoint) (string, error)
	}
	var columns []column

	for _, s := range scalars {
		var q *units.Quantity
		for _, dp := range points {
			if q = s.get(dp); q != nil {
				break
			}
		}
		if q == nil {
			continue
		}
		if sharedQuantity(points, s.get) {
			common.Properties = append(common.Properties, xmlProperty{
				Name:  s.name,
				Units: q.Unit.String(),
				Value: schema.FormatAmount(q.Magnitude),
			})
			continue
		}
		unit := q.Unit.String()
		get := s.get
		name := s.name
		columns = append(columns, column{id: newID(), units: unit, get: func(dp chemked.DataPoint) (string, error) {
			v := get(dp)
			if v == nil {
				return "", &ConvertError{Code: schema.CodeMissingElement, Element: "dataPoint",
					Message: fmt.Sprintf("%s is set on some datapoints but not all", name)}
			}
			mag, err := v.Value(unit)
			if err != nil {
				return "", fmt.Errorf("respecth: %w", err)
			}
			return schema.FormatAmount(mag), nil
		}})
		group.Properties = append(group.Properties, xmlProperty{Name: name, ID: columns[len(columns)-1].id, Units: unit})
	}

	// ignition delay, always a column
	delayUnit := points[0].IgnitionDelay.Unit.String()
	delayID := newID()
	columns = append(columns, column{id: delayID, units: delayUnit, get: func(dp chemked.DataPoint) (string, error) {
		mag, err := dp.IgnitionDelay.Value(delayUnit)
		if err != nil {
			return "", fmt.Errorf("respecth: %w", err)
		}
		return schema.FormatAmount(mag), nil
	}})
	group.Properties = append(group.Properties, xmlProperty{Name: "ignition delay", ID: delayID, Units: delayUnit})

	if sharedComposition(points) {
		prop, err := w.compositionProperty(points[0].Composition)
		if err != nil {
			return nil, xmlGroup{}, err
		}
		common.Properties = append(common.Properties, prop)
	} else {
		speciesColumns, err := w.compositionColumns(points, newID)
		if err != nil {
			return nil, xmlGroup{}, err
		}
		for _, sc := range speciesColumns {
			group.Properties = append(group.Properties, sc.property)
			columns = append(columns, column{id: sc.property.ID, get: sc.get})
		}
	}

	for _, dp := range points {
		point := xmlPoint{}
		for _, col := range columns {
			v, err := col.get(dp)
			if err != nil {
				return nil, xmlGroup{}, err
			}
			point.Cells = append(point.Cells, xmlCell{XMLName: xml.Name{Local: col.id}, Value: v})
		}
		group.Points = append(group.Points, point)
	}

	if len(common.Properties) == 0 {
		common = nil
	}
	return common, group, nil
}

func (w *writer) compositionProperty(comp chemked.Composition) (xmlProperty, error) {
	prop := xmlProperty{Name: "initial composition"}
	for _, sp := range comp.Species {
		if sp.SMILES != "" || len(sp.Atoms) > 0 {
			w.warnf("species %s: SMILES and atomic-composition identifiers cannot be represented and were dropped", sp.Name)
		}
		prop.Components = append(prop.Components, xmlComponent{
			Species: xmlSpeciesLink{PreferredKey: sp.Name, InChI: sp.InChI},
			Amount:  xmlAmount{Units: comp.Kind, Value: schema.FormatAmount(sp.Amount.Magnitude)},
		})
	}
	return prop, nil
}

type speciesColumn struct {
	property xmlProperty
	get      func(chemked.DataPoint) (string, error)
}

// compositionColumns emits one property per species; every datapoint must
// list the same species on the same basis for a columnar layout to exist.
func (w *writer) compositionColumns(points []chemked.DataPoint, newID func() string) ([]speciesColumn, error) {
	first := points[0].Composition
	for _, dp := range points[1:] {
		if dp.Composition.Kind != first.Kind || len(dp.Composition.Species) != len(first.Species) {
			return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataGroup",
				Message: "datapoints with differing species lists or bases cannot be represented"}
		}
		for i, sp := range dp.Composition.Species {
			if sp.Name != first.Species[i].Name {
				return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataGroup",
					Message: "datapoints with differing species lists or bases cannot be represented"}
			}
		}
	}

	out := make([]speciesColumn, len(first.Species))
	for i, sp := range first.Species {
		if sp.SMILES != "" || len(sp.Atoms) > 0 {
			w.warnf("species %s: SMILES and atomic-composition identifiers cannot be represented and were dropped", sp.Name)
		}
		idx := i
		out[i] = speciesColumn{
			property: xmlProperty{
				Name:    "composition",
				ID:      newID(),
				Units:   first.Kind,
				Species: &xmlSpeciesLink{PreferredKey: sp.Name, InChI: sp.InChI},
			},
			get: func(dp chemked.DataPoint) (string, error) {
				return schema.FormatAmount(dp.Composition.Species[idx].Amount.Magnitude), nil
			},
		}
	}
	return out, nil
}

// histories writes the first datapoint's time histories as extra dataGroups.
func (w *writer) histories(points []chemked.DataPoint) ([]xmlGroup, error) {
	for _, dp := range points[1:] {
		if len(dp.Histories) > 0 {
			w.warnf("time histories beyond the first datapoint cannot be represented and were dropped")
			break
		}
	}
	groups := make([]xmlGroup, 0, len(points[0].Histories))
	for i, h := range points[0].Histories {
		switch h.Type {
		case "volume", "temperature", "pressure":
		default:
			return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataGroup",
				Message: fmt.Sprintf("%s histories cannot be represented", h.Type)}
		}
		g := xmlGroup{
			ID: fmt.Sprintf("dg%d", i+2),
			Properties: []xmlProperty{
				{Name: "time", ID: "x1", Units: h.Time.Units},
				{Name: h.Type, ID: "x2", Units: h.Quantity.Units},
			},
		}
		for _, row := range h.Values {
			t, v := row[h.Time.Index], row[h.Quantity.Index]
			g.Points = append(g.Points, xmlPoint{Cells: []xmlCell{
				{XMLName: xml.Name{Local: "x1"}, Value: schema.FormatAmount(t)},
				{XMLName: xml.Name{Local: "x2"}, Value: schema.FormatAmount(v)},
			}})
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (w *writer) noteDrops(c *chemked.ChemKED) {
	droppedUncertainty := false
	droppedPhi := false
	droppedRCM := false
	for _, dp := range c.Datapoints {
		for _, q := range []*units.Quantity{&dp.Temperature, &dp.Pressure, &dp.IgnitionDelay, dp.PressureRise} {
			if q != nil && q.Uncertainty != nil {
				droppedUncertainty = true
			}
		}
		for _, sp := range dp.Composition.Species {
			if sp.Amount.Uncertainty != nil {
				droppedUncertainty = true
			}
		}
		if dp.EquivalenceRatio != nil {
			droppedPhi = true
		}
		if dp.RCM != nil {
			droppedRCM = true
		}
	}
	if droppedUncertainty {
		w.warnf("uncertainties cannot be represented and were dropped")
	}
	if droppedPhi {
		w.warnf("equivalence ratios cannot be represented and were dropped")
	}
	if droppedRCM {
		w.warnf("rapid compression machine parameters cannot be represented and were dropped")
	}
}

func sharedQuantity(points []chemked.DataPoint, get func(chemked.DataPoint) *units.Quantity) bool {
	first := get(points[0])
	for _, dp := range points[1:] {
		q := get(dp)
		if q == nil || first == nil {
			if q != first {
				return false
			}
			continue
		}
		if q.Magnitude != first.Magnitude || q.Unit.String() != first.Unit.String() {
			return false
		}
	}
	return true
}

func sharedComposition(points []chemked.DataPoint) bool {
	first := points[0].Composition
	for _, dp := range points[1:] {
		c := dp.Composition
		if c.Kind != first.Kind || len(c.Species) != len(first.Species) {
			return false
		}
		for i, sp := range c.Species {
			if sp.Name != first.Species[i].Name || sp.Amount.Magnitude != first.Species[i].Amount.Magnitude {
				return false
			}
		}
	}
	return true
}
