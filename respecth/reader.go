package respecth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/chemked/chemked"
	"github.com/chemked/chemked/crossref"
	"github.com/chemked/chemked/schema"
	"github.com/chemked/chemked/units"
)

// ParseFile reads a ReSpecTh XML file into a raw ChemKED document mapping.
// The mapping is not validated; pass it to chemked.New, or use ToChemKED.
func ParseFile(path string, opts ...Option) (map[string]any, schema.Warnings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("respecth: %w", err)
	}
	defer f.Close()
	cfg := newConfig(opts)
	cfg.sourceName = filepath.Base(path)
	return parse(f, cfg)
}

// Parse reads a ReSpecTh XML record into a raw ChemKED document mapping.
func Parse(r io.Reader, opts ...Option) (map[string]any, schema.Warnings, error) {
	return parse(r, newConfig(opts))
}

// ToChemKED parses a ReSpecTh XML file and builds a validated record.
func ToChemKED(path string, opts ...Option) (*chemked.ChemKED, error) {
	cfg := newConfig(opts)
	props, warns, err := ParseFile(path, opts...)
	if err != nil {
		return nil, err
	}
	c, err := chemked.New(props,
		chemked.WithContext(cfg.ctx),
		chemked.WithORCIDClient(cfg.people),
		chemked.WithCrossrefClient(cfg.works))
	if err != nil {
		return nil, err
	}
	c.Warnings = append(warns, c.Warnings...)
	return c, nil
}

type parser struct {
	cfg   *config
	warns schema.Warnings
}

func (p *parser) warnf(format string, args ...any) {
	p.warns = append(p.warns, schema.Warning{Message: fmt.Sprintf(format, args...)})
}

func parse(r io.Reader, cfg *config) (map[string]any, schema.Warnings, error) {
	if cfg.fileAuthorORCID != "" && cfg.fileAuthor == "" {
		return nil, nil, fmt.Errorf("respecth: a file author ORCID requires a file author name")
	}
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("respecth: parsing XML: %w", err)
	}
	root := firstElement(doc)
	if root == nil {
		return nil, nil, &ConvertError{Code: schema.CodeMissingElement, Element: "experiment"}
	}

	p := &parser{cfg: cfg}
	props, err := p.convert(root)
	if err != nil {
		return nil, nil, err
	}
	return props, p.warns, nil
}

func (p *parser) convert(root *xmlquery.Node) (map[string]any, error) {
	props, err := p.fileMetadata(root)
	if err != nil {
		return nil, err
	}

	ref, err := p.reference(root)
	if err != nil {
		return nil, err
	}
	detail, _ := ref["detail"].(string)
	if p.cfg.sourceName != "" {
		if detail != "" {
			detail += " "
		}
		detail += "Converted from ReSpecTh XML file " + p.cfg.sourceName
	}
	if detail != "" {
		ref["detail"] = detail
	}
	props["reference"] = ref

	if err := p.experimentKind(root, props); err != nil {
		return nil, err
	}

	common, err := p.commonProperties(root)
	if err != nil {
		return nil, err
	}
	ignition, err := p.ignitionType(root)
	if err != nil {
		return nil, err
	}
	common["ignition-type"] = ignition

	datapoints, err := p.datapoints(root)
	if err != nil {
		return nil, err
	}

	// Shared values become part of every datapoint; ChemKED has no separate
	// common block after normalization.
	for _, dp := range datapoints {
		m := dp.(map[string]any)
		for k, v := range common {
			if _, present := m[k]; !present {
				m[k] = v
			}
		}
	}
	props["datapoints"] = datapoints

	apparatus := props["apparatus"].(map[string]any)
	if err := p.checkApparatus(apparatus["kind"].(string), datapoints); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *parser) fileMetadata(root *xmlquery.Node) (map[string]any, error) {
	author := childText(root, "fileAuthor")
	if author == "" {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "fileAuthor"}
	}
	authors := []any{map[string]any{"name": author}}
	if p.cfg.fileAuthor != "" {
		extra := map[string]any{"name": p.cfg.fileAuthor}
		if p.cfg.fileAuthorORCID != "" {
			extra["ORCID"] = p.cfg.fileAuthorORCID
		}
		authors = append(authors, extra)
	}
	return map[string]any{
		"file-authors":    authors,
		"file-version":    0,
		"chemked-version": chemked.Version,
	}, nil
}

func (p *parser) reference(root *xmlquery.Node) (map[string]any, error) {
	elem := root.SelectElement("bibliographyLink")
	if elem == nil {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "bibliographyLink"}
	}
	doi, hasDOI := attrOf(elem, "doi")
	key, hasKey := attrOf(elem, "preferredKey")

	if hasDOI {
		work, err := p.cfg.works.Work(p.cfg.ctx, crossref.NormalizeDOI(doi))
		switch {
		case err == nil:
			if hasKey {
				p.warnf("using DOI to obtain reference information, rather than preferredKey")
			}
			return referenceFromWork(doi, work), nil
		case errors.Is(err, crossref.ErrUnavailable) || errors.Is(err, crossref.ErrNotFound):
			if !hasKey {
				return nil, &ConvertError{Code: schema.CodeMissingAttribute,
					Element: "bibliographyLink", Attr: "preferredKey",
					Message: "DOI lookup failed and no preferredKey fallback is set"}
			}
			p.warnf("DOI lookup failed; setting detail from preferredKey, please update to the appropriate fields")
			return map[string]any{"detail": withPeriod(key)}, nil
		default:
			return nil, fmt.Errorf("respecth: DOI lookup: %w", err)
		}
	}
	if hasKey {
		p.warnf("missing doi attribute in bibliographyLink; setting detail from preferredKey, please update to the appropriate fields")
		return map[string]any{"detail": withPeriod(key)}, nil
	}
	return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "bibliographyLink", Attr: "preferredKey"}
}

func referenceFromWork(doi string, work *crossref.Work) map[string]any {
	ref := map[string]any{"doi": doi}
	if work.Journal != "" {
		ref["journal"] = work.Journal
	}
	if work.Year != 0 {
		ref["year"] = work.Year
	}
	if v, err := strconv.Atoi(work.Volume); err == nil {
		ref["volume"] = v
	}
	if work.Pages != "" {
		ref["pages"] = work.Pages
	}
	authors := make([]any, 0, len(work.Authors))
	for _, a := range work.Authors {
		author := map[string]any{"name": strings.TrimSpace(a.Given + " " + a.Family)}
		if a.ORCID != "" {
			author["ORCID"] = a.ORCID
		}
		authors = append(authors, author)
	}
	if len(authors) > 0 {
		ref["authors"] = authors
	}
	return ref
}

func (p *parser) experimentKind(root *xmlquery.Node, props map[string]any) error {
	et := childText(root, "experimentType")
	if et == "" {
		return &ConvertError{Code: schema.CodeMissingElement, Element: "experimentType"}
	}
	if et != experimentTypeSpelling {
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "experimentType",
			Message: fmt.Sprintf("%q is not supported", et)}
	}
	props["experiment-type"] = chemked.ExperimentIgnitionDelay

	kind := ""
	if app := root.SelectElement("apparatus"); app != nil {
		kind = childText(app, "kind")
	}
	if kind == "" {
		return &ConvertError{Code: schema.CodeMissingElement, Element: "apparatus/kind"}
	}
	if kind != string(chemked.ShockTube) && kind != string(chemked.RapidCompressionMachine) {
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "apparatus/kind",
			Message: fmt.Sprintf("%q is not supported", kind)}
	}
	props["apparatus"] = map[string]any{"kind": kind}
	return nil
}

func (p *parser) commonProperties(root *xmlquery.Node) (map[string]any, error) {
	props := map[string]any{}
	common := root.SelectElement("commonProperties")
	if common == nil {
		return props, nil
	}
	for _, elem := range common.SelectElements("property") {
		name, ok := attrOf(elem, "name")
		if !ok {
			return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "property", Attr: "name"}
		}
		switch {
		case name == "initial composition":
			comp, err := p.composition(elem.SelectElements("component"))
			if err != nil {
				return nil, err
			}
			props["composition"] = comp
		case contains(scalarProperties, name):
			unit, ok := attrOf(elem, "units")
			if !ok {
				return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "property", Attr: "units"}
			}
			unit = fixUnit(unit)
			field := strings.ReplaceAll(name, " ", "-")
			if err := checkPropertyUnit(name, field, unit); err != nil {
				return nil, err
			}
			value := childText(elem, "value")
			if value == "" {
				return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "property/value"}
			}
			props[field] = []any{value + " " + unit}
		default:
			return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "commonProperties",
				Message: fmt.Sprintf("property %q is not supported as a common property", name)}
		}
	}
	return props, nil
}

// composition builds a ChemKED composition mapping from component elements,
// normalizing the loose ReSpecTh amount units.
func (p *parser) composition(components []*xmlquery.Node) (map[string]any, error) {
	comp := map[string]any{"kind": "", "species": []any{}}
	for _, child := range components {
		link := child.SelectElement("speciesLink")
		if link == nil {
			return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "speciesLink"}
		}
		amount := child.SelectElement("amount")
		if amount == nil {
			return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "amount"}
		}
		unit, ok := attrOf(amount, "units")
		if !ok {
			return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "amount", Attr: "units"}
		}
		spec, err := p.speciesEntry(link)
		if err != nil {
			return nil, err
		}
		if err := p.addComponent(comp, spec, strings.TrimSpace(amount.InnerText()), unit); err != nil {
			return nil, err
		}
	}
	return comp, nil
}

func (p *parser) speciesEntry(link *xmlquery.Node) (map[string]any, error) {
	name, ok := attrOf(link, "preferredKey")
	if !ok {
		return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "speciesLink", Attr: "preferredKey"}
	}
	spec := map[string]any{"species-name": name}
	if inchi, ok := attrOf(link, "InChI"); ok {
		spec["InChI"] = inchi
	} else {
		p.warnf("missing InChI for species %s", name)
	}
	return spec, nil
}

// addComponent appends one species amount, normalizing percent, ppm, and ppb
// spellings and enforcing a single basis per mixture.
func (p *parser) addComponent(comp map[string]any, spec map[string]any, text, unit string) error {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "amount",
			Message: fmt.Sprintf("cannot parse %q as a number", text)}
	}
	switch unit {
	case "mole fraction", "mass fraction", "mole percent":
	case "percent":
		p.warnf("assuming percent in composition means mole percent")
		unit = "mole percent"
	case "ppm":
		p.warnf("assuming molar ppm in composition and converting to mole fraction")
		value *= 1e-6
		unit = "mole fraction"
	case "ppb":
		p.warnf("assuming molar ppb in composition and converting to mole fraction")
		value *= 1e-9
		unit = "mole fraction"
	default:
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "amount",
			Message: "composition units need to be one of: mole fraction, mass fraction, mole percent, percent, ppm, or ppb"}
	}

	kind := comp["kind"].(string)
	if kind == "" {
		comp["kind"] = unit
	} else if kind != unit {
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "amount",
			Message: fmt.Sprintf("composition units %q not consistent with %q", unit, kind)}
	}
	spec["amount"] = []any{value}
	comp["species"] = append(comp["species"].([]any), spec)
	return nil
}

func (p *parser) ignitionType(root *xmlquery.Node) (map[string]any, error) {
	elem := root.SelectElement("ignitionType")
	if elem == nil {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "ignitionType"}
	}
	target, ok := attrOf(elem, "target")
	if !ok {
		return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "ignitionType", Attr: "target"}
	}
	typ, ok := attrOf(elem, "type")
	if !ok {
		return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "ignitionType", Attr: "type"}
	}

	target = strings.TrimSuffix(strings.TrimSpace(target), ";")
	if strings.Contains(target, ";") {
		return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "ignitionType",
			Message: "multiple ignition targets are not supported"}
	}
	target = strings.ToUpper(target)
	mapped, ok := ignitionTargetIn[target]
	if !ok {
		return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "ignitionType",
			Message: fmt.Sprintf("%q is not a valid ignition target", target)}
	}

	if typ == extrapolatedSpelling {
		typ = "d/dt max extrapolated"
	}
	if !contains(chemked.IgnitionTypes, typ) {
		return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "ignitionType",
			Message: fmt.Sprintf("%q is not a valid ignition type", typ)}
	}
	return map[string]any{"target": mapped, "type": typ}, nil
}

type columnDef struct {
	name    string
	units   string
	species map[string]any // set for composition columns
}

func (p *parser) datapoints(root *xmlquery.Node) ([]any, error) {
	groups := root.SelectElements("dataGroup")
	if len(groups) == 0 {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "dataGroup"}
	}

	defs, err := p.columnDefs(groups[0])
	if err != nil {
		return nil, err
	}
	points, err := p.dataRows(groups[0], defs)
	if err != nil {
		return nil, err
	}

	// Extra dataGroups hold time histories, attached to the first point.
	if len(groups) > 1 {
		var histories []any
		for _, g := range groups[1:] {
			hs, err := p.historyGroup(g)
			if err != nil {
				return nil, err
			}
			histories = append(histories, hs...)
		}
		points[0].(map[string]any)["time-histories"] = histories
	}
	return points, nil
}

func (p *parser) columnDefs(group *xmlquery.Node) (map[string]columnDef, error) {
	defs := map[string]columnDef{}
	for _, prop := range group.SelectElements("property") {
		id, ok := attrOf(prop, "id")
		if !ok {
			return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "property", Attr: "id"}
		}
		name, ok := attrOf(prop, "name")
		if !ok {
			return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "property", Attr: "name"}
		}
		unit, _ := attrOf(prop, "units")
		def := columnDef{name: name, units: fixUnit(unit)}
		switch {
		case name == "composition":
			link := prop.SelectElement("speciesLink")
			if link == nil {
				return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "speciesLink"}
			}
			spec, err := p.speciesEntry(link)
			if err != nil {
				return nil, err
			}
			def.species = spec
		case contains(scalarProperties, name):
			field := strings.ReplaceAll(name, " ", "-")
			if err := checkPropertyUnit(name, field, def.units); err != nil {
				return nil, err
			}
		default:
			return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataGroup",
				Message: fmt.Sprintf("%q is not a valid dataPoint property", name)}
		}
		defs[id] = def
	}
	if len(defs) == 0 {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "property"}
	}
	return defs, nil
}

func (p *parser) dataRows(group *xmlquery.Node, defs map[string]columnDef) ([]any, error) {
	hasComposition := false
	for _, def := range defs {
		if def.species != nil {
			hasComposition = true
		}
	}

	var points []any
	for _, dp := range group.SelectElements("dataPoint") {
		point := map[string]any{}
		var comp map[string]any
		if hasComposition {
			comp = map[string]any{"kind": "", "species": []any{}}
			point["composition"] = comp
		}
		for cell := dp.FirstChild; cell != nil; cell = cell.NextSibling {
			if cell.Type != xmlquery.ElementNode {
				continue
			}
			def, ok := defs[cell.Data]
			if !ok {
				return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataPoint",
					Message: fmt.Sprintf("value tag %q not declared as a property", cell.Data)}
			}
			text := strings.TrimSpace(cell.InnerText())
			if def.species != nil {
				spec := map[string]any{}
				for k, v := range def.species {
					spec[k] = v
				}
				if err := p.addComponent(comp, spec, text, def.units); err != nil {
					return nil, err
				}
				continue
			}
			point[strings.ReplaceAll(def.name, " ", "-")] = []any{text + " " + def.units}
		}
		points = append(points, point)
	}
	if len(points) == 0 {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "dataPoint"}
	}
	return points, nil
}

// historyGroup reads one time-history dataGroup: a time property plus one or
// more recorded quantities, sharing rows.
func (p *parser) historyGroup(group *xmlquery.Node) ([]any, error) {
	timeID := ""
	timeUnits := ""
	quantIDs := []string{}
	quantTypes := []string{}
	quantCols := []map[string]any{}

	for _, prop := range group.SelectElements("property") {
		name, _ := attrOf(prop, "name")
		unit, _ := attrOf(prop, "units")
		id, ok := attrOf(prop, "id")
		if !ok {
			return nil, &ConvertError{Code: schema.CodeMissingAttribute, Element: "property", Attr: "id"}
		}
		switch name {
		case "time":
			timeID = id
			timeUnits = fixUnit(unit)
		case "volume", "temperature", "pressure":
			quantIDs = append(quantIDs, id)
			quantTypes = append(quantTypes, name)
			quantCols = append(quantCols, map[string]any{"units": fixUnit(unit), "column": 1})
		default:
			return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataGroup",
				Message: "only volume, temperature, pressure, and time are allowed in a time-history dataGroup"}
		}
	}
	if timeID == "" || len(quantIDs) == 0 {
		return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "dataGroup/property",
			Message: "both time and quantity properties are required for a time history"}
	}

	values := make([][]any, len(quantIDs))
	for _, dp := range group.SelectElements("dataPoint") {
		var t *float64
		row := make(map[string]float64)
		for cell := dp.FirstChild; cell != nil; cell = cell.NextSibling {
			if cell.Type != xmlquery.ElementNode {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell.InnerText()), 64)
			if err != nil {
				return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataPoint",
					Message: fmt.Sprintf("cannot parse %q as a number", cell.InnerText())}
			}
			if cell.Data == timeID {
				t = &v
				continue
			}
			matched := false
			for i, id := range quantIDs {
				if cell.Data == id {
					row[quantTypes[i]] = v
					matched = true
				}
			}
			if !matched {
				return nil, &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataPoint",
					Message: fmt.Sprintf("value tag %q not declared as a property", cell.Data)}
			}
		}
		if t == nil {
			return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "dataPoint",
				Message: "both time and quantity values are required in each time-history row"}
		}
		for _, typ := range quantTypes {
			if _, ok := row[typ]; !ok {
				return nil, &ConvertError{Code: schema.CodeMissingElement, Element: "dataPoint",
					Message: fmt.Sprintf("missing %s value in time-history row", typ)}
			}
		}
		for i, typ := range quantTypes {
			values[i] = append(values[i], []any{*t, row[typ]})
		}
	}

	histories := make([]any, len(quantIDs))
	for i := range quantIDs {
		// a fresh time column per history; the returned mapping must not
		// alias across entries
		histories[i] = map[string]any{
			"type":     quantTypes[i],
			"time":     map[string]any{"units": timeUnits, "column": 0},
			"quantity": quantCols[i],
			"values":   values[i],
		}
	}
	return histories, nil
}

func (p *parser) checkApparatus(kind string, datapoints []any) error {
	for _, dp := range datapoints {
		m := dp.(map[string]any)
		if _, ok := m["pressure-rise"]; ok && kind == string(chemked.RapidCompressionMachine) {
			return &ConvertError{Code: schema.CodeUnmappedValue, Element: "commonProperties",
				Message: "pressure rise cannot be defined for a rapid compression machine"}
		}
		histories, _ := m["time-histories"].([]any)
		for _, h := range histories {
			hm := h.(map[string]any)
			if hm["type"] == "volume" && kind == string(chemked.ShockTube) {
				return &ConvertError{Code: schema.CodeUnmappedValue, Element: "dataGroup",
					Message: "volume history cannot be defined for a shock tube"}
			}
		}
	}
	return nil
}

// checkPropertyUnit rejects units dimensionally incompatible with the
// property before the text ever reaches the schema, so failures point at
// the XML rather than the generated document.
func checkPropertyUnit(name, field, unit string) error {
	parsed, err := units.Parse(unit)
	if err != nil {
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "property",
			Message: fmt.Sprintf("cannot parse units %q for property %q", unit, name)}
	}
	expect, err := units.Parse(schema.KindUnits[field])
	if err != nil {
		return fmt.Errorf("respecth: %w", err)
	}
	if !parsed.Compatible(expect) {
		return &ConvertError{Code: schema.CodeUnmappedValue, Element: "property",
			Message: fmt.Sprintf("units %q incompatible with property %q", unit, name)}
	}
	return nil
}

func fixUnit(unit string) string {
	if unit == "Torr" {
		return "torr"
	}
	return unit
}

func withPeriod(s string) string {
	if s != "" && !strings.HasSuffix(s, ".") {
		return s + "."
	}
	return s
}

func firstElement(doc *xmlquery.Node) *xmlquery.Node {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

func childText(n *xmlquery.Node, name string) string {
	child := n.SelectElement(name)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.InnerText())
}

func attrOf(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
