// Package chemked reads, validates, and models ChemKED documents: structured
// records of combustion ignition-delay experiments. A document is parsed from
// YAML or JSON into a raw mapping, normalized (anchor-shared sub-structures
// deep-copied, the common-properties block stripped), validated against the
// declarative schema in the schema subpackage, and finally lifted into the
// typed object graph rooted at ChemKED.
//
// Records are value objects: once built they are treated as read-only.
// Registry lookups (ORCID, Crossref) are injected collaborators; without
// them validation runs offline and records the skipped checks as warnings.
package chemked

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/chemked/chemked/crossref"
	"github.com/chemked/chemked/orcid"
	"github.com/chemked/chemked/schema"
	"github.com/chemked/chemked/units"
)

// Version is the ChemKED schema version this package implements.
const Version = "1.0.0"

// ExperimentIgnitionDelay is the only experiment type currently defined.
const ExperimentIgnitionDelay = "ignition delay"

// ApparatusKind identifies the experimental device.
type ApparatusKind string

const (
	ShockTube               ApparatusKind = "shock tube"
	RapidCompressionMachine ApparatusKind = "rapid compression machine"
)

// Author is a person credited on the file or the reference.
type Author struct {
	Name  string
	ORCID string
}

// Reference is the bibliographic source of the experimental data.
// Volume is zero when the document does not give one.
type Reference struct {
	DOI     string
	Journal string
	Year    int
	Volume  int
	Pages   string
	Detail  string
	Authors []Author
}

// Apparatus describes the experimental device.
type Apparatus struct {
	Kind        ApparatusKind
	Institution string
	Facility    string
}

// ChemKED is the typed form of one validated document.
type ChemKED struct {
	FileAuthors    []Author
	FileVersion    int
	ChemkedVersion string
	Reference      Reference
	ExperimentType string
	Apparatus      Apparatus
	Datapoints     []DataPoint

	// Warnings collects the advisory entries produced while loading:
	// registry outages, deprecated constructs, lossy normalizations.
	Warnings Warnings
}

type config struct {
	ctx            context.Context
	skipValidation bool
	people         orcid.Lookup
	works          crossref.Lookup
}

// Option configures document loading.
type Option func(*config)

// SkipValidation bypasses the schema engine entirely. For trusted input,
// such as documents the converter has just produced itself.
func SkipValidation() Option {
	return func(c *config) { c.skipValidation = true }
}

// WithORCIDClient sets the identifier registry used for author checks.
func WithORCIDClient(l orcid.Lookup) Option {
	return func(c *config) { c.people = l }
}

// WithCrossrefClient sets the bibliographic registry used for DOI checks.
func WithCrossrefClient(l crossref.Lookup) Option {
	return func(c *config) { c.works = l }
}

// WithContext sets the context governing registry lookups.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

func newConfig(opts []Option) *config {
	c := &config{ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadFile reads and builds a ChemKED record from a YAML file.
func LoadFile(path string, opts ...Option) (*ChemKED, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chemked: %w", err)
	}
	defer f.Close()
	return Load(f, opts...)
}

// Load reads and builds a ChemKED record from YAML input.
func Load(r io.Reader, opts ...Option) (*ChemKED, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("chemked: decoding document: %w", err)
	}
	return New(doc, opts...)
}

// LoadJSON builds a ChemKED record from a JSON document.
func LoadJSON(data []byte, opts ...Option) (*ChemKED, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("chemked: decoding document: %w", err)
	}
	return New(doc, opts...)
}

// New normalizes, validates, and lifts a raw document mapping. Validation
// failures are returned as Issues; the input mapping is never mutated.
func New(doc map[string]any, opts ...Option) (*ChemKED, error) {
	cfg := newConfig(opts)
	norm := Normalize(doc)

	var warns Warnings
	if !cfg.skipValidation {
		iss, ws := schema.Validate(cfg.ctx, DocumentRule(), norm, cfg.people, cfg.works)
		warns = append(warns, ws...)
		if len(iss) > 0 {
			return nil, iss
		}
	}

	c, ws, err := build(norm)
	if err != nil {
		return nil, err
	}
	c.Warnings = append(warns, ws...)
	return c, nil
}

// ValidateDocument runs the schema over an already normalized document
// without building the typed model.
func ValidateDocument(ctx context.Context, doc map[string]any, people orcid.Lookup, works crossref.Lookup) (Issues, Warnings) {
	return schema.Validate(ctx, DocumentRule(), doc, people, works)
}

func build(doc map[string]any) (*ChemKED, Warnings, error) {
	c := &ChemKED{}
	var warns Warnings

	authors, err := buildAuthors(doc["file-authors"])
	if err != nil {
		return nil, nil, err
	}
	c.FileAuthors = authors

	version, _ := schema.AsInt(doc["file-version"])
	c.FileVersion = int(version)
	c.ChemkedVersion, _ = doc["chemked-version"].(string)
	c.ExperimentType, _ = doc["experiment-type"].(string)

	if app, ok := schema.AsMap(doc["apparatus"]); ok {
		kind, _ := app["kind"].(string)
		c.Apparatus.Kind = ApparatusKind(kind)
		c.Apparatus.Institution, _ = app["institution"].(string)
		c.Apparatus.Facility, _ = app["facility"].(string)
	}

	if ref, ok := schema.AsMap(doc["reference"]); ok {
		c.Reference.DOI, _ = ref["doi"].(string)
		c.Reference.Journal, _ = ref["journal"].(string)
		c.Reference.Pages, _ = ref["pages"].(string)
		c.Reference.Detail, _ = ref["detail"].(string)
		year, _ := schema.AsInt(ref["year"])
		c.Reference.Year = int(year)
		volume, _ := schema.AsInt(ref["volume"])
		c.Reference.Volume = int(volume)
		refAuthors, err := buildAuthors(ref["authors"])
		if err != nil {
			return nil, nil, err
		}
		c.Reference.Authors = refAuthors
	}

	points, _ := doc["datapoints"].([]any)
	c.Datapoints = make([]DataPoint, 0, len(points))
	for i, p := range points {
		m, ok := schema.AsMap(p)
		if !ok {
			return nil, nil, fmt.Errorf("chemked: datapoint %d is not a mapping", i)
		}
		dp, ws, err := buildDataPoint(m)
		if err != nil {
			return nil, nil, fmt.Errorf("chemked: datapoint %d: %w", i, err)
		}
		warns = append(warns, ws...)
		c.Datapoints = append(c.Datapoints, dp)
	}

	return c, warns, nil
}

func buildAuthors(v any) ([]Author, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("chemked: authors must be a sequence, got %T", v)
	}
	out := make([]Author, 0, len(items))
	for i, it := range items {
		m, ok := schema.AsMap(it)
		if !ok {
			return nil, fmt.Errorf("chemked: author %d is not a mapping", i)
		}
		a := Author{}
		a.Name, _ = m["name"].(string)
		a.ORCID, _ = m["ORCID"].(string)
		out = append(out, a)
	}
	return out, nil
}

func buildOptionalQuantity(v any, warns *Warnings) (*units.Quantity, error) {
	if v == nil {
		return nil, nil
	}
	q, ws, err := schema.BuildQuantity(v)
	if err != nil {
		return nil, err
	}
	*warns = append(*warns, ws...)
	return &q, nil
}
