package chemked

import (
	"fmt"

	"github.com/chemked/chemked/schema"
	"github.com/chemked/chemked/units"
)

// Ignition vocabularies. ReSpecTh spells some of these differently; the
// respecth package owns that mapping.
var (
	IgnitionTargets = []string{"pressure", "temperature", "OH", "OH*", "CH", "CH*"}
	IgnitionTypes   = []string{"max", "d/dt max", "1/2 max", "min", "d/dt max extrapolated"}
)

// HistoryTypes are the quantities a time history may record.
var HistoryTypes = []string{
	"volume", "temperature", "pressure", "piston position",
	"light emission", "OH emission", "absorption",
}

// DocumentRule returns the schema for a normalized ChemKED document.
func DocumentRule() *schema.ObjectRule {
	return schema.Object().
		Field("file-authors", schema.List(schema.Author()).NonEmpty()).Required().
		Field("file-version", schema.Int().Min(0)).Required().
		Field("chemked-version", schema.String().NonEmpty()).Required().
		Field("reference", schema.Reference()).Required().
		Field("experiment-type", schema.String().Enum(ExperimentIgnitionDelay)).Required().
		Field("apparatus", apparatusRule()).Required().
		Field("datapoints", schema.List(datapointRule()).NonEmpty()).Required().
		Refine(checkApparatusConsistency)
}

func apparatusRule() *schema.ObjectRule {
	return schema.Object().
		Field("kind", schema.String().Enum(string(ShockTube), string(RapidCompressionMachine))).Required().
		Field("institution", schema.String()).Optional().
		Field("facility", schema.String()).Optional()
}

func ignitionTypeRule() *schema.ObjectRule {
	return schema.Object().
		Field("target", schema.String().Enum(IgnitionTargets...)).Required().
		Field("type", schema.String().Enum(IgnitionTypes...)).Required()
}

func datapointRule() *schema.ObjectRule {
	return schema.Object().
		Field("temperature", schema.Quantity("temperature")).Required().
		Field("pressure", schema.Quantity("pressure")).Required().
		Field("ignition-delay", schema.Quantity("ignition-delay")).Required().
		Field("composition", schema.Composition()).Required().
		Field("ignition-type", ignitionTypeRule()).Required().
		Field("equivalence-ratio", schema.Float().Min(0)).Optional().
		Field("pressure-rise", schema.Quantity("pressure-rise")).Optional().
		Field("rcm-data", rcmDataRule()).Optional().
		Field("time-histories", schema.List(historyRule()).NonEmpty()).Optional().
		Field("volume-history", volumeHistoryRule()).Optional().
		Exclusive("time-histories", "volume-history")
}

func rcmDataRule() *schema.ObjectRule {
	return schema.Object().
		Field("compressed-pressure", schema.Quantity("compressed-pressure")).Optional().
		Field("compressed-temperature", schema.Quantity("compressed-temperature")).Optional().
		Field("compression-time", schema.Quantity("compression-time")).Optional().
		Field("stroke", schema.Quantity("stroke")).Optional().
		Field("clearance", schema.Quantity("clearance")).Optional().
		Field("compression-ratio", schema.Float().Min(0)).Optional()
}

func columnRule() *schema.ObjectRule {
	return schema.Object().
		Field("units", schema.String().NonEmpty()).Required().
		Field("column", schema.Int().Min(0).Max(1)).Required()
}

func historyRule() *schema.ObjectRule {
	return schema.Object().
		Field("type", schema.String().Enum(HistoryTypes...)).Required().
		Field("time", columnRule()).Required().
		Field("quantity", columnRule()).Required().
		Field("values", schema.List(historyRowRule()).NonEmpty()).Required().
		Refine(checkHistoryColumns)
}

// volumeHistoryRule accepts the deprecated single-history form; the builder
// converts it into a volume time history.
func volumeHistoryRule() *schema.ObjectRule {
	return schema.Object().
		Field("time", columnRule()).Required().
		Field("volume", columnRule()).Required().
		Field("values", schema.List(historyRowRule()).NonEmpty()).Required().
		Refine(func(cx *schema.Context, path string, m map[string]any) {
			cx.Warnf(path, "volume-history is deprecated, use time-histories")
			checkColumnPair(cx, path, m, "volume")
			checkColumnUnits(cx, path, m, "volume", "volume")
		})
}

func historyRowRule() schema.Rule {
	return schema.RuleFunc(func(cx *schema.Context, path string, v any) {
		row, ok := v.([]any)
		if !ok || len(row) != 2 {
			cx.Errorf(path, schema.CodeInvalidType, "expected a [time, value] pair")
			return
		}
		for i, cell := range row {
			if _, ok := schema.AsFloat(cell); !ok {
				cx.Errorf(fmt.Sprintf("%s/%d", path, i), schema.CodeInvalidType, "expected number")
			}
		}
	})
}

func checkHistoryColumns(cx *schema.Context, path string, m map[string]any) {
	checkColumnPair(cx, path, m, "quantity")
	typ, _ := m["type"].(string)
	checkColumnUnits(cx, path, m, "quantity", typ)
}

// checkColumnUnits parses each column's units. The time column must be
// seconds-compatible; the quantity column is dimension-checked when the
// history type has a fixed dimension (emission and absorption signals do
// not, their units pass through).
func checkColumnUnits(cx *schema.Context, path string, m map[string]any, quantityKey, typ string) {
	checkColumnUnit(cx, path+"/time", m["time"], "time")
	switch typ {
	case "volume", "temperature", "pressure":
		checkColumnUnit(cx, path+"/"+quantityKey, m[quantityKey], typ)
	}
}

func checkColumnUnit(cx *schema.Context, path string, v any, kind string) {
	m, ok := schema.AsMap(v)
	if !ok {
		return
	}
	expr, _ := m["units"].(string)
	u, err := units.Parse(expr)
	if err != nil {
		cx.Issue(schema.Issue{Path: path + "/units", Code: schema.CodeParseError,
			Message: err.Error(), Cause: err})
		return
	}
	expect, _ := units.Parse(schema.KindUnits[kind])
	if !u.Compatible(expect) {
		cx.Errorf(path+"/units", schema.CodeDimensionMismatch,
			"incompatible units %q; should be consistent with %s", expr, schema.KindUnits[kind])
	}
}

func checkColumnPair(cx *schema.Context, path string, m map[string]any, quantityKey string) {
	tm, _ := schema.AsMap(m["time"])
	qm, _ := schema.AsMap(m[quantityKey])
	tc, _ := schema.AsInt(tm["column"])
	qc, _ := schema.AsInt(qm["column"])
	if tc == qc {
		cx.Errorf(path, schema.CodeExcluded,
			"time and %s cannot occupy the same column %d", quantityKey, tc)
	}
}

// checkApparatusConsistency enforces the device-specific exclusions:
// pressure rise is a shock tube measurement, volume histories and RCM data
// belong to rapid compression machines.
func checkApparatusConsistency(cx *schema.Context, path string, m map[string]any) {
	app, ok := schema.AsMap(m["apparatus"])
	if !ok {
		return
	}
	kind, _ := app["kind"].(string)
	points, _ := m["datapoints"].([]any)
	for i, p := range points {
		dp, ok := schema.AsMap(p)
		if !ok {
			continue
		}
		switch ApparatusKind(kind) {
		case RapidCompressionMachine:
			if _, present := dp["pressure-rise"]; present {
				cx.Errorf(fmt.Sprintf("%s/datapoints/%d/pressure-rise", path, i), schema.CodeExcluded,
					"pressure rise cannot be defined for a rapid compression machine")
			}
		case ShockTube:
			if _, present := dp["rcm-data"]; present {
				cx.Errorf(fmt.Sprintf("%s/datapoints/%d/rcm-data", path, i), schema.CodeExcluded,
					"rcm-data cannot be defined for a shock tube")
			}
			if _, present := dp["volume-history"]; present {
				cx.Errorf(fmt.Sprintf("%s/datapoints/%d/volume-history", path, i), schema.CodeExcluded,
					"volume history cannot be defined for a shock tube")
			}
			histories, _ := dp["time-histories"].([]any)
			for j, h := range histories {
				hm, ok := schema.AsMap(h)
				if !ok {
					continue
				}
				if t, _ := hm["type"].(string); t == "volume" {
					cx.Errorf(fmt.Sprintf("%s/datapoints/%d/time-histories/%d", path, i, j), schema.CodeExcluded,
						"volume history cannot be defined for a shock tube")
				}
			}
		}
	}
}
