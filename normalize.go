package chemked

// Normalize prepares a freshly parsed document for validation. The
// common-properties block exists only as an anchor target for the datapoints
// and is dropped; it never injects anything into a datapoint that does not
// reference it explicitly. Every remaining value is deep-copied so anchored
// sub-structures shared between datapoints stop aliasing each other.
func Normalize(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "common-properties" {
			continue
		}
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
