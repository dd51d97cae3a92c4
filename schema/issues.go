package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes. Structural codes describe a malformed document; semantic codes
// describe a well-formed document that violates a domain constraint. Both are
// fatal to validation and are collected, not short-circuited.
const (
	// Structural
	CodeInvalidType  = "invalid_type"
	CodeRequired     = "required"
	CodeUnknownKey   = "unknown_key"
	CodeInvalidEnum  = "invalid_enum"
	CodeTooSmall     = "too_small"
	CodeTooBig       = "too_big"
	CodeEmpty        = "empty"
	CodeExcluded     = "excluded"
	CodeRequiredWith = "required_with"
	CodeParseError   = "parse_error"
	// Semantic
	CodeDimensionMismatch = "dimension_mismatch"
	CodeBounds            = "bounds"
	CodeSumMismatch       = "sum_mismatch"
	CodeBadChecksum       = "bad_checksum"
	CodeUnknownIdentifier = "unknown_identifier"
	CodeNameMismatch      = "name_mismatch"
	CodeDOIMismatch       = "doi_mismatch"
	// Conversion
	CodeUnmappedValue    = "unmapped_value"
	CodeMissingElement   = "missing_element"
	CodeMissingAttribute = "missing_attribute"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer into the document (for example: /datapoints/2/temperature).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, expected values, etc.
	Cause   error  // Optional: underlying error.
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// Rebase prefixes every issue path with base, so child validators can report
// paths relative to their own root.
func (iss Issues) Rebase(base string) Issues {
	if base == "" || base == "/" {
		return iss
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		p := it.Path
		switch {
		case p == "" || p == "/":
			p = base
		case strings.HasPrefix(p, "/"):
			p = base + p
		default:
			p = base + "/" + p
		}
		it.Path = p
		out[i] = it
	}
	return out
}

// Warning is advisory information surfaced alongside a validation result.
// Warnings never block validation success; they flag conditions the caller
// may want to act on (registry unreachable, lossy normalization).
type Warning struct {
	Path    string
	Message string
}

// Warnings collects advisory entries for one validation or conversion run.
type Warnings []Warning

func (ws Warnings) String() string {
	parts := make([]string, len(ws))
	for i, w := range ws {
		if w.Path != "" {
			parts[i] = w.Path + ": " + w.Message
		} else {
			parts[i] = w.Message
		}
	}
	return strings.Join(parts, "; ")
}
