// Package schema implements the declarative validation engine for ChemKED
// documents: structural rules (types, required/optional fields, mutual
// exclusion, conditional requirements, enumerations, bounds) plus the custom
// semantic validators (unit dimensions, identifier checksums and registry
// agreement, DOI resolution).
//
// Validation accumulates: every rule reports all of its issues and the full
// list is returned, so a caller can fix a document in one pass. Registry
// outages surface as Warnings, never as Issues.
package schema

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/chemked/chemked/crossref"
	"github.com/chemked/chemked/orcid"
)

// Context carries accumulated results and the injected lookup collaborators
// through one validation run. It is not safe for concurrent use; validate one
// document per Context.
type Context struct {
	ctx    context.Context
	issues Issues
	warns  Warnings

	ORCID orcid.Lookup
	DOI   crossref.Lookup
}

// NewContext returns a validation context with the given collaborators.
// Nil lookups degrade to offline behavior.
func NewContext(ctx context.Context, people orcid.Lookup, works crossref.Lookup) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if people == nil {
		people = orcid.Offline{}
	}
	if works == nil {
		works = crossref.Offline{}
	}
	return &Context{ctx: ctx, ORCID: people, DOI: works}
}

// Errorf records a fatal issue.
func (cx *Context) Errorf(path, code, format string, args ...any) {
	cx.issues = AppendIssues(cx.issues, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Issue records a prepared issue.
func (cx *Context) Issue(it Issue) { cx.issues = AppendIssues(cx.issues, it) }

// Warnf records an advisory entry.
func (cx *Context) Warnf(path, format string, args ...any) {
	cx.warns = append(cx.warns, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Result returns everything collected so far.
func (cx *Context) Result() (Issues, Warnings) { return cx.issues, cx.warns }

// Rule validates one node of the raw document tree.
type Rule interface {
	Check(cx *Context, path string, v any)
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(cx *Context, path string, v any)

func (f RuleFunc) Check(cx *Context, path string, v any) { f(cx, path, v) }

// Validate runs a rule over a whole document and returns the collected
// issues (nil when the document is valid) and warnings.
func Validate(ctx context.Context, root Rule, doc any, people orcid.Lookup, works crossref.Lookup) (Issues, Warnings) {
	cx := NewContext(ctx, people, works)
	root.Check(cx, "", doc)
	return cx.Result()
}

// ---- object ----

// ObjectRule validates a mapping node field by field. Unknown keys are
// rejected unless AllowUnknown is set.
type ObjectRule struct {
	fields       map[string]Rule
	required     map[string]struct{}
	exclusive    [][]string          // at most one key per group may be present
	oneOf        [][]string          // at least one key per group must be present
	requiresWith map[string][]string // key present => all listed keys present
	allowUnknown bool
	refines      []func(cx *Context, path string, m map[string]any)
}

// Object creates an object rule with strict unknown-key handling.
func Object() *ObjectRule {
	return &ObjectRule{fields: map[string]Rule{}, required: map[string]struct{}{}, requiresWith: map[string][]string{}}
}

type fieldStep struct {
	o    *ObjectRule
	name string
}

// Field registers a field with its rule; follow with Required or Optional.
func (o *ObjectRule) Field(name string, r Rule) *fieldStep {
	o.fields[name] = r
	return &fieldStep{o: o, name: name}
}

func (f *fieldStep) Required() *ObjectRule {
	f.o.required[f.name] = struct{}{}
	return f.o
}

func (f *fieldStep) Optional() *ObjectRule { return f.o }

// Exclusive declares a group of mutually exclusive keys.
func (o *ObjectRule) Exclusive(keys ...string) *ObjectRule {
	o.exclusive = append(o.exclusive, keys)
	return o
}

// OneOf requires at least one key of the group to be present.
func (o *ObjectRule) OneOf(keys ...string) *ObjectRule {
	o.oneOf = append(o.oneOf, keys)
	return o
}

// RequiresWith declares that the presence of key requires all of with.
func (o *ObjectRule) RequiresWith(key string, with ...string) *ObjectRule {
	o.requiresWith[key] = append(o.requiresWith[key], with...)
	return o
}

// AllowUnknown disables unknown-key rejection for this object.
func (o *ObjectRule) AllowUnknown() *ObjectRule {
	o.allowUnknown = true
	return o
}

// Refine attaches a cross-field hook run after the structural pass, only
// when no structural issue was found in this object.
func (o *ObjectRule) Refine(fn func(cx *Context, path string, m map[string]any)) *ObjectRule {
	o.refines = append(o.refines, fn)
	return o
}

func (o *ObjectRule) sortedKeys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *ObjectRule) Check(cx *Context, path string, v any) {
	m, ok := AsMap(v)
	if !ok {
		cx.Errorf(at(path), CodeInvalidType, "expected mapping")
		return
	}
	before := len(cx.issues)
	for _, k := range o.sortedKeys() {
		r := o.fields[k]
		val, present := m[k]
		if !present {
			if _, req := o.required[k]; req {
				cx.Errorf(path+"/"+k, CodeRequired, "required field missing")
			}
			continue
		}
		r.Check(cx, path+"/"+k, val)
	}
	if !o.allowUnknown {
		unknown := make([]string, 0)
		for k := range m {
			if _, known := o.fields[k]; !known {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			cx.Errorf(path+"/"+k, CodeUnknownKey, "unknown key")
		}
	}
	for _, group := range o.exclusive {
		present := presentKeys(m, group)
		if len(present) > 1 {
			cx.Errorf(at(path), CodeExcluded, "fields %s are mutually exclusive", strings.Join(present, ", "))
		}
	}
	for _, group := range o.oneOf {
		if len(presentKeys(m, group)) == 0 {
			cx.Errorf(at(path), CodeRequired, "one of %s is required", strings.Join(group, ", "))
		}
	}
	for _, key := range sortedMapKeys(o.requiresWith) {
		if _, present := m[key]; !present {
			continue
		}
		for _, need := range o.requiresWith[key] {
			if _, ok := m[need]; !ok {
				cx.Errorf(path+"/"+key, CodeRequiredWith, "%s requires %s", key, need)
			}
		}
	}
	if len(cx.issues) == before {
		for _, fn := range o.refines {
			fn(cx, path, m)
		}
	}
}

// ---- primitives ----

// StringRule validates a string node.
type StringRule struct {
	enum     []string
	nonEmpty bool
	pattern  *regexp.Regexp
}

func String() *StringRule { return &StringRule{} }

func (r *StringRule) Enum(values ...string) *StringRule {
	r.enum = values
	return r
}

func (r *StringRule) NonEmpty() *StringRule {
	r.nonEmpty = true
	return r
}

func (r *StringRule) Pattern(re string) *StringRule {
	r.pattern = regexp.MustCompile(re)
	return r
}

func (r *StringRule) Check(cx *Context, path string, v any) {
	s, ok := v.(string)
	if !ok {
		cx.Errorf(at(path), CodeInvalidType, "expected string")
		return
	}
	if r.nonEmpty && strings.TrimSpace(s) == "" {
		cx.Errorf(at(path), CodeEmpty, "must not be empty")
	}
	if len(r.enum) > 0 {
		for _, e := range r.enum {
			if s == e {
				return
			}
		}
		cx.Issue(Issue{Path: at(path), Code: CodeInvalidEnum,
			Message: fmt.Sprintf("illegal value %q", s),
			Hint:    "allowed values (case sensitive): " + strings.Join(r.enum, ", ")})
		return
	}
	if r.pattern != nil && !r.pattern.MatchString(s) {
		cx.Errorf(at(path), CodeParseError, "value %q does not match %s", s, r.pattern)
	}
}

// IntRule validates an integer node.
type IntRule struct {
	min, max *int64
}

func Int() *IntRule { return &IntRule{} }

func (r *IntRule) Min(n int64) *IntRule { r.min = &n; return r }
func (r *IntRule) Max(n int64) *IntRule { r.max = &n; return r }

func (r *IntRule) Check(cx *Context, path string, v any) {
	n, ok := AsInt(v)
	if !ok {
		cx.Errorf(at(path), CodeInvalidType, "expected integer")
		return
	}
	if r.min != nil && n < *r.min {
		cx.Errorf(at(path), CodeTooSmall, "must be at least %d", *r.min)
	}
	if r.max != nil && n > *r.max {
		cx.Errorf(at(path), CodeTooBig, "must be at most %d", *r.max)
	}
}

// FloatRule validates a numeric node.
type FloatRule struct {
	min *float64
}

func Float() *FloatRule { return &FloatRule{} }

func (r *FloatRule) Min(f float64) *FloatRule { r.min = &f; return r }

func (r *FloatRule) Check(cx *Context, path string, v any) {
	f, ok := AsFloat(v)
	if !ok {
		cx.Errorf(at(path), CodeInvalidType, "expected number")
		return
	}
	if r.min != nil && f < *r.min {
		cx.Errorf(at(path), CodeTooSmall, "must be at least %g", *r.min)
	}
}

// ListRule validates a sequence node element-wise.
type ListRule struct {
	elem     Rule
	nonEmpty bool
}

func List(elem Rule) *ListRule { return &ListRule{elem: elem} }

func (r *ListRule) NonEmpty() *ListRule {
	r.nonEmpty = true
	return r
}

func (r *ListRule) Check(cx *Context, path string, v any) {
	items, ok := v.([]any)
	if !ok {
		cx.Errorf(at(path), CodeInvalidType, "expected sequence")
		return
	}
	if r.nonEmpty && len(items) == 0 {
		cx.Errorf(at(path), CodeEmpty, "must have at least one entry")
		return
	}
	if r.elem == nil {
		return
	}
	for i, it := range items {
		r.elem.Check(cx, fmt.Sprintf("%s/%d", path, i), it)
	}
}

// Any accepts every node; used for free-form values checked elsewhere.
func Any() Rule { return RuleFunc(func(cx *Context, path string, v any) {}) }

// ---- helpers ----

func at(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// AsMap coerces a document node to a string-keyed mapping. Both modern and
// legacy YAML map representations are accepted.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		// legacy YAML engines produce interface keys
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// AsInt coerces a document node to an integer. JSON engines deliver every
// number as float64, so integral floats are accepted too.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// AsFloat coerces a document node to a float, accepting integer spellings.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func presentKeys(m map[string]any, keys []string) []string {
	var out []string
	for _, k := range keys {
		if _, ok := m[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func sortedMapKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
