// Package binding resolves {{source.path}} expressions in component
// properties against named data sources.
//
// Resolution never fails. An expression whose source is missing, or whose
// path runs off the fetched value, is left as written so authors can see it
// while editing; boolean properties resolve such expressions to false
// instead. When a property is exactly one expression, the substituted text
// is coerced back to a number, boolean or JSON value when it parses as one.
//
// Resolve is side-effect free and may be called on every render.
package binding

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentic-research/easel/api"
	"github.com/agentic-research/easel/internal/graph"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Source supplies the current value of a named data source.
// ok is false when the source is unknown, not yet fetched, or failed.
type Source interface {
	Value(name string) (value any, ok bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(name string) (any, bool)

// Value implements Source.
func (f SourceFunc) Value(name string) (any, bool) { return f(name) }

// Static is a fixed map of data-source values.
type Static map[string]any

// Value implements Source.
func (s Static) Value(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

var (
	exprPattern  = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
	wholePattern = regexp.MustCompile(`^\{\{([^{}]*)\}\}$`)
)

// Interpreter resolves template bindings against a Source.
type Interpreter struct {
	src Source
}

// New returns an Interpreter reading from src. A nil src resolves nothing.
func New(src Source) *Interpreter {
	if src == nil {
		src = Static(nil)
	}
	return &Interpreter{src: src}
}

// HasBinding reports whether s contains at least one {{...}} expression.
func HasBinding(s string) bool {
	return exprPattern.MatchString(s)
}

// Resolve resolves every binding in value. Strings are substituted,
// maps and slices are walked recursively, and anything else is returned
// unchanged. kind is the property's declared type.
func (in *Interpreter) Resolve(value any, kind api.PropertyKind) any {
	return in.resolve(graph.CloneValue(value), kind)
}

func (in *Interpreter) resolve(value any, kind api.PropertyKind) any {
	switch v := value.(type) {
	case string:
		return in.ResolveString(v, kind)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = in.resolve(e, kind)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = in.resolve(e, kind)
		}
		return out
	default:
		return value
	}
}

// ResolveProps resolves every property using its declared type from
// schema. Properties missing from the schema are treated as strings.
func (in *Interpreter) ResolveProps(props map[string]any, schema map[string]api.PropertyType) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		kind := api.PropString
		if t, ok := schema[k]; ok {
			kind = t.Kind
		}
		out[k] = in.Resolve(v, kind)
	}
	return out
}

// ResolveString substitutes the bindings in s. The result is a string
// unless s is a single whole expression whose substitution parses as a
// number, boolean or JSON value.
func (in *Interpreter) ResolveString(s string, kind api.PropertyKind) any {
	if !strings.Contains(s, "{{") {
		return s
	}
	out := exprPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := in.lookup(path); ok {
			return Stringify(v)
		}
		if kind == api.PropBoolean {
			return "false"
		}
		return match
	})
	if out == s || !wholePattern.MatchString(s) {
		return out
	}
	return coerce(out)
}

// lookup resolves a dotted path: the first segment names the data source,
// the rest walk into its value.
func (in *Interpreter) lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	root, ok := in.src.Value(segments[0])
	if !ok || root == nil {
		return nil, false
	}
	return walk(root, segments[1:])
}

// coerce converts whole-expression results: number first, then the
// boolean literals, then any JSON value. Unparseable text stays a string.
func coerce(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return s
	}
	if n, ok := parseNumber(t); ok {
		return n
	}
	switch t {
	case "true":
		return true
	case "false":
		return false
	}
	if v, err := oj.ParseString(t); err == nil {
		return v
	}
	return s
}

// parseNumber accepts decimal integers and floats. Integers come back as
// int64, everything else as float64. NaN and infinities are rejected.
func parseNumber(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// Stringify renders a resolved value for substitution into text.
// Objects and arrays render as compact JSON with sorted keys.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return oj.JSON(v, &ojg.Options{Sort: true})
	}
}
