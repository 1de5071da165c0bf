package binding

import (
	"strconv"

	"github.com/ohler55/ojg/jp"
)

// walk follows segments into value one field at a time. Object fields are
// matched by key; a numeric segment indexes an array. A missing field, an
// empty segment, or a null along the way ends resolution.
func walk(value any, segments []string) (any, bool) {
	cur := value
	for _, seg := range segments {
		if seg == "" {
			return nil, false
		}
		step, ok := stepFor(cur, seg)
		if !ok || !step.Has(cur) {
			return nil, false
		}
		cur = step.First(cur)
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// stepFor builds the one-segment JSONPath expression for seg against cur.
func stepFor(cur any, seg string) (jp.Expr, bool) {
	switch cur.(type) {
	case map[string]any:
		return jp.C(seg), true
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 {
			return nil, false
		}
		return jp.N(i), true
	default:
		return nil, false
	}
}
