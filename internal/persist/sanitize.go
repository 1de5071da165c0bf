package persist

import (
	"reflect"
	"strings"
)

// Sanitize reduces v to JSON-friendly plain data. Functions, channels,
// unsafe pointers and complex numbers are dropped, as is any reference
// back into a value currently being visited. The second result is false
// when v itself had to be dropped.
func Sanitize(v any) (any, bool) {
	s := sanitizer{visiting: make(map[uintptr]bool)}
	return s.value(reflect.ValueOf(v))
}

// SanitizeProps applies Sanitize to every value, dropping the keys whose
// value cannot be kept.
func SanitizeProps(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		if c, ok := Sanitize(v); ok {
			out[k] = c
		}
	}
	return out
}

type sanitizer struct {
	visiting map[uintptr]bool
}

// enter marks a reference as on the current path. It returns false when
// the reference is already there, i.e. the value is circular.
func (s *sanitizer) enter(rv reflect.Value) bool {
	p := rv.Pointer()
	if p == 0 {
		return true
	}
	if s.visiting[p] {
		return false
	}
	s.visiting[p] = true
	return true
}

func (s *sanitizer) leave(rv reflect.Value) {
	delete(s.visiting, rv.Pointer())
}

func (s *sanitizer) value(rv reflect.Value) (any, bool) {
	if !rv.IsValid() {
		return nil, true
	}
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, false

	case reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
		return s.value(rv.Elem())

	case reflect.Pointer:
		if rv.IsNil() {
			return nil, true
		}
		if !s.enter(rv) {
			return nil, false
		}
		defer s.leave(rv)
		return s.value(rv.Elem())

	case reflect.Map:
		if rv.IsNil() {
			return nil, true
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		if !s.enter(rv) {
			return nil, false
		}
		defer s.leave(rv)
		out := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			if c, ok := s.value(it.Value()); ok {
				out[it.Key().String()] = c
			}
		}
		return out, true

	case reflect.Slice:
		if rv.IsNil() {
			return []any(nil), true
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes()), true
		}
		if !s.enter(rv) {
			return nil, false
		}
		defer s.leave(rv)
		return s.list(rv), true

	case reflect.Array:
		return s.list(rv), true

	case reflect.Struct:
		return s.structFields(rv), true

	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return nil, false
}

func (s *sanitizer) list(rv reflect.Value) []any {
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if c, ok := s.value(rv.Index(i)); ok {
			out = append(out, c)
		}
	}
	return out
}

// structFields maps exported fields by their json name, honoring "-".
func (s *sanitizer) structFields(rv reflect.Value) map[string]any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if c, ok := s.value(rv.Field(i)); ok {
			out[name] = c
		}
	}
	return out
}
