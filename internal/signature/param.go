package signature

import (
	"reflect"
	"strings"
)

type Kind int

const (
	KindPositional    Kind = 0 // fillable by position or by name
	KindKeywordOnly   Kind = 1 // fillable by name only
	KindCollectArgs   Kind = 2 // absorbs leftover positional arguments
	KindCollectKwargs Kind = 3 // absorbs leftover keyword arguments
)

func (k Kind) String() string {
	switch k {
	case KindPositional:
		return "positional"
	case KindKeywordOnly:
		return "keyword-only"
	case KindCollectArgs:
		return "collect-args"
	case KindCollectKwargs:
		return "collect-kwargs"
	default:
		return "unknown"
	}
}

// Param is one declared parameter of a callable.
//
// Types is the parameter's constraint: nil means unconstrained, a single
// element is one required type, multiple elements are an ordered union of
// alternatives (a value must satisfy at least one). Positional-only status
// is not carried here; the Signature records it as a boundary index over
// the positional list, matching how the raw metadata reports it.
type Param struct {
	Name       string
	Kind       Kind
	Types      []reflect.Type
	Default    any
	HasDefault bool
}

// Matches reports whether v satisfies the parameter's type constraint.
// An unconstrained parameter accepts anything, including nil. A nil value
// satisfies a constraint only if some alternative is a nilable kind.
func (p Param) Matches(v any) bool {
	return typesMatch(v, p.Types)
}

func typesMatch(v any, types []reflect.Type) bool {
	if len(types) == 0 {
		return true
	}
	if v == nil {
		for _, t := range types {
			if isNilable(t) {
				return true
			}
		}
		return false
	}
	vt := reflect.TypeOf(v)
	for _, t := range types {
		if t == nil {
			return true
		}
		if vt.AssignableTo(t) {
			return true
		}
	}
	return false
}

func isNilable(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}

func constraintString(types []reflect.Type) string {
	if len(types) == 0 {
		return "any"
	}
	names := make([]string, len(types))
	for i, t := range types {
		if t == nil {
			names[i] = "any"
			continue
		}
		names[i] = t.String()
	}
	return strings.Join(names, "|")
}
