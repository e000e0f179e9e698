package introspect

import (
	"fmt"
	"reflect"

	"github.com/funvibe/funcall/internal/dispatch"
	"github.com/funvibe/funcall/internal/signature"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

type describeConfig struct {
	name     string
	doc      string
	names    []string
	posOnly  int
	defaults []any
	kwargs   bool
}

// Option adjusts how Describe reads a callable.
type Option func(*describeConfig)

// Name sets the callable's descriptive name.
func Name(name string) Option {
	return func(c *describeConfig) { c.name = name }
}

// Doc sets the callable's documentation string.
func Doc(doc string) Option {
	return func(c *describeConfig) { c.doc = doc }
}

// Names overrides the generated parameter names. It must cover every
// declared parameter in order, including a skipped first parameter and any
// collectors.
func Names(names ...string) Option {
	return func(c *describeConfig) { c.names = names }
}

// PositionalOnly declares the leading n parameters as never fillable by
// keyword name.
func PositionalOnly(n int) Option {
	return func(c *describeConfig) { c.posOnly = n }
}

// Defaults declares default values for the trailing positional parameters,
// aligned to the end of the positional list.
func Defaults(values ...any) Option {
	return func(c *describeConfig) { c.defaults = values }
}

// Kwargs declares the callable's last non-variadic parameter, which must
// be a string-keyed map, as the collect-keyword parameter.
func Kwargs() Option {
	return func(c *describeConfig) { c.kwargs = true }
}

// Describe builds raw signature metadata from a target's callable using
// native reflection: parameter count and variadic capture come from the
// function type, parameter types become constraints (an any parameter is
// unconstrained), and a Go variadic final parameter becomes the
// collect-positional parameter constrained to its element type. Parameter
// names are generated (a0, a1, ...) unless overridden.
func Describe(t Target, opts ...Option) (signature.Metadata, error) {
	if err := t.check(); err != nil {
		return signature.Metadata{}, err
	}
	var cfg describeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	fnType := reflect.TypeOf(t.Callable())
	n := fnType.NumIn()

	iVarArg := -1
	if fnType.IsVariadic() {
		iVarArg = n - 1
	}
	iVarKw := -1
	if cfg.kwargs {
		iVarKw = n - 1
		if iVarArg >= 0 {
			iVarKw = n - 2
		}
		if iVarKw < 0 {
			return signature.Metadata{}, dispatch.NewMalformedTargetError("kwargs collector declared but the callable has no parameter for it")
		}
		kt := fnType.In(iVarKw)
		if kt.Kind() != reflect.Map || kt.Key().Kind() != reflect.String {
			return signature.Metadata{}, dispatch.NewMalformedTargetError(
				fmt.Sprintf("kwargs collector parameter must be a string-keyed map, got %s", kt))
		}
	}

	names := cfg.names
	if names == nil {
		names = make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("a%d", i)
		}
	} else if len(names) != n {
		return signature.Metadata{}, dispatch.NewMalformedTargetError(
			fmt.Sprintf("%d names for %d declared parameters", len(names), n))
	}

	meta := signature.Metadata{
		Name:           cfg.name,
		Doc:            cfg.doc,
		PositionalOnly: cfg.posOnly,
		SkipFirst:      t.SkipFirst(),
		Types:          make(map[string][]reflect.Type),
	}

	for i := 0; i < n; i++ {
		pt := fnType.In(i)
		switch i {
		case iVarArg:
			meta.VarArg = names[i]
			if c := constraintOf(pt.Elem()); c != nil {
				meta.Types[names[i]] = c
			}
		case iVarKw:
			meta.VarKw = names[i]
			if c := constraintOf(pt.Elem()); c != nil {
				meta.Types[names[i]] = c
			}
		default:
			meta.Params = append(meta.Params, names[i])
			if i == 0 && meta.SkipFirst {
				continue // runtime-bound, never matched
			}
			if c := constraintOf(pt); c != nil {
				meta.Types[names[i]] = c
			}
		}
	}

	if len(cfg.defaults) > len(meta.Params) {
		return signature.Metadata{}, dispatch.NewMalformedTargetError(
			fmt.Sprintf("%d defaults for %d positional parameters", len(cfg.defaults), len(meta.Params)))
	}
	meta.Defaults = cfg.defaults

	return meta, nil
}

// constraintOf maps a declared Go parameter type to a constraint. The empty
// interface means the parameter accepts anything.
func constraintOf(t reflect.Type) []reflect.Type {
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		return nil
	}
	return []reflect.Type{t}
}

// NewCaller materializes matches for sig onto the target's callable. The
// returned caller converts each bound value to the callable's parameter
// type; a value that does not fit is an argument-class rejection, the
// second safety net behind signature validation. The callable may return
// nothing, a value, an error, or a value and an error; a returned
// *dispatch.ArgumentError (possibly wrapped) sends dispatch on to the next
// candidate, any other error propagates as-is.
func NewCaller(sig *signature.Signature, t Target) (dispatch.Caller, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	fnVal := reflect.ValueOf(t.Callable())
	fnType := fnVal.Type()

	prefixLen := 0
	if t.SkipFirst() {
		prefixLen = 1
	}

	spread := false
	expected := prefixLen + sig.NumPositional() + sig.NumKeywordOnly()
	if sig.HasVarArg() {
		if fnType.IsVariadic() {
			spread = true
		} else {
			expected++ // extras delivered as one slice parameter
		}
	} else if fnType.IsVariadic() {
		return nil, dispatch.NewMalformedTargetError(
			fmt.Sprintf("%s is variadic but the signature declares no positional collector", fnType))
	}
	if sig.HasVarKw() {
		expected++ // leftovers delivered as one map parameter
	}
	if spread {
		expected++
	}
	if fnType.NumIn() != expected {
		return nil, dispatch.NewMalformedTargetError(
			fmt.Sprintf("%s takes %d parameters, signature %s needs %d", fnType, fnType.NumIn(), sig, expected))
	}

	return func(b *signature.Binding) (any, error) {
		prefix, finish, err := t.begin()
		if err != nil {
			return nil, err
		}
		in := make([]reflect.Value, 0, expected+len(b.Extra))
		in = append(in, prefix...)
		slot := len(prefix)

		for i, v := range b.Positional {
			cv, err := convert(v, fnType.In(slot), fmt.Sprintf("parameter %d", i))
			if err != nil {
				return nil, err
			}
			in = append(in, cv)
			slot++
		}
		for i, v := range b.Keyword {
			cv, err := convert(v, fnType.In(slot), fmt.Sprintf("keyword parameter %d", i))
			if err != nil {
				return nil, err
			}
			in = append(in, cv)
			slot++
		}
		if sig.HasVarArg() && !spread {
			st := fnType.In(slot)
			sv := reflect.MakeSlice(st, 0, len(b.Extra))
			for i, v := range b.Extra {
				cv, err := convert(v, st.Elem(), fmt.Sprintf("extra argument %d", i))
				if err != nil {
					return nil, err
				}
				sv = reflect.Append(sv, cv)
			}
			in = append(in, sv)
			slot++
		}
		if sig.HasVarKw() {
			mt := fnType.In(slot)
			mv := reflect.MakeMapWithSize(mt, len(b.ExtraKw))
			for k, v := range b.ExtraKw {
				cv, err := convert(v, mt.Elem(), fmt.Sprintf("extra keyword %q", k))
				if err != nil {
					return nil, err
				}
				mv.SetMapIndex(reflect.ValueOf(k), cv)
			}
			in = append(in, mv)
			slot++
		}
		if spread {
			et := fnType.In(slot).Elem()
			for i, v := range b.Extra {
				cv, err := convert(v, et, fmt.Sprintf("extra argument %d", i))
				if err != nil {
					return nil, err
				}
				in = append(in, cv)
			}
		}

		results := fnVal.Call(in)

		var ret any
		var callErr error
		if n := len(results); n > 0 {
			last := results[n-1]
			if last.Type() == errType {
				if !last.IsNil() {
					callErr = last.Interface().(error)
				}
				if n > 1 {
					ret = results[0].Interface()
				}
			} else {
				ret = results[0].Interface()
			}
		}
		if callErr != nil {
			return nil, callErr
		}
		if finish != nil {
			ret = finish(ret)
		}
		return ret, nil
	}, nil
}

func convert(v any, target reflect.Type, what string) (reflect.Value, error) {
	if v == nil {
		switch target.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return reflect.Zero(target), nil
		default:
			return reflect.Value{}, dispatch.NewArgumentError("%s: nil is not a %s", what, target)
		}
	}
	vv := reflect.ValueOf(v)
	if vv.Type().AssignableTo(target) {
		return vv, nil
	}
	return reflect.Value{}, dispatch.NewArgumentError("%s: %s is not assignable to %s", what, vv.Type(), target)
}
