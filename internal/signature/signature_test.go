package signature

import (
	"reflect"
	"testing"
)

var (
	intType    = reflect.TypeOf(int(0))
	strType    = reflect.TypeOf("")
	floatType  = reflect.TypeOf(float64(0))
	anyMapType = reflect.TypeOf(map[string]any(nil))
)

func TestNewInvariants(t *testing.T) {
	tests := []struct {
		name    string
		meta    Metadata
		wantErr bool
	}{
		{
			name: "plain",
			meta: Metadata{Params: []string{"a", "b"}},
		},
		{
			name:    "positional-only out of range",
			meta:    Metadata{Params: []string{"a"}, PositionalOnly: 2},
			wantErr: true,
		},
		{
			name:    "more defaults than parameters",
			meta:    Metadata{Params: []string{"a"}, Defaults: []any{1, 2}},
			wantErr: true,
		},
		{
			name:    "duplicate parameter",
			meta:    Metadata{Params: []string{"a", "a"}},
			wantErr: true,
		},
		{
			name:    "duplicate across positional and keyword-only",
			meta:    Metadata{Params: []string{"a"}, KeywordOnly: []string{"a"}},
			wantErr: true,
		},
		{
			name:    "duplicate collector name",
			meta:    Metadata{Params: []string{"rest"}, VarArg: "rest"},
			wantErr: true,
		},
		{
			name:    "constraint for undeclared parameter",
			meta:    Metadata{Params: []string{"a"}, Types: map[string][]reflect.Type{"b": {intType}}},
			wantErr: true,
		},
		{
			name:    "keyword default for undeclared parameter",
			meta:    Metadata{Params: []string{"a"}, KeywordDefaults: map[string]any{"x": 1}},
			wantErr: true,
		},
		{
			name: "skip first with constraint on the skipped parameter",
			meta: Metadata{
				Params:    []string{"self", "a"},
				SkipFirst: true,
				Types:     map[string][]reflect.Type{"self": {intType}},
			},
		},
		{
			name: "collectors and keyword-only together",
			meta: Metadata{
				Params:      []string{"a"},
				KeywordOnly: []string{"mode"},
				VarArg:      "rest",
				VarKw:       "opts",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.meta)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultsAlignToEnd(t *testing.T) {
	// Three parameters, two defaults: the defaults belong to b and c, not
	// a and b.
	s := MustNew(Metadata{
		Params:   []string{"a", "b", "c"},
		Defaults: []any{10, 20},
	})

	b, ok := s.Bind([]any{1}, nil)
	if !ok {
		t.Fatalf("Bind(1) should succeed with trailing defaults")
	}
	want := []any{1, 10, 20}
	if !reflect.DeepEqual(b.Positional, want) {
		t.Errorf("Positional = %v, want %v", b.Positional, want)
	}

	if s.Validate(nil, nil) {
		t.Errorf("a has no default, zero-arg call should fail")
	}
}

func TestSkipFirst(t *testing.T) {
	// Constructor-style shape: the leading parameter is runtime-bound.
	s := MustNew(Metadata{
		Params:    []string{"self", "a", "b"},
		Defaults:  []any{5},
		SkipFirst: true,
	})

	if got := s.NumPositional(); got != 2 {
		t.Fatalf("NumPositional = %d, want 2", got)
	}
	b, ok := s.Bind([]any{1}, nil)
	if !ok {
		t.Fatalf("Bind(1) should succeed")
	}
	if !reflect.DeepEqual(b.Positional, []any{1, 5}) {
		t.Errorf("Positional = %v, want [1 5]", b.Positional)
	}
	if s.Validate([]any{1, 2, 3}, nil) {
		t.Errorf("three args should not fit two matchable parameters")
	}
}

func TestSkipFirstShrinksPositionalOnlyBoundary(t *testing.T) {
	s := MustNew(Metadata{
		Params:         []string{"self", "a", "b"},
		PositionalOnly: 2, // covers self and a
		SkipFirst:      true,
	})
	if got := s.PositionalOnly(); got != 1 {
		t.Fatalf("PositionalOnly = %d, want 1", got)
	}
	// a stays positional-only, b is still fillable by name.
	if s.Validate(nil, map[string]any{"a": 1, "b": 2}) {
		t.Errorf("a by keyword should fail inside the boundary")
	}
	if !s.Validate([]any{1}, map[string]any{"b": 2}) {
		t.Errorf("a positional, b keyword should match")
	}
}

func TestValidate(t *testing.T) {
	twoArgs := MustNew(Metadata{Params: []string{"a", "b"}})
	typed := MustNew(Metadata{
		Params: []string{"a"},
		Types:  map[string][]reflect.Type{"a": {intType}},
	})
	union := MustNew(Metadata{
		Params: []string{"a"},
		Types:  map[string][]reflect.Type{"a": {intType, strType}},
	})
	posOnly := MustNew(Metadata{Params: []string{"a", "b"}, PositionalOnly: 1})
	varArgs := MustNew(Metadata{VarArg: "rest"})
	typedVarArgs := MustNew(Metadata{
		VarArg: "rest",
		Types:  map[string][]reflect.Type{"rest": {intType}},
	})
	varKw := MustNew(Metadata{VarKw: "opts"})
	typedVarKw := MustNew(Metadata{
		VarKw: "opts",
		Types: map[string][]reflect.Type{"opts": {strType}},
	})
	kwOnly := MustNew(Metadata{
		Params:          []string{"a"},
		KeywordOnly:     []string{"mode"},
		KeywordDefaults: map[string]any{"mode": "fast"},
	})
	kwOnlyRequired := MustNew(Metadata{
		Params:      []string{"a"},
		KeywordOnly: []string{"mode"},
	})

	tests := []struct {
		name   string
		sig    *Signature
		args   []any
		kwargs map[string]any
		want   bool
	}{
		{"exact arity", twoArgs, []any{1, 2}, nil, true},
		{"missing required", twoArgs, []any{1}, nil, false},
		{"too many positional", twoArgs, []any{1, 2, 3}, nil, false},
		{"keyword fill", twoArgs, []any{1}, map[string]any{"b": 2}, true},
		{"all by keyword", twoArgs, nil, map[string]any{"a": 1, "b": 2}, true},
		{"unknown keyword", twoArgs, []any{1, 2}, map[string]any{"c": 3}, false},

		// A parameter supplied both positionally and by name is a hard
		// failure, never "prefer positional".
		{"ambiguous positional and keyword", twoArgs, []any{1, 2}, map[string]any{"a": 9}, false},
		{"ambiguous on second parameter", twoArgs, []any{1, 2}, map[string]any{"b": 9}, false},

		{"typed accepts", typed, []any{1}, nil, true},
		{"typed rejects string", typed, []any{"x"}, nil, false},
		{"typed rejects float", typed, []any{1.5}, nil, false},
		{"typed rejects nil", typed, []any{nil}, nil, false},
		{"typed keyword fill checked", typed, nil, map[string]any{"a": "x"}, false},
		{"union int", union, []any{1}, nil, true},
		{"union string", union, []any{"x"}, nil, true},
		{"union rejects float", union, []any{1.5}, nil, false},

		{"positional-only by position", posOnly, []any{1, 2}, nil, true},
		{"positional-only by keyword", posOnly, nil, map[string]any{"a": 1, "b": 2}, false},
		{"boundary leaves later params nameable", posOnly, []any{1}, map[string]any{"b": 2}, true},

		{"varargs empty", varArgs, nil, nil, true},
		{"varargs many", varArgs, []any{1, "x", 3.0}, nil, true},
		{"varargs rejects keywords", varArgs, nil, map[string]any{"a": 1}, false},
		{"typed varargs all ints", typedVarArgs, []any{1, 2, 3}, nil, true},
		{"typed varargs mixed", typedVarArgs, []any{1, "x"}, nil, false},

		{"varkw collects", varKw, nil, map[string]any{"a": 1, "b": 2}, true},
		{"varkw rejects positional", varKw, []any{1}, nil, false},
		{"typed varkw strings", typedVarKw, nil, map[string]any{"a": "x"}, true},
		{"typed varkw rejects int", typedVarKw, nil, map[string]any{"a": 1}, false},

		{"keyword-only defaulted", kwOnly, []any{1}, nil, true},
		{"keyword-only supplied", kwOnly, []any{1}, map[string]any{"mode": "slow"}, true},
		{"keyword-only required missing", kwOnlyRequired, []any{1}, nil, false},
		{"keyword-only required supplied", kwOnlyRequired, []any{1}, map[string]any{"mode": "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.Validate(tt.args, tt.kwargs); got != tt.want {
				t.Errorf("Validate(%v, %v) = %v, want %v", tt.args, tt.kwargs, got, tt.want)
			}
		})
	}
}

func TestDefaultsAreNeverTypeChecked(t *testing.T) {
	// The default is a string, the constraint demands int. Using the
	// default must still validate; supplying the same string must not.
	s := MustNew(Metadata{
		Params:   []string{"a"},
		Defaults: []any{"not an int"},
		Types:    map[string][]reflect.Type{"a": {intType}},
	})

	b, ok := s.Bind(nil, nil)
	if !ok {
		t.Fatalf("defaulted call should validate despite the constraint")
	}
	if b.Positional[0] != "not an int" {
		t.Errorf("Positional[0] = %v, want the default", b.Positional[0])
	}
	if s.Validate([]any{"not an int"}, nil) {
		t.Errorf("the same value supplied explicitly must be type-checked")
	}
}

func TestBindCollectors(t *testing.T) {
	s := MustNew(Metadata{
		Params: []string{"a"},
		VarArg: "rest",
		VarKw:  "opts",
	})
	b, ok := s.Bind([]any{1, 2, 3}, map[string]any{"x": "y"})
	if !ok {
		t.Fatalf("Bind should succeed")
	}
	if !reflect.DeepEqual(b.Positional, []any{1}) {
		t.Errorf("Positional = %v, want [1]", b.Positional)
	}
	if !reflect.DeepEqual(b.Extra, []any{2, 3}) {
		t.Errorf("Extra = %v, want [2 3]", b.Extra)
	}
	if !reflect.DeepEqual(b.ExtraKw, map[string]any{"x": "y"}) {
		t.Errorf("ExtraKw = %v, want map[x:y]", b.ExtraKw)
	}
}

func TestBindDoesNotMutateCallerContainers(t *testing.T) {
	s := MustNew(Metadata{Params: []string{"a", "b"}, VarKw: "opts"})
	args := []any{1}
	kwargs := map[string]any{"b": 2, "extra": 3}

	if _, ok := s.Bind(args, kwargs); !ok {
		t.Fatalf("Bind should succeed")
	}
	if len(args) != 1 || args[0] != 1 {
		t.Errorf("args mutated: %v", args)
	}
	if len(kwargs) != 2 || kwargs["b"] != 2 || kwargs["extra"] != 3 {
		t.Errorf("kwargs mutated: %v", kwargs)
	}
}

func TestParamMatches(t *testing.T) {
	tests := []struct {
		name  string
		param Param
		value any
		want  bool
	}{
		{"unconstrained accepts anything", Param{Name: "a"}, struct{}{}, true},
		{"unconstrained accepts nil", Param{Name: "a"}, nil, true},
		{"single type", Param{Name: "a", Types: []reflect.Type{intType}}, 3, true},
		{"single type mismatch", Param{Name: "a", Types: []reflect.Type{intType}}, 3.0, false},
		{"union second alternative", Param{Name: "a", Types: []reflect.Type{intType, strType}}, "x", true},
		{"nil against value type", Param{Name: "a", Types: []reflect.Type{intType}}, nil, false},
		{"nil against nilable type", Param{Name: "a", Types: []reflect.Type{anyMapType}}, nil, true},
		{"interface constraint", Param{Name: "a", Types: []reflect.Type{reflect.TypeOf((*error)(nil)).Elem()}}, errValue{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.param.Matches(tt.value); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

type errValue struct{}

func (errValue) Error() string { return "err" }

func TestString(t *testing.T) {
	s := MustNew(Metadata{
		Name:           "area",
		Params:         []string{"w", "h", "scale"},
		PositionalOnly: 1,
		Defaults:       []any{1},
		Types: map[string][]reflect.Type{
			"w": {intType, floatType},
			"h": {intType},
		},
		VarArg: "rest",
		VarKw:  "opts",
	})
	want := "area(w:int|float64, /, h:int, scale=1, *rest, **opts)"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
