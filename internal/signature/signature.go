// Package signature models the call contract of a registered overload and
// decides whether a concrete call fits it.
//
// A Signature is built once, from Metadata describing the raw parameter
// shape of a callable, and is immutable afterwards. Matching happens against
// live values: Validate answers "does this call shape fit this declaration",
// Bind additionally returns the values each parameter would receive. Both
// work on copies of the caller's containers and never mutate them.
package signature

import (
	"fmt"
	"reflect"
	"strings"
)

// Metadata is the raw parameter shape of a callable, as supplied by an
// introspection collaborator or a declarative descriptor.
//
// Positional defaults align to the END of the positional list: the
// n-th-from-last parameter maps to the n-th-from-last default. Keyword-only
// defaults are an independent mapping. Type names must already be resolved
// to concrete reflect.Types before Metadata is built.
type Metadata struct {
	// Name and Doc are the callable's descriptive metadata, surfaced on the
	// dispatch handle when this overload is the canonical one.
	Name string
	Doc  string

	// Params are the ordered positional parameter names, including the
	// positional-only prefix and, when SkipFirst is set, the implicitly
	// bound leading parameter.
	Params []string

	// PositionalOnly is the count of leading Params that may never be
	// supplied by keyword name.
	PositionalOnly int

	// Defaults are the default values for the trailing Params.
	// len(Defaults) <= len(Params).
	Defaults []any

	// KeywordOnly are the keyword-only parameter names in declared order.
	// KeywordDefaults maps a keyword-only name to its default.
	KeywordOnly     []string
	KeywordDefaults map[string]any

	// VarArg and VarKw name the collect-positional and collect-keyword
	// parameters. Empty means the callable declares no such capture.
	VarArg string
	VarKw  string

	// Types maps a parameter name (including collector names) to its
	// constraint. Absent name means unconstrained. Multiple entries form a
	// union of alternatives. A collector constraint applies uniformly to
	// every captured value.
	Types map[string][]reflect.Type

	// SkipFirst marks class-method-style targets whose first declared
	// parameter is bound by the runtime and must not be matched against
	// caller-supplied arguments.
	SkipFirst bool
}

// Signature is the immutable, queryable description of one overload's call
// contract.
type Signature struct {
	name string
	doc  string

	positional []Param // post SkipFirst
	posOnly    int     // boundary: positional[:posOnly] are positional-only

	keyword []Param // declared order, kept for call materialization

	varArg *Param
	varKw  *Param

	skipFirst bool
}

// Binding holds the values a successful match would deliver to the
// implementation.
type Binding struct {
	// Positional has one value per positional parameter of the Signature,
	// bound or defaulted, in declared order.
	Positional []any
	// Keyword has one value per keyword-only parameter, in declared order.
	Keyword []any
	// Extra are the leftover positional arguments captured by the
	// collect-positional parameter.
	Extra []any
	// ExtraKw are the leftover keyword arguments captured by the
	// collect-keyword parameter.
	ExtraKw map[string]any
}

// New builds a Signature from raw metadata.
func New(meta Metadata) (*Signature, error) {
	if meta.PositionalOnly < 0 || meta.PositionalOnly > len(meta.Params) {
		return nil, fmt.Errorf("signature %s: positional-only count %d out of range (have %d parameters)",
			meta.Name, meta.PositionalOnly, len(meta.Params))
	}
	if len(meta.Defaults) > len(meta.Params) {
		return nil, fmt.Errorf("signature %s: %d defaults for %d positional parameters",
			meta.Name, len(meta.Defaults), len(meta.Params))
	}

	seen := make(map[string]bool)
	declare := func(name string) error {
		if name == "" {
			return fmt.Errorf("signature %s: empty parameter name", meta.Name)
		}
		if seen[name] {
			return fmt.Errorf("signature %s: duplicate parameter %q", meta.Name, name)
		}
		seen[name] = true
		return nil
	}

	s := &Signature{
		name:      meta.Name,
		doc:       meta.Doc,
		posOnly:   meta.PositionalOnly,
		skipFirst: meta.SkipFirst,
	}

	// Defaults align to the end of the positional list.
	defaultStart := len(meta.Params) - len(meta.Defaults)

	start := 0
	if meta.SkipFirst && len(meta.Params) > 0 {
		start = 1
		if s.posOnly > 0 {
			s.posOnly--
		}
	}
	for i := start; i < len(meta.Params); i++ {
		name := meta.Params[i]
		if err := declare(name); err != nil {
			return nil, err
		}
		p := Param{Name: name, Kind: KindPositional, Types: meta.Types[name]}
		if i >= defaultStart {
			p.Default = meta.Defaults[i-defaultStart]
			p.HasDefault = true
		}
		s.positional = append(s.positional, p)
	}

	for _, name := range meta.KeywordOnly {
		if err := declare(name); err != nil {
			return nil, err
		}
		p := Param{Name: name, Kind: KindKeywordOnly, Types: meta.Types[name]}
		if def, ok := meta.KeywordDefaults[name]; ok {
			p.Default = def
			p.HasDefault = true
		}
		s.keyword = append(s.keyword, p)
	}
	for name := range meta.KeywordDefaults {
		if !seen[name] {
			return nil, fmt.Errorf("signature %s: keyword default for undeclared parameter %q", meta.Name, name)
		}
	}

	if meta.VarArg != "" {
		if err := declare(meta.VarArg); err != nil {
			return nil, err
		}
		s.varArg = &Param{Name: meta.VarArg, Kind: KindCollectArgs, Types: meta.Types[meta.VarArg]}
	}
	if meta.VarKw != "" {
		if err := declare(meta.VarKw); err != nil {
			return nil, err
		}
		s.varKw = &Param{Name: meta.VarKw, Kind: KindCollectKwargs, Types: meta.Types[meta.VarKw]}
	}

	for name := range meta.Types {
		if !seen[name] && !(meta.SkipFirst && len(meta.Params) > 0 && name == meta.Params[0]) {
			return nil, fmt.Errorf("signature %s: type constraint for undeclared parameter %q", meta.Name, name)
		}
	}

	return s, nil
}

// MustNew is New for statically known metadata; it panics on error.
func MustNew(meta Metadata) *Signature {
	s, err := New(meta)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Signature) Name() string { return s.name }
func (s *Signature) Doc() string  { return s.doc }

// SkipsFirst reports whether the underlying callable's first declared
// parameter is runtime-bound and excluded from matching.
func (s *Signature) SkipsFirst() bool { return s.skipFirst }

// NumPositional is the number of matchable positional parameters.
func (s *Signature) NumPositional() int { return len(s.positional) }

// NumKeywordOnly is the number of keyword-only parameters.
func (s *Signature) NumKeywordOnly() int { return len(s.keyword) }

// PositionalOnly is the boundary: the count of leading positional
// parameters that may never be supplied by keyword name.
func (s *Signature) PositionalOnly() int { return s.posOnly }

// HasVarArg reports whether a collect-positional parameter exists.
func (s *Signature) HasVarArg() bool { return s.varArg != nil }

// HasVarKw reports whether a collect-keyword parameter exists.
func (s *Signature) HasVarKw() bool { return s.varKw != nil }

// Validate reports whether the call (args, kwargs) fits this signature.
// Neither container is mutated.
func (s *Signature) Validate(args []any, kwargs map[string]any) bool {
	_, ok := s.Bind(args, kwargs)
	return ok
}

// Bind matches the call against the signature and, on success, returns the
// values each parameter receives. Matching order:
//
//  1. Positional parameters, in declared order. An unconsumed positional
//     argument fills the parameter, but a same-named keyword argument also
//     being present is an ambiguous binding and fails the match outright.
//     With no positional argument left, a keyword argument fills the
//     parameter unless it lies within the positional-only boundary. With
//     neither available the default is used; defaults are trusted
//     unconditionally and never type-checked. No value and no default fails.
//  2. A value bound in step 1 (not defaulted) must satisfy the parameter's
//     constraint, if any.
//  3. Keyword-only parameters consume from the remaining keyword arguments,
//     type-checked the same way, falling back to their own defaults.
//  4. Leftover positional arguments require the collect-positional
//     parameter; leftover keyword arguments require the collect-keyword
//     parameter.
//  5. Collector constraints apply to every captured value.
func (s *Signature) Bind(args []any, kwargs map[string]any) (*Binding, bool) {
	// Working copies; the caller's containers stay untouched.
	next := 0
	kw := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		kw[k] = v
	}

	b := &Binding{}
	if len(s.positional) > 0 {
		b.Positional = make([]any, len(s.positional))
	}

	for i, p := range s.positional {
		var value any
		bound := false
		switch {
		case next < len(args):
			if _, dup := kw[p.Name]; dup {
				return nil, false // ambiguous: positional and keyword
			}
			value = args[next]
			next++
			bound = true
		default:
			if v, ok := kw[p.Name]; ok {
				if i < s.posOnly {
					return nil, false // positional-only given by keyword
				}
				delete(kw, p.Name)
				value = v
				bound = true
			} else if p.HasDefault {
				value = p.Default
			} else {
				return nil, false
			}
		}
		if bound && !p.Matches(value) {
			return nil, false
		}
		b.Positional[i] = value
	}

	if len(s.keyword) > 0 {
		b.Keyword = make([]any, len(s.keyword))
	}
	for i, p := range s.keyword {
		if v, ok := kw[p.Name]; ok {
			delete(kw, p.Name)
			if !p.Matches(v) {
				return nil, false
			}
			b.Keyword[i] = v
		} else if p.HasDefault {
			b.Keyword[i] = p.Default
		} else {
			return nil, false
		}
	}

	rest := args[next:]
	if len(rest) > 0 && s.varArg == nil {
		return nil, false
	}
	if len(kw) > 0 && s.varKw == nil {
		return nil, false
	}
	if s.varArg != nil {
		for _, v := range rest {
			if !s.varArg.Matches(v) {
				return nil, false
			}
		}
		b.Extra = append([]any(nil), rest...)
	}
	if s.varKw != nil {
		for _, v := range kw {
			if !s.varKw.Matches(v) {
				return nil, false
			}
		}
		b.ExtraKw = kw
	}

	return b, true
}

// String renders the declared shape, e.g. "area(w:int|float64, h:int, /, scale=1, *rest, **opts)".
func (s *Signature) String() string {
	var parts []string
	for i, p := range s.positional {
		parts = append(parts, paramString(p))
		if i == s.posOnly-1 {
			parts = append(parts, "/")
		}
	}
	if s.varArg != nil {
		parts = append(parts, "*"+paramString(*s.varArg))
	} else if len(s.keyword) > 0 {
		parts = append(parts, "*")
	}
	for _, p := range s.keyword {
		parts = append(parts, paramString(p))
	}
	if s.varKw != nil {
		parts = append(parts, "**"+paramString(*s.varKw))
	}
	name := s.name
	if name == "" {
		name = "<overload>"
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func paramString(p Param) string {
	out := p.Name
	if len(p.Types) > 0 {
		out += ":" + constraintString(p.Types)
	}
	if p.HasDefault {
		out += fmt.Sprintf("=%v", p.Default)
	}
	return out
}
