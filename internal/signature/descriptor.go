package signature

import (
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Descriptor is the declarative YAML form of a callable's parameter shape.
// It exists for embedders that declare overload contracts in data rather
// than introspecting live functions:
//
//	name: area
//	doc: area of a shape
//	positional_only: 1
//	params:
//	  - name: w
//	    type: [int, float64]
//	  - name: h
//	    type: int
//	  - name: scale
//	    default: 1
//	  - name: opts
//	    collect: kwargs
type Descriptor struct {
	// Name is the symbolic name of the callable.
	Name string `yaml:"name"`

	// Doc is the callable's documentation string.
	Doc string `yaml:"doc,omitempty"`

	// PositionalOnly is the count of leading positional parameters that may
	// never be supplied by keyword name.
	PositionalOnly int `yaml:"positional_only,omitempty"`

	// SkipFirst marks constructor/bound-method shapes whose first declared
	// parameter is runtime-bound.
	SkipFirst bool `yaml:"skip_first,omitempty"`

	// Params are the declared parameters, in order. Positional parameters
	// come first; keyword-only and collector parameters may appear anywhere
	// after them.
	Params []ParamDescriptor `yaml:"params"`
}

// ParamDescriptor is one declared parameter.
type ParamDescriptor struct {
	Name string `yaml:"name"`

	// Type names the constraint; a scalar is a single type, a sequence is a
	// union of alternatives. Names resolve through the TypeTable before the
	// signature is built. Absent means unconstrained.
	Type TypeRef `yaml:"type,omitempty"`

	// Default is the parameter's default value. Presence of the key is
	// significant: `default: null` declares a nil default, omitting the key
	// declares a required parameter.
	Default OptionalValue `yaml:"default,omitempty"`

	// KeywordOnly makes the parameter fillable by name only.
	KeywordOnly bool `yaml:"keyword_only,omitempty"`

	// Collect declares variadic capture: "args" or "kwargs".
	Collect string `yaml:"collect,omitempty"`
}

// OptionalValue is a YAML value that remembers whether its key was present,
// so an explicit null default can be told apart from no default at all.
type OptionalValue struct {
	Set   bool
	Value any
}

func (o *OptionalValue) UnmarshalYAML(node *yaml.Node) error {
	o.Set = true
	if node.Tag == "!!null" {
		o.Value = nil
		return nil
	}
	return node.Decode(&o.Value)
}

// TypeRef is a type constraint reference: a scalar or a sequence of type
// names in YAML.
type TypeRef []string

func (r *TypeRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*r = TypeRef{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*r = TypeRef(ss)
		return nil
	default:
		return fmt.Errorf("type must be a name or a list of names (line %d)", node.Line)
	}
}

// TypeTable resolves declared type names to concrete reflect.Types. String
// references must resolve here before a signature is built; an unknown name
// is an error, never a deferred lookup.
type TypeTable map[string]reflect.Type

// DefaultTypes returns a table preloaded with the basic Go types.
func DefaultTypes() TypeTable {
	return TypeTable{
		"int":     reflect.TypeOf(int(0)),
		"int64":   reflect.TypeOf(int64(0)),
		"float64": reflect.TypeOf(float64(0)),
		"string":  reflect.TypeOf(""),
		"bool":    reflect.TypeOf(false),
		"bytes":   reflect.TypeOf([]byte(nil)),
		"any":     nil,
	}
}

// Register adds a named type to the table and returns it for chaining.
func (t TypeTable) Register(name string, typ reflect.Type) TypeTable {
	t[name] = typ
	return t
}

// Resolve maps a reference to concrete types.
func (t TypeTable) Resolve(ref TypeRef) ([]reflect.Type, error) {
	if len(ref) == 0 {
		return nil, nil
	}
	out := make([]reflect.Type, 0, len(ref))
	allAny := true
	for _, name := range ref {
		typ, ok := t[name]
		if !ok {
			return nil, fmt.Errorf("unknown type %q", name)
		}
		if typ != nil {
			allAny = false
		}
		out = append(out, typ)
	}
	if allAny {
		// "any" alone (or unioned with itself) is no constraint at all.
		return nil, nil
	}
	return out, nil
}

// ParseDescriptor unmarshals a YAML descriptor and lowers it to Metadata,
// resolving type names through the table (DefaultTypes when nil).
func ParseDescriptor(data []byte, types TypeTable) (Metadata, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Metadata{}, fmt.Errorf("parse descriptor: %w", err)
	}
	return d.Metadata(types)
}

// Metadata lowers the descriptor to raw metadata, validating parameter
// ordering on the way: positional parameters precede keyword-only ones, and
// defaulted positional parameters form a contiguous suffix.
func (d Descriptor) Metadata(types TypeTable) (Metadata, error) {
	if types == nil {
		types = DefaultTypes()
	}

	meta := Metadata{
		Name:           d.Name,
		Doc:            d.Doc,
		PositionalOnly: d.PositionalOnly,
		SkipFirst:      d.SkipFirst,
		Types:          make(map[string][]reflect.Type),
	}

	sawKeyword := false
	sawDefault := false
	for _, p := range d.Params {
		if p.Name == "" {
			return Metadata{}, fmt.Errorf("descriptor %s: parameter without a name", d.Name)
		}
		resolved, err := types.Resolve(p.Type)
		if err != nil {
			return Metadata{}, fmt.Errorf("descriptor %s: parameter %q: %w", d.Name, p.Name, err)
		}
		if resolved != nil {
			meta.Types[p.Name] = resolved
		}

		switch p.Collect {
		case "":
		case "args":
			if meta.VarArg != "" {
				return Metadata{}, fmt.Errorf("descriptor %s: more than one collect: args parameter", d.Name)
			}
			meta.VarArg = p.Name
			continue
		case "kwargs":
			if meta.VarKw != "" {
				return Metadata{}, fmt.Errorf("descriptor %s: more than one collect: kwargs parameter", d.Name)
			}
			meta.VarKw = p.Name
			continue
		default:
			return Metadata{}, fmt.Errorf("descriptor %s: parameter %q: collect must be \"args\" or \"kwargs\", got %q",
				d.Name, p.Name, p.Collect)
		}

		if p.KeywordOnly {
			sawKeyword = true
			meta.KeywordOnly = append(meta.KeywordOnly, p.Name)
			if p.Default.Set {
				if meta.KeywordDefaults == nil {
					meta.KeywordDefaults = make(map[string]any)
				}
				meta.KeywordDefaults[p.Name] = p.Default.Value
			}
			continue
		}

		if sawKeyword {
			return Metadata{}, fmt.Errorf("descriptor %s: positional parameter %q after a keyword-only parameter",
				d.Name, p.Name)
		}
		if p.Default.Set {
			sawDefault = true
			meta.Defaults = append(meta.Defaults, p.Default.Value)
		} else if sawDefault {
			return Metadata{}, fmt.Errorf("descriptor %s: required parameter %q after a defaulted one",
				d.Name, p.Name)
		}
		meta.Params = append(meta.Params, p.Name)
	}

	if meta.PositionalOnly > len(meta.Params) {
		return Metadata{}, fmt.Errorf("descriptor %s: positional_only %d exceeds %d positional parameters",
			d.Name, meta.PositionalOnly, len(meta.Params))
	}
	return meta, nil
}
