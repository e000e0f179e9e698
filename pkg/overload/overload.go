// Package overload provides runtime overloading of functions: several
// implementations register under one symbolic name, and each call dispatches
// to the first registered implementation whose parameter signature matches
// the actual arguments.
//
//	area, _ := overload.New(overload.Func(func(r float64) float64 {
//		return math.Pi * r * r
//	}))
//	area, _ = area.Add(overload.Func(func(w, h float64) float64 {
//		return w * h
//	}))
//
//	v, _ := area.Call(2.0)      // circle
//	v, _ = area.Call(3.0, 4.0)  // rectangle
//
// Matching covers argument count, keyword names, defaults, positional-only
// and keyword-only parameters, variadic capture of extra positional and
// keyword arguments, and per-parameter type constraints (including unions).
// Candidates are tried strictly in registration order; there is no
// best-match scoring. A matched implementation may still bow out by
// returning an ArgumentError, sending dispatch on to the next candidate.
package overload

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funvibe/funcall/internal/dispatch"
	"github.com/funvibe/funcall/internal/introspect"
	"github.com/funvibe/funcall/internal/signature"
	"github.com/funvibe/funcall/internal/tracelog"
)

// Re-exposed core types. Metadata is the raw parameter shape contract,
// Descriptor its declarative YAML form.
type (
	Metadata   = signature.Metadata
	Signature  = signature.Signature
	Descriptor = signature.Descriptor
	TypeTable  = signature.TypeTable

	Target   = introspect.Target
	Registry = dispatch.Registry

	NoMatchError         = dispatch.NoMatchError
	MalformedTargetError = dispatch.MalformedTargetError
	UnknownGroupError    = dispatch.UnknownGroupError
	ArgumentError        = dispatch.ArgumentError
)

// Target constructors. Func registers a plain function. Constructor
// registers a class-like target: dispatch matches its initializer's
// parameters after the receiver and a successful call yields a freshly
// constructed instance. Bound registers a method expression with its
// receiver pre-bound. For Constructor and Bound the first declared
// parameter is supplied by the runtime and excluded from matching.
var (
	Func        = introspect.Func
	Constructor = introspect.Constructor
	Bound       = introspect.Bound
)

// NewArgumentError builds the argument-class error implementations return
// to reject a call after validation matched it.
var NewArgumentError = dispatch.NewArgumentError

// WrapArgumentError marks an existing error as argument-class.
var WrapArgumentError = dispatch.WrapArgumentError

// ParseDescriptor parses a YAML signature descriptor into Metadata,
// resolving type names through the table (DefaultTypes when nil).
func ParseDescriptor(data []byte, types TypeTable) (Metadata, error) {
	return signature.ParseDescriptor(data, types)
}

// DefaultTypes returns a type table preloaded with the basic Go types.
func DefaultTypes() TypeTable {
	return signature.DefaultTypes()
}

// RegistryOption configures a Registry.
type RegistryOption = dispatch.Option

// WithZerolog installs an existing logger for dispatch tracing.
func WithZerolog(log zerolog.Logger) RegistryOption {
	return dispatch.WithLogger(log)
}

// WithTrace traces dispatch decisions to w: console format when w is a
// terminal, JSON otherwise.
func WithTrace(w io.Writer) RegistryOption {
	return dispatch.WithLogger(tracelog.New(w))
}

// NewRegistry creates an explicitly owned overload registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	return dispatch.NewRegistry(opts...)
}

// defaultRegistry backs handles created without WithRegistry. Registration
// happens at startup; dispatch reads concurrently.
var defaultRegistry = dispatch.NewRegistry()

// Default returns the process-wide default registry.
func Default() *Registry {
	return defaultRegistry
}

type config struct {
	key      string
	registry *Registry
	meta     *Metadata
	name     string
	doc      string
	descOpts []introspect.Option
}

// RegisterOption configures one registration.
type RegisterOption func(*config)

// WithKey sets the symbolic key grouping this registration with others.
// Without it the key is derived from the callable's fully-qualified name,
// or generated for unnameable callables.
func WithKey(key string) RegisterOption {
	return func(c *config) { c.key = key }
}

// WithRegistry registers into r instead of the default registry.
func WithRegistry(r *Registry) RegisterOption {
	return func(c *config) { c.registry = r }
}

// WithMetadata supplies the parameter shape explicitly instead of
// introspecting the callable. Use it for keyword-only parameters, manual
// positional-only boundaries with names, or descriptor-parsed shapes.
func WithMetadata(meta Metadata) RegisterOption {
	return func(c *config) { c.meta = &meta }
}

// WithName sets the overload's descriptive name.
func WithName(name string) RegisterOption {
	return func(c *config) { c.name = name }
}

// WithDoc sets the overload's documentation string.
func WithDoc(doc string) RegisterOption {
	return func(c *config) { c.doc = doc }
}

// WithParamNames overrides introspection's generated parameter names.
func WithParamNames(names ...string) RegisterOption {
	return func(c *config) { c.descOpts = append(c.descOpts, introspect.Names(names...)) }
}

// WithDefaults declares defaults for the trailing positional parameters.
func WithDefaults(values ...any) RegisterOption {
	return func(c *config) { c.descOpts = append(c.descOpts, introspect.Defaults(values...)) }
}

// WithPositionalOnly declares the leading n parameters positional-only.
func WithPositionalOnly(n int) RegisterOption {
	return func(c *config) { c.descOpts = append(c.descOpts, introspect.PositionalOnly(n)) }
}

// WithKwargs declares the callable's last parameter (a string-keyed map) as
// the collect-keyword parameter.
func WithKwargs() RegisterOption {
	return func(c *config) { c.descOpts = append(c.descOpts, introspect.Kwargs()) }
}

// Handle is a dispatch handle: a callable-like object owning nothing but a
// reference to its group. Further overloads append through Add.
type Handle struct {
	group    *dispatch.Group
	registry *Registry
	key      string
}

// New registers the first overload of a group and returns its handle. The
// group's exposed name and doc come from this first registration unless a
// later Finalize retags them.
func New(target Target, opts ...RegisterOption) (*Handle, error) {
	cfg := buildConfig(opts)
	return register(cfg, target)
}

// MustNew is New for registrations known to be well-formed; it panics on
// error.
func MustNew(target Target, opts ...RegisterOption) *Handle {
	f, err := New(target, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Add appends another overload to the handle's group and returns the handle
// for chaining. Key and registry options are fixed by the handle.
func (f *Handle) Add(target Target, opts ...RegisterOption) (*Handle, error) {
	cfg := buildConfig(opts)
	cfg.key = f.key
	cfg.registry = f.registry
	if _, err := register(cfg, target); err != nil {
		return nil, err
	}
	return f, nil
}

// MustAdd is Add, panicking on error.
func (f *Handle) MustAdd(target Target, opts ...RegisterOption) *Handle {
	f, err := f.Add(target, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Call dispatches positional arguments.
func (f *Handle) Call(args ...any) (any, error) {
	return f.group.Invoke(args, nil)
}

// CallKw dispatches positional and keyword arguments.
func (f *Handle) CallKw(args []any, kwargs map[string]any) (any, error) {
	return f.group.Invoke(args, kwargs)
}

// Key is the symbolic key of the handle's group.
func (f *Handle) Key() string { return f.key }

// Name is the group's exposed descriptive name.
func (f *Handle) Name() string { return f.group.Name() }

// Doc is the group's exposed documentation string.
func (f *Handle) Doc() string { return f.group.Doc() }

// Len is the number of registered overloads.
func (f *Handle) Len() int { return f.group.Len() }

// Finalize re-exposes an already-registered group under the metadata of a
// terminal declaration: stub carries the name (and, via WithDoc, the
// documentation) but no implementation of its own. The group is located by
// stub's derived key unless WithKey overrides it. Finalizing a key with no
// registrations fails with an UnknownGroupError.
func Finalize(stub any, opts ...RegisterOption) (*Handle, error) {
	cfg := buildConfig(opts)
	key := cfg.key
	if key == "" {
		key = KeyOf(stub)
		if key == "" {
			return nil, dispatch.NewMalformedTargetError(fmt.Sprintf("cannot derive a key from %T", stub))
		}
	}
	name := cfg.name
	if name == "" {
		name = shortName(KeyOf(stub))
	}
	group, err := cfg.registry.Finalize(key, name, cfg.doc)
	if err != nil {
		return nil, err
	}
	return &Handle{group: group, registry: cfg.registry, key: key}, nil
}

// KeyOf derives a symbolic key from a function's fully-qualified name.
// It returns "" for non-functions and for callables without a usable name
// (reflect-made functions all share one stub symbol).
func KeyOf(fn any) string {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}
	name := rf.Name()
	if name == "" || strings.HasSuffix(name, ".makeFuncStub") {
		return ""
	}
	return name
}

func buildConfig(opts []RegisterOption) *config {
	cfg := &config{registry: defaultRegistry}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func register(cfg *config, target Target) (*Handle, error) {
	if err := introspect.Check(target); err != nil {
		return nil, err
	}

	var meta Metadata
	if cfg.meta != nil {
		meta = *cfg.meta
		if target.SkipFirst() {
			meta.SkipFirst = true
		}
	} else {
		var err error
		meta, err = introspect.Describe(target, cfg.descOpts...)
		if err != nil {
			return nil, err
		}
	}
	if cfg.name != "" {
		meta.Name = cfg.name
	}
	if cfg.doc != "" {
		meta.Doc = cfg.doc
	}

	key := cfg.key
	if key == "" {
		key = KeyOf(target.Callable())
	}
	if meta.Name == "" {
		meta.Name = shortName(KeyOf(target.Callable()))
	}
	if key == "" {
		key = "anon/" + uuid.NewString()
	}

	sig, err := signature.New(meta)
	if err != nil {
		return nil, err
	}
	caller, err := introspect.NewCaller(sig, target)
	if err != nil {
		return nil, err
	}
	group := cfg.registry.Register(key, sig, caller)
	return &Handle{group: group, registry: cfg.registry, key: key}, nil
}

// shortName trims a qualified symbol to its final component, e.g.
// "github.com/acme/geo.Area" to "Area".
func shortName(qualified string) string {
	if qualified == "" {
		return ""
	}
	if i := strings.LastIndexByte(qualified, '/'); i >= 0 {
		qualified = qualified[i+1:]
	}
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		qualified = qualified[i+1:]
	}
	return strings.TrimSuffix(qualified, "-fm")
}
