// Package dispatch owns the overload registry and the dispatch loop.
//
// A Registry maps symbolic keys to Groups, each holding the ordered
// candidates registered under that key. Registration typically happens at
// program initialization; dispatch only reads. Both sides are guarded so
// that late registration racing with concurrent invokes is still safe.
// Registration order is preserved exactly as Register calls occurred.
package dispatch

import (
	"sync"

	"github.com/funvibe/funcall/internal/signature"
	"github.com/rs/zerolog"
)

// Registry is an explicitly owned, injectable overload registry. The zero
// value is not usable; construct with NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]*Group
	log    zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger installs a logger for dispatch tracing. Events are emitted at
// trace and debug level; the default logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		groups: make(map[string]*Group),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends a candidate to the group under key, creating the group
// on first registration. It returns the group the candidate joined.
func (r *Registry) Register(key string, sig *signature.Signature, call Caller) *Group {
	g := r.group(key)
	g.add(Candidate{Sig: sig, Call: call})
	r.log.Debug().Str("group", key).Str("sig", sig.String()).Int("candidates", g.Len()).
		Msg("overload registered")
	return g
}

// Lookup returns the group under key, if any registration created it.
func (r *Registry) Lookup(key string) (*Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[key]
	return g, ok
}

// Finalize re-exposes the existing group under key with the descriptive
// metadata of a terminal declaration. It fails with an UnknownGroupError
// when nothing has been registered under key yet.
func (r *Registry) Finalize(key, name, doc string) (*Group, error) {
	g, ok := r.Lookup(key)
	if !ok {
		return nil, NewUnknownGroupError(key)
	}
	g.retag(name, doc)
	r.log.Debug().Str("group", key).Str("name", name).Msg("group finalized")
	return g, nil
}

// Keys returns the symbolic keys of all registered groups.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.groups))
	for k := range r.groups {
		keys = append(keys, k)
	}
	return keys
}

func (r *Registry) group(key string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[key]; ok {
		return g
	}
	g := &Group{key: key, log: r.log}
	r.groups[key] = g
	return g
}
