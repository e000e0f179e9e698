package dispatch

import (
	"errors"
	"sync"

	"github.com/funvibe/funcall/internal/signature"
	"github.com/rs/zerolog"
)

// Caller invokes one candidate's implementation with the values a
// successful match bound. It returns the implementation's result, or an
// *ArgumentError when the implementation (or the argument materialization in
// front of it) rejects the call.
type Caller func(b *signature.Binding) (any, error)

// Candidate is one registered (signature, implementation) pair.
type Candidate struct {
	Sig  *signature.Signature
	Call Caller
}

// Group is the ordered set of candidates registered under one symbolic key.
//
// A group has two states: absent (it does not exist yet) and active (at
// least one candidate). The transition happens on first registration and is
// never undone; groups live for the process lifetime.
type Group struct {
	key string

	mu         sync.RWMutex
	candidates []Candidate
	name       string
	doc        string

	log zerolog.Logger
}

// Key is the group's symbolic key.
func (g *Group) Key() string { return g.key }

// Name is the group's exposed descriptive name: the first-registered
// overload's, unless a finalize retagged it.
func (g *Group) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

// Doc is the group's exposed documentation string.
func (g *Group) Doc() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.doc
}

// Len is the number of registered candidates.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.candidates)
}

func (g *Group) add(c Candidate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.candidates) == 0 {
		g.name = c.Sig.Name()
		g.doc = c.Sig.Doc()
	}
	g.candidates = append(g.candidates, c)
}

// retag replaces the group's exposed metadata, used by finalize to re-expose
// the overload set under a terminal declaration's name and doc.
func (g *Group) retag(name, doc string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if name != "" {
		g.name = name
	}
	g.doc = doc
}

// snapshot returns the candidate list as of now. Appends racing with an
// in-flight invoke extend the slice under the lock; the scan sees a
// consistent prefix in exact registration order.
func (g *Group) snapshot() []Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.candidates
}

// Invoke walks the candidates in registration order and calls the first one
// whose signature validates against (args, kwargs). A candidate whose call
// comes back with an argument-class error is skipped in favor of the next;
// any other error aborts dispatch and propagates. When no candidate both
// validates and invokes cleanly, Invoke returns a NoMatchError.
func (g *Group) Invoke(args []any, kwargs map[string]any) (any, error) {
	for i, c := range g.snapshot() {
		binding, ok := c.Sig.Bind(args, kwargs)
		if !ok {
			g.log.Trace().Str("group", g.key).Int("candidate", i).
				Str("sig", c.Sig.String()).Msg("signature rejected")
			continue
		}
		result, err := c.Call(binding)
		if err != nil {
			var argErr *ArgumentError
			if errors.As(err, &argErr) {
				g.log.Debug().Str("group", g.key).Int("candidate", i).
					Str("sig", c.Sig.String()).Err(err).Msg("candidate rejected at invocation, trying next")
				continue
			}
			return nil, err
		}
		g.log.Trace().Str("group", g.key).Int("candidate", i).
			Str("sig", c.Sig.String()).Msg("dispatched")
		return result, nil
	}
	return nil, NewNoMatchError(g.key)
}
