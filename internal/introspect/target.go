// Package introspect turns Go callables into signature metadata and
// materializes matched calls back onto them via reflection.
//
// It realizes the two collaborator contracts the dispatch core depends on:
// obtaining a callable's raw parameter shape (Describe) and unwrapping
// special target kinds to a plain callable plus a skip-first flag (Target).
package introspect

import (
	"fmt"
	"reflect"

	"github.com/funvibe/funcall/internal/dispatch"
)

// Target is one registrable overload target, unwrapped to the callable that
// gets introspected and the way its implementation is actually invoked.
type Target interface {
	// Callable is the plain function whose parameter shape is introspected
	// and which receives the bound arguments.
	Callable() any

	// SkipFirst reports whether the callable's first declared parameter is
	// supplied by the runtime rather than the caller and must be excluded
	// from matching.
	SkipFirst() bool

	// check validates the target at registration time.
	check() error

	// begin produces the runtime-supplied leading argument values for one
	// invocation, and a finish hook mapping the callable's return value to
	// the dispatch result.
	begin() (prefix []reflect.Value, finish func(any) any, err error)
}

type funcTarget struct {
	fn any
}

// Func wraps a plain function target. The function itself is introspected
// and invoked; nothing is skipped.
func Func(fn any) Target {
	return &funcTarget{fn: fn}
}

func (t *funcTarget) Callable() any   { return t.fn }
func (t *funcTarget) SkipFirst() bool { return false }

func (t *funcTarget) check() error {
	if t.fn == nil {
		return dispatch.NewMalformedTargetError("nil function")
	}
	if reflect.TypeOf(t.fn).Kind() != reflect.Func {
		return dispatch.NewMalformedTargetError(fmt.Sprintf("%T is not callable", t.fn))
	}
	return nil
}

func (t *funcTarget) begin() ([]reflect.Value, func(any) any, error) {
	return nil, nil, nil
}

type constructorTarget struct {
	typ  reflect.Type // the constructed struct type
	init any          // func(*T, ...)
}

// Constructor wraps a class-like target: zero is any value (or pointer) of
// the constructed type T, init is its initializer func(*T, ...). Dispatch
// matches the initializer's parameters after the receiver, and a successful
// invocation allocates a fresh *T, runs init, and yields the instance.
// A missing or non-function initializer is a malformed target, reported
// when the registration is attempted.
func Constructor(zero any, init any) Target {
	var typ reflect.Type
	if zero != nil {
		typ = reflect.TypeOf(zero)
		for typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
	}
	return &constructorTarget{typ: typ, init: init}
}

func (t *constructorTarget) Callable() any   { return t.init }
func (t *constructorTarget) SkipFirst() bool { return true }

func (t *constructorTarget) check() error {
	if t.typ == nil {
		return dispatch.NewMalformedTargetError("constructor target without a type")
	}
	if t.init == nil {
		return dispatch.NewMalformedTargetError(
			fmt.Sprintf("constructor target %s has no initializer", t.typ))
	}
	it := reflect.TypeOf(t.init)
	if it.Kind() != reflect.Func {
		return dispatch.NewMalformedTargetError(
			fmt.Sprintf("constructor target %s: initializer %T is not callable", t.typ, t.init))
	}
	if it.NumIn() == 0 || it.In(0) != reflect.PointerTo(t.typ) {
		return dispatch.NewMalformedTargetError(
			fmt.Sprintf("constructor target %s: initializer must take *%s first", t.typ, t.typ))
	}
	return nil
}

func (t *constructorTarget) begin() ([]reflect.Value, func(any) any, error) {
	instance := reflect.New(t.typ)
	finish := func(any) any { return instance.Interface() }
	return []reflect.Value{instance}, finish, nil
}

type boundTarget struct {
	recv   any
	method any // method expression: func(T, ...)
}

// Bound wraps a method-expression target with its receiver pre-bound, the
// classmethod-style case: the method expression is introspected (its first
// declared parameter is the receiver, skipped during matching) and invoked
// with recv filled in by the runtime.
func Bound(recv any, method any) Target {
	return &boundTarget{recv: recv, method: method}
}

func (t *boundTarget) Callable() any   { return t.method }
func (t *boundTarget) SkipFirst() bool { return true }

func (t *boundTarget) check() error {
	if t.method == nil {
		return dispatch.NewMalformedTargetError("bound target without a method")
	}
	mt := reflect.TypeOf(t.method)
	if mt.Kind() != reflect.Func {
		return dispatch.NewMalformedTargetError(fmt.Sprintf("%T is not callable", t.method))
	}
	if mt.NumIn() == 0 {
		return dispatch.NewMalformedTargetError("bound target's method has no receiver parameter")
	}
	rt := reflect.TypeOf(t.recv)
	if rt == nil || !rt.AssignableTo(mt.In(0)) {
		return dispatch.NewMalformedTargetError(
			fmt.Sprintf("receiver %T does not fit the method's first parameter %s", t.recv, mt.In(0)))
	}
	return nil
}

func (t *boundTarget) begin() ([]reflect.Value, func(any) any, error) {
	return []reflect.Value{reflect.ValueOf(t.recv)}, nil, nil
}

// Check validates a target at registration time, surfacing a
// MalformedTargetError for unusable ones.
func Check(t Target) error {
	return t.check()
}
