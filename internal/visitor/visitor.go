// Package visitor implements a generic double-dispatch traversal with
// enter/leave hooks, tree-pruning controls and before/after extension
// ordering.
package visitor

import "errors"

// Pruning sentinels. Return one of these from Enter (or Leave) to control
// the traversal; any other non-nil error aborts the walk and propagates.
var (
	// SkipChildren skips the current node's children; its Leave hook still
	// runs.
	SkipChildren = errors.New("skip children")
	// SkipSiblings skips the remaining right-hand siblings of the current
	// node; its own children are skipped too when returned from Enter.
	SkipSiblings = errors.New("skip siblings")
	// SkipNode skips the current node's children and its Leave hook.
	SkipNode = errors.New("skip node")
	// SkipDeparture skips only the current node's Leave hook.
	SkipDeparture = errors.New("skip departure")
)

// Visitor receives enter/leave notifications during a walk.
type Visitor[T any] interface {
	Enter(node T) error
	Leave(node T) error
}

// Children yields the traversal order below a node.
type Children[T any] func(T) []T

// Order positions an extension relative to the main visitor.
type Order int

const (
	Before Order = iota
	After
)

// Ext is a visitor extension with an ordering constraint.
type Ext[T any] interface {
	Visitor[T]
	When() Order
}

// Funcs adapts plain functions to the Visitor interface. Nil hooks are
// no-ops.
type Funcs[T any] struct {
	OnEnter func(T) error
	OnLeave func(T) error
}

func (f Funcs[T]) Enter(node T) error {
	if f.OnEnter == nil {
		return nil
	}
	return f.OnEnter(node)
}

func (f Funcs[T]) Leave(node T) error {
	if f.OnLeave == nil {
		return nil
	}
	return f.OnLeave(node)
}

// ExtFuncs adapts plain functions to the Ext interface.
type ExtFuncs[T any] struct {
	Funcs[T]
	Position Order
}

func (e ExtFuncs[T]) When() Order { return e.Position }

// Extensible composes a main visitor with extensions: Before extensions run
// ahead of the main visitor's hook, After extensions behind it. The first
// pruning sentinel wins; remaining hooks for that node still run unless the
// sentinel is SkipNode.
type Extensible[T any] struct {
	main Visitor[T]
	exts []Ext[T]
}

func NewExtensible[T any](main Visitor[T], exts ...Ext[T]) *Extensible[T] {
	return &Extensible[T]{main: main, exts: exts}
}

// Add appends more extensions.
func (e *Extensible[T]) Add(exts ...Ext[T]) { e.exts = append(e.exts, exts...) }

func (e *Extensible[T]) Enter(node T) error {
	var result error
	for _, x := range e.exts {
		if x.When() == Before {
			result = firstError(result, x.Enter(node))
		}
	}
	result = firstError(result, e.main.Enter(node))
	for _, x := range e.exts {
		if x.When() == After {
			result = firstError(result, x.Enter(node))
		}
	}
	return result
}

func (e *Extensible[T]) Leave(node T) error {
	var result error
	for _, x := range e.exts {
		if x.When() == Before {
			result = firstError(result, x.Leave(node))
		}
	}
	result = firstError(result, e.main.Leave(node))
	for _, x := range e.exts {
		if x.When() == After {
			result = firstError(result, x.Leave(node))
		}
	}
	return result
}

func firstError(current, next error) error {
	if current != nil {
		return current
	}
	return next
}

// Walk traverses the tree under node, calling Enter when entering each
// node.
func Walk[T any](node T, v Visitor[T], children Children[T]) error {
	return walk(node, v, children, false)
}

// WalkAbout traverses like Walk but also calls Leave before exiting each
// node.
func WalkAbout[T any](node T, v Visitor[T], children Children[T]) error {
	return walk(node, v, children, true)
}

func walk[T any](node T, v Visitor[T], children Children[T], depart bool) error {
	err := v.Enter(node)
	skipDeparture := false
	visitChildren := true
	switch {
	case errors.Is(err, SkipNode):
		return nil
	case errors.Is(err, SkipChildren):
		visitChildren = false
	case errors.Is(err, SkipDeparture):
		skipDeparture = true
	case errors.Is(err, SkipSiblings):
		return err
	case err != nil:
		return err
	}

	if visitChildren {
		for _, child := range children(node) {
			if cerr := walk(child, v, children, depart); cerr != nil {
				if errors.Is(cerr, SkipSiblings) {
					break
				}
				return cerr
			}
		}
	}

	if depart && !skipDeparture {
		if lerr := v.Leave(node); lerr != nil && !isPruning(lerr) {
			return lerr
		}
	}
	return nil
}

func isPruning(err error) bool {
	return errors.Is(err, SkipChildren) || errors.Is(err, SkipSiblings) ||
		errors.Is(err, SkipNode) || errors.Is(err, SkipDeparture)
}
