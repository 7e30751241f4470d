// Package ext is the trait-composition factory: entity construction goes
// through a per-kind constructor composed from the fixed base type plus every
// registered extension trait. Composition is resolved once, when the
// constructor is first built, and cached per trait set.
package ext

import (
	"fmt"

	"docgraph/internal/model"
	"docgraph/internal/pipeline"
)

// Trait is one extension mixed into entity construction for the kinds it
// declares itself applicable to.
type Trait interface {
	Name() string
	Applies(kind model.Kind) bool
}

// StateBuilder is the optional trait capability of attaching per-object
// state at construction time, retrievable through ApiObject.TraitState under
// the trait's name.
type StateBuilder interface {
	Trait
	NewState(ob model.ApiObject) any
}

// PassProvider is the optional trait capability of contributing processing
// passes, interleaved with the built-in ones by priority.
type PassProvider interface {
	Trait
	Passes() []pipeline.Pass
}

// Constructor builds one entity of a fixed kind with every applicable
// trait's state attached.
type Constructor func(name string, loc model.Location) model.ApiObject

type Factory struct {
	traits map[model.Kind][]Trait
	built  map[model.Kind]Constructor
}

func NewFactory() *Factory {
	return &Factory{
		traits: make(map[model.Kind][]Trait),
		built:  make(map[model.Kind]Constructor),
	}
}

// Register adds a trait for one entity kind. The trait must declare itself
// applicable to that kind and may be registered at most once per kind.
func (f *Factory) Register(kind model.Kind, t Trait) error {
	if !t.Applies(kind) {
		return fmt.Errorf("trait %q does not apply to entity kind %q", t.Name(), kind)
	}
	for _, existing := range f.traits[kind] {
		if existing.Name() == t.Name() {
			return fmt.Errorf("trait %q is already registered for entity kind %q", t.Name(), kind)
		}
	}
	f.traits[kind] = append(f.traits[kind], t)
	delete(f.built, kind)
	return nil
}

// Build returns the composed constructor for kind. The result is cached
// until the trait set for the kind changes.
func (f *Factory) Build(kind model.Kind) Constructor {
	if c, ok := f.built[kind]; ok {
		return c
	}

	var create Constructor
	switch kind {
	case model.KindModule:
		create = func(name string, loc model.Location) model.ApiObject { return model.NewModule(name, loc) }
	case model.KindClass:
		create = func(name string, loc model.Location) model.ApiObject { return model.NewClass(name, loc) }
	case model.KindFunction:
		create = func(name string, loc model.Location) model.ApiObject { return model.NewFunction(name, loc) }
	case model.KindVariable:
		create = func(name string, loc model.Location) model.ApiObject { return model.NewVariable(name, loc) }
	case model.KindIndirection:
		create = func(name string, loc model.Location) model.ApiObject { return model.NewIndirection(name, loc, "") }
	default:
		panic(fmt.Sprintf("no constructor for entity kind %q", kind))
	}

	traits := append([]Trait(nil), f.traits[kind]...)
	composed := Constructor(func(name string, loc model.Location) model.ApiObject {
		ob := create(name, loc)
		for _, t := range traits {
			if sb, ok := t.(StateBuilder); ok {
				ob.SetTraitState(t.Name(), sb.NewState(ob))
			}
		}
		return ob
	})
	f.built[kind] = composed
	return composed
}

func (f *Factory) Module(name string, loc model.Location) *model.Module {
	return f.Build(model.KindModule)(name, loc).(*model.Module)
}

func (f *Factory) Class(name string, loc model.Location) *model.Class {
	return f.Build(model.KindClass)(name, loc).(*model.Class)
}

func (f *Factory) Function(name string, loc model.Location) *model.Function {
	return f.Build(model.KindFunction)(name, loc).(*model.Function)
}

func (f *Factory) Variable(name string, loc model.Location) *model.Variable {
	return f.Build(model.KindVariable)(name, loc).(*model.Variable)
}

func (f *Factory) Indirection(name string, loc model.Location, target string) *model.Indirection {
	ind := f.Build(model.KindIndirection)(name, loc).(*model.Indirection)
	ind.Target = target
	return ind
}

// TreeRoot starts a fresh analysis session. Roots carry no traits.
func (f *Factory) TreeRoot() *model.TreeRoot {
	return model.NewTreeRoot()
}

// Passes collects the processing passes contributed by registered traits,
// each trait counted once no matter how many kinds it is registered for.
func (f *Factory) Passes() []pipeline.Pass {
	seen := make(map[string]bool)
	var out []pipeline.Pass
	for _, kind := range []model.Kind{
		model.KindModule, model.KindClass, model.KindFunction,
		model.KindVariable, model.KindIndirection,
	} {
		for _, t := range f.traits[kind] {
			if seen[t.Name()] {
				continue
			}
			seen[t.Name()] = true
			if pp, ok := t.(PassProvider); ok {
				out = append(out, pp.Passes()...)
			}
		}
	}
	return out
}
