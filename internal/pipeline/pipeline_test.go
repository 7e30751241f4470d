package pipeline_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/builder"
	"docgraph/internal/ext"
	"docgraph/internal/model"
	"docgraph/internal/pipeline"
)

func process(t *testing.T, sources map[string]string, extras ...pipeline.Pass) *model.TreeRoot {
	t.Helper()
	b := builder.New(ext.NewFactory(), builder.Options{})
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	for _, name := range names {
		b.AddSource(name, []byte(sources[name]))
	}
	require.NoError(t, b.BuildAll())
	require.NoError(t, pipeline.New(extras...).Process(b.Root))
	return b.Root
}

func classOf(t *testing.T, root *model.TreeRoot, name string) *model.Class {
	t.Helper()
	cls, ok := root.AllObjects.Get(name).(*model.Class)
	require.True(t, ok, "expected class %s", name)
	return cls
}

func TestFunctionFactsFromDecorations(t *testing.T) {
	root := process(t, map[string]string{"m": `
import functools

def plain(): pass

class C:
    def method(self): pass

    @classmethod
    def cm(cls): pass

    @staticmethod
    def sm(): pass

    @property
    def value(self): return 1

    @functools.cached_property
    def cached(self): return 2

    @abc.abstractmethod
    def todo(self): ...
`})

	plain := root.AllObjects.Get("m.plain").(*model.Function)
	assert.False(t, plain.IsMethod)

	method := root.AllObjects.Get("m.C.method").(*model.Function)
	assert.True(t, method.IsMethod)

	assert.True(t, root.AllObjects.Get("m.C.cm").(*model.Function).IsClassMethod)
	assert.True(t, root.AllObjects.Get("m.C.sm").(*model.Function).IsStaticMethod)
	assert.True(t, root.AllObjects.Get("m.C.value").(*model.Function).IsProperty)
	assert.True(t, root.AllObjects.Get("m.C.cached").(*model.Function).IsProperty)
	assert.True(t, root.AllObjects.Get("m.C.todo").(*model.Function).IsAbstract)
}

func TestPropertyAccessorsKeepGetterVisible(t *testing.T) {
	root := process(t, map[string]string{"m": `
class C:
    @property
    def value(self):
        return self._value

    @value.setter
    def value(self, v):
        self._value = v

    @value.deleter
    def value(self):
        del self._value
`})

	winner := root.AllObjects.Get("m.C.value").(*model.Function)
	assert.True(t, winner.IsProperty, "the getter wins the registry slot")
	assert.False(t, winner.IsPropertySetter)

	history := root.AllObjects.GetAll("m.C.value")
	assert.Len(t, history, 3, "accessor variants stay addressable")

	var setter, deleter bool
	for _, ob := range history {
		fn := ob.(*model.Function)
		setter = setter || fn.IsPropertySetter
		deleter = deleter || fn.IsPropertyDeleter
	}
	assert.True(t, setter)
	assert.True(t, deleter)
}

func TestVariableFacts(t *testing.T) {
	root := process(t, map[string]string{"m": `
MAX_SIZE = 100
limit: Final = 10
plain = 5
alias = plain

class C:
    shared = 1

    def __init__(self):
        self.per_instance = 2
`})

	maxSize := root.AllObjects.Get("m.MAX_SIZE").(*model.Variable)
	assert.True(t, maxSize.IsModuleVariable)
	assert.True(t, maxSize.IsConstant)

	limit := root.AllObjects.Get("m.limit").(*model.Variable)
	assert.True(t, limit.IsConstant)

	plain := root.AllObjects.Get("m.plain").(*model.Variable)
	assert.False(t, plain.IsConstant)
	assert.False(t, plain.IsAlias)

	alias := root.AllObjects.Get("m.alias").(*model.Variable)
	assert.True(t, alias.IsAlias)

	shared := root.AllObjects.Get("m.C.shared").(*model.Variable)
	assert.True(t, shared.IsClassVariable)
	assert.False(t, shared.IsInstanceVariable)

	per := root.AllObjects.Get("m.C.per_instance").(*model.Variable)
	assert.True(t, per.IsInstanceVariable)
	assert.False(t, per.IsClassVariable)
}

func TestAliasBackReferences(t *testing.T) {
	root := process(t, map[string]string{"m": `
def target(): pass

alias = target
`})

	target := root.AllObjects.Get("m.target").(*model.Function)
	require.Len(t, target.Aliases(), 1)
	assert.Equal(t, "m.alias", target.Aliases()[0].FullName())
}

func TestClassLinking(t *testing.T) {
	root := process(t, map[string]string{"m": `
class A:
    def __init__(self): pass
    def shared(self): pass

class B(A):
    pass

class C(A):
    pass

class D(B, C):
    def own(self): pass
`})

	d := classOf(t, root, "m.D")
	require.Len(t, d.Linearization, 4)
	var order []string
	for _, cls := range d.Linearization {
		order = append(order, cls.Name())
	}
	assert.Equal(t, []string{"D", "B", "C", "A"}, order)

	a := classOf(t, root, "m.A")
	assert.Len(t, a.Subclasses, 2)

	require.NotNil(t, d.Constructor, "the constructor is found along the linearization")
	assert.Equal(t, "m.A.__init__", d.Constructor.FullName())

	var inherited []string
	for _, m := range d.InheritedMembers {
		inherited = append(inherited, m.FullName())
	}
	assert.Contains(t, inherited, "m.A.shared")
	assert.NotContains(t, inherited, "m.D.own")

	require.Len(t, d.ResolvedBases, 2)
	assert.True(t, d.ResolvedBases[0].Resolved())
	assert.Equal(t, "m.B", d.ResolvedBases[0].Class.FullName())
}

func TestCrossModuleBaseResolution(t *testing.T) {
	root := process(t, map[string]string{
		"base": `
class Base:
    def inherited(self): pass
`,
		"impl": `
from base import Base

class Impl(Base):
    pass
`,
	})

	impl := classOf(t, root, "impl.Impl")
	require.Len(t, impl.ResolvedBases, 1)
	require.True(t, impl.ResolvedBases[0].Resolved(), "the base resolves through the import indirection")
	assert.Equal(t, "base.Base", impl.ResolvedBases[0].Class.FullName())

	require.Len(t, impl.Linearization, 2)
	assert.Equal(t, "base.Base", impl.Linearization[1].FullName())
}

func TestUnresolvableBaseKeepsExpandedName(t *testing.T) {
	root := process(t, map[string]string{"m": `
import enum

class Color(enum.Enum):
    pass
`})

	color := classOf(t, root, "m.Color")
	require.Len(t, color.ResolvedBases, 1)
	assert.False(t, color.ResolvedBases[0].Resolved())
	assert.Equal(t, "m.enum.Enum", color.ResolvedBases[0].Name, "unresolvable names degrade to concatenation from the module context")
	assert.Len(t, color.Linearization, 1)
}

func TestExceptionDetection(t *testing.T) {
	root := process(t, map[string]string{"m": `
class AppError(ValueError):
    pass

class DeepError(AppError):
    pass

class NotAnError(object):
    pass
`})

	assert.True(t, classOf(t, root, "m.AppError").IsExceptionClass)
	assert.True(t, classOf(t, root, "m.DeepError").IsExceptionClass, "inherited through a local base")
	assert.False(t, classOf(t, root, "m.NotAnError").IsExceptionClass)
}

func TestInconsistentHierarchyFallsBack(t *testing.T) {
	root := process(t, map[string]string{"m": `
class A: pass
class B: pass
class X(A, B): pass
class Y(B, A): pass
class Z(X, Y): pass
`})

	z := classOf(t, root, "m.Z")
	var names []string
	for _, cls := range z.Linearization {
		names = append(names, cls.Name())
	}
	assert.Equal(t, []string{"Z", "X", "A", "B", "Y"}, names, "flattened ancestry replaces the impossible C3 order")

	warned := false
	for _, d := range root.Diagnostics() {
		if d.Severity == model.SeverityWarning && strings.Contains(d.Message, "cannot linearize") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestDocSources(t *testing.T) {
	root := process(t, map[string]string{"m": `
class Base:
    def run(self):
        """Base docs."""

class Sub(Base):
    def run(self):
        pass
`})

	run := root.AllObjects.Get("m.Sub.run").(*model.Function)
	sources := run.DocSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "m.Sub.run", sources[0].FullName())
	assert.Equal(t, "m.Base.run", sources[1].FullName())
}

func TestModuleDocformat(t *testing.T) {
	root := process(t, map[string]string{"m": `
__docformat__ = "restructuredtext "
`})

	mod := root.AllObjects.Get("m").(*model.Module)
	assert.Equal(t, "restructuredtext", mod.Docformat)
}

func TestReservedPriorityPanics(t *testing.T) {
	assert.Panics(t, func() {
		pipeline.New(pipeline.Pass{Name: "bad", Priority: 0, Run: func(*model.TreeRoot) error { return nil }})
	})
}

func TestExtensionPassOrdering(t *testing.T) {
	var order []string
	mk := func(name string, prio int) pipeline.Pass {
		return pipeline.Pass{
			Name:     name,
			Priority: prio,
			Run: func(*model.TreeRoot) error {
				order = append(order, name)
				return nil
			},
		}
	}

	process(t, map[string]string{"m": "x = 1\n"}, mk("late", 300), mk("between", 150))
	assert.Equal(t, []string{"between", "late"}, order)
}
