package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/astx"
)

// aliasFixture is a module a with a class Foo whose member alias is bound
// to the sibling member val.
func aliasFixture() (*TreeRoot, *Module, *Class) {
	root := NewTreeRoot()
	a := NewModule("a", Location{Filename: "a.py", Line: 1})
	root.Add(a, nil)

	foo := NewClass("Foo", Location{Filename: "a.py", Line: 2})
	root.Add(foo, a)

	val := NewVariable("val", Location{Filename: "a.py", Line: 3})
	root.Add(val, foo)

	alias := NewVariable("alias", Location{Filename: "a.py", Line: 4})
	alias.ValueExpr = astx.Name{ID: "val"}
	root.Add(alias, foo)

	return root, a, foo
}

func TestQualifiedNamesAreDerived(t *testing.T) {
	root, a, foo := aliasFixture()

	assert.Equal(t, "a.Foo", foo.FullName())
	assert.Equal(t, "a", a.FullName())
	assert.Same(t, a, foo.EnclosingModule())
	assert.Same(t, foo, root.AllObjects.Get("a.Foo"))
	assert.NotNil(t, root.AllObjects.Get("a.Foo.alias"))
}

func TestExpandNameLocalLookup(t *testing.T) {
	_, a, foo := aliasFixture()

	assert.Equal(t, "a.Foo.val", foo.ExpandName("val"))
	assert.Equal(t, "a.Foo.val", a.ExpandName("Foo.val"))
}

func TestExpandNameFollowsAliases(t *testing.T) {
	_, a, _ := aliasFixture()

	assert.Equal(t, "a.Foo.val", a.ExpandName("Foo.alias"))
	assert.Equal(t, "a.Foo.alias", a.ExpandNameKeepingAliases("Foo.alias"))

	resolved := a.ResolveName("Foo.alias")
	require.NotNil(t, resolved)
	assert.Equal(t, "a.Foo.val", resolved.FullName())

	kept := a.ResolveNameKeepingAliases("Foo.alias")
	require.NotNil(t, kept)
	assert.Equal(t, "a.Foo.alias", kept.FullName())
}

func TestExpandNameDegradesToConcatenation(t *testing.T) {
	_, a, _ := aliasFixture()

	assert.Equal(t, "a.Foo.missing", a.ExpandName("Foo.missing"))
	assert.Equal(t, "a.zzz", a.ExpandName("zzz"))
	assert.Nil(t, a.ResolveName("zzz"))
}

func TestExpandNameThroughIndirection(t *testing.T) {
	root, _, foo := aliasFixture()

	b := NewModule("b", Location{Filename: "b.py", Line: 1})
	root.Add(b, nil)
	ind := NewIndirection("Foo", Location{Filename: "b.py", Line: 1}, "a.Foo")
	root.Add(ind, b)

	assert.Equal(t, "a.Foo", b.ExpandName("Foo"))
	assert.Same(t, foo, b.ResolveName("Foo"))
	assert.Same(t, ind, b.ResolveNameKeepingAliases("Foo"))
}

func TestExpandNameLexicalScopeChain(t *testing.T) {
	root := NewTreeRoot()
	m := NewModule("m", Location{Filename: "m.py", Line: 1})
	root.Add(m, nil)
	top := NewVariable("shared", Location{Line: 2})
	root.Add(top, m)
	cls := NewClass("C", Location{Line: 3})
	root.Add(cls, m)

	// unresolvable inside the class, found one scope out
	assert.Equal(t, "m.shared", cls.ExpandName("shared"))
}

func TestExpandNameThroughInheritance(t *testing.T) {
	root := NewTreeRoot()
	m := NewModule("m", Location{Filename: "m.py", Line: 1})
	root.Add(m, nil)

	base := NewClass("Base", Location{Line: 2})
	root.Add(base, m)
	attr := NewVariable("attr", Location{Line: 3})
	root.Add(attr, base)

	sub := NewClass("Sub", Location{Line: 5})
	root.Add(sub, m)
	sub.Linearization = []*Class{sub, base}

	assert.Equal(t, "m.Base.attr", sub.ExpandName("attr"))
}

func TestIndirectionChaseCeiling(t *testing.T) {
	root := NewTreeRoot()
	m := NewModule("m", Location{Filename: "m.py", Line: 1})
	root.Add(m, nil)

	// i1 -> i2 -> ... -> i6 -> real, one hop past the ceiling
	for i := 1; i <= 6; i++ {
		target := "real"
		if i < 6 {
			target = "i" + string(rune('0'+i+1))
		}
		ind := NewIndirection("i"+string(rune('0'+i)), Location{Line: i}, target)
		root.Add(ind, m)
	}
	real := NewVariable("real", Location{Line: 10})
	root.Add(real, m)

	assert.Equal(t, "m.i1", m.ExpandName("i1"), "over-long chains settle on the first indirection")

	var debugs int
	for _, d := range root.Diagnostics() {
		if d.Severity == SeverityDebug {
			debugs++
		}
	}
	assert.NotZero(t, debugs)

	// a chain within the ceiling still resolves all the way through
	assert.Equal(t, "m.real", m.ExpandName("i3"))
}

func TestSelfReferentialIndirectionTerminates(t *testing.T) {
	root := NewTreeRoot()
	m := NewModule("m", Location{Filename: "m.py", Line: 1})
	root.Add(m, nil)
	ind := NewIndirection("x", Location{Line: 2}, "x")
	root.Add(ind, m)

	// no outer scope to retry from, the lookup degrades instead of looping
	assert.Equal(t, "m.x", m.ExpandName("x"))
}

func TestSelfReferentialIndirectionRetriesFromOuterScope(t *testing.T) {
	root := NewTreeRoot()
	m := NewModule("m", Location{Filename: "m.py", Line: 1})
	root.Add(m, nil)
	outer := NewVariable("x", Location{Line: 2})
	root.Add(outer, m)
	cls := NewClass("C", Location{Line: 3})
	root.Add(cls, m)
	ind := NewIndirection("x", Location{Line: 4}, "x")
	root.Add(ind, cls)

	assert.Equal(t, "m.x", cls.ExpandName("x"))
	assert.Same(t, outer, cls.ResolveName("x"))
}

func TestAddLineNumberShadowPolicy(t *testing.T) {
	root := NewTreeRoot()
	m := NewModule("m", Location{Filename: "m.py", Line: 1})
	root.Add(m, nil)

	late := NewVariable("x", Location{Line: 9})
	early := NewVariable("x", Location{Line: 2})
	root.Add(late, m)
	root.Add(early, m)

	assert.Same(t, late, root.AllObjects.Get("m.x"), "the later source line keeps the registry slot")

	root2 := NewTreeRoot()
	m2 := NewModule("m", Location{Filename: "m.py", Line: 1})
	root2.Add(m2, nil)
	first := NewVariable("y", Location{Line: 2})
	second := NewVariable("y", Location{Line: 9})
	root2.Add(first, m2)
	root2.Add(second, m2)
	assert.Same(t, second, root2.AllObjects.Get("m.y"))
}

func TestRemoveDetachesMembersAndRegistry(t *testing.T) {
	root, a, foo := aliasFixture()

	root.Remove(foo)

	assert.Nil(t, root.AllObjects.Get("a.Foo"))
	assert.Nil(t, root.AllObjects.Get("a.Foo.val"))
	assert.Nil(t, a.GetMember("Foo"))
}

func TestAddStructuralViolationsPanic(t *testing.T) {
	root := NewTreeRoot()

	assert.Panics(t, func() {
		root.Add(NewVariable("x", Location{}), nil)
	})

	m := NewModule("m", Location{})
	root.Add(m, nil)
	fn := NewFunction("f", Location{})
	root.Add(fn, m)

	assert.Panics(t, func() {
		root.Add(NewVariable("x", Location{}), fn)
	})
}
