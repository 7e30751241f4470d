package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/ext"
	"docgraph/internal/model"
)

func buildSources(t *testing.T, sources map[string]string) *Builder {
	t.Helper()
	b := New(ext.NewFactory(), Options{})
	// deterministic discovery order
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
	return b
}

func mustClass(t *testing.T, b *Builder, name string) *model.Class {
	t.Helper()
	cls, ok := b.Root.AllObjects.Get(name).(*model.Class)
	require.True(t, ok, "expected class %s", name)
	return cls
}

func mustFunction(t *testing.T, b *Builder, name string) *model.Function {
	t.Helper()
	fn, ok := b.Root.AllObjects.Get(name).(*model.Function)
	require.True(t, ok, "expected function %s", name)
	return fn
}

func TestBuildCollectsModuleShape(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
"""Module docs."""

CONST = 1
"""Constant docs."""

class Shape:
    """A shape."""

    sides: int = 0

    def area(self):
        """Compute the area."""
        return 0

def top(): pass
`})

	mod := b.Root.AllObjects.Get("m").(*model.Module)
	require.NotNil(t, mod.Docstring())
	assert.Equal(t, "Module docs.", mod.Docstring().Content)

	v := b.Root.AllObjects.Get("m.CONST").(*model.Variable)
	require.NotNil(t, v.Docstring())
	assert.Equal(t, "Constant docs.", v.Docstring().Content)

	cls := mustClass(t, b, "m.Shape")
	assert.Equal(t, "A shape.", cls.Docstring().Content)

	sides := b.Root.AllObjects.Get("m.Shape.sides").(*model.Variable)
	assert.Equal(t, "int", sides.Datatype)
	assert.Equal(t, "0", sides.Value)

	area := mustFunction(t, b, "m.Shape.area")
	assert.Equal(t, "Compute the area.", area.Docstring().Content)

	assert.NotNil(t, b.Root.AllObjects.Get("m.top"))
}

func TestBuildParsesParameterArity(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
def f(a, b: int, c=1, d: str = "x", *args, e, **kw): pass

def g(pos, /, both, *, kwonly): pass

async def h(): pass
`})

	f := mustFunction(t, b, "m.f")
	require.Len(t, f.Args, 7)
	assert.Equal(t, model.Positional, f.Args[0].Kind)
	assert.Equal(t, "int", f.Args[1].Datatype)
	assert.Equal(t, "1", f.Args[2].Default)
	assert.Equal(t, "str", f.Args[3].Datatype)
	assert.Equal(t, `"x"`, f.Args[3].Default)
	assert.Equal(t, model.VarPositional, f.Args[4].Kind)
	assert.Equal(t, "args", f.Args[4].Name)
	assert.Equal(t, model.KeywordOnly, f.Args[5].Kind, "names after *args are keyword-only")
	assert.Equal(t, model.VarKeyword, f.Args[6].Kind)
	assert.Equal(t, "kw", f.Args[6].Name)

	g := mustFunction(t, b, "m.g")
	require.Len(t, g.Args, 3)
	assert.Equal(t, model.PositionalOnly, g.Args[0].Kind)
	assert.Equal(t, model.Positional, g.Args[1].Kind)
	assert.Equal(t, model.KeywordOnly, g.Args[2].Kind)

	assert.True(t, mustFunction(t, b, "m.h").Async)
}

func TestBuildCollectsInstanceVariables(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
class C:
    def __init__(self):
        self.x = 1
        self.y: int = 2

    def update(self):
        self.x = 3

    @staticmethod
    def nope(self):
        self.z = 4

    def nested(self):
        def inner(self):
            self.w = 5
`})

	x := b.Root.AllObjects.Get("m.C.x").(*model.Variable)
	assert.True(t, x.InstanceHint)
	assert.Equal(t, "1", x.Value, "the first writer wins")

	y := b.Root.AllObjects.Get("m.C.y").(*model.Variable)
	assert.Equal(t, "int", y.Datatype)

	assert.Nil(t, b.Root.AllObjects.Get("m.C.z"), "static methods bind no receiver")
	assert.Nil(t, b.Root.AllObjects.Get("m.C.w"), "nested defs bind a different receiver")
}

func TestBuildRecordsDecorationsAndBases(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
import abc

@deco(1, flag=True)
class C(Base, other.Thing, metaclass=Meta):
    @abc.abstractmethod
    def f(self): ...
`})

	cls := mustClass(t, b, "m.C")
	assert.Equal(t, []string{"Base", "other.Thing"}, cls.Bases)
	assert.Equal(t, "Meta", cls.Metaclass)
	require.Len(t, cls.Decorations, 1)
	assert.Equal(t, "deco", cls.Decorations[0].Name)
	assert.Equal(t, []string{"1", "flag=True"}, cls.Decorations[0].Args)

	f := mustFunction(t, b, "m.C.f")
	require.Len(t, f.Decorations, 1)
	assert.Equal(t, "abc.abstractmethod", f.Decorations[0].Name)
}

func TestBuildImportsBecomeIndirections(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
import os
import numpy as np
from collections import OrderedDict
from typing import List as L

if TYPE_CHECKING:
    from heavy import Thing
`})

	np, ok := b.Root.AllObjects.Get("m.np").(*model.Indirection)
	require.True(t, ok)
	assert.Equal(t, "numpy", np.Target)

	od := b.Root.AllObjects.Get("m.OrderedDict").(*model.Indirection)
	assert.Equal(t, "collections.OrderedDict", od.Target)

	l := b.Root.AllObjects.Get("m.L").(*model.Indirection)
	assert.Equal(t, "typing.List", l.Target)

	thing := b.Root.AllObjects.Get("m.Thing").(*model.Indirection)
	assert.True(t, thing.IsTypeGuarded)

	// a plain import binds the package through the root namespace, no
	// indirection is materialized
	assert.Nil(t, b.Root.AllObjects.Get("m.os"))
}

func TestBuildDunderAllReplay(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
__all__ = ["a", "b"]
__all__ += ["c"]
__all__.append("d")
__all__.extend(["e", "f"])
__all__.remove("b")

def helper(): pass
`})

	mod := b.Root.AllObjects.Get("m").(*model.Module)
	assert.Equal(t, []string{"a", "c", "d", "e", "f"}, mod.DunderAll)
	assert.Equal(t, mod.DunderAll, mod.ExportedNames())
}

func TestBuildDunderAllUnevaluable(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
__all__ = [name for name in dir()]
`})

	mod := b.Root.AllObjects.Get("m").(*model.Module)
	assert.Nil(t, mod.DunderAll)

	found := false
	for _, d := range b.Root.Diagnostics() {
		if strings.Contains(d.Message, "export list") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildWildcardImport(t *testing.T) {
	b := buildSources(t, map[string]string{
		"lib": `
__all__ = ["alpha", "beta"]

def alpha(): pass
def beta(): pass
def hidden(): pass
`,
		"use": `from lib import *`,
	})

	alpha, ok := b.Root.AllObjects.Get("use.alpha").(*model.Indirection)
	require.True(t, ok)
	assert.Equal(t, "lib.alpha", alpha.Target)
	assert.NotNil(t, b.Root.AllObjects.Get("use.beta"))
	assert.Nil(t, b.Root.AllObjects.Get("use.hidden"))
}

func TestBuildWildcardImportWithoutDunderAll(t *testing.T) {
	b := buildSources(t, map[string]string{
		"lib": `
from typing import TYPE_CHECKING

if TYPE_CHECKING:
    from types import ModuleType

def visible(): pass

def _hidden(): pass

LIMIT = 10
`,
		"use": `from lib import *`,
	})

	assert.NotNil(t, b.Root.AllObjects.Get("use.visible"))
	assert.NotNil(t, b.Root.AllObjects.Get("use.LIMIT"))
	assert.Nil(t, b.Root.AllObjects.Get("use._hidden"), "underscore names stay private")
	assert.Nil(t, b.Root.AllObjects.Get("use.ModuleType"), "type-guarded indirections stay private")
}

// Two modules wildcard-importing each other must both finish, whichever is
// discovered first, with the cycle degrading to syntax-level inference.
func TestBuildCyclicWildcardImports(t *testing.T) {
	sources := map[string]string{
		"a": `
from b import *

def from_a(): pass
`,
		"b": `
from a import *

def from_b(): pass
`,
	}

	b := buildSources(t, sources)
	assert.NotNil(t, b.Root.AllObjects.Get("a.from_b"))
	assert.NotNil(t, b.Root.AllObjects.Get("b.from_a"))

	cyclic := false
	for _, d := range b.Root.Diagnostics() {
		if strings.Contains(d.Message, "cyclic wildcard import") {
			cyclic = true
		}
	}
	assert.True(t, cyclic)
}

// Two modules importing each other's class by name must both resolve,
// whichever builds first.
func TestBuildMutualClassImports(t *testing.T) {
	b := buildSources(t, map[string]string{
		"p": `
from q import QThing

class PThing:
    pass
`,
		"q": `
from p import PThing

class QThing:
    pass
`,
	})

	p := b.Root.AllObjects.Get("p").(*model.Module)
	q := b.Root.AllObjects.Get("q").(*model.Module)
	assert.Equal(t, "q.QThing", p.ExpandName("QThing"))
	assert.Equal(t, "p.PThing", q.ExpandName("PThing"))
}

func TestBuildPackageTree(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "sub"), 0755))
	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(pkg, rel), []byte(content), 0644))
	}
	write("__init__.py", "from .core import main\n")
	write("core.py", "def main(): pass\n")
	write(filepath.Join("sub", "__init__.py"), "")
	write(filepath.Join("sub", "leaf.py"), "from ..core import main\nvalue = 1\n")

	f := ext.NewFactory()
	b := New(f, Options{})
	require.NoError(t, b.AddRoot(pkg))
	require.NoError(t, b.BuildAll())

	root := b.Root.AllObjects.Get("pkg").(*model.Module)
	assert.True(t, root.IsPackage)

	main := b.Root.AllObjects.Get("pkg.main").(*model.Indirection)
	assert.Equal(t, "pkg.core.main", main.Target)

	sub := b.Root.AllObjects.Get("pkg.sub").(*model.Module)
	assert.True(t, sub.IsPackage)

	leafImport := b.Root.AllObjects.Get("pkg.sub.leaf.main").(*model.Indirection)
	assert.Equal(t, "pkg.core.main", leafImport.Target, "two dots climb from leaf's package to pkg")

	assert.NotNil(t, b.Root.AllObjects.Get("pkg.sub.leaf.value"))
}

func TestBuildRelativeImportOverclimb(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "__init__.py"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "mod.py"),
		[]byte("from ... import a, b, c\n"), 0644))

	b := New(ext.NewFactory(), Options{})
	require.NoError(t, b.AddRoot(pkg))
	require.NoError(t, b.BuildAll())

	climbs := 0
	for _, d := range b.Root.Diagnostics() {
		if strings.Contains(d.Message, "climbs past the top") {
			climbs++
		}
	}
	assert.Equal(t, 1, climbs, "one diagnostic per statement, not per name")
	assert.Nil(t, b.Root.AllObjects.Get("pkg.mod.a"))
}

func TestBuildDuplicateModuleTieBreaks(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(filepath.Join(pkg, "dup"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "__init__.py"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "dup", "__init__.py"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "dup.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "ext.py"), []byte("y = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "ext.so"), []byte{0}, 0644))

	b := New(ext.NewFactory(), Options{IntrospectCompiled: true})
	require.NoError(t, b.AddRoot(pkg))
	require.NoError(t, b.BuildAll())

	dup := b.Root.AllObjects.Get("pkg.dup").(*model.Module)
	assert.True(t, dup.IsPackage, "a package beats a same-named plain module")

	compiled := b.Root.AllObjects.Get("pkg.ext").(*model.Module)
	assert.True(t, compiled.IsCompiled, "a compiled unit beats a same-named source module")
	assert.Nil(t, b.Root.AllObjects.Get("pkg.ext.y"))
}

func TestBuildExcludesGlobs(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(pkg, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "__init__.py"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "keep.py"), []byte("a = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "skip_generated.py"), []byte("b = 1\n"), 0644))

	b := New(ext.NewFactory(), Options{
		Exclude: []glob.Glob{glob.MustCompile("*_generated.py")},
	})
	require.NoError(t, b.AddRoot(pkg))
	require.NoError(t, b.BuildAll())

	assert.NotNil(t, b.Root.AllObjects.Get("pkg.keep"))
	assert.Nil(t, b.Root.AllObjects.Get("pkg.skip_generated"))
}

func TestBuildSingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solo.py")
	require.NoError(t, os.WriteFile(path, []byte("def f(): pass\n"), 0644))

	b := New(ext.NewFactory(), Options{})
	require.NoError(t, b.AddRoot(path))
	require.NoError(t, b.BuildAll())
	assert.NotNil(t, b.Root.AllObjects.Get("solo.f"))

	assert.Error(t, b.AddRoot(filepath.Join(dir, "missing.py")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))
	assert.Error(t, b.AddRoot(filepath.Join(dir, "notes.txt")))
}

func TestBuildConditionalAndTryBlocks(t *testing.T) {
	b := buildSources(t, map[string]string{"m": `
if sys.version_info >= (3, 8):
    new_style = 1
elif feature:
    mid_style = 1
else:
    old_style = 1

try:
    import fast_json as json_impl
except ImportError:
    json_impl = None
finally:
    cleanup = True
`})

	for _, name := range []string{"m.new_style", "m.mid_style", "m.old_style", "m.json_impl", "m.cleanup"} {
		assert.NotNil(t, b.Root.AllObjects.Get(name), name)
	}

	// the except-branch fallback shadows the indirection from the try block
	winner := b.Root.AllObjects.Get("m.json_impl")
	_, isVariable := winner.(*model.Variable)
	assert.True(t, isVariable, "the later definition wins the registry slot")
}

func TestBuildTupleUnpacking(t *testing.T) {
	b := buildSources(t, map[string]string{"m": "a, b = 1, 2\n"})
	assert.NotNil(t, b.Root.AllObjects.Get("m.a"))
	assert.NotNil(t, b.Root.AllObjects.Get("m.b"))
}
