package ext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/builder"
	"docgraph/internal/ext"
	"docgraph/internal/model"
	"docgraph/internal/pipeline"
)

type markerTrait struct {
	name  string
	kinds map[model.Kind]bool
}

func (t markerTrait) Name() string                 { return t.name }
func (t markerTrait) Applies(kind model.Kind) bool { return t.kinds[kind] }
func (t markerTrait) NewState(model.ApiObject) any { return &struct{ Seen bool }{} }

func TestFactoryRegisterValidation(t *testing.T) {
	f := ext.NewFactory()
	trait := markerTrait{name: "marker", kinds: map[model.Kind]bool{model.KindClass: true}}

	require.NoError(t, f.Register(model.KindClass, trait))

	err := f.Register(model.KindClass, trait)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	err = f.Register(model.KindFunction, trait)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not apply")
}

func TestFactoryAttachesTraitState(t *testing.T) {
	f := ext.NewFactory()
	trait := markerTrait{name: "marker", kinds: map[model.Kind]bool{model.KindClass: true}}
	require.NoError(t, f.Register(model.KindClass, trait))

	cls := f.Class("C", model.Location{})
	assert.NotNil(t, cls.TraitState("marker"))
	assert.Nil(t, cls.TraitState("unknown"))

	fn := f.Function("f", model.Location{})
	assert.Nil(t, fn.TraitState("marker"), "state only attaches to registered kinds")
}

func TestFactoryRebuildsAfterLateRegistration(t *testing.T) {
	f := ext.NewFactory()
	first := f.Class("Before", model.Location{})
	assert.Nil(t, first.TraitState("marker"))

	trait := markerTrait{name: "marker", kinds: map[model.Kind]bool{model.KindClass: true}}
	require.NoError(t, f.Register(model.KindClass, trait))

	second := f.Class("After", model.Location{})
	assert.NotNil(t, second.TraitState("marker"), "registration invalidates the cached constructor")
}

func processWithBrains(t *testing.T, src string) *model.TreeRoot {
	t.Helper()
	f := ext.NewFactory()
	require.NoError(t, ext.LoadOptional(f))
	b := builder.New(f, builder.Options{})
	b.AddSource("m", []byte(src))
	require.NoError(t, b.BuildAll())
	require.NoError(t, pipeline.New(f.Passes()...).Process(b.Root))
	return b.Root
}

func TestDataclassRecognition(t *testing.T) {
	root := processWithBrains(t, `
from dataclasses import dataclass

@dataclass(frozen=True)
class Point:
    x: int
    y: int = 0
    registry: ClassVar[dict] = {}

    def dist(self): pass

class Plain:
    x: int
`)

	point := root.AllObjects.Get("m.Point").(*model.Class)
	info := ext.DataclassInfoOf(point)
	require.NotNil(t, info)
	assert.True(t, info.IsDataclass)
	assert.True(t, info.Frozen)
	assert.False(t, info.KwOnly)

	x := root.AllObjects.Get("m.Point.x").(*model.Variable)
	require.NotNil(t, ext.DataclassFieldInfoOf(x))
	assert.True(t, ext.DataclassFieldInfoOf(x).IsField)
	assert.True(t, ext.DataclassFieldInfoOf(root.AllObjects.Get("m.Point.y")).IsField)

	registry := root.AllObjects.Get("m.Point.registry")
	assert.False(t, ext.DataclassFieldInfoOf(registry).IsField, "ClassVar annotations are not fields")

	plain := root.AllObjects.Get("m.Plain").(*model.Class)
	assert.False(t, ext.DataclassInfoOf(plain).IsDataclass)
	assert.False(t, ext.DataclassFieldInfoOf(root.AllObjects.Get("m.Plain.x")).IsField)
}

func TestAttrsClassicRecognition(t *testing.T) {
	root := processWithBrains(t, `
import attr

@attr.s
class Classic:
    x = attr.ib()
    plain = 1

@attr.s(auto_attribs=True)
class Annotated:
    y: int
`)

	classic := root.AllObjects.Get("m.Classic").(*model.Class)
	info := ext.AttrsInfoOf(classic)
	require.NotNil(t, info)
	assert.True(t, info.UsesAttrs)
	assert.False(t, info.AutoAttribs)

	assert.True(t, ext.AttrsFieldInfoOf(root.AllObjects.Get("m.Classic.x")).IsField)
	assert.False(t, ext.AttrsFieldInfoOf(root.AllObjects.Get("m.Classic.plain")).IsField)

	annotated := root.AllObjects.Get("m.Annotated").(*model.Class)
	assert.True(t, ext.AttrsInfoOf(annotated).AutoAttribs)
	assert.True(t, ext.AttrsFieldInfoOf(root.AllObjects.Get("m.Annotated.y")).IsField)
}

func TestAttrsModernRecognition(t *testing.T) {
	root := processWithBrains(t, `
import attrs

@attrs.define
class Modern:
    x: int
    helper = 1
`)

	modern := root.AllObjects.Get("m.Modern").(*model.Class)
	info := ext.AttrsInfoOf(modern)
	require.NotNil(t, info)
	assert.True(t, info.UsesAttrs)
	assert.True(t, info.AutoAttribs, "the modern spelling implies auto attribs")

	assert.True(t, ext.AttrsFieldInfoOf(root.AllObjects.Get("m.Modern.x")).IsField)
	assert.False(t, ext.AttrsFieldInfoOf(root.AllObjects.Get("m.Modern.helper")).IsField)
}

func TestFactoryPassesDeduplicated(t *testing.T) {
	f := ext.NewFactory()
	require.NoError(t, ext.LoadOptional(f))

	passes := f.Passes()
	names := make(map[string]int)
	for _, p := range passes {
		names[p.Name]++
	}
	assert.Equal(t, 1, names["dataclasses"], "a trait registered for several kinds contributes its passes once")
	assert.Equal(t, 1, names["attrs"])
}
