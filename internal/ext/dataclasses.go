package ext

import (
	"strings"

	"docgraph/internal/astx"
	"docgraph/internal/model"
	"docgraph/internal/pipeline"
)

// DataclassInfo is attached to classes by the dataclasses recognizer.
type DataclassInfo struct {
	IsDataclass bool
	Frozen      bool
	KwOnly      bool
}

// DataclassFieldInfo is attached to variables by the dataclasses recognizer.
type DataclassFieldInfo struct {
	IsField bool
}

// DataclassInfoOf returns the recognizer state for a class, nil when the
// trait was not loaded.
func DataclassInfoOf(ob model.ApiObject) *DataclassInfo {
	info, _ := ob.TraitState(dataclassTraitName).(*DataclassInfo)
	return info
}

// DataclassFieldInfoOf returns the recognizer state for a variable, nil when
// the trait was not loaded.
func DataclassFieldInfoOf(ob model.ApiObject) *DataclassFieldInfo {
	info, _ := ob.TraitState(dataclassTraitName).(*DataclassFieldInfo)
	return info
}

const dataclassTraitName = "dataclasses"

// dataclassTrait recognizes the standard-library dataclass idiom: classes
// decorated with dataclass grow field entities from their annotated class
// variables.
type dataclassTrait struct{}

func (dataclassTrait) Name() string { return dataclassTraitName }

func (dataclassTrait) Applies(kind model.Kind) bool {
	return kind == model.KindClass || kind == model.KindVariable
}

func (dataclassTrait) NewState(ob model.ApiObject) any {
	switch ob.(type) {
	case *model.Class:
		return &DataclassInfo{}
	case *model.Variable:
		return &DataclassFieldInfo{}
	}
	return nil
}

func (t dataclassTrait) Passes() []pipeline.Pass {
	return []pipeline.Pass{{
		Name:     dataclassTraitName,
		Priority: 300,
		Run:      t.run,
	}}
}

func (dataclassTrait) run(root *model.TreeRoot) error {
	for _, mod := range root.RootModules {
		model.Walk(mod, func(ob model.ApiObject) {
			cls, ok := ob.(*model.Class)
			if !ok {
				return
			}
			info := DataclassInfoOf(cls)
			if info == nil {
				return
			}
			deco := findDecoration(cls.Decorations, cls, "dataclasses.dataclass", "dataclass")
			if deco == nil {
				return
			}
			info.IsDataclass = true
			info.Frozen = keywordIsTrue(deco, "frozen")
			info.KwOnly = keywordIsTrue(deco, "kw_only")

			for _, m := range cls.Members() {
				v, ok := m.(*model.Variable)
				if !ok || v.Datatype == "" || !v.IsClassVariable {
					continue
				}
				if isClassVarAnnotation(v.Datatype) {
					continue
				}
				if field := DataclassFieldInfoOf(v); field != nil {
					field.IsField = true
				}
			}
		})
	}
	return nil
}

func isClassVarAnnotation(datatype string) bool {
	return datatype == "ClassVar" || strings.HasPrefix(datatype, "ClassVar[") ||
		datatype == "typing.ClassVar" || strings.HasPrefix(datatype, "typing.ClassVar[")
}

// findDecoration matches a decoration against fully qualified idiom names,
// resolving the decoration expression from the decorated object's scope, with
// a fallback on the raw dotted text for sources outside the analyzed tree.
func findDecoration(decorations []*model.Decoration, ctx model.ApiObject, qualified ...string) *model.Decoration {
	for _, deco := range decorations {
		expanded := ctx.ExpandName(deco.Name)
		for _, want := range qualified {
			if expanded == want || deco.Name == want {
				return deco
			}
		}
	}
	return nil
}

// keywordIsTrue reports whether the decoration call carries keyword=True.
func keywordIsTrue(deco *model.Decoration, keyword string) bool {
	call, ok := deco.Expr.(astx.Call)
	if !ok {
		return false
	}
	for _, kw := range call.Keywords {
		if kw.Name != keyword {
			continue
		}
		if b, ok := kw.Value.(astx.Bool); ok {
			return b.Value
		}
	}
	return false
}
