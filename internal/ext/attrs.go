package ext

import (
	"docgraph/internal/astx"
	"docgraph/internal/model"
	"docgraph/internal/pipeline"
)

// AttrsInfo is attached to classes by the attrs recognizer.
type AttrsInfo struct {
	UsesAttrs bool
	// AutoAttribs means annotated class variables become fields without an
	// explicit attr.ib() value.
	AutoAttribs bool
}

// AttrsFieldInfo is attached to variables by the attrs recognizer.
type AttrsFieldInfo struct {
	IsField bool
}

func AttrsInfoOf(ob model.ApiObject) *AttrsInfo {
	info, _ := ob.TraitState(attrsTraitName).(*AttrsInfo)
	return info
}

func AttrsFieldInfoOf(ob model.ApiObject) *AttrsFieldInfo {
	info, _ := ob.TraitState(attrsTraitName).(*AttrsFieldInfo)
	return info
}

const attrsTraitName = "attrs"

// attrsTrait recognizes the attrs library idiom, both the classic attr.s
// spelling and the modern attrs.define one.
type attrsTrait struct{}

func (attrsTrait) Name() string { return attrsTraitName }

func (attrsTrait) Applies(kind model.Kind) bool {
	return kind == model.KindClass || kind == model.KindVariable
}

func (attrsTrait) NewState(ob model.ApiObject) any {
	switch ob.(type) {
	case *model.Class:
		return &AttrsInfo{}
	case *model.Variable:
		return &AttrsFieldInfo{}
	}
	return nil
}

func (t attrsTrait) Passes() []pipeline.Pass {
	return []pipeline.Pass{{
		Name:     attrsTraitName,
		Priority: 310,
		Run:      t.run,
	}}
}

var (
	classicAttrsDecorations = []string{"attr.s", "attr.attrs", "attr.attributes"}
	modernAttrsDecorations  = []string{"attrs.define", "attr.define", "attrs.mutable", "attrs.frozen", "attr.frozen"}
	attrsFieldFactories     = map[string]bool{
		"attr.ib":     true,
		"attr.attrib": true,
		"attr.field":  true,
		"attrs.field": true,
	}
)

func (attrsTrait) run(root *model.TreeRoot) error {
	for _, mod := range root.RootModules {
		model.Walk(mod, func(ob model.ApiObject) {
			cls, ok := ob.(*model.Class)
			if !ok {
				return
			}
			info := AttrsInfoOf(cls)
			if info == nil {
				return
			}
			if deco := findDecoration(cls.Decorations, cls, modernAttrsDecorations...); deco != nil {
				info.UsesAttrs = true
				info.AutoAttribs = true
			} else if deco := findDecoration(cls.Decorations, cls, classicAttrsDecorations...); deco != nil {
				info.UsesAttrs = true
				info.AutoAttribs = keywordIsTrue(deco, "auto_attribs")
			} else {
				return
			}

			for _, m := range cls.Members() {
				v, ok := m.(*model.Variable)
				if !ok || !v.IsClassVariable {
					continue
				}
				field := AttrsFieldInfoOf(v)
				if field == nil {
					continue
				}
				if isAttrsFieldValue(v, cls) {
					field.IsField = true
				} else if info.AutoAttribs && v.Datatype != "" && !isClassVarAnnotation(v.Datatype) {
					field.IsField = true
				}
			}
		})
	}
	return nil
}

// isAttrsFieldValue reports whether the variable's value is a call to one of
// the attrs field factories.
func isAttrsFieldValue(v *model.Variable, ctx model.ApiObject) bool {
	call, ok := v.ValueExpr.(astx.Call)
	if !ok {
		return false
	}
	name, ok := astx.NameOf(call.Func)
	if !ok {
		return false
	}
	if attrsFieldFactories[name] {
		return true
	}
	return attrsFieldFactories[ctx.ExpandName(name)]
}
