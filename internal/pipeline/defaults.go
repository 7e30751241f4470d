package pipeline

import (
	"strings"

	"docgraph/internal/astx"
	"docgraph/internal/model"
	"docgraph/internal/mro"
)

// defaultsPass fills in every attribute that does not depend on another
// entity's derived attributes: default locations, decoration-derived function
// facts, variable scoping facts, module docformat, and the approximate
// linearization seed that the link pass bootstraps from.
func defaultsPass() Pass {
	return Pass{
		Name:     "defaults",
		Priority: PriorityDefaults,
		Run: func(root *model.TreeRoot) error {
			eachObject(root, func(ob model.ApiObject) {
				applyDefaultLocation(ob)
				switch v := ob.(type) {
				case *model.Function:
					applyFunctionFacts(v)
				case *model.Variable:
					applyVariableFacts(v)
				case *model.Module:
					applyModuleFacts(v)
				}
			})

			// Seed every class's bases before linearizing any of them: the
			// merge recursion reads other classes' seeds.
			eachObject(root, func(ob model.ApiObject) {
				if cls, ok := ob.(*model.Class); ok {
					cls.ResolvedBases = seedBases(cls)
				}
			})
			eachObject(root, func(ob model.ApiObject) {
				if cls, ok := ob.(*model.Class); ok {
					cls.Linearization = linearize(cls, false)
				}
			})
			return nil
		},
	}
}

func applyDefaultLocation(ob model.ApiObject) {
	loc := ob.Location()
	if loc.Filename != "" {
		return
	}
	if mod := ob.EnclosingModule(); mod != nil && mod.SourcePath != "" {
		loc.Filename = mod.SourcePath
		ob.SetLocation(loc)
	}
}

func applyFunctionFacts(fn *model.Function) {
	_, inClass := fn.Parent().(*model.Class)
	fn.IsMethod = inClass

	for _, deco := range fn.Decorations {
		switch lastPart(deco.Name) {
		case "classmethod":
			fn.IsClassMethod = true
		case "staticmethod":
			fn.IsStaticMethod = true
		case "property", "cached_property":
			fn.IsProperty = true
		case "abstractmethod":
			fn.IsAbstract = true
		case "abstractproperty":
			fn.IsAbstract = true
			fn.IsProperty = true
		case "setter":
			if strings.TrimSuffix(deco.Name, ".setter") == fn.Name() {
				fn.IsPropertySetter = true
			}
		case "deleter":
			if strings.TrimSuffix(deco.Name, ".deleter") == fn.Name() {
				fn.IsPropertyDeleter = true
			}
		}
	}
}

func applyVariableFacts(v *model.Variable) {
	switch v.Parent().(type) {
	case *model.Module:
		v.IsModuleVariable = true
	case *model.Class:
		if v.InstanceHint {
			v.IsInstanceVariable = true
		} else {
			v.IsClassVariable = true
		}
	case *model.Function:
		// locals collected from "self.x" sites are reparented onto the
		// class by the builder, anything left is out of scope
	}

	if allCaps(v.Name()) || lastPart(v.Datatype) == "Final" || strings.HasPrefix(v.Datatype, "Final[") {
		v.IsConstant = true
	}
	if _, ok := v.AliasTarget(); ok && !v.IsInstanceVariable {
		v.IsAlias = true
	}
}

func applyModuleFacts(mod *model.Module) {
	member, ok := mod.GetMember("__docformat__").(*model.Variable)
	if !ok || member.ValueExpr == nil {
		return
	}
	value, err := astx.LiteralEval(member.ValueExpr)
	if err != nil {
		return
	}
	if s, ok := value.(string); ok {
		mod.Docformat = strings.TrimSpace(s)
	}
}

// seedBases resolves base-class names lexically, scanning enclosing member
// lists within the class's own module only. No registry, no indirection
// following; cross-module bases stay unresolved until the link pass.
func seedBases(cls *model.Class) []model.ResolvedBase {
	mod := cls.EnclosingModule()
	out := make([]model.ResolvedBase, 0, len(cls.Bases))
	for _, name := range cls.Bases {
		rb := model.ResolvedBase{Name: name}
		if target := lexicalLookup(cls, name); target != nil {
			if base, ok := target.(*model.Class); ok && base.EnclosingModule() == mod && base != cls {
				rb.Class = base
			}
		}
		out = append(out, rb)
	}
	return out
}

func lexicalLookup(cls *model.Class, name string) model.ApiObject {
	parts := strings.Split(name, ".")

	var current model.ApiObject
	for scope := cls.Parent(); scope != nil; scope = scope.Parent() {
		owner, ok := scope.(model.HasMembers)
		if !ok {
			continue
		}
		if found := owner.MembersNamed(parts[0]); len(found) > 0 {
			current = found[len(found)-1]
			break
		}
	}
	if current == nil {
		return nil
	}
	for _, part := range parts[1:] {
		owner, ok := current.(model.HasMembers)
		if !ok {
			return nil
		}
		found := owner.MembersNamed(part)
		if len(found) == 0 {
			return nil
		}
		current = found[len(found)-1]
	}
	return current
}

// linearize computes the method resolution order from the current
// ResolvedBases, degrading to the flattened ancestor order on an
// inconsistent or cyclic hierarchy. The degrade is only reported during the
// authoritative recomputation.
func linearize(cls *model.Class, report bool) []*model.Class {
	order, err := mro.Linearize(cls, func(c *model.Class) []*model.Class {
		var bases []*model.Class
		for _, rb := range c.ResolvedBases {
			if rb.Class != nil {
				bases = append(bases, rb.Class)
			}
		}
		return bases
	})
	if err != nil {
		if report {
			cls.Warn("cannot linearize bases: %v, falling back to flattened ancestry", err)
		}
		return cls.Ancestors(true)
	}
	return order
}

func lastPart(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func allCaps(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r == '_' || (r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return hasLetter
}
