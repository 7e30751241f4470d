package pipeline

import (
	"docgraph/internal/model"
)

// linkPass recomputes everything that needs the whole registry: final
// resolved bases, the authoritative linearization, subclass and alias
// back-references, documentation-source chains, and the registry
// normalizations that keep accessor variants and submodules from shadowing
// the entry a reader expects.
func linkPass() Pass {
	return Pass{
		Name:     "link",
		Priority: PriorityLink,
		Run: func(root *model.TreeRoot) error {
			eachObject(root, func(ob model.ApiObject) {
				if cls, ok := ob.(*model.Class); ok {
					cls.ResolvedBases = resolveBases(root, cls)
					cls.Subclasses = nil
				}
			})
			eachObject(root, func(ob model.ApiObject) {
				if cls, ok := ob.(*model.Class); ok {
					cls.Linearization = linearize(cls, true)
				}
			})
			eachObject(root, func(ob model.ApiObject) {
				if cls, ok := ob.(*model.Class); ok {
					linkClass(cls)
				}
			})
			eachObject(root, func(ob model.ApiObject) {
				recordAlias(ob)
				model.SetDocSources(ob, docSources(ob))
			})
			eachObject(root, func(ob model.ApiObject) {
				switch v := ob.(type) {
				case *model.Class:
					dedupPropertyAccessors(root, v)
				case *model.Module:
					normalizeSubmoduleShadows(root, v)
				}
			})
			return nil
		},
	}
}

// resolveBases expands each raw base reference from the scope the class
// statement appears in, then looks the expanded name up in the registry.
// Unresolvable bases keep their best-effort expanded name.
func resolveBases(root *model.TreeRoot, cls *model.Class) []model.ResolvedBase {
	out := make([]model.ResolvedBase, 0, len(cls.Bases))
	for _, name := range cls.Bases {
		expanded := cls.Parent().ExpandName(name)
		rb := model.ResolvedBase{Name: expanded}
		if base, ok := root.AllObjects.Get(expanded).(*model.Class); ok && base != cls {
			rb.Class = base
		}
		out = append(out, rb)
	}
	return out
}

func linkClass(cls *model.Class) {
	for _, rb := range cls.ResolvedBases {
		if rb.Class != nil && !containsClass(rb.Class.Subclasses, cls) {
			rb.Class.Subclasses = append(rb.Class.Subclasses, cls)
		}
	}

	if ctor, ok := cls.FindMember("__init__").(*model.Function); ok {
		cls.Constructor = ctor
	}
	cls.IsExceptionClass = isException(cls)
	cls.InheritedMembers = inheritedMembers(cls)
}

func inheritedMembers(cls *model.Class) []model.ApiObject {
	seen := make(map[string]bool)
	for _, m := range cls.Members() {
		seen[m.Name()] = true
	}
	var out []model.ApiObject
	for _, ancestor := range cls.Linearization {
		if ancestor == cls {
			continue
		}
		for _, m := range ancestor.Members() {
			if seen[m.Name()] {
				continue
			}
			seen[m.Name()] = true
			out = append(out, m)
		}
	}
	return out
}

func recordAlias(ob model.ApiObject) {
	v, ok := ob.(*model.Variable)
	if !ok || !v.IsAlias {
		return
	}
	target, ok := v.AliasTarget()
	if !ok {
		return
	}
	if resolved := v.ResolveName(target); resolved != nil && resolved != model.ApiObject(v) {
		model.RecordAlias(resolved, v)
	}
}

// docSources lists the definitions that can document ob: itself first, then
// same-named members along the enclosing class's linearization.
func docSources(ob model.ApiObject) []model.ApiObject {
	sources := []model.ApiObject{ob}
	cls, ok := ob.Parent().(*model.Class)
	if !ok {
		return sources
	}
	for _, ancestor := range cls.Linearization {
		if ancestor == cls {
			continue
		}
		if m := ancestor.GetMember(ob.Name()); m != nil {
			sources = append(sources, m)
		}
	}
	return sources
}

// dedupPropertyAccessors keeps a property getter as the registry winner for
// its name even when a setter or deleter variant was declared on a later
// line.
func dedupPropertyAccessors(root *model.TreeRoot, cls *model.Class) {
	getters := make(map[string]*model.Function)
	for _, m := range cls.Members() {
		if fn, ok := m.(*model.Function); ok && fn.IsProperty {
			getters[fn.Name()] = fn
		}
	}
	for name, getter := range getters {
		winner, ok := cls.GetMember(name).(*model.Function)
		if ok && (winner.IsPropertySetter || winner.IsPropertyDeleter) {
			root.AllObjects.Promote(getter.FullName(), getter)
		}
	}
}

// normalizeSubmoduleShadows makes a name defined in a package's own source
// win over a same-named submodule, matching attribute-access semantics after
// the package body has run.
func normalizeSubmoduleShadows(root *model.TreeRoot, mod *model.Module) {
	if !mod.IsPackage {
		return
	}
	locals := make(map[string]model.ApiObject)
	submodules := make(map[string]bool)
	for _, m := range mod.Members() {
		if _, ok := m.(*model.Module); ok {
			submodules[m.Name()] = true
		} else {
			locals[m.Name()] = m
		}
	}
	for name, local := range locals {
		if !submodules[name] {
			continue
		}
		if _, shadowed := mod.GetMember(name).(*model.Module); shadowed {
			root.AllObjects.Promote(local.FullName(), local)
		}
	}
}

func isException(cls *model.Class) bool {
	for _, name := range cls.AncestorNames(true) {
		if builtinExceptions[lastPart(name)] {
			return true
		}
	}
	return false
}

var builtinExceptions = func() map[string]bool {
	names := []string{
		"BaseException", "BaseExceptionGroup", "Exception", "ExceptionGroup",
		"ArithmeticError", "AssertionError", "AttributeError", "BlockingIOError",
		"BrokenPipeError", "BufferError", "ChildProcessError",
		"ConnectionAbortedError", "ConnectionError", "ConnectionRefusedError",
		"ConnectionResetError", "EOFError", "EnvironmentError", "FileExistsError",
		"FileNotFoundError", "FloatingPointError", "GeneratorExit", "IOError",
		"ImportError", "IndentationError", "IndexError", "InterruptedError",
		"IsADirectoryError", "KeyError", "KeyboardInterrupt", "LookupError",
		"MemoryError", "ModuleNotFoundError", "NameError", "NotADirectoryError",
		"NotImplementedError", "OSError", "OverflowError", "PermissionError",
		"ProcessLookupError", "RecursionError", "ReferenceError", "RuntimeError",
		"StopAsyncIteration", "StopIteration", "SyntaxError", "SystemError",
		"SystemExit", "TabError", "TimeoutError", "TypeError",
		"UnboundLocalError", "UnicodeDecodeError", "UnicodeEncodeError",
		"UnicodeError", "UnicodeTranslateError", "ValueError",
		"ZeroDivisionError", "Warning", "BytesWarning", "DeprecationWarning",
		"FutureWarning", "ImportWarning", "PendingDeprecationWarning",
		"ResourceWarning", "RuntimeWarning", "SyntaxWarning", "UnicodeWarning",
		"UserWarning",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}()

func containsClass(classes []*model.Class, cls *model.Class) bool {
	for _, c := range classes {
		if c == cls {
			return true
		}
	}
	return false
}
