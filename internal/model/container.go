package model

import "docgraph/internal/astx"

// HasMembers is the container capability: an entity owning an ordered list
// of children. Only Module and Class implement it. Member order is
// significant for duplicate tie-breaking and deterministic output.
type HasMembers interface {
	ApiObject
	Members() []ApiObject
	// GetMember returns the current winner for a direct member name, nil
	// for unknown names.
	GetMember(name string) ApiObject
	// MembersNamed returns every direct member carrying the name, in
	// declaration order.
	MembersNamed(name string) []ApiObject

	appendMember(ApiObject)
	removeMember(ApiObject) bool
}

type container struct {
	base
	members []ApiObject
}

func (c *container) Members() []ApiObject { return c.members }

func (c *container) GetMember(name string) ApiObject {
	if c.root != nil {
		if ob := c.root.AllObjects.Get(c.FullName() + "." + name); ob != nil {
			return ob
		}
		return nil
	}
	// not yet attached to a root, fall back to scanning members
	for i := len(c.members) - 1; i >= 0; i-- {
		if c.members[i].Name() == name {
			return c.members[i]
		}
	}
	return nil
}

func (c *container) MembersNamed(name string) []ApiObject {
	var out []ApiObject
	for _, m := range c.members {
		if m.Name() == name {
			out = append(out, m)
		}
	}
	return out
}

func (c *container) appendMember(ob ApiObject) {
	c.members = append(c.members, ob)
}

func (c *container) removeMember(ob ApiObject) bool {
	for i, m := range c.members {
		if m == ob {
			c.members = append(c.members[:i], c.members[i+1:]...)
			return true
		}
	}
	return false
}

// Module is a named container for code objects. Modules may nest: a nested
// module is a package member.
type Module struct {
	container
	// IsPackage distinguishes a directory-backed namespace from a single
	// source unit.
	IsPackage bool
	// IsCompiled marks an opaque, pre-compiled unit that carries no
	// analyzable source.
	IsCompiled bool
	SourcePath string
	// RawTree keeps the parsed syntax tree for second-pass fallbacks:
	// export inference during cyclic imports and the approximate
	// linearization seed.
	RawTree *astx.Tree

	// DunderAll is the explicit export list, resolved lazily. nil means no
	// explicit list was declared.
	DunderAll []string
	Docformat string
}

func NewModule(name string, loc Location) *Module {
	m := &Module{}
	m.init(m, KindModule, name, loc)
	return m
}

// ExportedNames returns the explicit export list when declared, otherwise
// all locally declared public members (submodules and type-guarded
// indirections excluded).
func (m *Module) ExportedNames() []string {
	if m.DunderAll != nil {
		return m.DunderAll
	}
	return m.PublicNames()
}

// PublicNames lists the names a wildcard import would pull in absent an
// explicit export list.
func (m *Module) PublicNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, member := range m.members {
		if _, ok := member.(*Module); ok {
			continue
		}
		if ind, ok := member.(*Indirection); ok && ind.IsTypeGuarded {
			continue
		}
		name := member.Name()
		if IsPrivate(member) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ResolvedBase is one entry of Class.ResolvedBases: either a concrete class
// or, when resolution failed, a best-effort qualified name.
type ResolvedBase struct {
	Class *Class
	Name  string
}

func (rb ResolvedBase) Resolved() bool { return rb.Class != nil }

// Class is a class definition. Linearization and ResolvedBases are derived
// by the pipeline and must not be relied on before it has run.
type Class struct {
	container
	// Bases holds the raw, unparsed base-class references.
	Bases       []string
	BasesExpr   []astx.Expr
	Metaclass   string
	Decorations []*Decoration

	// Linearization is the method resolution order; index 0 is always the
	// class itself.
	Linearization []*Class
	ResolvedBases []ResolvedBase
	Subclasses    []*Class

	IsExceptionClass bool
	Constructor      *Function
	InheritedMembers []ApiObject
}

func NewClass(name string, loc Location) *Class {
	c := &Class{}
	c.init(c, KindClass, name, loc)
	return c
}

// Ancestors iterates the resolved base classes depth first, self first when
// includeSelf is set, without duplicates. This is the degraded ordering used
// when C3 linearization reports an inconsistent hierarchy.
func (c *Class) Ancestors(includeSelf bool) []*Class {
	seen := make(map[*Class]bool)
	var out []*Class
	var walk func(cls *Class, include bool)
	walk = func(cls *Class, include bool) {
		if seen[cls] {
			return
		}
		if include {
			seen[cls] = true
			out = append(out, cls)
		}
		for _, rb := range cls.ResolvedBases {
			if rb.Class != nil {
				walk(rb.Class, true)
			}
		}
	}
	walk(c, includeSelf)
	return out
}

// AncestorNames is Ancestors plus the unresolved base names, used for
// checks against names that may not be part of the analyzed tree.
func (c *Class) AncestorNames(includeSelf bool) []string {
	var out []string
	if includeSelf {
		out = append(out, c.Name())
	}
	seen := map[*Class]bool{c: true}
	var walk func(cls *Class)
	walk = func(cls *Class) {
		for _, rb := range cls.ResolvedBases {
			if rb.Class != nil {
				if seen[rb.Class] {
					continue
				}
				seen[rb.Class] = true
				out = append(out, rb.Class.Name())
				walk(rb.Class)
			} else {
				out = append(out, rb.Name)
			}
		}
	}
	walk(c)
	return out
}

// FindMember looks a name up along the linearization, nearest class first.
func (c *Class) FindMember(name string) ApiObject {
	for _, cls := range c.Linearization {
		if ob := cls.GetMember(name); ob != nil {
			return ob
		}
	}
	return nil
}
