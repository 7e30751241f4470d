package model

import (
	"fmt"
	"strings"

	"docgraph/internal/astx"
)

type Kind string

const (
	KindModule      Kind = "module"
	KindClass       Kind = "class"
	KindFunction    Kind = "function"
	KindVariable    Kind = "variable"
	KindIndirection Kind = "indirection"
)

// Location is a source position. Line 0 with an empty filename means the
// position is unknown.
type Location struct {
	Filename string
	Line     int
}

func (l Location) Unknown() bool { return l.Filename == "" && l.Line == 0 }

func (l Location) String() string {
	name := l.Filename
	if name == "" {
		name = "<unknown>"
	}
	return fmt.Sprintf("%s:%d", name, l.Line)
}

// Docstring is the documentation text attached to an object.
type Docstring struct {
	Content  string
	Location Location
}

// Decoration is one decorator applied to a class or function.
type Decoration struct {
	Name     string // dotted name of the decoration expression
	Args     []string
	Location Location
	NameExpr astx.Expr
	Expr     astx.Expr
}

// ArgKind is the arity category of a function parameter.
type ArgKind int

const (
	PositionalOnly ArgKind = iota
	Positional             // positional or keyword
	VarPositional
	KeywordOnly
	VarKeyword
)

func (k ArgKind) String() string {
	switch k {
	case PositionalOnly:
		return "positional-only"
	case Positional:
		return "positional-or-keyword"
	case VarPositional:
		return "variadic-positional"
	case KeywordOnly:
		return "keyword-only"
	case VarKeyword:
		return "variadic-keyword"
	}
	return "unknown"
}

// Argument is one function parameter.
type Argument struct {
	Name         string
	Kind         ArgKind
	Datatype     string
	DatatypeExpr astx.Expr
	Default      string
	DefaultExpr  astx.Expr
	Location     Location
}

// ApiObject is a node of the entity graph. The qualified name is never
// stored: it is derived by walking parent links root-ward.
type ApiObject interface {
	Name() string
	Kind() Kind
	Location() Location
	SetLocation(Location)
	Docstring() *Docstring
	SetDocstring(*Docstring)

	Parent() ApiObject
	Root() *TreeRoot

	FullName() string
	DottedName() DottedName
	// EnclosingModule returns the module this object is defined in; a
	// module returns itself.
	EnclosingModule() *Module
	// Scope returns the nearest enclosing namespace: the object itself for
	// modules and classes, the parent scope otherwise.
	Scope() ApiObject

	// ExpandName resolves a possibly dotted name from this object's vantage
	// point, following indirections and aliases, degrading to a naive
	// qualified-name guess when a part cannot be resolved.
	ExpandName(name string) string
	// ExpandNameKeepingAliases is ExpandName without the transparent
	// indirection/alias following.
	ExpandNameKeepingAliases(name string) string
	// ResolveName is ExpandName followed by a registry lookup.
	ResolveName(name string) ApiObject
	// ResolveNameKeepingAliases resolves without following indirections, so
	// the indirection or alias node itself is returned.
	ResolveNameKeepingAliases(name string) ApiObject

	// DocSources lists every definition that can document this object,
	// itself first, then overridden definitions along the linearization.
	// Populated by the pipeline.
	DocSources() []ApiObject

	// Aliases lists the alias variables whose value resolves to this
	// object. Populated by the pipeline.
	Aliases() []*Variable

	// TraitState returns the state attached by the named extension trait,
	// or nil.
	TraitState(trait string) any
	SetTraitState(trait string, state any)

	// Warn records a recoverable diagnostic tied to this object's location.
	Warn(format string, args ...any)

	setParent(ApiObject)
	setRoot(*TreeRoot)
	setDocSources([]ApiObject)
	addAlias(*Variable)
	self() ApiObject
}

// base carries the state shared by every entity. The owner pointer is the
// concrete object embedding the base, needed so derived properties dispatch
// on the real type.
type base struct {
	owner      ApiObject
	name       string
	kind       Kind
	location   Location
	docstring  *Docstring
	parent     ApiObject
	root       *TreeRoot
	docSources []ApiObject
	aliases    []*Variable
	traitState map[string]any
}

func (b *base) init(owner ApiObject, kind Kind, name string, loc Location) {
	b.owner = owner
	b.kind = kind
	b.name = name
	b.location = loc
}

func (b *base) Name() string             { return b.name }
func (b *base) Kind() Kind               { return b.kind }
func (b *base) Location() Location       { return b.location }
func (b *base) SetLocation(l Location)   { b.location = l }
func (b *base) Docstring() *Docstring    { return b.docstring }
func (b *base) SetDocstring(d *Docstring) { b.docstring = d }
func (b *base) Parent() ApiObject        { return b.parent }
func (b *base) Root() *TreeRoot          { return b.root }
func (b *base) self() ApiObject          { return b.owner }

func (b *base) setParent(p ApiObject) { b.parent = p }
func (b *base) setRoot(r *TreeRoot)   { b.root = r }

func (b *base) DottedName() DottedName {
	var parts []string
	for ob := b.owner; ob != nil; ob = ob.Parent() {
		parts = append(parts, ob.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return DottedName{parts: parts}
}

func (b *base) FullName() string { return b.DottedName().String() }

func (b *base) EnclosingModule() *Module {
	for ob := b.owner; ob != nil; ob = ob.Parent() {
		if m, ok := ob.(*Module); ok {
			return m
		}
	}
	return nil
}

func (b *base) Scope() ApiObject {
	for ob := b.owner; ob != nil; ob = ob.Parent() {
		switch ob.(type) {
		case *Module, *Class:
			return ob
		}
	}
	return nil
}

func (b *base) ExpandName(name string) string {
	return expandName(b.owner, name, true, nil)
}

func (b *base) ExpandNameKeepingAliases(name string) string {
	return expandName(b.owner, name, false, nil)
}

func (b *base) ResolveName(name string) ApiObject {
	return resolveName(b.owner, name, true)
}

func (b *base) ResolveNameKeepingAliases(name string) ApiObject {
	return resolveName(b.owner, name, false)
}

func (b *base) DocSources() []ApiObject        { return b.docSources }
func (b *base) setDocSources(s []ApiObject)    { b.docSources = s }
func (b *base) Aliases() []*Variable           { return b.aliases }
func (b *base) addAlias(v *Variable)           { b.aliases = append(b.aliases, v) }

func (b *base) TraitState(trait string) any {
	return b.traitState[trait]
}

func (b *base) SetTraitState(trait string, state any) {
	if b.traitState == nil {
		b.traitState = make(map[string]any)
	}
	b.traitState[trait] = state
}

func (b *base) Warn(format string, args ...any) {
	if b.root != nil {
		b.root.warn(b.owner, fmt.Sprintf(format, args...))
	}
}

// Function is a function or method definition. The boolean facts are derived
// by the pipeline from decorations and parentage, never set by the builder.
type Function struct {
	base
	Args        []*Argument
	ReturnType  string
	ReturnExpr  astx.Expr
	Decorations []*Decoration
	Async       bool // from the definition syntax

	IsMethod           bool
	IsClassMethod      bool
	IsStaticMethod     bool
	IsProperty         bool
	IsPropertySetter   bool
	IsPropertyDeleter  bool
	IsAbstract         bool
}

func NewFunction(name string, loc Location) *Function {
	f := &Function{}
	f.init(f, KindFunction, name, loc)
	return f
}

// Variable is a module, class or instance level assignment.
type Variable struct {
	base
	Datatype     string
	DatatypeExpr astx.Expr
	Value        string
	ValueExpr    astx.Expr
	// InstanceHint marks assignments collected from "self.x = ..." sites.
	InstanceHint bool
	ClassHint    bool

	IsAlias            bool
	IsConstant         bool
	IsInstanceVariable bool
	IsClassVariable    bool
	IsModuleVariable   bool
}

func NewVariable(name string, loc Location) *Variable {
	v := &Variable{}
	v.init(v, KindVariable, name, loc)
	return v
}

// AliasTarget returns the dotted name this variable's value is an alias for,
// when the value is syntactically just another name.
func (v *Variable) AliasTarget() (string, bool) {
	if v.ValueExpr == nil {
		return "", false
	}
	return astx.NameOf(v.ValueExpr)
}

// Indirection records one imported name and the qualified name it is
// imported from.
type Indirection struct {
	base
	Target        string
	IsTypeGuarded bool
}

func NewIndirection(name string, loc Location, target string) *Indirection {
	i := &Indirection{Target: target}
	i.init(i, KindIndirection, name, loc)
	return i
}

// IsPrivate reports whether the object's local name marks it non-public.
func IsPrivate(ob ApiObject) bool {
	return strings.HasPrefix(ob.Name(), "_")
}
