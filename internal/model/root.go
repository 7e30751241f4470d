package model

import (
	"fmt"
	"log/slog"
)

// Severity classifies accumulated diagnostics.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// Diagnostic is one recoverable resolution shortfall, tied to the offending
// object's location. Diagnostics never abort a run.
type Diagnostic struct {
	Object   string
	Location Location
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Object, d.Message)
}

// TreeRoot holds the state of one analysis run: the root modules and the
// duplicate-safe registry of every reachable object. It is created once per
// run, written by the build and process phases and only read during name
// resolution.
type TreeRoot struct {
	RootModules []*Module
	AllObjects  *Registry

	diagnostics []Diagnostic
}

func NewTreeRoot() *TreeRoot {
	return &TreeRoot{AllObjects: NewRegistry()}
}

// Add attaches a newly created object under parent and registers it (and
// any members it already carries) under its qualified name. A nil parent
// adds a root module. Adding a child under a non-container is a structural
// violation and panics.
func (r *TreeRoot) Add(ob ApiObject, parent ApiObject) {
	if parent != nil {
		owner, ok := parent.(HasMembers)
		if !ok {
			panic(fmt.Sprintf("cannot add %q inside %q: not a namespace", ob.FullName(), parent.FullName()))
		}
		if !containsMember(owner.Members(), ob) {
			owner.appendMember(ob)
		}
		ob.setParent(parent)
	} else {
		mod, ok := ob.(*Module)
		if !ok {
			panic(fmt.Sprintf("cannot add %q as a root: not a module", ob.FullName()))
		}
		if !containsModule(r.RootModules, mod) {
			r.RootModules = append(r.RootModules, mod)
		}
	}

	// When the name is already taken by a sibling, the object defined on
	// the later line wins the registry slot.
	shadow := true
	if parent != nil {
		if dup := parent.(HasMembers).GetMember(ob.Name()); dup != nil && dup != ob {
			shadow = dup.Location().Line <= ob.Location().Line
		}
	}
	r.AllObjects.Put(ob.FullName(), ob, shadow)
	ob.setRoot(r)

	if owner, ok := ob.(HasMembers); ok {
		for _, child := range owner.Members() {
			r.Add(child, ob)
		}
	}
}

// Remove detaches ob from its parent's member list (or the root-module
// list) and unregisters it and all its members. Member list and registry
// always change together.
func (r *TreeRoot) Remove(ob ApiObject) {
	if parent := ob.Parent(); parent != nil {
		parent.(HasMembers).removeMember(ob)
	} else if mod, ok := ob.(*Module); ok {
		for i, m := range r.RootModules {
			if m == mod {
				r.RootModules = append(r.RootModules[:i], r.RootModules[i+1:]...)
				break
			}
		}
	}
	r.unregister(ob)
}

func (r *TreeRoot) unregister(ob ApiObject) {
	r.AllObjects.Remove(ob.FullName(), ob)
	if owner, ok := ob.(HasMembers); ok {
		for _, child := range owner.Members() {
			r.unregister(child)
		}
	}
}

// Diagnostics returns the accumulated recoverable shortfalls, in emission
// order.
func (r *TreeRoot) Diagnostics() []Diagnostic { return r.diagnostics }

func (r *TreeRoot) warn(ob ApiObject, msg string) {
	r.report(ob, SeverityWarning, msg)
}

func (r *TreeRoot) report(ob ApiObject, sev Severity, msg string) {
	d := Diagnostic{Severity: sev, Message: msg}
	if ob != nil {
		d.Object = ob.FullName()
		d.Location = ob.Location()
	}
	r.diagnostics = append(r.diagnostics, d)
	switch sev {
	case SeverityWarning:
		slog.Warn(msg, "object", d.Object, "location", d.Location.String())
	case SeverityInfo:
		slog.Info(msg, "object", d.Object, "location", d.Location.String())
	default:
		slog.Debug(msg, "object", d.Object, "location", d.Location.String())
	}
}

// ReportDebug records a low-severity diagnostic, used for expected degrades
// like recursion-ceiling trips.
func (r *TreeRoot) ReportDebug(ob ApiObject, format string, args ...any) {
	r.report(ob, SeverityDebug, fmt.Sprintf(format, args...))
}

// ReportWarning records a warning diagnostic for ob.
func (r *TreeRoot) ReportWarning(ob ApiObject, format string, args ...any) {
	r.report(ob, SeverityWarning, fmt.Sprintf(format, args...))
}

func containsMember(members []ApiObject, ob ApiObject) bool {
	for _, m := range members {
		if m == ob {
			return true
		}
	}
	return false
}

func containsModule(mods []*Module, mod *Module) bool {
	for _, m := range mods {
		if m == mod {
			return true
		}
	}
	return false
}
