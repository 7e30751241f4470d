package model

import "strings"

// indirectionChaseLimit bounds alias/indirection following. Chains longer
// than this settle on the first indirection's own qualified name, which is
// the expected degrade for legal self-referential re-export idioms.
const indirectionChaseLimit = 5

func resolveName(ctx ApiObject, name string, follow bool) ApiObject {
	if ctx == nil || ctx.Root() == nil {
		return nil
	}
	return ctx.Root().AllObjects.Get(expandName(ctx, name, follow, nil))
}

// expandName resolves a possibly dotted name the way the source language's
// own lookup rules would, from the vantage point of ctx. Each resolved part
// becomes the context for the next one; the first unresolvable part degrades
// to naive concatenation and stops the descent.
func expandName(ctx ApiObject, name string, follow bool, visited []ApiObject) string {
	parts := strings.Split(name, ".")
	obj := ctx
	full := ""
	for i, part := range parts {
		next, ok := localNameToFullName(obj, part, follow, visited)
		if !ok {
			rest := strings.Join(parts[i:], ".")
			if obj.FullName() == "" {
				return rest
			}
			return obj.FullName() + "." + rest
		}
		full = next
		if i == len(parts)-1 {
			break
		}
		nextObj := obj.Root().AllObjects.Get(full)
		if nextObj == nil {
			// the expanded prefix is not ours to descend into, keep the
			// remaining parts verbatim
			return full + "." + strings.Join(parts[i+1:], ".")
		}
		obj = nextObj
	}
	return full
}

// localNameToFullName resolves one identifier against ctx's local namespace:
// own members first, then members inherited along the linearization when the
// scope is a class, then the enclosing scope chain, and finally the root
// namespace of top-level modules.
func localNameToFullName(ctx ApiObject, part string, follow bool, visited []ApiObject) (string, bool) {
	scope := ctx
	if _, ok := scope.(HasMembers); !ok {
		scope = ctx.Scope()
	}
	for scope != nil {
		owner := scope.(HasMembers)
		if member := owner.GetMember(part); member != nil {
			return memberFullName(member, follow, visited)
		}
		if cls, ok := scope.(*Class); ok {
			for _, ancestor := range cls.Linearization {
				if ancestor == cls {
					continue
				}
				if member := ancestor.GetMember(part); member != nil {
					return memberFullName(member, follow, visited)
				}
			}
		}
		parent := scope.Parent()
		if parent == nil {
			break
		}
		scope = parent.Scope()
	}
	// top-level modules are visible from every scope
	if root := ctx.Root(); root != nil {
		if ob := root.AllObjects.Get(part); ob != nil && ob.Parent() == nil {
			return part, true
		}
	}
	return "", false
}

func memberFullName(member ApiObject, follow bool, visited []ApiObject) (string, bool) {
	if !follow {
		return member.FullName(), true
	}
	switch m := member.(type) {
	case *Indirection:
		return chase(m, m.Target, visited)
	case *Variable:
		if target, ok := m.AliasTarget(); ok {
			return chase(m, target, visited)
		}
	}
	return member.FullName(), true
}

// chase re-expands an indirection's (or alias variable's) target from its
// own parent context, guarding against the two ways legal re-export idioms
// recurse: over-long chains trip a fixed ceiling and settle on the first
// indirection's own name, and a chain that comes back to its starting
// indirection retries once from the parent's parent scope, provided that
// outer scope still belongs to the same module.
func chase(ind ApiObject, target string, visited []ApiObject) (string, bool) {
	if n := occurrences(visited, ind); n > 0 {
		if ind != visited[0] || n > 1 {
			return "", false
		}
		var outer ApiObject
		if p := ind.Parent(); p != nil {
			outer = p.Parent()
		}
		if outer == nil || outer.EnclosingModule() != ind.EnclosingModule() {
			return "", false
		}
		visited = append(visited, ind)
		return expandName(outer, target, true, visited), true
	}

	if len(visited) >= indirectionChaseLimit {
		first := visited[0]
		if root := first.Root(); root != nil {
			root.ReportDebug(first, "indirection chain exceeds %d hops while expanding %q, keeping %q",
				indirectionChaseLimit, target, first.FullName())
		}
		return first.FullName(), true
	}

	parent := ind.Parent()
	if parent == nil {
		return "", false
	}
	visited = append(visited, ind)
	return expandName(parent, target, true, visited), true
}

func occurrences(visited []ApiObject, ob ApiObject) int {
	n := 0
	for _, v := range visited {
		if v == ob {
			n++
		}
	}
	return n
}
