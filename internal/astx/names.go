package astx

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// WildcardNames infers the names a `from mod import *` would bind, working
// purely from the syntax tree. It is the fallback used when the exporting
// module cannot be fully processed first, typically in import cycles. An
// `__all__` list literal wins; otherwise every public name bound at module
// level counts.
func WildcardNames(t *Tree) []string {
	root := t.Root()
	if root == nil {
		return nil
	}

	if all, ok := dunderAllLiteral(t, root); ok {
		return all
	}

	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name == "" || name[0] == '_' || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, stmt := range NamedChildren(root) {
		if stmt.Kind() == "decorated_definition" {
			if def := stmt.ChildByFieldName("definition"); def != nil {
				stmt = def
			}
		}
		switch stmt.Kind() {
		case "class_definition", "function_definition":
			if name := stmt.ChildByFieldName("name"); name != nil {
				add(t.Text(name))
			}
		case "expression_statement":
			for _, expr := range NamedChildren(stmt) {
				if expr.Kind() == "assignment" || expr.Kind() == "augmented_assignment" {
					for _, target := range assignTargets(expr) {
						if target.Kind() == "identifier" {
							add(t.Text(target))
						}
					}
				}
			}
		case "import_statement":
			for _, child := range NamedChildren(stmt) {
				switch child.Kind() {
				case "aliased_import":
					if alias := child.ChildByFieldName("alias"); alias != nil {
						add(t.Text(alias))
					}
				case "dotted_name":
					if head := child.NamedChild(0); head != nil {
						add(t.Text(head))
					}
				}
			}
		case "import_from_statement":
			for _, child := range importedNames(stmt) {
				add(t.Text(child))
			}
		}
	}
	return names
}

// assignTargets collects the left-hand side nodes of an assignment,
// unpacking tuple and list patterns one level deep.
func assignTargets(assign *sitter.Node) []*sitter.Node {
	left := assign.ChildByFieldName("left")
	if left == nil {
		return nil
	}
	switch left.Kind() {
	case "pattern_list", "tuple_pattern", "list_pattern":
		return NamedChildren(left)
	}
	return []*sitter.Node{left}
}

// importedNames returns the bound-name nodes of a from-import: the alias
// when one is given, the imported name otherwise. Wildcard imports yield
// nothing.
func importedNames(stmt *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	module := stmt.ChildByFieldName("module_name")
	for _, child := range NamedChildren(stmt) {
		if module != nil && child.Id() == module.Id() {
			continue
		}
		switch child.Kind() {
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				out = append(out, alias)
			}
		case "dotted_name":
			if child.NamedChildCount() == 1 {
				out = append(out, child.NamedChild(0))
			}
		case "identifier":
			out = append(out, child)
		}
	}
	return out
}

// dunderAllLiteral looks for a top-level `__all__ = [...]` list or tuple of
// string literals and returns its members.
func dunderAllLiteral(t *Tree, root *sitter.Node) ([]string, bool) {
	for _, stmt := range NamedChildren(root) {
		if stmt.Kind() != "expression_statement" {
			continue
		}
		for _, expr := range NamedChildren(stmt) {
			if expr.Kind() != "assignment" {
				continue
			}
			left := expr.ChildByFieldName("left")
			right := expr.ChildByFieldName("right")
			if left == nil || right == nil || left.Kind() != "identifier" || t.Text(left) != "__all__" {
				continue
			}
			value, err := LiteralEval(t.Expression(right))
			if err != nil {
				return nil, false
			}
			items, ok := value.([]any)
			if !ok {
				return nil, false
			}
			var names []string
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return nil, false
				}
				names = append(names, s)
			}
			return names, true
		}
	}
	return nil, false
}
