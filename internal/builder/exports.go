package builder

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"docgraph/internal/astx"
	"docgraph/internal/model"
)

// recordExportList evaluates an assignment to `__all__`. A plain assignment
// replaces the list, an augmented one extends it. Anything that does not
// evaluate to string literals leaves the list untouched with a diagnostic.
func (c *collector) recordExportList(mod *model.Module, right *sitter.Node, augmented bool) {
	if right == nil {
		return
	}
	names, ok := c.literalNames(right)
	if !ok {
		mod.Warn("cannot statically evaluate the export list")
		return
	}
	if augmented {
		mod.DunderAll = append(mod.DunderAll, names...)
		return
	}
	if names == nil {
		names = []string{}
	}
	mod.DunderAll = names
}

// visitModuleLevelCall replays call-style export-list mutations: append,
// extend and remove on `__all__`, each argument resolved as a literal.
func (c *collector) visitModuleLevelCall(call *sitter.Node) {
	mod, ok := c.current().(*model.Module)
	if !ok {
		return
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return
	}
	object := fn.ChildByFieldName("object")
	attr := fn.ChildByFieldName("attribute")
	if object == nil || attr == nil || c.tree.Text(object) != "__all__" {
		return
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	argNodes := astx.NamedChildren(args)
	if len(argNodes) != 1 {
		return
	}

	switch c.tree.Text(attr) {
	case "append":
		if name, ok := c.literalString(argNodes[0]); ok {
			mod.DunderAll = append(mod.DunderAll, name)
		} else {
			mod.Warn("cannot statically evaluate the export list mutation")
		}
	case "extend":
		if names, ok := c.literalNames(argNodes[0]); ok {
			mod.DunderAll = append(mod.DunderAll, names...)
		} else {
			mod.Warn("cannot statically evaluate the export list mutation")
		}
	case "remove":
		name, ok := c.literalString(argNodes[0])
		if !ok {
			mod.Warn("cannot statically evaluate the export list mutation")
			return
		}
		for i, existing := range mod.DunderAll {
			if existing == name {
				mod.DunderAll = append(mod.DunderAll[:i], mod.DunderAll[i+1:]...)
				break
			}
		}
	}
}

func (c *collector) literalNames(node *sitter.Node) ([]string, bool) {
	value, err := astx.LiteralEval(c.tree.Expression(node))
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

func (c *collector) literalString(node *sitter.Node) (string, bool) {
	value, err := astx.LiteralEval(c.tree.Expression(node))
	if err != nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
