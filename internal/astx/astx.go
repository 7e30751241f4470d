// Package astx wraps the tree-sitter Python grammar behind the few
// syntax-level operations the builder and pipeline need: parsing, node text
// and location helpers, a closed expression micro-grammar with a
// side-effect-free literal evaluator, and best-effort public-name inference
// for cyclic wildcard imports.
package astx

import (
	"errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

var pythonLanguage = sitter.NewLanguage(tree_sitter_python.Language())

// Tree is one parsed source unit. It retains the underlying tree-sitter
// tree and the source bytes so that later passes can run syntax-level
// fallbacks; Close releases the parser memory.
type Tree struct {
	Filename string
	Source   []byte
	tree     *sitter.Tree
}

// Parse parses Python source. The filename is only recorded for locations.
func Parse(src []byte, filename string) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(pythonLanguage); err != nil {
		return nil, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, errors.New("parse failed")
	}
	return &Tree{Filename: filename, Source: src, tree: tree}, nil
}

// Root returns the module node.
func (t *Tree) Root() *sitter.Node {
	if t == nil || t.tree == nil {
		return nil
	}
	return t.tree.RootNode()
}

func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Text returns the source text covered by a node.
func (t *Tree) Text(node *sitter.Node) string {
	return string(t.Source[node.StartByte():node.EndByte()])
}

// Line returns the 1-based start line of a node.
func Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// DottedNameOf extracts the identifier chain of an identifier, dotted_name
// or attribute node. Returns false for any other expression shape.
func (t *Tree) DottedNameOf(node *sitter.Node) ([]string, bool) {
	switch node.Kind() {
	case "identifier":
		return []string{t.Text(node)}, true
	case "dotted_name":
		var parts []string
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() != "identifier" {
				return nil, false
			}
			parts = append(parts, t.Text(child))
		}
		return parts, len(parts) > 0
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if object == nil || attr == nil {
			return nil, false
		}
		prefix, ok := t.DottedNameOf(object)
		if !ok {
			return nil, false
		}
		return append(prefix, t.Text(attr)), true
	case "parenthesized_expression":
		if inner := node.NamedChild(0); inner != nil {
			return t.DottedNameOf(inner)
		}
	}
	return nil, false
}

// NamedChildren returns the named children of a node.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	count := node.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}

// FindChild returns the first named child of the given kind, or nil.
func FindChild(node *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// HasKeyword reports whether the node has an anonymous child with the given
// token text, e.g. the "async" marker of a function definition.
func HasKeyword(node *sitter.Node, keyword string, src []byte) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !child.IsNamed() && string(src[child.StartByte():child.EndByte()]) == keyword {
			return true
		}
	}
	return false
}
