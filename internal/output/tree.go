package output

import (
	"fmt"
	"strings"

	"docgraph/internal/model"
	"docgraph/internal/visitor"
)

// TreeGenerator renders the finished graph as an indented text tree, one
// line per object, deterministic for a given build.
type TreeGenerator struct {
	root *model.TreeRoot
}

func NewTreeGenerator(root *model.TreeRoot) *TreeGenerator {
	return &TreeGenerator{root: root}
}

func (g *TreeGenerator) Generate() (string, error) {
	var buf strings.Builder
	depth := 0

	render := visitor.Funcs[model.ApiObject]{
		OnEnter: func(ob model.ApiObject) error {
			buf.WriteString(strings.Repeat("    ", depth))
			buf.WriteString(describe(ob))
			buf.WriteByte('\n')
			depth++
			return nil
		},
		OnLeave: func(ob model.ApiObject) error {
			depth--
			return nil
		},
	}

	for _, mod := range g.root.RootModules {
		err := visitor.WalkAbout[model.ApiObject](mod, render, model.Children)
		if err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func describe(ob model.ApiObject) string {
	line := fmt.Sprintf("%s %s", ob.Kind(), ob.Name())
	switch v := ob.(type) {
	case *model.Module:
		if v.IsPackage {
			line = "package " + v.Name()
		}
		if v.IsCompiled {
			line += " (compiled)"
		}
	case *model.Class:
		if len(v.Bases) > 0 {
			line += "(" + strings.Join(v.Bases, ", ") + ")"
		}
	case *model.Function:
		line += signature(v)
		if v.Async {
			line = "async " + line
		}
		if v.IsProperty {
			line += " [property]"
		}
	case *model.Variable:
		if v.Datatype != "" {
			line += ": " + v.Datatype
		}
		if v.IsAlias {
			line += " [alias]"
		}
	case *model.Indirection:
		line += " -> " + v.Target
		if v.IsTypeGuarded {
			line += " [type-guarded]"
		}
	}
	if loc := ob.Location(); loc.Line > 0 {
		line += fmt.Sprintf("  @%d", loc.Line)
	}
	return line
}

func signature(fn *model.Function) string {
	parts := make([]string, 0, len(fn.Args))
	for _, arg := range fn.Args {
		name := arg.Name
		switch arg.Kind {
		case model.VarPositional:
			name = "*" + name
		case model.VarKeyword:
			name = "**" + name
		}
		if arg.Datatype != "" {
			name += ": " + arg.Datatype
		}
		if arg.Default != "" {
			name += "=" + arg.Default
		}
		parts = append(parts, name)
	}
	sig := "(" + strings.Join(parts, ", ") + ")"
	if fn.ReturnType != "" {
		sig += " -> " + fn.ReturnType
	}
	return sig
}
