package output

import (
	"fmt"
	"sort"
	"strings"

	"docgraph/internal/model"
)

// DOTGenerator renders the class inheritance graph in Graphviz DOT format.
// Edges point from subclass to base. Bases that did not resolve to a class
// in the analyzed tree render as dashed external nodes.
type DOTGenerator struct {
	root *model.TreeRoot
}

func NewDOTGenerator(root *model.TreeRoot) *DOTGenerator {
	return &DOTGenerator{root: root}
}

func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph inheritance {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.0;\n")
	buf.WriteString("  nodesep=0.5;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	classes := d.collectClasses()
	external := make(map[string]bool)

	for _, cls := range classes {
		attrs := ""
		if cls.IsExceptionClass {
			attrs = " [color=\"#CC0000\", fontcolor=\"#CC0000\"]"
		}
		fmt.Fprintf(&buf, "  %q%s;\n", cls.FullName(), attrs)
	}
	buf.WriteByte('\n')

	for _, cls := range classes {
		from := cls.FullName()
		for _, base := range cls.ResolvedBases {
			if base.Resolved() {
				fmt.Fprintf(&buf, "  %q -> %q;\n", from, base.Class.FullName())
				continue
			}
			external[base.Name] = true
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", from, base.Name)
		}
	}

	if len(external) > 0 {
		buf.WriteByte('\n')
		names := make([]string, 0, len(external))
		for name := range external {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&buf, "  %q [style=dashed, color=gray50, fontcolor=gray50];\n", name)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (d *DOTGenerator) collectClasses() []*model.Class {
	var out []*model.Class
	for _, mod := range d.root.RootModules {
		model.Walk(mod, func(ob model.ApiObject) {
			if cls, ok := ob.(*model.Class); ok {
				out = append(out, cls)
			}
		})
	}
	return out
}
