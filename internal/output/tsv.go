package output

import (
	"fmt"
	"strings"

	"docgraph/internal/model"
)

// TSVGenerator emits one tab-separated row per object, suitable for piping
// into cut, sort or a spreadsheet.
type TSVGenerator struct {
	root *model.TreeRoot
}

func NewTSVGenerator(root *model.TreeRoot) *TSVGenerator {
	return &TSVGenerator{root: root}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("FullName\tKind\tFile\tLine\tParent\n")
	for _, mod := range t.root.RootModules {
		model.Walk(mod, func(ob model.ApiObject) {
			parent := ""
			if p := ob.Parent(); p != nil {
				parent = p.FullName()
			}
			loc := ob.Location()
			buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%s\n",
				ob.FullName(), ob.Kind(), loc.Filename, loc.Line, parent))
		})
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateDiagnostics() (string, error) {
	var buf strings.Builder

	buf.WriteString("Severity\tObject\tFile\tLine\tMessage\n")
	for _, d := range t.root.Diagnostics() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%s\n",
			d.Severity.String(), d.Object, d.Location.Filename, d.Location.Line, d.Message))
	}

	return buf.String(), nil
}
