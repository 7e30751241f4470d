package output

import (
	"encoding/json"

	"docgraph/internal/model"
)

// JSONGenerator serializes the finished graph, member lists nested, derived
// facts included.
type JSONGenerator struct {
	root *model.TreeRoot
}

func NewJSONGenerator(root *model.TreeRoot) *JSONGenerator {
	return &JSONGenerator{root: root}
}

type jsonObject struct {
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
	Kind      string `json:"kind"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Docstring string `json:"docstring,omitempty"`

	// module facts
	IsPackage bool     `json:"is_package,omitempty"`
	Exports   []string `json:"exports,omitempty"`

	// class facts
	Bases         []string `json:"bases,omitempty"`
	Linearization []string `json:"linearization,omitempty"`
	Subclasses    []string `json:"subclasses,omitempty"`
	IsException   bool     `json:"is_exception,omitempty"`

	// function facts
	Signature string `json:"signature,omitempty"`
	Async     bool   `json:"async,omitempty"`

	// variable and indirection facts
	Datatype string `json:"datatype,omitempty"`
	Value    string `json:"value,omitempty"`
	Target   string `json:"target,omitempty"`

	Members []jsonObject `json:"members,omitempty"`
}

type jsonDiagnostic struct {
	Object   string `json:"object,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type jsonDocument struct {
	Modules     []jsonObject     `json:"modules"`
	Diagnostics []jsonDiagnostic `json:"diagnostics,omitempty"`
}

func (g *JSONGenerator) Generate() (string, error) {
	doc := jsonDocument{}
	for _, mod := range g.root.RootModules {
		doc.Modules = append(doc.Modules, toJSON(mod))
	}
	for _, d := range g.root.Diagnostics() {
		doc.Diagnostics = append(doc.Diagnostics, jsonDiagnostic{
			Object:   d.Object,
			File:     d.Location.Filename,
			Line:     d.Location.Line,
			Severity: d.Severity.String(),
			Message:  d.Message,
		})
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func toJSON(ob model.ApiObject) jsonObject {
	out := jsonObject{
		Name:     ob.Name(),
		FullName: ob.FullName(),
		Kind:     string(ob.Kind()),
		File:     ob.Location().Filename,
		Line:     ob.Location().Line,
	}
	if doc := ob.Docstring(); doc != nil {
		out.Docstring = doc.Content
	}

	switch v := ob.(type) {
	case *model.Module:
		out.IsPackage = v.IsPackage
		out.Exports = v.ExportedNames()
	case *model.Class:
		out.Bases = v.Bases
		for _, cls := range v.Linearization {
			out.Linearization = append(out.Linearization, cls.FullName())
		}
		for _, cls := range v.Subclasses {
			out.Subclasses = append(out.Subclasses, cls.FullName())
		}
		out.IsException = v.IsExceptionClass
	case *model.Function:
		out.Signature = signature(v)
		out.Async = v.Async
	case *model.Variable:
		out.Datatype = v.Datatype
		out.Value = v.Value
	case *model.Indirection:
		out.Target = v.Target
	}

	for _, child := range model.Children(ob) {
		out.Members = append(out.Members, toJSON(child))
	}
	return out
}
