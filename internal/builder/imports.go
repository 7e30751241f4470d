package builder

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"docgraph/internal/astx"
	"docgraph/internal/model"
)

// visitImport handles plain import statements. Only the aliased form binds a
// usable local name worth modeling; `import a.b` binds the top-level package
// which resolution already finds through the root namespace.
func (c *collector) visitImport(stmt *sitter.Node, typeGuarded bool) {
	for _, child := range astx.NamedChildren(stmt) {
		if child.Kind() != "aliased_import" {
			continue
		}
		name := child.ChildByFieldName("name")
		alias := child.ChildByFieldName("alias")
		if name == nil || alias == nil {
			continue
		}
		ind := c.b.Factory.Indirection(c.tree.Text(alias), c.location(child), c.tree.Text(name))
		ind.IsTypeGuarded = typeGuarded
		c.b.Root.Add(ind, c.current())
	}
}

func (c *collector) visitFromImport(stmt *sitter.Node, typeGuarded bool) {
	base, ok := c.fromImportBase(stmt)
	if !ok {
		return
	}

	moduleName := stmt.ChildByFieldName("module_name")
	for _, child := range astx.NamedChildren(stmt) {
		if moduleName != nil && child.Id() == moduleName.Id() {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			c.expandWildcard(base, typeGuarded, child)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			c.addIndirection(c.tree.Text(alias), base+"."+c.tree.Text(name), typeGuarded, child)
		case "dotted_name", "identifier":
			name := c.tree.Text(child)
			if strings.Contains(name, ".") {
				continue
			}
			c.addIndirection(name, base+"."+name, typeGuarded, child)
		}
	}
}

func (c *collector) addIndirection(name, target string, typeGuarded bool, node *sitter.Node) {
	ind := c.b.Factory.Indirection(name, c.location(node), target)
	ind.IsTypeGuarded = typeGuarded
	c.b.Root.Add(ind, c.current())
}

// fromImportBase computes the qualified module a from-import pulls names out
// of, climbing the package chain for relative forms. The module itself
// counts as the first level when it is a package; climbing past the top of
// the loaded tree emits one diagnostic for the whole statement.
func (c *collector) fromImportBase(stmt *sitter.Node) (string, bool) {
	moduleName := stmt.ChildByFieldName("module_name")
	if moduleName == nil {
		return "", false
	}

	if moduleName.Kind() != "relative_import" {
		return c.tree.Text(moduleName), true
	}

	level := 0
	suffix := ""
	for _, part := range astx.NamedChildren(moduleName) {
		switch part.Kind() {
		case "import_prefix":
			level = strings.Count(c.tree.Text(part), ".")
		case "dotted_name", "identifier":
			suffix = c.tree.Text(part)
		}
	}

	ctx := c.module
	if !ctx.IsPackage {
		ctx = parentModule(ctx)
	}
	for i := 1; i < level && ctx != nil; i++ {
		ctx = parentModule(ctx)
	}
	if ctx == nil {
		c.module.Warn("relative import climbs past the top of the loaded tree")
		return "", false
	}

	base := ctx.FullName()
	if suffix != "" {
		base += "." + suffix
	}
	return base, true
}

func parentModule(mod *model.Module) *model.Module {
	parent, _ := mod.Parent().(*model.Module)
	return parent
}

// expandWildcard materializes `from base import *` as one indirection per
// exported name, asking the builder for the target's exports and recursing
// into its build when needed.
func (c *collector) expandWildcard(base string, typeGuarded bool, node *sitter.Node) {
	names := c.b.exportsOf(base, c.module)
	if names == nil {
		c.b.Root.ReportDebug(c.module, "wildcard import of %s binds no known names", base)
		return
	}
	for _, name := range names {
		c.addIndirection(name, base+"."+name, typeGuarded, node)
	}
}
