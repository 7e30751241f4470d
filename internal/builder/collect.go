package builder

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"docgraph/internal/astx"
	"docgraph/internal/model"
)

// collector walks one module's syntax tree in a single pre-order pass,
// registering every entity into the tree root as it is created. The focus
// stack tracks the container being populated; a push/pop mismatch is a
// structural violation and panics.
type collector struct {
	b      *Builder
	module *model.Module
	tree   *astx.Tree
	focus  []model.ApiObject

	// lastVariable receives a trailing string statement as its docstring
	lastVariable *model.Variable
}

func newCollector(b *Builder, mod *model.Module, tree *astx.Tree) *collector {
	return &collector{b: b, module: mod, tree: tree}
}

func (c *collector) collect() {
	root := c.tree.Root()
	if root == nil {
		return
	}
	c.push(c.module)
	c.visitBody(root, false)
	c.pop(c.module)
}

func (c *collector) push(ob model.ApiObject) { c.focus = append(c.focus, ob) }

func (c *collector) pop(ob model.ApiObject) {
	top := c.focus[len(c.focus)-1]
	if top != ob {
		panic(fmt.Sprintf("focus mismatch: leaving %q while inside %q", ob.FullName(), top.FullName()))
	}
	c.focus = c.focus[:len(c.focus)-1]
}

func (c *collector) current() model.ApiObject { return c.focus[len(c.focus)-1] }

func (c *collector) location(node *sitter.Node) model.Location {
	return model.Location{Filename: c.module.SourcePath, Line: astx.Line(node)}
}

// visitBody collects the statements of a module, class body, or guarded
// block. typeGuarded marks indirections created under an `if TYPE_CHECKING`
// condition.
func (c *collector) visitBody(body *sitter.Node, typeGuarded bool) {
	first := true
	for _, stmt := range astx.NamedChildren(body) {
		if stmt.Kind() == "comment" {
			continue
		}
		c.visitStatement(stmt, typeGuarded, first)
		first = false
	}
}

func (c *collector) visitStatement(stmt *sitter.Node, typeGuarded, first bool) {
	resetLast := true
	switch stmt.Kind() {
	case "expression_statement":
		resetLast = c.visitExpressionStatement(stmt, typeGuarded, first)
	case "decorated_definition":
		decorations := c.collectDecorations(stmt)
		if def := stmt.ChildByFieldName("definition"); def != nil {
			switch def.Kind() {
			case "class_definition":
				c.visitClass(def, decorations, typeGuarded)
			case "function_definition":
				c.visitFunction(def, decorations)
			}
		}
	case "class_definition":
		c.visitClass(stmt, nil, typeGuarded)
	case "function_definition":
		c.visitFunction(stmt, nil)
	case "import_statement":
		c.visitImport(stmt, typeGuarded)
	case "import_from_statement":
		c.visitFromImport(stmt, typeGuarded)
	case "future_import_statement":
		// __future__ flags do not bind usable names
	case "if_statement":
		c.visitIf(stmt, typeGuarded)
	case "try_statement":
		for _, child := range astx.NamedChildren(stmt) {
			switch child.Kind() {
			case "block":
				c.visitBody(child, typeGuarded)
			case "except_clause", "except_group_clause", "else_clause", "finally_clause":
				if block := astx.FindChild(child, "block"); block != nil {
					c.visitBody(block, typeGuarded)
				}
			}
		}
	}
	if resetLast {
		c.lastVariable = nil
	}
}

// visitExpressionStatement handles docstrings, assignments, and the
// call-style export-list mutations. Returns false when the next statement
// may still attach a docstring to the variable assigned here.
func (c *collector) visitExpressionStatement(stmt *sitter.Node, typeGuarded, first bool) bool {
	children := astx.NamedChildren(stmt)
	if len(children) == 1 {
		switch expr := children[0]; expr.Kind() {
		case "string", "concatenated_string":
			c.attachDocstring(expr, first)
			return true
		case "assignment", "augmented_assignment":
			c.visitAssignment(expr, typeGuarded)
			return false
		case "call":
			c.visitModuleLevelCall(expr)
			return true
		}
	}
	for _, expr := range children {
		if expr.Kind() == "assignment" || expr.Kind() == "augmented_assignment" {
			c.visitAssignment(expr, typeGuarded)
		}
	}
	return true
}

func (c *collector) attachDocstring(str *sitter.Node, first bool) {
	doc := &model.Docstring{
		Content:  c.tree.StringValue(str),
		Location: c.location(str),
	}
	if first {
		c.current().SetDocstring(doc)
		return
	}
	// a string statement right after an assignment documents that variable
	if c.lastVariable != nil && c.lastVariable.Docstring() == nil {
		c.lastVariable.SetDocstring(doc)
	}
}

func (c *collector) visitIf(stmt *sitter.Node, typeGuarded bool) {
	condition := stmt.ChildByFieldName("condition")
	guarded := typeGuarded
	if condition != nil && strings.Contains(c.tree.Text(condition), "TYPE_CHECKING") {
		guarded = true
	}
	if consequence := stmt.ChildByFieldName("consequence"); consequence != nil {
		c.visitBody(consequence, guarded)
	}
	for _, alt := range astx.NamedChildren(stmt) {
		switch alt.Kind() {
		case "elif_clause":
			if block := alt.ChildByFieldName("consequence"); block != nil {
				c.visitBody(block, typeGuarded)
			}
		case "else_clause":
			if block := astx.FindChild(alt, "block"); block != nil {
				c.visitBody(block, typeGuarded)
			}
		}
	}
}

func (c *collector) collectDecorations(decorated *sitter.Node) []*model.Decoration {
	var out []*model.Decoration
	for _, child := range astx.NamedChildren(decorated) {
		if child.Kind() != "decorator" {
			continue
		}
		expr := child.NamedChild(0)
		if expr == nil {
			continue
		}
		deco := &model.Decoration{
			Location: c.location(child),
			Expr:     c.tree.Expression(expr),
		}
		nameNode := expr
		if expr.Kind() == "call" {
			nameNode = expr.ChildByFieldName("function")
			if args := expr.ChildByFieldName("arguments"); args != nil {
				for _, arg := range astx.NamedChildren(args) {
					deco.Args = append(deco.Args, c.tree.Text(arg))
				}
			}
		}
		if nameNode != nil {
			if parts, ok := c.tree.DottedNameOf(nameNode); ok {
				deco.Name = strings.Join(parts, ".")
			} else {
				deco.Name = c.tree.Text(nameNode)
			}
			deco.NameExpr = c.tree.Expression(nameNode)
		}
		out = append(out, deco)
	}
	return out
}

func (c *collector) visitClass(node *sitter.Node, decorations []*model.Decoration, typeGuarded bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	cls := c.b.Factory.Class(c.tree.Text(nameNode), c.location(node))
	cls.Decorations = decorations

	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		for _, arg := range astx.NamedChildren(superclasses) {
			if arg.Kind() == "keyword_argument" {
				name := arg.ChildByFieldName("name")
				value := arg.ChildByFieldName("value")
				if name != nil && c.tree.Text(name) == "metaclass" && value != nil {
					cls.Metaclass = c.tree.Text(value)
				}
				continue
			}
			cls.Bases = append(cls.Bases, c.tree.Text(arg))
			cls.BasesExpr = append(cls.BasesExpr, c.tree.Expression(arg))
		}
	}

	c.b.Root.Add(cls, c.current())
	if body := node.ChildByFieldName("body"); body != nil {
		c.push(cls)
		c.visitBody(body, typeGuarded)
		c.pop(cls)
	}
}

func (c *collector) visitFunction(node *sitter.Node, decorations []*model.Decoration) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	fn := c.b.Factory.Function(c.tree.Text(nameNode), c.location(node))
	fn.Decorations = decorations
	fn.Async = astx.HasKeyword(node, "async", c.tree.Source)

	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Args = c.parseParameters(params)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnType = c.tree.Text(ret)
		fn.ReturnExpr = c.tree.Expression(ret)
	}

	owner := c.current()
	c.b.Root.Add(fn, owner)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	if first := firstStatementString(body); first != nil {
		fn.SetDocstring(&model.Docstring{
			Content:  c.tree.StringValue(first),
			Location: c.location(first),
		})
	}
	if cls, ok := owner.(*model.Class); ok && boundSelfName(fn) != "" {
		c.collectInstanceVariables(cls, boundSelfName(fn), body)
	}
}

func (c *collector) parseParameters(params *sitter.Node) []*model.Argument {
	var args []*model.Argument
	kind := model.Positional
	for _, child := range astx.NamedChildren(params) {
		switch child.Kind() {
		case "positional_separator":
			for _, arg := range args {
				if arg.Kind == model.Positional {
					arg.Kind = model.PositionalOnly
				}
			}
		case "keyword_separator":
			kind = model.KeywordOnly
		case "identifier":
			args = append(args, &model.Argument{
				Name:     c.tree.Text(child),
				Kind:     kind,
				Location: c.location(child),
			})
		case "typed_parameter":
			args = append(args, c.typedParameter(child, &kind))
		case "default_parameter", "typed_default_parameter":
			arg := &model.Argument{Kind: kind, Location: c.location(child)}
			if name := child.ChildByFieldName("name"); name != nil {
				arg.Name = c.tree.Text(name)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				arg.Datatype = c.tree.Text(typ)
				arg.DatatypeExpr = c.tree.Expression(typ)
			}
			if value := child.ChildByFieldName("value"); value != nil {
				arg.Default = c.tree.Text(value)
				arg.DefaultExpr = c.tree.Expression(value)
			}
			args = append(args, arg)
		case "list_splat_pattern":
			args = append(args, c.splatParameter(child, model.VarPositional))
			kind = model.KeywordOnly
		case "dictionary_splat_pattern":
			args = append(args, c.splatParameter(child, model.VarKeyword))
		}
	}
	return args
}

func (c *collector) typedParameter(node *sitter.Node, kind *model.ArgKind) *model.Argument {
	arg := &model.Argument{Kind: *kind, Location: c.location(node)}
	if inner := node.NamedChild(0); inner != nil {
		switch inner.Kind() {
		case "identifier":
			arg.Name = c.tree.Text(inner)
		case "list_splat_pattern":
			arg.Kind = model.VarPositional
			*kind = model.KeywordOnly
			if name := inner.NamedChild(0); name != nil {
				arg.Name = c.tree.Text(name)
			}
		case "dictionary_splat_pattern":
			arg.Kind = model.VarKeyword
			if name := inner.NamedChild(0); name != nil {
				arg.Name = c.tree.Text(name)
			}
		}
	}
	if typ := node.ChildByFieldName("type"); typ != nil {
		arg.Datatype = c.tree.Text(typ)
		arg.DatatypeExpr = c.tree.Expression(typ)
	}
	return arg
}

func (c *collector) splatParameter(node *sitter.Node, kind model.ArgKind) *model.Argument {
	arg := &model.Argument{Kind: kind, Location: c.location(node)}
	if name := node.NamedChild(0); name != nil {
		arg.Name = c.tree.Text(name)
	}
	return arg
}

// boundSelfName returns the receiver parameter name of a plausibly bound
// method, empty for static-looking signatures.
func boundSelfName(fn *model.Function) string {
	for _, deco := range fn.Decorations {
		switch deco.Name {
		case "staticmethod", "classmethod":
			return ""
		}
	}
	if len(fn.Args) == 0 {
		return ""
	}
	first := fn.Args[0]
	if first.Kind != model.Positional && first.Kind != model.PositionalOnly {
		return ""
	}
	return first.Name
}

// collectInstanceVariables scans a method body for `self.x = ...` sites and
// records each as an instance variable of the class, first writer wins.
func (c *collector) collectInstanceVariables(cls *model.Class, self string, body *sitter.Node) {
	var scan func(node *sitter.Node)
	scan = func(node *sitter.Node) {
		if node.Kind() == "assignment" || node.Kind() == "augmented_assignment" {
			c.collectSelfAssignment(cls, self, node)
		}
		// nested defs bind a different receiver
		if node.Kind() == "function_definition" || node.Kind() == "class_definition" {
			return
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			scan(node.NamedChild(i))
		}
	}
	scan(body)
}

func (c *collector) collectSelfAssignment(cls *model.Class, self string, assign *sitter.Node) {
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "attribute" {
		return
	}
	object := left.ChildByFieldName("object")
	attr := left.ChildByFieldName("attribute")
	if object == nil || attr == nil || object.Kind() != "identifier" || c.tree.Text(object) != self {
		return
	}
	name := c.tree.Text(attr)
	if len(cls.MembersNamed(name)) > 0 {
		return
	}

	v := c.b.Factory.Variable(name, c.location(assign))
	v.InstanceHint = true
	if typ := assign.ChildByFieldName("type"); typ != nil {
		v.Datatype = c.tree.Text(typ)
		v.DatatypeExpr = c.tree.Expression(typ)
	}
	if right := assign.ChildByFieldName("right"); right != nil {
		v.Value = c.tree.Text(right)
		v.ValueExpr = c.tree.Expression(right)
	}
	c.b.Root.Add(v, cls)
}

func (c *collector) visitAssignment(assign *sitter.Node, typeGuarded bool) {
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil {
		return
	}
	augmented := assign.Kind() == "augmented_assignment"

	for _, target := range assignmentTargets(left) {
		name := c.tree.Text(target)

		if name == "__all__" {
			if mod, ok := c.current().(*model.Module); ok {
				c.recordExportList(mod, right, augmented)
			}
		}
		if augmented {
			continue
		}

		v := c.b.Factory.Variable(name, c.location(assign))
		if typ := assign.ChildByFieldName("type"); typ != nil {
			v.Datatype = c.tree.Text(typ)
			v.DatatypeExpr = c.tree.Expression(typ)
		}
		if right != nil {
			v.Value = c.tree.Text(right)
			v.ValueExpr = c.tree.Expression(right)
		}
		c.b.Root.Add(v, c.current())
		c.lastVariable = v
	}
}

func assignmentTargets(left *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	switch left.Kind() {
	case "identifier":
		out = append(out, left)
	case "pattern_list", "tuple_pattern", "list_pattern":
		for _, child := range astx.NamedChildren(left) {
			if child.Kind() == "identifier" {
				out = append(out, child)
			}
		}
	}
	return out
}

func firstStatementString(body *sitter.Node) *sitter.Node {
	for _, stmt := range astx.NamedChildren(body) {
		if stmt.Kind() == "comment" {
			continue
		}
		if stmt.Kind() != "expression_statement" {
			return nil
		}
		expr := stmt.NamedChild(0)
		if expr != nil && (expr.Kind() == "string" || expr.Kind() == "concatenated_string") {
			return expr
		}
		return nil
	}
	return nil
}
