package astx

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Expr is the closed expression micro-grammar. Anything the grammar does
// not model is preserved verbatim as Raw so its source text is never lost.
type Expr interface{ exprNode() }

type Name struct{ ID string }

type Attr struct {
	Value Expr
	Name  string
}

type Str struct{ Value string }

type Int struct{ Value int64 }

type Float struct{ Value float64 }

type Bool struct{ Value bool }

type None struct{}

type List struct{ Elts []Expr }

type Tuple struct{ Elts []Expr }

type Set struct{ Elts []Expr }

type Dict struct {
	Keys   []Expr
	Values []Expr
}

type Keyword struct {
	Name  string
	Value Expr
}

type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

type BinOp struct {
	Op          string
	Left, Right Expr
}

type UnaryOp struct {
	Op      string
	Operand Expr
}

type Subscript struct {
	Value Expr
	Index Expr
}

type Raw struct{ Text string }

func (Name) exprNode()      {}
func (Attr) exprNode()      {}
func (Str) exprNode()       {}
func (Int) exprNode()       {}
func (Float) exprNode()     {}
func (Bool) exprNode()      {}
func (None) exprNode()      {}
func (List) exprNode()      {}
func (Tuple) exprNode()     {}
func (Set) exprNode()       {}
func (Dict) exprNode()      {}
func (Call) exprNode()      {}
func (BinOp) exprNode()     {}
func (UnaryOp) exprNode()   {}
func (Subscript) exprNode() {}
func (Raw) exprNode()       {}

// Expression lifts a CST node into the micro-grammar.
func (t *Tree) Expression(node *sitter.Node) Expr {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier":
		return Name{ID: t.Text(node)}
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if object == nil || attr == nil {
			return Raw{Text: t.Text(node)}
		}
		return Attr{Value: t.Expression(object), Name: t.Text(attr)}
	case "string", "concatenated_string":
		return Str{Value: t.StringValue(node)}
	case "integer":
		if v, err := strconv.ParseInt(strings.ReplaceAll(t.Text(node), "_", ""), 0, 64); err == nil {
			return Int{Value: v}
		}
		return Raw{Text: t.Text(node)}
	case "float":
		if v, err := strconv.ParseFloat(strings.ReplaceAll(t.Text(node), "_", ""), 64); err == nil {
			return Float{Value: v}
		}
		return Raw{Text: t.Text(node)}
	case "true":
		return Bool{Value: true}
	case "false":
		return Bool{Value: false}
	case "none":
		return None{}
	case "list":
		return List{Elts: t.expressions(NamedChildren(node))}
	case "tuple", "expression_list":
		return Tuple{Elts: t.expressions(NamedChildren(node))}
	case "set":
		return Set{Elts: t.expressions(NamedChildren(node))}
	case "dictionary":
		d := Dict{}
		for _, pair := range NamedChildren(node) {
			if pair.Kind() != "pair" {
				continue
			}
			d.Keys = append(d.Keys, t.Expression(pair.ChildByFieldName("key")))
			d.Values = append(d.Values, t.Expression(pair.ChildByFieldName("value")))
		}
		return d
	case "call":
		fn := t.Expression(node.ChildByFieldName("function"))
		call := Call{Func: fn}
		if args := node.ChildByFieldName("arguments"); args != nil {
			for _, arg := range NamedChildren(args) {
				if arg.Kind() == "keyword_argument" {
					name := arg.ChildByFieldName("name")
					value := arg.ChildByFieldName("value")
					if name != nil {
						call.Keywords = append(call.Keywords, Keyword{Name: t.Text(name), Value: t.Expression(value)})
					}
					continue
				}
				call.Args = append(call.Args, t.Expression(arg))
			}
		}
		return call
	case "binary_operator":
		op := node.ChildByFieldName("operator")
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if op == nil || left == nil || right == nil {
			return Raw{Text: t.Text(node)}
		}
		return BinOp{Op: t.Text(op), Left: t.Expression(left), Right: t.Expression(right)}
	case "unary_operator", "not_operator":
		operand := node.ChildByFieldName("argument")
		if operand == nil {
			operand = node.NamedChild(0)
		}
		op := "not"
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = t.Text(opNode)
		}
		if operand == nil {
			return Raw{Text: t.Text(node)}
		}
		return UnaryOp{Op: op, Operand: t.Expression(operand)}
	case "subscript":
		value := node.ChildByFieldName("value")
		index := node.ChildByFieldName("subscript")
		if value == nil || index == nil {
			return Raw{Text: t.Text(node)}
		}
		return Subscript{Value: t.Expression(value), Index: t.Expression(index)}
	case "parenthesized_expression":
		if inner := node.NamedChild(0); inner != nil {
			return t.Expression(inner)
		}
		return Raw{Text: t.Text(node)}
	default:
		return Raw{Text: t.Text(node)}
	}
}

func (t *Tree) expressions(nodes []*sitter.Node) []Expr {
	out := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, t.Expression(n))
	}
	return out
}

// StringValue returns the interpreted content of a string literal node,
// concatenated parts joined and simple escapes decoded.
func (t *Tree) StringValue(node *sitter.Node) string {
	var sb strings.Builder
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			switch child.Kind() {
			case "string_content":
				sb.WriteString(t.Text(child))
			case "escape_sequence":
				sb.WriteString(unescape(t.Text(child)))
			case "string":
				collect(child)
			}
		}
	}
	collect(node)
	return sb.String()
}

func unescape(seq string) string {
	if len(seq) != 2 || seq[0] != '\\' {
		return seq
	}
	switch seq[1] {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\':
		return "\\"
	case '\'':
		return "'"
	case '"':
		return "\""
	case '0':
		return "\x00"
	}
	return string(seq[1])
}

// NameOf returns the dotted string of a Name or Name-rooted Attr chain.
func NameOf(e Expr) (string, bool) {
	switch v := e.(type) {
	case Name:
		return v.ID, true
	case Attr:
		prefix, ok := NameOf(v.Value)
		if !ok {
			return "", false
		}
		return prefix + "." + v.Name, true
	}
	return "", false
}

// IsName reports whether the expression is syntactically just a (possibly
// dotted) name.
func IsName(e Expr) bool {
	_, ok := NameOf(e)
	return ok
}

// LiteralEval evaluates an expression over the literal grammar: constants,
// containers and simple arithmetic. It never executes code; anything else
// fails with a typed error.
func LiteralEval(e Expr) (any, error) {
	switch v := e.(type) {
	case Str:
		return v.Value, nil
	case Int:
		return v.Value, nil
	case Float:
		return v.Value, nil
	case Bool:
		return v.Value, nil
	case None:
		return nil, nil
	case List:
		return evalElements(v.Elts)
	case Tuple:
		return evalElements(v.Elts)
	case Set:
		return evalElements(v.Elts)
	case Dict:
		out := make(map[any]any, len(v.Keys))
		for i := range v.Keys {
			key, err := LiteralEval(v.Keys[i])
			if err != nil {
				return nil, err
			}
			value, err := LiteralEval(v.Values[i])
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	case UnaryOp:
		operand, err := LiteralEval(v.Operand)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case "-":
			switch n := operand.(type) {
			case int64:
				return -n, nil
			case float64:
				return -n, nil
			}
		case "+":
			switch operand.(type) {
			case int64, float64:
				return operand, nil
			}
		case "not":
			if b, ok := operand.(bool); ok {
				return !b, nil
			}
		}
		return nil, fmt.Errorf("unsupported unary %q on %T", v.Op, operand)
	case BinOp:
		return evalBinOp(v)
	}
	return nil, fmt.Errorf("not a literal: %T", e)
}

func evalElements(elts []Expr) ([]any, error) {
	out := make([]any, 0, len(elts))
	for _, elt := range elts {
		value, err := LiteralEval(elt)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func evalBinOp(v BinOp) (any, error) {
	left, err := LiteralEval(v.Left)
	if err != nil {
		return nil, err
	}
	right, err := LiteralEval(v.Right)
	if err != nil {
		return nil, err
	}

	if ls, ok := left.(string); ok {
		switch v.Op {
		case "+":
			if rs, ok := right.(string); ok {
				return ls + rs, nil
			}
		case "*":
			if n, ok := right.(int64); ok && n >= 0 {
				return strings.Repeat(ls, int(n)), nil
			}
		}
		return nil, fmt.Errorf("unsupported string operation %q", v.Op)
	}
	if ll, ok := left.([]any); ok && v.Op == "+" {
		if rl, ok := right.([]any); ok {
			return append(append([]any(nil), ll...), rl...), nil
		}
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operands for %q: %T and %T", v.Op, left, right)
	}
	bothInt := isInt(left) && isInt(right)
	switch v.Op {
	case "+":
		return numeric(lf+rf, bothInt), nil
	case "-":
		return numeric(lf-rf, bothInt), nil
	case "*":
		return numeric(lf*rf, bothInt), nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case "//":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return int64(lf / rf), nil
	case "%":
		if bothInt {
			li, ri := left.(int64), right.(int64)
			if ri == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return li % ri, nil
		}
	}
	return nil, fmt.Errorf("unsupported operator %q", v.Op)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func isInt(v any) bool {
	_, ok := v.(int64)
	return ok
}

func numeric(f float64, wantInt bool) any {
	if wantInt {
		return int64(f)
	}
	return f
}
