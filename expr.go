package dynamodel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/guregu/dynamodel/internal/exprs"
)

// Expr is a node of a filter expression tree.
// Trees are immutable: combining two expressions creates a new node
// and leaves both operands untouched, so they can be reused freely.
type Expr interface {
	// And combines this expression with other using "and".
	And(other Expr) Expr
	// Or combines this expression with other using "or".
	Or(other Expr) Expr

	build(ph *placeholders) (string, error)
}

// Compiled is the result of compiling an expression tree.
type Compiled struct {
	// Text is the filter expression, such as "(birth_year > :1 or contains(content, :2))".
	Text string
	// Values maps placeholders (":1", ":2", ...) to their encoded operands.
	Values map[string]types.AttributeValue
	// Names maps name placeholders ("#1", ...) to attribute names.
	// It is nil unless a Raw fragment used $ or a quoted name.
	Names map[string]string
}

// Compile renders e into expression text and its placeholder bindings.
// Value placeholders are numbered from :1 in depth-first, left-to-right order.
func Compile(e Expr) (Compiled, error) {
	if e == nil {
		return Compiled{}, fmt.Errorf("dynamodel: compile: nil expression")
	}
	ph := new(placeholders)
	text, err := e.build(ph)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{
		Text:   text,
		Values: ph.values,
		Names:  ph.names,
	}, nil
}

// placeholders allocates placeholder names for a single compile.
type placeholders struct {
	values map[string]types.AttributeValue
	next   int
	names  map[string]string
	nextN  int
}

func (ph *placeholders) value(v any) (string, error) {
	av, err := Marshal(v)
	if err != nil {
		return "", err
	}
	if ph.values == nil {
		ph.values = make(map[string]types.AttributeValue)
	}
	ph.next++
	key := ":" + strconv.Itoa(ph.next)
	ph.values[key] = av
	return key, nil
}

func (ph *placeholders) name(n string) string {
	if ph.names == nil {
		ph.names = make(map[string]string)
	}
	ph.nextN++
	key := "#" + strconv.Itoa(ph.nextN)
	ph.names[key] = n
	return key
}

// projection renders a projection expression with one name placeholder per attribute,
// so reserved words can be projected.
func (ph *placeholders) projection(attrs []string) string {
	refs := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		refs = append(refs, ph.name(attr))
	}
	return strings.Join(refs, ", ")
}

type combinators struct {
	self Expr
}

func (c combinators) And(other Expr) Expr { return And(c.self, other) }
func (c combinators) Or(other Expr) Expr  { return Or(c.self, other) }

type comparison struct {
	combinators
	path    string
	op      string
	operand any
}

func newComparison(path, op string, operand any) Expr {
	c := &comparison{path: path, op: op, operand: operand}
	c.self = c
	return c
}

// Eq matches items where path = operand.
func Eq(path string, operand any) Expr { return newComparison(path, "=", operand) }

// Gt matches items where path > operand.
func Gt(path string, operand any) Expr { return newComparison(path, ">", operand) }

// Gte matches items where path >= operand.
func Gte(path string, operand any) Expr { return newComparison(path, ">=", operand) }

// Lt matches items where path < operand.
func Lt(path string, operand any) Expr { return newComparison(path, "<", operand) }

// Lte matches items where path <= operand.
func Lte(path string, operand any) Expr { return newComparison(path, "<=", operand) }

func (c *comparison) build(ph *placeholders) (string, error) {
	if err := exprs.CheckPath(c.path); err != nil {
		return "", err
	}
	key, err := ph.value(c.operand)
	if err != nil {
		return "", fmt.Errorf("dynamodel: operand of %s %s: %w", c.path, c.op, err)
	}
	return c.path + " " + c.op + " " + key, nil
}

type contains struct {
	combinators
	path    string
	operand any
}

// Contains matches items where the string, set or list at path contains operand.
func Contains(path string, operand any) Expr {
	c := &contains{path: path, operand: operand}
	c.self = c
	return c
}

func (c *contains) build(ph *placeholders) (string, error) {
	if err := exprs.CheckPath(c.path); err != nil {
		return "", err
	}
	key, err := ph.value(c.operand)
	if err != nil {
		return "", fmt.Errorf("dynamodel: operand of contains(%s): %w", c.path, err)
	}
	return "contains(" + c.path + ", " + key + ")", nil
}

type logical struct {
	combinators
	op          string
	left, right Expr
}

// And matches items matching both left and right.
func And(left, right Expr) Expr {
	l := &logical{op: "and", left: left, right: right}
	l.self = l
	return l
}

// Or matches items matching either left or right.
func Or(left, right Expr) Expr {
	l := &logical{op: "or", left: left, right: right}
	l.self = l
	return l
}

func (l *logical) build(ph *placeholders) (string, error) {
	if l.left == nil || l.right == nil {
		return "", fmt.Errorf("dynamodel: %s with nil operand", l.op)
	}
	left, err := l.left.build(ph)
	if err != nil {
		return "", err
	}
	right, err := l.right.build(ph)
	if err != nil {
		return "", err
	}
	return "(" + left + " " + l.op + " " + right + ")", nil
}

type raw struct {
	combinators
	expr string
	args []any
}

// Raw is an expression fragment written by hand, for functions that have no
// constructor such as attribute_exists or size.
// Use ? as a value placeholder and $ as an attribute name placeholder, consuming
// args in order. Use 'single quotes' around reserved attribute names.
//
//	dynamodel.Raw("size(tags) > ? and attribute_not_exists($)", 2, "deleted")
func Raw(expr string, args ...any) Expr {
	r := &raw{expr: expr, args: args}
	r.self = r
	return r
}

func (r *raw) build(ph *placeholders) (string, error) {
	frag, err := exprs.Parse(r.expr)
	if err != nil {
		return "", err
	}
	values, names := frag.Placeholders()
	if want := values + names; want != len(r.args) {
		return "", fmt.Errorf("dynamodel: raw expression %q wants %d args, got %d", r.expr, want, len(r.args))
	}

	var sb strings.Builder
	args := r.args
	for _, item := range frag.Items {
		switch item.Type {
		case exprs.ItemText:
			sb.WriteString(item.Val)
		case exprs.ItemQuotedName:
			sb.WriteString(ph.name(item.String()))
		case exprs.ItemNamePlaceholder:
			name, ok := args[0].(string)
			if !ok {
				return "", fmt.Errorf("dynamodel: raw expression %q: name placeholder needs a string, got %T", r.expr, args[0])
			}
			sb.WriteString(ph.name(name))
			args = args[1:]
		case exprs.ItemValuePlaceholder:
			key, err := ph.value(args[0])
			if err != nil {
				return "", fmt.Errorf("dynamodel: raw expression %q: %w", r.expr, err)
			}
			sb.WriteString(key)
			args = args[1:]
		}
	}
	return "(" + strings.TrimSpace(sb.String()) + ")", nil
}
