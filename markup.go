package decillion

import (
	"bytes"
	"go/ast"
	"go/constant"
	"go/printer"
	"go/token"
	"go/types"
)

// MarkupNode is one node of a component's render tree, decoded from the
// nested markup-constructor calls in the source. The tree is owned
// exclusively by one component for one pass; nothing is shared or retained.
type MarkupNode interface {
	markupNode()
	// Source returns the expression this node was decoded from.
	Source() ast.Expr
}

// Element is a ui.E(tag, parts...) call.
type Element struct {
	Tag       string // valid only when TagStatic
	TagStatic bool
	Attrs     []MarkupAttr
	Children  []MarkupNode

	// ShapeStatic records the structural-shape judgment: constant tag, a
	// fixed statically-named attribute set, and a syntactically fixed child
	// list. Value dynamism does not affect it.
	ShapeStatic bool

	call *ast.CallExpr
}

// MarkupAttr is one attribute position inside an element. A nil NameStatic
// name (spread parts, computed attribute expressions) makes the enclosing
// element's shape dynamic.
type MarkupAttr struct {
	Name       string
	NameStatic bool
	Value      ast.Expr // nil for unrecognized attribute parts
	Part       ast.Expr // the whole part expression
}

// TextExpr is a ui.Text(expr) call.
type TextExpr struct {
	Value ast.Expr
	call  *ast.CallExpr
}

// Fragment is a ui.Group(children...) call.
type Fragment struct {
	Children []MarkupNode

	// ShapeStatic is false when the child list is spread (Group(xs...)).
	ShapeStatic bool

	call *ast.CallExpr
}

// ComponentRef is any markup-valued expression that is not a recognized
// constructor: a call to another component, a conditional or list helper
// (ui.If, ui.ForEach), or a plain markup-typed variable. Its rendered
// structure is unknown at compile time, so it is always an opaque boundary.
type ComponentRef struct {
	Name  string
	Props []ast.Expr
	expr  ast.Expr
}

func (*Element) markupNode()      {}
func (*TextExpr) markupNode()     {}
func (*Fragment) markupNode()     {}
func (*ComponentRef) markupNode() {}

func (n *Element) Source() ast.Expr      { return n.call }
func (n *TextExpr) Source() ast.Expr     { return n.call }
func (n *Fragment) Source() ast.Expr     { return n.call }
func (n *ComponentRef) Source() ast.Expr { return n.expr }

// decoder turns markup-constructor call expressions into MarkupNodes. It
// recognizes constructors by their resolved declaration in the markup
// package, never by textual name, so aliased imports decode correctly.
type decoder struct {
	info       *types.Info
	markupPath string
}

// decode maps an expression to its markup node. Expressions that are not a
// recognized constructor become ComponentRefs.
func (d *decoder) decode(e ast.Expr) MarkupNode {
	e = ast.Unparen(e)
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return &ComponentRef{Name: exprString(e), expr: e}
	}

	switch d.constructorName(call) {
	case "E":
		return d.decodeElement(call)
	case "Text":
		el := &TextExpr{call: call}
		if len(call.Args) == 1 {
			el.Value = call.Args[0]
		}
		return el
	case "Group":
		frag := &Fragment{call: call, ShapeStatic: call.Ellipsis == token.NoPos}
		for _, arg := range call.Args {
			frag.Children = append(frag.Children, d.decode(arg))
		}
		return frag
	default:
		ref := &ComponentRef{Name: exprString(call.Fun), expr: call}
		ref.Props = append(ref.Props, call.Args...)
		return ref
	}
}

func (d *decoder) decodeElement(call *ast.CallExpr) *Element {
	el := &Element{call: call, ShapeStatic: true}
	if call.Ellipsis != token.NoPos {
		el.ShapeStatic = false
	}
	if len(call.Args) == 0 {
		el.ShapeStatic = false
		return el
	}

	el.Tag, el.TagStatic = d.constString(call.Args[0])
	if !el.TagStatic {
		el.ShapeStatic = false
	}

	for _, arg := range call.Args[1:] {
		part := ast.Unparen(arg)
		if partCall, ok := part.(*ast.CallExpr); ok && d.constructorName(partCall) == "Attr" {
			attr := MarkupAttr{Part: arg}
			if len(partCall.Args) == 2 {
				attr.Name, attr.NameStatic = d.constString(partCall.Args[0])
				attr.Value = partCall.Args[1]
			}
			if !attr.NameStatic {
				el.ShapeStatic = false
			}
			el.Attrs = append(el.Attrs, attr)
			continue
		}
		if d.isPartTyped(part) {
			// An attribute part that is not a literal Attr call: the
			// attribute name set is not fixed.
			el.ShapeStatic = false
			el.Attrs = append(el.Attrs, MarkupAttr{Part: arg})
			continue
		}
		el.Children = append(el.Children, d.decode(arg))
	}
	return el
}

// constructorName returns the markup-package constructor the call resolves
// to, or "" when the callee is not from the markup package.
func (d *decoder) constructorName(call *ast.CallExpr) string {
	obj := calleeObject(d.info, call)
	if obj == nil || obj.Pkg() == nil || obj.Pkg().Path() != d.markupPath {
		return ""
	}
	return obj.Name()
}

// constString extracts a compile-time constant string value.
func (d *decoder) constString(e ast.Expr) (string, bool) {
	tv, ok := d.info.Types[e]
	if !ok || tv.Value == nil || tv.Value.Kind() != constant.String {
		return "", false
	}
	return constant.StringVal(tv.Value), true
}

// isPartTyped reports whether the expression's static type is the markup
// package's Part interface (an attribute-shaped part).
func (d *decoder) isPartTyped(e ast.Expr) bool {
	tv, ok := d.info.Types[e]
	if !ok || tv.Type == nil {
		return false
	}
	return markupNamed(tv.Type, d.markupPath, "Part")
}

// markupNodeType reports whether t is the markup package's *Node.
func markupNodeType(t types.Type, markupPath string) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}
	return markupNamed(ptr.Elem(), markupPath, "Node")
}

func markupNamed(t types.Type, path, name string) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj != nil && obj.Name() == name && obj.Pkg() != nil && obj.Pkg().Path() == path
}

// exprString renders an expression compactly for diagnostics and ref names.
func exprString(e ast.Expr) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, token.NewFileSet(), e); err != nil {
		return "<expr>"
	}
	return buf.String()
}
