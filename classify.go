package decillion

import (
	"fmt"
	"go/ast"
	"go/types"
)

// ClassKind is the classification level of an expression across re-renders.
type ClassKind int

const (
	// ClassStatic means provably identical on every render of a component
	// instance.
	ClassStatic ClassKind = iota
	// ClassDynamic means the value changes when any binding in the recorded
	// set changes.
	ClassDynamic
	// ClassOpaque means the analysis could not bound the dependencies; the
	// expression is re-evaluated unconditionally on every render. Opaque is
	// a conservative superset of Dynamic and is never downgraded.
	ClassOpaque
)

var classNames = [...]string{
	ClassStatic:  "static",
	ClassDynamic: "dynamic",
	ClassOpaque:  "opaque",
}

func (k ClassKind) String() string {
	if int(k) < len(classNames) {
		return classNames[k]
	}
	return "unknown"
}

// Classification labels one expression. Bindings is populated only for
// ClassDynamic; an opaque expression has no bounded dependency set.
type Classification struct {
	Kind     ClassKind
	Bindings BindingSet
}

func staticClass() Classification {
	return Classification{Kind: ClassStatic}
}

func opaqueClass() Classification {
	return Classification{Kind: ClassOpaque}
}

func dynamicClass(bindings ...Binding) Classification {
	c := Classification{Kind: ClassDynamic}
	for _, b := range bindings {
		c.Bindings.Add(b)
	}
	return c
}

// join combines two classifications into the weakest (most dynamic) of the
// pair. Dynamic sets are unioned; Opaque absorbs everything.
func join(a, b Classification) Classification {
	switch {
	case a.Kind == ClassOpaque || b.Kind == ClassOpaque:
		return opaqueClass()
	case a.Kind == ClassStatic:
		return b
	case b.Kind == ClassStatic:
		return a
	default:
		out := Classification{Kind: ClassDynamic}
		out.Bindings.AddAll(a.Bindings)
		out.Bindings.AddAll(b.Bindings)
		return out
	}
}

// classifier labels expressions using the host compiler's type information.
// It never evaluates user code; every judgment is made from resolved
// declarations and constant folding alone.
type classifier struct {
	info  *types.Info
	allow map[string]bool // qualified names of calls treated as pure

	// unresolved counts identifiers the type info could not resolve; each
	// one degraded an expression to opaque.
	unresolved int
}

func newClassifier(info *types.Info, allow map[string]bool) *classifier {
	return &classifier{info: info, allow: allow}
}

// classifyExpr labels a single expression. The same expression in the same
// scope always yields the same label: the walk is a pure function of the
// syntax and the resolved type information.
func (c *classifier) classifyExpr(e ast.Expr) Classification {
	if e == nil {
		return staticClass()
	}
	// Constant-folded expressions are static regardless of their shape.
	if tv, ok := c.info.Types[e]; ok && tv.Value != nil {
		return staticClass()
	}

	switch x := e.(type) {
	case *ast.BasicLit:
		return staticClass()

	case *ast.Ident:
		return c.classifyIdent(x)

	case *ast.ParenExpr:
		return c.classifyExpr(x.X)

	case *ast.SelectorExpr:
		return c.classifySelector(x)

	case *ast.CallExpr:
		return c.classifyCall(x)

	case *ast.BinaryExpr:
		return join(c.classifyExpr(x.X), c.classifyExpr(x.Y))

	case *ast.UnaryExpr:
		// Taking an address yields a fresh pointer per evaluation; its
		// identity is not stable across renders.
		if x.Op.String() == "&" {
			return opaqueClass()
		}
		return c.classifyExpr(x.X)

	case *ast.StarExpr:
		return c.classifyExpr(x.X)

	case *ast.IndexExpr:
		return join(c.classifyExpr(x.X), c.classifyExpr(x.Index))

	case *ast.IndexListExpr:
		out := c.classifyExpr(x.X)
		for _, idx := range x.Indices {
			out = join(out, c.classifyExpr(idx))
		}
		return out

	case *ast.SliceExpr:
		out := c.classifyExpr(x.X)
		for _, part := range []ast.Expr{x.Low, x.High, x.Max} {
			if part != nil {
				out = join(out, c.classifyExpr(part))
			}
		}
		return out

	case *ast.CompositeLit:
		return c.classifyComposite(x)

	case *ast.TypeAssertExpr:
		return c.classifyExpr(x.X)

	case *ast.FuncLit:
		// A function literal is a fresh closure every render and routes
		// arbitrary behavior; never provably static.
		return opaqueClass()

	default:
		return opaqueClass()
	}
}

func (c *classifier) classifyIdent(id *ast.Ident) Classification {
	obj := c.info.Uses[id]
	if obj == nil {
		obj = c.info.Defs[id]
	}
	if obj == nil {
		c.unresolved++
		return opaqueClass()
	}
	switch o := obj.(type) {
	case *types.Const, *types.Nil, *types.TypeName, *types.PkgName, *types.Builtin:
		return staticClass()
	case *types.Func:
		// A reference to a declared function is a stable value; calling it
		// is judged separately in classifyCall.
		return staticClass()
	case *types.Var:
		return dynamicClass(Binding{Obj: o})
	default:
		return opaqueClass()
	}
}

func (c *classifier) classifySelector(sel *ast.SelectorExpr) Classification {
	// Qualified identifier (pkg.Name): classify like a plain identifier.
	if base, ok := sel.X.(*ast.Ident); ok {
		if obj := c.info.Uses[base]; obj != nil {
			if _, isPkg := obj.(*types.PkgName); isPkg {
				return c.classifyIdent(sel.Sel)
			}
		}
	}

	if s, ok := c.info.Selections[sel]; ok && s.Kind() != types.FieldVal {
		// Method values close over their receiver; not trackable.
		return opaqueClass()
	}

	// Direct field selection on a variable gets a field-refined binding so
	// sibling fields of the same props value stay independent.
	if base, ok := sel.X.(*ast.Ident); ok {
		if obj, isVar := c.info.Uses[base].(*types.Var); isVar {
			return dynamicClass(Binding{Obj: obj, Field: sel.Sel.Name})
		}
	}

	// Deeper chains fall back to the base's bindings: the selected value
	// cannot change unless the base does.
	return c.classifyExpr(sel.X)
}

func (c *classifier) classifyCall(call *ast.CallExpr) Classification {
	// Type conversions are pure; the result tracks the operand.
	if tv, ok := c.info.Types[call.Fun]; ok && tv.IsType() {
		out := staticClass()
		for _, arg := range call.Args {
			out = join(out, c.classifyExpr(arg))
		}
		return out
	}

	callee := calleeObject(c.info, call)
	if callee == nil {
		c.unresolved++
		return opaqueClass()
	}
	if !c.allow[qualifiedName(callee)] {
		// Not provably side-effect free: the deliberate false-negative bias.
		// Missing an optimization is acceptable; unsound output is not.
		return opaqueClass()
	}
	out := staticClass()
	for _, arg := range call.Args {
		out = join(out, c.classifyExpr(arg))
	}
	return out
}

func (c *classifier) classifyComposite(lit *ast.CompositeLit) Classification {
	out := staticClass()
	for _, elt := range lit.Elts {
		if kv, ok := elt.(*ast.KeyValueExpr); ok {
			// Struct field keys name a field, not a binding; only map and
			// array keys are value expressions.
			if key, isIdent := kv.Key.(*ast.Ident); isIdent {
				if v, isVar := c.info.Uses[key].(*types.Var); isVar && v.IsField() {
					out = join(out, c.classifyExpr(kv.Value))
					continue
				}
			}
			out = join(out, join(c.classifyExpr(kv.Key), c.classifyExpr(kv.Value)))
			continue
		}
		out = join(out, c.classifyExpr(elt))
	}
	return out
}

// calleeObject resolves the called function's declaration object, unwrapping
// parentheses and generic instantiation.
func calleeObject(info *types.Info, call *ast.CallExpr) types.Object {
	fun := ast.Unparen(call.Fun)
	switch f := fun.(type) {
	case *ast.Ident:
		return info.Uses[f]
	case *ast.SelectorExpr:
		return info.Uses[f.Sel]
	case *ast.IndexExpr:
		return calleeFromExpr(info, f.X)
	case *ast.IndexListExpr:
		return calleeFromExpr(info, f.X)
	default:
		return nil
	}
}

func calleeFromExpr(info *types.Info, e ast.Expr) types.Object {
	switch f := ast.Unparen(e).(type) {
	case *ast.Ident:
		return info.Uses[f]
	case *ast.SelectorExpr:
		return info.Uses[f.Sel]
	default:
		return nil
	}
}

// qualifiedName renders an object as "import/path.Name", or just "Name" for
// universe-scope objects.
func qualifiedName(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return fmt.Sprintf("%s.%s", obj.Pkg().Path(), obj.Name())
}
