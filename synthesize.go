package decillion

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
)

// synthesizer converts a BlockPlan into the two generated artifacts: a
// package-level template definition (constructed once, at init) and the
// rewritten render tail that pairs the template with the current slot
// values. Original slot expressions are spliced into the output unchanged so
// evaluation order and semantics match the unoptimized component.
type synthesizer struct {
	runtimeName string // local name of the imported runtime package
}

// construct builds `var <name> = block.Define(<skeleton>[, block.AlwaysPatch(...)])`.
func (s *synthesizer) construct(plan *BlockPlan, varName string) *ast.GenDecl {
	args := []ast.Expr{s.skel(plan.Skeleton)}
	if opaque := plan.OpaqueSlots(); len(opaque) > 0 {
		always := s.runtimeCall("AlwaysPatch")
		for _, idx := range opaque {
			always.Args = append(always.Args, intLit(idx))
		}
		args = append(args, always)
	}
	define := s.runtimeCall("Define", args...)

	return &ast.GenDecl{
		Tok: token.VAR,
		Specs: []ast.Spec{
			&ast.ValueSpec{
				Names:  []*ast.Ident{ast.NewIdent(varName)},
				Values: []ast.Expr{define},
			},
		},
	}
}

// update builds `return block.Render(<name>, v0, v1, ...)` with one value
// per slot, in slot order. Static components render with no values; the
// runtime then has nothing to patch and updates are no-ops.
func (s *synthesizer) update(plan *BlockPlan, varName string) *ast.ReturnStmt {
	render := s.runtimeCall("Render", ast.NewIdent(varName))
	for _, slot := range plan.Slots {
		render.Args = append(render.Args, slot.Expr)
	}
	return &ast.ReturnStmt{Results: []ast.Expr{render}}
}

func (s *synthesizer) skel(n SkelNode) ast.Expr {
	switch sk := n.(type) {
	case *SkelElem:
		call := s.runtimeCall("Elem", strLit(sk.Tag))
		for _, attr := range sk.Attrs {
			if attr.Static {
				call.Args = append(call.Args, s.runtimeCall("StaticAttr", strLit(attr.Name), attr.Value))
			} else {
				call.Args = append(call.Args, s.runtimeCall("AttrSlot", intLit(attr.Slot), strLit(attr.Name)))
			}
		}
		for _, child := range sk.Children {
			call.Args = append(call.Args, s.skel(child))
		}
		return call
	case *SkelFrag:
		call := s.runtimeCall("Frag")
		for _, child := range sk.Children {
			call.Args = append(call.Args, s.skel(child))
		}
		return call
	case *SkelStaticText:
		return s.runtimeCall("StaticText", sk.Value)
	case *SkelTextSlot:
		return s.runtimeCall("TextSlot", intLit(sk.Slot))
	case *SkelChildSlot:
		return s.runtimeCall("ChildSlot", intLit(sk.Slot))
	default:
		// Unreachable by construction; keep the panic close to the bug.
		panic(fmt.Sprintf("decillion: unknown skeleton node %T", n))
	}
}

func (s *synthesizer) runtimeCall(name string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{
		Fun:  &ast.SelectorExpr{X: ast.NewIdent(s.runtimeName), Sel: ast.NewIdent(name)},
		Args: args,
	}
}

func strLit(s string) ast.Expr {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

func intLit(i int) ast.Expr {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(i)}
}
