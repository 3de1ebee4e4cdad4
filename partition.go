package decillion

import (
	"fmt"
	"go/ast"
	"go/types"
)

// SlotKind says what template position a slot addresses.
type SlotKind int

const (
	SlotAttr SlotKind = iota
	SlotText
	SlotChild
)

var slotKindNames = [...]string{
	SlotAttr:  "attr",
	SlotText:  "text",
	SlotChild: "child",
}

func (k SlotKind) String() string {
	if int(k) < len(slotKindNames) {
		return slotKindNames[k]
	}
	return "unknown"
}

// Slot is one independently-updatable position in a block template. Path is
// the child-index route from the template root to the slot's node (for attr
// slots, to the owning element). Slots are numbered in pre-order over the
// skeleton; the synthesized update routine supplies values in exactly that
// order, and the runtime's patch calls assume it.
type Slot struct {
	Index int
	Path  []int
	Attr  string // attr slots only
	Kind  SlotKind
	Class Classification
	Expr  ast.Expr // the original expression, re-evaluated per render
}

// SkelNode is a node of the template skeleton: the render tree with every
// dynamic leaf replaced by a slot reference.
type SkelNode interface {
	skelNode()
}

// SkelElem is an element with a proven-static structural shape.
type SkelElem struct {
	Tag      string
	Attrs    []SkelAttr
	Children []SkelNode
}

// SkelAttr is one attribute: either a hoisted static value or a slot.
type SkelAttr struct {
	Name   string
	Static bool
	Value  ast.Expr // static attrs: hoisted into the template
	Slot   int      // dynamic attrs
}

// SkelStaticText is a text leaf whose value is hoisted into the template.
type SkelStaticText struct {
	Value ast.Expr
}

// SkelTextSlot is a text leaf filled per render.
type SkelTextSlot struct {
	Slot int
}

// SkelChildSlot is a child position filled per render: a dynamic or opaque
// subtree collapsed into a single slot.
type SkelChildSlot struct {
	Slot int
}

// SkelFrag is a fragment with a fixed child list.
type SkelFrag struct {
	Children []SkelNode
}

func (*SkelElem) skelNode()       {}
func (SkelAttr) skelNode()        {}
func (*SkelStaticText) skelNode() {}
func (*SkelTextSlot) skelNode()   {}
func (*SkelChildSlot) skelNode()  {}
func (*SkelFrag) skelNode()       {}

// BlockPlan is the partitioner's output: the static skeleton plus the slot
// table, ready for synthesis.
type BlockPlan struct {
	Skeleton SkelNode
	Slots    []Slot
}

// StaticOnly reports whether the component has no dynamic content at all, in
// which case the update routine degenerates to a no-op.
func (p *BlockPlan) StaticOnly() bool {
	return len(p.Slots) == 0
}

// OpaqueSlots returns the indices of slots that must be re-applied on every
// update.
func (p *BlockPlan) OpaqueSlots() []int {
	var out []int
	for _, s := range p.Slots {
		if s.Class.Kind == ClassOpaque {
			out = append(out, s.Index)
		}
	}
	return out
}

// partitioner walks a classified markup tree depth-first, keeping maximal
// static fragments inline and carving each maximal dynamic or opaque
// attribute/child out into its own slot. Adjacent dynamic siblings are never
// merged: each keeps its own slot so it stays independently updatable.
type partitioner struct {
	cls   *classifier
	slots []Slot
}

// partition produces a BlockPlan for a render tree. The root's structural
// shape must itself be static; otherwise there is no stable template to
// extract and the whole component stays unoptimized.
func partition(root MarkupNode, cls *classifier) (*BlockPlan, error) {
	p := &partitioner{cls: cls}

	var skeleton SkelNode
	switch n := root.(type) {
	case *Element:
		if !n.ShapeStatic {
			return nil, fmt.Errorf("root element shape is dynamic: %w", ErrStructuralAmbiguity)
		}
		skeleton = p.element(n, nil)
	case *Fragment:
		if !n.ShapeStatic {
			return nil, fmt.Errorf("root fragment shape is dynamic: %w", ErrStructuralAmbiguity)
		}
		skeleton = p.fragment(n, nil)
	default:
		return nil, fmt.Errorf("render root is not a markup constructor: %w", ErrStructuralAmbiguity)
	}

	plan := &BlockPlan{Skeleton: skeleton, Slots: p.slots}
	if err := plan.validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *partitioner) addSlot(s Slot) int {
	s.Index = len(p.slots)
	s.Path = append([]int(nil), s.Path...)
	p.slots = append(p.slots, s)
	return s.Index
}

func (p *partitioner) element(el *Element, path []int) SkelNode {
	skel := &SkelElem{Tag: el.Tag}
	for _, attr := range el.Attrs {
		cl := p.cls.classifyExpr(attr.Value)
		if cl.Kind == ClassStatic {
			if p.hoistable(attr.Value) {
				skel.Attrs = append(skel.Attrs, SkelAttr{Name: attr.Name, Static: true, Value: attr.Value})
				continue
			}
			// Static in value but named after a function-scoped object
			// (a local const), so the expression only compiles inside
			// the function. It keeps a slot and re-evaluates in place;
			// the unchanged value makes every patch a no-op.
			cl = dynamicClass()
		}
		idx := p.addSlot(Slot{Path: path, Attr: attr.Name, Kind: SlotAttr, Class: cl, Expr: attr.Value})
		skel.Attrs = append(skel.Attrs, SkelAttr{Name: attr.Name, Slot: idx})
	}
	for i, child := range el.Children {
		skel.Children = append(skel.Children, p.child(child, append(path, i)))
	}
	return skel
}

func (p *partitioner) fragment(frag *Fragment, path []int) SkelNode {
	skel := &SkelFrag{}
	for i, child := range frag.Children {
		skel.Children = append(skel.Children, p.child(child, append(path, i)))
	}
	return skel
}

func (p *partitioner) child(n MarkupNode, path []int) SkelNode {
	switch c := n.(type) {
	case *TextExpr:
		cl := p.cls.classifyExpr(c.Value)
		if cl.Kind == ClassStatic {
			if p.hoistable(c.Value) {
				return &SkelStaticText{Value: c.Value}
			}
			cl = dynamicClass()
		}
		idx := p.addSlot(Slot{Path: path, Kind: SlotText, Class: cl, Expr: c.Value})
		return &SkelTextSlot{Slot: idx}

	case *Element:
		if c.ShapeStatic {
			return p.element(c, path)
		}
		// Structurally dynamic: stop descending, one opaque slot covers the
		// whole subtree. Partial optimization beneath this boundary would
		// not keep slot paths stable across renders.
		return p.opaqueChild(c.Source(), path)

	case *Fragment:
		if c.ShapeStatic {
			return p.fragment(c, path)
		}
		return p.opaqueChild(c.Source(), path)

	case *ComponentRef:
		// A component call, conditional, list helper, or markup variable:
		// the produced structure is unknown here. A direct variable still
		// gets a bounded dynamic classification; everything else is opaque.
		cl := p.cls.classifyExpr(c.Source())
		if cl.Kind == ClassStatic {
			// Never trust a "static" judgment for an unknown structure;
			// opaque is the sound fallback.
			cl = opaqueClass()
		}
		idx := p.addSlot(Slot{Path: path, Kind: SlotChild, Class: cl, Expr: c.Source()})
		return &SkelChildSlot{Slot: idx}

	default:
		return p.opaqueChild(n.Source(), path)
	}
}

// hoistable reports whether an expression still resolves when moved to
// package scope verbatim. Every identifier must name a package-level,
// imported, or universe object; a function-scoped name disqualifies the
// whole expression.
func (p *partitioner) hoistable(e ast.Expr) bool {
	ok := true
	ast.Inspect(e, func(n ast.Node) bool {
		if !ok {
			return false
		}
		id, isIdent := n.(*ast.Ident)
		if !isIdent {
			return true
		}
		obj := p.cls.info.Uses[id]
		if obj == nil {
			obj = p.cls.info.Defs[id]
		}
		if obj == nil {
			return true
		}
		if _, isPkg := obj.(*types.PkgName); isPkg {
			return true
		}
		parent := obj.Parent()
		if parent == nil || parent == types.Universe {
			return true
		}
		if obj.Pkg() != nil && parent == obj.Pkg().Scope() {
			return true
		}
		ok = false
		return false
	})
	return ok
}

func (p *partitioner) opaqueChild(expr ast.Expr, path []int) SkelNode {
	idx := p.addSlot(Slot{Path: path, Kind: SlotChild, Class: opaqueClass(), Expr: expr})
	return &SkelChildSlot{Slot: idx}
}

// validate enforces the partitioner's invariants: contiguous indices and
// unique slot addresses.
func (p *BlockPlan) validate() error {
	type addr struct {
		path string
		attr string
		kind SlotKind
	}
	seen := make(map[addr]int, len(p.Slots))
	for i, s := range p.Slots {
		if s.Index != i {
			return fmt.Errorf("slot %d has index %d: %w", i, s.Index, ErrInternalInvariant)
		}
		key := addr{path: fmt.Sprint(s.Path), attr: s.Attr, kind: s.Kind}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("slots %d and %d share address %v %s %q: %w",
				prev, i, s.Path, s.Kind, s.Attr, ErrInternalInvariant)
		}
		seen[key] = i
		if s.Expr == nil {
			return fmt.Errorf("slot %d has no expression: %w", i, ErrInternalInvariant)
		}
	}
	return nil
}
