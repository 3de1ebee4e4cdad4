// Package block is the runtime contract consumed by optimizer output.
//
// Generated code references two things here: the template builders (Elem,
// StaticAttr, AttrSlot, TextSlot, ChildSlot, ...) used in a package-level
// Define call, and Render, which pairs a compiled template with the current
// slot values. Mount and (*Handle).Patch form the reference reconciler: a
// mounted block re-rendered with the same template is patched slot by slot,
// touching only slots whose value actually changed.
package block

import (
	"fmt"
	"reflect"

	"github.com/evilbocchi/decillion/pkg/ui"
)

// SlotKind says what a slot addresses inside the template.
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

// SlotInfo records where a slot lives: a child-index path from the template
// root, the attribute name for attr slots, and whether the slot must be
// re-applied on every update (opaque expressions).
type SlotInfo struct {
	Index  int
	Kind   SlotKind
	Path   []int
	Attr   string
	Always bool
}

// Def is a compiled template: the static skeleton plus the slot table, in
// pre-order. Defs are immutable after Define and safe to share.
type Def struct {
	root  TplNode
	slots []SlotInfo
}

// Slots returns a copy of the slot table in slot-index order.
func (d *Def) Slots() []SlotInfo {
	out := make([]SlotInfo, len(d.slots))
	copy(out, d.slots)
	return out
}

// TplPart is anything that may appear inside an Elem call.
type TplPart interface {
	applyTpl(*elemTpl)
}

// TplNode is a template skeleton node.
type TplNode interface {
	TplPart
	walk(path []int, c *defCollector)
	build(values []any, h *Handle) *ui.Node
}

type staticAttrTpl struct {
	name  string
	value any
}

type attrSlotTpl struct {
	index int
	name  string
}

type elemTpl struct {
	tag      string
	attrs    []TplPart // staticAttrTpl and attrSlotTpl, in source order
	children []TplNode
}

type fragTpl struct {
	children []TplNode
}

type staticTextTpl struct {
	value any
}

type textSlotTpl struct {
	index int
}

type childSlotTpl struct {
	index int
}

// Elem constructs a template element node.
func Elem(tag string, parts ...TplPart) TplNode {
	e := &elemTpl{tag: tag}
	for _, p := range parts {
		p.applyTpl(e)
	}
	return e
}

// Frag constructs a template fragment with a fixed child list.
func Frag(children ...TplNode) TplNode {
	return &fragTpl{children: children}
}

// StaticAttr constructs an attribute whose value never changes and is baked
// into the template.
func StaticAttr(name string, value any) TplPart {
	return staticAttrTpl{name: name, value: value}
}

// AttrSlot constructs an attribute whose value is supplied per render as the
// slot with the given index.
func AttrSlot(index int, name string) TplPart {
	return attrSlotTpl{index: index, name: name}
}

// StaticText constructs a text leaf with a fixed value.
func StaticText(value any) TplNode {
	return staticTextTpl{value: value}
}

// TextSlot constructs a text leaf whose value is the slot with the given
// index.
func TextSlot(index int) TplNode {
	return textSlotTpl{index: index}
}

// ChildSlot constructs a child position filled per render by the slot with
// the given index. The value must be a *ui.Node (possibly another block).
func ChildSlot(index int) TplNode {
	return childSlotTpl{index: index}
}

func (a staticAttrTpl) applyTpl(e *elemTpl) { e.attrs = append(e.attrs, a) }
func (a attrSlotTpl) applyTpl(e *elemTpl)   { e.attrs = append(e.attrs, a) }
func (n *elemTpl) applyTpl(e *elemTpl)      { e.children = append(e.children, n) }
func (n *fragTpl) applyTpl(e *elemTpl)      { e.children = append(e.children, n) }
func (n staticTextTpl) applyTpl(e *elemTpl) { e.children = append(e.children, n) }
func (n textSlotTpl) applyTpl(e *elemTpl)   { e.children = append(e.children, n) }
func (n childSlotTpl) applyTpl(e *elemTpl)  { e.children = append(e.children, n) }

// DefOption configures Define.
type DefOption func(*defCollector)

// AlwaysPatch marks the given slot indices as opaque: their values are
// re-applied on every update without comparison.
func AlwaysPatch(indices ...int) DefOption {
	return func(c *defCollector) {
		for _, i := range indices {
			c.always[i] = true
		}
	}
}

type defCollector struct {
	slots  []SlotInfo
	always map[int]bool
}

// Define compiles a template skeleton into a Def. The slot table is
// collected in pre-order; slot indices must be unique and contiguous from
// zero, matching the order in which Render receives values. A malformed
// template is a generator bug and panics.
func Define(root TplNode, opts ...DefOption) *Def {
	c := &defCollector{always: make(map[int]bool)}
	for _, opt := range opts {
		opt(c)
	}
	root.walk(nil, c)

	seen := make(map[int]bool, len(c.slots))
	for i := range c.slots {
		s := &c.slots[i]
		if s.Index < 0 || s.Index >= len(c.slots) {
			panic(fmt.Sprintf("block: slot index %d out of range [0,%d)", s.Index, len(c.slots)))
		}
		if seen[s.Index] {
			panic(fmt.Sprintf("block: duplicate slot index %d", s.Index))
		}
		seen[s.Index] = true
		s.Always = c.always[s.Index]
	}
	// Re-order the table by slot index so Slots() matches Render's value order.
	ordered := make([]SlotInfo, len(c.slots))
	for _, s := range c.slots {
		ordered[s.Index] = s
	}
	return &Def{root: root, slots: ordered}
}

func (c *defCollector) add(s SlotInfo) {
	// Paths alias the walk buffer; copy before retaining.
	p := make([]int, len(s.Path))
	copy(p, s.Path)
	s.Path = p
	c.slots = append(c.slots, s)
}

func (n *elemTpl) walk(path []int, c *defCollector) {
	for _, a := range n.attrs {
		if slot, ok := a.(attrSlotTpl); ok {
			c.add(SlotInfo{Index: slot.index, Kind: SlotAttr, Path: path, Attr: slot.name})
		}
	}
	for i, child := range n.children {
		child.walk(append(path, i), c)
	}
}

func (n *fragTpl) walk(path []int, c *defCollector) {
	for i, child := range n.children {
		child.walk(append(path, i), c)
	}
}

func (n staticTextTpl) walk(path []int, c *defCollector) {}

func (n textSlotTpl) walk(path []int, c *defCollector) {
	c.add(SlotInfo{Index: n.index, Kind: SlotText, Path: path})
}

func (n childSlotTpl) walk(path []int, c *defCollector) {
	c.add(SlotInfo{Index: n.index, Kind: SlotChild, Path: path})
}

// instance is the payload of a ui.KindBlock node: a template plus the slot
// values for one render.
type instance struct {
	def    *Def
	values []any
}

// Render pairs a compiled template with the current slot values, in slot
// order. This is what an optimized component body returns; evaluating the
// slot expressions is the caller's (the generated code's) job.
func Render(def *Def, values ...any) *ui.Node {
	if len(values) != len(def.slots) {
		panic(fmt.Sprintf("block: template has %d slots, got %d values", len(def.slots), len(values)))
	}
	return &ui.Node{Kind: ui.KindBlock, Value: &instance{def: def, values: values}}
}

// Handle is a mounted block: the live tree plus the slot values it was last
// patched with.
type Handle struct {
	def     *Def
	tree    *ui.Node
	prev    []any
	nested  map[int]*Handle // child-slot index -> nested block handle
	patches int64
}

// Mount constructs the tree for a rendering. Block nodes are expanded
// through their templates; plain trees are deep-copied as-is.
func Mount(n *ui.Node) (*Handle, error) {
	if n == nil {
		return nil, fmt.Errorf("block: cannot mount nil node")
	}
	h := &Handle{nested: make(map[int]*Handle)}
	if n.Kind != ui.KindBlock {
		h.tree = expandPlain(n)
		return h, nil
	}
	inst, ok := n.Value.(*instance)
	if !ok {
		return nil, fmt.Errorf("block: malformed block node payload %T", n.Value)
	}
	h.def = inst.def
	h.prev = make([]any, len(inst.values))
	copy(h.prev, inst.values)
	h.tree = inst.def.root.build(inst.values, h)
	return h, nil
}

// Tree returns the live tree. Callers must treat it as read-only; it is
// mutated in place by Patch.
func (h *Handle) Tree() *ui.Node {
	return h.tree
}

// PatchCount returns the number of patch operations applied since mount,
// including patches inside nested blocks.
func (h *Handle) PatchCount() int64 {
	total := h.patches
	for _, nh := range h.nested {
		total += nh.PatchCount()
	}
	return total
}

// Patch applies a new rendering to the mounted tree. When the rendering
// shares the handle's template, only slots whose value changed (plus every
// AlwaysPatch slot) are touched. A rendering with a different template
// rebuilds the tree wholesale.
func (h *Handle) Patch(n *ui.Node) error {
	if n == nil {
		return fmt.Errorf("block: cannot patch with nil node")
	}
	if n.Kind != ui.KindBlock {
		h.def = nil
		h.prev = nil
		h.nested = make(map[int]*Handle)
		h.tree = expandPlain(n)
		h.patches++
		return nil
	}
	inst, ok := n.Value.(*instance)
	if !ok {
		return fmt.Errorf("block: malformed block node payload %T", n.Value)
	}
	if h.def != inst.def {
		rebuilt, err := Mount(n)
		if err != nil {
			return err
		}
		h.def = rebuilt.def
		h.prev = rebuilt.prev
		h.nested = rebuilt.nested
		h.tree = rebuilt.tree
		h.patches++
		return nil
	}
	for i, slot := range h.def.slots {
		next := inst.values[i]
		if !slot.Always && reflect.DeepEqual(h.prev[i], next) {
			continue
		}
		if err := h.applySlot(slot, next); err != nil {
			return err
		}
		h.prev[i] = next
	}
	return nil
}

func (h *Handle) applySlot(slot SlotInfo, value any) error {
	switch slot.Kind {
	case SlotAttr:
		target := h.tree.Child(slot.Path...)
		if target == nil {
			return fmt.Errorf("block: attr slot %d path %v addresses no node", slot.Index, slot.Path)
		}
		target.SetAttr(slot.Attr, value)
		h.patches++
	case SlotText:
		target := h.tree.Child(slot.Path...)
		if target == nil || target.Kind != ui.KindText {
			return fmt.Errorf("block: text slot %d path %v addresses no text node", slot.Index, slot.Path)
		}
		target.Value = value
		h.patches++
	case SlotChild:
		if len(slot.Path) == 0 {
			return fmt.Errorf("block: child slot %d at template root", slot.Index)
		}
		parent := h.tree.Child(slot.Path[:len(slot.Path)-1]...)
		idx := slot.Path[len(slot.Path)-1]
		if parent == nil || idx >= len(parent.Children) {
			return fmt.Errorf("block: child slot %d path %v addresses no node", slot.Index, slot.Path)
		}
		replacement, err := h.patchChildValue(slot.Index, value)
		if err != nil {
			return err
		}
		if replacement != nil {
			parent.Children[idx] = replacement
			h.patches++
		}
	default:
		return fmt.Errorf("block: unknown slot kind %v", slot.Kind)
	}
	return nil
}

// patchChildValue resolves the new value of a child slot. It returns a
// replacement node when the child must be swapped, or nil when a nested
// block absorbed the update in place.
func (h *Handle) patchChildValue(index int, value any) (*ui.Node, error) {
	node, isNode := value.(*ui.Node)
	if isNode && node != nil && node.Kind == ui.KindBlock {
		inst, ok := node.Value.(*instance)
		if !ok {
			return nil, fmt.Errorf("block: malformed block node payload %T", node.Value)
		}
		if nested := h.nested[index]; nested != nil && nested.def == inst.def {
			return nil, nested.Patch(node)
		}
		nested, err := Mount(node)
		if err != nil {
			return nil, err
		}
		h.nested[index] = nested
		return nested.tree, nil
	}
	delete(h.nested, index)
	return materializeChild(value), nil
}

func (h *Handle) buildChild(index int, value any) *ui.Node {
	node, isNode := value.(*ui.Node)
	if isNode && node != nil && node.Kind == ui.KindBlock {
		nested, err := Mount(node)
		if err == nil {
			h.nested[index] = nested
			return nested.tree
		}
	}
	return materializeChild(value)
}

// materializeChild turns a child-slot value into a concrete node. A nil node
// becomes an empty fragment so sibling template paths stay stable.
func materializeChild(value any) *ui.Node {
	switch v := value.(type) {
	case nil:
		return &ui.Node{Kind: ui.KindFragment}
	case *ui.Node:
		if v == nil {
			return &ui.Node{Kind: ui.KindFragment}
		}
		return expandPlain(v)
	default:
		return &ui.Node{Kind: ui.KindText, Value: value}
	}
}

// expandPlain deep-copies a tree, expanding any embedded block nodes through
// their templates.
func expandPlain(n *ui.Node) *ui.Node {
	if n == nil {
		return nil
	}
	if n.Kind == ui.KindBlock {
		if inst, ok := n.Value.(*instance); ok {
			nested := &Handle{nested: make(map[int]*Handle)}
			nested.def = inst.def
			nested.prev = make([]any, len(inst.values))
			copy(nested.prev, inst.values)
			return inst.def.root.build(inst.values, nested)
		}
		return &ui.Node{Kind: ui.KindFragment}
	}
	out := &ui.Node{Kind: n.Kind, Tag: n.Tag, Value: n.Value}
	if n.Attrs != nil {
		out.Attrs = make([]ui.AttrPair, len(n.Attrs))
		copy(out.Attrs, n.Attrs)
	}
	if n.Children != nil {
		out.Children = make([]*ui.Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = expandPlain(c)
		}
	}
	return out
}

func (n *elemTpl) build(values []any, h *Handle) *ui.Node {
	out := &ui.Node{Kind: ui.KindElement, Tag: n.tag}
	for _, a := range n.attrs {
		switch attr := a.(type) {
		case staticAttrTpl:
			out.Attrs = append(out.Attrs, ui.AttrPair{Name: attr.name, Value: attr.value})
		case attrSlotTpl:
			out.Attrs = append(out.Attrs, ui.AttrPair{Name: attr.name, Value: values[attr.index]})
		}
	}
	for _, child := range n.children {
		out.Children = append(out.Children, child.build(values, h))
	}
	return out
}

func (n *fragTpl) build(values []any, h *Handle) *ui.Node {
	out := &ui.Node{Kind: ui.KindFragment}
	for _, child := range n.children {
		out.Children = append(out.Children, child.build(values, h))
	}
	return out
}

func (n staticTextTpl) build(values []any, h *Handle) *ui.Node {
	return &ui.Node{Kind: ui.KindText, Value: n.value}
}

func (n textSlotTpl) build(values []any, h *Handle) *ui.Node {
	return &ui.Node{Kind: ui.KindText, Value: values[n.index]}
}

func (n childSlotTpl) build(values []any, h *Handle) *ui.Node {
	return h.buildChild(n.index, values[n.index])
}
