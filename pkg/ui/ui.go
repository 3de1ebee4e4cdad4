// Package ui is the declarative markup DSL that components are written in.
//
// A component is an ordinary Go function returning *Node, built from nested
// constructor calls: E for elements, Text for text leaves, Group for
// fragments, Attr for attributes. The package doubles as the reference tree
// implementation used by the block runtime and the transformer's tests.
package ui

// NodeKind discriminates the variants of Node.
type NodeKind int

const (
	KindElement NodeKind = iota
	KindText
	KindFragment
	// KindBlock marks a node produced by an optimized component: a template
	// reference plus current slot values. The ui package treats it as opaque;
	// the block package knows how to materialize and patch it.
	KindBlock
)

var kindNames = [...]string{
	KindElement:  "element",
	KindText:     "text",
	KindFragment: "fragment",
	KindBlock:    "block",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is one vertex of a UI tree. Exactly one variant is populated,
// selected by Kind. Nodes are mutable so that a mounted tree can be patched
// in place by the runtime.
type Node struct {
	Kind     NodeKind
	Tag      string     // KindElement
	Attrs    []AttrPair // KindElement, in source order
	Children []*Node    // KindElement, KindFragment
	Value    any        // KindText payload, or block instance for KindBlock
}

// AttrPair is a single named attribute on an element. Order is preserved
// because the engine applies attributes in declaration order.
type AttrPair struct {
	Name  string
	Value any
}

// Part is anything that may appear inside an E(...) call: attributes and
// child nodes.
type Part interface {
	applyTo(*Node)
}

// attrPart carries an attribute into its element.
type attrPart AttrPair

func (a attrPart) applyTo(n *Node) {
	n.Attrs = append(n.Attrs, AttrPair(a))
}

func (n *Node) applyTo(parent *Node) {
	if n == nil {
		return
	}
	parent.Children = append(parent.Children, n)
}

// E constructs an element node with the given tag. Parts are applied in
// order: Attr parts become attributes, nodes become children.
func E(tag string, parts ...Part) *Node {
	n := &Node{Kind: KindElement, Tag: tag}
	for _, p := range parts {
		if p != nil {
			p.applyTo(n)
		}
	}
	return n
}

// Attr constructs an attribute part. The value may be any engine-compatible
// property value, including event handler functions.
func Attr(name string, value any) Part {
	return attrPart{Name: name, Value: value}
}

// Text constructs a text leaf.
func Text(value any) *Node {
	return &Node{Kind: KindText, Value: value}
}

// Group constructs a fragment: a node that holds children without
// introducing an element of its own.
func Group(children ...*Node) *Node {
	return &Node{Kind: KindFragment, Children: children}
}

// If returns then when cond is true and els otherwise. Either branch may be
// nil. Conditional structure is inherently dynamic, so the optimizer treats
// the whole expression as an opaque subtree.
func If(cond bool, then *Node, els *Node) *Node {
	if cond {
		return then
	}
	return els
}

// ForEach maps a slice to a fragment of child nodes. Variable-length child
// lists are structurally dynamic, so the optimizer treats the whole
// expression as an opaque subtree.
func ForEach[T any](items []T, render func(T) *Node) *Node {
	children := make([]*Node, 0, len(items))
	for _, item := range items {
		if n := render(item); n != nil {
			children = append(children, n)
		}
	}
	return &Node{Kind: KindFragment, Children: children}
}

// Clone returns a deep copy of the node. Block nodes share their instance
// payload; everything else is copied.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Tag: n.Tag, Value: n.Value}
	if n.Attrs != nil {
		out.Attrs = make([]AttrPair, len(n.Attrs))
		copy(out.Attrs, n.Attrs)
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Child returns the child at the given index path from n, or nil when the
// path does not address a node.
func (n *Node) Child(path ...int) *Node {
	cur := n
	for _, i := range path {
		if cur == nil || i < 0 || i >= len(cur.Children) {
			return nil
		}
		cur = cur.Children[i]
	}
	return cur
}

// SetAttr sets the named attribute, replacing an existing pair in place to
// keep attribute order stable.
func (n *Node) SetAttr(name string, value any) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, AttrPair{Name: name, Value: value})
}

// AttrValue returns the value of the named attribute and whether it exists.
func (n *Node) AttrValue(name string) (any, bool) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			return n.Attrs[i].Value, true
		}
	}
	return nil, false
}

// Flatten returns the canonical observable form of the tree: nil children
// are dropped and fragment children are spliced into their parent's child
// list. Two renders are considered equivalent when their flattened trees are
// deep-equal. The receiver is not modified.
func (n *Node) Flatten() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Kind: n.Kind, Tag: n.Tag, Value: n.Value}
	if n.Attrs != nil {
		out.Attrs = make([]AttrPair, len(n.Attrs))
		copy(out.Attrs, n.Attrs)
	}
	out.Children = flattenChildren(n.Children)
	return out
}

func flattenChildren(children []*Node) []*Node {
	var out []*Node
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Kind == KindFragment {
			out = append(out, flattenChildren(c.Children)...)
			continue
		}
		out = append(out, c.Flatten())
	}
	return out
}
