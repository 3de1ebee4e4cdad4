package block

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/evilbocchi/decillion/pkg/ui"
)

// labelDef mirrors the generated output for a one-slot text component.
var labelDef = Define(Elem("TextLabel",
	StaticAttr("TextColor", "#e6e6e6"),
	AttrSlot(0, "Text"),
))

func TestDefineSlotTable(t *testing.T) {
	def := Define(Elem("Frame",
		AttrSlot(0, "Title"),
		Elem("TextLabel", TextSlot(1)),
		ChildSlot(2),
	), AlwaysPatch(2))

	slots := def.Slots()
	if len(slots) != 3 {
		t.Fatalf("slots = %d, want 3", len(slots))
	}

	want := []SlotInfo{
		{Index: 0, Kind: SlotAttr, Path: []int{}, Attr: "Title"},
		{Index: 1, Kind: SlotText, Path: []int{0, 0}},
		{Index: 2, Kind: SlotChild, Path: []int{1}, Always: true},
	}
	for i, w := range want {
		got := slots[i]
		if got.Index != w.Index || got.Kind != w.Kind || got.Attr != w.Attr || got.Always != w.Always {
			t.Errorf("slot %d = %+v, want %+v", i, got, w)
		}
		if fmt.Sprint(got.Path) != fmt.Sprint(w.Path) {
			t.Errorf("slot %d path = %v, want %v", i, got.Path, w.Path)
		}
	}
}

func TestDefinePanicsOnDuplicateIndex(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate slot index accepted")
		}
	}()
	Define(Elem("Frame", TextSlot(0), TextSlot(0)))
}

func TestDefinePanicsOnIndexGap(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("non-contiguous slot index accepted")
		}
	}()
	Define(Elem("Frame", TextSlot(0), TextSlot(2)))
}

func TestRenderPanicsOnArityMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("wrong value count accepted")
		}
	}()
	Render(labelDef, "one", "two")
}

func TestMountExpandsTemplate(t *testing.T) {
	h, err := Mount(Render(labelDef, "hello"))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	want := ui.E("TextLabel",
		ui.Attr("TextColor", "#e6e6e6"),
		ui.Attr("Text", "hello"),
	)
	if diff := cmp.Diff(want, h.Tree()); diff != "" {
		t.Errorf("mounted tree (-want +got):\n%s", diff)
	}
	if h.PatchCount() != 0 {
		t.Errorf("PatchCount = %d after mount", h.PatchCount())
	}
}

func TestMountPlainTree(t *testing.T) {
	orig := ui.E("Frame", ui.Text("x"))
	h, err := Mount(orig)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if diff := cmp.Diff(orig, h.Tree()); diff != "" {
		t.Errorf("plain mount (-want +got):\n%s", diff)
	}
	// The mounted tree is a copy, not an alias.
	h.Tree().Children[0].Value = "mutated"
	if orig.Children[0].Value != "x" {
		t.Error("mount aliased the input tree")
	}
}

func TestMountNil(t *testing.T) {
	if _, err := Mount(nil); err == nil {
		t.Error("nil mount accepted")
	}
}

func TestPatchOnlyChangedSlots(t *testing.T) {
	def := Define(Elem("Frame",
		AttrSlot(0, "Title"),
		Elem("TextLabel", TextSlot(1)),
	))

	h, err := Mount(Render(def, "t1", "b1"))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// Identical values: nothing to do.
	if err := h.Patch(Render(def, "t1", "b1")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 0 {
		t.Errorf("PatchCount = %d after no-op update", h.PatchCount())
	}

	// One slot changed: exactly one patch.
	if err := h.Patch(Render(def, "t1", "b2")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 1 {
		t.Errorf("PatchCount = %d, want 1", h.PatchCount())
	}
	if got := h.Tree().Child(0, 0).Value; got != "b2" {
		t.Errorf("text = %v, want b2", got)
	}
	if got, _ := h.Tree().AttrValue("Title"); got != "t1" {
		t.Errorf("untouched attr = %v", got)
	}

	// Both slots changed.
	if err := h.Patch(Render(def, "t2", "b3")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 3 {
		t.Errorf("PatchCount = %d, want 3", h.PatchCount())
	}
}

func TestPatchAlwaysSlots(t *testing.T) {
	def := Define(Elem("Frame", ChildSlot(0)), AlwaysPatch(0))

	child := ui.E("TextLabel", ui.Text("v"))
	h, err := Mount(Render(def, child))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// The value compares deep-equal, but an opaque slot is re-applied anyway.
	if err := h.Patch(Render(def, child)); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 1 {
		t.Errorf("PatchCount = %d, want the opaque slot re-applied", h.PatchCount())
	}
}

func TestPatchChildSlotValues(t *testing.T) {
	def := Define(Elem("Frame", ChildSlot(0), StaticText("after")))

	h, err := Mount(Render(def, ui.Text("first")))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// Swap in a different subtree.
	if err := h.Patch(Render(def, ui.E("TextLabel", ui.Text("second")))); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got := h.Tree().Child(0); got.Tag != "TextLabel" {
		t.Errorf("child = %+v", got)
	}
	if got := h.Tree().Child(1); got.Value != "after" {
		t.Errorf("static sibling displaced: %+v", got)
	}

	// Nil collapses to an empty fragment so sibling paths stay stable.
	if err := h.Patch(Render(def, nil)); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got := h.Tree().Child(0); got.Kind != ui.KindFragment || len(got.Children) != 0 {
		t.Errorf("nil child = %+v, want empty fragment", got)
	}
	if got := h.Tree().Child(1); got.Value != "after" {
		t.Errorf("static sibling displaced after nil: %+v", got)
	}

	// A non-node value becomes a text leaf.
	if err := h.Patch(Render(def, 42)); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got := h.Tree().Child(0); got.Kind != ui.KindText || got.Value != 42 {
		t.Errorf("scalar child = %+v, want text leaf", got)
	}
}

func TestPatchNestedBlock(t *testing.T) {
	outer := Define(Elem("Frame", ChildSlot(0)), AlwaysPatch(0))

	h, err := Mount(Render(outer, Render(labelDef, "a")))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if got, _ := h.Tree().Child(0).AttrValue("Text"); got != "a" {
		t.Fatalf("nested text = %v", got)
	}
	inner := h.Tree().Child(0)

	// Same nested template: the nested handle patches in place without
	// swapping the child node.
	if err := h.Patch(Render(outer, Render(labelDef, "b"))); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.Tree().Child(0) != inner {
		t.Error("nested block was rebuilt instead of patched")
	}
	if got, _ := inner.AttrValue("Text"); got != "b" {
		t.Errorf("nested text = %v, want b", got)
	}
	if h.PatchCount() != 1 {
		t.Errorf("PatchCount = %d, want the one nested slot patch", h.PatchCount())
	}

	// Unchanged nested values patch nothing even through an opaque outer slot.
	if err := h.Patch(Render(outer, Render(labelDef, "b"))); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 1 {
		t.Errorf("PatchCount = %d after nested no-op", h.PatchCount())
	}
}

func TestPatchDifferentTemplateRebuilds(t *testing.T) {
	other := Define(Elem("Frame", TextSlot(0)))

	h, err := Mount(Render(labelDef, "x"))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := h.Patch(Render(other, "y")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.Tree().Tag != "Frame" {
		t.Errorf("tree = %+v, want rebuilt from the new template", h.Tree())
	}
	if got := h.Tree().Child(0).Value; got != "y" {
		t.Errorf("text = %v", got)
	}
}

func TestPatchPlainTree(t *testing.T) {
	h, err := Mount(Render(labelDef, "x"))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	plain := ui.E("Frame", ui.Text("plain"))
	if err := h.Patch(plain); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if diff := cmp.Diff(plain, h.Tree()); diff != "" {
		t.Errorf("plain patch (-want +got):\n%s", diff)
	}
}

// The optimized form of a component must be observationally identical to the
// hand-written original across arbitrary update sequences.
func TestOptimizedRenderEquivalence(t *testing.T) {
	type props struct {
		Title string
		Count int
		Badge *ui.Node
	}

	original := func(p props) *ui.Node {
		return ui.E("Frame",
			ui.Attr("Title", p.Title),
			ui.E("TextLabel", ui.Text(p.Count)),
			p.Badge,
			ui.E("Frame", ui.Attr("BackgroundColor", "#202020")),
		)
	}

	def := Define(Elem("Frame",
		AttrSlot(0, "Title"),
		Elem("TextLabel", TextSlot(1)),
		ChildSlot(2),
		Elem("Frame", StaticAttr("BackgroundColor", "#202020")),
	))
	optimized := func(p props) *ui.Node {
		return Render(def, p.Title, p.Count, p.Badge)
	}

	states := []props{
		{Title: "a", Count: 0, Badge: ui.Text("new")},
		{Title: "a", Count: 1, Badge: ui.Text("new")},
		{Title: "b", Count: 1, Badge: nil},
		{Title: "b", Count: 1, Badge: ui.E("TextLabel", ui.Text("!"))},
		{Title: "b", Count: 1, Badge: ui.E("TextLabel", ui.Text("!"))},
	}

	h, err := Mount(optimized(states[0]))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	for i, p := range states {
		if i > 0 {
			if err := h.Patch(optimized(p)); err != nil {
				t.Fatalf("state %d: Patch: %v", i, err)
			}
		}
		want := original(p).Flatten()
		got := h.Tree().Flatten()
		if !reflect.DeepEqual(want, got) {
			t.Errorf("state %d: optimized tree diverged\nwant %+v\n got %+v", i, want, got)
		}
	}
}

// Updating one prop must leave every other slot untouched.
func TestUpdateSelectivity(t *testing.T) {
	def := Define(Elem("Frame",
		AttrSlot(0, "Title"),
		Elem("TextLabel", TextSlot(1)),
	))

	h, err := Mount(Render(def, "title", "body"))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// An update that changes neither slot value performs zero patches.
	if err := h.Patch(Render(def, "title", "body")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 0 {
		t.Errorf("unrelated update performed %d patches", h.PatchCount())
	}

	// An update that changes one prop performs exactly one patch.
	if err := h.Patch(Render(def, "title", "body2")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if h.PatchCount() != 1 {
		t.Errorf("single-prop update performed %d patches", h.PatchCount())
	}
}

func TestStaticBlockNeverPatches(t *testing.T) {
	def := Define(Elem("Frame", StaticAttr("Size", 4), StaticText("fixed")))

	h, err := Mount(Render(def))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := h.Patch(Render(def)); err != nil {
			t.Fatalf("Patch: %v", err)
		}
	}
	if h.PatchCount() != 0 {
		t.Errorf("static block performed %d patches", h.PatchCount())
	}
}

func TestFragmentTemplate(t *testing.T) {
	def := Define(Frag(
		Elem("TextLabel", TextSlot(0)),
		StaticText("divider"),
	))

	h, err := Mount(Render(def, "top"))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	want := ui.Group(
		ui.E("TextLabel", ui.Text("top")),
		ui.Text("divider"),
	)
	if diff := cmp.Diff(want, h.Tree()); diff != "" {
		t.Errorf("fragment mount (-want +got):\n%s", diff)
	}

	if err := h.Patch(Render(def, "next")); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if got := h.Tree().Child(0, 0).Value; got != "next" {
		t.Errorf("text = %v", got)
	}
}
