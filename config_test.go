package decillion

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultAllowList(t *testing.T) {
	allow := DefaultAllowList().resolve()
	for _, name := range []string{
		defaultMarkupPath + ".RGB",
		defaultMarkupPath + ".Hex",
		defaultMarkupPath + ".Dim",
		"len",
	} {
		if !allow[name] {
			t.Errorf("default allow-list missing %q", name)
		}
	}
	// Markup constructors must stay off the list: they are structural, and
	// conditional/list helpers have to remain opaque boundaries.
	for _, name := range []string{
		defaultMarkupPath + ".E",
		defaultMarkupPath + ".If",
		defaultMarkupPath + ".ForEach",
	} {
		if allow[name] {
			t.Errorf("%q must not be allow-listed", name)
		}
	}
}

func TestParseAllowList(t *testing.T) {
	list, err := ParseAllowList([]byte(`
calls:
  - example.com/theme.Accent
  - example.com/theme.Spacing
`))
	if err != nil {
		t.Fatalf("ParseAllowList: %v", err)
	}
	allow := list.resolve()
	if !allow["example.com/theme.Accent"] {
		t.Error("configured entry missing")
	}
	if !allow["len"] {
		t.Error("defaults dropped without replace_defaults")
	}
}

func TestParseAllowListReplaceDefaults(t *testing.T) {
	list, err := ParseAllowList([]byte(`
replace_defaults: true
calls:
  - example.com/theme.Accent
`))
	if err != nil {
		t.Fatalf("ParseAllowList: %v", err)
	}
	allow := list.resolve()
	if allow["len"] {
		t.Error("defaults kept despite replace_defaults")
	}
	if !allow["example.com/theme.Accent"] {
		t.Error("configured entry missing")
	}
}

func TestParseAllowListRejectsEmptyEntry(t *testing.T) {
	if _, err := ParseAllowList([]byte("calls:\n  - \"\"\n")); err == nil {
		t.Error("empty call name accepted")
	}
}

func TestParseAllowListRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseAllowList([]byte("calls: {not a list")); err == nil {
		t.Error("malformed document accepted")
	}
}

func TestLoadAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allow.yaml")
	if err := os.WriteFile(path, []byte("calls:\n  - example.com/theme.Accent\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := LoadAllowList(path)
	if err != nil {
		t.Fatalf("LoadAllowList: %v", err)
	}
	if !list.resolve()["example.com/theme.Accent"] {
		t.Error("entry missing after load")
	}

	if _, err := LoadAllowList(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestResolveNilList(t *testing.T) {
	var list *AllowList
	if !list.resolve()["len"] {
		t.Error("nil list must still carry the defaults")
	}
}
