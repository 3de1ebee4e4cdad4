package decillion

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"go/types"
	"testing"
)

// uiStub mirrors the exported surface of pkg/ui closely enough for type
// checking test components. Classification only cares about resolved
// declarations, not behavior, so the bodies are empty.
const uiStub = `package ui

type Node struct{}

func (n *Node) applyTo(parent *Node) {}

type Part interface {
	applyTo(n *Node)
}

func E(tag string, parts ...Part) *Node       { return nil }
func Attr(name string, value any) Part        { return nil }
func Text(value any) *Node                    { return nil }
func Group(children ...*Node) *Node           { return nil }
func If(cond bool, then *Node, els *Node) *Node { return nil }

func ForEach[T any](items []T, render func(T) *Node) *Node { return nil }

type Color struct{ R, G, B float64 }

func RGB(r, g, b int) Color { return Color{} }
func Hex(s string) Color    { return Color{} }

type Scale struct {
	Fraction float64
	Offset   int
}

func Dim(fraction float64, offset int) Scale { return Scale{} }
`

type stubImporter struct {
	pkgs map[string]*types.Package
}

func (i stubImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := i.pkgs[path]; ok {
		return pkg, nil
	}
	return nil, fmt.Errorf("no test stub for import %q", path)
}

// checked is one type-checked test source file.
type checked struct {
	fset *token.FileSet
	file *ast.File
	pkg  *types.Package
	info *types.Info
}

// typecheck parses and type-checks a component source against the ui stub.
// Type errors are tolerated so tests can exercise unresolved identifiers;
// the partially filled info maps are exactly what the transformer sees in
// that situation.
func typecheck(t *testing.T, src string) *checked {
	t.Helper()
	fset := token.NewFileSet()

	uiFile, err := parser.ParseFile(fset, "ui.go", uiStub, 0)
	if err != nil {
		t.Fatalf("parse ui stub: %v", err)
	}
	uiConf := types.Config{}
	uiPkg, err := uiConf.Check(defaultMarkupPath, fset, []*ast.File{uiFile}, nil)
	if err != nil {
		t.Fatalf("check ui stub: %v", err)
	}

	file, err := parser.ParseFile(fset, "component.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse component source: %v", err)
	}
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	conf := types.Config{
		Importer: stubImporter{pkgs: map[string]*types.Package{defaultMarkupPath: uiPkg}},
		Error:    func(error) {}, // tolerated; see doc comment
	}
	pkg, _ := conf.Check("example.com/app", fset, []*ast.File{file}, info)

	return &checked{fset: fset, file: file, pkg: pkg, info: info}
}

// transformSource runs the default transformer over a source string and
// returns the report plus the printed output.
func transformSource(t *testing.T, src string, opts ...Option) (*Report, string) {
	t.Helper()
	c := typecheck(t, src)
	tr := New(opts...)
	report, err := tr.TransformFile(c.fset, c.file, c.pkg, c.info)
	if err != nil {
		t.Fatalf("TransformFile: %v", err)
	}
	return report, printFile(t, c.fset, c.file)
}

func printFile(t *testing.T, fset *token.FileSet, file *ast.File) string {
	t.Helper()
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		t.Fatalf("format output: %v", err)
	}
	return buf.String()
}

// renderOf extracts the render expression of the named top-level function,
// then partitions it with a default classifier. Shared by the classifier
// and partitioner tests.
func planFor(t *testing.T, c *checked, funcName string) (*BlockPlan, error) {
	t.Helper()
	fn := findFunc(t, c.file, funcName)
	render, _, err := resolveRender(fn.Body)
	if err != nil {
		t.Fatalf("resolveRender(%s): %v", funcName, err)
	}
	dec := &decoder{info: c.info, markupPath: defaultMarkupPath}
	cls := newClassifier(c.info, DefaultAllowList().resolve())
	return partition(dec.decode(render), cls)
}

func findFunc(t *testing.T, file *ast.File, name string) *ast.FuncDecl {
	t.Helper()
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Name.Name == name {
			return fn
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

// classifierFor builds a classifier plus a lookup for expressions inside
// the named function's render return.
func classifierFor(t *testing.T, c *checked) *classifier {
	t.Helper()
	return newClassifier(c.info, DefaultAllowList().resolve())
}
