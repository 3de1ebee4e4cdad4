package decillion

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/go/ast/astutil"
)

// component is one discovered component definition: a top-level function or
// a function-valued variable initializer whose result is the markup Node.
type component struct {
	name string
	decl ast.Decl
	doc  *ast.CommentGroup

	// body is the function body to rewrite; nil when the declaration form
	// cannot expose one (dynamically computed exports, methods are carried
	// with their body but rejected later).
	body *ast.BlockStmt

	// unsupported carries the rule-3 judgment for declaration forms that
	// are recognizably components but cannot be analyzed.
	unsupported string
}

// TransformFile runs the pass over one type-checked file. The file is
// rewritten in place: optimized components get a new body and a preceding
// template declaration, everything else is left untouched. Per-component
// failures degrade that component to its original form and never abort the
// file; the returned error is reserved for caller misuse.
func (t *Transformer) TransformFile(fset *token.FileSet, file *ast.File, pkg *types.Package, info *types.Info) (*Report, error) {
	if fset == nil || file == nil || info == nil {
		return nil, fmt.Errorf("transform: fset, file and info are required")
	}

	cmap := ast.NewCommentMap(fset, file, file.Comments)
	taken := t.takenNames(file, pkg)
	report := &Report{}

	newDecls := make([]ast.Decl, 0, len(file.Decls))
	for _, decl := range file.Decls {
		comp := t.componentOf(decl, info)
		if comp == nil {
			newDecls = append(newDecls, decl)
			continue
		}
		t.metrics.IncrementComponentSeen()

		result := ComponentResult{Name: comp.name}

		// The skip decision comes first and gates the whole pipeline: a
		// directive wins over every other judgment, including rule 3.
		if decision := decideSkip(decl, comp.doc, cmap); decision.Skip {
			t.metrics.IncrementSkipDirective()
			t.metrics.IncrementComponentSkipped()
			result.Reason = decision.Reason
			report.Components = append(report.Components, result)
			newDecls = append(newDecls, decl)
			continue
		}

		if comp.unsupported != "" {
			t.metrics.IncrementUnsupportedForm()
			t.metrics.IncrementComponentSkipped()
			result.Reason = fmt.Sprintf("%s: %v", comp.unsupported, ErrUnsupportedForm)
			report.Components = append(report.Components, result)
			newDecls = append(newDecls, decl)
			continue
		}

		varName := freshName(comp.name, taken, localNames(comp.decl, info))
		varDecl, newBody, plan, err := t.optimizeComponent(comp, info, varName)
		if err != nil {
			t.recordFailure(comp.name, err)
			result.Reason = err.Error()
			report.Components = append(report.Components, result)
			newDecls = append(newDecls, decl)
			continue
		}

		taken[varName] = true
		comp.body.List = newBody.List
		newDecls = append(newDecls, varDecl, decl)

		result.Transformed = true
		result.Slots = len(plan.Slots)
		result.OpaqueSlots = len(plan.OpaqueSlots())
		report.Components = append(report.Components, result)
		report.Changed = true

		t.metrics.IncrementComponentOptimized()
		t.metrics.AddSlotsEmitted(int64(len(plan.Slots)), int64(len(plan.OpaqueSlots())))
		log.Debugf("optimized component %s: %d slots (%d opaque)",
			comp.name, len(plan.Slots), len(plan.OpaqueSlots()))
	}

	file.Decls = newDecls
	if report.Changed {
		astutil.AddNamedImport(fset, file, t.runtimeName, t.runtimePath)
	}
	t.metrics.IncrementFileProcessed()
	return report, nil
}

func (t *Transformer) recordFailure(name string, err error) {
	switch {
	case errors.Is(err, ErrStructuralAmbiguity):
		t.metrics.IncrementStructuralDemote()
		log.Debugf("component %s left unchanged: %v", name, err)
	case errors.Is(err, ErrInternalInvariant):
		t.metrics.IncrementInvariantFailure()
		log.Errorf("component %s left unchanged: %v", name, err)
	case errors.Is(err, ErrUnsupportedForm):
		t.metrics.IncrementUnsupportedForm()
		log.Debugf("component %s left unchanged: %v", name, err)
	default:
		log.Warningf("component %s left unchanged: %v", name, err)
	}
	t.metrics.IncrementComponentSkipped()
}

// optimizeComponent runs the classifier → partitioner → synthesizer
// pipeline for one component. Panics anywhere in the pipeline are invariant
// violations scoped to this component, never to the file.
func (t *Transformer) optimizeComponent(comp *component, info *types.Info, varName string) (varDecl *ast.GenDecl, newBody *ast.BlockStmt, plan *BlockPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			varDecl, newBody, plan = nil, nil, nil
			err = fmt.Errorf("panic in pipeline: %v: %w", r, ErrInternalInvariant)
		}
	}()

	render, prefix, err := resolveRender(comp.body)
	if err != nil {
		return nil, nil, nil, err
	}

	dec := &decoder{info: info, markupPath: t.markupPath}
	root := dec.decode(render)

	cls := newClassifier(info, t.allow)
	plan, err = partition(root, cls)
	if cls.unresolved > 0 {
		t.metrics.AddUnresolvedBindings(int64(cls.unresolved))
		log.Warningf("component %s: %d identifier(s) degraded to opaque: %v",
			comp.name, cls.unresolved, ErrUnresolvedBinding)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	syn := &synthesizer{runtimeName: t.runtimeName}
	varDecl = syn.construct(plan, varName)

	stmts := make([]ast.Stmt, 0, len(prefix)+1)
	stmts = append(stmts, prefix...)
	stmts = append(stmts, syn.update(plan, varName))
	newBody = &ast.BlockStmt{List: stmts}
	return varDecl, newBody, plan, nil
}

// componentOf recognizes component definitions. It returns nil for
// declarations that are not components at all, and a component with a
// populated unsupported reason for shapes rule 3 rejects.
func (t *Transformer) componentOf(decl ast.Decl, info *types.Info) *component {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if !t.returnsMarkup(d.Type, info) {
			return nil
		}
		comp := &component{name: d.Name.Name, decl: decl, doc: d.Doc, body: d.Body}
		switch {
		case d.Recv != nil:
			comp.unsupported = "method component"
		case d.Type.TypeParams != nil:
			comp.unsupported = "generic component"
		case d.Body == nil:
			comp.unsupported = "component without body"
		}
		return comp

	case *ast.GenDecl:
		if d.Tok != token.VAR || len(d.Specs) != 1 {
			return nil
		}
		spec, ok := d.Specs[0].(*ast.ValueSpec)
		if !ok || len(spec.Names) != 1 || len(spec.Values) != 1 {
			return nil
		}
		value := ast.Unparen(spec.Values[0])
		lit, isLit := value.(*ast.FuncLit)
		if isLit {
			if !t.returnsMarkup(lit.Type, info) {
				return nil
			}
			comp := &component{name: spec.Names[0].Name, decl: decl, doc: firstDoc(d.Doc, spec.Doc), body: lit.Body}
			return comp
		}
		// A component-typed variable whose initializer is not a literal
		// function (a computed export) is a component we cannot see into.
		if tv, ok := info.Types[spec.Values[0]]; ok {
			if sig, isSig := tv.Type.(*types.Signature); isSig && t.signatureReturnsMarkup(sig) {
				return &component{
					name:        spec.Names[0].Name,
					decl:        decl,
					doc:         firstDoc(d.Doc, spec.Doc),
					unsupported: "computed component value",
				}
			}
		}
		return nil

	default:
		return nil
	}
}

func (t *Transformer) returnsMarkup(ft *ast.FuncType, info *types.Info) bool {
	if ft.Results == nil || len(ft.Results.List) != 1 || len(ft.Results.List[0].Names) > 1 {
		return false
	}
	rt := info.TypeOf(ft.Results.List[0].Type)
	return rt != nil && markupNodeType(rt, t.markupPath)
}

func (t *Transformer) signatureReturnsMarkup(sig *types.Signature) bool {
	if sig.Results().Len() != 1 {
		return false
	}
	return markupNodeType(sig.Results().At(0).Type(), t.markupPath)
}

// resolveRender extracts the single markup return from a component body.
// Statements before the return are preserved in the rewritten body; their
// locals classify as ordinary dynamic bindings. Multiple returns, or a
// return that is not the final statement, is an unsupported form.
func resolveRender(body *ast.BlockStmt) (render ast.Expr, prefix []ast.Stmt, err error) {
	if body == nil || len(body.List) == 0 {
		return nil, nil, fmt.Errorf("empty body: %w", ErrUnsupportedForm)
	}
	if n := countReturns(body); n != 1 {
		return nil, nil, fmt.Errorf("%d returns in body: %w", n, ErrUnsupportedForm)
	}
	last, ok := body.List[len(body.List)-1].(*ast.ReturnStmt)
	if !ok {
		return nil, nil, fmt.Errorf("final statement is not a return: %w", ErrUnsupportedForm)
	}
	if len(last.Results) != 1 {
		return nil, nil, fmt.Errorf("return has %d results: %w", len(last.Results), ErrUnsupportedForm)
	}
	return last.Results[0], body.List[:len(body.List)-1], nil
}

// countReturns counts returns belonging to the body itself, not to nested
// function literals.
func countReturns(body *ast.BlockStmt) int {
	n := 0
	ast.Inspect(body, func(node ast.Node) bool {
		switch node.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			n++
		}
		return true
	})
	return n
}

// takenNames collects every name already visible at package and file level
// so generated template variables never collide.
func (t *Transformer) takenNames(file *ast.File, pkg *types.Package) map[string]bool {
	taken := make(map[string]bool)
	if pkg != nil {
		for _, name := range pkg.Scope().Names() {
			taken[name] = true
		}
	}
	for _, imp := range file.Imports {
		if imp.Name != nil {
			taken[imp.Name.Name] = true
		}
	}
	taken[t.runtimeName] = true
	return taken
}

// localNames collects every name declared inside a component, parameters
// included. The generated template variable must clear these too: a
// parameter or local of the same name would shadow the package-level var
// inside the rewritten body.
func localNames(decl ast.Decl, info *types.Info) map[string]bool {
	names := make(map[string]bool)
	ast.Inspect(decl, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			if obj := info.Defs[id]; obj != nil && id.Name != "_" {
				names[id.Name] = true
			}
		}
		return true
	})
	return names
}

// freshName derives the template variable name for a component: the
// component name lower-cased at the front with a Block suffix, uniquified
// against everything in scope.
func freshName(componentName string, taken ...map[string]bool) string {
	used := func(name string) bool {
		for _, m := range taken {
			if m[name] {
				return true
			}
		}
		return false
	}
	r, size := utf8.DecodeRuneInString(componentName)
	base := string(unicode.ToLower(r)) + componentName[size:] + "Block"
	name := base
	for n := 2; used(name); n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}
	return name
}

func firstDoc(groups ...*ast.CommentGroup) *ast.CommentGroup {
	for _, g := range groups {
		if g != nil {
			return g
		}
	}
	return nil
}
