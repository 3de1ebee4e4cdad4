package decillion

import (
	"go/ast"
	"strings"
)

// SkipDirective is the marker that opts a component out of optimization. It
// is recognized anywhere inside a comment attached to the component's
// declaration: the doc comment, or a line/block comment on the lines
// immediately preceding (or trailing on the same line as) the declaration.
const SkipDirective = "decillion:skip"

// SkipDecision is computed once per component declaration, before any other
// analysis, and never revisited.
type SkipDecision struct {
	Skip   bool
	Reason string
}

func optimizeDecision() SkipDecision {
	return SkipDecision{}
}

func skipDecision(reason string) SkipDecision {
	return SkipDecision{Skip: true, Reason: reason}
}

// decideSkip inspects the declaration's attached trivia for the directive.
// Comment attachment is a side-channel lookup through the file's comment
// map, since comments are not embedded in the declaration node itself (doc
// comments excepted). Pure: no user code is evaluated, only trivia and
// declaration syntax are read. The remaining rule, unsupported declaration
// forms, is applied by the driver once it has tried to resolve the render
// expression.
func decideSkip(decl ast.Decl, doc *ast.CommentGroup, cmap ast.CommentMap) SkipDecision {
	if commentGroupHasDirective(doc) {
		return skipDecision("skip directive in documentation comment")
	}
	for _, group := range cmap[decl] {
		if commentGroupHasDirective(group) {
			return skipDecision("skip directive in attached comment")
		}
	}
	return optimizeDecision()
}

// commentGroupHasDirective searches the raw comment text. CommentGroup.Text
// is not used here: it strips directive-style comments, and
// "//decillion:skip" is exactly that style.
func commentGroupHasDirective(group *ast.CommentGroup) bool {
	if group == nil {
		return false
	}
	for _, c := range group.List {
		if strings.Contains(c.Text, SkipDirective) {
			return true
		}
	}
	return false
}
