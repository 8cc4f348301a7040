package workspace

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/document"
	"github.com/CWBudde/go-rspec-lsp/internal/syntax"
)

// exampleGroupMethods open an example group whose description names the
// helpers declared inside it.
var exampleGroupMethods = map[string]bool{
	"describe":            true,
	"context":             true,
	"feature":             true,
	"shared_examples":     true,
	"shared_examples_for": true,
	"shared_context":      true,
	"example_group":       true,
	"fdescribe":           true,
	"fcontext":            true,
	"xdescribe":           true,
	"xcontext":            true,
}

// ExtractHelpers collects the helper declarations of a parsed document:
// receiver-less `let`, `let!`, `subject` and `subject!` calls. `let` needs
// exactly one symbol or string argument naming the helper. `subject` without
// arguments declares `subject`; a named subject declares both its name and
// `subject`.
func ExtractHelpers(tree *syntax.Tree, text *document.Text, documentURI string) []Entry {
	var entries []Entry
	path := DocumentPath(documentURI)

	dispatcher := syntax.NewDispatcher(tree)
	dispatcher.OnCallEnter(func(site syntax.CallSite) {
		if !site.HasMessage || !site.Receiverless() || site.Node.Type() != "call" {
			return
		}

		kind := HelperKind(site.Message)
		switch kind {
		case KindLet, KindLetBang, KindSubject, KindSubjectBang:
		default:
			return
		}

		base := Entry{
			Kind:      kind,
			URI:       documentURI,
			Path:      path,
			Range:     nodeRange(text, site.Node),
			Container: containerOf(tree, site.Node),
		}

		args := helperArguments(site.Node)
		isSubject := kind == KindSubject || kind == KindSubjectBang

		if isSubject && len(args) == 0 {
			entries = append(entries, subjectEntry(base, text, site.Node))
			return
		}

		if len(args) != 1 {
			return
		}

		name, ok := helperName(tree, args[0])
		if !ok {
			return
		}

		named := base
		named.Name = name
		named.NameRange = nodeRange(text, args[0])
		entries = append(entries, named)

		if isSubject {
			entries = append(entries, subjectEntry(base, text, site.Node))
		}
	})
	dispatcher.Dispatch(tree.Root())

	return entries
}

// subjectEntry declares the implicit `subject` helper, named by the method
// identifier itself.
func subjectEntry(base Entry, text *document.Text, call *sitter.Node) Entry {
	entry := base
	entry.Name = "subject"
	entry.NameRange = nodeRange(text, call.ChildByFieldName("method"))

	return entry
}

// helperArguments returns the positional arguments of a call, ignoring
// comments.
func helperArguments(call *sitter.Node) []*sitter.Node {
	list := call.ChildByFieldName("arguments")
	if list == nil {
		return nil
	}

	var args []*sitter.Node
	count := int(list.NamedChildCount())
	for i := 0; i < count; i++ {
		arg := list.NamedChild(i)
		if arg == nil || arg.Type() == "comment" {
			continue
		}
		args = append(args, arg)
	}

	return args
}

// helperName extracts the helper name from a symbol or plain string
// argument. Interpolated strings and symbols are rejected.
func helperName(tree *syntax.Tree, arg *sitter.Node) (string, bool) {
	switch arg.Type() {
	case "simple_symbol":
		return strings.TrimPrefix(tree.Text(arg), ":"), true

	case "string", "delimited_symbol":
		var name strings.Builder
		count := int(arg.NamedChildCount())
		for i := 0; i < count; i++ {
			part := arg.NamedChild(i)
			if part.Type() != "string_content" {
				return "", false
			}
			name.WriteString(tree.Text(part))
		}
		if name.Len() == 0 {
			return "", false
		}
		return name.String(), true
	}

	return "", false
}

// containerOf returns the description of the nearest enclosing example
// group, e.g. `Foo` for `RSpec.describe Foo do`.
func containerOf(tree *syntax.Tree, node *sitter.Node) string {
	for current := node.Parent(); current != nil; current = current.Parent() {
		if current.Type() != "call" {
			continue
		}

		method := current.ChildByFieldName("method")
		if method == nil || !exampleGroupMethods[tree.Text(method)] {
			continue
		}

		args := helperArguments(current)
		if len(args) == 0 {
			return tree.Text(method)
		}

		return strings.Trim(tree.Text(args[0]), `"'`)
	}

	return ""
}

func nodeRange(text *document.Text, node *sitter.Node) protocol.Range {
	if node == nil {
		return protocol.Range{}
	}

	start, end := node.StartPoint(), node.EndPoint()

	return protocol.Range{
		Start: text.PointPosition(start.Row, start.Column),
		End:   text.PointPosition(end.Row, end.Column),
	}
}
