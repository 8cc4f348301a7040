package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node types of the tree-sitter Ruby grammar used by this package.
const (
	nodeCall       = "call"
	nodeIdentifier = "identifier"
	nodeBlock      = "block"
	nodeDoBlock    = "do_block"
	nodeLambda     = "lambda"
	nodeBody       = "body_statement"
	nodeArguments  = "argument_list"
)

// CallSite is a method invocation found in the tree. Message is the invoked
// name; HasMessage is false for calls without one, such as `callable.()`.
type CallSite struct {
	Message    string
	HasMessage bool
	Node       *sitter.Node
	Start      sitter.Point
	End        sitter.Point
}

// Receiverless reports whether the call has no explicit receiver.
func (c CallSite) Receiverless() bool {
	if c.Node == nil || c.Node.Type() != nodeCall {
		return true
	}

	return c.Node.ChildByFieldName("receiver") == nil
}

// CallSiteFromNode returns the call-site represented by node, if any.
//
// A `call` node yields its method name. A bare identifier in expression
// position yields a receiver-less call-site too: Ruby only treats such a
// name as a variable once it has been assigned in scope, and deciding that
// is left to the caller's ScopeSet.
func (t *Tree) CallSiteFromNode(node *sitter.Node) (CallSite, bool) {
	if node == nil {
		return CallSite{}, false
	}

	site := CallSite{
		Node:  node,
		Start: node.StartPoint(),
		End:   node.EndPoint(),
	}

	switch node.Type() {
	case nodeCall:
		if method := node.ChildByFieldName("method"); method != nil {
			site.Message = t.Text(method)
			site.HasMessage = site.Message != ""
		}
		return site, true

	case nodeIdentifier:
		if !isVariableCall(node) {
			return CallSite{}, false
		}
		site.Message = t.Text(node)
		site.HasMessage = site.Message != ""
		return site, true
	}

	return CallSite{}, false
}

// isVariableCall reports whether an identifier is a bare reference rather
// than a declaration or the name part of some other construct.
func isVariableCall(ident *sitter.Node) bool {
	parent := ident.Parent()
	if parent == nil {
		return true
	}

	if isDeclaration(ident, parent) {
		return false
	}

	switch parent.Type() {
	case "method", "singleton_method":
		return !isField(parent, "name", ident)
	case nodeCall:
		return !isField(parent, "method", ident)
	case "scope_resolution":
		return !isField(parent, "name", ident)
	case "setter", "alias", "undef":
		return false
	}

	return true
}

// isDeclaration reports whether ident introduces a local variable or
// parameter.
func isDeclaration(ident, parent *sitter.Node) bool {
	switch parent.Type() {
	case "method_parameters", "block_parameters", "lambda_parameters",
		"destructured_parameter", "left_assignment_list", "rest_assignment",
		"destructured_left_assignment", "exception_variable":
		return true
	case "optional_parameter", "keyword_parameter", "splat_parameter",
		"hash_splat_parameter", "block_parameter":
		return isField(parent, "name", ident)
	case "assignment", "operator_assignment":
		return isField(parent, "left", ident)
	case "for":
		return isField(parent, "pattern", ident)
	}

	return false
}

// isField reports whether child is the node stored under field of parent.
func isField(parent *sitter.Node, field string, child *sitter.Node) bool {
	return sameNode(parent.ChildByFieldName(field), child)
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}

	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// CallNodeAt returns the call-site node under the given point: the call whose
// method name contains the point, or a bare identifier call. Positions in
// whitespace of a block body or on a non-call argument do not resolve to the
// enclosing call.
func (t *Tree) CallNodeAt(point sitter.Point) *sitter.Node {
	node := t.Root().NamedDescendantForPointRange(point, point)

	for node != nil {
		switch node.Type() {
		case nodeIdentifier:
			parent := node.Parent()
			if parent != nil && parent.Type() == nodeCall && isField(parent, "method", node) {
				return parent
			}
			if isVariableCall(node) {
				return node
			}
			return nil

		case nodeCall:
			return node

		case nodeBlock, nodeDoBlock, nodeLambda, nodeBody, nodeArguments:
			return nil
		}

		node = node.Parent()
	}

	return nil
}
