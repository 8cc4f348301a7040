package syntax

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// ScopeSet is an immutable set of local variable and parameter names. The
// zero value is an empty set.
type ScopeSet struct {
	names map[string]struct{}
}

// NewScopeSet builds a set from names.
func NewScopeSet(names ...string) ScopeSet {
	set := ScopeSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		set.names[name] = struct{}{}
	}

	return set
}

// Contains reports whether name is a visible local.
func (s ScopeSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names in the set.
func (s ScopeSet) Len() int {
	return len(s.names)
}

// Names returns the names in sorted order.
func (s ScopeSet) Names() []string {
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// NodeContext is what a request knows about the node under the cursor: the
// call-site node, if any, and the locals visible at it.
type NodeContext struct {
	Call   *sitter.Node
	Locals ScopeSet
}

// ContextAt builds the NodeContext for a point in the tree.
func (t *Tree) ContextAt(point sitter.Point) NodeContext {
	call := t.CallNodeAt(point)

	anchor := call
	if anchor == nil {
		anchor = t.Root().NamedDescendantForPointRange(point, point)
	}

	return NodeContext{
		Call:   call,
		Locals: t.LocalsVisibleAt(anchor),
	}
}

// isScope reports whether a node type opens a new local variable scope.
// Blocks and lambdas inherit their enclosing scope; the rest are gates.
func isScope(nodeType string) (scope, gate bool) {
	switch nodeType {
	case nodeBlock, nodeDoBlock, nodeLambda:
		return true, false
	case "program", "method", "singleton_method", "class", "module", "singleton_class":
		return true, true
	}

	return false, false
}

// LocalsVisibleAt returns the locals visible at node: every local declared
// in the scope containing node and, through blocks and lambdas, in the
// enclosing scopes up to the nearest gate. A local counts for its whole
// scope regardless of where in the scope it is assigned.
func (t *Tree) LocalsVisibleAt(node *sitter.Node) ScopeSet {
	var names []string

	for current := node; current != nil; current = current.Parent() {
		scope, gate := isScope(current.Type())
		if !scope {
			continue
		}

		names = t.collectLocals(current, names)
		if gate {
			break
		}
	}

	return NewScopeSet(names...)
}

// collectLocals adds names declared under node. Nested scopes are skipped;
// their locals are not visible outside them.
func (t *Tree) collectLocals(node *sitter.Node, names []string) []string {
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		if nested, _ := isScope(child.Type()); nested {
			continue
		}

		if child.Type() == nodeIdentifier && isDeclaration(child, node) {
			names = append(names, t.Text(child))
			continue
		}

		names = t.collectLocals(child, names)
	}

	return names
}
