package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// CallEnterFunc handles a call-site entered during traversal.
type CallEnterFunc func(site CallSite)

// Dispatcher walks a tree once and pushes call-site events to registered
// listeners in document order.
type Dispatcher struct {
	tree        *Tree
	onCallEnter []CallEnterFunc
}

// NewDispatcher creates a dispatcher over tree.
func NewDispatcher(tree *Tree) *Dispatcher {
	return &Dispatcher{tree: tree}
}

// OnCallEnter registers fn for call-site enter events.
func (d *Dispatcher) OnCallEnter(fn CallEnterFunc) {
	d.onCallEnter = append(d.onCallEnter, fn)
}

// Dispatch walks node and its descendants in document order, emitting one
// event per call-site.
func (d *Dispatcher) Dispatch(node *sitter.Node) {
	if node == nil {
		return
	}

	d.emit(node)

	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		d.Dispatch(node.NamedChild(i))
	}
}

// DispatchOnce emits events for node alone, without visiting its children.
func (d *Dispatcher) DispatchOnce(node *sitter.Node) {
	if node == nil {
		return
	}

	d.emit(node)
}

func (d *Dispatcher) emit(node *sitter.Node) {
	if len(d.onCallEnter) == 0 {
		return
	}

	site, ok := d.tree.CallSiteFromNode(node)
	if !ok {
		return
	}

	for _, fn := range d.onCallEnter {
		fn(site)
	}
}
