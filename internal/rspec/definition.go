package rspec

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/syntax"
	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

// Index looks up helper declarations by name. Implementations return
// entries in their own stable order and must not expose internal storage.
type Index interface {
	Lookup(name string) []workspace.Entry
}

// Definition resolves call-sites to the let/subject helpers declared in the
// same document. One Definition serves a single request.
type Definition struct {
	collector *ResponseBuilder[protocol.LocationLink]
	uri       string
	path      string
	nodeCtx   syntax.NodeContext
	index     Index
}

// NewDefinition creates a resolver and registers it with dispatcher.
func NewDefinition(
	collector *ResponseBuilder[protocol.LocationLink],
	uri string,
	nodeCtx syntax.NodeContext,
	index Index,
	dispatcher *syntax.Dispatcher,
) *Definition {
	d := &Definition{
		collector: collector,
		uri:       uri,
		path:      workspace.DocumentPath(uri),
		nodeCtx:   nodeCtx,
		index:     index,
	}
	dispatcher.OnCallEnter(d.onCallEnter)

	return d
}

func (d *Definition) onCallEnter(site syntax.CallSite) {
	if !site.HasMessage {
		return
	}

	// A local or parameter with the same name is a variable read.
	if d.nodeCtx.Locals.Contains(site.Message) {
		return
	}

	entries := d.index.Lookup(site.Message)
	if len(entries) == 0 {
		return
	}

	for _, entry := range entries {
		// Helpers declared in other files (shared contexts, spec_helper)
		// are not resolved.
		if entryPath(entry) != d.path {
			continue
		}

		d.collector.Append(protocol.LocationLink{
			TargetURI:            entry.URI,
			TargetRange:          entry.Range,
			TargetSelectionRange: entry.NameRange,
		})
	}
}

func entryPath(entry workspace.Entry) string {
	if entry.Path != "" {
		return entry.Path
	}

	return workspace.DocumentPath(entry.URI)
}
