package lsp

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/rspec"
	"github.com/CWBudde/go-rspec-lsp/internal/syntax"
)

// Definition handles the textDocument/definition request for RSpec helpers.
// Clients advertising linkSupport receive LocationLinks, others plain
// Locations covering the whole declaration.
func Definition(context *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	srv := currentServer(protocol.MethodTextDocumentDefinition)
	if srv == nil {
		return nil, nil
	}

	uri := params.TextDocument.URI
	position := params.Position

	log.Debugf("definition request at %s line %d, character %d", uri, position.Line, position.Character)

	doc, exists := srv.Documents().Get(uri)
	if !exists {
		log.Warningf("document not found for definition: %s", uri)
		return nil, nil
	}

	row, column, err := doc.Text.PositionPoint(position)
	if err != nil {
		log.Debugf("position outside %s: %v", uri, err)
		return nil, nil
	}

	nodeCtx := doc.Tree.ContextAt(sitter.Point{Row: row, Column: column})
	if nodeCtx.Call == nil {
		return nil, nil
	}

	collector := rspec.NewResponseBuilder[protocol.LocationLink]()
	dispatcher := syntax.NewDispatcher(doc.Tree)
	rspec.NewDefinition(collector, uri, nodeCtx, srv.Index(), dispatcher)
	dispatcher.DispatchOnce(nodeCtx.Call)

	links := collector.Response()
	srv.Metrics().DefinitionLinks(len(links))
	log.Debugf("found %d helper definitions", len(links))

	if srv.SupportsLocationLinks() {
		return links, nil
	}

	return toLocations(links), nil
}

func toLocations(links []protocol.LocationLink) []protocol.Location {
	locations := make([]protocol.Location, len(links))
	for i, link := range links {
		locations[i] = protocol.Location{URI: link.TargetURI, Range: link.TargetRange}
	}

	return locations
}
