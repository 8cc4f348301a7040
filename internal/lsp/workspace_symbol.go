package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

// Limit to 500 results to avoid overwhelming the client.
const maxWorkspaceSymbols = 500

// WorkspaceSymbol handles the workspace/symbol request.
// It returns helper declarations across the workspace whose name contains
// the query.
func WorkspaceSymbol(context *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	srv := currentServer(protocol.MethodWorkspaceSymbol)
	if srv == nil {
		return nil, nil
	}

	entries := srv.Index().Search(params.Query, maxWorkspaceSymbols)
	log.Debugf("found %d workspace symbols matching query %q", len(entries), params.Query)

	symbols := make([]protocol.SymbolInformation, 0, len(entries))
	for _, entry := range entries {
		symbols = append(symbols, symbolInformation(entry))
	}

	return symbols, nil
}

func symbolInformation(entry workspace.Entry) protocol.SymbolInformation {
	info := protocol.SymbolInformation{
		Name:     entry.Name,
		Kind:     symbolKind(entry.Kind),
		Location: entry.Location(),
	}

	if entry.Container != "" {
		container := entry.Container
		info.ContainerName = &container
	}

	return info
}

// symbolKind maps let helpers to variables and subjects to properties.
func symbolKind(kind workspace.HelperKind) protocol.SymbolKind {
	switch kind {
	case workspace.KindSubject, workspace.KindSubjectBang:
		return protocol.SymbolKindProperty
	default:
		return protocol.SymbolKindVariable
	}
}
