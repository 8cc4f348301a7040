package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

// DocumentSymbol handles the textDocument/documentSymbol request.
// It returns the let and subject helpers of the document for the outline
// view, nested under the example group that declares them.
func DocumentSymbol(context *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	srv := currentServer(protocol.MethodTextDocumentDocumentSymbol)
	if srv == nil {
		return nil, nil
	}

	uri := params.TextDocument.URI

	if _, exists := srv.Documents().Get(uri); !exists {
		log.Warningf("document not found for document symbols: %s", uri)
		return nil, nil
	}

	symbols := collectDocumentSymbols(srv.Index().FindInFile(uri))
	log.Debugf("found %d top-level symbols in %s", len(symbols), uri)

	return symbols, nil
}

// collectDocumentSymbols groups entries, ordered by position, by their
// container. Groups appear in the order of their first helper; helpers
// outside any example group are top-level.
func collectDocumentSymbols(entries []workspace.Entry) []protocol.DocumentSymbol {
	symbols := []protocol.DocumentSymbol{}
	groups := make(map[string]int)

	for _, entry := range entries {
		helper := helperSymbol(entry)

		if entry.Container == "" {
			symbols = append(symbols, helper)
			continue
		}

		i, exists := groups[entry.Container]
		if !exists {
			i = len(symbols)
			groups[entry.Container] = i
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           entry.Container,
				Kind:           protocol.SymbolKindNamespace,
				Range:          entry.Range,
				SelectionRange: entry.NameRange,
			})
		}

		group := &symbols[i]
		group.Children = append(group.Children, helper)
		if before(group.Range.End, entry.Range.End) {
			group.Range.End = entry.Range.End
		}
	}

	return symbols
}

func helperSymbol(entry workspace.Entry) protocol.DocumentSymbol {
	detail := string(entry.Kind)

	return protocol.DocumentSymbol{
		Name:           entry.Name,
		Detail:         &detail,
		Kind:           symbolKind(entry.Kind),
		Range:          entry.Range,
		SelectionRange: entry.NameRange,
	}
}

func before(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}

	return a.Character < b.Character
}
