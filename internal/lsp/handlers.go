// Package lsp implements LSP protocol handlers.
package lsp

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/server"
)

var log = commonlog.GetLogger("rspec-lsp.lsp")

var (
	// serverInstance holds the global server instance
	// This is set by SetServer and accessed by handlers
	serverInstance *server.Server
)

// SetServer sets the global server instance for handlers to access.
func SetServer(srv *server.Server) {
	serverInstance = srv
}

// currentServer returns the server instance and records the request.
func currentServer(method string) *server.Server {
	if serverInstance == nil {
		log.Warningf("server instance not available in %s", method)
		return nil
	}

	serverInstance.Metrics().Request(method)

	return serverInstance
}

// NewHandler returns the handler for every method the server supports,
// including the custom rubyLsp/* requests.
func NewHandler() glsp.Handler {
	return NewRouter(&protocol.Handler{
		Initialize:  Initialize,
		Initialized: Initialized,
		Shutdown:    Shutdown,
		Exit:        Exit,
		SetTrace:    SetTrace,

		TextDocumentDidOpen:        DidOpen,
		TextDocumentDidChange:      DidChange,
		TextDocumentDidClose:       DidClose,
		TextDocumentDefinition:     Definition,
		TextDocumentDocumentSymbol: DocumentSymbol,

		WorkspaceDidChangeConfiguration:    DidChangeConfiguration,
		WorkspaceDidChangeWorkspaceFolders: DidChangeWorkspaceFolders,
		WorkspaceSymbol:                    WorkspaceSymbol,
	})
}
