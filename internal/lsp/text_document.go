package lsp

import (
	"os"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/document"
	"github.com/CWBudde/go-rspec-lsp/internal/server"
	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

// DidOpen handles the textDocument/didOpen notification.
// The document is parsed and its helpers replace whatever the workspace
// index holds for the file.
func DidOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	srv := currentServer(protocol.MethodTextDocumentDidOpen)
	if srv == nil {
		return nil
	}

	item := params.TextDocument
	log.Debugf("document opened: %s (version %d, %d bytes)", item.URI, item.Version, len(item.Text))

	doc, err := server.NewDocument(requestContext(context), item.URI, int(item.Version), item.LanguageID, item.Text)
	if err != nil {
		log.Errorf("parsing %s: %v", item.URI, err)
		return nil
	}

	storeDocument(srv, doc)

	return nil
}

// DidChange handles the textDocument/didChange notification.
// It supports both full and incremental sync modes.
func DidChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	srv := currentServer(protocol.MethodTextDocumentDidChange)
	if srv == nil {
		return nil
	}

	uri := params.TextDocument.URI
	version := int(params.TextDocument.Version)

	doc, exists := srv.Documents().Get(uri)
	if !exists {
		log.Warningf("document not found for didChange: %s", uri)
		return nil
	}

	newText := doc.Text.String()

	for i, changeInterface := range params.ContentChanges {
		switch change := changeInterface.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			newText = change.Text

		case protocol.TextDocumentContentChangeEvent:
			updatedText, err := document.ApplyContentChange(newText, change)
			if err != nil {
				// Keep the last good text rather than corrupt the document.
				log.Errorf("applying change %d to %s: %v", i+1, uri, err)
				continue
			}
			newText = updatedText

		default:
			log.Warningf("invalid content change type %T at index %d for %s", changeInterface, i, uri)
		}
	}

	updated, err := server.NewDocument(requestContext(context), uri, version, doc.LanguageID, newText)
	if err != nil {
		log.Errorf("parsing %s after change: %v", uri, err)
		return nil
	}

	storeDocument(srv, updated)

	return nil
}

// DidClose handles the textDocument/didClose notification.
// Files that belong to the indexed workspace fall back to their content on
// disk; anything else leaves the index.
func DidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	srv := currentServer(protocol.MethodTextDocumentDidClose)
	if srv == nil {
		return nil
	}

	uri := params.TextDocument.URI
	srv.Documents().Delete(uri)

	path := workspace.DocumentPath(uri)
	if workspace.IsFileURI(uri) && indexedOnDisk(srv, path) {
		if _, err := srv.Indexer().IndexFile(requestContext(context), path); err == nil {
			log.Debugf("document closed, reindexed from disk: %s", uri)
			return nil
		}
	}

	srv.Index().RemoveFile(uri)
	log.Debugf("document closed: %s", uri)

	return nil
}

func storeDocument(srv *server.Server, doc *server.Document) {
	if doc.Tree.HasError() {
		log.Debugf("%s has syntax errors, indexing the recovered tree", doc.URI)
	}

	srv.Documents().Set(doc.URI, doc)
	srv.Indexer().IndexTree(doc.URI, doc.Tree, doc.Text)
}

// indexedOnDisk reports whether path exists and matches the spec globs of
// one of the workspace folders.
func indexedOnDisk(srv *server.Server, path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}

	indexer := srv.Indexer()
	for _, folder := range srv.GetWorkspaceFolders() {
		if indexer.Matches(folder, path) {
			return true
		}
	}

	return false
}
