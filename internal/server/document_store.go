package server

import (
	"context"
	"sync"

	"github.com/CWBudde/go-rspec-lsp/internal/document"
	"github.com/CWBudde/go-rspec-lsp/internal/syntax"
	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

// Document represents an open document in the workspace. A Document is an
// immutable snapshot: edits produce a new Document.
type Document struct {
	URI        string
	Version    int
	LanguageID string

	Text *document.Text

	// Tree is the parsed syntax tree of Text.
	Tree *syntax.Tree
}

// NewDocument parses content into a document snapshot.
func NewDocument(ctx context.Context, uri string, version int, languageID, content string) (*Document, error) {
	text := document.NewText(content)

	tree, err := syntax.Parse(ctx, text.Bytes())
	if err != nil {
		return nil, err
	}

	return &Document{
		URI:        uri,
		Version:    version,
		LanguageID: languageID,
		Text:       text,
		Tree:       tree,
	}, nil
}

// DocumentStore manages all open documents.
//
// Replaced snapshots are not closed explicitly: a request may still be
// reading their tree, so they are released by the garbage collector.
type DocumentStore struct {
	documents map[string]*Document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*Document),
	}
}

// Set stores or updates a document.
func (ds *DocumentStore) Set(uri string, doc *Document) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = doc
}

// Get retrieves a document by URI.
func (ds *DocumentStore) Get(uri string) (*Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]

	return doc, ok
}

// Delete removes a document from the store.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// IsOpen reports whether a document with the file system path is open.
func (ds *DocumentStore) IsOpen(path string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	for uri := range ds.documents {
		if workspace.DocumentPath(uri) == path {
			return true
		}
	}

	return false
}

// List returns all document URIs.
func (ds *DocumentStore) List() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	uris := make([]string, 0, len(ds.documents))
	for uri := range ds.documents {
		uris = append(uris, uri)
	}

	return uris
}

// Clear removes all documents from the store.
func (ds *DocumentStore) Clear() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents = make(map[string]*Document)
}
