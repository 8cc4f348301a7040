package lsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

func TestDidOpen(t *testing.T) {
	srv := newTestServer(t)

	openDocument(t, testDocumentURI, userSpec)

	doc, exists := srv.Documents().Get(testDocumentURI)
	if !exists {
		t.Fatal("Document was not stored in DocumentStore")
	}

	if doc.Text.String() != userSpec {
		t.Errorf("Document Text = %q, want %q", doc.Text.String(), userSpec)
	}

	if doc.Version != 1 {
		t.Errorf("Document Version = %d, want 1", doc.Version)
	}

	if doc.Tree == nil || doc.Tree.HasError() {
		t.Error("Document should have an error-free syntax tree")
	}

	if got := len(srv.Index().FindInFile(testDocumentURI)); got != 3 {
		t.Errorf("indexed %d helpers, want 3 (user, profile, subject)", got)
	}
}

func TestDidChange_Incremental(t *testing.T) {
	srv := newTestServer(t)
	openDocument(t, testDocumentURI, "let(:user) { 1 }\n")

	// Rename the helper: replace "user" with "account".
	err := DidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testDocumentURI},
			Version:                2,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 0, Character: 5},
					End:   protocol.Position{Line: 0, Character: 9},
				},
				Text: "account",
			},
		},
	})
	if err != nil {
		t.Fatalf("DidChange returned error: %v", err)
	}

	doc, _ := srv.Documents().Get(testDocumentURI)
	if want := "let(:account) { 1 }\n"; doc.Text.String() != want {
		t.Errorf("Document Text = %q, want %q", doc.Text.String(), want)
	}
	if doc.Version != 2 {
		t.Errorf("Document Version = %d, want 2", doc.Version)
	}

	if srv.Index().Lookup("user") != nil {
		t.Error("old helper should leave the index")
	}
	if len(srv.Index().Lookup("account")) != 1 {
		t.Error("new helper should be indexed")
	}
}

func TestDidChange_FullSyncAndInvalidChange(t *testing.T) {
	srv := newTestServer(t)
	openDocument(t, testDocumentURI, "let(:user) { 1 }\n")

	err := DidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testDocumentURI},
			Version:                3,
		},
		ContentChanges: []any{
			protocol.TextDocumentContentChangeEventWhole{Text: "subject { 2 }\n"},
			protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 40, Character: 0},
					End:   protocol.Position{Line: 41, Character: 0},
				},
				Text: "ignored",
			},
		},
	})
	if err != nil {
		t.Fatalf("DidChange returned error: %v", err)
	}

	doc, _ := srv.Documents().Get(testDocumentURI)
	if want := "subject { 2 }\n"; doc.Text.String() != want {
		t.Errorf("Document Text = %q, want %q", doc.Text.String(), want)
	}
	if len(srv.Index().Lookup("subject")) != 1 {
		t.Error("subject should be indexed")
	}
}

func TestDidChange_UnknownDocument(t *testing.T) {
	newTestServer(t)

	err := DidChange(&glsp.Context{}, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: "file:///missing_spec.rb"},
		},
	})
	if err != nil {
		t.Fatalf("DidChange returned error: %v", err)
	}
}

func TestDidClose_RemovesUnsavedDocument(t *testing.T) {
	srv := newTestServer(t)
	openDocument(t, testDocumentURI, userSpec)

	err := DidClose(&glsp.Context{}, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testDocumentURI},
	})
	if err != nil {
		t.Fatalf("DidClose returned error: %v", err)
	}

	if _, exists := srv.Documents().Get(testDocumentURI); exists {
		t.Error("Document should be removed from the store")
	}
	if srv.Index().Lookup("user") != nil {
		t.Error("helpers of a file that is not on disk should leave the index")
	}
}

func TestDidClose_RestoresContentOnDisk(t *testing.T) {
	srv := newTestServer(t)

	root := t.TempDir()
	path := filepath.Join(root, "spec", "user_spec.rb")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("let(:saved) { 1 }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv.SetWorkspaceFolders([]string{root})

	uri := workspace.PathURI(path)
	openDocument(t, uri, "let(:unsaved) { 1 }\n")

	if err := DidClose(&glsp.Context{}, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}); err != nil {
		t.Fatalf("DidClose returned error: %v", err)
	}

	if srv.Index().Lookup("unsaved") != nil {
		t.Error("unsaved helper should leave the index")
	}
	if len(srv.Index().Lookup("saved")) != 1 {
		t.Error("helper on disk should be indexed again")
	}
}
