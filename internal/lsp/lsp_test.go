package lsp

import (
	"testing"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/server"
)

const (
	testDocumentURI = "file:///project/spec/models/user_spec.rb"
	otherSpecURI    = "file:///project/spec/models/post_spec.rb"
)

const userSpec = `RSpec.describe User do
  let(:user) { build(:user) }
  subject(:profile) { user.profile }

  it "has a name" do
    expect(user.name).to eq("Ada")
  end

  it "shadows the helper" do
    user = nil
    expect(user).to be_nil
  end
end
`

// newTestServer installs a fresh server for the handlers and closes it
// when the test ends.
func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	srv := server.New(nil)
	SetServer(srv)
	t.Cleanup(func() {
		_ = srv.Close()
		SetServer(nil)
	})

	return srv
}

func openDocument(t *testing.T, uri, text string) {
	t.Helper()

	err := DidOpen(&glsp.Context{}, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: "ruby",
			Version:    1,
			Text:       text,
		},
	})
	if err != nil {
		t.Fatalf("DidOpen returned error: %v", err)
	}
}

func enableLinkSupport(srv *server.Server, enabled bool) {
	srv.SetClientCapabilities(&protocol.ClientCapabilities{
		TextDocument: &protocol.TextDocumentClientCapabilities{
			Definition: &protocol.DefinitionClientCapabilities{LinkSupport: &enabled},
		},
	})
}

func definitionParams(uri string, line, character uint32) *protocol.DefinitionParams {
	return &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: line, Character: character},
		},
	}
}
