package lsp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

func TestDefinition_LocationLinks(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)
	openDocument(t, testDocumentURI, userSpec)

	// `user` in `expect(user.name)`
	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 5, 12))
	require.NoError(t, err)

	links, ok := result.([]protocol.LocationLink)
	require.True(t, ok, "got %T", result)
	require.Len(t, links, 1)

	assert.Equal(t, testDocumentURI, links[0].TargetURI)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 2},
		End:   protocol.Position{Line: 1, Character: 29},
	}, links[0].TargetRange)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 6},
		End:   protocol.Position{Line: 1, Character: 11},
	}, links[0].TargetSelectionRange)
}

func TestDefinition_LocationsWithoutLinkSupport(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, false)
	openDocument(t, testDocumentURI, userSpec)

	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 5, 12))
	require.NoError(t, err)

	locations, ok := result.([]protocol.Location)
	require.True(t, ok, "got %T", result)
	require.Len(t, locations, 1)
	assert.Equal(t, testDocumentURI, locations[0].URI)
	assert.Equal(t, uint32(1), locations[0].Range.Start.Line)
}

func TestDefinition_NamedSubject(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)
	openDocument(t, testDocumentURI, userSpec+"profile\n")

	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 13, 2))
	require.NoError(t, err)

	links := result.([]protocol.LocationLink)
	require.Len(t, links, 1)
	assert.Equal(t, uint32(2), links[0].TargetRange.Start.Line)
}

func TestDefinition_ShadowedByLocal(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)
	openDocument(t, testDocumentURI, userSpec)

	// `user` in `expect(user).to be_nil`
	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 10, 12))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestDefinition_IgnoresOtherFiles(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)
	openDocument(t, otherSpecURI, "RSpec.describe Post do\n  let(:post) { 1 }\nend\n")
	openDocument(t, testDocumentURI, "RSpec.describe User do\n  it { post }\nend\n")

	require.Len(t, srv.Index().Lookup("post"), 1)

	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 1, 9))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestDefinition_NotOnCall(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)
	openDocument(t, testDocumentURI, userSpec)

	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 3, 0))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDefinition_UnknownDocument(t *testing.T) {
	newTestServer(t)

	result, err := Definition(&glsp.Context{}, definitionParams("file:///nowhere_spec.rb", 0, 0))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestDefinition_NoServer(t *testing.T) {
	SetServer(nil)

	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 0, 0))
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestDefinition_OpenBufferSurvivesWorkspaceIndexing(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)

	root := t.TempDir()
	path := filepath.Join(root, "spec", "user_spec.rb")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("RSpec.describe User do\n  let(:user) { 1 }\nend\n"), 0o644))
	srv.SetWorkspaceFolders([]string{root})

	uri := workspace.PathURI(path)
	openDocument(t, uri, `RSpec.describe User do
  # unsaved
  # edits
  # above
  let(:user) { 1 }
  it { expect(user).to be_valid }
end
`)

	_, err := srv.IndexFolders(context.Background(), []string{root})
	require.NoError(t, err)

	result, err := Definition(&glsp.Context{}, definitionParams(uri, 5, 15))
	require.NoError(t, err)

	links := result.([]protocol.LocationLink)
	require.Len(t, links, 1)
	assert.Equal(t, uint32(4), links[0].TargetRange.Start.Line, "the buffer's declaration, not the one on disk")

	require.NoError(t, DidClose(&glsp.Context{}, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	users := srv.Index().Lookup("user")
	require.Len(t, users, 1)
	assert.Equal(t, uint32(1), users[0].Range.Start.Line, "closing falls back to the file on disk")
}

func TestDefinition_SymbolArgumentIsNotACallSite(t *testing.T) {
	srv := newTestServer(t)
	enableLinkSupport(srv, true)
	openDocument(t, testDocumentURI, userSpec+"profile(:admin)\n")

	// `:admin` in `profile(:admin)`
	result, err := Definition(&glsp.Context{}, definitionParams(testDocumentURI, 13, 10))
	require.NoError(t, err)
	assert.Nil(t, result)

	// `profile` itself still resolves.
	result, err = Definition(&glsp.Context{}, definitionParams(testDocumentURI, 13, 2))
	require.NoError(t, err)
	assert.Len(t, result, 1)
}
