package lsp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

func TestDidChangeConfiguration(t *testing.T) {
	srv := newTestServer(t)

	err := DidChangeConfiguration(&glsp.Context{}, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{
			"rspec": map[string]any{
				"rspecCommand": "bin/rspec",
				"excludeDirs":  []any{"fixtures"},
			},
		},
	})
	require.NoError(t, err)

	cfg := srv.Config()
	assert.Equal(t, "bin/rspec", cfg.RSpecCommand)
	assert.Equal(t, []string{"fixtures"}, cfg.ExcludeDirs)

	// Invalid settings are rejected as a whole.
	err = DidChangeConfiguration(&glsp.Context{}, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{"rspecCommand": "other", "specGlobs": []any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, "bin/rspec", srv.Config().RSpecCommand)

	require.NoError(t, DidChangeConfiguration(&glsp.Context{}, &protocol.DidChangeConfigurationParams{}))
}

func TestDidChangeWorkspaceFolders(t *testing.T) {
	srv := newTestServer(t)

	cfg := srv.Config()
	cfg.Watch = false
	srv.SetConfig(cfg)

	oldRoot := t.TempDir()
	newRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(newRoot, "a_spec.rb"), []byte("let(:added) { 1 }\n"), 0o644))

	srv.SetWorkspaceFolders([]string{oldRoot})
	srv.Index().ReplaceFile(workspace.PathURI(filepath.Join(oldRoot, "old_spec.rb")), 1, []workspace.Entry{{Name: "old"}})

	err := DidChangeWorkspaceFolders(&glsp.Context{}, &protocol.DidChangeWorkspaceFoldersParams{
		Event: protocol.WorkspaceFoldersChangeEvent{
			Added:   []protocol.WorkspaceFolder{{URI: workspace.PathURI(newRoot), Name: "new"}},
			Removed: []protocol.WorkspaceFolder{{URI: workspace.PathURI(oldRoot), Name: "old"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{newRoot}, srv.GetWorkspaceFolders())
	assert.Nil(t, srv.Index().Lookup("old"))
	assert.Eventually(t, func() bool {
		return len(srv.Index().Lookup("added")) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorkspaceSymbol(t *testing.T) {
	newTestServer(t)
	openDocument(t, testDocumentURI, userSpec)

	symbols, err := WorkspaceSymbol(&glsp.Context{}, &protocol.WorkspaceSymbolParams{Query: "PRO"})
	require.NoError(t, err)
	require.Len(t, symbols, 1)

	assert.Equal(t, "profile", symbols[0].Name)
	assert.Equal(t, protocol.SymbolKindProperty, symbols[0].Kind)
	assert.Equal(t, testDocumentURI, symbols[0].Location.URI)
	require.NotNil(t, symbols[0].ContainerName)
	assert.Equal(t, "User", *symbols[0].ContainerName)

	all, err := WorkspaceSymbol(&glsp.Context{}, &protocol.WorkspaceSymbolParams{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	names := make([]string, len(all))
	for i, symbol := range all {
		names[i] = symbol.Name
	}
	assert.Equal(t, []string{"profile", "subject", "user"}, names)
	assert.Equal(t, protocol.SymbolKindVariable, all[2].Kind)
}
