package lsp

import (
	contextpkg "context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/config"
	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

const serverName = "go-rspec-lsp"

// Version is reported in the initialize result.
var Version = "0.1.0"

// Initialize handles the LSP initialize request.
// This is the first request sent by the client and establishes the server capabilities.
func Initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	srv := currentServer(protocol.MethodInitialize)
	if srv != nil {
		capabilities := params.Capabilities
		srv.SetClientCapabilities(&capabilities)

		folders := workspaceFolders(params)
		srv.SetWorkspaceFolders(folders)

		cfg := loadConfig(folders)
		if err := cfg.ApplySettings(settingsFrom(params.InitializationOptions)); err != nil {
			log.Warningf("ignoring initializationOptions: %v", err)
		}
		srv.SetConfig(cfg)

		log.Infof("initialized for %d workspace folders (link support: %t)", len(folders), srv.SupportsLocationLinks())
	}

	changeKind := protocol.TextDocumentSyncKindIncremental
	trueVal := true

	capabilities := protocol.ServerCapabilities{
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: &trueVal,
			Change:    &changeKind,
		},
		DefinitionProvider:      &trueVal,
		DocumentSymbolProvider:  &trueVal,
		WorkspaceSymbolProvider: &trueVal,
		Workspace: &protocol.ServerCapabilitiesWorkspace{
			WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
				Supported:           &trueVal,
				ChangeNotifications: &protocol.BoolOrString{Value: true},
			},
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &Version,
		},
	}, nil
}

// workspaceFolders returns the file system paths of the client's roots,
// falling back to rootUri and rootPath for clients without folder support.
func workspaceFolders(params *protocol.InitializeParams) []string {
	var folders []string

	for _, folder := range params.WorkspaceFolders {
		if workspace.IsFileURI(folder.URI) {
			folders = append(folders, workspace.DocumentPath(folder.URI))
		}
	}

	if len(folders) == 0 && params.RootURI != nil && workspace.IsFileURI(*params.RootURI) {
		folders = append(folders, workspace.DocumentPath(*params.RootURI))
	}

	if len(folders) == 0 && params.RootPath != nil && *params.RootPath != "" {
		folders = append(folders, *params.RootPath)
	}

	return folders
}

// loadConfig reads the project file of the first workspace folder.
func loadConfig(folders []string) *config.Config {
	if len(folders) == 0 {
		return config.Default()
	}

	cfg, err := config.LoadFromRoot(folders[0])
	if err != nil {
		log.Errorf("using default configuration: %v", err)
		return config.Default()
	}

	return cfg
}

// settingsFrom extracts this server's settings from initializationOptions
// or didChangeConfiguration settings. Settings may be nested under "rspec".
func settingsFrom(value any) map[string]any {
	settings, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	if nested, ok := settings["rspec"].(map[string]any); ok {
		return nested
	}

	return settings
}

// Initialized handles the initialized notification from the client.
// Workspace indexing starts here, in the background.
func Initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	srv := currentServer(protocol.MethodInitialized)
	if srv == nil {
		return nil
	}

	srv.StartIndexing(srv.GetWorkspaceFolders())

	return nil
}

// Shutdown handles the shutdown request.
// The client sends this to ask the server to shut down gracefully.
func Shutdown(context *glsp.Context) error {
	srv := currentServer(protocol.MethodShutdown)
	if srv == nil {
		return nil
	}

	srv.SetShuttingDown()

	if err := srv.Close(); err != nil {
		log.Warningf("closing server: %v", err)
	}

	return nil
}

// Exit handles the exit notification.
func Exit(context *glsp.Context) error {
	return nil
}

// SetTrace handles $/setTrace.
func SetTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// requestContext returns the context parsing work runs under. Handlers
// are synchronous, so it is never cancelled.
func requestContext(*glsp.Context) contextpkg.Context {
	return contextpkg.Background()
}
