package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

// DidChangeConfiguration handles workspace configuration changes from the client.
// Settings are read from the "rspec" section, e.g.
//
//	{"rspec": {"rspecCommand": "bin/rspec", "excludeDirs": ["vendor"]}}
func DidChangeConfiguration(context *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	srv := currentServer(protocol.MethodWorkspaceDidChangeConfiguration)
	if srv == nil {
		return nil
	}

	settings := settingsFrom(params.Settings)
	if settings == nil {
		return nil
	}

	if err := srv.UpdateConfig(settings); err != nil {
		log.Warningf("ignoring configuration change: %v", err)
		return nil
	}

	log.Infof("configuration updated: rspec command %q, watching %t", srv.Config().Command(), srv.Watching())

	return nil
}

// DidChangeWorkspaceFolders handles changes to workspace folders.
// Added folders are indexed in the background; removed folders leave the
// index.
func DidChangeWorkspaceFolders(context *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	srv := currentServer(protocol.MethodWorkspaceDidChangeWorkspaceFolders)
	if srv == nil {
		return nil
	}

	for _, folder := range params.Event.Removed {
		if !workspace.IsFileURI(folder.URI) {
			continue
		}
		log.Infof("workspace folder removed: %s (%s)", folder.Name, folder.URI)
		srv.RemoveWorkspaceFolder(workspace.DocumentPath(folder.URI))
	}

	var added []string
	for _, folder := range params.Event.Added {
		if !workspace.IsFileURI(folder.URI) {
			continue
		}
		log.Infof("workspace folder added: %s (%s)", folder.Name, folder.URI)

		path := workspace.DocumentPath(folder.URI)
		if srv.AddWorkspaceFolder(path) {
			added = append(added, path)
		}
	}

	srv.StartIndexing(added)

	return nil
}
