package lsp

import (
	"github.com/tliron/glsp"

	"github.com/CWBudde/go-rspec-lsp/internal/rspec"
)

// ResolveTestCommands handles the rubyLsp/resolveTestCommands request.
func ResolveTestCommands(context *glsp.Context, params *rspec.ResolveTestCommandsParams) (*rspec.ResolveTestCommandsResult, error) {
	srv := currentServer(MethodResolveTestCommands)
	if srv == nil {
		return nil, nil
	}

	commands := rspec.ResolveTestCommands(params.Items, srv.Config())
	log.Debugf("resolved %d test commands for %d items", len(commands), len(params.Items))

	return &rspec.ResolveTestCommandsResult{Commands: commands}, nil
}
