package lsp

import (
	"encoding/json"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/rspec"
)

// MethodResolveTestCommands is the custom request that turns test items
// into shell commands.
const MethodResolveTestCommands = "rubyLsp/resolveTestCommands"

// Router dispatches the custom methods and hands everything else to the
// standard protocol handler.
type Router struct {
	protocol *protocol.Handler
}

// NewRouter wraps handler.
func NewRouter(handler *protocol.Handler) *Router {
	return &Router{protocol: handler}
}

// Handle implements glsp.Handler.
func (r *Router) Handle(context *glsp.Context) (result any, validMethod bool, validParams bool, err error) {
	switch context.Method {
	case MethodResolveTestCommands:
		validMethod = true

		var params rspec.ResolveTestCommandsParams
		if err = json.Unmarshal(context.Params, &params); err == nil {
			validParams = true
			result, err = ResolveTestCommands(context, &params)
		}

		return result, validMethod, validParams, err
	}

	return r.protocol.Handle(context)
}
