package lsp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"

	"github.com/CWBudde/go-rspec-lsp/internal/rspec"
)

func routerContext(method string, params any) *glsp.Context {
	raw, _ := json.Marshal(params)
	return &glsp.Context{Method: method, Params: raw}
}

func TestRouter_ResolveTestCommands(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.UpdateConfig(map[string]any{"rspecCommand": "custom_rspec_command"}))

	params := map[string]any{
		"items": []any{
			map[string]any{
				"id":    "Test group",
				"label": "Test group",
				"range": map[string]any{
					"start": map[string]any{"line": 5, "character": 0},
					"end":   map[string]any{"line": 20, "character": 0},
				},
				"tags":     []string{"test_group", "framework:rspec"},
				"uri":      "file:///fake_spec.rb",
				"children": []any{},
			},
		},
	}

	result, validMethod, validParams, err := NewHandler().Handle(routerContext(MethodResolveTestCommands, params))
	require.NoError(t, err)
	assert.True(t, validMethod)
	assert.True(t, validParams)

	resolved, ok := result.(*rspec.ResolveTestCommandsResult)
	require.True(t, ok, "got %T", result)
	assert.Equal(t, []string{"custom_rspec_command  /fake_spec.rb:6"}, resolved.Commands)

	encoded, err := json.Marshal(resolved)
	require.NoError(t, err)
	assert.JSONEq(t, `{"commands":["custom_rspec_command  /fake_spec.rb:6"]}`, string(encoded))
}

func TestRouter_InvalidParams(t *testing.T) {
	newTestServer(t)

	context := &glsp.Context{Method: MethodResolveTestCommands, Params: json.RawMessage(`{"items": 3}`)}
	_, validMethod, validParams, err := NewHandler().Handle(context)

	assert.True(t, validMethod)
	assert.False(t, validParams)
	assert.Error(t, err)
}

func TestRouter_DelegatesStandardMethods(t *testing.T) {
	newTestServer(t)

	result, validMethod, validParams, err := NewHandler().Handle(routerContext("initialize", map[string]any{
		"capabilities": map[string]any{},
	}))
	require.NoError(t, err)
	assert.True(t, validMethod)
	assert.True(t, validParams)
	assert.NotNil(t, result)
}
