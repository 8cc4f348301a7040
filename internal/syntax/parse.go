// Package syntax wraps tree-sitter's Ruby grammar with the pieces the
// language server needs: a parsed tree, call-site extraction, a single-pass
// traversal driver and a lexical scope tracker.
package syntax

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

// ErrParseFailed is returned when tree-sitter produces no tree.
var ErrParseFailed = errors.New("ruby parse failed")

// Tree is a parsed Ruby document. It owns the tree-sitter tree and the
// source it was parsed from.
type Tree struct {
	tree   *sitter.Tree
	source []byte
}

// Parse parses Ruby source. A new tree-sitter parser is created per call so
// Parse is safe for concurrent use. Syntax errors do not fail the parse;
// tree-sitter recovers and the resulting tree reports them through HasError.
func Parse(ctx context.Context, source []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(ruby.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if tree == nil {
		return nil, ErrParseFailed
	}

	return &Tree{tree: tree, source: source}, nil
}

// Root returns the program node.
func (t *Tree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// HasError reports whether the tree contains syntax errors.
func (t *Tree) HasError() bool {
	return t.Root().HasError()
}

// Text returns the source text of node.
func (t *Tree) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}

	return node.Content(t.source)
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}
