package workspace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/document"
	"github.com/CWBudde/go-rspec-lsp/internal/syntax"
)

const extractSource = `RSpec.describe User do
  let(:name) { "Ada" }
  let!("email") { "ada@example.com" }
  subject { described_class.new(name) }

  context "when admin" do
    subject!(:admin) { build(:admin) }
    let(:role, &block)
    let("#{prefix}_dynamic") { 1 }
    helper.let(:ignored) { 2 }
  end
end
`

func extract(t *testing.T, source, uri string) []Entry {
	t.Helper()

	tree, err := syntax.Parse(context.Background(), []byte(source))
	require.NoError(t, err)
	defer tree.Close()

	return ExtractHelpers(tree, document.NewText(source), uri)
}

func TestExtractHelpers(t *testing.T) {
	entries := extract(t, extractSource, testURI1)

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	assert.Equal(t, []string{"name", "email", "subject", "admin", "subject"}, names)

	name := entries[0]
	assert.Equal(t, KindLet, name.Kind)
	assert.Equal(t, testURI1, name.URI)
	assert.Equal(t, "/project/spec/models/user_spec.rb", name.Path)
	assert.Equal(t, "User", name.Container)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 2},
		End:   protocol.Position{Line: 1, Character: 22},
	}, name.Range)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 6},
		End:   protocol.Position{Line: 1, Character: 11},
	}, name.NameRange)

	email := entries[1]
	assert.Equal(t, KindLetBang, email.Kind)
	assert.Equal(t, protocol.Position{Line: 2, Character: 7}, email.NameRange.Start)

	subject := entries[2]
	assert.Equal(t, KindSubject, subject.Kind)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 3, Character: 2},
		End:   protocol.Position{Line: 3, Character: 9},
	}, subject.NameRange)

	admin := entries[3]
	assert.Equal(t, KindSubjectBang, admin.Kind)
	assert.Equal(t, "when admin", admin.Container)
	assert.Equal(t, admin.Range, entries[4].Range, "named subject also declares subject")
}

func TestExtractHelpers_NameRangeWithinRange(t *testing.T) {
	for _, entry := range extract(t, extractSource, testURI1) {
		assert.True(t, within(entry.NameRange, entry.Range), "%s: %v not within %v", entry.Name, entry.NameRange, entry.Range)
	}
}

func TestExtractHelpers_NoHelpers(t *testing.T) {
	assert.Empty(t, extract(t, "def let(x)\n  x\nend\nputs let(1)\n", testURI1))
}

func within(inner, outer protocol.Range) bool {
	before := func(a, b protocol.Position) bool {
		return a.Line < b.Line || (a.Line == b.Line && a.Character <= b.Character)
	}

	return before(outer.Start, inner.Start) && before(inner.End, outer.End)
}
