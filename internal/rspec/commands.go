package rspec

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kballard/go-shellquote"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/config"
	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

var log = commonlog.GetLogger("rspec-lsp.rspec")

// Test item tags understood by ResolveTestCommands.
const (
	TagFramework = "framework:rspec"
	TagDir       = "test_dir"
	TagFile      = "test_file"
	TagGroup     = "test_group"
	TagCase      = "test_case"
)

// TestItem is a node of the editor's test tree.
type TestItem struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	URI      string          `json:"uri"`
	Range    *protocol.Range `json:"range,omitempty"`
	Tags     []string        `json:"tags"`
	Children []TestItem      `json:"children"`
}

// HasTag reports whether the item carries tag.
func (i TestItem) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

// ResolveTestCommandsParams are the params of rubyLsp/resolveTestCommands.
type ResolveTestCommandsParams struct {
	Items []TestItem `json:"items"`
}

// ResolveTestCommandsResult is the result of rubyLsp/resolveTestCommands.
type ResolveTestCommandsResult struct {
	Commands []string `json:"commands"`
}

// ResolveTestCommands maps the selected RSpec test items to shell commands.
// Every example group gets its own command; directories, files and single
// examples are batched into one trailing command.
func ResolveTestCommands(items []TestItem, cfg *config.Config) []string {
	if cfg == nil {
		cfg = config.Default()
	}

	prefix := commandPrefix(cfg)

	commands := []string{}
	var targets []string

	queue := slices.Clone(items)
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if !item.HasTag(TagFramework) || !workspace.IsFileURI(item.URI) {
			continue
		}

		path := workspace.DocumentPath(item.URI)

		switch {
		case item.HasTag(TagDir):
			if len(item.Children) == 0 {
				targets = append(targets, specFilesIn(path)...)
			}
		case item.HasTag(TagFile):
			if len(item.Children) == 0 {
				targets = append(targets, path)
			}
		case item.HasTag(TagGroup):
			commands = append(commands, prefix+" "+shellquote.Join(lineTarget(path, item.Range)))
		default:
			targets = append(targets, lineTarget(path, item.Range))
		}

		queue = append(queue, item.Children...)
	}

	if len(targets) > 0 {
		commands = append(commands, prefix+" "+shellquote.Join(targets...))
	}

	return commands
}

// commandPrefix returns the rspec command followed by its formatter
// arguments. A custom command has none, leaving an empty argument slot.
func commandPrefix(cfg *config.Config) string {
	if cfg.CustomCommand() {
		return cfg.Command() + " "
	}

	return cfg.Command() + " " + shellquote.Join("-r", cfg.FormatterPath, "-f", cfg.FormatterName)
}

func lineTarget(path string, rng *protocol.Range) string {
	if rng == nil {
		return path
	}

	return path + ":" + strconv.FormatUint(uint64(rng.Start.Line)+1, 10)
}

// specFilesIn returns the spec files below dir in lexical order.
func specFilesIn(dir string) []string {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*_spec.rb", doublestar.WithFilesOnly())
	if err != nil {
		log.Warningf("listing spec files in %s: %v", dir, err)
		return nil
	}

	slices.Sort(matches)

	files := make([]string, len(matches))
	for i, match := range matches {
		files[i] = filepath.Join(dir, filepath.FromSlash(match))
	}

	return files
}
