package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/CWBudde/go-rspec-lsp/internal/config"
	"github.com/CWBudde/go-rspec-lsp/internal/document"
	"github.com/CWBudde/go-rspec-lsp/internal/syntax"
)

// Stats summarizes one indexing run.
type Stats struct {
	Files    int // files parsed and indexed
	Skipped  int // files whose content had not changed
	Failed   int // files that could not be read or parsed
	Entries  int // helper declarations in the index afterwards
	Names    int // distinct helper names
	Indexed  int // files in the index afterwards
	Duration time.Duration
}

// Indexer handles workspace file indexing.
type Indexer struct {
	index *SymbolIndex
	cfg   *config.Config

	// OnFileIndexed is called after each file is (re)indexed. Optional.
	OnFileIndexed func(path string, entries int)

	// IsOpen reports whether a file is open in the editor. The buffer owns
	// the entries of an open file, so disk reads leave them alone. Optional.
	IsOpen func(path string) bool

	fileCount atomic.Int64
}

// NewIndexer creates a new workspace indexer.
func NewIndexer(index *SymbolIndex, cfg *config.Config) *Indexer {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Indexer{index: index, cfg: cfg}
}

// Index returns the index the indexer writes to.
func (idx *Indexer) Index() *SymbolIndex {
	return idx.index
}

// IndexFolders scans workspace folders and indexes every file matching the
// configured spec globs. Files are parsed concurrently. Cancelling ctx stops
// the run; what was indexed so far stays in the index.
func (idx *Indexer) IndexFolders(ctx context.Context, folders []string) (Stats, error) {
	start := time.Now()

	var paths []string
	for _, folder := range folders {
		found, err := idx.collect(folder)
		if err != nil {
			log.Warningf("skipping workspace folder %s: %v", folder, err)
			continue
		}
		paths = append(paths, found...)
	}

	if limit := idx.cfg.MaxFiles; limit > 0 && len(paths) > limit {
		log.Warningf("workspace has %d spec files, indexing the first %d", len(paths), limit)
		paths = paths[:limit]
	}

	log.Infof("indexing %d spec files in %d folders", len(paths), len(folders))

	var indexed, skipped, failed atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(idx.cfg.IndexConcurrency)

	for _, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			changed, err := idx.IndexFile(groupCtx, path)
			switch {
			case err != nil:
				failed.Add(1)
				log.Debugf("could not index %s: %v", path, err)
			case changed:
				indexed.Add(1)
			default:
				skipped.Add(1)
			}

			return nil
		})
	}

	err := group.Wait()

	stats := Stats{
		Files:    int(indexed.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
		Entries:  idx.index.EntryCount(),
		Names:    idx.index.SymbolCount(),
		Indexed:  idx.index.FileCount(),
		Duration: time.Since(start),
	}

	log.Infof("workspace indexing complete: %d indexed, %d unchanged, %d failed, %d helpers (%d names) in %d files in %s",
		stats.Files, stats.Skipped, stats.Failed, stats.Entries, stats.Names, stats.Indexed, stats.Duration)

	if err != nil {
		return stats, fmt.Errorf("indexing workspace: %w", err)
	}

	return stats, nil
}

// collect returns the absolute paths below folder that match the spec globs.
func (idx *Indexer) collect(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", folder)
	}

	var paths []string
	seen := make(map[string]bool)

	err = doublestar.GlobWalk(os.DirFS(folder), "**/*.rb", func(rel string, d fs.DirEntry) error {
		if !idx.matchesRelative(rel) {
			return nil
		}

		path := filepath.Join(folder, filepath.FromSlash(rel))
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}

		return nil
	}, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())

	return paths, err
}

// Matches reports whether a path relative to a workspace root is a spec
// file that should be indexed.
func (idx *Indexer) Matches(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}

	return idx.matchesRelative(filepath.ToSlash(rel))
}

func (idx *Indexer) matchesRelative(rel string) bool {
	if idx.excluded(rel) {
		return false
	}

	for _, pattern := range idx.cfg.SpecGlobs {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}

	return false
}

// excluded reports whether a slash-separated relative file path lies in an
// excluded directory.
func (idx *Indexer) excluded(rel string) bool {
	return idx.excludedDir(path.Dir(rel))
}

// excludedDir reports whether any component of a slash-separated relative
// directory is hidden or listed in ExcludeDirs.
func (idx *Indexer) excludedDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}

	for _, dir := range strings.Split(rel, "/") {
		if strings.HasPrefix(dir, ".") {
			return true
		}
		if slices.Contains(idx.cfg.ExcludeDirs, dir) {
			return true
		}
	}

	return false
}

// IndexFile reads, parses and indexes one file. It reports false when the
// content digest matches the one already indexed or the file is open.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (bool, error) {
	if idx.IsOpen != nil && idx.IsOpen(path) {
		return false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	digest := xxhash.Sum64(content)
	if previous, ok := idx.index.FileDigest(path); ok && previous == digest {
		return false, nil
	}

	if err := idx.IndexSource(ctx, PathURI(path), content); err != nil {
		return false, err
	}

	return true, nil
}

// IndexSource parses source and replaces the entries of documentURI.
func (idx *Indexer) IndexSource(ctx context.Context, documentURI string, source []byte) error {
	tree, err := syntax.Parse(ctx, source)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", documentURI, err)
	}
	defer tree.Close()

	idx.IndexTree(documentURI, tree, document.NewText(string(source)))

	return nil
}

// IndexTree indexes an already parsed document, e.g. one open in the editor.
func (idx *Indexer) IndexTree(documentURI string, tree *syntax.Tree, text *document.Text) {
	entries := ExtractHelpers(tree, text, documentURI)
	idx.index.ReplaceFile(documentURI, xxhash.Sum64String(text.String()), entries)

	count := idx.fileCount.Add(1)
	if count%100 == 0 {
		log.Infof("indexed %d files so far", count)
	}

	if idx.OnFileIndexed != nil {
		idx.OnFileIndexed(DocumentPath(documentURI), len(entries))
	}
}

// RemoveFile drops a deleted file from the index.
func (idx *Indexer) RemoveFile(path string) {
	idx.index.RemoveFile(PathURI(path))
}
