// Package server provides the core LSP server state and management.
package server

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-rspec-lsp/internal/config"
	"github.com/CWBudde/go-rspec-lsp/internal/metrics"
	"github.com/CWBudde/go-rspec-lsp/internal/workspace"
)

var log = commonlog.GetLogger("rspec-lsp.server")

// Server holds the state of the LSP server.
type Server struct {
	// documents stores all open documents
	documents *DocumentStore

	// index maps helper names to their declarations across the workspace
	index *workspace.SymbolIndex

	// indexer feeds index; replaced when the configuration changes
	indexer *workspace.Indexer

	// watcher follows spec files changed outside the editor (nil when off)
	watcher *workspace.Watcher

	metrics *metrics.Metrics

	// workspaceFolders are file system paths of the client's workspace roots
	workspaceFolders []string

	// clientCapabilities stores the client's capabilities from the initialize request
	clientCapabilities *protocol.ClientCapabilities

	config *config.Config

	// background indexing runs
	indexCtx    context.Context
	indexCancel context.CancelFunc
	indexWG     sync.WaitGroup

	// mutex protects server state
	mu sync.RWMutex

	// shutting down flag
	shuttingDown bool
}

// New creates a new LSP server instance. m may be nil.
func New(m *metrics.Metrics) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		documents:   NewDocumentStore(),
		index:       workspace.NewSymbolIndex(),
		metrics:     m,
		config:      config.Default(),
		indexCtx:    ctx,
		indexCancel: cancel,
	}
	s.indexer = s.newIndexer(s.config)

	return s
}

func (s *Server) newIndexer(cfg *config.Config) *workspace.Indexer {
	indexer := workspace.NewIndexer(s.index, cfg.Clone())
	indexer.IsOpen = s.documents.IsOpen
	indexer.OnFileIndexed = func(string, int) {
		s.metrics.FileIndexed()
	}

	return indexer
}

// IsShuttingDown returns true if the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuttingDown
}

// SetShuttingDown marks the server as shutting down.
func (s *Server) SetShuttingDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuttingDown = true
}

// Documents returns the document store.
func (s *Server) Documents() *DocumentStore {
	return s.documents
}

// Index returns the workspace-wide helper index.
func (s *Server) Index() *workspace.SymbolIndex {
	return s.index
}

// Indexer returns the indexer for the current configuration.
func (s *Server) Indexer() *workspace.Indexer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexer
}

// Metrics returns the metrics recorder, possibly nil.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Config returns a copy of the server configuration.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// SetConfig replaces the configuration. Indexing runs started afterwards
// and the file watcher use the new settings. Turning watch off stops the
// watcher; turning it on watches the current workspace folders.
func (s *Server) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	wasWatching := s.config.Watch
	s.config = cfg.Clone()
	s.indexer = s.newIndexer(s.config)

	var stopped *workspace.Watcher
	if !s.config.Watch && s.watcher != nil {
		stopped, s.watcher = s.watcher, nil
	}

	startWatching := s.config.Watch && !wasWatching && s.watcher == nil
	folders := slices.Clone(s.workspaceFolders)
	s.mu.Unlock()

	if stopped != nil {
		if err := stopped.Stop(); err != nil {
			log.Warningf("stopping file watcher: %v", err)
		}
	}

	if startWatching && len(folders) > 0 {
		s.watch(folders)
	}
}

// Watching reports whether the file watcher is running.
func (s *Server) Watching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watcher != nil
}

// UpdateConfig applies settings from the client on top of the current
// configuration. On error the configuration is left unchanged.
func (s *Server) UpdateConfig(settings map[string]any) error {
	cfg := s.Config()
	if err := cfg.ApplySettings(settings); err != nil {
		return err
	}

	s.SetConfig(cfg)

	return nil
}

// SetWorkspaceFolders sets the workspace folders.
func (s *Server) SetWorkspaceFolders(folders []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaceFolders = slices.Clone(folders)
}

// GetWorkspaceFolders returns the workspace folders.
func (s *Server) GetWorkspaceFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.workspaceFolders)
}

// AddWorkspaceFolder adds a folder and reports whether it was new.
func (s *Server) AddWorkspaceFolder(folder string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.workspaceFolders, folder) {
		return false
	}
	s.workspaceFolders = append(s.workspaceFolders, folder)

	return true
}

// RemoveWorkspaceFolder removes a folder and drops its index entries.
// Documents still open below the folder keep their helpers.
func (s *Server) RemoveWorkspaceFolder(folder string) {
	s.mu.Lock()
	s.workspaceFolders = slices.DeleteFunc(s.workspaceFolders, func(f string) bool {
		return f == folder
	})
	s.mu.Unlock()

	removed := s.index.RemoveFolder(folder)
	log.Infof("removed %d indexed files of workspace folder %s", removed, folder)

	indexer := s.Indexer()
	for _, uri := range s.documents.List() {
		if doc, ok := s.documents.Get(uri); ok && isBelow(folder, workspace.DocumentPath(uri)) {
			indexer.IndexTree(doc.URI, doc.Tree, doc.Text)
		}
	}
}

func isBelow(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SetClientCapabilities sets the client's capabilities.
func (s *Server) SetClientCapabilities(capabilities *protocol.ClientCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientCapabilities = capabilities
}

// GetClientCapabilities returns the client's capabilities.
func (s *Server) GetClientCapabilities() *protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientCapabilities
}

// SupportsLocationLinks returns true if the client accepts LocationLink
// results for definition requests.
func (s *Server) SupportsLocationLinks() bool {
	capabilities := s.GetClientCapabilities()

	if capabilities == nil {
		return false
	}

	if capabilities.TextDocument == nil {
		return false
	}

	if capabilities.TextDocument.Definition == nil {
		return false
	}

	if capabilities.TextDocument.Definition.LinkSupport == nil {
		return false
	}

	return *capabilities.TextDocument.Definition.LinkSupport
}

// IndexFolders indexes folders synchronously and records the run.
func (s *Server) IndexFolders(ctx context.Context, folders []string) (workspace.Stats, error) {
	stats, err := s.Indexer().IndexFolders(ctx, folders)
	s.metrics.IndexRun(stats.Duration, stats.Entries)

	return stats, err
}

// StartIndexing indexes folders in the background and then starts watching
// them when the configuration asks for it.
func (s *Server) StartIndexing(folders []string) {
	if len(folders) == 0 || s.IsShuttingDown() {
		return
	}

	s.indexWG.Add(1)
	go func() {
		defer s.indexWG.Done()

		if _, err := s.IndexFolders(s.indexCtx, folders); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Errorf("workspace indexing failed: %v", err)
			}
			return
		}

		if s.Config().Watch {
			s.watch(folders)
		}
	}()
}

func (s *Server) watch(folders []string) {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return
	}

	if s.watcher == nil {
		watcher, err := workspace.NewWatcher(s.Indexer)
		if err != nil {
			s.mu.Unlock()
			log.Warningf("file watching unavailable: %v", err)
			return
		}
		watcher.Start()
		s.watcher = watcher
	}

	// Add reads the indexer through s.Indexer, so the lock is released first.
	watcher := s.watcher
	s.mu.Unlock()

	for _, folder := range folders {
		if err := watcher.Add(folder); err != nil {
			log.Warningf("failed to watch %s: %v", folder, err)
		}
	}
}

// Close cancels background indexing, stops the watcher and waits for both.
// Open documents and the index are released.
func (s *Server) Close() error {
	s.indexCancel()
	s.indexWG.Wait()

	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	s.documents.Clear()
	s.index.Clear()

	if watcher != nil {
		return watcher.Stop()
	}

	return nil
}
