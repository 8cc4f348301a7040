// Package workspace provides workspace-wide indexing of RSpec helper
// declarations.
package workspace

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("rspec-lsp.workspace")

// HelperKind is the DSL construct that declared a helper.
type HelperKind string

const (
	KindLet         HelperKind = "let"
	KindLetBang     HelperKind = "let!"
	KindSubject     HelperKind = "subject"
	KindSubjectBang HelperKind = "subject!"
)

// Entry is one declaration of a helper.
type Entry struct {
	Name string
	Kind HelperKind

	URI  string // declaring document
	Path string // file system path of URI

	// Range covers the whole declaration; NameRange covers just the name.
	Range     protocol.Range
	NameRange protocol.Range

	// Container is the description of the enclosing example group.
	Container string
}

// Location returns the declaration as a plain location.
func (e Entry) Location() protocol.Location {
	return protocol.Location{URI: e.URI, Range: e.Range}
}

// FileInfo stores metadata about an indexed file.
type FileInfo struct {
	URI    string
	Path   string
	Digest uint64   // content digest at indexing time
	Names  []string // helper names declared in this file
}

// SymbolIndex maps helper names to their declarations across the
// workspace. It is safe for concurrent use; lookups return copies, so a
// caller holds a stable snapshot while the index keeps changing.
type SymbolIndex struct {
	// symbols keeps entries per name in insertion order
	symbols map[string][]Entry

	// files is keyed by file system path
	files map[string]*FileInfo

	mutex sync.RWMutex
}

// NewSymbolIndex creates a new empty symbol index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		symbols: make(map[string][]Entry),
		files:   make(map[string]*FileInfo),
	}
}

// addLocked appends an entry. Duplicate entries are kept.
func (si *SymbolIndex) addLocked(entry Entry) {
	if entry.Path == "" {
		entry.Path = DocumentPath(entry.URI)
	}

	si.symbols[entry.Name] = append(si.symbols[entry.Name], entry)

	fileInfo, exists := si.files[entry.Path]
	if !exists {
		fileInfo = &FileInfo{URI: entry.URI, Path: entry.Path}
		si.files[entry.Path] = fileInfo
	}
	fileInfo.Names = append(fileInfo.Names, entry.Name)
}

// ReplaceFile atomically swaps the entries of one file. Readers see either
// the old or the new set, never a mix.
func (si *SymbolIndex) ReplaceFile(documentURI string, digest uint64, entries []Entry) {
	path := DocumentPath(documentURI)

	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.removeLocked(path)

	si.files[path] = &FileInfo{URI: documentURI, Path: path, Digest: digest}
	for _, entry := range entries {
		entry.URI = documentURI
		entry.Path = path
		si.addLocked(entry)
	}

	log.Debugf("indexed %d helpers in %s", len(entries), path)
}

// Lookup returns the declarations of name in insertion order, or nil.
func (si *SymbolIndex) Lookup(name string) []Entry {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	entries, exists := si.symbols[name]
	if !exists {
		return nil
	}

	result := make([]Entry, len(entries))
	copy(result, entries)

	return result
}

// FindInFile returns all entries declared in a document, ordered by
// position.
func (si *SymbolIndex) FindInFile(documentURI string) []Entry {
	path := DocumentPath(documentURI)

	si.mutex.RLock()
	defer si.mutex.RUnlock()

	fileInfo, exists := si.files[path]
	if !exists {
		return nil
	}

	var result []Entry
	seen := make(map[string]bool, len(fileInfo.Names))
	for _, name := range fileInfo.Names {
		if seen[name] {
			continue
		}
		seen[name] = true

		for _, entry := range si.symbols[name] {
			if entry.Path == path {
				result = append(result, entry)
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].Range.Start, result[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Character < b.Character
	})

	return result
}

// FileDigest returns the digest recorded for a file.
func (si *SymbolIndex) FileDigest(path string) (uint64, bool) {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	fileInfo, exists := si.files[path]
	if !exists {
		return 0, false
	}

	return fileInfo.Digest, true
}

// RemoveFile removes all entries of a document.
func (si *SymbolIndex) RemoveFile(documentURI string) {
	path := DocumentPath(documentURI)

	si.mutex.Lock()
	defer si.mutex.Unlock()

	if si.removeLocked(path) {
		log.Debugf("removed helpers of %s", path)
	}
}

func (si *SymbolIndex) removeLocked(path string) bool {
	fileInfo, exists := si.files[path]
	if !exists {
		return false
	}

	for _, name := range fileInfo.Names {
		entries := si.symbols[name]

		var remaining []Entry
		for _, entry := range entries {
			if entry.Path != path {
				remaining = append(remaining, entry)
			}
		}

		if len(remaining) > 0 {
			si.symbols[name] = remaining
		} else {
			delete(si.symbols, name)
		}
	}

	delete(si.files, path)

	return true
}

// RemoveFolder drops every file below a directory.
func (si *SymbolIndex) RemoveFolder(dir string) int {
	sep := string(filepath.Separator)
	prefix := strings.TrimSuffix(dir, sep) + sep

	si.mutex.Lock()
	defer si.mutex.Unlock()

	removed := 0
	for path := range si.files {
		if strings.HasPrefix(path, prefix) {
			si.removeLocked(path)
			removed++
		}
	}

	return removed
}

// FileCount returns the number of indexed files.
func (si *SymbolIndex) FileCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()
	return len(si.files)
}

// SymbolCount returns the number of distinct helper names.
func (si *SymbolIndex) SymbolCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()
	return len(si.symbols)
}

// EntryCount returns the total number of declarations.
func (si *SymbolIndex) EntryCount() int {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	count := 0
	for _, entries := range si.symbols {
		count += len(entries)
	}
	return count
}

// Clear removes all entries and file information from the index.
func (si *SymbolIndex) Clear() {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.symbols = make(map[string][]Entry)
	si.files = make(map[string]*FileInfo)
}

// Search returns entries whose names contain query, case-insensitively,
// sorted by name. An empty query matches everything. maxResults <= 0 means
// no limit.
func (si *SymbolIndex) Search(query string, maxResults int) []Entry {
	queryLower := strings.ToLower(query)

	si.mutex.RLock()
	defer si.mutex.RUnlock()

	names := make([]string, 0, len(si.symbols))
	for name := range si.symbols {
		if strings.Contains(strings.ToLower(name), queryLower) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var results []Entry
	for _, name := range names {
		for _, entry := range si.symbols[name] {
			results = append(results, entry)
			if maxResults > 0 && len(results) >= maxResults {
				return results
			}
		}
	}

	return results
}
