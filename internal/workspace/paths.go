package workspace

import (
	"net/url"
	"strings"

	"go.lsp.dev/uri"
)

const fileURIPrefix = uri.FileScheme + "://"

// DocumentPath returns the file system path of a document URI. Documents
// without a file scheme (e.g. untitled buffers) keep their URI as identity,
// as do file URIs that do not parse.
func DocumentPath(documentURI string) string {
	if !IsFileURI(documentURI) {
		return documentURI
	}

	normalized := uri.New(documentURI)
	if _, err := url.ParseRequestURI(string(normalized)); err != nil {
		return documentURI
	}

	return normalized.Filename()
}

// PathURI returns the file URI of a file system path.
func PathURI(path string) string {
	return string(uri.File(path))
}

// IsFileURI reports whether documentURI uses the file scheme.
func IsFileURI(documentURI string) bool {
	return strings.HasPrefix(documentURI, fileURIPrefix)
}
