package util

import (
	"path/filepath"
	"strings"
)

// PathToURI converts a filesystem path to a file:// URI. Tool results
// report callable locations this way so clients can open them directly.
func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "file://" + path
	}
	return "file://" + filepath.ToSlash(abs)
}

// URIToPath converts a file:// URI back to a filesystem path.
// Non-file URIs pass through unchanged.
func URIToPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return filepath.FromSlash(uri[7:])
	}
	return uri
}
