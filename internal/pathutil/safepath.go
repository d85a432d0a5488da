// Package pathutil validates untrusted paths before they touch a
// filesystem: request paths for public files and entry names from
// content bundles.
package pathutil

import (
	"errors"
	"io/fs"
	"path"
	"strings"
)

var (
	ErrAbsolute  = errors.New("absolute path")
	ErrTraversal = errors.New("path traversal")
	ErrInvalid   = errors.New("invalid path")
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// HasHiddenSegment reports whether any segment is a dotfile or dot directory.
// "." and ".." count as hidden too.
func HasHiddenSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// PublicFile turns a request path into an fs.FS name, or reports false when
// the path must not be served. Directories, dotfiles, backslashes, NULs and
// any ".." are rejected outright rather than cleaned.
func PublicFile(urlPath string) (string, bool) {
	if urlPath == "" || urlPath == "/" || strings.HasSuffix(urlPath, "/") {
		return "", false
	}
	if strings.ContainsAny(urlPath, "\x00\\") || strings.Contains(urlPath, "..") {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, "/")
	if HasDotSegments(rel) || HasHiddenSegment(rel) || strings.Contains(rel, "//") {
		return "", false
	}
	if !fs.ValidPath(rel) {
		return "", false
	}
	return rel, true
}

// ArchiveEntry normalizes a tar entry name. A leading "./" is allowed since
// tar -C dir . produces it; the archive root itself comes back as "".
func ArchiveEntry(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || clean == "" {
		return "", nil
	}
	switch {
	case path.IsAbs(clean):
		return "", ErrAbsolute
	case clean == ".." || strings.HasPrefix(clean, "../"):
		return "", ErrTraversal
	case !fs.ValidPath(clean):
		return "", ErrInvalid
	}
	return clean, nil
}
