package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/timrodz/blog/internal/pathutil"
)

// resolvePublic maps a URL path to a regular file under dir in fsys.
// Only exact file matches are served; directories never list or fall back
// to an index page.
func resolvePublic(urlPath, dir string, fsys fs.FS) (string, bool) {
	if fsys == nil || urlPath == "" || urlPath == "/" {
		return "", false
	}
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	rel, ok := pathutil.PublicFile(urlPath)
	if !ok {
		return "", false
	}

	name := path.Join(dir, rel)
	if !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

func existsFile(fsys fs.FS, name string) bool {
	if fsys == nil || name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
