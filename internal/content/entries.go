package content

import (
	"errors"
	"io/fs"
	"os"
	"path"

	"github.com/timrodz/blog/internal/xerrors"
)

// Ext is the file extension of content files.
const Ext = ".mdx"

// Entry is one parsed content file. Entries are built fresh by every load
// and are not shared between callers.
type Entry struct {
	Header Header
	// Slug is the file name without its extension.
	Slug string
	// Body is the file with the header block removed, trimmed.
	Body string
	// Path is the file's location within the filesystem it was read from.
	Path string
}

// ListFiles returns the names of the regular files in dir whose extension is
// Ext, in directory listing order. Symlinks to regular files count; dangling
// links and subdirectories are skipped.
func ListFiles(fsys fs.FS, dir string) ([]string, error) {
	des, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, xerrors.WithStack(&FilesystemError{Op: "readdir", Path: dir, Err: err})
	}
	names := make([]string, 0, len(des))
	for _, d := range des {
		if path.Ext(d.Name()) != Ext || !regularFile(fsys, path.Join(dir, d.Name()), d) {
			continue
		}
		names = append(names, d.Name())
	}
	return names, nil
}

// regularFile reports whether d is a regular file or a symlink that
// resolves to one.
func regularFile(fsys fs.FS, p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := fs.Stat(fsys, p)
	return err == nil && fi.Mode().IsRegular()
}

// ReadEntry reads and parses the content file at p.
func ReadEntry(fsys fs.FS, p string) (Entry, error) {
	raw, err := fs.ReadFile(fsys, p)
	if err != nil {
		return Entry{}, xerrors.WithStack(&FilesystemError{Op: "read", Path: p, Err: err})
	}

	h, body, err := ParseFrontmatter(string(raw))
	if err != nil {
		var me *MalformedContentError
		if errors.As(err, &me) {
			me.Path = p
		}
		return Entry{}, xerrors.WithStack(err)
	}

	base := path.Base(p)
	return Entry{
		Header: h,
		Slug:   base[:len(base)-len(path.Ext(base))],
		Body:   body,
		Path:   p,
	}, nil
}

// LoadEntries parses every content file in dir. An empty directory yields an
// empty slice. The first unreadable or malformed file fails the whole load.
func LoadEntries(fsys fs.FS, dir string) ([]Entry, error) {
	names, err := ListFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := ReadEntry(fsys, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadDir is LoadEntries rooted at a directory on disk. root must be given
// explicitly; it is never derived from the working directory.
func LoadDir(root, dir string) ([]Entry, error) {
	if root == "" {
		return nil, xerrors.WithStack(&FilesystemError{Op: "open", Path: dir, Err: fs.ErrInvalid})
	}
	if _, err := os.Stat(root); err != nil {
		return nil, xerrors.WithStack(&FilesystemError{Op: "open", Path: root, Err: err})
	}
	return LoadEntries(os.DirFS(root), dir)
}
