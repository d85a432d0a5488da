package content

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/xerrors"
)

// DiskLoader builds snapshots from a content directory on local disk.
type DiskLoader struct {
	Root     string
	Location *time.Location
	Logger   log.Logger

	// FS overrides os.DirFS(Root). Used for the embedded seed content.
	FS     fs.FS
	Source Source
}

func (l *DiskLoader) fsys() (fs.FS, error) {
	if l.FS != nil {
		return l.FS, nil
	}
	if l.Root == "" {
		return nil, xerrors.New("content root is not configured")
	}
	st, err := os.Stat(l.Root)
	if err != nil {
		return nil, xerrors.WithStack(&FilesystemError{Op: "open", Path: l.Root, Err: err})
	}
	if !st.IsDir() {
		return nil, xerrors.Newf("content root %s is not a directory", l.Root)
	}
	return os.DirFS(l.Root), nil
}

// Load parses the whole tree into a new Snapshot. The snapshot hash is
// HashFS over the tree, so an unchanged tree reloads to the same hash.
func (l *DiskLoader) Load(ctx context.Context) (*Snapshot, error) {
	logger := l.Logger
	if logger == nil {
		logger = log.Nop()
	}
	fsys, err := l.fsys()
	if err != nil {
		return nil, err
	}

	hash, _, err := HashFS(fsys)
	if err != nil {
		return nil, err
	}
	src := l.Source
	if src == "" {
		src = SourceDisk
	}
	snap, err := BuildSnapshot(fsys, Meta{SHA256: hash, Source: src, VerifiedAt: time.Now().UTC()}, BuildOptions{Location: l.Location})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "loaded content from disk",
		"root", l.Root,
		"source", src,
		"hash", truncHash(hash),
		"posts", len(snap.Posts),
		"projects", len(snap.Projects),
	)
	return snap, nil
}
