package content

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"testing/fstest"
	"time"

	"github.com/timrodz/blog/internal/pathutil"
	"github.com/timrodz/blog/internal/xerrors"
)

const (
	// maxBundleSize caps a compressed bundle read from remote storage.
	maxBundleSize int64 = 50 << 20

	// maxSingleFile caps one extracted file.
	maxSingleFile int64 = 10 << 20

	// maxTotalExtract caps the sum of extracted file sizes.
	maxTotalExtract int64 = 100 << 20
)

// readWithHash reads r up to maxSize bytes and returns the data with its
// hex SHA-256.
func readWithHash(r io.Reader, maxSize int64) ([]byte, string, error) {
	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(io.LimitReader(r, maxSize+1), h))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", xerrors.Newf("bundle exceeds max size (limit %d bytes)", maxSize)
	}
	return data, hex.EncodeToString(h.Sum(nil)), nil
}

// cleanArchivePath validates a tar entry name. "" means skip the entry.
func cleanArchivePath(name string) (string, error) {
	clean, err := pathutil.ArchiveEntry(name)
	if err != nil {
		return "", xerrors.Wrapf(err, "archive entry %q", name)
	}
	return clean, nil
}

// ExtractBundle unpacks a .tar.gz bundle into an in-memory filesystem.
// Only directories and regular files are accepted; links and devices fail
// the whole bundle.
func ExtractBundle(data []byte) (fs.FS, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Wrap(err, "open gzip")
	}
	defer gr.Close()

	mfs := make(fstest.MapFS)
	tr := tar.NewReader(gr)
	var total int64

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.Wrap(err, "read tar header")
		}

		name, err := cleanArchivePath(hdr.Name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			mfs[name] = &fstest.MapFile{Mode: fs.ModeDir | 0o755}
		case tar.TypeReg:
			if hdr.Size > maxSingleFile {
				return nil, xerrors.Newf("file %s exceeds max size (%d > %d)", name, hdr.Size, maxSingleFile)
			}
			body, err := io.ReadAll(io.LimitReader(tr, maxSingleFile+1))
			if err != nil {
				return nil, xerrors.Wrapf(err, "read %s", name)
			}
			if int64(len(body)) > maxSingleFile {
				return nil, xerrors.Newf("file %s exceeds max size after read", name)
			}
			total += int64(len(body))
			if total > maxTotalExtract {
				return nil, xerrors.Newf("total extracted size exceeds limit (%d bytes)", maxTotalExtract)
			}
			mfs[name] = &fstest.MapFile{
				Data:    body,
				Mode:    hdr.FileInfo().Mode().Perm(),
				ModTime: hdr.ModTime,
			}
		default:
			return nil, xerrors.Newf("unsupported entry type in archive: %s (type=%d)", name, hdr.Typeflag)
		}
	}
	return mfs, nil
}

// WriteBundle writes every regular file of fsys as a gzipped tar to w.
// Entries are in lexical order with fixed mode, owner and mtime, so the
// same tree always produces the same bytes.
func WriteBundle(w io.Writer, fsys fs.FS) error {
	gw := gzip.NewWriter(w)
	gw.ModTime = time.Unix(0, 0)
	tw := tar.NewWriter(gw)
	epoch := time.Unix(0, 0).UTC()

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if d.IsDir() {
			return tw.WriteHeader(&tar.Header{
				Name: p + "/", Typeflag: tar.TypeDir, Mode: 0o755, ModTime: epoch, Format: tar.FormatPAX,
			})
		}
		if !regularFile(fsys, p, d) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if err := tw.WriteHeader(&tar.Header{
			Name: p, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(data)), ModTime: epoch, Format: tar.FormatPAX,
		}); err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return xerrors.Wrap(err, "write bundle")
	}
	if err := tw.Close(); err != nil {
		return xerrors.Wrap(err, "close tar")
	}
	return xerrors.Wrap(gw.Close(), "close gzip")
}
