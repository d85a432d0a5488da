package content

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/timrodz/blog/internal/xerrors"
)

// ProvenanceFilePath is where a bundle carries its manifest.
const ProvenanceFilePath = "provenance.json"

const ProvenanceSchema = "blog.content.provenance/v1"

// Provenance is the manifest contentctl writes into every bundle.
type Provenance struct {
	Schema      string            `json:"schema"`
	Version     string            `json:"version"`
	ContentHash string            `json:"content_hash"`
	CreatedAt   time.Time         `json:"created_at"`
	Source      ProvenanceSource  `json:"source"`
	Summary     ProvenanceSummary `json:"summary"`
	Files       []ProvenanceFile  `json:"files"`
	Tooling     map[string]string `json:"tooling,omitempty"`
}

type ProvenanceSource struct {
	Repository  string `json:"repository,omitempty"`
	Commit      string `json:"commit,omitempty"`
	CommitShort string `json:"commit_short,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Dirty       bool   `json:"dirty"`
}

type ProvenanceSummary struct {
	TotalFiles int            `json:"total_files"`
	TotalSize  int64          `json:"total_size"`
	Posts      int            `json:"posts"`
	Projects   int            `json:"projects"`
	FileTypes  map[string]int `json:"file_types"`
}

type ProvenanceFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// LoadProvenance reads and parses ProvenanceFilePath from fsys.
func LoadProvenance(fsys fs.FS) (*Provenance, error) {
	data, err := fs.ReadFile(fsys, ProvenanceFilePath)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s", ProvenanceFilePath)
	}
	var p Provenance
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, xerrors.Wrapf(err, "parse %s", ProvenanceFilePath)
	}
	return &p, nil
}

// HashFS digests every regular file in fsys except the provenance manifest.
// Files are visited in lexical order and each contributes its path and its
// own SHA-256, so the result does not depend on archive layout or mtimes.
func HashFS(fsys fs.FS) (string, []ProvenanceFile, error) {
	outer := sha256.New()
	var files []ProvenanceFile
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == ProvenanceFilePath || !regularFile(fsys, p, d) {
			return nil
		}
		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		h := sha256.New()
		n, err := io.Copy(h, f)
		if err != nil {
			return err
		}
		sum := hex.EncodeToString(h.Sum(nil))
		io.WriteString(outer, p+"\x00"+sum+"\n")
		files = append(files, ProvenanceFile{Path: p, SHA256: sum, Size: n})
		return nil
	})
	if err != nil {
		return "", nil, xerrors.Wrap(err, "hash content")
	}
	return hex.EncodeToString(outer.Sum(nil)), files, nil
}

// BuildProvenance describes fsys for a new bundle.
func BuildProvenance(fsys fs.FS, version string, src ProvenanceSource, now time.Time) (*Provenance, error) {
	hash, files, err := HashFS(fsys)
	if err != nil {
		return nil, err
	}
	sum := ProvenanceSummary{FileTypes: map[string]int{}}
	for _, f := range files {
		sum.TotalFiles++
		sum.TotalSize += f.Size
		ext := strings.TrimPrefix(path.Ext(f.Path), ".")
		if ext == "" {
			ext = "none"
		}
		sum.FileTypes[ext]++
		switch dir := path.Dir(f.Path); {
		case dir == PostsDir && path.Ext(f.Path) == Ext:
			sum.Posts++
		case dir == ProjectsDir && path.Ext(f.Path) == Ext:
			sum.Projects++
		}
	}
	if src.CommitShort == "" && len(src.Commit) >= 7 {
		src.CommitShort = src.Commit[:7]
	}
	return &Provenance{
		Schema:      ProvenanceSchema,
		Version:     version,
		ContentHash: hash,
		CreatedAt:   now.UTC(),
		Source:      src,
		Summary:     sum,
		Files:       files,
	}, nil
}
