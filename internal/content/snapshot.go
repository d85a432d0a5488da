package content

import (
	"errors"
	"io/fs"
	"time"
)

// Snapshot is one immutable, fully parsed view of the content root.
// Posts and Projects are sorted newest first.
type Snapshot struct {
	FS         fs.FS
	Site       Site
	Posts      []Post
	Projects   []Project
	Meta       Meta
	Provenance *Provenance
	LoadedAt   time.Time
}

type BuildOptions struct {
	// Location is where date-only header values are anchored. nil means
	// time.Local.
	Location *time.Location
}

// BuildSnapshot parses site.yaml, posts and projects out of fsys. A missing
// posts or projects directory is an empty category; any malformed file
// fails the build. provenance.json is optional.
func BuildSnapshot(fsys fs.FS, meta Meta, opts BuildOptions) (*Snapshot, error) {
	site, err := LoadSite(fsys)
	if err != nil {
		return nil, err
	}
	posts, err := LoadPosts(fsys, opts.Location)
	if err != nil && !missingDir(err) {
		return nil, err
	}
	projects, err := LoadProjects(fsys, opts.Location)
	if err != nil && !missingDir(err) {
		return nil, err
	}

	snap := &Snapshot{
		FS:       fsys,
		Site:     site,
		Posts:    posts,
		Projects: projects,
		Meta:     meta,
		LoadedAt: time.Now().UTC(),
	}
	if prov, err := LoadProvenance(fsys); err == nil {
		snap.Provenance = prov
	}
	return snap, nil
}

func missingDir(err error) bool {
	var fe *FilesystemError
	return errors.As(err, &fe) && fe.Op == "readdir" && errors.Is(err, fs.ErrNotExist)
}

// Post returns the post with the given slug.
func (s *Snapshot) Post(slug string) (Post, bool) {
	for _, p := range s.Posts {
		if p.Slug == slug {
			return p, true
		}
	}
	return Post{}, false
}

// Project returns the project with the given slug.
func (s *Snapshot) Project(slug string) (Project, bool) {
	for _, p := range s.Projects {
		if p.Slug == slug {
			return p, true
		}
	}
	return Project{}, false
}

// FeaturedProjects returns projects marked featured, keeping date order.
func (s *Snapshot) FeaturedProjects() []Project {
	var out []Project
	for _, p := range s.Projects {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}
