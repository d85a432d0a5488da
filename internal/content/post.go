package content

import (
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/timrodz/blog/internal/xerrors"
)

const (
	PostsDir    = "posts"
	ProjectsDir = "projects"
)

type Post struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     string    `json:"summary"`
	Image       string    `json:"image,omitempty"`
	Body        string    `json:"-"`
}

func (p Post) Date() time.Time { return p.PublishedAt }
func (p Post) Key() string     { return p.Slug }

type Project struct {
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	PublishedAt  time.Time `json:"publishedAt"`
	Type         string    `json:"type"`
	Summary      string    `json:"summary,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	ImageAlt     string    `json:"imageAlt,omitempty"`
	Featured     bool      `json:"featured"`
	ReleaseYear  string    `json:"releaseYear,omitempty"`
	WorkingYears string    `json:"workingYears,omitempty"`
	URL          string    `json:"url,omitempty"`
	Technologies []string  `json:"technologies,omitempty"`
	ClientName   string    `json:"clientName,omitempty"`
	Role         string    `json:"role,omitempty"`
	Body         string    `json:"-"`
}

func (p Project) Date() time.Time { return p.PublishedAt }
func (p Project) Key() string     { return p.Slug }

// schema reads typed fields out of an entry's header, remembering the first
// failure so callers can check once at the end.
type schema struct {
	e   Entry
	loc *time.Location
	err error
}

func (s *schema) fail(field, reason string) {
	if s.err == nil {
		s.err = xerrors.WithStack(&MalformedContentError{Path: s.e.Path, Field: field, Reason: reason})
	}
}

func (s *schema) required(field string) string {
	v, ok := s.e.Header.Get(field)
	if !ok || v == "" {
		s.fail(field, "missing required field")
	}
	return v
}

func (s *schema) optional(field string) string { return s.e.Header.Value(field) }

func (s *schema) date(field string) time.Time {
	v := s.required(field)
	if v == "" {
		return time.Time{}
	}
	t, err := ParseDate(v, s.loc)
	if err != nil {
		s.fail(field, "invalid date "+strconv.Quote(v))
	}
	return t
}

func (s *schema) boolean(field string) bool {
	v, ok := s.e.Header.Get(field)
	if !ok || v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.fail(field, "invalid boolean "+strconv.Quote(v))
	}
	return b
}

func (s *schema) list(field string) []string {
	v := s.e.Header.Value(field)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PostFromEntry validates e against the post schema: title, publishedAt and
// summary are required, image is optional.
func PostFromEntry(e Entry, loc *time.Location) (Post, error) {
	s := &schema{e: e, loc: loc}
	p := Post{
		Slug:        e.Slug,
		Title:       s.required("title"),
		PublishedAt: s.date("publishedAt"),
		Summary:     s.required("summary"),
		Image:       s.optional("image"),
		Body:        e.Body,
	}
	if s.err != nil {
		return Post{}, s.err
	}
	return p, nil
}

// ProjectFromEntry validates e against the project schema: title,
// publishedAt and type are required. technologies is a comma separated list.
func ProjectFromEntry(e Entry, loc *time.Location) (Project, error) {
	s := &schema{e: e, loc: loc}
	p := Project{
		Slug:         e.Slug,
		Title:        s.required("title"),
		PublishedAt:  s.date("publishedAt"),
		Type:         s.required("type"),
		Summary:      s.optional("summary"),
		ImageURL:     s.optional("imageUrl"),
		ImageAlt:     s.optional("imageAlt"),
		Featured:     s.boolean("featured"),
		ReleaseYear:  s.optional("releaseYear"),
		WorkingYears: s.optional("workingYears"),
		URL:          s.optional("url"),
		Technologies: s.list("technologies"),
		ClientName:   s.optional("clientName"),
		Role:         s.optional("role"),
		Body:         e.Body,
	}
	if s.err != nil {
		return Project{}, s.err
	}
	return p, nil
}

// LoadPosts loads and validates every post under PostsDir, newest first.
func LoadPosts(fsys fs.FS, loc *time.Location) ([]Post, error) {
	return loadTyped(fsys, PostsDir, loc, PostFromEntry)
}

// LoadProjects loads and validates every project under ProjectsDir, newest first.
func LoadProjects(fsys fs.FS, loc *time.Location) ([]Project, error) {
	return loadTyped(fsys, ProjectsDir, loc, ProjectFromEntry)
}

func loadTyped[T Dated](fsys fs.FS, dir string, loc *time.Location, conv func(Entry, *time.Location) (T, error)) ([]T, error) {
	entries, err := LoadEntries(fsys, dir)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		v, err := conv(e, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	SortByDate(out)
	return out, nil
}

// Dated is implemented by Post and Project.
type Dated interface {
	Date() time.Time
	Key() string
}

// SortByDate orders items newest first. Equal dates fall back to slug order
// so listings are stable across loads.
func SortByDate[T Dated](items []T) {
	slices.SortFunc(items, func(a, b T) int {
		if c := b.Date().Compare(a.Date()); c != 0 {
			return c
		}
		return strings.Compare(a.Key(), b.Key())
	})
}
