package content

import (
	"errors"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timrodz/blog/internal/xerrors"
)

// SiteFile is the site configuration file at the content root.
const SiteFile = "site.yaml"

type NavItem struct {
	Path string `yaml:"path" json:"path"`
	Name string `yaml:"name" json:"name"`
}

type SocialLink struct {
	URL  string `yaml:"url" json:"url"`
	Name string `yaml:"name" json:"name"`
}

// Site holds the settings that are not tied to a single post or project.
// Bio and About are markdown.
type Site struct {
	Title       string       `yaml:"title" json:"title"`
	Description string       `yaml:"description" json:"description"`
	Author      string       `yaml:"author" json:"author"`
	BaseURL     string       `yaml:"baseURL" json:"baseURL"`
	Bio         string       `yaml:"bio" json:"-"`
	About       string       `yaml:"about" json:"-"`
	Nav         []NavItem    `yaml:"nav" json:"nav"`
	Links       []SocialLink `yaml:"links" json:"links"`
	AnalyticsID string       `yaml:"analyticsID" json:"-"`
}

// DefaultSite is used when the content root has no site.yaml, and fills any
// field site.yaml leaves empty.
func DefaultSite() Site {
	return Site{
		Title:       "Blog",
		Description: "Posts and projects.",
		Nav: []NavItem{
			{Path: "/", Name: "home"},
			{Path: "/posts", Name: "posts"},
			{Path: "/projects", Name: "projects"},
			{Path: "/about", Name: "about"},
		},
		Links: []SocialLink{{URL: "/rss", Name: "RSS Feed"}},
	}
}

// LoadSite reads SiteFile from fsys. A missing file yields DefaultSite.
func LoadSite(fsys fs.FS) (Site, error) {
	site := DefaultSite()
	data, err := fs.ReadFile(fsys, SiteFile)
	if errors.Is(err, fs.ErrNotExist) {
		return site, nil
	}
	if err != nil {
		return Site{}, xerrors.WithStack(&FilesystemError{Op: "read", Path: SiteFile, Err: err})
	}

	var parsed Site
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Site{}, xerrors.Wrapf(err, "parse %s", SiteFile)
	}
	site.merge(parsed)
	return site, nil
}

func (s *Site) merge(o Site) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&s.Title, o.Title)
	set(&s.Description, o.Description)
	set(&s.Author, o.Author)
	set(&s.BaseURL, strings.TrimRight(o.BaseURL, "/"))
	set(&s.AnalyticsID, o.AnalyticsID)
	if o.Bio != "" {
		s.Bio = o.Bio
	}
	if o.About != "" {
		s.About = o.About
	}
	if len(o.Nav) > 0 {
		s.Nav = o.Nav
	}
	if len(o.Links) > 0 {
		s.Links = o.Links
	}
}
