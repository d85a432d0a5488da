package sitehandler

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/xerrors"
)

const (
	pageHome     = "home.html"
	pageAbout    = "about.html"
	pagePosts    = "posts.html"
	pagePost     = "post.html"
	pageProjects = "projects.html"
	pageProject  = "project.html"
	pageNotFound = "404.html"
)

var pageNames = []string{pageHome, pageAbout, pagePosts, pagePost, pageProjects, pageProject, pageNotFound}

// pageData is the single view model every page template receives.
type pageData struct {
	Site         content.Site
	Title        string
	Description  string
	Canonical    string
	OG           *openGraph
	JSONLD       *blogPosting
	Year         int
	AssetVersion string

	// Body is rendered markdown: the post or project body, the bio on the
	// home page, or the about text.
	Body     template.HTML
	Posts    []content.Post
	Projects []content.Project
	Post     *content.Post
	Project  *content.Project
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time, rel bool) string { return h.opts.Dates.FormatTime(t, rel) },
		"isoDate":    isoDate,
	}
}

// parsePages builds one template set per page so each page's "content"
// block is isolated from the others.
func (h *Handler) parsePages(fsys fs.FS) error {
	h.pages = make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(h.funcs()).ParseFS(fsys, "layout.html", name)
		if err != nil {
			return xerrors.Wrapf(err, "parse template %s", name)
		}
		h.pages[name] = t
	}
	og, err := template.New("og.svg").ParseFS(fsys, "og.svg")
	if err != nil {
		return xerrors.Wrap(err, "parse template og.svg")
	}
	h.og = og
	return nil
}

// isoDate formats t as a date, keeping the time only when one was given.
func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

func (h *Handler) newPage(site content.Site, title, description string) pageData {
	if description == "" {
		description = site.Description
	}
	return pageData{
		Site:         site,
		Title:        pageTitle(title, site),
		Description:  description,
		Year:         h.opts.Now().Year(),
		AssetVersion: h.opts.AssetVersion,
	}
}

func pageTitle(title string, site content.Site) string {
	if title == "" {
		return site.Title
	}
	return title + " - " + site.Title
}

// renderPage executes a page into a buffer first so a template error can
// still produce a clean 500.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := h.pages[name]
	if !ok {
		h.serverError(w, r, xerrors.Newf("unknown page template %q", name))
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.serverError(w, r, xerrors.Wrapf(err, "execute template %s", name))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	}
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) markdown(r *http.Request, src string) (template.HTML, error) {
	out, err := h.opts.Renderer.HTML(src)
	if err != nil {
		return "", xerrors.Wrapf(err, "render %s", r.URL.Path)
	}
	return out, nil
}
