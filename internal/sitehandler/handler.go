// Package sitehandler renders the public site from the active content
// snapshot: pages, feeds, social cards and the snapshot's public files.
package sitehandler

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/feed"
	"github.com/timrodz/blog/internal/log"
)

type Handler struct {
	opts      Options
	pages     map[string]*template.Template
	og        *template.Template
	chromaCSS []byte
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	h := &Handler{opts: opts}
	if err := h.parsePages(opts.Templates); err != nil {
		return nil, err
	}
	var css bytes.Buffer
	if err := opts.Renderer.CSS(&css); err != nil {
		return nil, err
	}
	h.chromaCSS = css.Bytes()
	return h, nil
}

// snapshot returns the active snapshot, or serves the maintenance page and
// returns false.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*content.Snapshot, bool) {
	snap, ok := h.opts.Content.Get()
	if !ok || snap == nil {
		h.serveMaintenance(w, r)
		return nil, false
	}
	return snap, true
}

func (h *Handler) site() content.Site {
	if snap, ok := h.opts.Content.Get(); ok && snap != nil {
		return snap.Site
	}
	return content.DefaultSite()
}

// ServeHTTP is the fallback for every path no route claims: files under the
// snapshot's public directory, otherwise the 404 page.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// hardening: only allow GET/HEAD
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.MethodNotAllowed(w, r)
		return
	}

	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	file, found := resolvePublic(r.URL.Path, h.opts.PublicDir, snap.FS)
	if !found {
		h.notFound(w, r, snap)
		return
	}
	w.Header().Set("Cache-Control", publicCacheControl(file, &h.opts))
	http.ServeFileFS(w, r, snap.FS, file)
}

// MethodNotAllowed answers anything other than GET/HEAD.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Cache-Control", "no-store")
	// counter metrics already alert on these, so no logging
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	bio, err := h.markdown(r, snap.Site.Bio)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data := h.newPage(snap.Site, "", "")
	data.Canonical = baseURL(r, snap.Site) + "/"
	data.Body = bio
	data.Posts = snap.Posts
	data.Projects = snap.Projects
	h.renderPage(w, r, http.StatusOK, pageHome, data)
}

func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	about, err := h.markdown(r, snap.Site.About)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data := h.newPage(snap.Site, "About", "")
	data.Canonical = baseURL(r, snap.Site) + "/about"
	data.Body = about
	h.renderPage(w, r, http.StatusOK, pageAbout, data)
}

func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	data := h.newPage(snap.Site, "Posts", "See all the posts I've written.")
	data.Canonical = baseURL(r, snap.Site) + "/posts"
	data.Posts = snap.Posts
	h.renderPage(w, r, http.StatusOK, pagePosts, data)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	p, found := snap.Post(chi.URLParam(r, "slug"))
	if !found {
		h.notFound(w, r, snap)
		return
	}
	body, err := h.markdown(r, p.Body)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	base := baseURL(r, snap.Site)
	data := h.newPage(snap.Site, p.Title, p.Summary)
	data.Canonical = base + "/posts/" + p.Slug
	data.OG, data.JSONLD = postMeta(base, snap.Site, p)
	data.Post = &p
	data.Body = body
	h.renderPage(w, r, http.StatusOK, pagePost, data)
}

func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	data := h.newPage(snap.Site, "Projects", "Things I have built.")
	data.Canonical = baseURL(r, snap.Site) + "/projects"
	data.Projects = snap.Projects
	h.renderPage(w, r, http.StatusOK, pageProjects, data)
}

func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	p, found := snap.Project(chi.URLParam(r, "slug"))
	if !found {
		h.notFound(w, r, snap)
		return
	}
	body, err := h.markdown(r, p.Body)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	base := baseURL(r, snap.Site)
	data := h.newPage(snap.Site, p.Title, projectDescription(p))
	data.Canonical = base + "/projects/" + p.Slug
	data.OG, data.JSONLD = projectMeta(base, snap.Site, p)
	data.Project = &p
	data.Body = body
	h.renderPage(w, r, http.StatusOK, pageProject, data)
}

func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := feed.WriteSitemap(&buf, baseURL(r, snap.Site), snap, h.opts.Now()); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeBody(w, "application/xml; charset=utf-8", h.opts.OtherCacheControl, buf.Bytes())
}

func (h *Handler) RSS(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := feed.WriteRSS(&buf, baseURL(r, snap.Site), snap, h.opts.Now()); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeBody(w, "application/rss+xml; charset=utf-8", h.opts.OtherCacheControl, buf.Bytes())
}

func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\n")
	if snap, ok := h.opts.Content.Get(); ok && snap != nil {
		b.WriteString("\nSitemap: " + baseURL(r, snap.Site) + "/sitemap.xml\n")
	}
	h.writeBody(w, "text/plain; charset=utf-8", h.opts.OtherCacheControl, []byte(b.String()))
}

// Static serves embedded assets and the generated code highlighting
// stylesheet. It works without a snapshot.
func (h *Handler) Static(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if name == "chroma.css" {
		h.writeBody(w, "text/css; charset=utf-8", h.opts.AssetCacheControl, h.chromaCSS)
		return
	}
	if h.opts.Static == nil || !fs.ValidPath(name) || !existsFile(h.opts.Static, name) || strings.HasPrefix(path.Base(name), ".") {
		w.Header().Set("Cache-Control", "no-store")
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", staticCacheControl(name, &h.opts))
	http.ServeFileFS(w, r, h.opts.Static, name)
}

func (h *Handler) writeBody(w http.ResponseWriter, contentType, cacheControl string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(body)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	// maintenance should never be cached
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", h.opts.RetryAfter)

	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, snap *content.Snapshot) {
	// avoid caching 404 responses
	w.Header().Set("Cache-Control", "no-store")

	// prefer the themed page rendered with the active site
	if snap != nil {
		if _, ok := h.pages[pageNotFound]; ok {
			data := h.newPage(snap.Site, "Page not found", "")
			h.renderPage(w, r, http.StatusNotFound, pageNotFound, data)
			return
		}
	}

	// fall back to embedded 404 if present
	if existsFile(h.opts.FallbackFS, h.opts.Fallback404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.Fallback404File)
		return
	}

	// last resort: plain text
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).Error(r.Context(), err, "site handler error", "path", r.URL.Path)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("internal server error\n"))
}

// we want to serve a file but force an HTTP status code (404/503)
// but http.ServeFileFS writes a status code on its own so wrapping
// ResponseWriter and overriding the first WriteHeader call here
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	sw := &statusOverrideWriter{ResponseWriter: w, status: status}
	http.ServeFileFS(sw, r, fsys, name)
}
