package sitehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Site is the set of page handlers the public routes map to.
// *sitehandler.Handler implements it.
type Site interface {
	http.Handler
	Home(http.ResponseWriter, *http.Request)
	About(http.ResponseWriter, *http.Request)
	Posts(http.ResponseWriter, *http.Request)
	Post(http.ResponseWriter, *http.Request)
	Projects(http.ResponseWriter, *http.Request)
	Project(http.ResponseWriter, *http.Request)
	Sitemap(http.ResponseWriter, *http.Request)
	RSS(http.ResponseWriter, *http.Request)
	Robots(http.ResponseWriter, *http.Request)
	OG(http.ResponseWriter, *http.Request)
	Static(http.ResponseWriter, *http.Request)
	MethodNotAllowed(http.ResponseWriter, *http.Request)
}

type Routes struct {
	Site Site
}

func New(site Site) *Routes {
	return &Routes{Site: site}
}

// RegisterRoutes should be registered LAST: the site handler becomes the
// NotFound fallback, which serves public files and the 404 page without
// interfering with health/api routes registered by other registrars.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	if rt.Site == nil {
		return
	}
	s := rt.Site

	r.Get("/", s.Home)
	r.Get("/about", s.About)
	r.Get("/posts", s.Posts)
	r.Get("/posts/{slug}", s.Post)
	r.Get("/projects", s.Projects)
	r.Get("/projects/{slug}", s.Project)
	r.Get("/sitemap.xml", s.Sitemap)
	r.Get("/rss", s.RSS)
	r.Get("/robots.txt", s.Robots)
	r.Get("/og", s.OG)
	r.Get("/static/*", s.Static)

	r.NotFound(s.ServeHTTP)
	r.MethodNotAllowed(s.MethodNotAllowed)
}
