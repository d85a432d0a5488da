package sitehandler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/timrodz/blog/internal/content"
)

type openGraph struct {
	Title         string
	TwitterTitle  string
	Description   string
	Type          string
	URL           string
	Image         string
	PublishedTime string
}

// blogPosting is the schema.org JSON-LD object embedded in detail pages.
type blogPosting struct {
	Context       string `json:"@context"`
	Type          string `json:"@type"`
	Headline      string `json:"headline"`
	DatePublished string `json:"datePublished"`
	DateModified  string `json:"dateModified"`
	Description   string `json:"description"`
	Image         string `json:"image"`
	URL           string `json:"url"`
	Author        person `json:"author"`
}

type person struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

// baseURL prefers the configured site URL and otherwise derives one from
// the request.
func baseURL(r *http.Request, site content.Site) string {
	if site.BaseURL != "" {
		return strings.TrimSuffix(site.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// ogImageURL is the generated card for a title.
func ogImageURL(base, title string) string {
	return base + "/og?title=" + url.QueryEscape(title)
}

// absURL makes a content image path absolute. Full URLs pass through.
func absURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

func imageOrCard(base, image, title string) string {
	if image != "" {
		return absURL(base, image)
	}
	return ogImageURL(base, title)
}

func postMeta(base string, site content.Site, p content.Post) (*openGraph, *blogPosting) {
	u := base + "/posts/" + p.Slug
	img := imageOrCard(base, p.Image, p.Title)
	published := isoDate(p.PublishedAt)

	og := &openGraph{
		Title:         pageTitle(p.Title, site),
		TwitterTitle:  p.Title,
		Description:   p.Summary,
		Type:          "article",
		URL:           u,
		Image:         img,
		PublishedTime: published,
	}
	ld := &blogPosting{
		Context:       "https://schema.org",
		Type:          "BlogPosting",
		Headline:      p.Title,
		DatePublished: published,
		DateModified:  published,
		Description:   p.Summary,
		Image:         img,
		URL:           u,
		Author:        person{Type: "Person", Name: site.Author},
	}
	return og, ld
}

// projectDescription falls back to the project type and tech stack when no
// summary is given.
func projectDescription(p content.Project) string {
	if p.Summary != "" {
		return p.Summary
	}
	if len(p.Technologies) == 0 {
		return p.Type
	}
	return p.Type + " / Tech stack: " + strings.Join(p.Technologies, ", ")
}

func projectMeta(base string, site content.Site, p content.Project) (*openGraph, *blogPosting) {
	u := base + "/projects/" + p.Slug
	img := imageOrCard(base, p.ImageURL, p.Title)
	published := isoDate(p.PublishedAt)
	desc := projectDescription(p)

	og := &openGraph{
		Title:         pageTitle(p.Title, site),
		TwitterTitle:  p.Title,
		Description:   desc,
		Type:          "article",
		URL:           u,
		Image:         img,
		PublishedTime: published,
	}
	ld := &blogPosting{
		Context:       "https://schema.org",
		Type:          "BlogPosting",
		Headline:      p.Title,
		DatePublished: published,
		DateModified:  published,
		Description:   p.Type,
		Image:         img,
		URL:           u,
		Author:        person{Type: "Person", Name: site.Author},
	}
	return og, ld
}
