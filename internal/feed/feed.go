// Package feed renders the machine-readable views of a content snapshot:
// the XML sitemap and the RSS feed.
package feed

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/xerrors"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// StaticRoutes are the listing pages included in the sitemap. Their lastmod
// is the time the sitemap was generated.
var StaticRoutes = []string{"", "/posts", "/projects", "/about"}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// WriteSitemap writes a sitemap covering StaticRoutes, every post and every
// project. base is the absolute site URL without a trailing slash.
func WriteSitemap(w io.Writer, base string, snap *content.Snapshot, now time.Time) error {
	base = strings.TrimSuffix(base, "/")
	set := urlset{NS: sitemapNS}

	today := now.Format(time.DateOnly)
	for _, r := range StaticRoutes {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + r, LastMod: today})
	}
	for _, p := range snap.Posts {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/posts/" + p.Slug, LastMod: lastmod(p.PublishedAt)})
	}
	for _, p := range snap.Projects {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/projects/" + p.Slug, LastMod: lastmod(p.PublishedAt)})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return xerrors.Wrap(err, "write sitemap")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return xerrors.Wrap(err, "encode sitemap")
	}
	return nil
}

func lastmod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// WriteRSS writes an RSS 2.0 feed of all posts, newest first.
func WriteRSS(w io.Writer, base string, snap *content.Snapshot, now time.Time) error {
	base = strings.TrimSuffix(base, "/")
	f := &feeds.Feed{
		Title:       snap.Site.Title,
		Link:        &feeds.Link{Href: base + "/"},
		Description: snap.Site.Description,
		Created:     now,
	}
	if len(snap.Posts) > 0 {
		f.Updated = snap.Posts[0].PublishedAt
	}
	for _, p := range snap.Posts {
		link := base + "/posts/" + p.Slug
		f.Items = append(f.Items, &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Description: p.Summary,
			Id:          link,
			Created:     p.PublishedAt,
		})
	}
	if err := f.WriteRss(w); err != nil {
		return xerrors.Wrap(err, "write rss")
	}
	return nil
}
