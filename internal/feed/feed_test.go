package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/timrodz/blog/internal/content"
)

func testSnapshot() *content.Snapshot {
	d := func(s string) time.Time {
		t, _ := time.Parse(time.DateOnly, s)
		return t
	}
	return &content.Snapshot{
		Site: content.Site{Title: "Blog", Description: "Notes"},
		Posts: []content.Post{
			{Slug: "newer", Title: "Newer & Better", Summary: "n", PublishedAt: d("2024-03-01")},
			{Slug: "older", Title: "Older", Summary: "o", PublishedAt: d("2023-01-15")},
		},
		Projects: []content.Project{
			{Slug: "tool", Title: "Tool", Type: "CLI", PublishedAt: d("2022-06-01")},
		},
	}
}

func TestWriteSitemap(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := WriteSitemap(&buf, "https://blog.example.com/", testSnapshot(), now); err != nil {
		t.Fatalf("WriteSitemap: %v", err)
	}
	if !strings.HasPrefix(buf.String(), xml.Header) {
		t.Fatal("missing xml header")
	}

	var got urlset
	if err := xml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, buf.String())
	}
	want := []sitemapURL{
		{Loc: "https://blog.example.com", LastMod: "2024-05-01"},
		{Loc: "https://blog.example.com/posts", LastMod: "2024-05-01"},
		{Loc: "https://blog.example.com/projects", LastMod: "2024-05-01"},
		{Loc: "https://blog.example.com/about", LastMod: "2024-05-01"},
		{Loc: "https://blog.example.com/posts/newer", LastMod: "2024-03-01"},
		{Loc: "https://blog.example.com/posts/older", LastMod: "2023-01-15"},
		{Loc: "https://blog.example.com/projects/tool", LastMod: "2022-06-01"},
	}
	if diff := cmp.Diff(want, got.URLs); diff != "" {
		t.Fatalf("sitemap urls (-want +got):\n%s", diff)
	}
	if got.NS != sitemapNS {
		t.Fatalf("namespace = %q", got.NS)
	}
}

type rssDoc struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title string `xml:"title"`
			Link  string `xml:"link"`
			GUID  string `xml:"guid"`
		} `xml:"item"`
	} `xml:"channel"`
}

func TestWriteRSS(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRSS(&buf, "https://blog.example.com", testSnapshot(), time.Now()); err != nil {
		t.Fatalf("WriteRSS: %v", err)
	}
	if !strings.Contains(buf.String(), `<rss version="2.0"`) {
		t.Fatalf("not an rss 2.0 document:\n%s", buf.String())
	}

	var doc rssDoc
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Channel.Title != "Blog" {
		t.Fatalf("channel title = %q", doc.Channel.Title)
	}
	if len(doc.Channel.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(doc.Channel.Items))
	}
	first := doc.Channel.Items[0]
	if first.Title != "Newer & Better" || first.Link != "https://blog.example.com/posts/newer" {
		t.Fatalf("first item = %+v", first)
	}
}
