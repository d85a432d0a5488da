// Package webassets embeds everything the site needs that is not content:
// page templates, the stylesheet, the fallback pages served when no
// snapshot is loaded, and a seed content tree used until real content
// arrives.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed fallback seed templates static
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// FallbackFS holds maintenance.html and 404.html.
func FallbackFS() fs.FS { return sub("fallback") }

// TemplatesFS holds the html/template page templates.
func TemplatesFS() fs.FS { return sub("templates") }

// StaticFS holds assets served under /static/.
func StaticFS() fs.FS { return sub("static") }

// SeedFS returns (fs, true) only if seed looks like a content root (has
// site.yaml).
func SeedFS() (fs.FS, bool) {
	s, err := fs.Sub(embedded, "seed")
	if err != nil {
		return nil, false
	}
	if _, err := fs.Stat(s, "site.yaml"); err != nil {
		return nil, false
	}
	return s, true
}
