package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/render"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

type Options struct {
	Logger log.Logger
	// Active content
	Content SnapshotProvider
	// Markdown renderer for bodies, bio and about. Default: render.New with the default style.
	Renderer *render.Renderer

	// Templates holds layout.html, one file per page, and og.svg.
	Templates fs.FS
	// Static is served under /static/. chroma.css is generated from Renderer.
	Static fs.FS
	// fallback FS (maintenance page, fallback 404)
	FallbackFS fs.FS

	MaintenanceFile string // default: "maintenance.html"
	Fallback404File string // default: "404.html"
	// PublicDir is the directory inside a snapshot whose files are served
	// at the site root (images, favicon). default: "public"
	PublicDir string

	// AssetVersion is appended to stylesheet URLs so long cache lifetimes
	// stay correct across deploys.
	AssetVersion string

	Dates content.DateFormatter
	Now   func() time.Time

	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"
	RetryAfter        string // default: "60"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Renderer == nil {
		o.Renderer = render.New(render.Options{})
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.PublicDir == "" {
		o.PublicDir = "public"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Dates.Now == nil {
		o.Dates.Now = o.Now
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
	if o.RetryAfter == "" {
		o.RetryAfter = "60"
	}
}

func (o *Options) validate() error {
	if o.Content == nil {
		return fmt.Errorf("%w: Content is nil", ErrInvalidOptions)
	}
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	if o.Templates == nil {
		return fmt.Errorf("%w: Templates is nil", ErrInvalidOptions)
	}
	// fail fast on boot if mispackaged
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	// fallback 404 is optional, we degrade to plain text if missing
	return nil
}
