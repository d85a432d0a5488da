package sitehandler

import (
	"path"
	"strings"
)

// fingerprintable are the extensions /static/ serves with the asset
// version in the URL.
var fingerprintable = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
	".svg": true, ".ico": true, ".avif": true,
	".woff": true, ".woff2": true, ".ttf": true,
}

// staticCacheControl is the policy for embedded assets under /static/.
// They change only with a deploy, which bumps AssetVersion.
func staticCacheControl(name string, o *Options) string {
	if fingerprintable[strings.ToLower(path.Ext(name))] {
		return o.AssetCacheControl
	}
	return o.OtherCacheControl
}

// publicCacheControl is the policy for files under the snapshot's public
// dir. A republish can replace cover.png in place, so nothing from content
// is immutable.
func publicCacheControl(name string, o *Options) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm", "":
		return o.HTMLCacheControl
	}
	return o.OtherCacheControl
}
