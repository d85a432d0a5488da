package content

import "github.com/timrodz/blog/internal/xerrors"

// ValidationOptions controls which checks ValidateSnapshot performs.
// The zero value only rejects structurally broken snapshots.
type ValidationOptions struct {
	// MinPosts rejects snapshots with fewer posts. 0 disables the check.
	MinPosts int

	// RequireProvenance rejects snapshots without provenance.json.
	RequireProvenance bool
}

// DefaultValidationOptions is used for remote bundles, where an empty or
// unmanifested bundle almost always means a broken publish.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{MinPosts: 1, RequireProvenance: true}
}

// ValidateSnapshot runs sanity checks on a snapshot before it replaces the
// active one.
func ValidateSnapshot(snap *Snapshot, opts ValidationOptions) error {
	if snap == nil {
		return xerrors.New("validate: snapshot is nil")
	}
	if snap.FS == nil {
		return xerrors.New("validate: snapshot has nil filesystem")
	}
	if opts.MinPosts > 0 && len(snap.Posts) < opts.MinPosts {
		return xerrors.Newf("validate: snapshot has %d posts, minimum is %d", len(snap.Posts), opts.MinPosts)
	}
	if opts.RequireProvenance && snap.Provenance == nil {
		return xerrors.New("validate: provenance.json is required but missing")
	}

	seen := make(map[string]bool, len(snap.Posts))
	for _, p := range snap.Posts {
		if seen[p.Slug] {
			return xerrors.Newf("validate: duplicate post slug %q", p.Slug)
		}
		seen[p.Slug] = true
	}
	clear(seen)
	for _, p := range snap.Projects {
		if seen[p.Slug] {
			return xerrors.Newf("validate: duplicate project slug %q", p.Slug)
		}
		seen[p.Slug] = true
	}
	return nil
}
