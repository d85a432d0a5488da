package content

import "time"

// Source names where the active snapshot came from.
type Source string

const (
	SourceUnknown Source = "unknown"
	SourceSeed    Source = "seed"
	SourceDisk    Source = "disk"
	SourceS3      Source = "s3"
)

type Meta struct {
	Version    string    `json:"version,omitempty"`
	SHA256     string    `json:"sha256,omitempty"`
	VerifiedAt time.Time `json:"verified_at,omitempty"`
	Source     Source    `json:"source,omitempty"`
	// Signed is set when a detached bundle signature was checked.
	Signed bool `json:"signed"`
}
