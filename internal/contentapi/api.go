// Package contentapi serves the active content snapshot as JSON: post and
// project listings plus the provenance of the loaded bundle and binary.
package contentapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/timrodz/blog/internal/content"
	"github.com/timrodz/blog/internal/log"
	"github.com/timrodz/blog/internal/version"
)

// SnapshotProvider defines the interface for getting content snapshots
type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

// API implements the JSON endpoints
type API struct {
	content SnapshotProvider
	logger  log.Logger
	now     func() time.Time
	build   func() version.Info
}

// NewAPI creates a new content API handler
func NewAPI(content SnapshotProvider, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		content: content,
		logger:  logger,
		now:     time.Now,
		build:   version.Get,
	}
}

// RegisterRoutes attaches the API endpoints to the router
func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/posts", api.HandlePosts)
	r.Get("/api/posts/{slug}", api.HandlePost)
	r.Get("/api/projects", api.HandleProjects)
	r.Get("/api/projects/{slug}", api.HandleProject)
	r.Get("/api/provenance/app", api.HandleAppProvenance)
	r.Get("/api/provenance/content", api.HandleContentProvenance)
	r.Get("/api/provenance/content/summary", api.HandleContentSummary)
}

type errorResponse struct {
	Error string `json:"error"`
}

// PostsResponse lists post metadata, newest first. Bodies are omitted.
type PostsResponse struct {
	Posts []content.Post `json:"posts"`
	Count int            `json:"count"`
}

type ProjectsResponse struct {
	Projects []content.Project `json:"projects"`
	Count    int               `json:"count"`
}

// PostResponse is one post including its markdown body.
type PostResponse struct {
	content.Post
	Body string `json:"body"`
}

type ProjectResponse struct {
	content.Project
	Body string `json:"body"`
}

// ContentProvenanceResponse is the full provenance response
type ContentProvenanceResponse struct {
	// Bundle provenance from provenance.json
	Bundle *content.Provenance `json:"bundle,omitempty"`

	// Runtime information
	Runtime RuntimeInfo `json:"runtime"`

	// Error if provenance is unavailable
	Error string `json:"error,omitempty"`
}

// RuntimeInfo contains server-side runtime information
type RuntimeInfo struct {
	LoadedAt   time.Time      `json:"loaded_at"`
	ServerTime time.Time      `json:"server_time"`
	Source     content.Source `json:"source"`
	Hash       string         `json:"hash,omitempty"`
	Version    string         `json:"version,omitempty"`
	Signed     bool           `json:"signed"`
	Posts      int            `json:"posts"`
	Projects   int            `json:"projects"`
}

// ContentSummaryResponse is a lightweight summary for the UI
type ContentSummaryResponse struct {
	Version     string    `json:"version"`
	ContentHash string    `json:"content_hash"`
	CommitShort string    `json:"commit_short,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	TotalFiles  int       `json:"total_files"`
	TotalSize   int64     `json:"total_size"`
	Source      string    `json:"source"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// AppProvenanceResponse describes the running binary
type AppProvenanceResponse struct {
	Build      version.Info `json:"build"`
	ServerTime time.Time    `json:"server_time"`
}

// snapshot writes a 503 and returns false when no content is loaded.
func (api *API) snapshot(w http.ResponseWriter, r *http.Request) (*content.Snapshot, bool) {
	snap, ok := api.content.Get()
	if !ok || snap == nil {
		api.writeJSON(r.Context(), w, http.StatusServiceUnavailable, errorResponse{Error: "no content loaded"})
		return nil, false
	}
	return snap, true
}

func (api *API) HandlePosts(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshot(w, r)
	if !ok {
		return
	}
	posts := snap.Posts
	if posts == nil {
		posts = []content.Post{}
	}
	api.writeJSON(r.Context(), w, http.StatusOK, PostsResponse{Posts: posts, Count: len(posts)})
}

func (api *API) HandlePost(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshot(w, r)
	if !ok {
		return
	}
	p, found := snap.Post(chi.URLParam(r, "slug"))
	if !found {
		api.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Error: "post not found"})
		return
	}
	api.writeJSON(r.Context(), w, http.StatusOK, PostResponse{Post: p, Body: p.Body})
}

func (api *API) HandleProjects(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshot(w, r)
	if !ok {
		return
	}
	projects := snap.Projects
	if projects == nil {
		projects = []content.Project{}
	}
	api.writeJSON(r.Context(), w, http.StatusOK, ProjectsResponse{Projects: projects, Count: len(projects)})
}

func (api *API) HandleProject(w http.ResponseWriter, r *http.Request) {
	snap, ok := api.snapshot(w, r)
	if !ok {
		return
	}
	p, found := snap.Project(chi.URLParam(r, "slug"))
	if !found {
		api.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Error: "project not found"})
		return
	}
	api.writeJSON(r.Context(), w, http.StatusOK, ProjectResponse{Project: p, Body: p.Body})
}

// HandleAppProvenance serves build information of the running binary
func (api *API) HandleAppProvenance(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(r.Context(), w, http.StatusOK, AppProvenanceResponse{
		Build:      api.build(),
		ServerTime: api.now().UTC().Truncate(time.Second),
	})
}

// HandleContentProvenance serves the full provenance data
func (api *API) HandleContentProvenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, ok := api.content.Get()
	if !ok || snap == nil {
		api.writeJSON(ctx, w, http.StatusServiceUnavailable, ContentProvenanceResponse{
			Runtime: RuntimeInfo{
				ServerTime: api.now().UTC().Truncate(time.Second),
			},
			Error: "no content loaded",
		})
		return
	}

	resp := ContentProvenanceResponse{
		Bundle: snap.Provenance,
		Runtime: RuntimeInfo{
			LoadedAt:   snap.LoadedAt.Truncate(time.Second),
			ServerTime: api.now().UTC().Truncate(time.Second),
			Source:     snap.Meta.Source,
			Hash:       snap.Meta.SHA256,
			Version:    snap.Meta.Version,
			Signed:     snap.Meta.Signed,
			Posts:      len(snap.Posts),
			Projects:   len(snap.Projects),
		},
	}

	if snap.Provenance == nil {
		resp.Error = "provenance data not available for this content"
	}

	api.logger.Debug(ctx, "served content provenance",
		"version", snap.Meta.Version,
		"hash", snap.Meta.SHA256,
	)

	api.writeJSON(ctx, w, http.StatusOK, resp)
}

// HandleContentSummary serves a lightweight summary for UI display
func (api *API) HandleContentSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, ok := api.snapshot(w, r)
	if !ok {
		return
	}

	resp := ContentSummaryResponse{
		Source:   string(snap.Meta.Source),
		LoadedAt: snap.LoadedAt.Truncate(time.Second),
	}

	// fill in from provenance if available
	if p := snap.Provenance; p != nil {
		resp.Version = p.Version
		resp.ContentHash = p.ContentHash
		resp.CommitShort = p.Source.CommitShort
		resp.CreatedAt = p.CreatedAt
		resp.TotalFiles = p.Summary.TotalFiles
		resp.TotalSize = p.Summary.TotalSize
	} else {
		// fall back to meta if no provenance
		resp.Version = snap.Meta.Version
		resp.ContentHash = snap.Meta.SHA256
		resp.TotalFiles = len(snap.Posts) + len(snap.Projects)
	}

	api.logger.Debug(ctx, "served content summary", "version", resp.Version)

	api.writeJSON(ctx, w, http.StatusOK, resp)
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
