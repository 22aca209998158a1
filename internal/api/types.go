// Package api holds the JSON bodies exchanged by the HTTP server and its
// clients. It only depends on the domain packages so a client binary does not
// link the server.
package api

import (
	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/job"
)

// CreateJobRequest starts fetching a playlist
type CreateJobRequest struct {
	PlaylistURL string           `json:"playlistUrl" binding:"required,url"`
	Album       domain.AlbumMeta `json:"album"`
}

// CreateJobResponse is returned once the job is accepted
type CreateJobResponse struct {
	JobID  string     `json:"jobId"`
	Status job.Status `json:"status"`
}

// ManifestResponse lists the tracks of a job that finished fetching
type ManifestResponse struct {
	JobID  string           `json:"jobId"`
	Status job.Status       `json:"status"`
	Album  domain.AlbumMeta `json:"album"`
	Tracks []ManifestTrack  `json:"tracks"`
}

type ManifestTrack struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	SourceRef string `json:"source_ref"`
	Fetched   bool   `json:"fetched"`
	Error     string `json:"error,omitempty"`
}

// TrackEdit selects one track for the album. An empty title keeps the
// current one.
type TrackEdit struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// FinalizeRequest selects, orders and renames tracks and sets album metadata
type FinalizeRequest struct {
	Album         domain.AlbumMeta `json:"album"`
	OrderedTracks []TrackEdit      `json:"orderedTracks" binding:"required"`
	CoverBase64   string           `json:"coverBase64"`
}

// FinalizeResponse points at the packaged album.
type FinalizeResponse struct {
	JobID       string `json:"jobId"`
	ArtifactURL string `json:"artifactUrl"`
	Count       int    `json:"count"`
}

// MessageResponse represents a generic message payload used for success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents a generic error payload used for error responses.
type ErrorResponse struct {
	Error  string     `json:"error"`
	Status job.Status `json:"status,omitempty"`
}
