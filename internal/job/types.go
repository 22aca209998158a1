package job

import (
	"time"

	"github.com/jaki95/playlist2album/internal/domain"
)

// Status is the lifecycle state of a job.
type Status string

// Constants for job status
const (
	StatusQueued             Status = "queued"
	StatusFetching           Status = "fetching"
	StatusReady              Status = "ready"
	StatusFinalizeInProgress Status = "finalize_in_progress"
	StatusFinalized          Status = "finalized"
	StatusFailed             Status = "failed"
)

// rank orders the forward path. Failed sits outside of it.
var rank = map[Status]int{
	StatusQueued:             0,
	StatusFetching:           1,
	StatusReady:              2,
	StatusFinalizeInProgress: 3,
	StatusFinalized:          4,
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusFailed
}

// AtLeast reports whether s has reached other on the forward path.
func (s Status) AtLeast(other Status) bool {
	r, ok := rank[s]
	if !ok {
		return false
	}
	return r >= rank[other]
}

func canMove(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fr, okFrom := rank[from]
	tr, okTo := rank[to]
	return okFrom && okTo && tr > fr
}

// Job is a playlist-to-album job.
type Job struct {
	ID          string           `json:"id"`
	Status      Status           `json:"status"`
	PlaylistURL string           `json:"playlist_url"`
	Album       domain.AlbumMeta `json:"album"`
	Tracks      []domain.Track   `json:"tracks"`
	Error       string           `json:"error,omitempty"`
	Artifact    string           `json:"artifact,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (j *Job) clone() *Job {
	c := *j
	c.Tracks = make([]domain.Track, len(j.Tracks))
	copy(c.Tracks, j.Tracks)
	return &c
}

// ListResponse represents a page of jobs.
type ListResponse struct {
	Jobs       []*Job `json:"jobs"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalJobs  int    `json:"total_jobs"`
	TotalPages int    `json:"total_pages"`
}

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
