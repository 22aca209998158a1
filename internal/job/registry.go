package job

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaki95/playlist2album/internal/domain"
)

// Registry owns job identity and state. Every mutation goes through its
// guarded operations, which are serialized by a single mutex.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create registers a new queued job and returns a snapshot of it.
func (r *Registry) Create(playlistURL string, album domain.AlbumMeta) *Job {
	now := r.now()
	j := &Job{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		PlaylistURL: playlistURL,
		Album:       album,
		Tracks:      []domain.Track{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()

	return j.clone()
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.clone(), nil
}

// Transition moves the job from one status to another if it is currently in from.
func (r *Registry) Transition(id string, from, to Status) error {
	return r.TransitionWith(id, from, to, nil)
}

// TransitionWith is Transition with a mutation applied atomically with the
// status change. When mutate fails the job is left untouched.
func (r *Registry) TransitionWith(id string, from, to Status, mutate func(*Job) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.Status != from {
		return fmt.Errorf("%w: job %s is %s, expected %s", ErrConflict, id, j.Status, from)
	}
	if !canMove(from, to) {
		return fmt.Errorf("%w: cannot move job %s from %s to %s", ErrConflict, id, from, to)
	}

	if mutate != nil {
		draft := j.clone()
		if err := mutate(draft); err != nil {
			return err
		}
		draft.ID = j.ID
		*j = *draft
	}

	j.Status = to
	j.UpdatedAt = r.now()
	return nil
}

// ReplaceTracks swaps the track list. Only fetching and ready jobs accept it.
func (r *Registry) ReplaceTracks(id string, tracks []domain.Track) error {
	return r.mutate(id, []Status{StatusFetching, StatusReady}, func(j *Job) {
		j.Tracks = append([]domain.Track(nil), tracks...)
	})
}

// AppendTrack adds a track at the end of a fetching job's list.
func (r *Registry) AppendTrack(id string, track domain.Track) error {
	return r.mutate(id, []Status{StatusFetching}, func(j *Job) {
		j.Tracks = append(j.Tracks, track)
	})
}

// SetArtifact records the packaged artifact of a job being finalized.
func (r *Registry) SetArtifact(id, ref string) error {
	return r.mutate(id, []Status{StatusFinalizeInProgress}, func(j *Job) {
		j.Artifact = ref
	})
}

// Fail diverts a non-terminal job to failed with the given message.
func (r *Registry) Fail(id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrConflict, id, j.Status)
	}

	j.Status = StatusFailed
	j.Error = message
	j.UpdatedAt = r.now()
	return nil
}

func (r *Registry) mutate(id string, allowed []Status, apply func(*Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, s := range allowed {
		if j.Status == s {
			apply(j)
			j.UpdatedAt = r.now()
			return nil
		}
	}
	return fmt.Errorf("%w: job %s is %s", ErrConflict, id, j.Status)
}

// List lists all jobs with pagination, newest first
func (r *Registry) List(page, pageSize int) *ListResponse {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j.clone())
	}
	r.mu.Unlock()

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})

	totalPages := (len(jobs) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start >= len(jobs) {
		return &ListResponse{
			Jobs:       []*Job{},
			Page:       page,
			PageSize:   pageSize,
			TotalJobs:  len(jobs),
			TotalPages: totalPages,
		}
	}

	end := start + pageSize
	if end > len(jobs) {
		end = len(jobs)
	}

	return &ListResponse{
		Jobs:       jobs[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalJobs:  len(jobs),
		TotalPages: totalPages,
	}
}

// Sweep removes terminal jobs whose last update is older than olderThan, and
// ready jobs left idle for longer than idleReady, and returns what they looked
// like when removed. A non-positive idleReady keeps ready jobs.
func (r *Registry) Sweep(olderThan, idleReady time.Duration) []*Job {
	now := r.now()
	cutoff := now.Add(-olderThan)
	readyCutoff := now.Add(-idleReady)

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*Job
	for id, j := range r.jobs {
		expired := j.Status.Terminal() && j.UpdatedAt.Before(cutoff)
		abandoned := idleReady > 0 && j.Status == StatusReady && j.UpdatedAt.Before(readyCutoff)
		if expired || abandoned {
			delete(r.jobs, id)
			removed = append(removed, j)
		}
	}
	return removed
}

// ArtifactInUse reports whether any job still references the artifact.
func (r *Registry) ArtifactInUse(ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, j := range r.jobs {
		if j.Artifact == ref {
			return true
		}
	}
	return false
}
