// Package finalize turns a ready job into a tagged, packaged album.
package finalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaki95/playlist2album/internal/archive"
	"github.com/jaki95/playlist2album/internal/audio"
	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/job"
)

var (
	// ErrValidation is returned for bad requests; the job is left untouched.
	ErrValidation = errors.New("invalid finalize request")
	// ErrPipeline is returned when tagging or packaging failed; the job is failed.
	ErrPipeline = errors.New("finalize failed")
)

// TrackEdit selects a track by id and optionally renames it. A blank title
// keeps the current one.
type TrackEdit struct {
	ID    int
	Title string
}

type Request struct {
	Tracks []TrackEdit
	Album  domain.AlbumMeta
	Cover  []byte
}

type Result struct {
	JobID    string
	Artifact string
	Count    int
}

// Pipeline tags every selected track in client order and packages them once.
type Pipeline struct {
	registry *job.Registry
	tagger   audio.Tagger
	packager archive.Packager
}

func NewPipeline(registry *job.Registry, tagger audio.Tagger, packager archive.Packager) *Pipeline {
	return &Pipeline{
		registry: registry,
		tagger:   tagger,
		packager: packager,
	}
}

// Finalize runs synchronously. Validation and status errors leave the job
// as it was; any later failure moves it to failed.
func (p *Pipeline) Finalize(ctx context.Context, jobID string, req Request) (*Result, error) {
	snapshot, err := p.registry.Get(jobID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status != job.StatusReady {
		return nil, fmt.Errorf("%w: job %s is %s, expected %s", job.ErrConflict, jobID, snapshot.Status, job.StatusReady)
	}

	if err := validateCover(req.Cover); err != nil {
		return nil, err
	}
	ordered, err := plan(snapshot.Tracks, req.Tracks)
	if err != nil {
		return nil, err
	}
	if err := checkFiles(ordered); err != nil {
		return nil, err
	}

	// Claim the job and store the client's order in one step, re-validating
	// against the tracks as they are at that instant.
	err = p.registry.TransitionWith(jobID, job.StatusReady, job.StatusFinalizeInProgress, func(j *job.Job) error {
		tracks, err := plan(j.Tracks, req.Tracks)
		if err != nil {
			return err
		}
		j.Tracks = tracks
		j.Album = req.Album
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Finalizing job", "jobId", jobID, "tracks", len(ordered), "album", req.Album.Title)

	for i, track := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(jobID, fmt.Sprintf("finalize interrupted: %v", err))
		}
		err := p.tagger.Tag(ctx, audio.TagParams{
			Path:     track.LocalPath,
			Title:    track.Title,
			Position: i + 1,
			Count:    len(ordered),
			Album:    req.Album,
			Cover:    req.Cover,
		})
		if err != nil {
			return nil, p.fail(jobID, fmt.Sprintf("tagging track %d (%s) failed: %v", track.ID, track.Title, err))
		}
	}

	entries := make([]archive.Entry, len(ordered))
	for i, track := range ordered {
		entries[i] = archive.Entry{
			Path: track.LocalPath,
			Name: archive.EntryName(i+1, track.Title, filepath.Ext(track.LocalPath)),
		}
	}

	ref, err := p.packager.Pack(ctx, archive.ArchiveName(req.Album), entries)
	if err != nil {
		return nil, p.fail(jobID, fmt.Sprintf("packaging failed: %v", err))
	}

	if err := p.registry.SetArtifact(jobID, ref); err != nil {
		return nil, p.fail(jobID, fmt.Sprintf("recording artifact failed: %v", err))
	}
	if err := p.registry.Transition(jobID, job.StatusFinalizeInProgress, job.StatusFinalized); err != nil {
		return nil, p.fail(jobID, fmt.Sprintf("completing finalize failed: %v", err))
	}

	slog.Info("Job finalized", "jobId", jobID, "artifact", ref, "count", len(ordered))
	return &Result{JobID: jobID, Artifact: ref, Count: len(ordered)}, nil
}

func (p *Pipeline) fail(jobID, message string) error {
	slog.Error("Finalize failed", "jobId", jobID, "error", message)
	if err := p.registry.Fail(jobID, message); err != nil {
		slog.Warn("Could not mark job failed", "jobId", jobID, "error", err)
	}
	return fmt.Errorf("%w: %s", ErrPipeline, message)
}

// plan resolves the client's selection against the job's tracks. It accepts
// any ordered subset of fetched tracks.
func plan(tracks []domain.Track, edits []TrackEdit) ([]domain.Track, error) {
	if len(edits) == 0 {
		return nil, fmt.Errorf("%w: no tracks selected", ErrValidation)
	}

	byID := make(map[int]domain.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	seen := make(map[int]bool, len(edits))
	ordered := make([]domain.Track, 0, len(edits))
	for _, e := range edits {
		t, ok := byID[e.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown track id %d", ErrValidation, e.ID)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate track id %d", ErrValidation, e.ID)
		}
		seen[e.ID] = true

		if !t.Fetched() {
			return nil, fmt.Errorf("%w: track %d has no audio: %s", ErrValidation, e.ID, t.FetchError)
		}
		if title := strings.TrimSpace(e.Title); title != "" {
			t.Title = title
		}
		ordered = append(ordered, t)
	}
	return ordered, nil
}

func checkFiles(tracks []domain.Track) error {
	for _, t := range tracks {
		if _, err := os.Stat(t.LocalPath); err != nil {
			return fmt.Errorf("%w: missing file for track %d: %v", ErrValidation, t.ID, err)
		}
	}
	return nil
}

func validateCover(cover []byte) error {
	if len(cover) == 0 {
		return nil
	}
	if mime := http.DetectContentType(cover); !strings.HasPrefix(mime, "image/") {
		return fmt.Errorf("%w: cover is %s, not an image", ErrValidation, mime)
	}
	return nil
}
