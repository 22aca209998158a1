// Package fetch runs the fetch phase of a job: resolve the playlist, then
// download every item in order while publishing progress.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/downloader"
	"github.com/jaki95/playlist2album/internal/job"
	"github.com/jaki95/playlist2album/internal/progress"
)

// Coordinator drives jobs from queued to ready.
type Coordinator struct {
	registry *job.Registry
	tracker  *progress.Tracker
	resolver downloader.Resolver
	fetcher  downloader.Fetcher
	workDir  string

	wg sync.WaitGroup
}

func NewCoordinator(registry *job.Registry, tracker *progress.Tracker, resolver downloader.Resolver, fetcher downloader.Fetcher, workDir string) *Coordinator {
	return &Coordinator{
		registry: registry,
		tracker:  tracker,
		resolver: resolver,
		fetcher:  fetcher,
		workDir:  workDir,
	}
}

// JobDir is the working directory holding a job's fetched files.
func (c *Coordinator) JobDir(jobID string) string {
	return filepath.Join(c.workDir, jobID)
}

// Start runs the fetch phase in the background and returns immediately.
func (c *Coordinator) Start(ctx context.Context, jobID, playlistURL string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Run(ctx, jobID, playlistURL); err != nil {
			slog.Error("Fetch failed", "jobId", jobID, "error", err)
		}
	}()
}

// Wait blocks until every started fetch has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Run is the fetch phase body. Failures are recorded on the job; the
// returned error is informational.
func (c *Coordinator) Run(ctx context.Context, jobID, playlistURL string) (err error) {
	if err := c.registry.Transition(jobID, job.StatusQueued, job.StatusFetching); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
			c.fail(jobID, err.Error())
		}
	}()

	slog.Info("Resolving playlist", "jobId", jobID, "url", playlistURL)
	items, err := c.resolver.Resolve(ctx, playlistURL)
	if err != nil {
		err = fmt.Errorf("failed to resolve playlist: %w", err)
		c.fail(jobID, err.Error())
		return err
	}
	if len(items) == 0 {
		err = fmt.Errorf("playlist is empty: %s", playlistURL)
		c.fail(jobID, err.Error())
		return err
	}

	jobDir := c.JobDir(jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		err = fmt.Errorf("failed to create job directory: %w", err)
		c.fail(jobID, err.Error())
		return err
	}

	c.tracker.Init(jobID, len(items))
	slog.Info("Fetching playlist items", "jobId", jobID, "total", len(items))

	for i, item := range items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("fetch interrupted: %w", ctxErr)
			c.fail(jobID, err.Error())
			return err
		}

		track := c.fetchOne(ctx, jobID, i+1, item)
		if err := c.registry.AppendTrack(jobID, track); err != nil {
			err = fmt.Errorf("failed to record track %d: %w", track.ID, err)
			c.fail(jobID, err.Error())
			return err
		}
		c.tracker.Advance(jobID, track.Title, track.Fetched())
	}

	// Ready before completed, so a poller seeing completed can read the manifest.
	if err := c.registry.Transition(jobID, job.StatusFetching, job.StatusReady); err != nil {
		c.fail(jobID, err.Error())
		return err
	}
	c.tracker.MarkDone(jobID, true)

	slog.Info("Fetch completed", "jobId", jobID, "total", len(items), "failed", c.tracker.Read(jobID).Failed)
	return nil
}

// fetchOne downloads one item into its own directory. A failure is recorded
// on the returned track, never returned.
func (c *Coordinator) fetchOne(ctx context.Context, jobID string, id int, item domain.SourceItem) domain.Track {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = fmt.Sprintf("Track %d", id)
	}
	track := domain.Track{
		ID:        id,
		SourceRef: item.SourceRef,
		Title:     title,
	}

	c.tracker.Begin(jobID, title)

	path, err := c.fetcher.Fetch(ctx, item, filepath.Join(c.JobDir(jobID), fmt.Sprintf("%03d", id)))
	if err != nil {
		slog.Warn("Item fetch failed", "jobId", jobID, "track", id, "ref", item.SourceRef, "error", err)
		track.FetchError = err.Error()
		return track
	}

	track.LocalPath = path
	return track
}

func (c *Coordinator) fail(jobID, message string) {
	if err := c.registry.Fail(jobID, message); err != nil {
		slog.Warn("Could not mark job failed", "jobId", jobID, "error", err)
	}
	c.tracker.Fail(jobID, message)
}
