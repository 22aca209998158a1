package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/robfig/cron/v3"
)

// StartRetention schedules the sweep of old terminal jobs and abandoned ready jobs
func (s *Server) StartRetention() error {
	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc(s.cfg.Retention.Schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.cfg.Retention.Schedule, err)
	}
	s.scheduler.Start()
	slog.Info("Retention sweeper started", "schedule", s.cfg.Retention.Schedule, "ttl", s.cfg.Retention.TTL, "ready_ttl", s.cfg.Retention.ReadyTTL)
	return nil
}

// sweep removes expired jobs with their working directories, progress state
// and any archive nobody else references.
func (s *Server) sweep() {
	removed := s.registry.Sweep(s.cfg.Retention.TTL, s.cfg.Retention.ReadyTTL)
	if len(removed) == 0 {
		return
	}

	ctx := context.Background()
	for _, j := range removed {
		s.tracker.Forget(j.ID)

		if err := os.RemoveAll(s.coordinator.JobDir(j.ID)); err != nil {
			slog.Error("Failed to remove job directory", "jobId", j.ID, "error", err)
		}

		if j.Artifact == "" || s.registry.ArtifactInUse(j.Artifact) {
			continue
		}
		if err := s.store.Remove(ctx, path.Base(j.Artifact)); err != nil {
			slog.Error("Failed to remove artifact", "jobId", j.ID, "artifact", j.Artifact, "error", err)
		}
	}

	slog.Info("Cleanup completed", "jobs_removed", len(removed))
}
