package server

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/job"
)

// decodeCover accepts plain base64 or a data URL. An empty string means no cover.
func decodeCover(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}

	cover, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 cover image: %v", ErrInvalidRequest, err)
	}
	return cover, nil
}

// pagination reads page and pageSize, falling back to defaults on bad input.
func pagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}
	return page, pageSize
}

// manifestFor builds the manifest of a job that has at least reached ready.
func manifestFor(j *job.Job) (*api.ManifestResponse, error) {
	switch {
	case j.Status == job.StatusFailed:
		return nil, fmt.Errorf("%w: job failed: %s", job.ErrConflict, j.Error)
	case !j.Status.AtLeast(job.StatusReady):
		return nil, fmt.Errorf("%w: job is %s", ErrNotReady, j.Status)
	}

	tracks := make([]api.ManifestTrack, len(j.Tracks))
	for i, t := range j.Tracks {
		tracks[i] = api.ManifestTrack{
			ID:        t.ID,
			Title:     t.Title,
			SourceRef: t.SourceRef,
			Fetched:   t.Fetched(),
			Error:     t.FetchError,
		}
	}
	return &api.ManifestResponse{
		JobID:  j.ID,
		Status: j.Status,
		Album:  j.Album,
		Tracks: tracks,
	}, nil
}
