package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/finalize"
)

// getProgress godoc
// @Summary Get fetch progress
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} progress.State
// @Failure 404 {object} api.ErrorResponse
// @Router /api/jobs/{id}/progress [get]
func (s *Server) getProgress(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := s.registry.Get(jobID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.tracker.Read(jobID))
}

// getManifest godoc
// @Summary Get the track manifest
// @Description Lists fetched tracks once the job is ready. Returns 409 while fetching or after a failure.
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} api.ManifestResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /api/jobs/{id}/manifest [get]
func (s *Server) getManifest(c *gin.Context) {
	j, err := s.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	manifest, err := manifestFor(j)
	if err != nil {
		c.JSON(statusFor(err), api.ErrorResponse{Error: err.Error(), Status: j.Status})
		return
	}
	c.JSON(http.StatusOK, manifest)
}

// finalizeJob godoc
// @Summary Finalize a ready job
// @Description Tags the selected tracks in the given order and packages them into one archive.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body api.FinalizeRequest true "Track order, titles and album metadata"
// @Success 200 {object} api.FinalizeResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/jobs/{id}/finalize [post]
func (s *Server) finalizeJob(c *gin.Context) {
	var req api.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	cover, err := decodeCover(req.CoverBase64)
	if err != nil {
		writeError(c, err)
		return
	}

	// A client that hangs up must not leave the job half finalized.
	ctx := context.WithoutCancel(c.Request.Context())

	edits := make([]finalize.TrackEdit, len(req.OrderedTracks))
	for i, t := range req.OrderedTracks {
		edits[i] = finalize.TrackEdit{ID: t.ID, Title: t.Title}
	}

	res, err := s.pipeline.Finalize(ctx, c.Param("id"), finalize.Request{
		Tracks: edits,
		Album:  req.Album,
		Cover:  cover,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FinalizeResponse{JobID: res.JobID, ArtifactURL: res.Artifact, Count: res.Count})
}
