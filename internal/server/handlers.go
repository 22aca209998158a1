package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/playlist2album/internal/api"
)

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} api.MessageResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// createJob godoc
// @Summary Start fetching a playlist
// @Description Creates a job and fetches every playlist item in the background.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body api.CreateJobRequest true "Playlist and album metadata"
// @Success 202 {object} api.CreateJobResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /api/jobs [post]
func (s *Server) createJob(c *gin.Context) {
	var req api.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	j := s.registry.Create(req.PlaylistURL, req.Album)
	s.coordinator.Start(s.baseCtx, j.ID, req.PlaylistURL)

	slog.Info("Job accepted", "jobId", j.ID, "url", req.PlaylistURL)
	c.JSON(http.StatusAccepted, api.CreateJobResponse{JobID: j.ID, Status: j.Status})
}

// listJobs godoc
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} job.ListResponse
// @Router /api/jobs [get]
func (s *Server) listJobs(c *gin.Context) {
	page, pageSize := pagination(c)
	c.JSON(http.StatusOK, s.registry.List(page, pageSize))
}

// getJob godoc
// @Summary Get a job snapshot
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} job.Job
// @Failure 404 {object} api.ErrorResponse
// @Router /api/jobs/{id} [get]
func (s *Server) getJob(c *gin.Context) {
	j, err := s.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}
