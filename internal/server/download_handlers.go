package server

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

// downloadArtifact streams a published album archive
//
//	@Summary		Download an album archive
//	@Tags			Downloads
//	@Produce		application/zip
//	@Param			name	path		string			true	"Archive name"
//	@Success		200		{file}		application/zip	"Album archive"
//	@Failure		400		{object}	api.ErrorResponse	"Invalid archive name"
//	@Failure		404		{object}	api.ErrorResponse	"Archive not found"
//	@Router			/download/{name} [get]
func (s *Server) downloadArtifact(c *gin.Context) {
	name := c.Param("name")

	rc, err := s.store.Open(c.Request.Context(), name)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, rc); err != nil {
		// Headers are already sent, all we can do is log.
		slog.Error("Failed to stream archive", "name", name, "error", fmt.Sprintf("%v", err))
	}
}
