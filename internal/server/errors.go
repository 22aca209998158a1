package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/finalize"
	"github.com/jaki95/playlist2album/internal/job"
	"github.com/jaki95/playlist2album/internal/storage"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotReady       = errors.New("not ready")
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, job.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, job.ErrConflict), errors.Is(err, ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, finalize.ErrValidation), errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), api.ErrorResponse{Error: err.Error()})
}
