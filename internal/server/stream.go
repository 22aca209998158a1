package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamProgress godoc
// @Summary Stream fetch progress
// @Description Upgrades to a websocket and pushes progress until fetching completes or fails.
// @Tags Jobs
// @Param id path string true "Job ID"
// @Failure 404 {object} api.ErrorResponse
// @Router /api/jobs/{id}/progress/stream [get]
func (s *Server) streamProgress(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := s.registry.Get(jobID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "jobId", jobID, "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.tracker.Subscribe(jobID)
	defer cancel()

	// Reading is required to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			slog.Debug("Progress stream closed", "jobId", jobID, "error", err)
			return false
		}
		return true
	}

	// The first value on updates is the current snapshot.
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				closeStream(conn)
				return
			}
			if !send(state) || state.Done() {
				closeStream(conn)
				return
			}
		case <-gone:
			return
		case <-s.baseCtx.Done():
			closeStream(conn)
			return
		}
	}
}

func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
