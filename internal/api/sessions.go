package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"humming/meet/internal/apperr"
	"humming/meet/internal/sessions"
)

type joinRequest struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

func (h *Handlers) session(c *gin.Context) *sessions.Session {
	s := h.Sessions.Get(c.Param("mount"))
	if s == nil {
		abortWithError(c, apperr.NotFound("session not found"))
	}
	return s
}

func (h *Handlers) JoinSession(c *gin.Context) {
	var req joinRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	s := h.Sessions.GetOrCreate(c.Param("mount"))
	if err := s.Orch.Join(c.Request.Context(), req.RoomID, req.UserName); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s.Orch.Snapshot())
}

func (h *Handlers) LeaveSession(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if err := s.Orch.Leave(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Orch.Snapshot())
}

func (h *Handlers) ToggleMute(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if _, err := s.Orch.ToggleMute(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Orch.Snapshot())
}

func (h *Handlers) ToggleVideo(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if _, err := s.Orch.ToggleVideo(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Orch.Snapshot())
}

func (h *Handlers) ToggleScreenShare(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	if _, err := s.Orch.ToggleScreenShare(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Orch.Snapshot())
}

// ListSessions returns every session with its current state, ordered by mount.
func (h *Handlers) ListSessions(c *gin.Context) {
	list := h.Sessions.List()
	out := make([]gin.H, 0, len(list))
	for _, s := range list {
		out = append(out, gin.H{
			"id":         s.ID,
			"mount":      s.Mount,
			"created_at": s.CreatedAt,
			"session":    s.Orch.Snapshot(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (h *Handlers) GetSession(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         s.ID,
		"mount":      s.Mount,
		"created_at": s.CreatedAt,
		"session":    s.Orch.Snapshot(),
	})
}

func (h *Handlers) ListEvents(c *gin.Context) {
	mount := c.Param("mount")
	if h.Sessions.Get(mount) == nil && len(h.Journal.ListEvents(mount)) == 0 {
		abortWithError(c, apperr.NotFound("session not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mount":  mount,
		"events": h.Journal.ListEvents(mount),
	})
}

// StreamSession pushes a server-sent "session" event on every state change
// until the client goes away or the session is disposed.
func (h *Handlers) StreamSession(c *gin.Context) {
	s := h.session(c)
	if s == nil {
		return
	}
	changes, cancel := s.Orch.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("session", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handlers) DisposeSession(c *gin.Context) {
	mount := c.Param("mount")
	if !h.Sessions.Dispose(mount) {
		abortWithError(c, apperr.NotFound("session not found"))
		return
	}
	h.Journal.Drop(mount)
	c.Status(http.StatusNoContent)
}
