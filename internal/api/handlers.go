package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"humming/meet/internal/apperr"
	"humming/meet/internal/daily"
	"humming/meet/internal/health"
	"humming/meet/internal/rooms"
	"humming/meet/internal/sessions"
	"humming/meet/internal/store"
	"humming/meet/internal/tokens"
)

type RoomService interface {
	EnsureRoom(ctx context.Context, raw string) (*daily.Room, error)
	FindRoom(ctx context.Context, raw string) (*daily.Room, error)
}

type TokenService interface {
	IssueToken(ctx context.Context, roomName, userName string, isOwner bool) (*tokens.AccessToken, error)
}

// FrameMinter mints frame host credentials for a mount.
type FrameMinter interface {
	Mint(mount string) (string, time.Time, error)
}

type ReadinessChecker interface {
	CheckAll(ctx context.Context) health.HealthStatus
}

type Handlers struct {
	Rooms    RoomService
	Tokens   TokenService
	Sessions *sessions.Manager
	Journal  *store.Store
	Frames   FrameMinter
	FrameWS  http.HandlerFunc
	Ready    ReadinessChecker
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type tokenRequest struct {
	RoomName string `json:"roomName"`
	UserName string `json:"userName"`
	IsOwner  bool   `json:"isOwner"`
}

type tokenResponse struct {
	Token   string `json:"token"`
	RoomURL string `json:"roomUrl"`
}

// bindOptionalJSON binds a JSON body; an empty body leaves v untouched.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.InvalidInput("invalid JSON body")
	}
	return nil
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	room, err := h.Rooms.EnsureRoom(c.Request.Context(), req.Name)
	if err != nil {
		ae := toAppError(err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ae)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) GetRoom(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		abortWithError(c, apperr.InvalidInput("Room name required"))
		return
	}
	room, err := h.Rooms.FindRoom(c.Request.Context(), name)
	if errors.Is(err, rooms.ErrNameRequired) {
		abortWithError(c, apperr.InvalidInput("Room name required"))
		return
	}
	if err != nil {
		var apiErr *daily.APIError
		if errors.Is(err, daily.ErrNotFound) || errors.As(err, &apiErr) {
			abortWithError(c, apperr.NotFound("Room not found"))
			return
		}
		ae := toAppError(err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ae)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handlers) CreateToken(c *gin.Context) {
	var req tokenRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	if req.RoomName == "" {
		abortWithError(c, apperr.InvalidInput("Room name required"))
		return
	}
	tok, err := h.Tokens.IssueToken(c.Request.Context(), req.RoomName, req.UserName, req.IsOwner)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: tok.Token, RoomURL: tok.RoomURL})
}

type frameRequest struct {
	Mount string `json:"mount"`
}

// CreateFrameCredentials mints the bearer token a frame host presents on
// GET /ws/frame.
func (h *Handlers) CreateFrameCredentials(c *gin.Context) {
	var req frameRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		abortWithError(c, err)
		return
	}
	if req.Mount == "" {
		abortWithError(c, apperr.InvalidInput("mount required"))
		return
	}
	tok, exp, err := h.Frames.Mint(req.Mount)
	if err != nil {
		abortWithError(c, apperr.Wrap(apperr.ErrCodeInternal, err.Error(), http.StatusServiceUnavailable, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mount":      req.Mount,
		"token":      tok,
		"expires_at": exp.UTC(),
		"ws_path":    "/ws/frame?mount=" + url.QueryEscape(req.Mount),
	})
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handlers) Readyz(c *gin.Context) {
	st := h.Ready.CheckAll(c.Request.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}
