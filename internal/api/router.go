package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/rooms", h.CreateRoom)
	r.GET("/rooms", h.GetRoom)
	r.POST("/token", h.CreateToken)

	r.POST("/frames", h.CreateFrameCredentials)
	if h.FrameWS != nil {
		r.GET("/ws/frame", gin.WrapF(h.FrameWS))
	}

	r.GET("/sessions", h.ListSessions)

	s := r.Group("/sessions/:mount")
	s.GET("", h.GetSession)
	s.DELETE("", h.DisposeSession)
	s.POST("/join", h.JoinSession)
	s.POST("/leave", h.LeaveSession)
	s.POST("/mute", h.ToggleMute)
	s.POST("/video", h.ToggleVideo)
	s.POST("/screenshare", h.ToggleScreenShare)
	s.GET("/events", h.ListEvents)
	s.GET("/stream", h.StreamSession)

	return r
}
