package framews

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	ws "nhooyr.io/websocket"

	"humming/meet/internal/auth"
	"humming/meet/internal/logger"
	"humming/meet/internal/orchestrator"
)

type Server struct {
	Auth    *auth.Manager
	Journal orchestrator.Journal
	Reg     *Registry
}

func NewServer(am *auth.Manager, j orchestrator.Journal, reg *Registry) *Server {
	return &Server{Auth: am, Journal: j, Reg: reg}
}

// HandleFrameWS upgrades an authenticated frame host connection and serves it
// until it disconnects.
func (s *Server) HandleFrameWS(w http.ResponseWriter, r *http.Request) {
	mount := r.URL.Query().Get("mount")
	if mount == "" {
		http.Error(w, "missing mount", http.StatusBadRequest)
		return
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	if _, err := s.Auth.Validate(strings.TrimPrefix(authz, "Bearer "), mount); err != nil {
		logger.L().Warn("frame host rejected", zap.String("mount", mount), zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	c, err := ws.Accept(w, r, nil)
	if err != nil {
		logger.L().Warn("ws accept", zap.Error(err))
		return
	}
	h := NewHost(mount, c, s.Journal)
	if s.Reg.Replace(h) {
		s.journal(mount, "frame_replaced")
	}
	s.journal(mount, "frame_connected")
	metricHosts.Inc()
	logger.L().Info("frame host connected", zap.String("mount", mount))

	if err := h.Serve(r.Context()); err != nil {
		logger.L().Warn("frame host read failed", zap.String("mount", mount), zap.Error(err))
	}
	h.Close("done")
	s.Reg.Remove(h)
	metricHosts.Dec()
	s.journal(mount, "frame_disconnected")
	logger.L().Info("frame host disconnected", zap.String("mount", mount))
}

func (s *Server) journal(mount, typ string) {
	if s.Journal != nil {
		s.Journal.AppendEvent(mount, typ, nil)
	}
}
