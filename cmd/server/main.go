package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"humming/meet/internal/api"
	"humming/meet/internal/auth"
	"humming/meet/internal/config"
	"humming/meet/internal/daily"
	"humming/meet/internal/framews"
	"humming/meet/internal/health"
	"humming/meet/internal/logger"
	"humming/meet/internal/orchestrator"
	"humming/meet/internal/rooms"
	"humming/meet/internal/sessions"
	"humming/meet/internal/store"
	"humming/meet/internal/tokens"
)

func main() {
	// Load .env file if present (ignored if missing)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Frame.TokenSecret == "" {
		log.Warn("FRAME_TOKEN_SECRET not set; frame hosts cannot connect")
	}

	policy := daily.Policy{MaxParticipants: cfg.Daily.MaxParticipants, TTL: cfg.Daily.RoomTTL}
	dailyClient := daily.NewClient(daily.Options{
		APIKey:    cfg.Daily.APIKey,
		BaseURL:   cfg.Daily.APIURL,
		Timeout:   cfg.Daily.HTTPTimeout,
		RateLimit: cfg.Daily.RateLimit,
	})
	roomSvc := rooms.NewService(dailyClient, policy)
	tokenSvc := tokens.NewService(dailyClient, policy, cfg.Daily.Domain)

	st := store.New()
	reg := framews.NewRegistry()
	frameAuth := auth.NewManager(cfg.Frame.TokenSecret, cfg.Frame.TokenTTL)
	wss := framews.NewServer(frameAuth, st, reg)

	mgr := sessions.NewManager(func(mount string) *orchestrator.Orchestrator {
		return orchestrator.New(orchestrator.Options{
			Rooms:    roomSvc,
			Tokens:   tokenSvc,
			Attacher: reg,
			Journal:  st,
			Mount:    mount,
		})
	})
	// The configured mount point always has a session ready to join.
	mgr.GetOrCreate(cfg.Frame.MountPoint)

	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(&api.Handlers{
		Rooms:    roomSvc,
		Tokens:   tokenSvc,
		Sessions: mgr,
		Journal:  st,
		Frames:   frameAuth,
		FrameWS:  wss.HandleFrameWS,
		Ready:    health.Checker{Cfg: cfg, Daily: dailyClient, Frames: reg},
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received; stopping server")
		// Tear down calls before draining HTTP
		mgr.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
