// Command provision ensures a room exists and mints a meeting token for it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"humming/meet/internal/config"
	"humming/meet/internal/daily"
	"humming/meet/internal/logger"
	"humming/meet/internal/rooms"
	"humming/meet/internal/tokens"
)

func main() {
	room := flag.String("room", "", "room name (normalized; empty generates one)")
	user := flag.String("user", "", "participant display name")
	owner := flag.Bool("owner", false, "mint an owner token")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if err := logger.Init(cfg.Server.LogLevel, "text"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.L().Fatal("invalid configuration", zap.Error(err))
	}

	policy := daily.Policy{MaxParticipants: cfg.Daily.MaxParticipants, TTL: cfg.Daily.RoomTTL}
	client := daily.NewClient(daily.Options{
		APIKey:    cfg.Daily.APIKey,
		BaseURL:   cfg.Daily.APIURL,
		Timeout:   cfg.Daily.HTTPTimeout,
		RateLimit: cfg.Daily.RateLimit,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := rooms.NewService(client, policy).EnsureRoom(ctx, *room)
	if err != nil {
		logger.L().Fatal("room provisioning failed", zap.Error(err))
	}
	tok, err := tokens.NewService(client, policy, cfg.Daily.Domain).IssueToken(ctx, r.Name, *user, *owner)
	if err != nil {
		logger.L().Fatal("token issuance failed", zap.Error(err))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"room": r, "token": tok})
		return
	}
	fmt.Printf("room:    %s\n", r.Name)
	fmt.Printf("url:     %s\n", tok.RoomURL)
	fmt.Printf("expires: %s\n", tok.ExpiresAt.Format(time.RFC3339))
	fmt.Printf("user:    %s (owner=%t)\n", tok.UserName, tok.Capabilities.IsOwner)
	fmt.Printf("token:   %s\n", tok.Token)
}
