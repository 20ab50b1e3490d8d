package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port      string
		LogLevel  string
		LogFormat string
	}
	Daily struct {
		APIKey          string
		Domain          string
		APIURL          string
		MaxParticipants int
		RoomTTL         time.Duration
		HTTPTimeout     time.Duration
		RateLimit       float64
	}
	Frame struct {
		TokenSecret string
		TokenTTL    time.Duration
		MountPoint  string
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")

	v.SetDefault("daily.api_url", "https://api.daily.co/v1")
	v.SetDefault("daily.max_participants", 20)
	v.SetDefault("daily.room_ttl", time.Hour)
	v.SetDefault("daily.http_timeout", 10*time.Second)
	v.SetDefault("daily.rate_limit", 5)

	v.SetDefault("frame.token_ttl", time.Hour)
	v.SetDefault("frame.mount_point", "call-container")

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")
	v.BindEnv("server.log_format", "LOG_FORMAT")

	v.BindEnv("daily.api_key", "DAILY_API_KEY")
	v.BindEnv("daily.domain", "DAILY_DOMAIN")
	v.BindEnv("daily.api_url", "DAILY_API_URL")
	v.BindEnv("daily.max_participants", "DAILY_MAX_PARTICIPANTS")
	v.BindEnv("daily.room_ttl", "DAILY_ROOM_TTL")
	v.BindEnv("daily.http_timeout", "DAILY_HTTP_TIMEOUT")
	v.BindEnv("daily.rate_limit", "DAILY_RATE_LIMIT")

	v.BindEnv("frame.token_secret", "FRAME_TOKEN_SECRET")
	v.BindEnv("frame.token_ttl", "FRAME_TOKEN_TTL")
	v.BindEnv("frame.mount_point", "FRAME_MOUNT_POINT")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")
	c.Server.LogFormat = v.GetString("server.log_format")

	c.Daily.APIKey = v.GetString("daily.api_key")
	c.Daily.Domain = v.GetString("daily.domain")
	c.Daily.APIURL = strings.TrimSuffix(v.GetString("daily.api_url"), "/")
	c.Daily.MaxParticipants = v.GetInt("daily.max_participants")
	c.Daily.RoomTTL = v.GetDuration("daily.room_ttl")
	c.Daily.HTTPTimeout = v.GetDuration("daily.http_timeout")
	c.Daily.RateLimit = v.GetFloat64("daily.rate_limit")

	c.Frame.TokenSecret = v.GetString("frame.token_secret")
	c.Frame.TokenTTL = v.GetDuration("frame.token_ttl")
	c.Frame.MountPoint = v.GetString("frame.mount_point")

	return c
}

// Validate reports the settings a server cannot run without.
func (c Config) Validate() error {
	var missing []string
	if c.Daily.APIKey == "" {
		missing = append(missing, "DAILY_API_KEY")
	}
	if c.Daily.Domain == "" {
		missing = append(missing, "DAILY_DOMAIN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func toString(v any) string { return fmt.Sprint(v) }
