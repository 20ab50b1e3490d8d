package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"humming/meet/internal/config"
	"humming/meet/internal/daily"
)

type CheckResult struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Optional bool          `json:"optional,omitempty"`
	Latency  time.Duration `json:"latency_ms"`
	Error    string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Pinger is satisfied by the provider client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MountLister reports mounts with a connected frame host.
type MountLister interface {
	Mounts() []string
}

// Checker runs readiness checks against the provider and frame hosts.
type Checker struct {
	Cfg    config.Config
	Daily  Pinger
	Frames MountLister
}

// CheckAll runs all health checks and returns combined status. Optional
// checks are reported but do not fail the result.
func (c Checker) CheckAll(ctx context.Context) HealthStatus {
	checks := []CheckResult{
		checkConfig(c.Cfg),
		checkDaily(ctx, c.Cfg, c.Daily),
	}
	if c.Frames != nil {
		checks = append(checks, checkFrameHost(c.Cfg, c.Frames))
	}

	allOK := true
	for _, r := range checks {
		if !r.OK && !r.Optional {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func checkConfig(cfg config.Config) CheckResult {
	result := CheckResult{Name: "config"}
	if err := cfg.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}

func checkDaily(ctx context.Context, cfg config.Config, p Pinger) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "daily"}

	if cfg.Daily.APIKey == "" {
		result.Error = "DAILY_API_KEY not set"
		result.Latency = time.Since(start)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := p.Ping(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		var apiErr *daily.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			result.Error = "invalid API key (401)"
			return result
		}
		result.Error = err.Error()
		return result
	}

	result.OK = true
	return result
}

func checkFrameHost(cfg config.Config, frames MountLister) CheckResult {
	result := CheckResult{Name: "frame_host", Optional: true}
	for _, m := range frames.Mounts() {
		if m == cfg.Frame.MountPoint {
			result.OK = true
			return result
		}
	}
	result.Error = fmt.Sprintf("no frame host on %q", cfg.Frame.MountPoint)
	return result
}
