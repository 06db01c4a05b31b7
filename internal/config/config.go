// Package config loads runtime settings and the per-city publishing registry.
//
// Settings come from the environment (optionally seeded from a .env file by
// the caller); the city registry is a YAML file mapping city identifiers to
// their source and serving directories.
package config

import (
	"fmt"
	"time"
)

// Settings holds process-wide runtime configuration.
type Settings struct {
	Listen     string // HTTP listen address
	FFmpegBin  string // path to the ffmpeg binary
	CitiesFile string // path to the city registry YAML

	RunTimeout     time.Duration // wall-clock budget for a whole pipeline run
	GraceDelay     time.Duration // how long a terminal status stays visible
	SegmentSeconds int           // HLS segment duration
	StrictEmpty    bool          // fail the run when no input clips are found
}

// FromEnv builds Settings from environment variables with sane defaults.
func FromEnv() Settings {
	return Settings{
		Listen:         ParseString("KIOSK_LISTEN", ":8080"),
		FFmpegBin:      ParseString("KIOSK_FFMPEG_BIN", "ffmpeg"),
		CitiesFile:     ParseString("KIOSK_CITIES_FILE", "cities.yaml"),
		RunTimeout:     ParseDuration("KIOSK_RUN_TIMEOUT", 30*time.Minute),
		GraceDelay:     ParseDuration("KIOSK_STATUS_GRACE", 2*time.Second),
		SegmentSeconds: ParseInt("KIOSK_SEGMENT_SECONDS", 5),
		StrictEmpty:    ParseBool("KIOSK_STRICT_EMPTY", false),
	}
}

// Validate checks settings for values that would break a run at a later,
// harder to diagnose point.
func (s Settings) Validate() error {
	if s.FFmpegBin == "" {
		return fmt.Errorf("ffmpeg binary path must not be empty")
	}
	if s.SegmentSeconds <= 0 {
		return fmt.Errorf("segment duration must be positive, got %d", s.SegmentSeconds)
	}
	if s.RunTimeout <= 0 {
		return fmt.Errorf("run timeout must be positive, got %s", s.RunTimeout)
	}
	if s.GraceDelay < 0 {
		return fmt.Errorf("status grace delay must not be negative, got %s", s.GraceDelay)
	}
	return nil
}
