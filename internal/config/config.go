package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the tagging, sync and HTTP settings for the service.
type Config struct {
	// Minimum number of distinct devices required to confirm a machine.
	MinTagsForValidation int `yaml:"min_tags_for_validation"`

	// Minimum distance in meters between tags to be considered independent.
	// Doubles as the clustering radius when resolving a tag to a machine.
	MinTagDistanceMeters float64 `yaml:"min_tag_distance_meters"`

	// Maximum age of a tag in days before it might need revalidation.
	MaxTagAgeDays int `yaml:"max_tag_age_days"`

	// Interval between replica sync passes.
	SyncInterval time.Duration `yaml:"sync_interval"`

	// Tag submissions allowed per device per minute.
	SubmitRatePerMinute int `yaml:"submit_rate_per_minute"`

	// Origins allowed by the CORS middleware.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the reference configuration. The validation threshold and
// tag distance match the values the mobile client ships with.
func Default() Config {
	return Config{
		MinTagsForValidation: 5,
		MinTagDistanceMeters: 50,
		MaxTagAgeDays:        365,
		SyncInterval:         30 * time.Second,
		SubmitRatePerMinute:  10,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"https://automap.pages.dev",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, in that order.
//
// Environment variables:
//   - AUTOMAP_CONFIG: path to a YAML config file (default: config.yaml if present)
//   - AUTOMAP_MIN_TAGS: override for min_tags_for_validation
//   - AUTOMAP_MIN_TAG_DISTANCE: override for min_tag_distance_meters
//   - AUTOMAP_SYNC_INTERVAL: override for sync_interval (Go duration syntax)
//   - AUTOMAP_ALLOWED_ORIGINS: comma-separated CORS allow-list
func Load() (Config, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv("AUTOMAP_CONFIG"))
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("AUTOMAP_MIN_TAGS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTOMAP_MIN_TAGS: %w", err)
		}
		cfg.MinTagsForValidation = n
	}
	if v := os.Getenv("AUTOMAP_MIN_TAG_DISTANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTOMAP_MIN_TAG_DISTANCE: %w", err)
		}
		cfg.MinTagDistanceMeters = f
	}
	if v := os.Getenv("AUTOMAP_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTOMAP_SYNC_INTERVAL: %w", err)
		}
		cfg.SyncInterval = d
	}
	if v := os.Getenv("AUTOMAP_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c Config) Validate() error {
	if c.MinTagsForValidation < 1 {
		return fmt.Errorf("min_tags_for_validation must be >= 1, got %d", c.MinTagsForValidation)
	}
	if c.MinTagDistanceMeters <= 0 {
		return fmt.Errorf("min_tag_distance_meters must be > 0, got %f", c.MinTagDistanceMeters)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval must be > 0, got %s", c.SyncInterval)
	}
	return nil
}
