package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"roombook/internal/schedule"
)

type Config struct {
	Server struct {
		ListenAddr string  `yaml:"listen_addr"`
		RateLimit  float64 `yaml:"rate_limit"`
		RateBurst  int     `yaml:"rate_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		RecurrenceHorizonWeeks int `yaml:"recurrence_horizon_weeks"`
	} `yaml:"booking"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/roombook.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RecurrenceHorizonWeeks bounds open-ended recurring bookings.
func (c *Config) RecurrenceHorizonWeeks() int {
	if c.Booking.RecurrenceHorizonWeeks <= 0 {
		return schedule.DefaultHorizonWeeks
	}
	return c.Booking.RecurrenceHorizonWeeks
}
