package config

import "github.com/caarlos0/env/v11"

// LogConfig controls the tracker's zerolog output. Poll cycles emit a handful
// of structured events each, so sampling stays off unless tuned.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`

	// File, when set, routes log output to a size-capped file instead of
	// stdout; MaxMB is the cap before the file is truncated.
	File  string `env:"LOG_FILE"`
	MaxMB int    `env:"LOG_MAX_MB" envDefault:"16"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	err := env.Parse(&cfg)
	return cfg, err
}
