package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type TrackerConfig struct {
	UpstreamBaseURL string `env:"UPSTREAM_BASE_URL" envDefault:"https://openfront.io"`
	UpstreamAPIURL  string `env:"UPSTREAM_API_URL" envDefault:"https://api.openfront.io"`
	FallbackURL     string `env:"FALLBACK_LOBBIES_URL" envDefault:"https://openfront.pro/api/v1/lobbies"`

	MaxShards        int           `env:"MAX_SHARDS" envDefault:"20"`
	ProbeConcurrency int           `env:"PROBE_CONCURRENCY" envDefault:"10"`
	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// PollMode is auto (primary with one fallback per cycle) or fallback.
	PollMode     string        `env:"POLL_MODE" envDefault:"auto"`
	MinWait      time.Duration `env:"POLL_MIN_WAIT" envDefault:"500ms"`
	DefaultWait  time.Duration `env:"POLL_DEFAULT_WAIT" envDefault:"30s"`
	SampleWindow int           `env:"POLL_SAMPLE_WINDOW" envDefault:"20"`

	// ArchiveEpoch is the first date ever tracked; "all" queries start here.
	ArchiveEpoch    string `env:"ARCHIVE_EPOCH" envDefault:"2025-07-20"`
	RangeFetchLimit int    `env:"RANGE_FETCH_LIMIT" envDefault:"10"`
}

func LoadTracker() (TrackerConfig, error) {
	var cfg TrackerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
