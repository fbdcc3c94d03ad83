package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BlobBackend selects the durable store: memory, gcs or postgres.
	BlobBackend string `env:"BLOB_BACKEND" envDefault:"memory"`

	PostgresDSN string `env:"POSTGRES_DSN"`

	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsJSON string `env:"GCS_CREDENTIALS_JSON"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
