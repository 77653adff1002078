package pipeline

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config carries the knobs for a pipeline run. Values come from the
// environment, with an optional .env file loaded first.
type Config struct {
	// InputDir holds the raw source files, one set per source.
	InputDir string `env:"SWATCH_INPUT_DIR" envDefault:"./data"`
	// WorkDir receives the per-source cleaned tables.
	WorkDir string `env:"SWATCH_WORK_DIR" envDefault:"./work"`
	// Sources restricts the run to the named sources; empty means all.
	Sources []string `env:"SWATCH_SOURCES" envSeparator:","`
	// MappingDir optionally overrides built-in column mappings with
	// <source>_sites.yaml / <source>_samples.yaml files.
	MappingDir string `env:"SWATCH_MAPPING_DIR"`

	// StorageDriver selects the database backend: memory|sqlite|postgres.
	StorageDriver string `env:"SWATCH_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SWATCH_SQLITE_PATH" envDefault:"./swatch.db"`
	PostgresDSN   string `env:"SWATCH_POSTGRES_DSN"`

	// BlobDriver selects the artifact backend: fs|s3|memory.
	BlobDriver      string `env:"SWATCH_BLOB_DRIVER" envDefault:"fs"`
	BlobFSRoot      string `env:"SWATCH_BLOB_FS_ROOT" envDefault:"./artifacts"`
	BlobS3Bucket    string `env:"SWATCH_BLOB_S3_BUCKET"`
	BlobS3Region    string `env:"SWATCH_BLOB_S3_REGION"`
	BlobS3Endpoint  string `env:"SWATCH_BLOB_S3_ENDPOINT"`
	BlobS3PathStyle bool   `env:"SWATCH_BLOB_S3_PATH_STYLE"`

	// ValidationBudget caps recorded validation failures per run.
	ValidationBudget int `env:"SWATCH_VALIDATION_BUDGET" envDefault:"50"`
}

// LoadConfig reads configuration from a .env file (if present) and the
// process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
