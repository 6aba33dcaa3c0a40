// Package config loads process settings from the environment and heuristic rules from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "SCG"

// Config holds process-wide settings.
type Config struct {
	Port      string `envconfig:"PORT" default:"8084"`
	DBPath    string `envconfig:"DB_PATH" default:"scg.db"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	RulesFile string `envconfig:"RULES_FILE" default:"rules.yml"`
	ReportDir string `envconfig:"REPORT_DIR" default:"relatorios"`

	ExtractWorkers int `envconfig:"EXTRACT_WORKERS" default:"4"`

	OCR OCRConfig `envconfig:"OCR"`
}

// OCRConfig points at the external binaries used for image-only PDFs.
type OCRConfig struct {
	Enabled   bool   `envconfig:"ENABLED" default:"true"`
	Tesseract string `envconfig:"TESSERACT" default:"tesseract"`
	Pdftoppm  string `envconfig:"PDFTOPPM" default:"pdftoppm"`
	Language  string `envconfig:"LANG" default:"por"`
	DPI       int    `envconfig:"DPI" default:"300"`
}

// Load reads an optional .env file and then the SCG_* environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if cfg.ExtractWorkers <= 0 {
		return Config{}, fmt.Errorf("SCG_EXTRACT_WORKERS must be positive, got %d", cfg.ExtractWorkers)
	}
	return cfg, nil
}
