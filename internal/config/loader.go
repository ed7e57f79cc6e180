package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	Port       int    `json:"port" yaml:"port" toml:"port"`
	WeightsDir string `json:"weights_dir" yaml:"weights_dir" toml:"weights_dir"`

	Backend            string   `json:"backend" yaml:"backend" toml:"backend"`
	WorkerBin          string   `json:"worker_bin" yaml:"worker_bin" toml:"worker_bin"`
	WorkerArgs         []string `json:"worker_args" yaml:"worker_args" toml:"worker_args"`
	WorkerHost         string   `json:"worker_host" yaml:"worker_host" toml:"worker_host"`
	WorkerPortStart    int      `json:"worker_port_start" yaml:"worker_port_start" toml:"worker_port_start"`
	WorkerPortEnd      int      `json:"worker_port_end" yaml:"worker_port_end" toml:"worker_port_end"`
	WorkerURL          string   `json:"worker_url" yaml:"worker_url" toml:"worker_url"`
	WorkerStartTimeout int      `json:"worker_start_timeout_seconds" yaml:"worker_start_timeout_seconds" toml:"worker_start_timeout_seconds"`

	MaxConcurrent  int  `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	MaxUploadMB    int  `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	RequestTimeout int  `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
	AutoOrient     bool `json:"auto_orient" yaml:"auto_orient" toml:"auto_orient"`
	// MaxImagePixels bounds width*height of each uploaded image (0 = built-in limit).
	MaxImagePixels int64 `json:"max_image_pixels" yaml:"max_image_pixels" toml:"max_image_pixels"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	TraceExporter   string  `json:"trace_exporter" yaml:"trace_exporter" toml:"trace_exporter"`
	OTLPEndpoint    string  `json:"otlp_endpoint" yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	TraceSampleRate float64 `json:"trace_sample_rate" yaml:"trace_sample_rate" toml:"trace_sample_rate"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	CORSMethods []string `json:"cors_methods" yaml:"cors_methods" toml:"cors_methods"`
	CORSHeaders []string `json:"cors_headers" yaml:"cors_headers" toml:"cors_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	err := LoadInto(path, &cfg)
	return cfg, err
}

// LoadInto decodes the file at path onto cfg. Keys absent from the file keep
// the values already in cfg.
func LoadInto(path string, cfg *Config) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	return nil
}
