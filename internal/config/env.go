package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads the environment variables understood by vtond onto a zero
// Config. Unset variables leave the corresponding field zero.
func FromEnv(lookup LookupFunc) (Config, error) {
	var cfg Config
	err := ApplyEnv(&cfg, lookup)
	return cfg, err
}

// ApplyEnv overlays every variable that is set to a non-blank value onto cfg,
// including explicit zero and false values.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(k string, dst *string) {
		if v, ok := get(k); ok {
			*dst = v
		}
	}
	atoi := func(k string, dst *int) {
		if v, ok := get(k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", k, v))
				return
			}
			*dst = n
		}
	}
	atoi64 := func(k string, dst *int64) {
		if v, ok := get(k); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", k, v))
				return
			}
			*dst = n
		}
	}
	float := func(k string, dst *float64) {
		if v, ok := get(k); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a number", k, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(k string, dst *bool) {
		if v, ok := get(k); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", k, v))
				return
			}
			*dst = b
		}
	}
	list := func(k string, dst *[]string, split func(string) []string) {
		if v, ok := get(k); ok {
			*dst = split(v)
		}
	}

	str("FASHN_WEIGHTS_DIR", &cfg.WeightsDir)
	atoi("PORT", &cfg.Port)
	str("VTOND_ADDR", &cfg.Addr)
	str("VTOND_BACKEND", &cfg.Backend)
	str("VTOND_WORKER_BIN", &cfg.WorkerBin)
	list("VTOND_WORKER_ARGS", &cfg.WorkerArgs, strings.Fields)
	str("VTOND_WORKER_HOST", &cfg.WorkerHost)
	str("VTOND_WORKER_URL", &cfg.WorkerURL)
	atoi("VTOND_WORKER_START_TIMEOUT", &cfg.WorkerStartTimeout)
	atoi("VTOND_MAX_CONCURRENT", &cfg.MaxConcurrent)
	atoi("VTOND_MAX_UPLOAD_MB", &cfg.MaxUploadMB)
	atoi("VTOND_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	boolean("VTOND_AUTO_ORIENT", &cfg.AutoOrient)
	atoi64("VTOND_MAX_IMAGE_PIXELS", &cfg.MaxImagePixels)
	str("VTOND_LOG_LEVEL", &cfg.LogLevel)
	str("VTOND_LOG_FORMAT", &cfg.LogFormat)
	str("VTOND_TRACE_EXPORTER", &cfg.TraceExporter)
	str("VTOND_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	float("VTOND_TRACE_SAMPLE_RATE", &cfg.TraceSampleRate)
	boolean("VTOND_CORS_ENABLED", &cfg.CORSEnabled)
	list("VTOND_CORS_ORIGINS", &cfg.CORSOrigins, SplitCSV)
	return errors.Join(errs...)
}

// Resolve layers defaults, the optional config file and the environment, in
// that order of increasing precedence. Each layer only overrides the keys it
// actually sets.
func Resolve(path string, lookup LookupFunc) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := LoadInto(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SplitCSV splits a comma separated list, dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
