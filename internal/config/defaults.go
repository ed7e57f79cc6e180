package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		Port:               8080,
		WeightsDir:         "/weights",
		Backend:            "subprocess",
		WorkerBin:          "fashn-vton-worker",
		WorkerHost:         "127.0.0.1",
		WorkerStartTimeout: 300,
		MaxConcurrent:      1,
		MaxUploadMB:        32,
		LogLevel:           "info",
		LogFormat:          "json",
		TraceExporter:      "none",
		TraceSampleRate:    1,
		CORSMethods:        []string{"GET", "POST", "OPTIONS"},
		CORSHeaders:        []string{"Content-Type", "X-Request-ID"},
	}
}

// ListenAddr returns Addr when set, otherwise ":<Port>".
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "subprocess", "remote":
	default:
		return fmt.Errorf("backend must be subprocess or remote, got %q", c.Backend)
	}
	if strings.EqualFold(c.Backend, "remote") && c.WorkerURL == "" {
		return fmt.Errorf("backend remote requires worker_url")
	}
	if c.Addr == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be >= 1, got %d", c.MaxUploadMB)
	}
	if c.MaxImagePixels < 0 {
		return fmt.Errorf("max_image_pixels must be >= 0, got %d", c.MaxImagePixels)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout_seconds must be >= 0, got %d", c.RequestTimeout)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("trace_sample_rate must be within [0,1], got %g", c.TraceSampleRate)
	}
	if c.WorkerPortStart > 0 && c.WorkerPortEnd < c.WorkerPortStart {
		return fmt.Errorf("worker port range %d-%d is empty", c.WorkerPortStart, c.WorkerPortEnd)
	}
	switch strings.ToLower(c.TraceExporter) {
	case "", "none", "stdout", "otlp":
	default:
		return fmt.Errorf("trace_exporter must be none, stdout or otlp, got %q", c.TraceExporter)
	}
	return nil
}
