package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// LoadPipeline validates the weights directory and brings up the configured
// runtime backend. It is the default ManagerConfig.Loader.
func LoadPipeline(ctx context.Context, cfg LoadConfig) (Pipeline, error) {
	if err := checkWeightsDir(cfg.WeightsDir); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSubprocess:
		return startSubprocess(ctx, cfg)
	case BackendRemote:
		return connectRemote(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown pipeline backend %q", cfg.Backend)
	}
}

// checkWeightsDir requires a readable, non-empty directory.
func checkWeightsDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read weights dir: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("weights dir %s is empty", dir)
	}
	return nil
}

// connectRemote attaches to a worker that is already running at cfg.WorkerURL.
func connectRemote(ctx context.Context, cfg LoadConfig) (Pipeline, error) {
	if strings.TrimSpace(cfg.WorkerURL) == "" {
		return nil, errors.New("remote backend requires a worker url")
	}
	c := newWorkerClient(cfg.WorkerURL, cfg.RequestTimeout, 5*time.Second)
	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.health(hctx); err != nil {
		return nil, fmt.Errorf("remote worker %s not reachable: %w", cfg.WorkerURL, err)
	}
	if cfg.Publisher != nil {
		cfg.Publisher.Publish(Event{Name: "remote_ready", Fields: map[string]any{"url": c.baseURL}})
	}
	return c, nil
}
