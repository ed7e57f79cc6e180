package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vtond/internal/common/fsutil"
)

// Manager owns the process-wide pipeline handle: it loads the pipeline once
// at startup, serves it to request handlers and releases it on shutdown.
type Manager struct {
	cfg       ManagerConfig
	handle    Handle
	guard     *guard
	publisher EventPublisher

	mu        sync.Mutex // serializes Start/Shutdown
	startTime time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig. The handle starts NotLoaded.
func NewWithConfig(cfg ManagerConfig) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		guard:     newGuard(cfg.MaxConcurrent),
		publisher: cfg.Publisher,
		startTime: time.Now(),
	}
}

// New constructs a Manager for weightsDir with package defaults.
func New(weightsDir string) *Manager {
	return NewWithConfig(ManagerConfig{LoadConfig: LoadConfig{WeightsDir: weightsDir}})
}

// Start loads the pipeline if the weights directory exists. A missing
// directory is not an error: the process serves with the handle NotLoaded.
// A load failure is returned and must abort startup.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle.Loaded() {
		return nil
	}
	dir := m.cfg.WeightsDir
	if !fsutil.IsDir(dir) {
		m.publisher.Publish(Event{Name: "load_skipped", Fields: map[string]any{"weights_dir": dir}})
		return nil
	}
	startTs := time.Now()
	m.publisher.Publish(Event{Name: "load_start", Fields: map[string]any{"weights_dir": dir, "backend": m.cfg.Backend}})
	p, err := m.cfg.Loader(ctx, m.cfg.LoadConfig)
	if err != nil {
		m.publisher.Publish(Event{Name: "load_error", Fields: map[string]any{"weights_dir": dir, "error": err.Error()}})
		return fmt.Errorf("failed to load pipeline from %s: %w", dir, err)
	}
	if p == nil {
		return fmt.Errorf("failed to load pipeline from %s: loader returned no pipeline", dir)
	}
	m.handle.set(p)
	pipelineLoaded.Set(1)
	m.publisher.Publish(Event{Name: "load_ready", Fields: map[string]any{"weights_dir": dir, "dur_ms": int(time.Since(startTs) / time.Millisecond)}})
	return nil
}

// Shutdown discards the handle and closes the pipeline. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.handle.clear()
	pipelineLoaded.Set(0)
	if p == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- p.Close() }()
	select {
	case err := <-done:
		m.publisher.Publish(Event{Name: "unload", Fields: map[string]any{}})
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pipeline is the readiness accessor: it returns the loaded pipeline or ErrNotLoaded.
func (m *Manager) Pipeline() (Pipeline, error) { return m.handle.Get() }

// Ready reports whether the pipeline is loaded.
func (m *Manager) Ready() bool { return m.handle.Loaded() }

// WeightsDir returns the configured weights directory.
func (m *Manager) WeightsDir() string { return m.cfg.WeightsDir }

// Uptime reports how long the manager has existed.
func (m *Manager) Uptime() time.Duration { return time.Since(m.startTime) }
