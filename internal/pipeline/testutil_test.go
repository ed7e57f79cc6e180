package pipeline

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakePipeline is a lightweight in-memory pipeline used for tests.
type fakePipeline struct {
	images   []image.Image
	err      error
	delay    time.Duration
	closeErr error

	mu       sync.Mutex
	requests []Request
	closed   atomic.Bool
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakePipeline) TryOn(ctx context.Context, req Request) (Result, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Images: f.images}, nil
}

func (f *fakePipeline) Close() error {
	f.closed.Store(true)
	return f.closeErr
}

func (f *fakePipeline) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// solid returns a w×h opaque raster filled with c.
func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// weightsDir creates a temp directory holding a placeholder weights file.
func weightsDir(t *testing.T) string {
	t.Helper()
	d := t.TempDir()
	if err := os.WriteFile(filepath.Join(d, "model.safetensors"), []byte("weights"), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	return d
}

// validRequest returns a request with default params and 100x100 images.
func validRequest() Request {
	return Request{
		Person:     solid(100, 100, color.NRGBA{R: 200, A: 255}),
		Garment:    solid(100, 100, color.NRGBA{B: 200, A: 255}),
		Params:     DefaultParams(),
		NumSamples: 1,
	}
}

// managerWith returns a started Manager whose loader yields p.
func managerWith(t *testing.T, p Pipeline, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.WeightsDir == "" {
		cfg.WeightsDir = weightsDir(t)
	}
	cfg.Loader = func(ctx context.Context, lc LoadConfig) (Pipeline, error) { return p, nil }
	m := NewWithConfig(cfg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}
