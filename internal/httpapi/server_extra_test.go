package httpapi

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vtond/internal/pipeline"
)

// blockService blocks in TryOn until the context is done.
type blockService struct{ mockService }

func (b *blockService) TryOn(ctx context.Context, req pipeline.Request) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTryOnLogsWithZerologInfo(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())

	img := pngOf(t, 4, 4, color.White)
	body, ct := tryOnBody(t, img, img, nil)
	req := httptest.NewRequest(http.MethodPost, "/try-on?log=info", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	NewMux(readyService()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with info logging, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "tryon start") || !strings.Contains(out, "tryon end") {
		t.Fatalf("missing log lines: %q", out)
	}
	if !strings.Contains(out, `"request_id"`) {
		t.Fatalf("missing request id: %q", out)
	}
}

func TestTryOnErrorLoggedAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer SetLogger(zerolog.Nop())

	svc := &mockService{ready: true}
	img := pngOf(t, 4, 4, color.White)
	body, ct := tryOnBody(t, img, img, nil)
	req := httptest.NewRequest(http.MethodPost, "/try-on", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Log-Level", "error")
	rec := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	out := buf.String()
	if strings.Contains(out, "tryon start") {
		t.Fatalf("start line logged at error level: %q", out)
	}
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "No image generated") {
		t.Fatalf("missing error line: %q", out)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	// Enable CORS temporarily
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(readyService())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	NewMux(readyService()).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
}

func TestTryOnTimeoutReturns500(t *testing.T) {
	defer SetTryOnTimeout(0)
	SetTryOnTimeout(50 * time.Millisecond)

	svc := &blockService{mockService{ready: true}}
	img := pngOf(t, 4, 4, color.White)
	rec := postTryOn(t, NewMux(svc), img, img, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on timeout, got %d", rec.Code)
	}
}

func TestTryOnShutdownReturns503(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(context.Background())

	svc := &blockService{mockService{ready: true}}
	img := pngOf(t, 4, 4, color.White)
	time.AfterFunc(30*time.Millisecond, cancel)
	rec := postTryOn(t, NewMux(svc), img, img, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on shutdown, got %d", rec.Code)
	}
}

func TestTryOnClientGoneWritesNothing(t *testing.T) {
	svc := &blockService{mockService{ready: true}}
	img := pngOf(t, 4, 4, color.White)
	body, ct := tryOnBody(t, img, img, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/try-on", body).WithContext(ctx)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(rec, req)
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}
