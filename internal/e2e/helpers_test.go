package e2e

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"vtond/internal/httpapi"
	"vtond/internal/pipeline"
)

// stubPipeline returns a fixed image list; used through ManagerConfig.Loader.
type stubPipeline struct {
	images []image.Image
}

func (s *stubPipeline) TryOn(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	if s.images == nil {
		// Echo the person image like a trivial runtime would.
		return pipeline.Result{Images: []image.Image{req.Person}}, nil
	}
	return pipeline.Result{Images: s.images}, nil
}

func (s *stubPipeline) Close() error { return nil }

func stubLoader(p pipeline.Pipeline) pipeline.LoaderFunc {
	return func(ctx context.Context, cfg pipeline.LoadConfig) (pipeline.Pipeline, error) { return p, nil }
}

// createWeightsDir creates a temporary directory holding placeholder weight files.
func createWeightsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
			t.Fatalf("write temp weights %s: %v", p, err)
		}
	}
	return dir
}

// newServer starts the manager and serves it with the real HTTP stack.
func newServer(t *testing.T, cfg pipeline.ManagerConfig) (*httptest.Server, *pipeline.Manager) {
	t.Helper()
	mgr := pipeline.NewWithConfig(cfg)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/internal/e2e/helpers_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

// goBuild compiles pkg (relative to the project root) into a temp binary.
func goBuild(t *testing.T, pkg, name string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", bin, pkg)
	cmd.Dir = projectRoot(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(out))
	}
	return bin
}

func buildFakeWorker(t *testing.T) string {
	return goBuild(t, "./internal/pipeline/testdata/fake_worker.go", "fake_worker")
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// httpPostTryOn posts a multipart try-on form with both images and the given fields.
func httpPostTryOn(t *testing.T, url string, person, garment []byte, fields map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range map[string][]byte{"person_image": person, "garment_image": garment} {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, &buf)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
