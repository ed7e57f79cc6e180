package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workerRecord captures what the fake worker received.
type workerRecord struct {
	mu         sync.Mutex
	form       url.Values
	header     http.Header
	hasGarment bool
}

func (r *workerRecord) FormValue(k string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.form.Get(k)
}

func (r *workerRecord) Header(k string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header.Get(k)
}

// newFakeWorker serves the worker protocol and records the last form it saw.
func newFakeWorker(t *testing.T, images int, status int) (*httptest.Server, *workerRecord) {
	t.Helper()
	seen := &workerRecord{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/try-on", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _, gerr := r.FormFile("garment_image")
		seen.mu.Lock()
		seen.form = r.MultipartForm.Value
		seen.header = r.Header.Clone()
		seen.hasGarment = gerr == nil
		seen.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "worker exploded", status)
			return
		}
		f, _, err := r.FormFile("person_image")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var buf bytes.Buffer
		_ = png.Encode(&buf, img)
		out := workerTryOnResponse{Images: []string{}}
		for i := 0; i < images; i++ {
			out.Images = append(out.Images, base64.StdEncoding.EncodeToString(buf.Bytes()))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, seen
}

func TestWorkerClient_TryOnForwardsForm(t *testing.T) {
	ts, seen := newFakeWorker(t, 1, http.StatusOK)
	c := newWorkerClient(ts.URL+"/", time.Second, time.Second)
	defer c.Close()

	req := validRequest()
	req.Category = CategoryOnePieces
	req.GarmentPhotoType = GarmentPhotoFlatLay
	req.GuidanceScale = 2.25
	req.Seed = -3
	req.RequestID = "rid-1"
	res, err := c.TryOn(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Images, 1)
	assert.Equal(t, 100, res.Images[0].Bounds().Dx())
	r, _, _, _ := res.Images[0].At(10, 10).RGBA()
	assert.Equal(t, uint32(200), r>>8)

	assert.Equal(t, "one-pieces", seen.FormValue("category"))
	assert.Equal(t, "flat-lay", seen.FormValue("garment_photo_type"))
	assert.Equal(t, "1", seen.FormValue("num_samples"))
	assert.Equal(t, "30", seen.FormValue("num_timesteps"))
	assert.Equal(t, "2.25", seen.FormValue("guidance_scale"))
	assert.Equal(t, "-3", seen.FormValue("seed"))
	assert.Equal(t, "rid-1", seen.Header("X-Request-ID"))
	seen.mu.Lock()
	assert.True(t, seen.hasGarment)
	seen.mu.Unlock()
}

func TestWorkerClient_GeneratesRequestID(t *testing.T) {
	ts, seen := newFakeWorker(t, 1, http.StatusOK)
	c := newWorkerClient(ts.URL, 0, 0)
	_, err := c.TryOn(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Len(t, seen.Header("X-Request-ID"), 36)
}

func TestWorkerClient_EmptyResult(t *testing.T) {
	ts, _ := newFakeWorker(t, 0, http.StatusOK)
	c := newWorkerClient(ts.URL, time.Second, time.Second)
	res, err := c.TryOn(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Empty(t, res.Images)
}

func TestWorkerClient_HTTPError(t *testing.T) {
	ts, _ := newFakeWorker(t, 1, http.StatusInternalServerError)
	c := newWorkerClient(ts.URL, time.Second, time.Second)
	_, err := c.TryOn(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker http error: 500")
	assert.Contains(t, err.Error(), "worker exploded")
}

func TestWorkerClient_BadImagePayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images":["bm90IGEgcG5n"]}`))
	}))
	defer ts.Close()
	c := newWorkerClient(ts.URL, time.Second, time.Second)
	_, err := c.TryOn(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker image 0")
}

func TestWorkerClient_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(block)
	c := newWorkerClient(ts.URL, 0, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.TryOn(ctx, validRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerClient_RequestTimeout(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(block)
	c := newWorkerClient(ts.URL, 50*time.Millisecond, time.Second)
	_, err := c.TryOn(context.Background(), validRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerClient_Health(t *testing.T) {
	ts, _ := newFakeWorker(t, 1, http.StatusOK)
	require.NoError(t, newWorkerClient(ts.URL, 0, 0).health(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	assert.Error(t, newWorkerClient(down.URL, 0, 0).health(context.Background()))
}
