package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// workerClient implements Pipeline by talking to a running try-on worker over HTTP.
type workerClient struct {
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
}

// newWorkerClient constructs a client for the worker listening at baseURL.
func newWorkerClient(baseURL string, reqTimeout, connectTimeout time.Duration) *workerClient {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout=0: generation can legitimately take minutes, so every call
	// carries its deadline on the context instead.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &workerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		reqTimeout: reqTimeout,
		httpClient: cli,
	}
}

// workerTryOnResponse is the JSON body returned by POST /v1/try-on.
type workerTryOnResponse struct {
	Images []string `json:"images"`
}

// health checks GET /health on the worker.
func (c *workerClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("worker health: %s", resp.Status)
	}
	return nil
}

func (c *workerClient) TryOn(ctx context.Context, req Request) (Result, error) {
	if c.httpClient == nil {
		return Result{}, errors.New("worker client not initialized")
	}
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}
	body, contentType, err := encodeWorkerForm(req)
	if err != nil {
		return Result{}, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/try-on", body)
	if err != nil {
		return Result{}, err
	}
	hreq.Header.Set("Content-Type", contentType)
	hreq.Header.Set("Accept", "application/json")
	rid := req.RequestID
	if rid == "" {
		rid = uuid.NewString()
	}
	hreq.Header.Set("X-Request-ID", rid)

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("worker request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("worker http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var out workerTryOnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("decode worker response: %w", err)
	}
	res := Result{Images: make([]image.Image, 0, len(out.Images))}
	for i, enc := range out.Images {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return Result{}, fmt.Errorf("worker image %d: %w", i, err)
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return Result{}, fmt.Errorf("worker image %d: %w", i, err)
		}
		res.Images = append(res.Images, img)
	}
	if len(res.Images) > req.NumSamples && req.NumSamples > 0 {
		log.Printf("adapter=worker event=extra_images request_id=%s got=%d want=%d", rid, len(res.Images), req.NumSamples)
	}
	return res, nil
}

func (c *workerClient) Close() error {
	if tr, ok := c.httpClient.Transport.(*http.Transport); ok {
		tr.CloseIdleConnections()
	}
	return nil
}

// encodeWorkerForm builds the multipart body of POST /v1/try-on. Rasters are
// sent as PNG so nothing is lost between the two processes.
func encodeWorkerForm(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct {
		field string
		img   image.Image
	}{
		{"person_image", req.Person},
		{"garment_image", req.Garment},
	} {
		fw, err := mw.CreateFormFile(f.field, f.field+".png")
		if err != nil {
			return nil, "", err
		}
		if err := EncodePNG(fw, f.img); err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", f.field, err)
		}
	}
	fields := [][2]string{
		{"category", string(req.Category)},
		{"garment_photo_type", string(req.GarmentPhotoType)},
		{"num_samples", strconv.Itoa(req.NumSamples)},
		{"num_timesteps", strconv.Itoa(req.NumTimesteps)},
		{"guidance_scale", strconv.FormatFloat(req.GuidanceScale, 'f', -1, 64)},
		{"seed", strconv.FormatInt(req.Seed, 10)},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
