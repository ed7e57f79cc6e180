package httpapi

import (
	"context"
	"errors"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vtond/internal/pipeline"
	"vtond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	// Pipeline resolves the pipeline handle; the error is the not-loaded condition.
	Pipeline() (pipeline.Pipeline, error)
	Ready() bool
	WeightsDir() string
	TryOn(ctx context.Context, req pipeline.Request) (image.Image, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/health", healthHandler(svc))
	r.Post("/try-on", tryOnHandler(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return otelhttp.NewHandler(r, "vtond",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path == "/try-on"
		}),
	)
}

// healthHandler reports whether the pipeline is loaded.
//
// @Summary      Health probe
// @Description  200 with the weights directory when the pipeline is loaded, 503 otherwise.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Failure      503  {object}  types.HealthResponse
// @Router       /health [get]
func healthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Pipeline(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "unhealthy", Detail: "Pipeline not loaded"})
			return
		}
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", WeightsDir: svc.WeightsDir()})
	}
}

// tryOnHandler runs one virtual try-on and returns the result as PNG.
//
// @Summary      Virtual try-on
// @Description  Composites the garment onto the person and returns a PNG.
// @Tags         try-on
// @Accept       multipart/form-data
// @Produce      png
// @Param        person_image        formData  file    true   "Photo of the person"
// @Param        garment_image       formData  file    true   "Photo of the garment"
// @Param        category            formData  string  false  "tops, bottoms or one-pieces"  default(tops)
// @Param        garment_photo_type  formData  string  false  "model or flat-lay"            default(model)
// @Param        num_timesteps       formData  int     false  "10..50"                       default(30)
// @Param        guidance_scale      formData  number  false  "1.0..3.0"                     default(1.5)
// @Param        seed                formData  int     false  "Random seed"                  default(42)
// @Success      200  {file}    binary
// @Failure      400  {object}  types.ErrorResponse
// @Failure      500  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /try-on [post]
func tryOnHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		logTryOnStart(r, lvl)
		status, err := serveTryOn(w, r, svc)
		logTryOnEnd(r, lvl, status, start, err)
	}
}

// errServerShutdown is reported when shutdown interrupts a try-on.
var errServerShutdown = errors.New("server shutting down")

func serveTryOn(w http.ResponseWriter, r *http.Request, svc Service) (int, error) {
	// The handle is resolved before any input is read.
	if _, err := svc.Pipeline(); err != nil {
		return writeError(w, err), err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	req, err := parseTryOnForm(r, decodeOptions)
	if err != nil {
		return writeError(w, err), err
	}
	req.RequestID = middleware.GetReqID(r.Context())

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if tryOnTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, tryOnTimeout)
		defer tcancel()
	}

	img, err := svc.TryOn(ctx, req)
	if err != nil {
		// Client went away: nothing left to write.
		if r.Context().Err() != nil {
			return 499, err
		}
		if serverBaseCtx.Err() != nil {
			writeJSONError(w, http.StatusServiceUnavailable, errServerShutdown.Error())
			return http.StatusServiceUnavailable, err
		}
		return writeError(w, err), err
	}

	body, err := pipeline.PNGBytes(img)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode image: "+err.Error())
		return http.StatusInternalServerError, err
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return http.StatusOK, nil
}
