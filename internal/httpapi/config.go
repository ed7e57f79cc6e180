package httpapi

import (
	"time"

	"vtond/internal/pipeline"
)

const defaultMaxUploadBytes int64 = 32 << 20

// maxUploadBytes bounds the whole multipart body of POST /try-on.
var maxUploadBytes = defaultMaxUploadBytes

// SetMaxUploadBytes configures the try-on body limit. Non-positive restores the 32 MiB default.
func SetMaxUploadBytes(n int64) {
	if n <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
		return
	}
	maxUploadBytes = n
}

// tryOnTimeout bounds a single /try-on request. Zero means no additional timeout
// beyond server/connection timeouts.
var tryOnTimeout time.Duration

// SetTryOnTimeout sets the per-request try-on timeout (0 disables).
func SetTryOnTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	tryOnTimeout = d
}

// decodeOptions are applied to both uploaded images.
var decodeOptions pipeline.DecodeOptions

// SetAutoOrient enables EXIF orientation correction on uploaded images.
func SetAutoOrient(on bool) { decodeOptions.AutoOrient = on }

// SetMaxImagePixels bounds the declared width*height of each upload.
// Non-positive restores pipeline.DefaultMaxPixels.
func SetMaxImagePixels(n int64) {
	if n < 0 {
		n = 0
	}
	decodeOptions.MaxPixels = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
