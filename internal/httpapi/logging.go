package httpapi

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error", "warn":
		return LevelError
	case "info":
		return LevelInfo
	case "debug", "trace":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once; main may override it from the resolved config.
var defaultLogLevel = parseLevel(os.Getenv("VTOND_LOG_LEVEL"))

// SetDefaultLogLevel sets the request log level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logTryOnStart emits the "tryon start" line at info level.
func logTryOnStart(r *http.Request, lvl LogLevel) {
	if lvl < LevelInfo {
		return
	}
	rid := middleware.GetReqID(r.Context())
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path)
		if rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("tryon start")
		return
	}
	log.Printf("tryon start path=%s request_id=%s", r.URL.Path, rid)
}

// logTryOnEnd emits the "tryon end" line. Failures are logged from LevelError up.
func logTryOnEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl < LevelInfo && (lvl < LevelError || err == nil) {
		return
	}
	rid := middleware.GetReqID(r.Context())
	dur := time.Since(start)
	if zlog != nil {
		z := zlog.Info()
		if err != nil && status >= http.StatusInternalServerError {
			z = zlog.Error()
		}
		z = z.Int("status", status).Dur("dur", dur)
		if rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("tryon end")
		return
	}
	if err != nil {
		log.Printf("tryon end status=%d dur=%s request_id=%s err=%v", status, dur, rid, err)
		return
	}
	log.Printf("tryon end status=%d dur=%s request_id=%s", status, dur, rid)
}
