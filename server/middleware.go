// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/bitfsorg/dstore-go/apperr"
)

// statusRecorder captures the status code a handler wrote, since
// net/http gives no direct way to read it back afterward.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging logs each request once on completion with method, path,
// status, and duration, the same request/response shape as the
// teacher's gRPC logging interceptor, adapted to net/http.
func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= 500 {
			level = slog.LevelError
		} else if rec.status >= 400 {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// withRecovery converts a panic inside next into a 500 response instead
// of crashing the connection's goroutine, logging the stack trace the
// way the teacher's gRPC recovery interceptor does.
func withRecovery(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered", "panic", rec, "stack", string(debug.Stack()))
				apperr.Write(w, apperr.Internalf(fmt.Errorf("%v", rec), "internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimited gates next behind limiter, keying each request by
// keyFunc(r). A denied request gets a 429 with the standard error
// envelope rather than the bodyless HEAD convention, since rate
// limiting happens before the handler can decide its own response
// shape.
func rateLimited(limiter *rateLimiter, keyFunc func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.allow(keyFunc(r)) {
			apperr.Write(w, apperr.New(apperr.RateLimited, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the request's remote IP, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
