package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/auth"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber"
)

// statusRecorder captures the status and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.size += n
	return n, err
}

// Status reports the written status, 200 when the handler never set one.
func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

// LoggingMiddleware logs every request at debug level.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r)
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", sr.Status(),
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", sr.size,
			)
		})
	}
}

// apiHeaders suit a JSON-only API: nothing it returns is meant to be
// rendered, framed or to load further resources.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

// SecurityHeadersMiddleware sets apiHeaders, plus HSTS on TLS requests.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			if r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

const prefix = "/pitchfork-api-subscriber"

// MetricsMiddleware records every request under its matched route pattern.
func MetricsMiddleware(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r)
			// ServeMux sets Pattern on the request it routes
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			reg.RecordHTTP(r.Method, route, sr.Status(), time.Since(start))
		})
	}
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
// Mutating subscriber routes go through verifier, which may be nil.
func RegisterRoutes(logger *zap.SugaredLogger, svc *subscriber.Service, reg *metrics.Registry, verifier *auth.Verifier) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET "+prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET "+prefix+"/metrics", reg.Handler())

	// subscriber routes
	h := subscriber.NewHandler(svc, logger)
	mux.HandleFunc("GET "+prefix+"/subscribers", h.List)
	mux.HandleFunc("GET "+prefix+"/subscribers/{id}", h.Get)
	mux.Handle("POST "+prefix+"/subscribers", verifier.Middleware(http.HandlerFunc(h.Create)))
	mux.Handle("DELETE "+prefix+"/subscribers/{id}", verifier.Middleware(http.HandlerFunc(h.Delete)))

	// logging outermost, then metrics, then security headers
	return LoggingMiddleware(logger)(MetricsMiddleware(reg)(SecurityHeadersMiddleware()(mux)))
}
