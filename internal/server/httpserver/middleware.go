package httpserver

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/server/httpserver/handler"
	"github.com/yndnr/claimledger-go/internal/telemetry/logger"
	"github.com/yndnr/claimledger-go/internal/telemetry/metric"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains middlewares; the first one runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

var (
	requestIDMu      sync.Mutex
	requestIDEntropy = ulid.Monotonic(rand.Reader, 0)
)

func newRequestID() string {
	requestIDMu.Lock()
	defer requestIDMu.Unlock()
	return "req-" + ulid.MustNew(ulid.Timestamp(time.Now()), requestIDEntropy).String()
}

// RequestID tags each request with an ID, reusing a client-supplied
// X-Request-ID, and attaches a request logger to the context.
func RequestID(base *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 128 {
				requestID = newRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = logger.WithLogger(ctx, base)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover turns a panic into a CL-SYS-5000 response.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.L(r.Context()).Error("panic recovered",
						"error", rec,
						"path", r.URL.Path)
					handler.WriteError(w, r, domain.ErrInternalServer)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per client IP using the auth service's limiters.
func RateLimit(auth *service.AuthService, requestsPerSecond int) Middleware {
	return func(next http.Handler) http.Handler {
		if requestsPerSecond <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.CheckRateLimit("ip:"+getClientIP(r), requestsPerSecond); err != nil {
				handler.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Auth authenticates the API key, checks that its role allows required,
// and stores the resulting principal in the request context.
func Auth(auth *service.AuthService, required domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyID, keySecret := extractAPIKeyCredentials(r)

			principal, err := auth.Authenticate(r.Context(), &service.AuthenticateRequest{
				KeyID:     keyID,
				KeySecret: keySecret,
				ClientIP:  getClientIP(r),
			})
			if err != nil {
				logger.L(r.Context()).Warn("authentication failed",
					"key_id", keyID,
					"client_ip", getClientIP(r),
					"error", domain.GetErrorCode(err))
				handler.WriteError(w, r, err)
				return
			}

			if err := auth.CheckPermission(principal, required); err != nil {
				handler.WriteError(w, r, err)
				return
			}

			ctx := service.WithPrincipal(r.Context(), principal)
			ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("key_id", principal.KeyID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Audit logs one line per completed request.
func Audit() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", getClientIP(r),
			}

			l := logger.L(r.Context())
			switch {
			case wrapped.statusCode >= 500:
				l.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				l.Warn("request completed with client error", attrs...)
			default:
				l.Info("request completed", attrs...)
			}
		})
	}
}

// Metrics records request counts and latency by route pattern.
func Metrics(reg *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if i := strings.IndexByte(route, ' '); i >= 0 {
				route = route[i+1:]
			}
			if route == "" {
				route = "unmatched"
			}
			reg.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}

// CORS adds Cross-Origin Resource Sharing headers.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		if len(allowedOrigins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key-ID, X-API-Key, X-Request-ID, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// extractAPIKeyCredentials reads API key credentials from, in order:
// Authorization: Bearer <key_id>:<secret>, X-API-Key: <key_id>:<secret>,
// or the X-API-Key-ID and X-API-Key header pair.
func extractAPIKeyCredentials(r *http.Request) (keyID, keySecret string) {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		parts := strings.SplitN(strings.TrimPrefix(authHeader, "Bearer "), ":", 2)
		if len(parts) == 2 {
			return parts[0], parts[1]
		}
	}

	apiKey := r.Header.Get("X-API-Key")
	if id := r.Header.Get("X-API-Key-ID"); id != "" {
		return id, apiKey
	}
	if parts := strings.SplitN(apiKey, ":", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", ""
}
