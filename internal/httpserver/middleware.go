package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"workmatch/internal/domain"
	"workmatch/internal/metrics"
	"workmatch/internal/ratelimit"
)

const loggerContextKey contextKey = "logger"

func loggerFrom(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value(loggerContextKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// RequestLogger writes one access log line per request and records the
// request duration histogram. Handlers find a request-scoped logger via loggerFrom.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With(zap.String("request_id", middleware.GetReqID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), loggerContextKey, reqLog)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if status >= http.StatusInternalServerError {
				reqLog.Error("request", fields...)
				return
			}
			reqLog.Info("request", fields...)
		})
	}
}

// RateLimit throttles the authenticated caller on the named route group.
// Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := route + ":" + strconv.FormatInt(user.ID, 10)
			ok, err := limiter.Allow(r.Context(), key)
			if err != nil {
				loggerFrom(r).Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.RateLimited.WithLabelValues(route).Inc()
				loggerFrom(r).Warn("rate limit exceeded", zap.String("route", route), zap.Int64("user_id", user.ID))
				writeError(w, r, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
