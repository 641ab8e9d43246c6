package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/httpx"
)

const msgTooManyRequests = "Too many requests from this IP, please try again later."

// Middleware enforces l per client IP. Limiter failures let the request
// through.
func Middleware(l Limiter, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			res, err := l.Allow(r.Context(), ip)
			if err != nil {
				logger.Errorw("rate limit check failed", "client_ip", ip, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed {
				logger.Warnw("rate limit exceeded", "client_ip", ip, "limit", res.Limit, "reset_at", res.ResetAt)
				secs := int64(time.Until(res.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.FormatInt(max(secs, 1), 10))
				httpx.Fail(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the peer address of the connection without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
