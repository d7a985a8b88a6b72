package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/regsense/assistant-gateway/internal/auth"
	"github.com/regsense/assistant-gateway/internal/config"
	"github.com/regsense/assistant-gateway/internal/httputil"
	"github.com/regsense/assistant-gateway/internal/telemetry"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Middleware enforces a per-caller requests-per-minute limit on the query
// routes. Callers are bucketed by API key name when authenticated, else by
// remote address.
func Middleware(limiter *Limiter, cfg func() config.RateLimitConfig, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rl := cfg()
			if !rl.Enabled || rl.RequestsPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqID := w.Header().Get("X-Request-ID")

			bucket := r.RemoteAddr
			if info, ok := auth.InfoFromContext(r.Context()); ok {
				bucket = "key:" + info.KeyName
			}

			result, _ := limiter.Check(r.Context(), "rpm:"+bucket, int64(rl.RequestsPerMinute), time.Minute)

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(rl.RequestsPerMinute))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"bucket", bucket,
					"limit", rl.RequestsPerMinute,
				)
				if metrics != nil {
					metrics.RecordRateLimitHit("rpm")
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteRateLimitError(w, reqID,
					fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rl.RequestsPerMinute, result.ResetAt.Format(time.RFC3339)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
