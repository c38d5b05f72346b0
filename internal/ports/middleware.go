package ports

import (
	"log/slog"
	"net/http"

	"github.com/Amund211/advancements/internal/logging"
	"github.com/Amund211/advancements/internal/ratelimiting"
	"github.com/Amund211/advancements/internal/reporting"
)

func NewRateLimitMiddleware(rateLimiter ratelimiting.RequestRateLimiter, onLimitExceeded http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !rateLimiter.Consume(r) {
				onLimitExceeded(w, r)
				return
			}

			next(w, r)
		}
	}
}

func ComposeMiddlewares(middlewares ...func(http.HandlerFunc) http.HandlerFunc) func(http.HandlerFunc) http.HandlerFunc {
	if len(middlewares) == 1 {
		return middlewares[0]
	}
	first := middlewares[0]
	rest := ComposeMiddlewares(middlewares[1:]...)
	return func(h http.HandlerFunc) http.HandlerFunc {
		return first(rest(h))
	}
}

func onLimitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"success":false,"cause":"rate limit exceeded"}`))
}

// Reads are keyed on the caller ip
func newIPRateLimiter() ratelimiting.RequestRateLimiter {
	ipLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(8),
		ratelimiting.BurstSize(480),
	)
	return ratelimiting.NewRequestBasedRateLimiter(ipLimiter, ratelimiting.IPKeyFunc)
}

// Events are keyed on the game server sending them. Joins after a restart come in bursts.
func newHostRateLimiter() ratelimiting.RequestRateLimiter {
	hostLimiter, _ := ratelimiting.NewTokenBucketRateLimiter(
		ratelimiting.RefillPerSecond(100),
		ratelimiting.BurstSize(2000),
	)
	return ratelimiting.NewRequestBasedRateLimiter(
		// NOTE: Rate limiting based on host controlled value
		hostLimiter,
		ratelimiting.HostIDKeyFunc,
	)
}

func buildMiddleware(
	handlerName string,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
	rateLimiter ratelimiting.RequestRateLimiter,
) func(http.HandlerFunc) http.HandlerFunc {
	return ComposeMiddlewares(
		buildMetricsMiddleware(handlerName),
		logging.NewRequestLoggerMiddleware(rootLogger),
		sentryMiddleware,
		reporting.NewAddMetaMiddleware(handlerName),
		NewRateLimitMiddleware(rateLimiter, onLimitExceeded),
	)
}
