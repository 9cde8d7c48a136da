package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cornenkiV/web-ads/internal/metrics"

	"golang.org/x/time/rate"
)

// Throttle ограничивает темп исходящих запросов клиентским token bucket,
// чтобы не упираться в лимит API. nil limiter делает мидлвар no-op.
// Ответы 429 конвейер не повторяет.
func Throttle(lim *rate.Limiter, m *metrics.Metrics) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if lim == nil {
			return next
		}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			const op = "transport.Throttle"

			start := time.Now()
			if err := lim.Wait(req.Context()); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			m.ObserveThrottle(time.Since(start).Seconds())

			return next.RoundTrip(req)
		})
	}
}

// NewLimiter строит limiter из конфигурации; rps <= 0 отключает ограничение.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}

	if burst <= 0 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(rps), burst)
}
