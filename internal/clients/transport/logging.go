package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cornenkiV/web-ads/internal/pkg/log"
	"github.com/cornenkiV/web-ads/internal/pkg/redact"
)

// Logging - логирование исходящих запросов.
// Поведение:
//   - одна запись на попытку: msg="http_client", method, host, path, status, dur;
//   - auth показывает лишь факт наличия bearer-токена;
//   - обогащённый логгер прокладывается в контекст попытки (pkg/log);
//   - ошибка транспорта пишется уровнем Warn со status=0.
//
// Безопасность: не логирует заголовки и тела (там токены).
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := req.Header.Get("X-Request-Id")
			if rid == "" {
				rid = "-"
			}

			auth := "none"
			if req.Header.Get("Authorization") != "" {
				auth = "Bearer " + redact.Token()
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", req.Method),
				slog.String("host", req.URL.Host),
				slog.String("path", req.URL.Path),
				slog.String("auth", auth),
			)

			resp, err := next.RoundTrip(req.WithContext(log.Into(req.Context(), l)))

			if err != nil {
				l.LogAttrs(req.Context(), slog.LevelWarn, "http_client",
					slog.Int("status", 0),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return nil, err
			}

			l.LogAttrs(req.Context(), slog.LevelInfo, "http_client",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
