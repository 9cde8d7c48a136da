package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	logctx "github.com/cornenkiV/web-ads/internal/pkg/log"
)

var errPanic = errors.New("handler panic")

// Recover превращает panic обработчика в ответ 500/internal.
// Если ответ уже начат, статус не трогается: запрос только логируется.
// http.ErrAbortHandler пробрасывается дальше, чтобы net/http оборвал соединение.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "panic",
					slog.String("request_id", r.Header.Get("X-Request-Id")),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.Bool("response_started", sw.status != 0),
					slog.String("stack", string(debug.Stack())),
				)

				if sw.status == 0 {
					apierrors.WriteError(sw, r, errPanic)
				}
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
