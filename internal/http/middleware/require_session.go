package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/models"
	logctx "github.com/cornenkiV/web-ads/internal/pkg/log"
)

// SessionGate - то, что нужно охраннику от менеджера сессии.
type SessionGate interface {
	Ready() <-chan struct{}
	Snapshot() models.Session
	Refresh(ctx context.Context) (string, error)
}

// RequireSession пропускает запрос только при аутентифицированной сессии.
// Пока идёт стартовая инициализация, запрос ждёт её окончания (не дольше
// контекста запроса). Если пользователь вошёл, но access-токен истёк,
// охранник сначала тихо обновляет токен. Без сессии ответ 401.
func RequireSession(s SessionGate) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.RequireSession"

			select {
			case <-s.Ready():
			case <-r.Context().Done():
				apierrors.WriteError(w, r, fmt.Errorf("%s: %w", op, r.Context().Err()))
				return
			}

			snap := s.Snapshot()

			// Личность есть только в Authenticated: сессия жива, истёк лишь токен.
			if !snap.IsAuthenticated && snap.User != nil {
				if _, err := s.Refresh(r.Context()); err != nil {
					logctx.From(r.Context()).Info("session_guard_refresh_failed",
						slog.String("path", r.URL.Path),
						slog.String("err", err.Error()),
					)
					apierrors.WriteError(w, r, fmt.Errorf("%s: %w", op, err))
					return
				}
				snap = s.Snapshot()
			}

			if !snap.IsAuthenticated {
				logctx.From(r.Context()).Debug("session_required",
					slog.String("path", r.URL.Path),
				)
				apierrors.WriteError(w, r, fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
