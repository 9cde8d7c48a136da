package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout задаёт общий срок запроса UI: в него укладываются попытка к API,
// обновление токена и повтор. context.WithTimeout оставляет более ранний
// срок родителя. При d<=0 обработчик не оборачивается.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
