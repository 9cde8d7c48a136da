package middleware

import (
	"context"
	"net/http"

	"github.com/cornenkiV/web-ads/internal/clients/transport"
	"github.com/google/uuid"
)

// maxRequestIDLen - длиннее id от UI не принимается.
const maxRequestIDLen = 128

// RequestID присваивает запросу UI идентификатор X-Request-Id.
// Пришедший id сохраняется, если он короткий и состоит из [A-Za-z0-9._-];
// иначе выдаётся новый uuid. Id попадает в заголовки запроса и ответа
// и в контекст под transport.CtxRequestID, откуда его берут исходящие
// запросы к API.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if !validRequestID(id) {
				id = uuid.NewString()
				r.Header.Set("X-Request-Id", id)
			}
			w.Header().Set("X-Request-Id", id)

			ctx := context.WithValue(r.Context(), transport.CtxRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}

	for i := 0; i < len(id); i++ {
		switch c := id[i]; {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}

	return true
}
