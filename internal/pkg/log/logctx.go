// log переносит request-scoped *slog.Logger через context.Context.
//
// Логгер кладётся входящим HTTP-мидлваром гейтвея и дополняется полями
// исходящего конвейера (request_id, method, path), поэтому запись об
// обновлении сессии несёт тот же request_id, что и породивший её запрос.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	return FromOr(ctx, nil)
}

// FromOr - как From, но при отсутствии логгера в контексте возвращает fallback.
func FromOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	if fallback != nil {
		return fallback
	}

	return slog.Default()
}

// With дополняет логгер из контекста атрибутами и возвращает
// новый контекст вместе с обогащённым логгером.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	l := From(ctx).With(args...)
	return Into(ctx, l), l
}
