package storage

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/cornenkiV/web-ads/internal/storage RefreshTokenStore

// ErrNotFound - refresh-токен не сохранён.
var ErrNotFound = errors.New("not found")

// RefreshTokenStore - долговременное хранилище единственного refresh-токена
// клиента. Переживает перезапуск процесса.
type RefreshTokenStore interface {
	// Load возвращает сохранённый токен или ErrNotFound.
	Load(ctx context.Context) (string, error)
	// Save перезаписывает токен.
	Save(ctx context.Context, token string) error
	// Delete удаляет токен; отсутствие записи ошибкой не считается.
	Delete(ctx context.Context) error
}
