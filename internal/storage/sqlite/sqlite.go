package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cornenkiV/web-ads/internal/storage"

	_ "modernc.org/sqlite"
)

const refreshTokenKey = "refresh_token"

type Storage struct {
	db *sql.DB
}

// New открывает (или создаёт) файл БД и готовит схему.
func New(ctx context.Context, path string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Один писатель: sqlite не любит параллельные транзакции.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: init schema: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Close закрывает соединение с БД.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Load(ctx context.Context) (string, error) {
	const op = "storage.sqlite.Load"

	var token string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, refreshTokenKey).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (s *Storage) Save(ctx context.Context, token string) error {
	const op = "storage.sqlite.Save"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, refreshTokenKey, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context) error {
	const op = "storage.sqlite.Delete"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, refreshTokenKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Проверка на соответствие интерфейсу RefreshTokenStore.
var _ storage.RefreshTokenStore = (*Storage)(nil)
